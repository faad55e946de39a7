package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postarchiver/pkg/config"
	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/logger"
	"postarchiver/pkg/proxy"
)

func TestParseFamily(t *testing.T) {
	tests := []struct {
		in      string
		want    Family
		wantErr bool
	}{
		{"chromium", Chromium, false},
		{"Chrome", Chromium, false},
		{"", Chromium, false},
		{"firefox", Firefox, false},
		{" webkit ", WebKit, false},
		{"netscape", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFamily(tt.in)
			if tt.wantErr {
				assert.True(t, errs.Is(err, errs.ErrorTypeConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Browser
	cfg.Family = "firefox"

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, Firefox, opts.Family)
	assert.Equal(t, cfg.NavigateTimeout, opts.NavigateTimeout)
	assert.True(t, opts.Headless)
}

func TestAllocatorOptions(t *testing.T) {
	base := AllocatorOptions(Options{Family: Chromium}, nil)
	withUA := AllocatorOptions(Options{Family: Chromium, UserAgent: "ua"}, nil)
	withProxy := AllocatorOptions(Options{Family: Chromium}, &proxy.Proxy{Scheme: "http", Host: "h", Port: "1"})
	firefox := AllocatorOptions(Options{Family: Firefox}, nil)

	assert.Len(t, withUA, len(base)+1)
	assert.Len(t, withProxy, len(base)+1)
	assert.Len(t, firefox, len(base)+1)
}

type stubSession struct {
	Session
	family Family
	proxy  *proxy.Proxy
}

func (s *stubSession) Family() Family { return s.family }

func TestFactoryRotatesProxies(t *testing.T) {
	pool := proxy.NewPool([]proxy.Proxy{
		{Scheme: "http", Host: "a", Port: "1"},
		{Scheme: "http", Host: "b", Port: "2"},
	})

	var seen []string
	f := NewFactory(Options{Family: Firefox}, pool, logger.NewNopLogger()).
		WithLauncher(func(ctx context.Context, opts Options, p *proxy.Proxy, log logger.Logger) (Session, error) {
			seen = append(seen, p.Host)
			return &stubSession{family: opts.Family, proxy: p}, nil
		})

	for i := 0; i < 3; i++ {
		s, err := f.New(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Firefox, s.Family())
	}
	assert.Equal(t, []string{"a", "b", "a"}, seen)
}

func TestFactoryWithoutPool(t *testing.T) {
	var got *proxy.Proxy = &proxy.Proxy{}
	f := NewFactory(Options{Family: Chromium}, nil, logger.NewNopLogger()).
		WithLauncher(func(ctx context.Context, opts Options, p *proxy.Proxy, log logger.Logger) (Session, error) {
			got = p
			return &stubSession{family: opts.Family}, nil
		})

	_, err := f.New(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFactoryErrors(t *testing.T) {
	t.Run("empty pool", func(t *testing.T) {
		f := NewFactory(Options{}, proxy.NewPool(nil), logger.NewNopLogger())
		_, err := f.New(context.Background())
		assert.ErrorIs(t, err, errs.ErrNoProxies)
	})

	t.Run("launch failure", func(t *testing.T) {
		f := NewFactory(Options{}, nil, logger.NewNopLogger()).
			WithLauncher(func(context.Context, Options, *proxy.Proxy, logger.Logger) (Session, error) {
				return nil, errors.New("no chrome binary")
			})
		_, err := f.New(context.Background())
		assert.True(t, errs.Is(err, errs.ErrorTypeSession))
		assert.Contains(t, err.Error(), "no chrome binary")
	})
}

func TestLaunchRejectsWebKit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Launch(ctx, Options{Family: WebKit}, nil, logger.NewNopLogger())
	assert.True(t, errs.Is(err, errs.ErrorTypeFatal))
}
