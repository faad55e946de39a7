package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/logger"
	"postarchiver/pkg/retry"
)

func newTestClient() *Client {
	return NewClient(5*time.Second, "TestAgent/1.0", logger.NewNopLogger()).WithRetry(&retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     retry.DefaultRetryIf,
		Logger:      logger.NewNopLogger(),
	})
}

func TestGetReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TestAgent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg data"))
	}))
	defer server.Close()

	data, err := newTestClient().Get(context.Background(), server.URL+"/img")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg data"), data)
}

func TestGetNotFoundIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient().Get(context.Background(), server.URL)
	require.Error(t, err)

	assert.True(t, errs.Is(err, errs.ErrorTypeNetwork))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGetRejectsOversizedBody(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	c := newTestClient()
	c.maxBody = 10
	data, err := c.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, data, 10)

	c.maxBody = 9
	_, err = c.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeResource))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGetRetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	data, err := newTestClient().Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestGetGivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient().Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestGetInvalidURL(t *testing.T) {
	_, err := newTestClient().Get(context.Background(), "://bad")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfig))
}

func TestGetCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient().Get(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
}
