package archiver

import (
	"postarchiver/pkg/config"
	errs "postarchiver/pkg/errors"
	"postarchiver/pkg/proxy"
	"postarchiver/pkg/proxy/vault"
)

// ProxySource lists stored proxies
type ProxySource interface {
	Proxies() ([]proxy.Proxy, error)
}

// LoadProxies builds the proxy pool from the proxy config section. It
// returns a nil pool when no proxies were requested. Asking for proxies and
// finding none is an error: the run must not silently go out direct.
func LoadProxies(cfg config.ProxyConfig, stored ProxySource) (*proxy.Pool, error) {
	var proxies []proxy.Proxy

	if cfg.Source != "" {
		loaded, err := proxy.LoadSource(cfg.Source)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, loaded...)
	}

	if cfg.UseVault {
		if stored == nil {
			m, err := vault.NewManager()
			if err != nil {
				return nil, errs.Wrap(errs.ErrorTypeProxy, "failed to open proxy vault", err)
			}
			stored = m
		}
		loaded, err := stored.Proxies()
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeProxy, "failed to read proxy vault", err)
		}
		proxies = append(proxies, loaded...)
	}

	if cfg.Source == "" && !cfg.UseVault {
		return nil, nil
	}
	if len(proxies) == 0 {
		return nil, errs.ErrNoProxies
	}
	return proxy.NewPool(proxies), nil
}
