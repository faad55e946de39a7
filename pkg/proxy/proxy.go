// Package proxy parses proxy URLs and hands them out in rotation.
package proxy

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	errs "postarchiver/pkg/errors"
)

// Proxy is one parsed proxy endpoint
type Proxy struct {
	Scheme   string `json:"scheme"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Server returns the endpoint without credentials, e.g. http://10.0.0.1:8080
func (p Proxy) Server() string {
	return fmt.Sprintf("%s://%s", p.Scheme, net.JoinHostPort(p.Host, p.Port))
}

// HasAuth reports whether the proxy carries credentials
func (p Proxy) HasAuth() bool {
	return p.Username != ""
}

// Name is the label used for the proxy in logs and in the vault
func (p Proxy) Name() string {
	return net.JoinHostPort(p.Host, p.Port)
}

// URL returns the full proxy URL including credentials
func (p Proxy) URL() string {
	u := url.URL{Scheme: p.Scheme, Host: net.JoinHostPort(p.Host, p.Port)}
	if p.HasAuth() {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u.String()
}

// String returns the proxy with its password masked
func (p Proxy) String() string {
	if !p.HasAuth() {
		return p.Server()
	}
	return fmt.Sprintf("%s://%s:***@%s", p.Scheme, p.Username, net.JoinHostPort(p.Host, p.Port))
}

// Parse parses <scheme>://[<username>:<password>@]<host>:<port>.
// Supported schemes are http, https and socks5; socks5 proxies cannot carry
// credentials because the browser does not support authenticated SOCKS.
func Parse(raw string) (Proxy, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Proxy{}, errs.Wrap(errs.ErrorTypeProxy, fmt.Sprintf("failed to parse proxy URL %q", raw), err)
	}

	p := Proxy{Scheme: strings.ToLower(u.Scheme), Host: u.Hostname(), Port: u.Port()}
	switch p.Scheme {
	case "http", "https", "socks5":
	default:
		return Proxy{}, errs.New(errs.ErrorTypeProxy,
			fmt.Sprintf("unsupported proxy scheme %q in %q (use http, https or socks5)", u.Scheme, raw))
	}

	if p.Host == "" || p.Port == "" {
		return Proxy{}, errs.New(errs.ErrorTypeProxy, fmt.Sprintf("proxy %q must include host and port", raw))
	}
	if n, err := strconv.Atoi(p.Port); err != nil || n <= 0 || n > 65535 {
		return Proxy{}, errs.New(errs.ErrorTypeProxy, fmt.Sprintf("proxy %q has an invalid port", raw))
	}

	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
		if p.Scheme == "socks5" {
			return Proxy{}, errs.New(errs.ErrorTypeProxy, "socks5 proxies are supported without authentication only")
		}
	}

	return p, nil
}

// LoadSource reads proxies from source, which is either a file with one
// proxy per line or a single proxy URL. Blank lines and lines starting
// with # are ignored.
func LoadSource(source string) ([]Proxy, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		return loadFile(source)
	}

	p, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return []Proxy{p}, nil
}

func loadFile(path string) ([]Proxy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeProxy, "failed to open proxy file", err)
	}
	defer f.Close()

	var proxies []Proxy
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		p, err := Parse(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		proxies = append(proxies, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeProxy, "failed to read proxy file", err)
	}
	return proxies, nil
}

// Pool hands out proxies in cyclic order
type Pool struct {
	mu      sync.Mutex
	proxies []Proxy
	next    int
}

// NewPool creates a pool over proxies
func NewPool(proxies []Proxy) *Pool {
	return &Pool{proxies: append([]Proxy(nil), proxies...)}
}

// Next returns the next proxy, wrapping around after the last one
func (p *Pool) Next() (Proxy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return Proxy{}, errs.ErrNoProxies
	}
	proxy := p.proxies[p.next]
	p.next = (p.next + 1) % len(p.proxies)
	return proxy, nil
}

// Len returns the number of proxies in the pool
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}
