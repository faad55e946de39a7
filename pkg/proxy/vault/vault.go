// Package vault keeps proxy credentials out of shell history and config
// files. Entries live in the system keychain when one is available and in
// an AES-GCM encrypted file otherwise.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"postarchiver/pkg/proxy"
)

// Entry is one stored proxy
type Entry struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a backend that persists entries by name
type Store interface {
	Store(entry *Entry) error
	Retrieve(name string) (*Entry, error)
	List() ([]*Entry, error)
	Delete(name string) error
}

// Manager reads from and writes to its stores in order
type Manager struct {
	stores []Store
}

// NewManager creates a manager backed by the system keychain when reachable
// and the encrypted file store under the user config directory
func NewManager() (*Manager, error) {
	var stores []Store

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fs, err := NewEncryptedFileStore(filepath.Join(configDir, "proxies.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs)

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit backends
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Add validates raw as a proxy URL and stores it under host:port
func (m *Manager) Add(raw string) (*Entry, error) {
	p, err := proxy.Parse(raw)
	if err != nil {
		return nil, err
	}

	entry := &Entry{Name: p.Name(), URL: p.URL(), LastModified: time.Now()}

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(entry); err == nil {
			return entry, nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed to store proxy: %w", lastErr)
	}
	return nil, ErrStoreUnavailable
}

// List returns the entries of all stores, newest copy per name, sorted by name
func (m *Manager) List() ([]*Entry, error) {
	byName := make(map[string]*Entry)

	for _, store := range m.stores {
		entries, err := store.List()
		if err != nil {
			continue
		}
		for _, e := range entries {
			if existing, ok := byName[e.Name]; !ok || e.LastModified.After(existing.LastModified) {
				byName[e.Name] = e
			}
		}
	}

	result := make([]*Entry, 0, len(byName))
	for _, e := range byName {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Remove deletes name from every store
func (m *Manager) Remove(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrNotFound) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete proxy: %w", lastErr)
	}
	return fmt.Errorf("proxy %s: %w", name, ErrNotFound)
}

// Clear removes every stored proxy and returns how many were removed
func (m *Manager) Clear() (int, error) {
	entries, err := m.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if err := m.Remove(e.Name); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Proxies parses every stored entry. Entries that no longer parse are skipped.
func (m *Manager) Proxies() ([]proxy.Proxy, error) {
	entries, err := m.List()
	if err != nil {
		return nil, err
	}

	proxies := make([]proxy.Proxy, 0, len(entries))
	for _, e := range entries {
		p, err := proxy.Parse(e.URL)
		if err != nil {
			continue
		}
		proxies = append(proxies, p)
	}
	return proxies, nil
}

// ConfigDir returns the per-user configuration directory, creating it if needed
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "postarchiver")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "postarchiver")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "postarchiver")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "postarchiver")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

var (
	ErrNotFound         = errors.New("proxy not found in vault")
	ErrInvalidEntry     = errors.New("invalid vault entry")
	ErrStoreUnavailable = errors.New("no vault store available")
)
