// Package auth guards the API surface. Two credential shapes are accepted,
// opaque provider API keys held in an in-process store and RS256 bearer
// tokens checked against the issuer's published key set, run as an ordered
// verifier chain.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const keyPrefix = "mds_"

// Credential describes one issued API key. The key itself is only the map
// index; after issuance callers see the preview.
type Credential struct {
	Provider    string
	Preview     string
	CreatedAt   time.Time
	Active      bool
	Permissions []string
}

// KeyStore holds issued API keys in memory.
type KeyStore struct {
	mu   sync.RWMutex
	keys map[string]*Credential
}

// NewKeyStore builds an empty store.
func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[string]*Credential)}
}

// Load registers pre-issued keys from "key:provider_slug" entries. The
// first malformed entry aborts the load so a typo in the environment is
// caught at boot.
func (s *KeyStore) Load(entries []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		key, provider, ok := strings.Cut(entry, ":")
		if !ok || key == "" || provider == "" {
			return fmt.Errorf("malformed api key entry %q, want key:provider", Preview(entry))
		}
		s.keys[key] = &Credential{
			Provider:  provider,
			Preview:   Preview(key),
			CreatedAt: time.Now(),
			Active:    true,
		}
	}
	return nil
}

// Generate mints a key for provider and returns it. The full key is only
// available here; afterwards the store exposes the preview.
func (s *KeyStore) Generate(provider string, permissions ...string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	key := keyPrefix + base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	s.keys[key] = &Credential{
		Provider:    provider,
		Preview:     Preview(key),
		CreatedAt:   time.Now(),
		Active:      true,
		Permissions: permissions,
	}
	s.mu.Unlock()
	return key, nil
}

// Validate looks up an active credential for key.
func (s *KeyStore) Validate(key string) (*Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.keys[key]
	if !ok || !cred.Active {
		return nil, false
	}
	return cred, true
}

// Revoke deactivates the key matching preview and reports whether one
// matched.
func (s *KeyStore) Revoke(preview string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cred := range s.keys {
		if cred.Preview == preview && cred.Active {
			cred.Active = false
			return true
		}
	}
	return false
}

// List returns the stored credentials sorted by provider. Only previews
// leave the store.
func (s *KeyStore) List() []Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Credential, 0, len(s.keys))
	for _, cred := range s.keys {
		out = append(out, *cred)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Preview < out[j].Preview
	})
	return out
}

// Preview masks a key for display, first eight and last four characters.
func Preview(key string) string {
	if len(key) < 12 {
		return key
	}
	return key[:8] + "..." + key[len(key)-4:]
}
