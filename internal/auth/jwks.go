package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// KeySet is the RSA portion of a JWKS document, indexed by key ID.
type KeySet struct {
	keys map[string]*rsa.PublicKey
}

// Key returns the public key for kid.
func (ks *KeySet) Key(kid string) (*rsa.PublicKey, bool) {
	key, ok := ks.keys[kid]
	return key, ok
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// ParseKeySet decodes the RSA entries of a JWKS document. Entries of other
// key types are ignored; a document with no usable key is an error.
func ParseKeySet(data []byte) (*KeySet, error) {
	var doc jwksDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	ks := &KeySet{keys: make(map[string]*rsa.PublicKey)}
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaPublicKey(k.N, k.E)
		if err != nil {
			return nil, fmt.Errorf("jwk %s: %w", k.Kid, err)
		}
		ks.keys[k.Kid] = pub
	}
	if len(ks.keys) == 0 {
		return nil, errors.New("jwks document holds no usable RSA keys")
	}
	return ks, nil
}

func rsaPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}

// KeySetFetcher retrieves the issuer's current key set.
type KeySetFetcher interface {
	Fetch(ctx context.Context) (*KeySet, error)
}

// HTTPFetcher pulls the JWKS document from the issuer's well-known URL.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPFetcher builds a fetcher for the given auth domain.
func NewHTTPFetcher(domain string) *HTTPFetcher {
	return &HTTPFetcher{
		url:    fmt.Sprintf("https://%s/.well-known/jwks.json", domain),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads and parses the key set.
func (f *HTTPFetcher) Fetch(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read jwks: %w", err)
	}
	return ParseKeySet(data)
}

// KeyCache memoizes a fetcher in a single slot. The first caller populates
// it, later calls reuse it until Invalidate. Signing keys rotate rarely
// enough that a failed kid lookup plus an operator reload covers rotation.
type KeyCache struct {
	fetcher KeySetFetcher

	mu  sync.Mutex
	set *KeySet
}

// NewKeyCache wraps fetcher.
func NewKeyCache(fetcher KeySetFetcher) *KeyCache {
	return &KeyCache{fetcher: fetcher}
}

// Get returns the cached key set, fetching on first use.
func (c *KeyCache) Get(ctx context.Context) (*KeySet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set != nil {
		return c.set, nil
	}
	set, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.set = set
	return set, nil
}

// Invalidate drops the cached set so the next Get refetches.
func (c *KeyCache) Invalidate() {
	c.mu.Lock()
	c.set = nil
	c.mu.Unlock()
}
