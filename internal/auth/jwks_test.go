package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jwksFor serializes pub as a one-key JWKS document.
func jwksFor(t *testing.T, kid string, pub *rsa.PublicKey) []byte {
	t.Helper()
	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestParseKeySet(t *testing.T) {
	priv := testRSAKey(t)
	ks, err := ParseKeySet(jwksFor(t, "kid-1", &priv.PublicKey))
	require.NoError(t, err)

	pub, ok := ks.Key("kid-1")
	require.True(t, ok)
	assert.Equal(t, 0, priv.PublicKey.N.Cmp(pub.N))
	assert.Equal(t, priv.PublicKey.E, pub.E)

	_, ok = ks.Key("kid-2")
	assert.False(t, ok)
}

func TestParseKeySetRejectsEmptyDocument(t *testing.T) {
	_, err := ParseKeySet([]byte(`{"keys":[{"kty":"EC","kid":"ec-1"}]}`))
	assert.Error(t, err)

	_, err = ParseKeySet([]byte(`not json`))
	assert.Error(t, err)
}

type countingFetcher struct {
	set   *KeySet
	err   error
	calls int
}

func (f *countingFetcher) Fetch(context.Context) (*KeySet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.set, nil
}

func TestKeyCacheFetchesOnce(t *testing.T) {
	priv := testRSAKey(t)
	set, err := ParseKeySet(jwksFor(t, "kid-1", &priv.PublicKey))
	require.NoError(t, err)

	fetcher := &countingFetcher{set: set}
	cache := NewKeyCache(fetcher)

	for i := 0; i < 3; i++ {
		got, err := cache.Get(context.Background())
		require.NoError(t, err)
		assert.Same(t, set, got)
	}
	assert.Equal(t, 1, fetcher.calls)
}

func TestKeyCacheDoesNotCacheFailures(t *testing.T) {
	priv := testRSAKey(t)
	set, err := ParseKeySet(jwksFor(t, "kid-1", &priv.PublicKey))
	require.NoError(t, err)

	fetcher := &countingFetcher{err: errors.New("upstream down")}
	cache := NewKeyCache(fetcher)

	_, err = cache.Get(context.Background())
	require.Error(t, err)

	fetcher.err = nil
	fetcher.set = set
	got, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, set, got)
	assert.Equal(t, 2, fetcher.calls)
}

func TestKeyCacheInvalidate(t *testing.T) {
	priv := testRSAKey(t)
	set, err := ParseKeySet(jwksFor(t, "kid-1", &priv.PublicKey))
	require.NoError(t, err)

	fetcher := &countingFetcher{set: set}
	cache := NewKeyCache(fetcher)

	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestHTTPFetcher(t *testing.T) {
	priv := testRSAKey(t)
	doc := jwksFor(t, "kid-http", &priv.PublicKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc)
	}))
	defer srv.Close()

	f := &HTTPFetcher{url: srv.URL, client: srv.Client()}
	set, err := f.Fetch(context.Background())
	require.NoError(t, err)
	_, ok := set.Key("kid-http")
	assert.True(t, ok)
}

func TestHTTPFetcherRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := &HTTPFetcher{url: srv.URL, client: srv.Client()}
	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}
