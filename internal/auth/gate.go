package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// Decision is a verifier's verdict on one request.
type Decision int

const (
	// DecisionNotApplicable means the request carries nothing this
	// verifier understands and the chain moves on.
	DecisionNotApplicable Decision = iota
	// DecisionMatched means the verifier authenticated the request.
	DecisionMatched
	// DecisionInvalid means the verifier claimed the request and the
	// credential failed. The chain stops.
	DecisionInvalid
)

// Identity is the authenticated caller.
type Identity struct {
	Provider string
	Subject  string
	Method   string
}

// Verifier authenticates one credential shape.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, r *http.Request) (Decision, *Identity, error)
}

var (
	// ErrUnauthenticated is returned when no verifier accepts the request.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrWrongProvider is returned when a valid credential belongs to a
	// provider this deployment does not serve.
	ErrWrongProvider = errors.New("credential belongs to another provider")
)

// Gate runs verifiers in order and checks the resulting identity against
// the served provider.
type Gate struct {
	verifiers []Verifier
	allowed   map[string]bool
}

// NewGate builds a gate serving provider. allowed lists additional
// identities accepted besides the provider itself, typically agency
// clients.
func NewGate(provider string, allowed []string, verifiers ...Verifier) *Gate {
	m := make(map[string]bool, len(allowed)+1)
	m[provider] = true
	for _, a := range allowed {
		m[a] = true
	}
	return &Gate{verifiers: verifiers, allowed: m}
}

// Authenticate walks the chain. The first match wins; a verifier that
// claims the request and rejects its credential is terminal.
func (g *Gate) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	for _, v := range g.verifiers {
		decision, id, err := v.Verify(ctx, r)
		switch decision {
		case DecisionMatched:
			if !g.allowed[id.Provider] {
				return nil, fmt.Errorf("%w: %s", ErrWrongProvider, id.Provider)
			}
			return id, nil
		case DecisionInvalid:
			if err == nil {
				err = ErrUnauthenticated
			}
			return nil, fmt.Errorf("%s: %w", v.Name(), err)
		}
	}
	return nil, ErrUnauthenticated
}

// APIKeyVerifier checks opaque provider keys, taken from the X-API-Key
// header or from a Bearer value shaped like one.
type APIKeyVerifier struct {
	store *KeyStore
}

// NewAPIKeyVerifier builds a verifier over store.
func NewAPIKeyVerifier(store *KeyStore) *APIKeyVerifier {
	return &APIKeyVerifier{store: store}
}

func (v *APIKeyVerifier) Name() string { return "api_key" }

func (v *APIKeyVerifier) Verify(_ context.Context, r *http.Request) (Decision, *Identity, error) {
	key := r.Header.Get("X-API-Key")
	if key == "" {
		if bearer := bearerToken(r); looksLikeAPIKey(bearer) {
			key = bearer
		}
	}
	if key == "" {
		return DecisionNotApplicable, nil, nil
	}

	cred, ok := v.store.Validate(key)
	if !ok {
		return DecisionInvalid, nil, errors.New("unknown api key")
	}
	return DecisionMatched, &Identity{
		Provider: cred.Provider,
		Subject:  cred.Preview,
		Method:   "api_key",
	}, nil
}

// JWTVerifier checks RS256 bearer tokens against the issuer's key set.
type JWTVerifier struct {
	cache    *KeyCache
	issuer   string
	audience string
}

// NewJWTVerifier builds a verifier validating issuer and audience claims
// against the given values.
func NewJWTVerifier(cache *KeyCache, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{cache: cache, issuer: issuer, audience: audience}
}

func (v *JWTVerifier) Name() string { return "jwt" }

func (v *JWTVerifier) Verify(ctx context.Context, r *http.Request) (Decision, *Identity, error) {
	raw := bearerToken(r)
	if raw == "" || looksLikeAPIKey(raw) {
		return DecisionNotApplicable, nil, nil
	}

	keys, err := v.cache.Get(ctx)
	if err != nil {
		return DecisionInvalid, nil, fmt.Errorf("load key set: %w", err)
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		key, ok := keys.Key(kid)
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	})
	if err != nil {
		return DecisionInvalid, nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return DecisionInvalid, nil, errors.New("invalid token")
	}
	if !claims.VerifyAudience(v.audience, true) {
		return DecisionInvalid, nil, errors.New("audience mismatch")
	}
	if !claims.VerifyIssuer(v.issuer, true) {
		return DecisionInvalid, nil, errors.New("issuer mismatch")
	}

	provider := claimString(claims, "provider_id", "sub", "client_id")
	if provider == "" {
		return DecisionInvalid, nil, errors.New("token carries no provider identity")
	}
	subject, _ := claims["sub"].(string)
	return DecisionMatched, &Identity{
		Provider: provider,
		Subject:  subject,
		Method:   "jwt",
	}, nil
}

// looksLikeAPIKey separates opaque keys from JWTs. Keys are short and never
// contain the JWT section separator.
func looksLikeAPIKey(token string) bool {
	return token != "" && len(token) < 100 && !strings.Contains(token, ".")
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// claimString returns the first present non-empty string claim.
func claimString(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		if v, ok := claims[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
