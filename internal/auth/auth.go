// Package auth verifies Supabase access tokens and carries the caller's
// identity through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrIdentityMissing means the request carried no usable identity.
	ErrIdentityMissing = errors.New("identity missing")
	// ErrInvalidToken means a token was present but did not verify.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// DefaultAudience is the audience Supabase puts on user sessions.
const DefaultAudience = "authenticated"

// Claims are the fields of a Supabase access token that deepread reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

// Verifier checks HS256 tokens signed with the project's JWT secret.
type Verifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

// NewVerifier returns a verifier for secret. An empty audience disables
// the audience check.
func NewVerifier(secret, audience string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Verifier{secret: []byte(secret), audience: audience, leeway: 30 * time.Second}, nil
}

// Verify parses token and returns the identity in its subject.
func (v *Verifier) Verify(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrIdentityMissing
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if uuid.Validate(claims.Subject) != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrIdentityMissing)
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Sign issues a token for userID. Used by tests and the dev CLI; real
// tokens come from Supabase.
func (v *Verifier) Sign(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  DefaultAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type contextKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by the middleware.
func FromContext(ctx context.Context) (*Identity, error) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	if !ok || id == nil || id.UserID == "" {
		return nil, ErrIdentityMissing
	}
	return id, nil
}

// Require rejects requests without a valid bearer token.
func (v *Verifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := v.Verify(BearerToken(r))
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			msg := `{"error":"invalid or expired token"}`
			if errors.Is(err, ErrIdentityMissing) {
				msg = `{"error":"missing authorization"}`
			}
			w.Write([]byte(msg))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// BearerToken returns the token from the Authorization header, if any.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
