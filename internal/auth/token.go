package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthorized = errors.New("auth: missing or invalid token")
	ErrForbidden    = errors.New("auth: insufficient capability")
)

const (
	DefaultCapability = "manage_options"
	// CookieName holds the token for browser sessions on the admin page.
	CookieName = "metaviewer_token"
	// NonceParam carries the token for picker requests that cannot set headers.
	NonceParam = "nonce"
)

// Claims are the JWT claims the viewer understands.
type Claims struct {
	Capabilities []string `json:"caps"`
	jwt.RegisteredClaims
}

func (c *Claims) Can(capability string) bool {
	return slices.Contains(c.Capabilities, capability)
}

// Authenticator issues and checks HS256 tokens against one required capability.
type Authenticator struct {
	secret     []byte
	capability string
	issuer     string
}

func NewAuthenticator(secret, capability, issuer string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if capability == "" {
		capability = DefaultCapability
	}
	return &Authenticator{secret: []byte(secret), capability: capability, issuer: issuer}, nil
}

func (a *Authenticator) Capability() string { return a.capability }

// Issue signs a token for subject holding caps, valid for ttl.
func (a *Authenticator) Issue(subject string, caps []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Capabilities: caps,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("auth: Issue failed: %w", err)
	}
	return signed, nil
}

// Check validates tokenString and the required capability. It returns
// ErrUnauthorized for a missing or bad token and ErrForbidden for a valid token
// lacking the capability.
func (a *Authenticator) Check(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrUnauthorized
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, ErrUnauthorized
	}
	if !claims.Can(a.capability) {
		return claims, ErrForbidden
	}
	return claims, nil
}

// TokenFromRequest finds the token in the Authorization header, the nonce
// parameter or the session cookie, in that order.
func TokenFromRequest(r *http.Request) string {
	if bearer := r.Header.Get("Authorization"); len(bearer) > 7 && strings.EqualFold(bearer[:7], "bearer ") {
		return strings.TrimSpace(bearer[7:])
	}
	if nonce := r.FormValue(NonceParam); nonce != "" {
		return nonce
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

type contextKey string

const claimsKey contextKey = "claims"

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// Middleware rejects requests without a valid, capable token before they reach
// next. deny writes the rejection; it receives ErrUnauthorized or ErrForbidden.
func (a *Authenticator) Middleware(deny func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.Check(TokenFromRequest(r))
			if err != nil {
				deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
