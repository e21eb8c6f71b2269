package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/letscodeshivansh/taskchat/internal/domain"
)

// SessionResolver turns a session token into a verified identity. An empty
// or invalid token resolves to ErrUnauthenticated; callers decide whether the
// connection is dropped or kept for presence counting only.
type SessionResolver interface {
	Resolve(token string) (string, error)
}

// Claims represents the session token claims. The identity travels in the
// subject; role is carried for the outer HTTP surface and unused here.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// JWTResolver validates HS256 session tokens issued by the login layer.
type JWTResolver struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

func NewJWTResolver(secret, issuer string) *JWTResolver {
	return &JWTResolver{
		secret:   []byte(secret),
		issuer:   issuer,
		lifetime: time.Hour,
	}
}

func (r *JWTResolver) Resolve(token string) (string, error) {
	if token == "" {
		return "", domain.ErrUnauthenticated
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrUnauthenticated
		}
		return r.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrUnauthenticated
		}
		return "", domain.ErrUnauthenticated
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", domain.ErrUnauthenticated
	}

	return claims.Subject, nil
}

// Sign issues a session token for the given identity. The login surface owns
// token issuance in production; this mirrors it for tooling and tests.
func (r *JWTResolver) Sign(identity, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.issuer,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.lifetime)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
