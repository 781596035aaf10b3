package auth

import (
	"errors"
	"time"

	"github.com/assigna-app/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token integrity failures. Callers must distinguish ErrTokenExpired
// (recoverable through a refresh) from the other two, which force
// re-authentication.
var (
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenMalformed   = errors.New("malformed token")
)

// Claims are the identity claims carried by a bearer token.
type Claims struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  types.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and decodes signed bearer tokens. It holds no
// state beyond the shared secret and the configured issuer, audience
// and lifetime.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	lifetime time.Duration
}

// NewTokenIssuer constructs a TokenIssuer. The lifetime is given in
// minutes, matching the configuration surface.
func NewTokenIssuer(secret, issuer, audience string, expireMinutes int) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		lifetime: time.Duration(expireMinutes) * time.Minute,
	}
}

// Lifetime returns the configured session lifetime.
func (t *TokenIssuer) Lifetime() time.Duration {
	return t.lifetime
}

// Issue signs a bearer token for the given identity. The role is
// normalized so that arbitrary input degrades to the member role and
// only the two valid literals ever reach a token.
func (t *TokenIssuer) Issue(name, email string, role types.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  name,
		Email: email,
		Role:  types.NormalizeRole(string(role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Decode validates the signature, issuer, audience and time bounds of
// a bearer token and returns its claims. Pure in-memory computation.
func (t *TokenIssuer) Decode(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidSignature
			}
			return t.secret, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrTokenMalformed
		default:
			return Claims{}, ErrInvalidSignature
		}
	}
	if !token.Valid {
		return Claims{}, ErrInvalidSignature
	}

	claims.Role = types.NormalizeRole(string(claims.Role))
	return claims, nil
}
