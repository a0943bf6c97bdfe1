package auth

import (
	"errors"
	"fmt"
	"time"

	"bookclub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Verify for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

type jwtClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// JWTAuthority issues and verifies HS256 access tokens. The subject is the user ID and the
// roles claim carries the role codes used for authorization.
type JWTAuthority struct {
	secret []byte
	now    func() time.Time
}

// NewJWTAuthority returns a JWTAuthority signing with secret.
func NewJWTAuthority(secret string) *JWTAuthority {
	return &JWTAuthority{secret: []byte(secret), now: time.Now}
}

var (
	_ domain.TokenIssuer   = (*JWTAuthority)(nil)
	_ domain.TokenVerifier = (*JWTAuthority)(nil)
)

func (a *JWTAuthority) Issue(userID, email string, roles []string, expiry time.Duration) (string, error) {
	now := a.now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email: email,
		Roles: roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (a *JWTAuthority) Verify(token string) (domain.Actor, error) {
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return domain.Actor{}, ErrInvalidToken
	}
	return domain.Actor{ID: claims.Subject, Roles: claims.Roles}, nil
}
