package auth

import (
	"context"
	"errors"
	"fmt"

	"sleepwise/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
)

type supabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier checks Supabase-issued access tokens locally with the project's
// HS256 secret. Used when GoTrue is not reachable from the service.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims := &supabaseClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperr.Auth(MsgInvalidToken, fmt.Errorf("jwt parse: %w", err))
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, apperr.Auth(MsgInvalidToken, errors.New("jwt has no subject"))
	}
	return &Identity{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

var _ Verifier = (*JWTVerifier)(nil)
