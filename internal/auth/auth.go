// Package auth resolves bearer tokens to caller identities.
package auth

import (
	"context"
	"strings"

	"sleepwise/internal/apperr"
)

const (
	MsgMissingToken = "Missing or invalid auth header"
	MsgInvalidToken = "Invalid or expired token"
)

// Identity 已认证的调用者
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Verifier exchanges a bearer token for an identity. Implementations must
// return an auth-kind *apperr.Error on any failure.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// ExtractBearer parses an Authorization header value of the form "Bearer <token>".
func ExtractBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" {
		return "", apperr.Auth(MsgMissingToken, nil)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.Auth(MsgMissingToken, nil)
	}
	return token, nil
}

// Authenticate 解析 header 并校验 token；header 不合法时不发起远程调用
func Authenticate(ctx context.Context, v Verifier, header string) (*Identity, error) {
	token, err := ExtractBearer(header)
	if err != nil {
		return nil, err
	}
	id, err := v.Verify(ctx, token)
	if err != nil {
		if apperr.Is(err, apperr.KindAuth) {
			return nil, err
		}
		return nil, apperr.Auth(MsgInvalidToken, err)
	}
	if id == nil || id.ID == "" {
		return nil, apperr.Auth(MsgInvalidToken, nil)
	}
	return id, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom returns the identity stored by the auth middleware, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
