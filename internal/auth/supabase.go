package auth

import (
	"context"

	"sleepwise/internal/apperr"
	"sleepwise/internal/supabase"

	"go.uber.org/zap"
)

// SupabaseVerifier 每个请求调用一次 GoTrue /auth/v1/user，不做缓存
type SupabaseVerifier struct {
	client *supabase.Client
	logger *zap.Logger
}

func NewSupabaseVerifier(client *supabase.Client, logger *zap.Logger) *SupabaseVerifier {
	return &SupabaseVerifier{client: client, logger: logger}
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	user, err := v.client.Auth().GetUser(ctx, token)
	if err != nil {
		v.logger.Debug("token rejected by auth provider", zap.Error(err))
		return nil, apperr.Auth(MsgInvalidToken, err)
	}
	return &Identity{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

var _ Verifier = (*SupabaseVerifier)(nil)
