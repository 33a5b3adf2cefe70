package supabase

import (
	"context"
	"errors"
	"fmt"
)

// AuthClient GoTrue 接口
type AuthClient struct {
	client *Client
}

// User GoTrue /auth/v1/user 的返回
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// GetUser exchanges an access token for the user it was issued to.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := a.client.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("supabase get user: %w", err)
	}
	if resp.IsError() {
		return nil, decodeError(resp)
	}
	var user User
	if err := decodeBody(resp, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("supabase: token resolved to an empty user")
	}
	return &user, nil
}
