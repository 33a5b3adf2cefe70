package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sleepwise/internal/apperr"
	"sleepwise/internal/supabase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingVerifier struct {
	calls int
	id    *Identity
	err   error
}

func (c *countingVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	c.calls++
	return c.id, c.err
}

func TestExtractBearer(t *testing.T) {
	tok, err := ExtractBearer("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "bearerabc", "Token abc"} {
		_, err := ExtractBearer(h)
		require.Error(t, err, "header %q", h)
		assert.Equal(t, MsgMissingToken, apperr.PublicMessage(err))
	}
}

func TestAuthenticate_MalformedHeaderSkipsVerifier(t *testing.T) {
	v := &countingVerifier{id: &Identity{ID: "u1"}}
	_, err := Authenticate(context.Background(), v, "Basic xyz")
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	assert.Equal(t, 0, v.calls)
}

func TestAuthenticate_EmptyIdentityRejected(t *testing.T) {
	v := &countingVerifier{id: &Identity{}}
	_, err := Authenticate(context.Background(), v, "Bearer t")
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	assert.Equal(t, MsgInvalidToken, apperr.PublicMessage(err))
}

func TestAuthenticate_PlainErrorBecomesAuth(t *testing.T) {
	v := &countingVerifier{err: errors.New("dial tcp: refused")}
	_, err := Authenticate(context.Background(), v, "Bearer t")
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	assert.Equal(t, 1, v.calls)
}

func TestIdentityContext(t *testing.T) {
	assert.Nil(t, IdentityFrom(context.Background()))
	ctx := WithIdentity(context.Background(), &Identity{ID: "u1"})
	assert.Equal(t, "u1", IdentityFrom(ctx).ID)
}

func TestSupabaseVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer valid" {
			_, _ = w.Write([]byte(`{"id":"u-123","email":"sam@example.com"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"bad jwt"}`))
	}))
	defer srv.Close()

	client, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "anon"}, zap.NewNop())
	require.NoError(t, err)
	v := NewSupabaseVerifier(client, zap.NewNop())

	id, err := Authenticate(context.Background(), v, "Bearer valid")
	require.NoError(t, err)
	assert.Equal(t, "u-123", id.ID)

	_, err = Authenticate(context.Background(), v, "Bearer expired")
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	assert.Equal(t, MsgInvalidToken, apperr.PublicMessage(err))
}

func signHS256(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier("top-secret")
	require.NoError(t, err)

	good := signHS256(t, "top-secret", jwt.MapClaims{
		"sub":   "u-42",
		"email": "k@example.com",
		"role":  "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	id, err := v.Verify(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, &Identity{ID: "u-42", Email: "k@example.com", Role: "authenticated"}, id)

	cases := map[string]string{
		"wrong secret": signHS256(t, "other", jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()}),
		"expired":      signHS256(t, "top-secret", jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no exp":       signHS256(t, "top-secret", jwt.MapClaims{"sub": "u"}),
		"no sub":       signHS256(t, "top-secret", jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}),
		"garbage":      "not-a-jwt",
	}
	for name, tok := range cases {
		_, err := v.Verify(context.Background(), tok)
		assert.True(t, apperr.Is(err, apperr.KindAuth), name)
	}

	_, err = NewJWTVerifier("")
	assert.Error(t, err)
}
