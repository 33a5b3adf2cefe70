package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sleepwise/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestPredict_SendsModelFields(t *testing.T) {
	url := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "Female", got["gender"])
		assert.Equal(t, 30.0, got["age"])
		assert.Equal(t, 165.0, got["heightCm"])
		assert.Equal(t, 60.0, got["weightKg"])
		assert.Equal(t, 45.0, got["activityMinutes"])
		assert.Equal(t, 7.5, got["sleepDuration"])
		assert.Nil(t, got["restingHeartrate"])
		assert.Contains(t, got, "restingHeartrate")
		assert.Equal(t, 4.0, got["stressLevel"])
		reply(`{"predictions":[7.1]}`)(w, r)
	})

	stress := 4
	req := NewRequest(
		domain.Demographics{Gender: domain.GenderFemale, Age: 30, Height: 165, Weight: 60},
		domain.HealthMetrics{SleepDuration: 7.5, PhysicalActivity: 45, StressLevel: &stress},
	)
	p, err := NewClient(url, time.Second, 1, zap.NewNop()).Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 7.1, p.SleepQuality)
	assert.Nil(t, p.DisorderLevel)
}

func TestPredict_Variants(t *testing.T) {
	url := newServer(t, reply(`{"predictions":["6.4", 1012.5]}`))

	p, err := NewClient(url, time.Second, 2, zap.NewNop()).Predict(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 6.4, p.SleepQuality)
	require.NotNil(t, p.DisorderLevel)
	assert.Equal(t, 1012.5, *p.DisorderLevel)

	single := newServer(t, reply(`{"predictions":[6.4]}`))
	_, err = NewClient(single, time.Second, 2, zap.NewNop()).Predict(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrBadResponse)

	// single 变体下第二个输出不可用时视为未知
	for _, body := range []string{
		`{"predictions":[82.5,null]}`,
		`{"predictions":[82.5,"n/a"]}`,
	} {
		url := newServer(t, reply(body))
		p, err := NewClient(url, time.Second, 1, zap.NewNop()).Predict(context.Background(), Request{})
		require.NoError(t, err, body)
		assert.Equal(t, 82.5, p.SleepQuality)
		assert.Nil(t, p.DisorderLevel, body)
	}

	optional := newServer(t, reply(`{"predictions":[82.5,"2000"]}`))
	p, err = NewClient(optional, time.Second, 1, zap.NewNop()).Predict(context.Background(), Request{})
	require.NoError(t, err)
	require.NotNil(t, p.DisorderLevel)
	assert.Equal(t, 2000.0, *p.DisorderLevel)

	// dual 变体下第二个输出仍然必须可解析
	strict := newServer(t, reply(`{"predictions":[82.5,null]}`))
	_, err = NewClient(strict, time.Second, 2, zap.NewNop()).Predict(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestPredict_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"empty body":        func(w http.ResponseWriter, r *http.Request) {},
		"malformed":         reply(`{"predictions":`),
		"empty predictions": reply(`{"predictions":[]}`),
		"no predictions":    reply(`{"result":1}`),
		"non numeric":       reply(`{"predictions":["abc"]}`),
		"nan string":        reply(`{"predictions":["NaN"]}`),
		"object element":    reply(`{"predictions":[{"v":1}]}`),
		"null element":      reply(`{"predictions":[null]}`),
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			url := newServer(t, h)
			_, err := NewClient(url, time.Second, 1, zap.NewNop()).Predict(context.Background(), Request{})
			assert.ErrorIs(t, err, ErrBadResponse)
		})
	}
}

func TestPredict_TransportErrorAndTimeout(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", time.Second, 1, zap.NewNop()).Predict(context.Background(), Request{})
	assert.Error(t, err)

	slow := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		reply(`{"predictions":[1]}`)(w, r)
	})
	_, err = NewClient(slow, 50*time.Millisecond, 1, zap.NewNop()).Predict(context.Background(), Request{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	url := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		reply(`{"status":"ok"}`)(w, r)
	})
	assert.NoError(t, NewClient(url, time.Second, 1, zap.NewNop()).Health(context.Background()))
}
