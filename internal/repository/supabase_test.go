package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sleepwise/internal/domain"
	"sleepwise/internal/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSupabase(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "service"}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestSupabaseProfiles_Get(t *testing.T) {
	c := newSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/users", r.URL.Path)
		if r.URL.Query().Get("uid") == "eq.uid-1" {
			_, _ = w.Write([]byte(`{"id":"p-1","uid":"uid-1","name":"Ann","gender":"Female","age":30,"height":165,"weight":60,"created_at":"2024-01-01T00:00:00Z"}`))
			return
		}
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","message":"no rows"}`))
	})
	repo := NewSupabaseProfilesRepository(c)

	p, err := repo.GetProfile(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, domain.GenderFemale, p.Gender)

	_, err = repo.GetProfile(context.Background(), "uid-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabaseProfiles_CreateDuplicate(t *testing.T) {
	c := newSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		var row map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.Equal(t, "uid-1", row["uid"])
		assert.Equal(t, "p-1", row["id"])
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key"}`))
	})
	repo := NewSupabaseProfilesRepository(c)

	err := repo.CreateProfile(context.Background(), &domain.Profile{ID: "p-1", UID: "uid-1", Name: "A", Gender: domain.GenderMale, Age: 20, Height: 1, Weight: 1})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestSupabaseProfiles_Update(t *testing.T) {
	c := newSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Bo", body["name"])
		assert.NotContains(t, body, "age")
		assert.Contains(t, body, "updated_at")
		if r.URL.Query().Get("uid") == "eq.uid-1" {
			_, _ = w.Write([]byte(`[{"id":"p-1","uid":"uid-1","name":"Bo","gender":"Male","age":20,"height":170,"weight":70}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	repo := NewSupabaseProfilesRepository(c)

	name := "Bo"
	p, err := repo.UpdateProfile(context.Background(), "uid-1", domain.ProfilePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Bo", p.Name)

	_, err = repo.UpdateProfile(context.Background(), "uid-9", domain.ProfilePatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabaseInsights_ListAndCreate(t *testing.T) {
	var inserted map[string]any
	c := newSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/insights", r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			var rows []map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
			inserted = rows[0]
			_, _ = w.Write([]byte(`[]`))
		case http.MethodGet:
			q := r.URL.Query()
			assert.Equal(t, "eq.uid-1", q.Get("uid"))
			assert.Equal(t, "gt.i-1", q.Get("id"))
			assert.Equal(t, "id.asc", q.Get("order"))
			assert.Equal(t, "100", q.Get("limit"))
			_, _ = w.Write([]byte(`[{"id":"i-2","uid":"uid-1","date":"2024-03-01T07:00:00+00:00","gender":null,
				"sleepDuration":7,"physicalActivity":30,"restingHeartrate":null,"dailySteps":5000,"stressLevel":3,
				"sleepQuality":6.5,"disorderLevel":null}]`))
		}
	})
	repo := NewSupabaseInsightsRepository(c)

	got, err := repo.ListInsights(context.Background(), "uid-1", "i-1", 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "i-2", got[0].ID)
	assert.Equal(t, 5000, *got[0].DailySteps)
	assert.Nil(t, got[0].DisorderLevel)
	assert.Equal(t, time.UTC, got[0].Date.Location())

	in := domain.NewInsight("i-3", "uid-1", time.Now(), domain.HealthMetrics{SleepDuration: 8, PhysicalActivity: 5}, domain.Prediction{SleepQuality: 7.2})
	written, err := repo.CreateInsightIfAbsent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, "i-3", inserted["id"])
	assert.Equal(t, 7.2, inserted["sleepQuality"])
	assert.Contains(t, inserted, "physicalActivity")
	assert.NotContains(t, inserted, "disorder")
}
