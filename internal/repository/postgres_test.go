package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"sleepwise/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var profileCols = []string{"id", "uid", "name", "gender", "age", "height", "weight"}

func TestPostgresProfiles_GetProfile(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresProfilesRepository(db)

	mock.ExpectQuery(`SELECT id::text, uid::text, name, gender, age, height, weight FROM users WHERE uid = \$1`).
		WithArgs("uid-1").
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow("p-1", "uid-1", "Ann", "Female", 30, 165.0, 60.5))

	p, err := repo.GetProfile(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.Profile{ID: "p-1", UID: "uid-1", Name: "Ann", Gender: domain.GenderFemale, Age: 30, Height: 165, Weight: 60.5}, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfiles_GetProfile_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresProfilesRepository(db)

	mock.ExpectQuery(`FROM users WHERE uid`).WithArgs("missing").WillReturnRows(sqlmock.NewRows(profileCols))

	_, err := repo.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfiles_CreateProfile_Duplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresProfilesRepository(db)

	p := &domain.Profile{ID: "p-1", UID: "uid-1", Name: "Ann", Gender: domain.GenderFemale, Age: 30, Height: 165, Weight: 60}
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("p-1", "uid-1", "Ann", "Female", 30, 165.0, 60.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	require.NoError(t, repo.CreateProfile(context.Background(), p))
	err := repo.CreateProfile(context.Background(), p)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfiles_UpdateProfile(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresProfilesRepository(db)

	weight := 58.0
	age := 31
	mock.ExpectQuery(`UPDATE users SET age = \$1, weight = \$2, updated_at = now\(\) WHERE uid = \$3 RETURNING`).
		WithArgs(31, 58.0, "uid-1").
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow("p-1", "uid-1", "Ann", "Female", 31, 165.0, 58.0))

	p, err := repo.UpdateProfile(context.Background(), "uid-1", domain.ProfilePatch{Age: &age, Weight: &weight})
	require.NoError(t, err)
	assert.Equal(t, 31, p.Age)
	assert.Equal(t, 58.0, p.Weight)

	mock.ExpectQuery(`UPDATE users SET`).WithArgs(58.0, "nobody").WillReturnRows(sqlmock.NewRows(profileCols))
	_, err = repo.UpdateProfile(context.Background(), "nobody", domain.ProfilePatch{Weight: &weight})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var insightCols = []string{"id", "uid", "date", "gender", "age", "height", "weight",
	"sleepDuration", "physicalActivity", "restingHeartrate", "dailySteps", "stressLevel",
	"sleepQuality", "disorderLevel"}

func TestPostgresInsights_ListInsights(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresInsightsRepository(db)
	at := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM insights WHERE uid = \$1 ORDER BY id ASC LIMIT \$2`).
		WithArgs("uid-1", 100).
		WillReturnRows(sqlmock.NewRows(insightCols).
			AddRow("i-1", "uid-1", at, nil, nil, nil, nil, 7.5, 30, nil, nil, nil, 6.8, nil).
			AddRow("i-2", "uid-1", at, "Male", 40, 180.0, 80.0, 6.0, 10, 62, 8000, 4, 5.5, 1020.0))

	got, err := repo.ListInsights(context.Background(), "uid-1", "", 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Gender)
	assert.Nil(t, got[0].RestingHeartrate)
	assert.Equal(t, 6.8, got[0].SleepQuality)
	assert.Equal(t, domain.GenderMale, *got[1].Gender)
	assert.Equal(t, 8000, *got[1].DailySteps)
	assert.Equal(t, 1020.0, *got[1].DisorderLevel)

	mock.ExpectQuery(`FROM insights WHERE uid = \$1 AND id > \$2 ORDER BY id ASC LIMIT \$3`).
		WithArgs("uid-1", "i-2", 100).
		WillReturnRows(sqlmock.NewRows(insightCols))
	got, err = repo.ListInsights(context.Background(), "uid-1", "i-2", 100)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsights_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresInsightsRepository(db)

	in := domain.NewInsight("i-1", "uid-1", time.Now(), domain.HealthMetrics{SleepDuration: 7, PhysicalActivity: 20}, domain.Prediction{SleepQuality: 7})

	mock.ExpectExec(`INSERT INTO insights`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.CreateInsight(context.Background(), in))

	mock.ExpectExec(`ON CONFLICT \(id\) DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 0))
	written, err := repo.CreateInsightIfAbsent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, written)

	mock.ExpectExec(`INSERT INTO insights`).WillReturnError(errors.New("connection reset"))
	assert.Error(t, repo.CreateInsight(context.Background(), in))
	assert.NoError(t, mock.ExpectationsWereMet())
}
