package repository

import (
	"context"
	"database/sql"
	"fmt"

	"sleepwise/internal/domain"
)

// PostgresInsightsRepository insights 表的 PostgreSQL 实现
type PostgresInsightsRepository struct {
	db *sql.DB
}

func NewPostgresInsightsRepository(db *sql.DB) *PostgresInsightsRepository {
	return &PostgresInsightsRepository{db: db}
}

var _ InsightsRepository = (*PostgresInsightsRepository)(nil)

const insightColumns = `id::text, uid::text, date, gender, age, height, weight,
	"sleepDuration", "physicalActivity", "restingHeartrate", "dailySteps", "stressLevel",
	"sleepQuality", "disorderLevel"`

const insertInsight = `
	INSERT INTO insights (id, uid, date, gender, age, height, weight,
		"sleepDuration", "physicalActivity", "restingHeartrate", "dailySteps", "stressLevel",
		"sleepQuality", "disorderLevel")
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

func insightArgs(in *domain.Insight) []any {
	var gender any
	if in.Gender != nil {
		gender = string(*in.Gender)
	}
	return []any{
		in.ID, in.UID, in.Date, gender, in.Age, in.Height, in.Weight,
		in.SleepDuration, in.PhysicalActivity, in.RestingHeartrate, in.DailySteps, in.StressLevel,
		in.SleepQuality, in.DisorderLevel,
	}
}

func (r *PostgresInsightsRepository) CreateInsight(ctx context.Context, in *domain.Insight) error {
	if _, err := r.db.ExecContext(ctx, insertInsight, insightArgs(in)...); err != nil {
		return fmt.Errorf("failed to create insight: %w", err)
	}
	return nil
}

func (r *PostgresInsightsRepository) CreateInsightIfAbsent(ctx context.Context, in *domain.Insight) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertInsight+` ON CONFLICT (id) DO NOTHING`, insightArgs(in)...)
	if err != nil {
		return false, fmt.Errorf("failed to create insight: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresInsightsRepository) ListInsights(ctx context.Context, uid, afterID string, limit int) ([]*domain.Insight, error) {
	var rows *sql.Rows
	var err error
	if afterID == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+insightColumns+` FROM insights WHERE uid = $1 ORDER BY id ASC LIMIT $2`,
			uid, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+insightColumns+` FROM insights WHERE uid = $1 AND id > $2 ORDER BY id ASC LIMIT $3`,
			uid, afterID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Insight, 0, limit)
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insights: %w", err)
	}
	return out, nil
}

func scanInsight(rows *sql.Rows) (*domain.Insight, error) {
	var in domain.Insight
	var gender sql.NullString
	var age, restingHR, steps, stress sql.NullInt64
	var height, weight, disorder sql.NullFloat64
	if err := rows.Scan(
		&in.ID, &in.UID, &in.Date, &gender, &age, &height, &weight,
		&in.SleepDuration, &in.PhysicalActivity, &restingHR, &steps, &stress,
		&in.SleepQuality, &disorder,
	); err != nil {
		return nil, err
	}
	in.Date = in.Date.UTC()
	if gender.Valid {
		g := domain.Gender(gender.String)
		in.Gender = &g
	}
	in.Age = nullInt(age)
	in.Height = nullFloat(height)
	in.Weight = nullFloat(weight)
	in.RestingHeartrate = nullInt(restingHR)
	in.DailySteps = nullInt(steps)
	in.StressLevel = nullInt(stress)
	in.DisorderLevel = nullFloat(disorder)
	return &in, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
