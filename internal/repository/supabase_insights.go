package repository

import (
	"context"
	"fmt"
	"time"

	"sleepwise/internal/domain"
	"sleepwise/internal/supabase"
)

const tableInsights = "insights"

// insightRow JSON 字段名即 insights 表列名
type insightRow struct {
	ID               string         `json:"id"`
	UID              string         `json:"uid"`
	Date             time.Time      `json:"date"`
	Gender           *domain.Gender `json:"gender"`
	Age              *int           `json:"age"`
	Height           *float64       `json:"height"`
	Weight           *float64       `json:"weight"`
	SleepDuration    float64        `json:"sleepDuration"`
	PhysicalActivity int            `json:"physicalActivity"`
	RestingHeartrate *int           `json:"restingHeartrate"`
	DailySteps       *int           `json:"dailySteps"`
	StressLevel      *int           `json:"stressLevel"`
	SleepQuality     float64        `json:"sleepQuality"`
	DisorderLevel    *float64       `json:"disorderLevel"`
}

func newInsightRow(in *domain.Insight) insightRow {
	return insightRow{
		ID:               in.ID,
		UID:              in.UID,
		Date:             in.Date,
		Gender:           in.Gender,
		Age:              in.Age,
		Height:           in.Height,
		Weight:           in.Weight,
		SleepDuration:    in.SleepDuration,
		PhysicalActivity: in.PhysicalActivity,
		RestingHeartrate: in.RestingHeartrate,
		DailySteps:       in.DailySteps,
		StressLevel:      in.StressLevel,
		SleepQuality:     in.SleepQuality,
		DisorderLevel:    in.DisorderLevel,
	}
}

func (r insightRow) toDomain() *domain.Insight {
	return &domain.Insight{
		ID:               r.ID,
		UID:              r.UID,
		Date:             r.Date.UTC(),
		Gender:           r.Gender,
		Age:              r.Age,
		Height:           r.Height,
		Weight:           r.Weight,
		SleepDuration:    r.SleepDuration,
		PhysicalActivity: r.PhysicalActivity,
		RestingHeartrate: r.RestingHeartrate,
		DailySteps:       r.DailySteps,
		StressLevel:      r.StressLevel,
		SleepQuality:     r.SleepQuality,
		DisorderLevel:    r.DisorderLevel,
	}
}

// SupabaseInsightsRepository 通过 PostgREST 访问 insights 表
type SupabaseInsightsRepository struct {
	client *supabase.Client
}

func NewSupabaseInsightsRepository(client *supabase.Client) *SupabaseInsightsRepository {
	return &SupabaseInsightsRepository{client: client}
}

var _ InsightsRepository = (*SupabaseInsightsRepository)(nil)

func (r *SupabaseInsightsRepository) CreateInsight(ctx context.Context, in *domain.Insight) error {
	if err := r.client.From(tableInsights).Insert(ctx, newInsightRow(in), nil); err != nil {
		return fmt.Errorf("failed to create insight: %w", err)
	}
	return nil
}

func (r *SupabaseInsightsRepository) CreateInsightIfAbsent(ctx context.Context, in *domain.Insight) (bool, error) {
	var written []insightRow
	err := r.client.From(tableInsights).InsertIgnoreDuplicates(ctx, []insightRow{newInsightRow(in)}, &written)
	if err != nil {
		return false, fmt.Errorf("failed to create insight: %w", err)
	}
	return len(written) > 0, nil
}

func (r *SupabaseInsightsRepository) ListInsights(ctx context.Context, uid, afterID string, limit int) ([]*domain.Insight, error) {
	q := r.client.From(tableInsights).Select("*").Eq("uid", uid)
	if afterID != "" {
		q = q.Gt("id", afterID)
	}
	var rows []insightRow
	if err := q.Order("id", true).Limit(limit).Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	out := make([]*domain.Insight, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
