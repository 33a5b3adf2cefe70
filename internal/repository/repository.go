package repository

import (
	"context"
	"errors"

	"sleepwise/internal/domain"
)

var (
	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 违反唯一约束（例如同一身份重复创建 profile）
	ErrDuplicate = errors.New("duplicate record")
)

// ProfilesRepository users 表访问，只做按身份的点查询
type ProfilesRepository interface {
	GetProfile(ctx context.Context, uid string) (*domain.Profile, error)
	// CreateProfile inserts p as-is; p.ID and p.UID must be set.
	CreateProfile(ctx context.Context, p *domain.Profile) error
	// UpdateProfile applies patch to the row owned by uid and returns the result.
	UpdateProfile(ctx context.Context, uid string, patch domain.ProfilePatch) (*domain.Profile, error)
}

// InsightsRepository insights 表访问
type InsightsRepository interface {
	CreateInsight(ctx context.Context, in *domain.Insight) error
	// CreateInsightIfAbsent inserts in unless a record with the same id exists.
	// Reports whether a row was written.
	CreateInsightIfAbsent(ctx context.Context, in *domain.Insight) (bool, error)
	// ListInsights returns up to limit records owned by uid with id > afterID,
	// ascending by id. An empty afterID starts from the beginning.
	ListInsights(ctx context.Context, uid, afterID string, limit int) ([]*domain.Insight, error)
}
