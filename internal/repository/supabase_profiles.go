package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sleepwise/internal/domain"
	"sleepwise/internal/supabase"
)

const tableUsers = "users"

type profileRow struct {
	ID     string  `json:"id,omitempty"`
	UID    string  `json:"uid"`
	Name   string  `json:"name"`
	Gender string  `json:"gender"`
	Age    int     `json:"age"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

func (r profileRow) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:     r.ID,
		UID:    r.UID,
		Name:   r.Name,
		Gender: domain.Gender(r.Gender),
		Age:    r.Age,
		Height: r.Height,
		Weight: r.Weight,
	}
}

// SupabaseProfilesRepository 通过 PostgREST 访问 users 表
type SupabaseProfilesRepository struct {
	client *supabase.Client
}

func NewSupabaseProfilesRepository(client *supabase.Client) *SupabaseProfilesRepository {
	return &SupabaseProfilesRepository{client: client}
}

var _ ProfilesRepository = (*SupabaseProfilesRepository)(nil)

func (r *SupabaseProfilesRepository) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	var row profileRow
	err := r.client.From(tableUsers).Select("*").Eq("uid", uid).Single().Execute(ctx, &row)
	if err != nil {
		if errors.Is(err, supabase.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return row.toDomain(), nil
}

func (r *SupabaseProfilesRepository) CreateProfile(ctx context.Context, p *domain.Profile) error {
	row := profileRow{
		ID:     p.ID,
		UID:    p.UID,
		Name:   p.Name,
		Gender: string(p.Gender),
		Age:    p.Age,
		Height: p.Height,
		Weight: p.Weight,
	}
	if err := r.client.From(tableUsers).Insert(ctx, row, nil); err != nil {
		if supabase.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *SupabaseProfilesRepository) UpdateProfile(ctx context.Context, uid string, patch domain.ProfilePatch) (*domain.Profile, error) {
	body := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Name != nil {
		body["name"] = *patch.Name
	}
	if patch.Gender != nil {
		body["gender"] = string(*patch.Gender)
	}
	if patch.Age != nil {
		body["age"] = *patch.Age
	}
	if patch.Height != nil {
		body["height"] = *patch.Height
	}
	if patch.Weight != nil {
		body["weight"] = *patch.Weight
	}

	var rows []profileRow
	if err := r.client.From(tableUsers).Eq("uid", uid).Update(ctx, body, &rows); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toDomain(), nil
}
