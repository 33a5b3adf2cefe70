package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sleepwise/internal/domain"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// PostgresProfilesRepository users 表的 PostgreSQL 实现
type PostgresProfilesRepository struct {
	db *sql.DB
}

func NewPostgresProfilesRepository(db *sql.DB) *PostgresProfilesRepository {
	return &PostgresProfilesRepository{db: db}
}

var _ ProfilesRepository = (*PostgresProfilesRepository)(nil)

const profileColumns = `id::text, uid::text, name, gender, age, height, weight`

func scanProfile(row interface{ Scan(...any) error }) (*domain.Profile, error) {
	var p domain.Profile
	var gender string
	if err := row.Scan(&p.ID, &p.UID, &p.Name, &gender, &p.Age, &p.Height, &p.Weight); err != nil {
		return nil, err
	}
	p.Gender = domain.Gender(gender)
	return &p, nil
}

func (r *PostgresProfilesRepository) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE uid = $1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (r *PostgresProfilesRepository) CreateProfile(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO users (id, uid, name, gender, age, height, weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.UID, p.Name, string(p.Gender), p.Age, p.Height, p.Weight)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *PostgresProfilesRepository) UpdateProfile(ctx context.Context, uid string, patch domain.ProfilePatch) (*domain.Profile, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Gender != nil {
		add("gender", string(*patch.Gender))
	}
	if patch.Age != nil {
		add("age", *patch.Age)
	}
	if patch.Height != nil {
		add("height", *patch.Height)
	}
	if patch.Weight != nil {
		add("weight", *patch.Weight)
	}
	if len(sets) == 0 {
		return nil, errors.New("empty profile patch")
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, uid)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE uid = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), profileColumns)
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}
