package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/admissions/internal/model"
)

// PostgresCohortRepo はPostgreSQLを使用したコホートリポジトリ。
type PostgresCohortRepo struct {
	db *sql.DB
}

// NewPostgresCohortRepo はPostgresCohortRepoを生成する。
func NewPostgresCohortRepo(db *sql.DB) *PostgresCohortRepo {
	return &PostgresCohortRepo{db: db}
}

// EnsureByName は名前でコホートを取得し、存在しなければ作成する。
// 既存の場合は定員を maxSeats に更新する。
func (r *PostgresCohortRepo) EnsureByName(ctx context.Context, name string, maxSeats int) (*model.Cohort, error) {
	c := &model.Cohort{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cohorts (id, name, max_seats)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET max_seats = EXCLUDED.max_seats, updated_at = now()
		 RETURNING id, name, max_seats, created_at, updated_at`,
		uuid.New().String(), name, maxSeats,
	).Scan(&c.ID, &c.Name, &c.MaxSeats, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure cohort: %w", err)
	}
	return c, nil
}

// compile-time interface check
var _ CohortRepository = (*PostgresCohortRepo)(nil)
