package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/admissions/internal/model"
)

// PostgresApplicantRepo はPostgreSQLを使用した応募者リポジトリ。
type PostgresApplicantRepo struct {
	db *sql.DB
}

// NewPostgresApplicantRepo はPostgresApplicantRepoを生成する。
func NewPostgresApplicantRepo(db *sql.DB) *PostgresApplicantRepo {
	return &PostgresApplicantRepo{db: db}
}

// FindByID は指定IDの応募者を取得する。見つからない場合はnilを返す。
func (r *PostgresApplicantRepo) FindByID(ctx context.Context, id string) (*model.Applicant, error) {
	if !isUUID(id) {
		return nil, nil
	}

	a, err := scanApplicant(r.db.QueryRowContext(ctx,
		`SELECT `+applicantColumns+` FROM applicants WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find applicant by ID: %w", err)
	}
	return a, nil
}

// FindAcceptedByEmail はコホート内でAcceptedの応募者をメールアドレスで検索する。
// 同じメールアドレスで複数ある場合は最新の応募を返す。
func (r *PostgresApplicantRepo) FindAcceptedByEmail(ctx context.Context, cohortID, email string) (*model.Applicant, error) {
	a, err := scanApplicant(r.db.QueryRowContext(ctx,
		`SELECT `+applicantColumns+`
		 FROM applicants
		 WHERE cohort_id = $1 AND email = $2 AND status = $3
		 ORDER BY created_at DESC
		 LIMIT 1`,
		cohortID, email, string(model.StatusAccepted),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find accepted applicant by email: %w", err)
	}
	return a, nil
}

// Create は応募者を作成する。
func (r *PostgresApplicantRepo) Create(ctx context.Context, a *model.Applicant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO applicants (id, cohort_id, full_name, email, instagram, school, class_year, gpa,
		                         activities, what_makes_unique, why_mentorship, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.CohortID, a.FullName, a.Email,
		ptrToNullString(a.Instagram), ptrToNullString(a.School), a.ClassYear, ptrToNullString(a.GPA),
		a.Activities, a.WhatMakesUnique, a.WhyMentorship, string(a.Status),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create applicant: %w", err)
	}
	return nil
}

// ListByCohort はコホートの応募者を作成日時の降順で返す。
func (r *PostgresApplicantRepo) ListByCohort(ctx context.Context, cohortID string) ([]*model.Applicant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicantColumns+`
		 FROM applicants
		 WHERE cohort_id = $1
		 ORDER BY created_at DESC`,
		cohortID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	defer rows.Close()

	applicants := []*model.Applicant{}
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applicant: %w", err)
		}
		applicants = append(applicants, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applicants: %w", err)
	}
	return applicants, nil
}

// CountSeats はコホートの座席保有者数とPaid/Active数を返す。
func (r *PostgresApplicantRepo) CountSeats(ctx context.Context, cohortID string) (int, int, error) {
	var seatHolders, paidOrActive int
	err := r.db.QueryRowContext(ctx,
		`SELECT
		     count(*) FILTER (WHERE status IN ('Accepted', 'Paid', 'Active')),
		     count(*) FILTER (WHERE status IN ('Paid', 'Active'))
		 FROM applicants
		 WHERE cohort_id = $1`,
		cohortID,
	).Scan(&seatHolders, &paidOrActive)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count seats: %w", err)
	}
	return seatHolders, paidOrActive, nil
}

// compile-time interface check
var _ ApplicantRepository = (*PostgresApplicantRepo)(nil)
