package repository

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/admissions/internal/model"
)

// 再試行で解消しうるPostgreSQLのSQLSTATE。
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateQueryCanceled        = "57014"
)

// IsTransient はロック待ちのタイムアウトやデッドロックなど、
// 同じ操作を再試行すれば成功しうるデータベースエラーかどうかを返す。
func IsTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable, sqlStateQueryCanceled:
		return true
	default:
		return false
	}
}

// isUUID はidがUUIDとして解釈できるかを返す。
// UUIDでないIDはどの行にも一致しないため、クエリを発行せずに未検出として扱う。
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// rowScanner は *sql.Row と *sql.Rows の共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// applicantColumns はapplicantsテーブルのSELECT列。scanApplicantと順序を合わせる。
const applicantColumns = `id, cohort_id, full_name, email, instagram, school, class_year, gpa,
		        activities, what_makes_unique, why_mentorship, status, score, admin_notes,
		        created_at, updated_at`

func scanApplicant(s rowScanner) (*model.Applicant, error) {
	a := &model.Applicant{}
	var instagram, school, gpa, adminNotes sql.NullString
	var score sql.NullInt64
	var status string

	if err := s.Scan(
		&a.ID, &a.CohortID, &a.FullName, &a.Email, &instagram, &school, &a.ClassYear, &gpa,
		&a.Activities, &a.WhatMakesUnique, &a.WhyMentorship, &status, &score, &adminNotes,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	a.Status = model.Status(status)
	a.Instagram = nullStringPtr(instagram)
	a.School = nullStringPtr(school)
	a.GPA = nullStringPtr(gpa)
	a.AdminNotes = nullStringPtr(adminNotes)
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	return a, nil
}

const accountColumns = `id, email, password_hash, name, role, applicant_id, created_at`

func scanAccount(s rowScanner) (*model.Account, error) {
	a := &model.Account{}
	var role string
	var applicantID sql.NullString

	if err := s.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &role, &applicantID, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = model.Role(role)
	a.ApplicantID = nullStringPtr(applicantID)
	return a, nil
}

// nullStringPtr はsql.NullStringを*stringに変換する。
func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// ptrToNullString は*stringをsql.NullStringに変換する。
func ptrToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// ptrToNullInt64 は*intをsql.NullInt64に変換する。
func ptrToNullInt64(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
