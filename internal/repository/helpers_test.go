package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

const (
	testCohortID    = "7f1c2f8e-3c7a-4c8e-9a51-0d7c1b3f9a10"
	testApplicantID = "0b6f1f4c-2d0e-4a59-8a0c-5a9f2f7e1c22"
	testAccountID   = "c3d5a0e2-8f1b-4c3e-b6a2-9e4d7f1a2b33"
)

var testTime = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var applicantRowColumns = []string{
	"id", "cohort_id", "full_name", "email", "instagram", "school", "class_year", "gpa",
	"activities", "what_makes_unique", "why_mentorship", "status", "score", "admin_notes",
	"created_at", "updated_at",
}

func applicantRows(id, status string) *sqlmock.Rows {
	return sqlmock.NewRows(applicantRowColumns).AddRow(
		id, testCohortID, "Asha Rao", "asha@example.com", nil, "Lincoln High", "2027", nil,
		"debate", "curiosity", "guidance", status, nil, nil,
		testTime, testTime,
	)
}

var accountRowColumns = []string{"id", "email", "password_hash", "name", "role", "applicant_id", "created_at"}
