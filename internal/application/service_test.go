package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/admissions/internal/model"
	"github.com/hitoshi/admissions/internal/repository/repositorytest"
	"github.com/hitoshi/admissions/internal/security"
)

func strPtr(s string) *string { return &s }

func validRequest() SubmitRequest {
	return SubmitRequest{
		FullName:        "Alice Example",
		Email:           "  Alice@Example.COM ",
		Instagram:       strPtr("@alice"),
		ClassYear:       "2028",
		Activities:      "Robotics club",
		WhatMakesUnique: "I build things",
		WhyMentorship:   "To grow",
	}
}

func newTestService(t *testing.T) (*Service, *repositorytest.Store, model.Cohort) {
	t.Helper()
	store := repositorytest.NewStore()
	cohort := store.AddCohort("Test Cohort", 20)
	return NewService(cohort, store.Applicants(), security.NewTextSanitizer()), store, cohort
}

func TestSubmit_CreatesAppliedApplicant(t *testing.T) {
	svc, store, cohort := newTestService(t)

	a, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if a.Status != model.StatusApplied {
		t.Errorf("status = %s, want Applied", a.Status)
	}
	if a.Email != "alice@example.com" {
		t.Errorf("email = %q, want lower-cased and trimmed", a.Email)
	}
	if a.CohortID != cohort.ID {
		t.Errorf("cohort = %q, want %q", a.CohortID, cohort.ID)
	}
	if a.School != nil {
		t.Error("omitted optional field should stay nil")
	}
	if stored := store.Applicant(a.ID); stored == nil || stored.FullName != "Alice Example" {
		t.Errorf("stored applicant = %+v", stored)
	}
}

func TestSubmit_SanitizesFreeText(t *testing.T) {
	svc, _, _ := newTestService(t)
	req := validRequest()
	req.Activities = `<a href="javascript:alert(1)">Chess</a> &amp; debate`

	a, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if a.Activities != "Chess & debate" {
		t.Errorf("activities = %q", a.Activities)
	}
}

func TestSubmit_MarkupOnly_Rejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	req := validRequest()
	req.WhyMentorship = "<script>alert(1)</script>"

	_, err := svc.Submit(context.Background(), req)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestSubmit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(r *SubmitRequest)
		field string
	}{
		{"missing name", func(r *SubmitRequest) { r.FullName = " " }, "fullName"},
		{"bad email", func(r *SubmitRequest) { r.Email = "not-an-email" }, "email"},
		{"bad class year", func(r *SubmitRequest) { r.ClassYear = "2026" }, "classYear"},
		{"missing activities", func(r *SubmitRequest) { r.Activities = "" }, "activities"},
		{"notes too long", func(r *SubmitRequest) { r.WhatMakesUnique = strings.Repeat("x", 5001) }, "whatMakesUnique"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, cohort := newTestService(t)
			req := validRequest()
			tt.mod(&req)

			_, err := svc.Submit(context.Background(), req)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
				t.Fatalf("err = %v, want validation error", err)
			}
			if !strings.Contains(apiErr.Message, tt.field) {
				t.Errorf("message %q should mention %q", apiErr.Message, tt.field)
			}
			if n, _ := store.Applicants().ListByCohort(context.Background(), cohort.ID); len(n) != 0 {
				t.Error("invalid application must not be stored")
			}
		})
	}
}

func TestLookupPayable(t *testing.T) {
	svc, store, cohort := newTestService(t)
	accepted := store.AddApplicant(cohort.ID, "Alice", "alice@example.com", model.StatusAccepted)
	store.AddApplicant(cohort.ID, "Bob", "bob@example.com", model.StatusApplied)

	id, err := svc.LookupPayable(context.Background(), " ALICE@example.com")
	if err != nil {
		t.Fatalf("LookupPayable() error = %v", err)
	}
	if id != accepted.ID {
		t.Errorf("id = %q, want %q", id, accepted.ID)
	}

	id, err = svc.LookupPayable(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("LookupPayable() error = %v", err)
	}
	if id != "" {
		t.Errorf("non-accepted applicant should not be payable, got %q", id)
	}

	if _, err := svc.LookupPayable(context.Background(), "  "); err == nil {
		t.Error("expected validation error for empty email")
	}
}
