// Package application は応募の受付と、支払い前の応募者照会を提供する。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/admissions/internal/model"
	"github.com/hitoshi/admissions/internal/repository"
	"github.com/hitoshi/admissions/internal/security"
	"github.com/hitoshi/admissions/internal/validation"
)

// SubmitRequest は応募フォームの入力。
type SubmitRequest struct {
	FullName        string  `json:"fullName" validate:"notblank,max=200"`
	Email           string  `json:"email" validate:"required,email,max=254"`
	Instagram       *string `json:"instagram" validate:"omitempty,max=100"`
	School          *string `json:"school" validate:"omitempty,max=200"`
	ClassYear       string  `json:"classYear" validate:"class_year"`
	GPA             *string `json:"gpa" validate:"omitempty,max=20"`
	Activities      string  `json:"activities" validate:"notblank,max=5000"`
	WhatMakesUnique string  `json:"whatMakesUnique" validate:"notblank,max=5000"`
	WhyMentorship   string  `json:"whyMentorship" validate:"notblank,max=5000"`
}

// Service は応募受付のサービス層。
type Service struct {
	cohort     model.Cohort
	applicants repository.ApplicantRepository
	sanitizer  security.TextSanitizer
	now        func() time.Time
}

// NewService はServiceを生成する。
func NewService(cohort model.Cohort, applicants repository.ApplicantRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		cohort:     cohort,
		applicants: applicants,
		sanitizer:  sanitizer,
		now:        time.Now,
	}
}

// Submit は応募を検証して Applied として登録する。
// メールアドレスは小文字化し、自由記述欄はサニタイズしてから保存する。
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*model.Applicant, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.now()
	applicant := &model.Applicant{
		ID:              uuid.New().String(),
		CohortID:        s.cohort.ID,
		FullName:        s.sanitizer.Sanitize(req.FullName),
		Email:           req.Email,
		Instagram:       security.SanitizePtr(s.sanitizer, req.Instagram),
		School:          security.SanitizePtr(s.sanitizer, req.School),
		ClassYear:       req.ClassYear,
		GPA:             security.SanitizePtr(s.sanitizer, req.GPA),
		Activities:      s.sanitizer.Sanitize(req.Activities),
		WhatMakesUnique: s.sanitizer.Sanitize(req.WhatMakesUnique),
		WhyMentorship:   s.sanitizer.Sanitize(req.WhyMentorship),
		Status:          model.StatusApplied,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// サニタイズでマークアップだけの入力が空になった場合
	if applicant.FullName == "" || applicant.Activities == "" ||
		applicant.WhatMakesUnique == "" || applicant.WhyMentorship == "" {
		return nil, model.NewValidationError("required text fields cannot be empty after removing markup")
	}

	if err := s.applicants.Create(ctx, applicant); err != nil {
		return nil, fmt.Errorf("failed to create applicant: %w", err)
	}

	slog.Info("application submitted",
		slog.String("applicant_id", applicant.ID),
		slog.String("cohort_id", s.cohort.ID),
	)
	return applicant, nil
}

// LookupPayable はメールアドレスから支払い可能（Accepted）な応募者のIDを返す。
// 該当者がいない場合は空文字を返す。
func (s *Service) LookupPayable(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", model.NewValidationError("email is required")
	}

	applicant, err := s.applicants.FindAcceptedByEmail(ctx, s.cohort.ID, email)
	if err != nil {
		return "", fmt.Errorf("failed to find accepted applicant: %w", err)
	}
	if applicant == nil {
		return "", nil
	}
	return applicant.ID, nil
}
