// Package admission は定員付きコホートの選考ステータス遷移を管理する。
//
// Service.RequestTransition は遷移表と定員を同じ座席ロックの内側で検証してから書き込むため、
// 並行する管理者操作や支払い確定があっても座席保有者数が定員を超えることはない。
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/admissions/internal/metrics"
	"github.com/hitoshi/admissions/internal/model"
	"github.com/hitoshi/admissions/internal/repository"
	"github.com/hitoshi/admissions/internal/security"
)

// 遷移結果のメトリクスラベル。
const (
	outcomeCommitted        = "committed"
	outcomeUnchanged        = "unchanged"
	outcomeNotFound         = "not_found"
	outcomeIllegal          = "illegal_transition"
	outcomeCapacityExceeded = "capacity_exceeded"
	outcomeError            = "error"
)

// TransitionRequest は管理者による応募者の編集要求。
// nilのフィールドは変更しない。
type TransitionRequest struct {
	Status     *model.Status
	Score      *int
	AdminNotes *string
}

// Listing は応募者一覧と充足状況。
type Listing struct {
	Applicants []*model.Applicant
	Fill       model.CohortFill
}

// Service は選考ステータス遷移のサービス層。
type Service struct {
	cohort     model.Cohort
	applicants repository.ApplicantRepository
	locker     repository.SeatLocker
	sanitizer  security.TextSanitizer
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// cohortは起動時に解決済みの値を渡す。metricsとloggerはnilでもよい。
func NewService(
	cohort model.Cohort,
	applicants repository.ApplicantRepository,
	locker repository.SeatLocker,
	sanitizer security.TextSanitizer,
	m metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cohort:     cohort,
		applicants: applicants,
		locker:     locker,
		sanitizer:  sanitizer,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Cohort は対象コホートを返す。
func (s *Service) Cohort() model.Cohort {
	return s.cohort
}

// RequestTransition は応募者のステータス・スコア・メモを更新する。
//
// ステータスが指定され現在値と異なる場合は遷移表で検証し、
// 座席を消費しない状態から消費する状態への遷移では自分を除いた座席保有者数が定員未満であることを確認する。
// 確認と書き込みは同じ座席ロックの内側で行う。
func (s *Service) RequestTransition(ctx context.Context, applicantID string, req TransitionRequest) (*model.Applicant, error) {
	var (
		updated     *model.Applicant
		from        model.Status
		to          model.Status
		seatHolders = -1
	)

	err := s.locker.WithSeatLock(ctx, s.cohort.ID, func(tx repository.SeatTx) error {
		current, err := tx.FindApplicantForUpdate(ctx, applicantID)
		if err != nil {
			return fmt.Errorf("failed to find applicant: %w", err)
		}
		if current == nil {
			return model.NewApplicantNotFoundError(applicantID)
		}

		from = current.Status
		to = current.Status

		if req.Status != nil && *req.Status != current.Status {
			next := *req.Status
			to = next
			if !current.Status.CanTransitionTo(next) {
				return model.NewIllegalTransitionError(current.Status, next)
			}

			if next.IsSeatConsuming() && !current.Status.IsSeatConsuming() {
				count, err := tx.CountSeatHolders(ctx, current.ID)
				if err != nil {
					return fmt.Errorf("failed to count seat holders: %w", err)
				}
				if fill := (model.CohortFill{SeatHolders: count, MaxSeats: s.cohort.MaxSeats}); fill.IsFull() {
					return model.NewCapacityExceededError(fill.SeatHolders, fill.MaxSeats)
				}
				seatHolders = count + 1
			}
			current.Status = next
		}

		if req.Score != nil {
			score := *req.Score
			current.Score = &score
		}
		if req.AdminNotes != nil {
			current.AdminNotes = security.SanitizePtr(s.sanitizer, req.AdminNotes)
		}
		current.UpdatedAt = s.now()

		if err := tx.UpdateApplicant(ctx, current); err != nil {
			return fmt.Errorf("failed to update applicant: %w", err)
		}

		updated = current
		return nil
	})

	s.recordOutcome(applicantID, from, to, err)
	if err != nil {
		return nil, err
	}

	if seatHolders >= 0 {
		s.metrics.RecordSeatHolders(seatHolders)
	}
	return updated, nil
}

func (s *Service) recordOutcome(applicantID string, from, to model.Status, err error) {
	outcome := outcomeCommitted
	switch {
	case err == nil && from == to:
		outcome = outcomeUnchanged
	case err != nil:
		outcome = outcomeError
		if code := errorCode(err); code != "" {
			switch code {
			case model.ErrCodeApplicantNotFound:
				outcome = outcomeNotFound
			case model.ErrCodeIllegalTransition:
				outcome = outcomeIllegal
			case model.ErrCodeCapacityExceeded:
				outcome = outcomeCapacityExceeded
			}
		}
	}
	s.metrics.RecordTransition(from.String(), to.String(), outcome)

	attrs := []any{
		slog.String("applicant_id", applicantID),
		slog.String("cohort_id", s.cohort.ID),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("outcome", outcome),
	}
	switch outcome {
	case outcomeCommitted:
		s.logger.Info("applicant status changed", attrs...)
	case outcomeUnchanged:
		s.logger.Info("applicant updated", attrs...)
	case outcomeError:
		s.logger.Error("applicant transition failed", append(attrs, slog.String("error", err.Error()))...)
	default:
		s.logger.Warn("applicant transition rejected", append(attrs, slog.String("reason", err.Error()))...)
	}
}

// Fill はコホートの現在の充足状況を返す。読み取り専用。
func (s *Service) Fill(ctx context.Context) (model.CohortFill, error) {
	seatHolders, paidOrActive, err := s.applicants.CountSeats(ctx, s.cohort.ID)
	if err != nil {
		return model.CohortFill{}, fmt.Errorf("failed to count seats: %w", err)
	}
	s.metrics.RecordSeatHolders(seatHolders)
	return model.CohortFill{
		SeatHolders:  seatHolders,
		PaidOrActive: paidOrActive,
		MaxSeats:     s.cohort.MaxSeats,
	}, nil
}

// ListApplicants は応募者を新しい順に返し、充足状況を添える。
func (s *Service) ListApplicants(ctx context.Context) (*Listing, error) {
	applicants, err := s.applicants.ListByCohort(ctx, s.cohort.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	fill, err := s.Fill(ctx)
	if err != nil {
		return nil, err
	}
	return &Listing{Applicants: applicants, Fill: fill}, nil
}
