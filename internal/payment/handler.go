package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/admissions/internal/metrics"
	"github.com/hitoshi/admissions/internal/model"
	"github.com/hitoshi/admissions/internal/repository"
)

// Handler は支払い確定を応募者のステータスとアカウントに反映する。
type Handler struct {
	cohort     model.Cohort
	applicants repository.ApplicantRepository
	accounts   repository.AccountRepository
	locker     repository.SeatLocker
	generator  CredentialGenerator
	notifier   CredentialNotifier
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	now        func() time.Time
}

// HandlerConfig はHandlerの依存をまとめる。
// Generator、Notifier、Metrics、Loggerは省略できる。
type HandlerConfig struct {
	Cohort     model.Cohort
	Applicants repository.ApplicantRepository
	Accounts   repository.AccountRepository
	Locker     repository.SeatLocker
	Generator  CredentialGenerator
	Notifier   CredentialNotifier
	Metrics    metrics.MetricsCollector
	Logger     *slog.Logger
}

// NewHandler はHandlerを生成する。
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		cohort:     cfg.Cohort,
		applicants: cfg.Applicants,
		accounts:   cfg.Accounts,
		locker:     cfg.Locker,
		generator:  cfg.Generator,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        time.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.generator == nil {
		h.generator = BcryptGenerator{}
	}
	if h.notifier == nil {
		h.notifier = LogNotifier{Logger: h.logger}
	}
	if h.metrics == nil {
		h.metrics = metrics.Nop{}
	}
	return h
}

type credential struct {
	plain string
	hash  []byte
}

// HandlePaymentConfirmed は応募者の支払い確定を処理する。
//
// 同じイベントIDの再配送は何もせずPaymentOutcomeDuplicateを返す。
// 成功時はAccepted（空席があればApplied/Waitlistも）をPaidにし、アカウントがなければ作成する。
// アカウント作成とステータス更新は座席ロック内の同一トランザクションで行い、
// エラーを返した場合はどちらも反映されていないため再送で最初からやり直せる。
func (h *Handler) HandlePaymentConfirmed(ctx context.Context, applicantID, eventID string) (model.PaymentOutcome, error) {
	start := h.now()
	outcome, err := h.handle(ctx, applicantID, eventID)
	h.metrics.RecordWebhookLatency(h.now().Sub(start))

	attrs := []any{
		slog.String("applicant_id", applicantID),
		slog.String("event_id", eventID),
	}
	if err != nil {
		h.metrics.RecordPayment("error")
		h.logger.ErrorContext(ctx, "payment confirmation failed", append(attrs, slog.String("error", err.Error()))...)
		return "", err
	}
	h.metrics.RecordPayment(string(outcome))

	switch outcome {
	case model.PaymentOutcomeNeedsReview, model.PaymentOutcomeUnknownApplicant:
		h.logger.WarnContext(ctx, "payment confirmation requires review", append(attrs, slog.String("outcome", string(outcome)))...)
	default:
		h.logger.InfoContext(ctx, "payment confirmation handled", append(attrs, slog.String("outcome", string(outcome)))...)
	}
	return outcome, nil
}

func (h *Handler) handle(ctx context.Context, applicantID, eventID string) (model.PaymentOutcome, error) {
	applicant, err := h.applicants.FindByID(ctx, applicantID)
	if err != nil {
		return "", fmt.Errorf("failed to find applicant: %w", err)
	}
	if applicant == nil || applicant.CohortID != h.cohort.ID {
		return model.PaymentOutcomeUnknownApplicant, nil
	}

	// bcryptは重いため、座席ロックを取る前に済ませておく
	var cred *credential
	existing, err := h.accounts.FindByEmail(ctx, applicant.Email)
	if err != nil {
		return "", fmt.Errorf("failed to find account: %w", err)
	}
	if existing == nil {
		plain, hash, err := h.generator.Generate()
		if err != nil {
			return "", err
		}
		cred = &credential{plain: plain, hash: hash}
	}

	var (
		outcome     model.PaymentOutcome
		provisioned *Provisioned
		fromStatus  model.Status
	)
	err = h.locker.WithSeatLock(ctx, h.cohort.ID, func(tx repository.SeatTx) error {
		outcome, provisioned, fromStatus = "", nil, ""

		if eventID != "" {
			claimed, err := tx.ClaimPaymentEvent(ctx, eventID, applicantID)
			if err != nil {
				return fmt.Errorf("failed to record payment event: %w", err)
			}
			if !claimed {
				outcome = model.PaymentOutcomeDuplicate
				return nil
			}
		}

		current, err := tx.FindApplicantForUpdate(ctx, applicantID)
		if err != nil {
			return fmt.Errorf("failed to find applicant for update: %w", err)
		}

		outcome, err = h.decide(ctx, tx, current)
		if err != nil {
			return err
		}

		if outcome == model.PaymentOutcomeProvisioned || outcome == model.PaymentOutcomeAlreadyPaid {
			provisioned, err = h.ensureAccount(ctx, tx, current, cred)
			if err != nil {
				return err
			}
		}

		if outcome == model.PaymentOutcomeProvisioned {
			fromStatus = current.Status
			current.Status = model.StatusPaid
			current.UpdatedAt = h.now()
			if err := tx.UpdateApplicant(ctx, current); err != nil {
				return fmt.Errorf("failed to mark applicant paid: %w", err)
			}
		}

		if eventID != "" {
			if err := tx.SetPaymentEventOutcome(ctx, eventID, outcome); err != nil {
				return fmt.Errorf("failed to record payment outcome: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if fromStatus != "" {
		h.metrics.RecordTransition(fromStatus.String(), model.StatusPaid.String(), "committed")
	}
	if provisioned != nil {
		h.metrics.RecordAccountProvisioned()
		if err := h.notifier.NotifyProvisioned(ctx, *provisioned); err != nil {
			h.logger.ErrorContext(ctx, "failed to notify provisioned account",
				slog.String("applicant_id", applicantID),
				slog.String("error", err.Error()),
			)
		}
	}
	return outcome, nil
}

// decide はロック内で読み直した応募者に対する処理結果を決める。
func (h *Handler) decide(ctx context.Context, tx repository.SeatTx, current *model.Applicant) (model.PaymentOutcome, error) {
	if current == nil {
		return model.PaymentOutcomeUnknownApplicant, nil
	}

	switch current.Status {
	case model.StatusPaid, model.StatusActive:
		return model.PaymentOutcomeAlreadyPaid, nil
	case model.StatusAccepted:
		// 既に座席を保有しているため定員は確認しない
		return model.PaymentOutcomeProvisioned, nil
	case model.StatusApplied, model.StatusWaitlist:
		count, err := tx.CountSeatHolders(ctx, current.ID)
		if err != nil {
			return "", fmt.Errorf("failed to count seat holders: %w", err)
		}
		if (model.CohortFill{SeatHolders: count, MaxSeats: h.cohort.MaxSeats}).IsFull() {
			return model.PaymentOutcomeNeedsReview, nil
		}
		return model.PaymentOutcomeProvisioned, nil
	default:
		return model.PaymentOutcomeNeedsReview, nil
	}
}

// ensureAccount は応募者のメールアドレスのアカウントがなければ作成する。
// 作成した場合のみProvisionedを返す。
func (h *Handler) ensureAccount(ctx context.Context, tx repository.SeatTx, applicant *model.Applicant, cred *credential) (*Provisioned, error) {
	existing, err := tx.FindAccountByEmail(ctx, applicant.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if existing != nil {
		return nil, nil
	}

	if cred == nil {
		plain, hash, err := h.generator.Generate()
		if err != nil {
			return nil, err
		}
		cred = &credential{plain: plain, hash: hash}
	}

	applicantID := applicant.ID
	account := &model.Account{
		ID:           uuid.New().String(),
		Email:        applicant.Email,
		PasswordHash: cred.hash,
		Name:         applicant.FullName,
		Role:         model.RoleClient,
		ApplicantID:  &applicantID,
		CreatedAt:    h.now(),
	}
	created, err := tx.CreateAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if !created {
		return nil, nil
	}
	return &Provisioned{Account: account, Applicant: applicant, Password: cred.plain}, nil
}
