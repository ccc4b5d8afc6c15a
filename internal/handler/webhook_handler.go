package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/admissions/internal/model"
	"github.com/hitoshi/admissions/internal/payment"
)

// maxWebhookBodyBytes はWebhookボディの上限（1MiB）。
const maxWebhookBodyBytes = 1 << 20

// PaymentServiceInterface はWebhookハンドラーが必要とする支払い処理のインターフェース。
type PaymentServiceInterface interface {
	HandlePaymentConfirmed(ctx context.Context, applicantID, eventID string) (model.PaymentOutcome, error)
}

// SignatureVerifier はWebhookの署名を検証する。
type SignatureVerifier interface {
	Verify(payload []byte, header string) error
}

// WebhookHandler は決済プロバイダーからのWebhookを受け付けるハンドラー。
type WebhookHandler struct {
	service  PaymentServiceInterface
	verifier SignatureVerifier
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(service PaymentServiceInterface, verifier SignatureVerifier) *WebhookHandler {
	return &WebhookHandler{
		service:  service,
		verifier: verifier,
	}
}

// HandleWebhook は支払いイベントを検証して処理する。
// POST /api/payments/webhook
//
// 未知の応募者でも200を返す。保存失敗時は500を返し、プロバイダーの再配送に任せる。
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewValidationError("Payload too large"))
			return
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid request body"))
		return
	}

	if err := h.verifier.Verify(payload, r.Header.Get(payment.SignatureHeader)); err != nil {
		slog.Warn("webhook signature rejected",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidSignatureError())
		return
	}

	event, err := payment.ParseEvent(payload)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid event payload"))
		return
	}

	if !event.IsCheckoutCompleted() {
		slog.Debug("webhook event ignored",
			slog.String("event_id", event.ID),
			slog.String("event_type", event.Type),
		)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	applicantID := event.ApplicantID()
	if applicantID == "" {
		slog.Warn("checkout event without applicant id",
			slog.String("event_id", event.ID),
		)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	outcome, err := h.service.HandlePaymentConfirmed(r.Context(), applicantID, event.ID)
	if err != nil {
		writeStorageFailure(w, err,
			slog.String("event_id", event.ID),
			slog.String("applicant_id", applicantID),
		)
		return
	}

	slog.Info("webhook processed",
		slog.String("event_id", event.ID),
		slog.String("applicant_id", applicantID),
		slog.String("outcome", string(outcome)),
	)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
