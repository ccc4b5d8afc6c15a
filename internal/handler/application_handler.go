package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/admissions/internal/application"
	"github.com/hitoshi/admissions/internal/model"
)

// ApplicationServiceInterface は応募ハンドラーが必要とするサービスインターフェース。
type ApplicationServiceInterface interface {
	Submit(ctx context.Context, req application.SubmitRequest) (*model.Applicant, error)
	LookupPayable(ctx context.Context, email string) (string, error)
}

// ApplicationHandler は公開の応募フォームと支払い前照会のハンドラー。
type ApplicationHandler struct {
	service ApplicationServiceInterface
}

// NewApplicationHandler はApplicationHandlerを生成する。
func NewApplicationHandler(service ApplicationServiceInterface) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// lookupRequest は支払い前照会のリクエストボディ。
type lookupRequest struct {
	Email string `json:"email"`
}

// lookupResponse は支払い前照会のレスポンス。該当なしの場合ApplicantIDはnull。
type lookupResponse struct {
	ApplicantID *string `json:"applicantId"`
}

// Submit は応募を受け付ける。
// POST /api/applications
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req application.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	applicant, err := h.service.Submit(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": applicant.ID})
}

// Lookup はメールアドレスから支払い可能な応募者IDを返す。
// POST /api/pay/lookup
func (h *ApplicationHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	applicantID, err := h.service.LookupPayable(r.Context(), req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var resp lookupResponse
	if applicantID != "" {
		resp.ApplicantID = &applicantID
	}
	writeJSON(w, http.StatusOK, resp)
}
