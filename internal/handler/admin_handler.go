package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/admissions/internal/admission"
	"github.com/hitoshi/admissions/internal/model"
	"github.com/hitoshi/admissions/internal/validation"
)

// AdmissionServiceInterface は管理者ハンドラーが必要とする選考サービスのインターフェース。
type AdmissionServiceInterface interface {
	RequestTransition(ctx context.Context, applicantID string, req admission.TransitionRequest) (*model.Applicant, error)
	ListApplicants(ctx context.Context) (*admission.Listing, error)
	Fill(ctx context.Context) (model.CohortFill, error)
}

// AdminHandler は管理者向けの応募者操作ハンドラー。
type AdminHandler struct {
	service AdmissionServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdmissionServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// updateApplicantRequest は応募者編集のリクエストボディ。
// 省略したフィールドは変更しない。
// scoreは管理画面の採点欄に合わせて0〜100の整数に限る。
type updateApplicantRequest struct {
	Status     *string `json:"status" validate:"omitnil,applicant_status"`
	Score      *int    `json:"score" validate:"omitnil,min=0,max=100"`
	AdminNotes *string `json:"adminNotes" validate:"omitnil,max=5000"`
}

// applicantResponse は応募者のレスポンス形式。
type applicantResponse struct {
	ID              string    `json:"id"`
	CohortID        string    `json:"cohortId"`
	FullName        string    `json:"fullName"`
	Email           string    `json:"email"`
	Instagram       *string   `json:"instagram"`
	School          *string   `json:"school"`
	ClassYear       string    `json:"classYear"`
	GPA             *string   `json:"gpa"`
	Activities      string    `json:"activities"`
	WhatMakesUnique string    `json:"whatMakesUnique"`
	WhyMentorship   string    `json:"whyMentorship"`
	Status          string    `json:"status"`
	Score           *int      `json:"score"`
	AdminNotes      *string   `json:"adminNotes"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// fillResponse はコホート充足状況のレスポンス形式。
// cohortFilled は "<Paid/Active数>/<定員>"、seatsFilled は定員判定に使う
// "<座席保有者数>/<定員>"（Acceptedを含む）。
type fillResponse struct {
	CohortFilled string `json:"cohortFilled"`
	SeatsFilled  string `json:"seatsFilled"`
	MaxSeats     int    `json:"maxSeats"`
	PaidOrActive int    `json:"paidOrActive"`
	SeatHolders  int    `json:"seatHolders"`
	Full         bool   `json:"full"`
}

// applicantListResponse は応募者一覧のレスポンス形式。
type applicantListResponse struct {
	Applicants []applicantResponse `json:"applicants"`
	fillResponse
}

func toApplicantResponse(a *model.Applicant) applicantResponse {
	return applicantResponse{
		ID:              a.ID,
		CohortID:        a.CohortID,
		FullName:        a.FullName,
		Email:           a.Email,
		Instagram:       a.Instagram,
		School:          a.School,
		ClassYear:       a.ClassYear,
		GPA:             a.GPA,
		Activities:      a.Activities,
		WhatMakesUnique: a.WhatMakesUnique,
		WhyMentorship:   a.WhyMentorship,
		Status:          a.Status.String(),
		Score:           a.Score,
		AdminNotes:      a.AdminNotes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toFillResponse(f model.CohortFill) fillResponse {
	return fillResponse{
		CohortFilled: f.PaidRatio(),
		SeatsFilled:  f.String(),
		MaxSeats:     f.MaxSeats,
		PaidOrActive: f.PaidOrActive,
		SeatHolders:  f.SeatHolders,
		Full:         f.IsFull(),
	}
}

// UpdateApplicant は応募者のステータス・スコア・メモを更新する。
// PATCH /api/admin/applicants/{id}
func (h *AdminHandler) UpdateApplicant(w http.ResponseWriter, r *http.Request) {
	applicantID := chi.URLParam(r, "id")

	var req updateApplicantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		handleServiceError(w, err)
		return
	}

	tr := admission.TransitionRequest{
		Score:      req.Score,
		AdminNotes: req.AdminNotes,
	}
	if req.Status != nil {
		status, ok := model.ParseStatus(*req.Status)
		if !ok {
			handleServiceError(w, model.NewValidationError("status must be one of the defined statuses"))
			return
		}
		tr.Status = &status
	}

	updated, err := h.service.RequestTransition(r.Context(), applicantID, tr)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toApplicantResponse(updated))
}

// ListApplicants は応募者一覧と充足状況を返す。
// GET /api/admin/applicants
func (h *AdminHandler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.ListApplicants(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := applicantListResponse{
		Applicants:   make([]applicantResponse, 0, len(listing.Applicants)),
		fillResponse: toFillResponse(listing.Fill),
	}
	for _, a := range listing.Applicants {
		resp.Applicants = append(resp.Applicants, toApplicantResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCohort はコホートの充足状況を返す。
// GET /api/admin/cohort
func (h *AdminHandler) GetCohort(w http.ResponseWriter, r *http.Request) {
	fill, err := h.service.Fill(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFillResponse(fill))
}
