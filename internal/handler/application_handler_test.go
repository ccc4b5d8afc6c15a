package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/admissions/internal/application"
	"github.com/hitoshi/admissions/internal/model"
)

// mockApplicationService はApplicationServiceInterfaceのモック実装。
type mockApplicationService struct {
	submitFn        func(ctx context.Context, req application.SubmitRequest) (*model.Applicant, error)
	lookupPayableFn func(ctx context.Context, email string) (string, error)
}

func (m *mockApplicationService) Submit(ctx context.Context, req application.SubmitRequest) (*model.Applicant, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return &model.Applicant{ID: "app-new"}, nil
}

func (m *mockApplicationService) LookupPayable(ctx context.Context, email string) (string, error) {
	if m.lookupPayableFn != nil {
		return m.lookupPayableFn(ctx, email)
	}
	return "", nil
}

// --- POST /api/applications ---

func TestApplicationHandler_Submit_Created(t *testing.T) {
	svc := &mockApplicationService{
		submitFn: func(ctx context.Context, req application.SubmitRequest) (*model.Applicant, error) {
			if req.FullName != "Jane Doe" || req.ClassYear != "2028" {
				t.Errorf("req = %+v", req)
			}
			if req.School == nil || *req.School != "Central High" {
				t.Errorf("school = %v", req.School)
			}
			if req.Instagram != nil {
				t.Errorf("instagram = %v, want nil", req.Instagram)
			}
			return &model.Applicant{ID: "app-42"}, nil
		},
	}
	h := NewApplicationHandler(svc)

	body := `{"fullName":"Jane Doe","email":"jane@example.com","school":"Central High","classYear":"2028",` +
		`"activities":"Debate","whatMakesUnique":"Curious","whyMentorship":"Grow"}`
	req := httptest.NewRequest(http.MethodPost, "/api/applications", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["id"] != "app-42" {
		t.Errorf("id = %q, want %q", got["id"], "app-42")
	}
}

func TestApplicationHandler_Submit_ValidationError(t *testing.T) {
	svc := &mockApplicationService{
		submitFn: func(ctx context.Context, req application.SubmitRequest) (*model.Applicant, error) {
			return nil, model.NewValidationError("classYear must be one of 2027, 2028, 2029, 2030+")
		},
	}
	h := NewApplicationHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/applications", bytes.NewBufferString(`{"classYear":"1999"}`))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := parseAPIErrorResponse(t, w)
	if !strings.Contains(body["message"], "classYear") {
		t.Errorf("message = %q", body["message"])
	}
}

func TestApplicationHandler_Submit_MalformedBody(t *testing.T) {
	called := false
	svc := &mockApplicationService{
		submitFn: func(ctx context.Context, req application.SubmitRequest) (*model.Applicant, error) {
			called = true
			return nil, nil
		},
	}
	h := NewApplicationHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/applications", bytes.NewBufferString(`[]`))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("service should not be called for a malformed body")
	}
}

func TestApplicationHandler_Submit_OversizedBody(t *testing.T) {
	h := NewApplicationHandler(&mockApplicationService{})

	body := `{"fullName":"` + strings.Repeat("a", maxJSONBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/applications", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Submit(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- POST /api/pay/lookup ---

func TestApplicationHandler_Lookup_Found(t *testing.T) {
	svc := &mockApplicationService{
		lookupPayableFn: func(ctx context.Context, email string) (string, error) {
			if email != "jane@example.com" {
				t.Errorf("email = %q", email)
			}
			return "app-1", nil
		},
	}
	h := NewApplicationHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/pay/lookup", bytes.NewBufferString(`{"email":"jane@example.com"}`))
	w := httptest.NewRecorder()

	h.Lookup(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.TrimSpace(w.Body.String()) != `{"applicantId":"app-1"}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestApplicationHandler_Lookup_NotFound_ReturnsNull(t *testing.T) {
	h := NewApplicationHandler(&mockApplicationService{})

	req := httptest.NewRequest(http.MethodPost, "/api/pay/lookup", bytes.NewBufferString(`{"email":"nobody@example.com"}`))
	w := httptest.NewRecorder()

	h.Lookup(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.TrimSpace(w.Body.String()) != `{"applicantId":null}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestApplicationHandler_Lookup_StorageError(t *testing.T) {
	svc := &mockApplicationService{
		lookupPayableFn: func(ctx context.Context, email string) (string, error) {
			return "", errors.New("db down")
		},
	}
	h := NewApplicationHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/pay/lookup", bytes.NewBufferString(`{"email":"a@example.com"}`))
	w := httptest.NewRecorder()

	h.Lookup(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
