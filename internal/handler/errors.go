// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/admissions/internal/middleware"
	"github.com/hitoshi/admissions/internal/model"
	"github.com/hitoshi/admissions/internal/repository"
)

// maxJSONBodyBytes はJSONリクエストボディの上限。
const maxJSONBodyBytes = 64 << 10

// transientRetryAfter は一時的な保存失敗のときに返すRetry-Afterの秒数。
const transientRetryAfter = "1"

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをdstにデコードする。
// 解析できない場合はVALIDATION_ERRORのAPIErrorを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return model.NewValidationError(fmt.Sprintf("%s has an invalid type", typeErr.Field))
		}
		return model.NewValidationError("Invalid request body")
	}
	return nil
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	writeStorageFailure(w, err)
}

// writeStorageFailure は保存処理の失敗を500で返す。
// ロック待ちのタイムアウトなど再試行で解消しうる失敗にはRetry-Afterを付ける。
func writeStorageFailure(w http.ResponseWriter, err error, attrs ...any) {
	transient := repository.IsTransient(err)
	attrs = append(attrs,
		slog.String("error", err.Error()),
		slog.Bool("transient", transient),
	)
	slog.Error("internal server error", attrs...)

	if transient {
		w.Header().Set("Retry-After", transientRetryAfter)
	}
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeApplicantNotFound, model.ErrCodeAccountNotFound:
		return http.StatusNotFound
	case model.ErrCodeCapacityExceeded, model.ErrCodeIllegalTransition:
		return http.StatusConflict
	case model.ErrCodeValidation, model.ErrCodeInvalidSignature:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
