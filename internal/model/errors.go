// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, admission, payment, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeApplicantNotFound  = "APPLICANT_NOT_FOUND"
	ErrCodeCapacityExceeded   = "CAPACITY_EXCEEDED"
	ErrCodeIllegalTransition  = "ILLEGAL_TRANSITION"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
)

// NewApplicantNotFoundError は応募者未検出エラーを生成する。
func NewApplicantNotFoundError(applicantID string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicantNotFound,
		Message:  fmt.Sprintf("Applicant not found: %s", applicantID),
		Category: "admission",
		Action:   "応募者IDを確認してください。",
	}
}

// NewCapacityExceededError は定員超過エラーを生成する。
// メッセージには現在の充足状況（座席保有者数/定員）を含める。
func NewCapacityExceededError(seatHolders, maxSeats int) *APIError {
	return &APIError{
		Code:     ErrCodeCapacityExceeded,
		Message:  fmt.Sprintf("Cohort is full (%d/%d)", seatHolders, maxSeats),
		Category: "admission",
		Action:   "別のステータスを選択するか、座席が空くまでお待ちください。",
	}
}

// NewIllegalTransitionError は許可されていないステータス遷移のエラーを生成する。
func NewIllegalTransitionError(from, to Status) *APIError {
	action := "現在のステータスから遷移可能なステータスを選択してください。"
	if from.IsTerminal() {
		action = fmt.Sprintf("%s は終端のステータスのため変更できません。", from)
	}
	return &APIError{
		Code:     ErrCodeIllegalTransition,
		Message:  fmt.Sprintf("Cannot change status from %s to %s", from, to),
		Category: "admission",
		Action:   action,
	}
}

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidSignatureError は署名検証失敗エラーを生成する。
func NewInvalidSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignature,
		Message:  "Invalid signature",
		Category: "payment",
		Action:   "Webhookの署名シークレットの設定を確認してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Forbidden",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスとパスワードのどちらが誤っているかは区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewAccountNotFoundError はアカウントが見つからない場合のエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "Account not found",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
