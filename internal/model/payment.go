package model

import "time"

// PaymentOutcome は支払い確定イベントの処理結果を表す。
type PaymentOutcome string

const (
	// PaymentOutcomeProvisioned はPaidへの更新（必要ならアカウント作成）を行った結果。
	PaymentOutcomeProvisioned PaymentOutcome = "provisioned"
	// PaymentOutcomeAlreadyPaid は既にPaidまたはActiveで、ステータスを変更しなかった結果。
	PaymentOutcomeAlreadyPaid PaymentOutcome = "already_paid"
	// PaymentOutcomeDuplicate は同一イベントIDを処理済みだった結果。
	PaymentOutcomeDuplicate PaymentOutcome = "duplicate"
	// PaymentOutcomeUnknownApplicant は応募者が存在しなかった結果。
	PaymentOutcomeUnknownApplicant PaymentOutcome = "unknown_applicant"
	// PaymentOutcomeNeedsReview は座席不足または不合格済みのため人手の確認が必要な結果。
	PaymentOutcomeNeedsReview PaymentOutcome = "needs_review"
)

// PaymentEvent は処理済みの支払いイベントの記録。
// 同一イベントの再配送を検出するために使う。
type PaymentEvent struct {
	ID          string
	ApplicantID string
	Outcome     PaymentOutcome
	ProcessedAt time.Time
}
