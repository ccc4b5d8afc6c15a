// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/admissions/internal/model"
)

// CohortRepository はコホートの永続化インターフェース。
type CohortRepository interface {
	// EnsureByName は名前でコホートを取得し、存在しなければ作成する。
	// 既存の場合は定員を maxSeats に更新する。
	EnsureByName(ctx context.Context, name string, maxSeats int) (*model.Cohort, error)
}

// ApplicantRepository は応募者データの永続化インターフェース。
// ステータスの変更は SeatLocker 経由でのみ行う。
type ApplicantRepository interface {
	// FindByID は指定IDの応募者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Applicant, error)

	// FindAcceptedByEmail はコホート内でAcceptedの応募者をメールアドレスで検索する。
	// 見つからない場合はnilを返す。
	FindAcceptedByEmail(ctx context.Context, cohortID, email string) (*model.Applicant, error)

	// Create は応募者を作成する。
	Create(ctx context.Context, applicant *model.Applicant) error

	// ListByCohort はコホートの応募者を作成日時の降順で返す。
	ListByCohort(ctx context.Context, cohortID string) ([]*model.Applicant, error)

	// CountSeats はコホートの座席保有者数とPaid/Active数を返す。
	CountSeats(ctx context.Context, cohortID string) (seatHolders, paidOrActive int, err error)
}

// AccountRepository はアカウントの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// CreateIfAbsent はアカウントを作成する。
	// 同じメールアドレスのアカウントが既に存在する場合は何もせずfalseを返す。
	CreateIfAbsent(ctx context.Context, account *model.Account) (bool, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// SeatTx はコホートの座席ロックを保持している間に使える操作。
// すべての操作は同一トランザクション内で実行され、fnがエラーを返すとまとめてロールバックされる。
type SeatTx interface {
	// FindApplicantForUpdate はロック対象コホートの応募者を行ロック付きで取得する。
	// 見つからない場合はnilを返す。
	FindApplicantForUpdate(ctx context.Context, applicantID string) (*model.Applicant, error)

	// CountSeatHolders はロック対象コホートの座席保有者数を返す。
	// excludeApplicantIDが空でなければその応募者を数えない。
	CountSeatHolders(ctx context.Context, excludeApplicantID string) (int, error)

	// UpdateApplicant は応募者のステータス・スコア・メモを更新する。
	UpdateApplicant(ctx context.Context, applicant *model.Applicant) error

	// FindAccountByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
	FindAccountByEmail(ctx context.Context, email string) (*model.Account, error)

	// CreateAccount はアカウントを作成する。既に同じメールアドレスがあればfalseを返す。
	CreateAccount(ctx context.Context, account *model.Account) (bool, error)

	// ClaimPaymentEvent は支払いイベントIDを処理済みとして登録する。
	// 既に登録済みの場合はfalseを返す。
	ClaimPaymentEvent(ctx context.Context, eventID, applicantID string) (bool, error)

	// SetPaymentEventOutcome は登録済みイベントの処理結果を記録する。
	SetPaymentEventOutcome(ctx context.Context, eventID string, outcome model.PaymentOutcome) error
}

// SeatLocker はコホート単位の排他ロックを取得し、fnを1つのトランザクションで実行する。
// 座席数の確認と書き込みはこのロックの内側で行う。
type SeatLocker interface {
	WithSeatLock(ctx context.Context, cohortID string, fn func(tx SeatTx) error) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
