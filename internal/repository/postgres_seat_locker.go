package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/admissions/internal/model"
)

// defaultLockTimeout はコホート行ロックの待ち時間の上限。
const defaultLockTimeout = 5 * time.Second

// PostgresSeatLocker はcohorts行の SELECT ... FOR UPDATE で座席ロックを実現する。
// 同じコホートに対する座席関連の書き込みは、このロックによって直列化される。
type PostgresSeatLocker struct {
	db          TxBeginner
	lockTimeout time.Duration
}

// NewPostgresSeatLocker はPostgresSeatLockerを生成する。
func NewPostgresSeatLocker(db TxBeginner) *PostgresSeatLocker {
	return &PostgresSeatLocker{db: db, lockTimeout: defaultLockTimeout}
}

// WithSeatLock はトランザクションを開始してコホート行をロックし、fnを実行する。
// fnがnilを返した場合のみコミットし、それ以外はロールバックしてfnのエラーをそのまま返す。
func (l *PostgresSeatLocker) WithSeatLock(ctx context.Context, cohortID string, fn func(tx SeatTx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.lockTimeout.Milliseconds()),
	); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	var lockedID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM cohorts WHERE id = $1 FOR UPDATE`,
		cohortID,
	).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("cohort %s does not exist", cohortID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock cohort: %w", err)
	}

	if err := fn(&postgresSeatTx{tx: tx, cohortID: lockedID}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// postgresSeatTx はロック取得済みトランザクション上のSeatTx実装。
type postgresSeatTx struct {
	tx       *sql.Tx
	cohortID string
}

// FindApplicantForUpdate はロック対象コホートの応募者を行ロック付きで取得する。
func (t *postgresSeatTx) FindApplicantForUpdate(ctx context.Context, applicantID string) (*model.Applicant, error) {
	if !isUUID(applicantID) {
		return nil, nil
	}

	a, err := scanApplicant(t.tx.QueryRowContext(ctx,
		`SELECT `+applicantColumns+`
		 FROM applicants
		 WHERE id = $1 AND cohort_id = $2
		 FOR UPDATE`,
		applicantID, t.cohortID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find applicant for update: %w", err)
	}
	return a, nil
}

// CountSeatHolders はロック対象コホートの座席保有者数を返す。
func (t *postgresSeatTx) CountSeatHolders(ctx context.Context, excludeApplicantID string) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx,
		`SELECT count(*)
		 FROM applicants
		 WHERE cohort_id = $1
		   AND status IN ('Accepted', 'Paid', 'Active')
		   AND id::text <> $2`,
		t.cohortID, excludeApplicantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count seat holders: %w", err)
	}
	return count, nil
}

// UpdateApplicant は応募者のステータス・スコア・メモを更新する。
func (t *postgresSeatTx) UpdateApplicant(ctx context.Context, a *model.Applicant) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE applicants
		 SET status = $2, score = $3, admin_notes = $4, updated_at = $5
		 WHERE id = $1 AND cohort_id = $6`,
		a.ID, string(a.Status), ptrToNullInt64(a.Score), ptrToNullString(a.AdminNotes), a.UpdatedAt, t.cohortID,
	)
	if err != nil {
		return fmt.Errorf("failed to update applicant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("applicant %s was not updated", a.ID)
	}
	return nil
}

// FindAccountByEmail はメールアドレスでアカウントを取得する。
func (t *postgresSeatTx) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return findAccountByEmail(ctx, t.tx, email)
}

// CreateAccount はアカウントを作成する。既に同じメールアドレスがあればfalseを返す。
func (t *postgresSeatTx) CreateAccount(ctx context.Context, account *model.Account) (bool, error) {
	return insertAccount(ctx, t.tx, account)
}

// ClaimPaymentEvent は支払いイベントIDを処理済みとして登録する。
func (t *postgresSeatTx) ClaimPaymentEvent(ctx context.Context, eventID, applicantID string) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO payment_events (id, applicant_id, outcome)
		 VALUES ($1, $2, 'processing')
		 ON CONFLICT (id) DO NOTHING`,
		eventID, applicantID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim payment event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// SetPaymentEventOutcome は登録済みイベントの処理結果を記録する。
func (t *postgresSeatTx) SetPaymentEventOutcome(ctx context.Context, eventID string, outcome model.PaymentOutcome) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE payment_events SET outcome = $2, processed_at = now() WHERE id = $1`,
		eventID, string(outcome),
	)
	if err != nil {
		return fmt.Errorf("failed to record payment event outcome: %w", err)
	}
	return nil
}

// compile-time interface check
var (
	_ SeatLocker = (*PostgresSeatLocker)(nil)
	_ SeatTx     = (*postgresSeatTx)(nil)
)
