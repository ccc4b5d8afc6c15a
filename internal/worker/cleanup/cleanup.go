// Package cleanup は不要になったセッションと支払いイベント記録の自動削除ジョブを提供する。
// 期限切れ・保持期間超過のセッションと、保持期間（デフォルト90日）を超過した
// payment_events を定期バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	deleteSessionsQuery      = `DELETE FROM sessions WHERE expires_at < now() OR created_at < now() - $1::interval`
	deletePaymentEventsQuery = `DELETE FROM payment_events WHERE processed_at < now() - $1::interval`
)

// CleanupJob は保持期間を超過したデータの自動削除ジョブ。
// 冪等な削除処理のみを行うため、何度実行してもよい。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger

	SessionRetentionDays      int // セッションの最大保持日数（デフォルト: 30）
	PaymentEventRetentionDays int // 支払いイベント記録の保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:                        db,
		logger:                    logger,
		SessionRetentionDays:      30,
		PaymentEventRetentionDays: 90,
	}
}

// Run はセッションと支払いイベント記録を順に削除する。
// セッションの削除に失敗した場合は支払いイベントの削除を行わずにエラーを返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessions, err := j.purge(ctx, "sessions", deleteSessionsQuery, j.SessionRetentionDays)
	if err != nil {
		return err
	}

	events, err := j.purge(ctx, "payment_events", deletePaymentEventsQuery, j.PaymentEventRetentionDays)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	j.logger.Info("cleanup job completed",
		slog.Int64("deleted_sessions", sessions),
		slog.Int64("deleted_payment_events", events),
		slog.Int("session_retention_days", j.SessionRetentionDays),
		slog.Int("payment_event_retention_days", j.PaymentEventRetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunEvery は起動直後に1回実行し、以降intervalごとにctxが終了するまで実行する。
// 個々の実行エラーはログに記録して次の周期に進む。
func (j *CleanupJob) RunEvery(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (j *CleanupJob) purge(ctx context.Context, table, query string, retentionDays int) (int64, error) {
	interval := fmt.Sprintf("%d days", retentionDays)

	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("failed to run cleanup",
			slog.String("table", table),
			slog.String("error", err.Error()),
			slog.Int("retention_days", retentionDays),
		)
		return 0, fmt.Errorf("failed to clean up %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("failed to get deleted count",
			slog.String("table", table),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to get deleted count for %s: %w", table, err)
	}
	return deleted, nil
}
