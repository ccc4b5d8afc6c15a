package payment

import (
	"context"
	"log/slog"

	"github.com/hitoshi/admissions/internal/model"
)

// Provisioned は支払い確定によって作成されたアカウントの情報。
type Provisioned struct {
	Account   *model.Account
	Applicant *model.Applicant
	Password  string
}

// CredentialNotifier は作成したアカウントの資格情報を本人に届ける。
// 呼び出しはコミット後に行われ、失敗しても支払い処理は取り消されない。
type CredentialNotifier interface {
	NotifyProvisioned(ctx context.Context, p Provisioned) error
}

// LogNotifier はアカウント作成をログに記録するだけのCredentialNotifier。
// パスワードは出力しない。
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyProvisioned はCredentialNotifierを実装する。
func (n LogNotifier) NotifyProvisioned(ctx context.Context, p Provisioned) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "client account provisioned",
		slog.String("account_id", p.Account.ID),
		slog.String("applicant_id", p.Applicant.ID),
		slog.String("email", p.Account.Email),
	)
	return nil
}
