package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/admissions/internal/model"
)

// execQuerier は *sql.DB と *sql.Tx の共通インターフェース。
// アカウント作成をトランザクションの内外で共有するために使う。
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	if !isUUID(id) {
		return nil, nil
	}

	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}
	return a, nil
}

// FindByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return findAccountByEmail(ctx, r.db, email)
}

// CreateIfAbsent はアカウントを作成する。
// 同じメールアドレスのアカウントが既に存在する場合は何もせずfalseを返す。
func (r *PostgresAccountRepo) CreateIfAbsent(ctx context.Context, account *model.Account) (bool, error) {
	return insertAccount(ctx, r.db, account)
}

func findAccountByEmail(ctx context.Context, q execQuerier, email string) (*model.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return a, nil
}

// insertAccount はON CONFLICT DO NOTHINGでアカウントを挿入する。
// emailまたはapplicant_idの一意制約に当たった場合は既存扱いとしてfalseを返す。
// トランザクション内でもエラーにならないため、後続の文を続けて実行できる。
func insertAccount(ctx context.Context, q execQuerier, a *model.Account) (bool, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, name, role, applicant_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT DO NOTHING`,
		a.ID, a.Email, a.PasswordHash, a.Name, string(a.Role), ptrToNullString(a.ApplicantID), a.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
