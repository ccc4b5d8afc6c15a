// Package auth はメールアドレスとパスワードによるログイン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/admissions/internal/model"
	"github.com/hitoshi/admissions/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // 管理者アカウント作成時のbcryptコスト
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	dummyHash   []byte
}

// NewService はServiceを生成する。
func NewService(
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	// 存在しないメールアドレスでも照合時間を揃えるためのハッシュ
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.MinCost)
	return &Service{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		config:      config,
		dummyHash:   dummy,
	}
}

// NormalizeEmail は前後の空白を除去し小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login はメールアドレスとパスワードを照合し、セッションを発行する。
// アカウントが存在しない場合とパスワードが誤っている場合は同じエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.Account, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		slog.Info("login failed", slog.String("reason", "unknown email"))
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			slog.Error("password hash comparison failed",
				slog.String("account_id", account.ID),
				slog.String("error", err.Error()),
			)
		}
		slog.Info("login failed", slog.String("account_id", account.ID), slog.String("reason", "password mismatch"))
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("account logged in",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)
	return session, account, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("account logged out")
	return nil
}

// GetCurrentAccount は指定アカウントIDのアカウントを取得する。
func (s *Service) GetCurrentAccount(ctx context.Context, accountID string) (*model.Account, error) {
	if accountID == "" {
		return nil, model.NewUnauthorizedError()
	}

	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account, nil
}

// EnsureAdmin は管理者アカウントが存在しなければ作成する。
// 既に同じメールアドレスのアカウントがある場合は変更しない。作成した場合はtrueを返す。
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return false, fmt.Errorf("admin email and password are required")
	}

	cost := s.config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	created, err := s.accountRepo.CreateIfAbsent(ctx, &model.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Admin",
		Role:         model.RoleAdmin,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to create admin account: %w", err)
	}
	if created {
		slog.Info("admin account created", slog.String("email", email))
	}
	return created, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, account *model.Account) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		AccountID: account.ID,
		Role:      account.Role,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
