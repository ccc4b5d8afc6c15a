package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/admissions/internal/middleware"
	"github.com/hitoshi/admissions/internal/model"
)

// WebhookPath は支払いWebhookのパス。CSRF検証の対象外とする。
const WebhookPath = "/api/payments/webhook"

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	RequestTimeout    time.Duration

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 選考
	AdmissionService AdmissionServiceInterface

	// 支払い
	PaymentService    PaymentServiceInterface
	SignatureVerifier SignatureVerifier

	// 応募
	ApplicationService ApplicationServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → Timeout → CSRF
//	  公開ルート: + RateLimit(Public)
//	  管理ルート: + Session → RequireRole(admin) → RateLimit(General)
//
// Webhookは署名で認証するためCSRFの対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	csrfConfig := deps.CSRFConfig
	csrfConfig.ExemptPaths = append(append([]string(nil), csrfConfig.ExemptPaths...), WebhookPath)

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.RequestTimeout > 0 {
		r.Use(chimw.Timeout(deps.RequestTimeout))
	}
	r.Use(middleware.NewCSRFMiddleware(csrfConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	adminHandler := NewAdminHandler(deps.AdmissionService)
	webhookHandler := NewWebhookHandler(deps.PaymentService, deps.SignatureVerifier)
	applicationHandler := NewApplicationHandler(deps.ApplicationService)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

	// --- Webhook（署名で認証） ---
	r.Post(WebhookPath, webhookHandler.HandleWebhook)

	// --- 公開ルート ---
	// ミドルウェアスタック: RateLimit(Public)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.PublicMiddleware())

		r.Post("/api/applications", applicationHandler.Submit)
		r.Post("/api/pay/lookup", applicationHandler.Lookup)
		r.Post("/api/auth/login", authHandler.Login)
		r.Post("/api/auth/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/auth/me", authHandler.Me)

		// 管理者のみ
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))

			r.Get("/applicants", adminHandler.ListApplicants)
			r.Patch("/applicants/{id}", adminHandler.UpdateApplicant)
			r.Get("/cohort", adminHandler.GetCohort)
		})
	})

	return r
}
