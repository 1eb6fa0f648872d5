package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/taskdeck/internal/metrics"
	"github.com/hitoshi/taskdeck/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// sql.DBの部分集合として定義する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	TokenResolver     middleware.UserResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス
	MetricsCollector *metrics.Collector
	MetricsGatherer  prometheus.Gatherer

	// 認証
	AuthService    AuthServiceInterface
	WebAuthService WebAuthServiceInterface
	WebAuthConfig  WebAuthHandlerConfig

	// タスク
	TaskServiceV1 TaskServiceInterface
	TaskServiceV2 TaskServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging → (ルートごとの認証・レート制限)
//
// /api/v1/tasks 以下は認証を一切行わない。v2が所有者スコープで完全に保護される一方で
// v1が無認可のまま残るのは意図されたAPI進化であり、揃えてはならない。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.MetricsCollector != nil {
		r.Use(metrics.NewHTTPMiddleware(deps.MetricsCollector))
	}
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	webAuthHandler := NewWebAuthHandler(deps.WebAuthService, deps.WebAuthConfig)
	taskV1Handler := NewTaskHandler(deps.TaskServiceV1)
	taskV2Handler := NewTaskHandler(deps.TaskServiceV2)

	tokenMiddleware := middleware.NewTokenMiddleware(deps.TokenResolver)

	// --- 運用エンドポイント ---

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- トークン認証（API向け） ---

	r.Route("/api/auth", func(r chi.Router) {
		// ログイン・登録には総当たり対策の専用レート制限を追加
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)

		r.With(tokenMiddleware).Post("/logout", authHandler.Logout)
	})

	r.With(tokenMiddleware, deps.RateLimiter.GeneralMiddleware()).
		Get("/api/user", authHandler.Me)

	// --- セッション認証（ブラウザ向け） ---

	r.Route("/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", webAuthHandler.Register)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", webAuthHandler.Login)
		r.Post("/logout", webAuthHandler.Logout)
		r.With(deps.RateLimiter.GeneralMiddleware()).Get("/user", webAuthHandler.Me)
	})

	// --- v1 API: 認証なし・グローバルスコープ ---

	r.Route("/api/v1/tasks", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", taskV1Handler.List)
		r.Post("/", taskV1Handler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", taskV1Handler.Get)
			r.Put("/", taskV1Handler.Update)
			r.Delete("/", taskV1Handler.Delete)
			r.Patch("/complete", taskV1Handler.Complete)
		})
	})

	// --- v2 API: トークン認証・所有者スコープ ---

	r.Route("/api/v2/tasks", func(r chi.Router) {
		r.Use(tokenMiddleware)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/", taskV2Handler.List)
		r.Post("/", taskV2Handler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", taskV2Handler.Get)
			r.Put("/", taskV2Handler.Update)
			r.Delete("/", taskV2Handler.Delete)
			r.Patch("/complete", taskV2Handler.Complete)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
