package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/totustuus/totus/internal/middleware"
)

// リミッター名。RateLimiterSetへの登録名と一致させること。
const (
	LimiterAuth     = "auth"
	LimiterProgress = "progress"
	LimiterGeneral  = "general"
	LimiterLibre    = "libre"
)

// DBPinger はヘルスチェック用のデータベース疎通確認インターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	RequestObserver   middleware.RequestObserver
	CORSAllowedOrigin string
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	Limiters          *middleware.RateLimiterSet

	// サービス
	AuthService      AuthServiceInterface
	UserService      UserServiceInterface
	ProgressService  ProgressServiceInterface
	DashboardService DashboardServiceInterface
	ContentService   ContentServiceInterface

	// メトリクス（nil可）
	ProgressMetrics  UpsertRecorder
	DashboardMetrics LatencyRecorder
	MetricsHandler   http.Handler

	// ヘルスチェック
	DB DBPinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → セキュリティヘッダー → リカバリー → リクエストログ
//
// 認証ルート（/api/v1/auth/*）はクライアントIPキーのauthリミッターのみ、
// 認証済みルートはBearer認証 → ユーザーIDキーのgeneralリミッターを通す。
// /health と /metrics はレート制限の対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.RequestObserver))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	progressHandler := NewProgressHandler(deps.ProgressService, deps.ProgressMetrics)
	dashboardHandler := NewDashboardHandler(deps.DashboardService, deps.DashboardMetrics)
	contentHandler := NewContentHandler(deps.ContentService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.DB))

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（クライアントIPキーでブルートフォースを抑える）
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(limiterMiddleware(deps.Limiters, LimiterAuth, middleware.ClientIPKey))

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Bearer認証 → RateLimit(general)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))
		r.Use(limiterMiddleware(deps.Limiters, LimiterGeneral, middleware.UserIDKey))

		r.Route("/api/v1/users", func(r chi.Router) {
			r.Get("/me", userHandler.GetProfile)
			r.Put("/me", userHandler.UpdateProfile)
			r.Delete("/me", userHandler.DeleteAccount)

			// GET /api/v1/users/dashboard - 進行判定の副作用を持つ読み取り
			r.Get("/dashboard", dashboardHandler.GetDashboard)

			// 進捗記録（進捗専用レート制限を追加）
			r.Get("/progress", progressHandler.ListSummaries)
			r.With(limiterMiddleware(deps.Limiters, LimiterProgress, middleware.UserIDKey)).
				Post("/progress", progressHandler.Record)

			// モード自由の切り替え（libre専用レート制限を追加）
			r.With(limiterMiddleware(deps.Limiters, LimiterLibre, middleware.UserIDKey)).
				Put("/libre-mode", userHandler.ToggleLibreMode)

			r.Put("/start-day", userHandler.SetStartDay)
		})

		r.Route("/api/v1/content", func(r chi.Router) {
			r.Get("/", contentHandler.ListAll)
			r.Get("/{day}", contentHandler.GetByDay)
		})
	})

	return r
}

// limiterMiddleware は指定名のリミッターのミドルウェアを返す。
// リミッターが登録されていない場合は素通しする。
func limiterMiddleware(set *middleware.RateLimiterSet, name string, keyFn func(r *http.Request) string) func(next http.Handler) http.Handler {
	if set == nil {
		return passthroughMiddleware
	}
	limiter := set.Get(name)
	if limiter == nil {
		return passthroughMiddleware
	}
	return limiter.Middleware(keyFn)
}

func passthroughMiddleware(next http.Handler) http.Handler {
	return next
}

// newHealthHandler はデータベース疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
