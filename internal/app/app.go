// Package app はアプリケーションの起動とワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/totustuus/totus/internal/advance"
	"github.com/totustuus/totus/internal/auth"
	"github.com/totustuus/totus/internal/config"
	"github.com/totustuus/totus/internal/content"
	"github.com/totustuus/totus/internal/dashboard"
	"github.com/totustuus/totus/internal/database"
	"github.com/totustuus/totus/internal/handler"
	"github.com/totustuus/totus/internal/logger"
	"github.com/totustuus/totus/internal/metrics"
	"github.com/totustuus/totus/internal/middleware"
	"github.com/totustuus/totus/internal/progress"
	"github.com/totustuus/totus/internal/repository"
	"github.com/totustuus/totus/internal/security"
	"github.com/totustuus/totus/internal/user"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.DebugMode)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("debug_mode", cfg.DebugMode),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリとトランザクションランナーの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	progressRepo := repository.NewPostgresProgressRepo(db)
	contentRepo := repository.NewPostgresContentRepo(db)
	txRunner := repository.NewPostgresTxRunner(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	tokenMaker := auth.NewMaker(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := auth.NewService(userRepo, txRunner, tokenMaker)

	engine := advance.NewEngine(txRunner, cfg.DebugMode)
	engine.OnAdvance(collector.RecordDayAdvanced)

	progressService := progress.NewService(progressRepo, userRepo)
	contentService := content.NewService(contentRepo)
	dashboardService := dashboard.NewService(engine, contentRepo, progressService)
	userService := user.NewService(userRepo, txRunner)

	// 5. レートリミッターの初期化
	// auth はクライアントIP、それ以外はユーザーIDをキーにする
	limiters := middleware.NewRateLimiterSet(
		newLimiter(handler.LimiterAuth, cfg.RateLimitAuth, cfg.RateLimitWindow, collector),
		newLimiter(handler.LimiterProgress, cfg.RateLimitProgress, cfg.RateLimitWindow, collector),
		newLimiter(handler.LimiterGeneral, cfg.RateLimitGeneral, cfg.RateLimitWindow, collector),
		newLimiter(handler.LimiterLibre, cfg.RateLimitLibre, cfg.RateLimitLibreWindow, collector),
	)
	defer limiters.StopAll()

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		Logger: slog.Default(),
		RequestObserver: func(method, path string, status int, duration time.Duration) {
			collector.RecordHTTPStatus(status)
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TokenVerifier:     tokenMaker,
		UserFinder:        userRepo,
		Limiters:          limiters,

		AuthService:      authService,
		UserService:      userService,
		ProgressService:  progressService,
		DashboardService: dashboardService,
		ContentService:   contentService,

		ProgressMetrics:  collector,
		DashboardMetrics: collector,
		MetricsHandler:   metrics.Handler(registry),

		DB: db,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newLimiter はレートリミッターを生成し、拒否メトリクスのフックを設定する。
func newLimiter(name string, maxRequests int, window time.Duration, collector *metrics.Collector) *middleware.RateLimiter {
	limiter := middleware.NewRateLimiter(name, middleware.RateLimiterConfig{
		MaxRequests:     maxRequests,
		Window:          window,
		CleanupInterval: 10 * time.Minute,
	})
	limiter.OnReject(collector.RecordRateLimitRejected)
	return limiter
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed は日別コンテンツのシード投入を実行する。
// テーブルが空の場合のみ、ContentFileのJSONから33日分を投入する。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	contentRepo := repository.NewPostgresContentRepo(db)
	loader := content.NewLoader(contentRepo, security.NewContentSanitizer())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := loader.SeedFromFile(ctx, cfg.ContentFile); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
