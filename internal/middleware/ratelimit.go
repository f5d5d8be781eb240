package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiterConfig は1つのリミッターインスタンスの設定を保持する。
// 保護対象の操作（ログイン、進捗送信、モード自由切替など）ごとに
// 独立したインスタンスを持ち、ウィンドウは操作間で共有しない。
type RateLimiterConfig struct {
	MaxRequests     int           // ウィンドウ内で許可する最大リクエスト数
	Window          time.Duration // スライディングウィンドウの長さ
	CleanupInterval time.Duration // 期限切れキーのクリーンアップ間隔（0なら起動しない）
}

// RateLimiter はキー（ユーザーIDまたはIPアドレス）ごとの
// スライディングウィンドウ方式のレート制限を管理する。
// ウィンドウはタイムスタンプ列の遅延刈り込みで実現し、
// 固定バケットは使用しない。
type RateLimiter struct {
	name   string
	config RateLimiterConfig

	mu      sync.Mutex
	windows map[string][]time.Time

	// now はテストで時刻を固定するための差し替えポイント。
	now func() time.Time

	// onReject は429を返した際に呼ばれるフック（メトリクス用）。
	onReject func(name string)

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// CleanupIntervalが正の場合、バックグラウンドで期限切れキーの
// クリーンアップを開始する。刈り込みはアクセス時にも行われるため、
// クリーンアップは長期間アイドルなキーのメモリを回収するための
// 補助機構にすぎない。
func NewRateLimiter(name string, config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		name:    name,
		config:  config,
		windows: make(map[string][]time.Time),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}

	return rl
}

// Name はリミッター名を返す。
func (rl *RateLimiter) Name() string {
	return rl.name
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

// OnReject は429応答時のフックを設定する。起動時の配線でのみ呼ぶこと。
func (rl *RateLimiter) OnReject(fn func(name string)) {
	rl.onReject = fn
}

// Allow はキーに対するリクエストを判定する。
// ウィンドウ開始時刻より新しいタイムスタンプのみを保持し、
// 保持数が上限に達している場合はこの試行を記録せずに拒否する
// （拒否されたリクエストはウィンドウを消費しない）。
// 許可された場合は現在時刻を記録し、残り許可数を返す。
func (rl *RateLimiter) Allow(key string) (allowed bool, remaining int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	retained := rl.pruneLocked(key, now)

	if len(retained) >= rl.config.MaxRequests {
		rl.windows[key] = retained
		return false, 0
	}

	retained = append(retained, now)
	rl.windows[key] = retained
	return true, rl.config.MaxRequests - len(retained)
}

// RetryAfterSeconds はキーが次に許可されるまでの推定秒数を返す。
// 記録されたリクエストがない場合は0を返す。
// 最古のタイムスタンプがウィンドウ外に出るまでの残り時間を
// 秒に切り捨て、0未満にはならない。
func (rl *RateLimiter) RetryAfterSeconds(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	retained := rl.pruneLocked(key, now)
	rl.windows[key] = retained

	if len(retained) == 0 {
		return 0
	}

	retryAfter := int(retained[0].Add(rl.config.Window).Sub(now).Seconds())
	if retryAfter < 0 {
		retryAfter = 0
	}
	return retryAfter
}

// KeyCount は現在管理されているキーのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) KeyCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// pruneLocked はウィンドウ開始時刻より新しいタイムスタンプのみを返す。
// 呼び出し側でmuを保持していること。
func (rl *RateLimiter) pruneLocked(key string, now time.Time) []time.Time {
	windowStart := now.Add(-rl.config.Window)
	stored := rl.windows[key]

	i := 0
	for ; i < len(stored); i++ {
		if stored[i].After(windowStart) {
			break
		}
	}
	return stored[i:]
}

// cleanupLoop はバックグラウンドで期限切れキーを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup はウィンドウ内にタイムスタンプが残っていないキーを削除する。
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key := range rl.windows {
		if len(rl.pruneLocked(key, now)) == 0 {
			delete(rl.windows, key)
		}
	}
}

// Middleware はこのリミッターを適用するHTTPミドルウェアを返す。
// keyFnがリクエストから制限キー（IPアドレスまたはユーザーID）を抽出する。
// 拒否はいかなる状態変更よりも前に行われる。
func (rl *RateLimiter) Middleware(keyFn func(r *http.Request) string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)

			allowed, _ := rl.Allow(key)
			if !allowed {
				retryAfter := rl.RetryAfterSeconds(key)
				writeRateLimitResponse(w, retryAfter)
				if rl.onReject != nil {
					rl.onReject(rl.name)
				}
				slog.Warn("rate limit exceeded",
					slog.String("limiter", rl.name),
					slog.String("key", key),
					slog.Int("retry_after", retryAfter),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPKey はリクエストの送信元IPアドレスを制限キーとして抽出する。
// X-Forwarded-Forがあれば先頭のアドレスを使用する。
func ClientIPKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDKey は認証済みコンテキストのユーザーIDを制限キーとして抽出する。
// 認証ミドルウェアの後に配置すること。未認証の場合はIPにフォールバックする。
func UserIDKey(r *http.Request) string {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		return ClientIPKey(r)
	}
	return userID
}

// RateLimiterSet は名前付きリミッターの集まり。
// 起動時に構築し、名前指定でのチェックと一括停止を提供する。
type RateLimiterSet struct {
	limiters map[string]*RateLimiter
}

// NewRateLimiterSet はRateLimiterSetを生成する。
func NewRateLimiterSet(limiters ...*RateLimiter) *RateLimiterSet {
	set := &RateLimiterSet{limiters: make(map[string]*RateLimiter)}
	for _, rl := range limiters {
		set.limiters[rl.Name()] = rl
	}
	return set
}

// Get は名前でリミッターを取得する。存在しない場合はnilを返す。
func (s *RateLimiterSet) Get(name string) *RateLimiter {
	return s.limiters[name]
}

// Check は指定リミッターでキーを判定し、許可フラグ・残り許可数・
// 再試行までの秒数を返す。リミッターが存在しない場合は常に許可する。
func (s *RateLimiterSet) Check(name, key string) (allowed bool, remaining int, retryAfterSeconds int) {
	rl, ok := s.limiters[name]
	if !ok {
		return true, 0, 0
	}
	allowed, remaining = rl.Allow(key)
	if !allowed {
		retryAfterSeconds = rl.RetryAfterSeconds(key)
	}
	return allowed, remaining, retryAfterSeconds
}

// StopAll は全リミッターのクリーンアップゴルーチンを停止する。
func (s *RateLimiterSet) StopAll() {
	for _, rl := range s.limiters {
		rl.Stop()
	}
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// 再試行までの秒数はRetry-Afterヘッダーとボディの両方に含める。
// 拒否時は残り許可数が常に0のため、remainingも0で明示する。
func writeRateLimitResponse(w http.ResponseWriter, retryAfterSec int) {
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]any{
		"code":        "RATE_LIMIT_EXCEEDED",
		"message":     "Demasiadas solicitudes. Por favor, intenta de nuevo más tarde.",
		"category":    "system",
		"action":      "Espera unos minutos antes de volver a intentarlo.",
		"retry_after": retryAfterSec,
		"remaining":   0,
	})
}
