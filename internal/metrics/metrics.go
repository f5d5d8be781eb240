// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordDayAdvanced()
	RecordRateLimitRejected(limiterName string)
	RecordProgressUpserted()
	RecordDashboardLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus        *prometheus.CounterVec
	dayAdvanced       prometheus.Counter
	rateLimitRejected *prometheus.CounterVec
	progressUpserted  prometheus.Counter
	dashboardLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "totus_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		dayAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "totus_day_advanced_total",
			Help: "現在日が進行した回数の合計",
		}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "totus_rate_limit_rejected_total",
			Help: "レート制限で拒否されたリクエスト数（リミッター別）",
		}, []string{"limiter"}),
		progressUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "totus_progress_upserts_total",
			Help: "進捗レコードのアップサート回数の合計",
		}),
		dashboardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "totus_dashboard_latency_seconds",
			Help:    "ダッシュボード組み立てのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.dayAdvanced,
		c.rateLimitRejected,
		c.progressUpserted,
		c.dashboardLatency,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordDayAdvanced は現在日の進行を記録する。
func (c *Collector) RecordDayAdvanced() {
	c.dayAdvanced.Inc()
}

// RecordRateLimitRejected はレート制限での拒否を記録する。
func (c *Collector) RecordRateLimitRejected(limiterName string) {
	c.rateLimitRejected.WithLabelValues(limiterName).Inc()
}

// RecordProgressUpserted は進捗のアップサートを記録する。
func (c *Collector) RecordProgressUpserted() {
	c.progressUpserted.Inc()
}

// RecordDashboardLatency はダッシュボード組み立てのレイテンシを記録する。
func (c *Collector) RecordDashboardLatency(duration time.Duration) {
	c.dashboardLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
