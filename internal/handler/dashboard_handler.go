package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/totustuus/totus/internal/dashboard"
	"github.com/totustuus/totus/internal/middleware"
	"github.com/totustuus/totus/internal/model"
)

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	Assemble(ctx context.Context, userID string, now time.Time) (*dashboard.View, error)
}

// LatencyRecorder はダッシュボード組み立てのレイテンシ記録インターフェース。
type LatencyRecorder interface {
	RecordDashboardLatency(duration time.Duration)
}

// DashboardHandler はダッシュボードのHTTPハンドラー。
// GETだが進行判定の副作用を持つ。進行はサービス層のトランザクションで
// 通常の書き込みと同じ規律のもとに行われる。
type DashboardHandler struct {
	service DashboardServiceInterface
	metrics LatencyRecorder // nilの場合は記録しない
	now     func() time.Time
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(service DashboardServiceInterface, metrics LatencyRecorder) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		metrics: metrics,
		now:     time.Now,
	}
}

// contentResponse は日別コンテンツのAPIレスポンス。
type contentResponse struct {
	Day              int    `json:"day"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	VideoURL         string `json:"video_url"`
	RosaryVideoURL   string `json:"rosary_video_url"`
	MeditationPDFURL string `json:"meditation_pdf_url"`
	Mysteries        string `json:"mysteries"`
	Quote            string `json:"quote"`
}

// dashboardResponse はダッシュボードのAPIレスポンス。
type dashboardResponse struct {
	User                 userResponse              `json:"user"`
	ActiveDay            int                       `json:"active_day"`
	Content              contentResponse           `json:"content"`
	TodayProgress        progressResponse          `json:"today_progress"`
	Summaries            []progressSummaryResponse `json:"summaries"`
	CompletionPercentage int                       `json:"completion_percentage"`
	NextUnlock           *string                   `json:"next_unlock"`
}

// GetDashboard はダッシュボードビューを返す。
// GET /api/v1/users/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	start := h.now()
	view, err := h.service.Assemble(r.Context(), userID, start)
	if h.metrics != nil {
		h.metrics.RecordDashboardLatency(h.now().Sub(start))
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardResponse(view))
}

// --- ヘルパー関数 ---

// toContentResponse はmodel.DailyContentからAPIレスポンスに変換する。
func toContentResponse(content *model.DailyContent) contentResponse {
	return contentResponse{
		Day:              content.Day,
		Title:            content.Title,
		Description:      content.Description,
		VideoURL:         content.VideoURL,
		RosaryVideoURL:   content.RosaryVideoURL,
		MeditationPDFURL: content.MeditationPDFURL,
		Mysteries:        content.Mysteries,
		Quote:            content.Quote,
	}
}

// toDashboardResponse はdashboard.ViewからAPIレスポンスに変換する。
// next_unlockは存在する場合のみRFC 3339のUTC表記で返す。
func toDashboardResponse(view *dashboard.View) dashboardResponse {
	resp := dashboardResponse{
		User:                 toUserResponse(view.User),
		ActiveDay:            view.ActiveDay,
		Content:              toContentResponse(view.Content),
		TodayProgress:        toProgressResponse(view.TodayProgress),
		Summaries:            toProgressSummaryResponses(view.Summaries),
		CompletionPercentage: view.CompletionPercentage,
	}
	if view.NextUnlock != nil {
		formatted := view.NextUnlock.UTC().Format(time.RFC3339)
		resp.NextUnlock = &formatted
	}
	return resp
}
