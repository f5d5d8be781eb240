package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/totustuus/totus/internal/middleware"
	"github.com/totustuus/totus/internal/model"
	"github.com/totustuus/totus/internal/progress"
)

// ProgressServiceInterface は進捗ハンドラーが必要とするサービスインターフェース。
type ProgressServiceInterface interface {
	Record(ctx context.Context, userID string, day int, flags progress.TaskFlags) (*model.DailyProgress, error)
	Summaries(ctx context.Context, userID string) ([]model.ProgressSummary, error)
}

// UpsertRecorder は進捗アップサートのメトリクス記録インターフェース。
// metrics.Collectorを直接参照せず、最小限のインターフェースとして定義する。
type UpsertRecorder interface {
	RecordProgressUpserted()
}

// ProgressHandler は日次進捗のHTTPハンドラー。
type ProgressHandler struct {
	service ProgressServiceInterface
	metrics UpsertRecorder // nilの場合は記録しない
}

// NewProgressHandler はProgressHandlerを生成する。
func NewProgressHandler(service ProgressServiceInterface, metrics UpsertRecorder) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		metrics: metrics,
	}
}

// recordProgressRequest は進捗記録リクエストのボディ。
type recordProgressRequest struct {
	Day                 int  `json:"day"`
	MeditationCompleted bool `json:"meditation_completed"`
	VideoCompleted      bool `json:"video_completed"`
	RosaryCompleted     bool `json:"rosary_completed"`
}

// progressResponse は1日分の進捗レコードのAPIレスポンス。
type progressResponse struct {
	Day                 int     `json:"day"`
	MeditationCompleted bool    `json:"meditation_completed"`
	VideoCompleted      bool    `json:"video_completed"`
	RosaryCompleted     bool    `json:"rosary_completed"`
	CompletedAt         *string `json:"completed_at"`
}

// progressSummaryResponse は33日分サマリーの1エントリ。
type progressSummaryResponse struct {
	Day                 int  `json:"day"`
	MeditationCompleted bool `json:"meditation_completed"`
	VideoCompleted      bool `json:"video_completed"`
	RosaryCompleted     bool `json:"rosary_completed"`
	TotalCompleted      int  `json:"total_completed"`
}

// Record は進捗を記録する。
// POST /api/v1/users/progress
func (h *ProgressHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req recordProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	record, err := h.service.Record(r.Context(), userID, req.Day, progress.TaskFlags{
		Meditation: req.MeditationCompleted,
		Video:      req.VideoCompleted,
		Rosary:     req.RosaryCompleted,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordProgressUpserted()
	}

	writeJSON(w, http.StatusOK, toProgressResponse(record))
}

// ListSummaries は33日分の進捗サマリーを返す。
// GET /api/v1/users/progress
func (h *ProgressHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	summaries, err := h.service.Summaries(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProgressSummaryResponses(summaries))
}

// --- ヘルパー関数 ---

// toProgressResponse はmodel.DailyProgressからAPIレスポンスに変換する。
func toProgressResponse(record *model.DailyProgress) progressResponse {
	resp := progressResponse{
		Day:                 record.Day,
		MeditationCompleted: record.MeditationCompleted,
		VideoCompleted:      record.VideoCompleted,
		RosaryCompleted:     record.RosaryCompleted,
	}
	if record.CompletedAt != nil {
		formatted := record.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &formatted
	}
	return resp
}

// toProgressSummaryResponses はサマリーのスライスをAPIレスポンスに変換する。
func toProgressSummaryResponses(summaries []model.ProgressSummary) []progressSummaryResponse {
	results := make([]progressSummaryResponse, len(summaries))
	for i, s := range summaries {
		results[i] = progressSummaryResponse{
			Day:                 s.Day,
			MeditationCompleted: s.MeditationCompleted,
			VideoCompleted:      s.VideoCompleted,
			RosaryCompleted:     s.RosaryCompleted,
			TotalCompleted:      s.TotalCompleted,
		}
	}
	return results
}
