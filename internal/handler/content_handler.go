package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/totustuus/totus/internal/model"
)

// ContentServiceInterface はコンテンツハンドラーが必要とするサービスインターフェース。
type ContentServiceInterface interface {
	GetByDay(ctx context.Context, day int) (*model.DailyContent, error)
	ListAll(ctx context.Context) ([]*model.DailyContent, error)
}

// ContentHandler は日別コンテンツのHTTPハンドラー。
type ContentHandler struct {
	service ContentServiceInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(service ContentServiceInterface) *ContentHandler {
	return &ContentHandler{service: service}
}

// GetByDay は指定日のコンテンツを返す。
// GET /api/v1/content/{day}
func (h *ContentHandler) GetByDay(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDayError(0))
		return
	}

	content, err := h.service.GetByDay(r.Context(), day)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toContentResponse(content))
}

// ListAll は全33日分のコンテンツを返す。
// GET /api/v1/content
func (h *ContentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	contents, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]contentResponse, len(contents))
	for i, c := range contents {
		results[i] = toContentResponse(c)
	}

	writeJSON(w, http.StatusOK, results)
}
