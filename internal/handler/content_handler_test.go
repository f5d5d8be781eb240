package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/totustuus/totus/internal/model"
)

type mockContentService struct {
	getByDayFunc func(ctx context.Context, day int) (*model.DailyContent, error)
	listAllFunc  func(ctx context.Context) ([]*model.DailyContent, error)
}

func (m *mockContentService) GetByDay(ctx context.Context, day int) (*model.DailyContent, error) {
	return m.getByDayFunc(ctx, day)
}

func (m *mockContentService) ListAll(ctx context.Context) ([]*model.DailyContent, error) {
	return m.listAllFunc(ctx)
}

// contentRouter はURLパラメータの解決にchiのルーティングを通す。
func contentRouter(h *ContentHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/content", h.ListAll)
	r.Get("/api/v1/content/{day}", h.GetByDay)
	return r
}

func TestContentHandler_GetByDay(t *testing.T) {
	router := contentRouter(NewContentHandler(&mockContentService{
		getByDayFunc: func(ctx context.Context, day int) (*model.DailyContent, error) {
			return &model.DailyContent{Day: day, Title: "Día 7: La humildad", Mysteries: "Gozosos"}, nil
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp contentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Day != 7 || resp.Mysteries != "Gozosos" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestContentHandler_GetByDay_NonNumeric(t *testing.T) {
	router := contentRouter(NewContentHandler(&mockContentService{
		getByDayFunc: func(ctx context.Context, day int) (*model.DailyContent, error) {
			t.Error("service should not be called for a non-numeric day")
			return nil, nil
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestContentHandler_GetByDay_NotFound(t *testing.T) {
	router := contentRouter(NewContentHandler(&mockContentService{
		getByDayFunc: func(ctx context.Context, day int) (*model.DailyContent, error) {
			return nil, model.NewContentNotFoundError(day)
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/13", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestContentHandler_ListAll(t *testing.T) {
	router := contentRouter(NewContentHandler(&mockContentService{
		listAllFunc: func(ctx context.Context) ([]*model.DailyContent, error) {
			return []*model.DailyContent{
				{Day: 1, Title: "Día 1"},
				{Day: 2, Title: "Día 2"},
			}, nil
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp []contentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("len = %d, want 2", len(resp))
	}
}
