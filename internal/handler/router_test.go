package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/totustuus/totus/internal/auth"
	"github.com/totustuus/totus/internal/dashboard"
	"github.com/totustuus/totus/internal/middleware"
	"github.com/totustuus/totus/internal/model"
)

type staticTokenVerifier struct {
	userID string
}

func (v staticTokenVerifier) VerifyAccessToken(token string) (string, error) {
	if token != "valid-token" {
		return "", model.NewUnauthorizedError()
	}
	return v.userID, nil
}

type staticUserFinder struct {
	user *model.User
}

func (f staticUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	if f.user != nil && f.user.ID == id {
		return f.user, nil
	}
	return nil, nil
}

type pingOK struct{}

func (pingOK) PingContext(ctx context.Context) error { return nil }

func testRouterDeps(limiters *middleware.RateLimiterSet) *RouterDeps {
	activeUser := &model.User{ID: "user-1", Name: "María", Email: "maria@gmail.com", CurrentDay: 1, IsActive: true}

	return &RouterDeps{
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		CORSAllowedOrigin: "http://localhost:5173",
		TokenVerifier:     staticTokenVerifier{userID: "user-1"},
		UserFinder:        staticUserFinder{user: activeUser},
		Limiters:          limiters,
		AuthService: &mockAuthService{
			loginFunc: func(ctx context.Context, email, password string) (*auth.AuthResult, error) {
				return testAuthResult(), nil
			},
		},
		UserService: &mockUserService{
			getProfileFunc: func(ctx context.Context, userID string) (*model.User, error) {
				return activeUser, nil
			},
		},
		ProgressService: &mockProgressService{
			summariesFunc: func(ctx context.Context, userID string) ([]model.ProgressSummary, error) {
				return make([]model.ProgressSummary, model.TotalDays), nil
			},
		},
		DashboardService: &mockDashboardService{
			assembleFunc: func(ctx context.Context, userID string, now time.Time) (*dashboard.View, error) {
				return testDashboardView(nil), nil
			},
		},
		ContentService: &mockContentService{
			getByDayFunc: func(ctx context.Context, day int) (*model.DailyContent, error) {
				return &model.DailyContent{Day: day, Title: "Día"}, nil
			},
		},
		DB: pingOK{},
	}
}

func TestRouter_Health(t *testing.T) {
	router := NewRouter(testRouterDeps(nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_ProtectedRouteRequiresToken(t *testing.T) {
	router := NewRouter(testRouterDeps(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRouter_ProtectedRouteWithToken(t *testing.T) {
	router := NewRouter(testRouterDeps(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_DashboardRoute(t *testing.T) {
	router := NewRouter(testRouterDeps(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/dashboard", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"active_day":5`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_AuthRateLimit(t *testing.T) {
	authLimiter := middleware.NewRateLimiter(LimiterAuth, middleware.RateLimiterConfig{
		MaxRequests: 2,
		Window:      5 * time.Minute,
	})
	limiters := middleware.NewRateLimiterSet(authLimiter)
	defer limiters.StopAll()

	router := NewRouter(testRouterDeps(limiters))

	body := `{"email":"maria@gmail.com","password":"secreto123"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if !strings.Contains(rec.Body.String(), model.ErrCodeRateLimitExceeded) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_HealthExemptFromRateLimit(t *testing.T) {
	generalLimiter := middleware.NewRateLimiter(LimiterGeneral, middleware.RateLimiterConfig{
		MaxRequests: 1,
		Window:      5 * time.Minute,
	})
	limiters := middleware.NewRateLimiterSet(generalLimiter)
	defer limiters.StopAll()

	router := NewRouter(testRouterDeps(limiters))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}
