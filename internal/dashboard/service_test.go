package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/totustuus/totus/internal/advance"
	"github.com/totustuus/totus/internal/model"
)

type mockEvaluator struct {
	evaluateFunc func(ctx context.Context, userID string, now time.Time) (*advance.Result, error)
}

func (m *mockEvaluator) Evaluate(ctx context.Context, userID string, now time.Time) (*advance.Result, error) {
	return m.evaluateFunc(ctx, userID, now)
}

type mockContentFinder struct {
	findByDayFunc func(ctx context.Context, day int) (*model.DailyContent, error)
}

func (m *mockContentFinder) FindByDay(ctx context.Context, day int) (*model.DailyContent, error) {
	return m.findByDayFunc(ctx, day)
}

type mockSummaryBuilder struct {
	summariesFunc func(ctx context.Context, userID string) ([]model.ProgressSummary, error)
}

func (m *mockSummaryBuilder) Summaries(ctx context.Context, userID string) ([]model.ProgressSummary, error) {
	return m.summariesFunc(ctx, userID)
}

func fullSummaries(completedDays int) []model.ProgressSummary {
	summaries := make([]model.ProgressSummary, 0, model.TotalDays)
	for day := 1; day <= model.TotalDays; day++ {
		s := model.ProgressSummary{Day: day}
		if day <= completedDays {
			s.MeditationCompleted = true
			s.VideoCompleted = true
			s.RosaryCompleted = true
			s.TotalCompleted = 3
		}
		summaries = append(summaries, s)
	}
	return summaries
}

func TestService_Assemble_Success(t *testing.T) {
	user := &model.User{ID: "user-1", Name: "María", CurrentDay: 5, IsActive: true}
	unlock := time.Date(2024, 1, 11, 5, 0, 0, 0, time.UTC)
	progress := &model.DailyProgress{UserID: "user-1", Day: 5, MeditationCompleted: true}

	var requestedDay int
	svc := NewService(
		&mockEvaluator{
			evaluateFunc: func(ctx context.Context, userID string, now time.Time) (*advance.Result, error) {
				return &advance.Result{User: user, ActiveDay: 5, Progress: progress, NextUnlock: &unlock}, nil
			},
		},
		&mockContentFinder{
			findByDayFunc: func(ctx context.Context, day int) (*model.DailyContent, error) {
				requestedDay = day
				return &model.DailyContent{Day: day, Title: "Día 5"}, nil
			},
		},
		&mockSummaryBuilder{
			summariesFunc: func(ctx context.Context, userID string) ([]model.ProgressSummary, error) {
				return fullSummaries(4), nil
			},
		},
	)

	view, err := svc.Assemble(context.Background(), "user-1", time.Now())
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	if view.ActiveDay != 5 {
		t.Errorf("ActiveDay = %d, want 5", view.ActiveDay)
	}
	if requestedDay != 5 {
		t.Errorf("content requested for day %d, want 5", requestedDay)
	}
	if view.Content == nil || view.Content.Title != "Día 5" {
		t.Errorf("unexpected content: %+v", view.Content)
	}
	if view.TodayProgress != progress {
		t.Error("expected today's progress to come from the engine result")
	}
	if len(view.Summaries) != model.TotalDays {
		t.Errorf("len(Summaries) = %d, want %d", len(view.Summaries), model.TotalDays)
	}
	if view.NextUnlock == nil || !view.NextUnlock.Equal(unlock) {
		t.Errorf("NextUnlock = %v, want %v", view.NextUnlock, unlock)
	}
	// 4日完了 = 12タスク / 99 = 12.12% → 12
	if view.CompletionPercentage != 12 {
		t.Errorf("CompletionPercentage = %d, want 12", view.CompletionPercentage)
	}
}

func TestService_Assemble_EngineErrorPropagates(t *testing.T) {
	svc := NewService(
		&mockEvaluator{
			evaluateFunc: func(ctx context.Context, userID string, now time.Time) (*advance.Result, error) {
				return nil, model.NewUserNotFoundError()
			},
		},
		&mockContentFinder{findByDayFunc: func(ctx context.Context, day int) (*model.DailyContent, error) {
			t.Error("content should not be fetched when evaluation fails")
			return nil, nil
		}},
		&mockSummaryBuilder{summariesFunc: func(ctx context.Context, userID string) ([]model.ProgressSummary, error) {
			return nil, nil
		}},
	)

	_, err := svc.Assemble(context.Background(), "ghost", time.Now())
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "USER_NOT_FOUND" {
		t.Errorf("code = %q, want USER_NOT_FOUND", apiErr.Code)
	}
}

func TestService_Assemble_MissingContent(t *testing.T) {
	svc := NewService(
		&mockEvaluator{
			evaluateFunc: func(ctx context.Context, userID string, now time.Time) (*advance.Result, error) {
				return &advance.Result{User: &model.User{ID: userID}, ActiveDay: 12}, nil
			},
		},
		&mockContentFinder{findByDayFunc: func(ctx context.Context, day int) (*model.DailyContent, error) {
			return nil, nil
		}},
		&mockSummaryBuilder{summariesFunc: func(ctx context.Context, userID string) ([]model.ProgressSummary, error) {
			return fullSummaries(0), nil
		}},
	)

	_, err := svc.Assemble(context.Background(), "user-1", time.Now())
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "CONTENT_NOT_FOUND" {
		t.Errorf("code = %q, want CONTENT_NOT_FOUND", apiErr.Code)
	}
}

func TestCompletionPercentage(t *testing.T) {
	tests := []struct {
		name          string
		completedDays int
		extraTasks    int
		want          int
	}{
		{name: "empty", completedDays: 0, want: 0},
		{name: "all days", completedDays: 33, want: 100},
		{name: "half rounds", completedDays: 16, extraTasks: 2, want: 51}, // 50/99 = 50.5%
		{name: "single task", completedDays: 0, extraTasks: 1, want: 1},   // 1/99 = 1.01%
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summaries := fullSummaries(tt.completedDays)
			for i := 0; i < tt.extraTasks; i++ {
				summaries[tt.completedDays+i].MeditationCompleted = true
				summaries[tt.completedDays+i].TotalCompleted = 1
			}
			if got := completionPercentage(summaries); got != tt.want {
				t.Errorf("completionPercentage = %d, want %d", got, tt.want)
			}
		})
	}
}
