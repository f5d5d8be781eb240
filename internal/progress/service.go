// Package progress は日次タスクの記録と進捗サマリーの構築を提供する。
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/totustuus/totus/internal/model"
	"github.com/totustuus/totus/internal/repository"
)

// TaskFlags は1日分の3タスクの達成状況の入力。
type TaskFlags struct {
	Meditation bool
	Video      bool
	Rosary     bool
}

// Service は日次進捗に関するビジネスロジックを提供する。
type Service struct {
	progressRepo repository.ProgressRepository
	userRepo     repository.UserRepository

	// now はテストで時刻を固定するための差し替えポイント。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(progressRepo repository.ProgressRepository, userRepo repository.UserRepository) *Service {
	return &Service{
		progressRepo: progressRepo,
		userRepo:     userRepo,
		now:          time.Now,
	}
}

// Record はユーザーの指定日のタスク達成状況を記録する。
// dayが1..33の範囲外の場合はINVALID_DAYエラーを返す。
// completed_atは次のように再計算する:
//   - 3タスクすべて完了かつ既存のcompleted_atがnil → 現在時刻を設定
//   - 3タスクすべて完了かつ既存のcompleted_atが非nil → 既存値を維持
//   - いずれかのタスクが未完了 → 無条件でnilにクリア
//     （タスクのチェックを外すとその日の完了が取り消される）
func (s *Service) Record(ctx context.Context, userID string, day int, flags TaskFlags) (*model.DailyProgress, error) {
	if day < 1 || day > model.TotalDays {
		return nil, model.NewInvalidDayError(day)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	existing, err := s.progressRepo.FindByUserAndDay(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to find existing progress: %w", err)
	}

	progress := &model.DailyProgress{
		UserID:              userID,
		Day:                 day,
		MeditationCompleted: flags.Meditation,
		VideoCompleted:      flags.Video,
		RosaryCompleted:     flags.Rosary,
	}

	if existing != nil {
		progress.ID = existing.ID
	} else {
		progress.ID = uuid.New().String()
	}

	if progress.AllCompleted() {
		if existing != nil && existing.CompletedAt != nil {
			// 完了済みの日の再送信では完了時刻を維持する
			progress.CompletedAt = existing.CompletedAt
		} else {
			now := s.now()
			progress.CompletedAt = &now
		}
	}

	updated, err := s.progressRepo.Upsert(ctx, progress)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert progress: %w", err)
	}

	slog.Info("progress recorded",
		slog.String("user_id", userID),
		slog.Int("day", day),
		slog.Int("completed_tasks", updated.CompletedCount()),
		slog.Bool("day_complete", updated.AllCompleted()),
	)

	return updated, nil
}

// Summaries はユーザーの全33日分の進捗サマリーを日番号順で返す。
// レコードが存在しない日はすべて未完了として扱う。
func (s *Service) Summaries(ctx context.Context, userID string) ([]model.ProgressSummary, error) {
	list, err := s.progressRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	byDay := make(map[int]*model.DailyProgress, len(list))
	for _, p := range list {
		byDay[p.Day] = p
	}

	summaries := make([]model.ProgressSummary, 0, model.TotalDays)
	for day := 1; day <= model.TotalDays; day++ {
		summary := model.ProgressSummary{Day: day}
		if p, ok := byDay[day]; ok {
			summary.MeditationCompleted = p.MeditationCompleted
			summary.VideoCompleted = p.VideoCompleted
			summary.RosaryCompleted = p.RosaryCompleted
			summary.TotalCompleted = p.CompletedCount()
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}
