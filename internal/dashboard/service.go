// Package dashboard はダッシュボードの読み取りモデルを組み立てる。
// 進行判定エンジンの評価結果・当日のコンテンツ・33日分の進捗サマリーを
// 1つのビューに合成する。状態は持たない。
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/totustuus/totus/internal/advance"
	"github.com/totustuus/totus/internal/model"
)

// AdvancementEvaluator は進行判定エンジンへの依存。
type AdvancementEvaluator interface {
	Evaluate(ctx context.Context, userID string, now time.Time) (*advance.Result, error)
}

// ContentFinder は日別コンテンツの参照。
type ContentFinder interface {
	FindByDay(ctx context.Context, day int) (*model.DailyContent, error)
}

// SummaryBuilder は33日分の進捗サマリーを提供する。
type SummaryBuilder interface {
	Summaries(ctx context.Context, userID string) ([]model.ProgressSummary, error)
}

// View はダッシュボード1回分の読み取りモデル。
// 注意: この読み取りは副作用を持つ。評価の過程でcurrent_dayが進行
// することがある（進行はエンジン内のトランザクションで完結する）。
type View struct {
	User                 *model.User
	ActiveDay            int
	Content              *model.DailyContent
	TodayProgress        *model.DailyProgress
	Summaries            []model.ProgressSummary
	CompletionPercentage int
	NextUnlock           *time.Time
}

// Service はダッシュボードの組み立てを行う。
type Service struct {
	engine    AdvancementEvaluator
	contents  ContentFinder
	summaries SummaryBuilder
}

// NewService は新しいServiceを生成する。
func NewService(engine AdvancementEvaluator, contents ContentFinder, summaries SummaryBuilder) *Service {
	return &Service{
		engine:    engine,
		contents:  contents,
		summaries: summaries,
	}
}

// Assemble はユーザーのダッシュボードビューを組み立てる。
// エンジン評価（進行判定と必要なら進行の永続化）→ 当日コンテンツの取得
// → 33日分サマリーの構築の順に実行する。
func (s *Service) Assemble(ctx context.Context, userID string, now time.Time) (*View, error) {
	result, err := s.engine.Evaluate(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	content, err := s.contents.FindByDay(ctx, result.ActiveDay)
	if err != nil {
		return nil, fmt.Errorf("fetch content for day %d: %w", result.ActiveDay, err)
	}
	if content == nil {
		slog.Warn("daily content missing for active day",
			"user_id", userID,
			"day", result.ActiveDay,
		)
		return nil, model.NewContentNotFoundError(result.ActiveDay)
	}

	summaries, err := s.summaries.Summaries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build progress summaries: %w", err)
	}

	return &View{
		User:                 result.User,
		ActiveDay:            result.ActiveDay,
		Content:              content,
		TodayProgress:        result.Progress,
		Summaries:            summaries,
		CompletionPercentage: completionPercentage(summaries),
		NextUnlock:           result.NextUnlock,
	}, nil
}

// completionPercentage は全33日・各3タスクの達成率（0〜100）を返す。
// 分母は33日 × 3タスク = 99。四捨五入して整数で返す。
func completionPercentage(summaries []model.ProgressSummary) int {
	total := 0
	for _, s := range summaries {
		total += s.TotalCompleted
	}
	return int(math.Round(100 * float64(total) / float64(model.TotalDays*3)))
}
