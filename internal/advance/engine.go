// Package advance は日次進行の状態機械を提供する。
// ダッシュボード参照のたびに現在日を評価し、条件を満たす場合は
// 次の日へ進める。進行判定はユーザー行の行ロック下で直列化する。
package advance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/totustuus/totus/internal/model"
	"github.com/totustuus/totus/internal/repository"
)

// referenceZone は解放時刻の計算に使う固定基準タイムゾーン。
// ユーザーやサーバーのロケールに依存させない意図的なプロダクト仕様であり、
// 設定可能にしないこと。
const referenceZone = "America/Lima"

// limaLocation は基準タイムゾーンのLocation。
// tzdataが利用できない環境向けにUTC-5の固定オフセットへフォールバックする
// （Limaは夏時間を持たないため固定オフセットで等価）。
var limaLocation = loadReferenceZone()

func loadReferenceZone() *time.Location {
	loc, err := time.LoadLocation(referenceZone)
	if err != nil {
		return time.FixedZone(referenceZone, -5*60*60)
	}
	return loc
}

// Result は進行評価の結果。
type Result struct {
	// User は評価後のユーザー（進行した場合はCurrentDay更新済み）。
	User *model.User
	// ActiveDay は評価後の現在日。常にUser.CurrentDayと一致する。
	ActiveDay int
	// Progress は現在日の進捗レコード。存在しなかった場合はシード済み。
	Progress *model.DailyProgress
	// NextUnlock は次の日が解放されるUTC時刻。
	// 「通常モードで当日完了済み、かつタイマー待ち」の場合のみ非nil。
	NextUnlock *time.Time
}

// Engine は日次進行の判定と永続化を行う。
type Engine struct {
	txRunner repository.TxRunner

	// debugOverride は全ユーザーのクールダウンを無効化する検証用フラグ。
	debugOverride bool

	// onAdvance は進行が永続化された後に呼ばれるフック（メトリクス用）。
	onAdvance func()
}

// OnAdvance は進行確定時のフックを登録する。トランザクションの
// コールバック内から呼ばれるため、軽量な処理に限ること。
func (e *Engine) OnAdvance(fn func()) {
	e.onAdvance = fn
}

// NewEngine はEngineを生成する。
func NewEngine(txRunner repository.TxRunner, debugOverride bool) *Engine {
	return &Engine{
		txRunner:      txRunner,
		debugOverride: debugOverride,
	}
}

// Evaluate はユーザーの現在日を評価し、必要なら進行させる。
// 評価全体（進捗の参照・シード・現在日の更新）は単一トランザクションで行い、
// 同一ユーザーへの並行評価は行ロックで直列化する。冪等であり、
// 繰り返し呼んでも結果は変わらない。
func (e *Engine) Evaluate(ctx context.Context, userID string, now time.Time) (*Result, error) {
	var result *Result

	err := e.txRunner.RunInTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		user, err := repos.Users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to lock user row: %w", err)
		}
		if user == nil {
			return model.NewUserNotFoundError()
		}

		day := clampDay(user.CurrentDay)

		progress, err := findOrSeedProgress(ctx, repos.Progress, userID, day)
		if err != nil {
			return err
		}

		dayComplete := progress.AllCompleted() && progress.CompletedAt != nil

		// 未完了または終端日（33日目）は進行しない
		if !dayComplete || day == model.TotalDays {
			result = &Result{User: user, ActiveDay: day, Progress: progress, NextUnlock: nil}
			return nil
		}

		// デバッグ上書きまたはモード自由では即時進行
		if e.debugOverride || user.LibreMode {
			return e.advance(ctx, repos, user, day, &result)
		}

		// 通常モード: 完了時刻の翌日の基準タイムゾーン深夜0時が解放時刻
		unlock := nextUnlockAfter(*progress.CompletedAt)
		if now.Before(unlock) {
			result = &Result{User: user, ActiveDay: day, Progress: progress, NextUnlock: &unlock}
			return nil
		}

		return e.advance(ctx, repos, user, day, &result)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// advance は現在日を1日進め、新しい現在日の進捗をシードする。
// 呼び出し元のトランザクション内で実行されること。
func (e *Engine) advance(ctx context.Context, repos repository.TxRepos, user *model.User, day int, result **Result) error {
	newDay := clampDay(day + 1)

	if err := repos.Users.UpdateCurrentDay(ctx, user.ID, newDay); err != nil {
		return fmt.Errorf("failed to advance current day: %w", err)
	}
	user.CurrentDay = newDay

	progress, err := findOrSeedProgress(ctx, repos.Progress, user.ID, newDay)
	if err != nil {
		return err
	}

	slog.Info("day advanced",
		slog.String("user_id", user.ID),
		slog.Int("from_day", day),
		slog.Int("to_day", newDay),
		slog.Bool("libre_mode", user.LibreMode),
		slog.Bool("debug_override", e.debugOverride),
	)

	if e.onAdvance != nil {
		e.onAdvance()
	}

	*result = &Result{User: user, ActiveDay: newDay, Progress: progress, NextUnlock: nil}
	return nil
}

// findOrSeedProgress は指定日の進捗を取得し、存在しない場合は
// 全タスク未完了のレコードを作成する（冪等なシード）。
func findOrSeedProgress(ctx context.Context, repo repository.ProgressRepository, userID string, day int) (*model.DailyProgress, error) {
	progress, err := repo.FindByUserAndDay(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to find progress: %w", err)
	}
	if progress != nil {
		return progress, nil
	}

	progress = &model.DailyProgress{
		ID:     uuid.New().String(),
		UserID: userID,
		Day:    day,
	}
	if err := repo.Create(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to seed progress: %w", err)
	}
	return progress, nil
}

// nextUnlockAfter は完了時刻に対する解放時刻を返す。
// 完了時刻を基準タイムゾーンへ変換し、その翌暦日の深夜0時を
// UTCへ戻した時刻が解放時刻となる。
// 「完了から+24時間」ではなく「翌日の深夜0時」とすることで、
// 早い時間に完了したユーザーほど待ち時間が短くなる。これは意図的な仕様。
func nextUnlockAfter(completedAt time.Time) time.Time {
	local := completedAt.In(limaLocation)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, limaLocation)
	return midnight.UTC()
}

// clampDay は日番号を1..33の範囲に丸める。
func clampDay(day int) int {
	if day < 1 {
		return 1
	}
	if day > model.TotalDays {
		return model.TotalDays
	}
	return day
}
