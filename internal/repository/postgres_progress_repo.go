package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/totustuus/totus/internal/model"
)

// PostgresProgressRepo はPostgreSQLを使用した日次進捗リポジトリ。
type PostgresProgressRepo struct {
	db Querier
}

// NewPostgresProgressRepo はPostgresProgressRepoを生成する。
func NewPostgresProgressRepo(db Querier) *PostgresProgressRepo {
	return &PostgresProgressRepo{db: db}
}

const progressColumns = `id, user_id, day, meditation_completed, video_completed, rosary_completed, completed_at`

// FindByUserAndDay はユーザーIDと日番号で進捗を取得する。見つからない場合はnilを返す。
func (r *PostgresProgressRepo) FindByUserAndDay(ctx context.Context, userID string, day int) (*model.DailyProgress, error) {
	progress := &model.DailyProgress{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM daily_progress WHERE user_id = $1 AND day = $2`,
		userID, day,
	).Scan(
		&progress.ID, &progress.UserID, &progress.Day,
		&progress.MeditationCompleted, &progress.VideoCompleted, &progress.RosaryCompleted,
		&progress.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find progress by user and day: %w", err)
	}

	return progress, nil
}

// ListByUserID はユーザーの全進捗を日番号昇順で返す。
func (r *PostgresProgressRepo) ListByUserID(ctx context.Context, userID string) ([]*model.DailyProgress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM daily_progress WHERE user_id = $1 ORDER BY day ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var list []*model.DailyProgress
	for rows.Next() {
		progress := &model.DailyProgress{}
		if err := rows.Scan(
			&progress.ID, &progress.UserID, &progress.Day,
			&progress.MeditationCompleted, &progress.VideoCompleted, &progress.RosaryCompleted,
			&progress.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		list = append(list, progress)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress rows: %w", err)
	}

	return list, nil
}

// Create は進捗レコードを作成する。
func (r *PostgresProgressRepo) Create(ctx context.Context, progress *model.DailyProgress) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO daily_progress (id, user_id, day, meditation_completed, video_completed, rosary_completed, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		progress.ID, progress.UserID, progress.Day,
		progress.MeditationCompleted, progress.VideoCompleted, progress.RosaryCompleted,
		progress.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert progress: %w", err)
	}
	return nil
}

// Upsert は進捗を冪等にUPSERTする。(user_id, day)をキーに、
// タスクフラグとcompleted_atを上書きする。
func (r *PostgresProgressRepo) Upsert(ctx context.Context, progress *model.DailyProgress) (*model.DailyProgress, error) {
	result := &model.DailyProgress{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO daily_progress (id, user_id, day, meditation_completed, video_completed, rosary_completed, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, day) DO UPDATE SET
		     meditation_completed = EXCLUDED.meditation_completed,
		     video_completed = EXCLUDED.video_completed,
		     rosary_completed = EXCLUDED.rosary_completed,
		     completed_at = EXCLUDED.completed_at,
		     updated_at = now()
		 RETURNING `+progressColumns,
		progress.ID, progress.UserID, progress.Day,
		progress.MeditationCompleted, progress.VideoCompleted, progress.RosaryCompleted,
		progress.CompletedAt,
	).Scan(
		&result.ID, &result.UserID, &result.Day,
		&result.MeditationCompleted, &result.VideoCompleted, &result.RosaryCompleted,
		&result.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert progress: %w", err)
	}

	return result, nil
}

// compile-time interface check
var _ ProgressRepository = (*PostgresProgressRepo)(nil)
