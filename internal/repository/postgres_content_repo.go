package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/totustuus/totus/internal/model"
)

// PostgresContentRepo はPostgreSQLを使用した日次コンテンツリポジトリ。
type PostgresContentRepo struct {
	db Querier
}

// NewPostgresContentRepo はPostgresContentRepoを生成する。
func NewPostgresContentRepo(db Querier) *PostgresContentRepo {
	return &PostgresContentRepo{db: db}
}

const contentColumns = `id, day, title, description, video_url, rosary_video_url, meditation_pdf_url, mysteries, quote, created_at, updated_at`

// FindByDay は指定日のコンテンツを取得する。見つからない場合はnilを返す。
func (r *PostgresContentRepo) FindByDay(ctx context.Context, day int) (*model.DailyContent, error) {
	content := &model.DailyContent{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM daily_content WHERE day = $1`,
		day,
	).Scan(
		&content.ID, &content.Day, &content.Title, &content.Description,
		&content.VideoURL, &content.RosaryVideoURL, &content.MeditationPDFURL,
		&content.Mysteries, &content.Quote,
		&content.CreatedAt, &content.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find content by day: %w", err)
	}

	return content, nil
}

// ListAll は全日のコンテンツを日番号昇順で返す。
func (r *PostgresContentRepo) ListAll(ctx context.Context) ([]*model.DailyContent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM daily_content ORDER BY day ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	var list []*model.DailyContent
	for rows.Next() {
		content := &model.DailyContent{}
		if err := rows.Scan(
			&content.ID, &content.Day, &content.Title, &content.Description,
			&content.VideoURL, &content.RosaryVideoURL, &content.MeditationPDFURL,
			&content.Mysteries, &content.Quote,
			&content.CreatedAt, &content.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		list = append(list, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content rows: %w", err)
	}

	return list, nil
}

// Create はコンテンツを作成する。
func (r *PostgresContentRepo) Create(ctx context.Context, content *model.DailyContent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO daily_content (id, day, title, description, video_url, rosary_video_url, meditation_pdf_url, mysteries, quote, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		content.ID, content.Day, content.Title, content.Description,
		content.VideoURL, content.RosaryVideoURL, content.MeditationPDFURL,
		content.Mysteries, content.Quote,
		content.CreatedAt, content.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert content: %w", err)
	}
	return nil
}

// CountAll はコンテンツ件数を返す。
func (r *PostgresContentRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM daily_content`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count content: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ ContentRepository = (*PostgresContentRepo)(nil)
