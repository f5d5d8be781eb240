package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/totustuus/totus/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db Querier
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
// dbには*sql.DBまたはトランザクション内で使う場合は*sql.Txを渡す。
func NewPostgresUserRepo(db Querier) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, name, email, password_hash, current_day, start_day, has_chosen_start_day, libre_mode, start_date, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.CurrentDay, &user.StartDay, &user.HasChosenStartDay,
		&user.LibreMode, &user.StartDate, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByIDForUpdate は指定IDのユーザーを行ロック付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID for update: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, current_day, start_day, has_chosen_start_day, libre_mode, start_date, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.CurrentDay, user.StartDay, user.HasChosenStartDay,
		user.LibreMode, user.StartDate, user.IsActive,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateProfile は名前とメールアドレスを更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id, name, email string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, updated_at = now() WHERE id = $1`,
		id, name, email,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return requireRowAffected(result, "user", id)
}

// UpdateCurrentDay は現在日を更新する。
func (r *PostgresUserRepo) UpdateCurrentDay(ctx context.Context, id string, currentDay int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET current_day = $2, updated_at = now() WHERE id = $1`,
		id, currentDay,
	)
	if err != nil {
		return fmt.Errorf("failed to update current day: %w", err)
	}
	return requireRowAffected(result, "user", id)
}

// UpdateLibreMode はモード自由フラグを更新する。
func (r *PostgresUserRepo) UpdateLibreMode(ctx context.Context, id string, libreMode bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET libre_mode = $2, updated_at = now() WHERE id = $1`,
		id, libreMode,
	)
	if err != nil {
		return fmt.Errorf("failed to update libre mode: %w", err)
	}
	return requireRowAffected(result, "user", id)
}

// SetStartDay は開始日を設定し、has_chosen_start_dayを立てる。
func (r *PostgresUserRepo) SetStartDay(ctx context.Context, id string, startDay int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET start_day = $2, has_chosen_start_day = TRUE, updated_at = now() WHERE id = $1`,
		id, startDay,
	)
	if err != nil {
		return fmt.Errorf("failed to set start day: %w", err)
	}
	return requireRowAffected(result, "user", id)
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するdaily_progressはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(result, "user", id)
}

// requireRowAffected は更新・削除が1行以上に作用したことを確認する。
func requireRowAffected(result sql.Result, entity, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
