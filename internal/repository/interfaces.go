// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/totustuus/totus/internal/model"
)

// Querier はクエリ実行のインターフェース。
// *sql.DB と *sql.Tx の両方が満たすため、同じリポジトリ実装を
// トランザクション内外で使い回せる。
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByIDForUpdate は指定IDのユーザーを行ロック付きで取得する。
	// 日次進行の判定をトランザクション内で直列化するために使用する。
	// 見つからない場合はnilを返す。
	FindByIDForUpdate(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile は名前とメールアドレスを更新する。
	UpdateProfile(ctx context.Context, id, name, email string) error

	// UpdateCurrentDay は現在日を更新する。
	UpdateCurrentDay(ctx context.Context, id string, currentDay int) error

	// UpdateLibreMode はモード自由（クールダウン無効化）フラグを更新する。
	UpdateLibreMode(ctx context.Context, id string, libreMode bool) error

	// SetStartDay は開始日を設定し、has_chosen_start_dayを立てる。
	SetStartDay(ctx context.Context, id string, startDay int) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するdaily_progressはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// ProgressRepository は日次進捗データの永続化インターフェース。
type ProgressRepository interface {
	// FindByUserAndDay はユーザーIDと日番号で進捗を取得する。見つからない場合はnilを返す。
	FindByUserAndDay(ctx context.Context, userID string, day int) (*model.DailyProgress, error)

	// ListByUserID はユーザーの全進捗を日番号昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.DailyProgress, error)

	// Create は進捗レコードを作成する。
	Create(ctx context.Context, progress *model.DailyProgress) error

	// Upsert は進捗を冪等にUPSERTする。(user_id, day)をキーに、
	// タスクフラグとcompleted_atを上書きする。
	Upsert(ctx context.Context, progress *model.DailyProgress) (*model.DailyProgress, error)
}

// ContentRepository は日次コンテンツの永続化インターフェース。
type ContentRepository interface {
	// FindByDay は指定日のコンテンツを取得する。見つからない場合はnilを返す。
	FindByDay(ctx context.Context, day int) (*model.DailyContent, error)

	// ListAll は全日のコンテンツを日番号昇順で返す。
	ListAll(ctx context.Context) ([]*model.DailyContent, error)

	// Create はコンテンツを作成する。
	Create(ctx context.Context, content *model.DailyContent) error

	// CountAll はコンテンツ件数を返す。シード投入のスキップ判定に使用する。
	CountAll(ctx context.Context) (int, error)
}

// TxRepos はトランザクション内で使用するリポジトリ一式。
type TxRepos struct {
	Users    UserRepository
	Progress ProgressRepository
}

// TxRunner は複数リポジトリにまたがる操作を単一トランザクションで実行する。
type TxRunner interface {
	// RunInTx はfnをトランザクション内で実行する。
	// fnがエラーを返した場合はロールバックし、そのエラーを返す。
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}
