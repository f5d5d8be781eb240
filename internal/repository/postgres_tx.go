package repository

import (
	"context"
	"fmt"
)

// PostgresTxRunner は*sql.DB上でトランザクションを実行するTxRunner実装。
type PostgresTxRunner struct {
	db TxBeginner
}

// NewPostgresTxRunner はPostgresTxRunnerを生成する。
func NewPostgresTxRunner(db TxBeginner) *PostgresTxRunner {
	return &PostgresTxRunner{db: db}
}

// RunInTx はfnをトランザクション内で実行する。
// fnにはトランザクションスコープのリポジトリ一式を渡す。
// fnがエラーを返した場合はロールバックし、そのエラーを返す。
func (r *PostgresTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := TxRepos{
		Users:    NewPostgresUserRepo(tx),
		Progress: NewPostgresProgressRepo(tx),
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ TxRunner = (*PostgresTxRunner)(nil)
