package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"souviens_toi/internal/auth"
)

type ctxKey string

const txKey ctxKey = "tx"

// TransactionManager runs work in a transaction. When the context carries an
// authenticated user, the transaction adopts the user's claims and role so
// row level security policies apply.
type TransactionManager struct {
	db *sqlx.DB
}

func NewTransactionManager(db *sqlx.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction reuses a transaction already present in ctx.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if GetTxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := tm.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if user, ok := auth.CurrentUser(ctx); ok {
		if err := setRequestClaims(ctx, tx, user); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func setRequestClaims(ctx context.Context, tx *sqlx.Tx, user *auth.User) error {
	claims, err := json.Marshal(map[string]string{
		"sub":   user.ID,
		"email": user.Email,
		"role":  "authenticated",
	})
	if err != nil {
		return fmt.Errorf("encode request claims: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`SELECT set_config('request.jwt.claims', $1, true), set_config('role', 'authenticated', true)`,
		string(claims),
	)
	if err != nil {
		return fmt.Errorf("set request claims: %w", err)
	}
	return nil
}

func GetTxFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey).(*sqlx.Tx)
	return tx
}

func GetExecutor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx := GetTxFromContext(ctx); tx != nil {
		return tx
	}
	return db
}
