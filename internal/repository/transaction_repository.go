package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/luiseel/money/internal/models"
)

// TransactionWriteRepository handles all state-mutating operations for
// transactions. It operates exclusively against the PostgreSQL write store.
type TransactionWriteRepository struct {
	db *sql.DB
}

func NewTransactionWriteRepository(db *sql.DB) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db}
}

func (r *TransactionWriteRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, amount, title, tags, applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		transaction.ID, transaction.UserID, transaction.Type,
		transaction.Amount, transaction.Title, transaction.Tags,
		transaction.Applied, transaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByID fetches the full write model by transaction id only. The caller is
// responsible for the ownership check; keeping the lookup unscoped lets it
// return the prior state of a row about to be deleted.
func (r *TransactionWriteRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := `
		SELECT id, user_id, type, amount, title, tags, applied, created_at
		FROM transactions
		WHERE id = $1
	`
	var transaction models.Transaction
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&transaction.ID, &transaction.UserID, &transaction.Type,
		&transaction.Amount, &transaction.Title, &transaction.Tags,
		&transaction.Applied, &transaction.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &transaction, nil
}

func (r *TransactionWriteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}
