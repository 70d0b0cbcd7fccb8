package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/luiseel/money/internal/cqrs"
	"github.com/luiseel/money/internal/models"
	moneyredis "github.com/luiseel/money/internal/redis"
)

const transactionViewKeyPrefix = "transaction:view:"

// sortColumns whitelists the sort keys a list call may use. Anything not in
// this map never reaches the ORDER BY clause.
var sortColumns = map[string]string{
	cqrs.SortByCreatedAt: "created_at",
	cqrs.SortByTitle:     "title",
}

// TransactionReadRepository handles all read operations for transactions.
// Single-row lookups use Redis as the primary read store with a PostgreSQL
// fallback; list and count queries always go to PostgreSQL.
type TransactionReadRepository struct {
	db    *sql.DB
	cache *moneyredis.ViewCache[models.TransactionView]
}

func NewTransactionReadRepository(db *sql.DB, redisClient *goredis.Client) *TransactionReadRepository {
	return &TransactionReadRepository{
		db:    db,
		cache: moneyredis.NewViewCache[models.TransactionView](redisClient, 0),
	}
}

// buildPredicate translates a filter into a WHERE clause scoped to userID.
// Absent filter fields are omitted from the clause entirely rather than
// rendered as match-anything conditions, so List and Count stay exact mirrors
// of each other.
func buildPredicate(userID string, f cqrs.TransactionFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	next := func() int { return len(args) + 1 }

	if f.Type != "" {
		conds = append(conds, fmt.Sprintf("type = $%d", next()))
		args = append(args, f.Type)
	}
	if f.Title != "" {
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", next()))
		args = append(args, "%"+f.Title+"%")
	}
	if len(f.Tags) > 0 {
		// match-any: row tags overlap the requested set
		conds = append(conds, fmt.Sprintf("tags && $%d", next()))
		args = append(args, pq.Array(f.Tags))
	}
	if f.StartDate != nil {
		conds = append(conds, fmt.Sprintf("created_at >= $%d", next()))
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		conds = append(conds, fmt.Sprintf("created_at <= $%d", next()))
		args = append(args, *f.EndDate)
	}
	if f.Applied != nil {
		conds = append(conds, fmt.Sprintf("applied = $%d", next()))
		args = append(args, *f.Applied)
	}

	return strings.Join(conds, " AND "), args
}

// orderClause renders the validated sort key/direction. Unknown keys fall back
// to created_at so a stale caller can never inject an arbitrary column.
func orderClause(f cqrs.TransactionFilter) string {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if f.SortOrder == cqrs.SortAsc {
		direction = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s", column, direction)
}

// List returns one pagination window of the user's transactions.
func (r *TransactionReadRepository) List(ctx context.Context, userID string, f cqrs.TransactionFilter) ([]models.TransactionView, error) {
	where, args := buildPredicate(userID, f)
	query := fmt.Sprintf(`
		SELECT id, user_id, type, amount, title, tags, applied, created_at
		FROM transactions
		WHERE %s
		%s
		LIMIT $%d OFFSET $%d
	`, where, orderClause(f), len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	views := []models.TransactionView{}
	for rows.Next() {
		var view models.TransactionView
		if err := rows.Scan(
			&view.ID, &view.UserID, &view.Type,
			&view.Amount, &view.Title, pq.Array(&view.Tags),
			&view.Applied, &view.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if view.Tags == nil {
			view.Tags = []string{}
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return views, nil
}

// Count returns the number of rows matching the exact predicate List uses,
// pagination excluded.
func (r *TransactionReadRepository) Count(ctx context.Context, userID string, f cqrs.TransactionFilter) (int64, error) {
	where, args := buildPredicate(userID, f)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM transactions WHERE %s`, where)

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return total, nil
}

// GetByID returns a TransactionView by attempting Redis first, then PostgreSQL.
// The lookup is scoped to userID, so a transaction owned by someone else is
// indistinguishable from one that does not exist.
func (r *TransactionReadRepository) GetByID(ctx context.Context, id, userID string) (*models.TransactionView, error) {
	cacheKey := transactionViewCacheKey(userID, id)
	if view, ok := r.cache.Get(ctx, cacheKey); ok {
		return view, nil
	}

	// Fallback: PostgreSQL
	query := `
		SELECT id, user_id, type, amount, title, tags, applied, created_at
		FROM transactions
		WHERE id = $1 AND user_id = $2
	`
	var view models.TransactionView
	pgErr := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&view.ID, &view.UserID, &view.Type,
		&view.Amount, &view.Title, pq.Array(&view.Tags),
		&view.Applied, &view.CreatedAt,
	)
	if pgErr == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if pgErr != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", pgErr)
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}

	// Warm the cache
	r.CacheTransactionView(ctx, &view)
	return &view, nil
}

// CacheTransactionView stores the read model for a transaction in Redis.
// Called by the command service immediately after a successful Create.
func (r *TransactionReadRepository) CacheTransactionView(ctx context.Context, view *models.TransactionView) {
	r.cache.Set(ctx, transactionViewCacheKey(view.UserID, view.ID), view)
}

// InvalidateTransactionView removes the Redis entry for a deleted transaction.
func (r *TransactionReadRepository) InvalidateTransactionView(ctx context.Context, userID, id string) {
	r.cache.Delete(ctx, transactionViewCacheKey(userID, id))
}

func transactionViewCacheKey(userID, id string) string {
	return fmt.Sprintf("%s%s:%s", transactionViewKeyPrefix, userID, id)
}
