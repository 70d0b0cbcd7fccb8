package repository

import (
	"context"
	"database/sql"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/luiseel/money/internal/models"
	moneyredis "github.com/luiseel/money/internal/redis"
)

const userViewKeyPrefix = "user:view:subject:"

// UserReadRepository serves identity resolution from subject id to user view.
// It uses Redis as the primary read store, falling back to PostgreSQL on a miss.
type UserReadRepository struct {
	db    *sql.DB
	cache *moneyredis.ViewCache[models.UserView]
}

func NewUserReadRepository(db *sql.DB, redisClient *goredis.Client) *UserReadRepository {
	return &UserReadRepository{
		db:    db,
		cache: moneyredis.NewViewCache[models.UserView](redisClient, 0),
	}
}

// GetBySubjectID returns a UserView from Redis first, then PostgreSQL.
// Soft-deleted users resolve normally; callers that care check view.Deleted.
func (r *UserReadRepository) GetBySubjectID(ctx context.Context, subjectID string) (*models.UserView, error) {
	cacheKey := userViewKeyPrefix + subjectID

	if view, ok := r.cache.Get(ctx, cacheKey); ok {
		return view, nil
	}

	// Fallback: PostgreSQL
	query := `
		SELECT id, subject_id, name, email, deleted, created_at, updated_at
		FROM users
		WHERE subject_id = $1
	`
	var view models.UserView
	pgErr := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&view.ID, &view.SubjectID, &view.Name, &view.Email,
		&view.Deleted, &view.CreatedAt, &view.UpdatedAt,
	)
	if pgErr == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", subjectID, ErrNotFound)
	}
	if pgErr != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", pgErr)
	}

	// Warm the cache
	r.CacheUserView(ctx, &view)
	return &view, nil
}

// CacheUserView stores or refreshes the Redis read model for a user.
// Called by the command service after every mutation.
func (r *UserReadRepository) CacheUserView(ctx context.Context, view *models.UserView) {
	r.cache.Set(ctx, userViewKeyPrefix+view.SubjectID, view)
}

// InvalidateUserView removes the Redis read model entry for a user.
// The next resolution rebuilds it from PostgreSQL.
func (r *UserReadRepository) InvalidateUserView(ctx context.Context, subjectID string) {
	r.cache.Delete(ctx, userViewKeyPrefix+subjectID)
}
