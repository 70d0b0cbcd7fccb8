package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/luiseel/money/internal/models"
)

// UserWriteRepository handles all state-mutating operations for users.
// It operates exclusively against the PostgreSQL write store (source of truth).
type UserWriteRepository struct {
	db *sql.DB
}

func NewUserWriteRepository(db *sql.DB) *UserWriteRepository {
	return &UserWriteRepository{db: db}
}

// Create inserts a new user row. The unique constraint on subject_id is the
// enforcement point for racing inserts; a violation surfaces as ErrConflict.
func (r *UserWriteRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, subject_id, name, email, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.SubjectID, user.Name, user.Email,
		user.Deleted, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("user %s: %w", user.SubjectID, ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetBySubjectID fetches the full write model for a subject id.
// Soft-deleted rows are returned too; the Deleted flag tells them apart.
func (r *UserWriteRepository) GetBySubjectID(ctx context.Context, subjectID string) (*models.User, error) {
	query := `
		SELECT id, subject_id, name, email, deleted, created_at, updated_at
		FROM users
		WHERE subject_id = $1
	`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(
		&user.ID, &user.SubjectID, &user.Name, &user.Email,
		&user.Deleted, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", subjectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Update rewrites name/email for an existing subject id.
func (r *UserWriteRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, updated_at = $4
		WHERE subject_id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		user.SubjectID, user.Name, user.Email, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", user.SubjectID, ErrNotFound)
	}
	return nil
}

// SoftDelete flags a user deleted while retaining the row.
func (r *UserWriteRepository) SoftDelete(ctx context.Context, subjectID string) error {
	query := `UPDATE users SET deleted = TRUE, updated_at = NOW() WHERE subject_id = $1`
	result, err := r.db.ExecContext(ctx, query, subjectID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", subjectID, ErrNotFound)
	}
	return nil
}
