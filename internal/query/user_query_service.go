package query

import (
	"context"
	"fmt"

	"github.com/luiseel/money/internal/cqrs"
	"github.com/luiseel/money/internal/models"
	"github.com/luiseel/money/internal/repository"
)

// UserViewReader is the read-side storage surface the resolver needs.
type UserViewReader interface {
	GetBySubjectID(ctx context.Context, subjectID string) (*models.UserView, error)
}

// UserQueryService resolves external subject ids to local user records.
// It is the mandatory first step of every transaction operation; the external
// id is never written into transaction ownership fields.
type UserQueryService struct {
	readRepo UserViewReader
}

func NewUserQueryService(readRepo UserViewReader) *UserQueryService {
	return &UserQueryService{readRepo: readRepo}
}

// ResolveSubject maps a subject id to the local user projection. Soft-deleted
// users still resolve; only an unknown subject is ErrNotFound.
func (s *UserQueryService) ResolveSubject(ctx context.Context, q cqrs.ResolveUserQuery) (*models.UserView, error) {
	if q.SubjectID == "" {
		return nil, fmt.Errorf("empty subject id: %w", repository.ErrNotFound)
	}
	return s.readRepo.GetBySubjectID(ctx, q.SubjectID)
}
