package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/luiseel/money/internal/cqrs"
	"github.com/luiseel/money/internal/events"
	"github.com/luiseel/money/internal/identity"
	"github.com/luiseel/money/internal/models"
	"github.com/luiseel/money/internal/repository"
	"github.com/luiseel/money/internal/utils"
)

// UserWriter is the write-side storage surface for users.
type UserWriter interface {
	Create(ctx context.Context, user *models.User) error
	GetBySubjectID(ctx context.Context, subjectID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SoftDelete(ctx context.Context, subjectID string) error
}

// UserViewCacher keeps the Redis read model current after writes.
type UserViewCacher interface {
	CacheUserView(ctx context.Context, view *models.UserView)
	InvalidateUserView(ctx context.Context, subjectID string)
}

// EventPublisher emits domain events after successful writes. Publish
// failures are logged, never surfaced to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// UserCommandService reconciles the local user projection against identity
// provider lifecycle events. Upserts are idempotent so at-least-once delivery
// of the same event converges on a single row.
type UserCommandService struct {
	writeRepo UserWriter
	readRepo  UserViewCacher
	publisher EventPublisher
}

func NewUserCommandService(writeRepo UserWriter, readRepo UserViewCacher, publisher EventPublisher) *UserCommandService {
	return &UserCommandService{writeRepo: writeRepo, readRepo: readRepo, publisher: publisher}
}

// ReconcileUser upserts by subject id: update name/email in place when the row
// exists, insert otherwise. Two inserts racing for the same new subject lose
// to the storage unique constraint, which surfaces as ErrConflict.
func (s *UserCommandService) ReconcileUser(ctx context.Context, cmd cqrs.ReconcileUserCommand) (*models.User, error) {
	existing, err := s.writeRepo.GetBySubjectID(ctx, cmd.SubjectID)
	switch {
	case err == nil:
		existing.Name = cmd.Name
		existing.Email = cmd.Email
		existing.UpdatedAt = time.Now().UTC()
		if err := s.writeRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		s.readRepo.CacheUserView(ctx, userToView(existing))
		s.publish(ctx, events.UserUpdated, events.UserUpdatedEvent{
			UserID: existing.ID, SubjectID: existing.SubjectID,
			Email: existing.Email, Name: existing.Name,
		})
		return existing, nil

	case errors.Is(err, repository.ErrNotFound):
		now := time.Now().UTC()
		user := &models.User{
			ID:        utils.GenerateID("usr"),
			SubjectID: cmd.SubjectID,
			Name:      cmd.Name,
			Email:     cmd.Email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.writeRepo.Create(ctx, user); err != nil {
			return nil, err
		}
		s.readRepo.CacheUserView(ctx, userToView(user))
		s.publish(ctx, events.UserCreated, events.UserCreatedEvent{
			UserID: user.ID, SubjectID: user.SubjectID,
			Email: user.Email, Name: user.Name,
		})
		return user, nil

	default:
		return nil, err
	}
}

// SoftDeleteUser flags the row deleted and retains it. Re-delivery of the same
// deletion event succeeds again with no further state change.
func (s *UserCommandService) SoftDeleteUser(ctx context.Context, cmd cqrs.SoftDeleteUserCommand) (*models.User, error) {
	user, err := s.writeRepo.GetBySubjectID(ctx, cmd.SubjectID)
	if err != nil {
		return nil, err
	}
	if err := s.writeRepo.SoftDelete(ctx, cmd.SubjectID); err != nil {
		return nil, err
	}
	user.Deleted = true
	user.UpdatedAt = time.Now().UTC()

	s.readRepo.InvalidateUserView(ctx, cmd.SubjectID)
	s.publish(ctx, events.UserDeleted, events.UserDeletedEvent{
		UserID: user.ID, SubjectID: user.SubjectID,
	})
	return user, nil
}

// HandleIdentityEvent is the Redis stream subscriber handler. It feeds stream
// deliveries through the same reconcile path the webhook uses.
func (s *UserCommandService) HandleIdentityEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.UserCreated, events.UserUpdated:
		payload, err := decodeIdentityPayload(event.Data)
		if err != nil {
			return err
		}
		_, err = s.ReconcileUser(ctx, cqrs.ReconcileUserCommand{
			SubjectID: payload.ID,
			Name:      payload.DisplayName(),
			Email:     payload.PrimaryEmail(),
		})
		return err

	case events.UserDeleted:
		payload, err := decodeIdentityPayload(event.Data)
		if err != nil {
			return err
		}
		if _, err := s.SoftDeleteUser(ctx, cqrs.SoftDeleteUserCommand{SubjectID: payload.ID}); err != nil {
			// An unknown subject can never succeed on retry; ACK it.
			if errors.Is(err, repository.ErrNotFound) {
				log.Printf("Ignoring deletion of unknown subject %s", payload.ID)
				return nil
			}
			return err
		}
		return nil

	default:
		// Unknown event kinds are acknowledged, not rejected.
		return nil
	}
}

func decodeIdentityPayload(data any) (*identity.UserPayload, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal identity event data: %w", err)
	}
	var payload identity.UserPayload
	if err := json.Unmarshal(dataBytes, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity event data: %w", err)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("identity event data missing subject id")
	}
	return &payload, nil
}

func (s *UserCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.UserEventsStream, eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

func userToView(u *models.User) *models.UserView {
	return &models.UserView{
		ID:        u.ID,
		SubjectID: u.SubjectID,
		Name:      u.Name,
		Email:     u.Email,
		Deleted:   u.Deleted,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
