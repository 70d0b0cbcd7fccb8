package command

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/luiseel/money/internal/cqrs"
	"github.com/luiseel/money/internal/events"
	"github.com/luiseel/money/internal/models"
	"github.com/luiseel/money/internal/repository"
	"github.com/luiseel/money/internal/utils"
)

// TransactionWriter is the write-side storage surface for transactions.
type TransactionWriter interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// TransactionViewCacher keeps the Redis read model current after writes.
type TransactionViewCacher interface {
	CacheTransactionView(ctx context.Context, view *models.TransactionView)
	InvalidateTransactionView(ctx context.Context, userID, id string)
}

// SubjectResolver maps the authenticated subject to a local user.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, q cqrs.ResolveUserQuery) (*models.UserView, error)
}

// TransactionCommandService creates and deletes transactions on behalf of the
// resolved user. Ownership is enforced here: a row owned by someone else is
// reported exactly like a missing row.
type TransactionCommandService struct {
	writeRepo TransactionWriter
	readRepo  TransactionViewCacher
	resolver  SubjectResolver
	publisher EventPublisher
}

func NewTransactionCommandService(
	writeRepo TransactionWriter,
	readRepo TransactionViewCacher,
	resolver SubjectResolver,
	publisher EventPublisher,
) *TransactionCommandService {
	return &TransactionCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		resolver:  resolver,
		publisher: publisher,
	}
}

func (s *TransactionCommandService) CreateTransaction(ctx context.Context, cmd cqrs.CreateTransactionCommand) (*models.Transaction, error) {
	user, err := s.resolver.ResolveSubject(ctx, cqrs.ResolveUserQuery{SubjectID: cmd.SubjectID})
	if err != nil {
		return nil, err
	}
	if !cmd.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	txType := cmd.Type
	if txType == "" {
		txType = models.TransactionTypeExpense
	}
	tags := pq.StringArray{}
	if cmd.Tags != nil {
		tags = pq.StringArray(cmd.Tags)
	}

	transaction := &models.Transaction{
		ID:        utils.GenerateID("txn"),
		UserID:    user.ID,
		Type:      txType,
		Amount:    cmd.Amount,
		Title:     cmd.Title,
		Tags:      tags,
		Applied:   cmd.Applied,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.writeRepo.Create(ctx, transaction); err != nil {
		return nil, err
	}

	s.readRepo.CacheTransactionView(ctx, txToView(transaction))
	s.publish(ctx, events.TransactionCreated, events.TransactionCreatedEvent{
		TransactionID: transaction.ID,
		UserID:        transaction.UserID,
		Type:          transaction.Type,
		Amount:        transaction.Amount.String(),
		Title:         transaction.Title,
	})
	return transaction, nil
}

// DeleteTransaction removes the row and returns its prior state. Absent rows
// and rows owned by another user both come back as ErrNotFound.
func (s *TransactionCommandService) DeleteTransaction(ctx context.Context, cmd cqrs.DeleteTransactionCommand) (*models.Transaction, error) {
	user, err := s.resolver.ResolveSubject(ctx, cqrs.ResolveUserQuery{SubjectID: cmd.SubjectID})
	if err != nil {
		return nil, err
	}

	transaction, err := s.writeRepo.GetByID(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}
	if transaction.UserID != user.ID {
		return nil, fmt.Errorf("transaction %s: %w", cmd.TransactionID, repository.ErrNotFound)
	}

	if err := s.writeRepo.Delete(ctx, cmd.TransactionID); err != nil {
		return nil, err
	}

	s.readRepo.InvalidateTransactionView(ctx, user.ID, cmd.TransactionID)
	s.publish(ctx, events.TransactionDeleted, events.TransactionDeletedEvent{
		TransactionID: transaction.ID,
		UserID:        transaction.UserID,
	})
	return transaction, nil
}

func (s *TransactionCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.TransactionEventsStream, eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

// txToView converts the write model to a read view model.
func txToView(t *models.Transaction) *models.TransactionView {
	return &models.TransactionView{
		ID:        t.ID,
		UserID:    t.UserID,
		Type:      t.Type,
		Amount:    t.Amount,
		Title:     t.Title,
		Tags:      []string(t.Tags),
		Applied:   t.Applied,
		CreatedAt: t.CreatedAt,
	}
}
