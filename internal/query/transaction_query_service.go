package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/luiseel/money/internal/cqrs"
	"github.com/luiseel/money/internal/models"
)

// TransactionViewReader is the read-side storage surface for transactions.
type TransactionViewReader interface {
	GetByID(ctx context.Context, id, userID string) (*models.TransactionView, error)
	List(ctx context.Context, userID string, f cqrs.TransactionFilter) ([]models.TransactionView, error)
	Count(ctx context.Context, userID string, f cqrs.TransactionFilter) (int64, error)
}

// SubjectResolver maps the authenticated subject to a local user.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, q cqrs.ResolveUserQuery) (*models.UserView, error)
}

// TransactionQueryService serves transaction reads. Every query is scoped to
// the resolved user, so rows owned by other users behave as nonexistent.
type TransactionQueryService struct {
	readRepo TransactionViewReader
	resolver SubjectResolver
}

func NewTransactionQueryService(readRepo TransactionViewReader, resolver SubjectResolver) *TransactionQueryService {
	return &TransactionQueryService{readRepo: readRepo, resolver: resolver}
}

func (s *TransactionQueryService) GetTransaction(ctx context.Context, q cqrs.GetTransactionQuery) (*models.TransactionView, error) {
	user, err := s.resolver.ResolveSubject(ctx, cqrs.ResolveUserQuery{SubjectID: q.SubjectID})
	if err != nil {
		return nil, err
	}
	return s.readRepo.GetByID(ctx, q.TransactionID, user.ID)
}

// ListTransactions returns one page of the caller's transactions plus
// pagination metadata. The page fetch and the total count run concurrently
// over the identical predicate; if either fails the whole call fails.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) (*models.TransactionPage, error) {
	user, err := s.resolver.ResolveSubject(ctx, cqrs.ResolveUserQuery{SubjectID: q.SubjectID})
	if err != nil {
		return nil, err
	}

	var (
		views []models.TransactionView
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		views, err = s.readRepo.List(gctx, user.ID, q.Filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.readRepo.Count(gctx, user.ID, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	limit := int64(q.Filter.Limit)
	return &models.TransactionPage{
		Data: views,
		Meta: models.PageMeta{
			Page:       q.Filter.Page,
			Limit:      q.Filter.Limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}
