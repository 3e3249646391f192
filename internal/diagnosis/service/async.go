package service

import (
	"context"

	"exposure/internal/diagnosis/models"
	"exposure/internal/platform/async"
)

// The *Async variants start the operation in the background and return at
// once. Results and errors are identical to the blocking forms.

func (s *Service) UpsertAsync(ctx context.Context, record models.Record) *async.Future[int64] {
	return async.Go(ctx, func(ctx context.Context) (int64, error) {
		return s.Upsert(ctx, record)
	})
}

func (s *Service) GetByIDAsync(ctx context.Context, id int64) *async.Future[*models.Record] {
	return async.Go(ctx, func(ctx context.Context) (*models.Record, error) {
		return s.GetByID(ctx, id)
	})
}

func (s *Service) GetByVerificationCodeAsync(ctx context.Context, code string) *async.Future[[]models.Record] {
	return async.Go(ctx, func(ctx context.Context) ([]models.Record, error) {
		return s.GetByVerificationCode(ctx, code)
	})
}

func (s *Service) DeleteByIDAsync(ctx context.Context, id int64) *async.Future[struct{}] {
	return async.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.DeleteByID(ctx, id)
	})
}

// RevisionToken is the result of MostRecentRevisionTokenAsync.
type RevisionToken struct {
	Token string
	Found bool
}

func (s *Service) MostRecentRevisionTokenAsync(ctx context.Context) *async.Future[RevisionToken] {
	return async.Go(ctx, func(ctx context.Context) (RevisionToken, error) {
		token, ok, err := s.MostRecentRevisionToken(ctx)
		return RevisionToken{Token: token, Found: ok}, err
	})
}

func (s *Service) CreateOrMutateByIDAsync(ctx context.Context, id int64, mutate Mutator) *async.Future[int64] {
	return async.Go(ctx, func(ctx context.Context) (int64, error) {
		return s.CreateOrMutateByID(ctx, id, mutate)
	})
}
