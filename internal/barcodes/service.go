package barcodes

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// Service validates requests and runs them against the repository.
type Service struct {
	repo     Repository
	cache    *Cache
	validate *validator.Validate
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, validate: newValidator()}
}

// CheckCode reports whether a record with the given code exists.
func (s *Service) CheckCode(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, ErrCodeRequired
	}
	return s.repo.Exists(ctx, code)
}

// List returns every stored record.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	records, err := s.cache.Products(ctx, s.repo.List)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Save inserts a new record. Nothing is written unless every required field
// is present.
func (s *Service) Save(ctx context.Context, req SaveRequest) (Record, error) {
	rec, err := s.validateSave(req)
	if err != nil {
		return Record{}, err
	}
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	s.cache.Invalidate(ctx)
	return created, nil
}

// Update overwrites the mutable columns of the record keyed by the barcode.
// Code and name are left as stored.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (Record, error) {
	rec, err := s.validateUpdate(req)
	if err != nil {
		return Record{}, err
	}
	updated, err := s.repo.Update(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	s.cache.Invalidate(ctx)
	return updated, nil
}

// Expiring returns in-stock records expiring within windowDays of today.
func (s *Service) Expiring(ctx context.Context, today Date, windowDays int) ([]Record, error) {
	if windowDays < 0 {
		windowDays = 0
	}
	return s.repo.ListExpiring(ctx, today.AddDays(windowDays))
}
