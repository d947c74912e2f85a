// Package store provides access to the announcement corpus backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ausiq/company-corpus/internal/model"
)

var (
	// ErrStoreUnavailable indicates the backend could not be reached.
	ErrStoreUnavailable = errors.New("announcement store unavailable")
	// ErrInvalidFilter indicates the filter failed validation before any query.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrCompanyNotFound indicates the ticker is not in the corpus.
	ErrCompanyNotFound = errors.New("company not found")
)

// Store is the read-only accessor over the announcement corpus.
type Store interface {
	// Fetch returns announcements for the ticker matching the filter,
	// ordered by publication date descending. An empty result is not an
	// error.
	Fetch(ctx context.Context, ticker string, f model.Filter) ([]model.Announcement, error)

	// ListCompanies returns all companies present in the corpus.
	ListCompanies(ctx context.Context) ([]model.Company, error)

	// CompanySummary returns headline market data for one company.
	CompanySummary(ctx context.Context, ticker string) (*model.CompanySummary, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// ValidateFilter checks the ticker and filter before any network call.
func ValidateFilter(ticker string, f model.Filter) error {
	if ticker == "" {
		return fmt.Errorf("%w: ticker is required", ErrInvalidFilter)
	}
	if f.From.IsZero() || f.To.IsZero() {
		return fmt.Errorf("%w: date range is required", ErrInvalidFilter)
	}
	if f.From.After(f.To) {
		return fmt.Errorf("%w: range start %s is after end %s",
			ErrInvalidFilter, f.From.Format("2006-01-02"), f.To.Format("2006-01-02"))
	}
	for _, t := range f.Types {
		if !t.Known() {
			return fmt.Errorf("%w: unknown announcement type %q", ErrInvalidFilter, t)
		}
	}
	return nil
}
