package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ausiq/company-corpus/internal/model"
	"github.com/ausiq/company-corpus/pkg/logger"
)

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgres connects to the corpus database and verifies it is reachable.
func NewPostgres(ctx context.Context, dsn string, log *logger.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Postgres{
		pool:   pool,
		logger: log,
	}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping verifies the backend is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Fetch returns announcements for the ticker matching the filter, most
// recent first.
func (p *Postgres) Fetch(ctx context.Context, ticker string, f model.Filter) ([]model.Announcement, error) {
	if err := ValidateFilter(ticker, f); err != nil {
		return nil, err
	}

	query, args := buildFetchQuery(ticker, f)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var anns []model.Announcement
	for rows.Next() {
		var a model.Announcement
		if err := rows.Scan(
			&a.ID,
			&a.Ticker,
			&a.Type,
			&a.RawTypes,
			&a.Title,
			&a.URL,
			&a.Content,
			&a.PriceSensitive,
			&a.PublishedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan failed: %v", ErrStoreUnavailable, err)
		}
		anns = append(anns, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	p.logger.Debug("fetched announcements",
		zap.String("ticker", ticker),
		zap.Int("count", len(anns)),
	)

	return anns, nil
}

// ListCompanies returns all companies present in the corpus.
func (p *Postgres) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT ticker, name, COALESCE(industry, '') FROM companies ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.Ticker, &c.Name, &c.Industry); err != nil {
			return nil, fmt.Errorf("%w: scan failed: %v", ErrStoreUnavailable, err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return companies, nil
}

// CompanySummary returns headline market data for one company, built from
// the latest statistics row.
func (p *Postgres) CompanySummary(ctx context.Context, ticker string) (*model.CompanySummary, error) {
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidFilter)
	}

	const query = `
SELECT
    c.ticker,
    c.name,
    COALESCE(c.industry, ''),
    COALESCE(c.website_url, ''),
    COALESCE(ROUND(s.market_cap / 1000000.0, 1), 0),
    COALESCE(s.share_price, 0),
    COALESCE(s.price_diff_90d, 0),
    COALESCE(s.price_52w_high, 0),
    COALESCE(s.price_52w_low, 0)
FROM companies c
LEFT JOIN LATERAL (
    SELECT market_cap, share_price, price_diff_90d, price_52w_high, price_52w_low
    FROM company_statistics
    WHERE ticker = c.ticker
    ORDER BY observed_at DESC
    LIMIT 1
) s ON TRUE
WHERE c.ticker = $1`

	var s model.CompanySummary
	err := p.pool.QueryRow(ctx, query, ticker).Scan(
		&s.Ticker,
		&s.Name,
		&s.Industry,
		&s.WebsiteURL,
		&s.MarketCapMillions,
		&s.SharePrice,
		&s.PriceDiff90d,
		&s.Price52WeekHigh,
		&s.Price52WeekLow,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &s, nil
}
