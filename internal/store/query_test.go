package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausiq/company-corpus/internal/model"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidateFilter(t *testing.T) {
	valid := model.Filter{From: date("2024-01-01"), To: date("2024-03-31")}

	tests := []struct {
		name    string
		ticker  string
		filter  model.Filter
		wantErr bool
	}{
		{
			name:   "valid filter",
			ticker: "ACM",
			filter: valid,
		},
		{
			name:    "missing ticker",
			ticker:  "",
			filter:  valid,
			wantErr: true,
		},
		{
			name:    "start after end",
			ticker:  "ACM",
			filter:  model.Filter{From: date("2024-03-31"), To: date("2024-01-01")},
			wantErr: true,
		},
		{
			name:    "missing range",
			ticker:  "ACM",
			filter:  model.Filter{},
			wantErr: true,
		},
		{
			name:   "known types accepted",
			ticker: "ACM",
			filter: model.Filter{
				Types: []model.AnnouncementType{model.TypeFinancialReport, model.TypeTradingHalt},
				From:  date("2024-01-01"),
				To:    date("2024-03-31"),
			},
		},
		{
			name:   "unknown type rejected",
			ticker: "ACM",
			filter: model.Filter{
				Types: []model.AnnouncementType{"press_release"},
				From:  date("2024-01-01"),
				To:    date("2024-03-31"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilter(tt.ticker, tt.filter)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidFilter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilter_FailsBeforeAnyQuery(t *testing.T) {
	// A Postgres store with no pool must still reject a reversed range:
	// validation happens before the backend is ever touched.
	p := &Postgres{}

	_, err := p.Fetch(context.Background(), "ACM", model.Filter{
		From: date("2024-06-30"),
		To:   date("2024-01-01"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestTypePatterns_CoverKnownTypes(t *testing.T) {
	// Every type that passes validation must produce a predicate.
	for _, k := range model.KnownTypes {
		_, ok := typePatterns[k]
		assert.True(t, ok, "no pattern for %s", k)
	}
	assert.Len(t, typePatterns, len(model.KnownTypes))
}

func TestBuildFetchQuery_Basic(t *testing.T) {
	f := model.Filter{From: date("2024-01-01"), To: date("2024-03-31")}

	query, args := buildFetchQuery("ACM", f)

	assert.Contains(t, query, "ticker = $1")
	assert.Contains(t, query, "published_at >= $2")
	assert.Contains(t, query, "published_at < $3")
	assert.True(t, strings.HasSuffix(query, "ORDER BY published_at DESC"))
	assert.NotContains(t, query, "price_sensitive = TRUE")
	assert.NotContains(t, query, "raw_types ~*")

	require.Len(t, args, 3)
	assert.Equal(t, "ACM", args[0])
}

func TestBuildFetchQuery_EndDateCoversWholeDay(t *testing.T) {
	f := model.Filter{From: date("2024-01-01"), To: date("2024-03-31")}

	// Published mid-afternoon on the end date: inside the filter.
	ann := model.Announcement{
		Ticker:      "ACM",
		PublishedAt: time.Date(2024, 3, 31, 14, 0, 0, 0, time.UTC),
	}
	require.True(t, f.Matches(ann))

	_, args := buildFetchQuery("ACM", f)
	require.Len(t, args, 3)

	upper, ok := args[2].(time.Time)
	require.True(t, ok)
	assert.True(t, ann.PublishedAt.Before(upper), "in-filter announcement must fall under the SQL bound")
	assert.Equal(t, date("2024-04-01"), upper)
}

func TestBuildFetchQuery_PriceSensitive(t *testing.T) {
	f := model.Filter{
		From:               date("2024-01-01"),
		To:                 date("2024-03-31"),
		PriceSensitiveOnly: true,
	}

	query, args := buildFetchQuery("ACM", f)

	assert.Contains(t, query, "price_sensitive = TRUE")
	assert.Len(t, args, 3)
}

func TestBuildFetchQuery_TypeConditions(t *testing.T) {
	f := model.Filter{
		Types: []model.AnnouncementType{model.TypeCashflowReport, model.TypeMiningStudy},
		From:  date("2024-01-01"),
		To:    date("2024-03-31"),
	}

	query, args := buildFetchQuery("ACM", f)

	assert.Contains(t, query, "raw_types ~* $4")
	assert.Contains(t, query, "raw_types ~* $5")
	assert.Contains(t, query, " OR ")

	require.Len(t, args, 5)
	assert.Equal(t, typePatterns[model.TypeCashflowReport], args[3])
	assert.Equal(t, typePatterns[model.TypeMiningStudy], args[4])
}

func TestBuildFetchQuery_EmptyTypesMeansAll(t *testing.T) {
	query, args := buildFetchQuery("ACM", model.Filter{
		From: date("2024-01-01"),
		To:   date("2024-12-31"),
	})

	assert.NotContains(t, query, "raw_types ~*")
	assert.Len(t, args, 3)
}
