package store

import (
	"fmt"
	"strings"

	"github.com/ausiq/company-corpus/internal/model"
)

// typePatterns maps each selectable announcement type to the
// case-insensitive pattern matched against the raw type labels carried on
// ingested announcements. The labels come from the exchange feed and do not
// line up one-to-one with our enum, so each type casts a slightly wider net.
var typePatterns = map[model.AnnouncementType]string{
	model.TypeFinancialReport: `annual report|half year|full year|quarterly|financial report`,
	model.TypeCashflowReport:  `cash`,
	model.TypeMiningStudy:     `dfs|pfs|scoping|study|feasibility|jorc|resource`,
	model.TypePlacement:       `placement|renounceable|security purchase|trading halt`,
	model.TypeShareIssue:      `placement|appendix 2a|appendix 3b|renounceable|security purchase|appendix 3g|trading halt`,
	model.TypeTradingHalt:     `trading halt|suspension|reinstatement`,
	model.TypePresentation:    `presentation`,
}

const fetchColumns = `id, ticker, announcement_type, raw_types, title, url, content, price_sensitive, published_at`

// buildFetchQuery constructs the announcements query for a ticker and
// filter. Pure function: validation happens in ValidateFilter before this is
// called. Returns the SQL text and positional arguments.
func buildFetchQuery(ticker string, f model.Filter) (string, []any) {
	var sb strings.Builder
	// The end bound covers the whole of the To day, matching Filter.Matches.
	args := []any{ticker, f.From, f.To.AddDate(0, 0, 1)}

	sb.WriteString("SELECT ")
	sb.WriteString(fetchColumns)
	sb.WriteString(" FROM announcements WHERE ticker = $1 AND published_at >= $2 AND published_at < $3")

	if f.PriceSensitiveOnly {
		sb.WriteString(" AND price_sensitive = TRUE")
	}

	if len(f.Types) > 0 {
		conds := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			pattern, ok := typePatterns[t]
			if !ok {
				continue
			}
			args = append(args, pattern)
			conds = append(conds, fmt.Sprintf("raw_types ~* $%d", len(args)))
		}
		if len(conds) > 0 {
			sb.WriteString(" AND (")
			sb.WriteString(strings.Join(conds, " OR "))
			sb.WriteString(")")
		}
	}

	sb.WriteString(" ORDER BY published_at DESC")

	return sb.String(), args
}
