package model

import (
	"time"
)

// Mode selects how a question is answered.
type Mode string

const (
	// ModeGenerate asks the model to synthesize a narrative answer grounded
	// in the supplied announcements.
	ModeGenerate Mode = "generate"
	// ModeSearch asks the model to locate and quote the relevant passages
	// with minimal synthesis.
	ModeSearch Mode = "search"
)

// Valid reports whether m is a recognised mode.
func (m Mode) Valid() bool {
	return m == ModeGenerate || m == ModeSearch
}

// Query is one user question within a session.
type Query struct {
	Question string    `json:"question"`
	Mode     Mode      `json:"mode"`
	AskedAt  time.Time `json:"asked_at"`
}

// Citation links generated text back to one source announcement.
type Citation struct {
	Index          int       `json:"index"`
	AnnouncementID string    `json:"announcement_id"`
	Ticker         string    `json:"ticker"`
	Title          string    `json:"title"`
	URL            string    `json:"url,omitempty"`
	PublishedAt    time.Time `json:"published_at"`
}

// Answer is the model's response to one Query.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
	Mode      Mode       `json:"mode"`
	Model     string     `json:"model,omitempty"`
	TokensIn  int        `json:"tokens_in,omitempty"`
	TokensOut int        `json:"tokens_out,omitempty"`
	LatencyMs int64      `json:"latency_ms,omitempty"`
}

// Turn is one completed (Query, Answer) exchange.
type Turn struct {
	Query  Query  `json:"query"`
	Answer Answer `json:"answer"`
}

// Session holds per-conversation state. The company is immutable once the
// session is created; the filter and history change turn by turn.
type Session struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Company   Company   `json:"company"`
	Filter    Filter    `json:"filter"`
	Turns     []Turn    `json:"turns"`
	Summaries []string  `json:"summaries,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Deleted   bool      `json:"deleted,omitempty"`
}

// CreateSessionRequest is the request to start a research session.
type CreateSessionRequest struct {
	Ticker string `json:"ticker"`
}

// UpdateFilterRequest is the request to change a session's filter.
type UpdateFilterRequest struct {
	Types              []AnnouncementType `json:"types,omitempty"`
	From               string             `json:"from"`
	To                 string             `json:"to"`
	PriceSensitiveOnly bool               `json:"price_sensitive_only,omitempty"`
}

// AskRequest is the request to run one research turn.
type AskRequest struct {
	Question string `json:"question"`
	Mode     Mode   `json:"mode"`
}

// AskResponse is the response for a completed turn.
type AskResponse struct {
	Answer       Answer `json:"answer"`
	SourcesCount int    `json:"sources_count"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"has_more"`
}

// HistoryResponse is the response for a session's turn history.
type HistoryResponse struct {
	Turns []Turn `json:"turns"`
	Total int    `json:"total"`
}

// TurnRecord is the archival form of a completed turn, published for
// downstream ingestion.
type TurnRecord struct {
	SessionID    string    `json:"session_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	Ticker       string    `json:"ticker"`
	Filter       Filter    `json:"filter"`
	Question     string    `json:"question"`
	Mode         Mode      `json:"mode"`
	AnswerText   string    `json:"answer_text"`
	CitationIDs  []string  `json:"citation_ids,omitempty"`
	Model        string    `json:"model,omitempty"`
	TokensIn     int       `json:"tokens_in,omitempty"`
	TokensOut    int       `json:"tokens_out,omitempty"`
	SourcesCount int       `json:"sources_count"`
	CompletedAt  time.Time `json:"completed_at"`
}
