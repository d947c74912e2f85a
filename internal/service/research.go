package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ausiq/company-corpus/internal/llm"
	"github.com/ausiq/company-corpus/internal/model"
	"github.com/ausiq/company-corpus/internal/prompt"
	"github.com/ausiq/company-corpus/internal/store"
	"github.com/ausiq/company-corpus/pkg/logger"
	"github.com/ausiq/company-corpus/pkg/metrics"
)

// TurnArchiver publishes completed turns for downstream ingestion.
type TurnArchiver interface {
	PublishTurn(ctx context.Context, rec *model.TurnRecord) (uint64, error)
}

// ResearchOptions configure turn execution.
type ResearchOptions struct {
	// Model used for answering. Empty uses the provider default.
	Model string
	// SummaryModel is the cheaper model used for rolling history
	// summaries. Empty uses the provider default.
	SummaryModel string
	// MaxTokens caps the answer length.
	MaxTokens int
}

// ResearchService runs research turns: retrieve announcements, assemble the
// prompt, call the model, and map citations back to sources.
type ResearchService struct {
	store    store.Store
	builder  *prompt.Builder
	llm      llm.Client
	archiver TurnArchiver
	sessions *SessionService
	opts     ResearchOptions
	logger   *logger.Logger
}

// NewResearchService creates a new research service. archiver may be nil,
// in which case turns are not archived.
func NewResearchService(
	st store.Store,
	builder *prompt.Builder,
	llmClient llm.Client,
	archiver TurnArchiver,
	sessions *SessionService,
	opts ResearchOptions,
	log *logger.Logger,
) *ResearchService {
	return &ResearchService{
		store:    st,
		builder:  builder,
		llm:      llmClient,
		archiver: archiver,
		sessions: sessions,
		opts:     opts,
		logger:   log,
	}
}

// Ask runs one research turn against a session. The turn is atomic: session
// history is mutated only when every stage succeeds, so a failed turn leaves
// the history untouched. Failures carry the stage that failed.
func (s *ResearchService) Ask(ctx context.Context, tenantID, sessionID string, req *model.AskRequest) (*model.AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" || !utf8.ValidString(question) {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidQuery)
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: mode must be %q or %q", ErrInvalidQuery, model.ModeGenerate, model.ModeSearch)
	}

	if err := s.sessions.beginTurn(tenantID, sessionID); err != nil {
		return nil, err
	}
	defer s.sessions.endTurn(sessionID)

	sess, err := s.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	anns, err := s.store.Fetch(ctx, sess.Company.Ticker, sess.Filter)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues(tenantID, string(req.Mode), "retrieval_failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrRetrievalFailed, err)
	}
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())

	payload, err := s.builder.Build(req.Mode, sess.Company, question, anns, sess.Summaries)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues(tenantID, string(req.Mode), "prompt_failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrPromptFailed, err)
	}

	resp, err := s.llm.Complete(ctx, &llm.CompletionRequest{
		Model:     s.opts.Model,
		System:    payload.System,
		MaxTokens: s.opts.MaxTokens,
		Messages: []llm.ChatMessage{
			{Role: "user", Content: payload.User},
		},
	})
	if err != nil {
		metrics.TurnsTotal.WithLabelValues(tenantID, string(req.Mode), "model_failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrModelFailed, err)
	}

	answer := model.Answer{
		Text:      resp.Content,
		Citations: mapCitations(resp.CitationIndices, anns),
		Mode:      req.Mode,
		Model:     resp.Model,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
		LatencyMs: resp.LatencyMs,
	}

	query := model.Query{
		Question: question,
		Mode:     req.Mode,
		AskedAt:  start,
	}

	// Best effort from here on: the turn has succeeded, so neither
	// summarization nor archival may fail it.
	summary := s.summarizeTurn(ctx, question, answer.Text)

	if err := s.sessions.appendTurn(tenantID, sessionID, model.Turn{Query: query, Answer: answer}, summary); err != nil {
		return nil, err
	}

	s.archiveTurn(ctx, sess, query, answer, len(anns))

	metrics.TurnsTotal.WithLabelValues(tenantID, string(req.Mode), "success").Inc()
	metrics.RecordCompletion(answer.Model, "success", float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)

	s.logger.Info("turn completed",
		zap.String("session_id", sessionID),
		zap.String("ticker", sess.Company.Ticker),
		zap.String("mode", string(req.Mode)),
		zap.Int("sources", len(anns)),
		zap.Int("citations", len(answer.Citations)),
		zap.Int64("latency_ms", resp.LatencyMs),
	)

	return &model.AskResponse{
		Answer:       answer,
		SourcesCount: len(anns),
	}, nil
}

// mapCitations resolves the model's 1-based citation indices against the
// announcements fetched this turn. Out-of-range indices are dropped, which
// keeps every citation pointing at an announcement that satisfied the
// active filter.
func mapCitations(indices []int, anns []model.Announcement) []model.Citation {
	var citations []model.Citation
	for _, idx := range indices {
		if idx < 1 || idx > len(anns) {
			continue
		}
		a := anns[idx-1]
		citations = append(citations, model.Citation{
			Index:          idx,
			AnnouncementID: a.ID,
			Ticker:         a.Ticker,
			Title:          a.Title,
			URL:            a.URL,
			PublishedAt:    a.PublishedAt,
		})
	}
	return citations
}

// summarizeTurn condenses the exchange into one rolling-history line using
// the summary model. Returns "" on failure.
func (s *ResearchService) summarizeTurn(ctx context.Context, question, answerText string) string {
	payload := prompt.BuildTurnSummary(question, answerText)

	sumCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	resp, err := s.llm.Complete(sumCtx, &llm.CompletionRequest{
		Model:     s.opts.SummaryModel,
		System:    payload.System,
		MaxTokens: 200,
		Messages: []llm.ChatMessage{
			{Role: "user", Content: payload.User},
		},
	})
	if err != nil {
		s.logger.Warn("history summarization failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(resp.Content)
}

// archiveTurn publishes the completed turn for warehouse ingestion.
func (s *ResearchService) archiveTurn(ctx context.Context, sess *model.Session, q model.Query, a model.Answer, sources int) {
	if s.archiver == nil {
		return
	}

	citationIDs := make([]string, 0, len(a.Citations))
	for _, c := range a.Citations {
		citationIDs = append(citationIDs, c.AnnouncementID)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.archiver.PublishTurn(pubCtx, &model.TurnRecord{
		SessionID:    sess.ID,
		TenantID:     sess.TenantID,
		UserID:       sess.UserID,
		Ticker:       sess.Company.Ticker,
		Filter:       sess.Filter,
		Question:     q.Question,
		Mode:         q.Mode,
		AnswerText:   a.Text,
		CitationIDs:  citationIDs,
		Model:        a.Model,
		TokensIn:     a.TokensIn,
		TokensOut:    a.TokensOut,
		SourcesCount: sources,
		CompletedAt:  time.Now(),
	})
	if err != nil {
		metrics.TurnsArchived.WithLabelValues("failure").Inc()
		s.logger.Warn("turn archival failed",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return
	}
	metrics.TurnsArchived.WithLabelValues("success").Inc()
}
