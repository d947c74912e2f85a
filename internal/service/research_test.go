package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausiq/company-corpus/internal/llm"
	"github.com/ausiq/company-corpus/internal/model"
	"github.com/ausiq/company-corpus/internal/prompt"
	"github.com/ausiq/company-corpus/internal/store"
	"github.com/ausiq/company-corpus/pkg/logger"
	"github.com/ausiq/company-corpus/pkg/metrics"
)

const summaryModel = "summary-model"

var acme = model.Company{Ticker: "ACM", Name: "Acme Ltd"}

type fakeStore struct {
	anns       []model.Announcement
	err        error
	fetchCalls int
	lastTicker string
	lastFilter model.Filter
}

func (f *fakeStore) Fetch(ctx context.Context, ticker string, filter model.Filter) ([]model.Announcement, error) {
	f.fetchCalls++
	f.lastTicker = ticker
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.anns, nil
}

func (f *fakeStore) ListCompanies(ctx context.Context) ([]model.Company, error) {
	return []model.Company{acme}, nil
}

func (f *fakeStore) CompanySummary(ctx context.Context, ticker string) (*model.CompanySummary, error) {
	return &model.CompanySummary{Company: acme}, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

type fakeLLM struct {
	resp         *llm.CompletionResponse
	err          error
	summaryErr   error
	answerCalls  int
	summaryCalls int
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if req.Model == summaryModel {
		f.summaryCalls++
		if f.summaryErr != nil {
			return nil, f.summaryErr
		}
		return &llm.CompletionResponse{Content: "User asked about profit. Assistant replied with figures."}, nil
	}

	f.answerCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return nil }

type fakeArchiver struct {
	records []*model.TurnRecord
	err     error
}

func (f *fakeArchiver) PublishTurn(ctx context.Context, rec *model.TurnRecord) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.records = append(f.records, rec)
	return uint64(len(f.records)), nil
}

func q1Announcements(n int) []model.Announcement {
	anns := make([]model.Announcement, n)
	for i := range anns {
		anns[i] = model.Announcement{
			ID:          fmt.Sprintf("ann-%d", i+1),
			Ticker:      "ACM",
			Type:        model.TypeFinancialReport,
			Title:       fmt.Sprintf("Quarterly Report %d", i+1),
			Content:     "Net profit was $4.2M.",
			PublishedAt: time.Date(2024, 3, 20-i, 0, 0, 0, 0, time.UTC),
		}
	}
	return anns
}

func q1Filter() model.Filter {
	return model.Filter{
		Types: []model.AnnouncementType{model.TypeFinancialReport},
		From:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

type fixture struct {
	sessions *SessionService
	research *ResearchService
	store    *fakeStore
	llm      *fakeLLM
	archiver *fakeArchiver
	session  *model.Session
}

func newFixture(t *testing.T, st *fakeStore, client *fakeLLM, archiver *fakeArchiver) *fixture {
	t.Helper()

	log := logger.NewNop()
	sessions := NewSessionService(log)

	var turnArchiver TurnArchiver
	if archiver != nil {
		turnArchiver = archiver
	}

	research := NewResearchService(
		st,
		prompt.NewBuilder(),
		client,
		turnArchiver,
		sessions,
		ResearchOptions{Model: "main-model", SummaryModel: summaryModel, MaxTokens: 100},
		log,
	)

	sess, err := sessions.Create(context.Background(), "tenant-1", "user-1", acme)
	require.NoError(t, err)

	_, err = sessions.SetFilter(context.Background(), "tenant-1", sess.ID, q1Filter())
	require.NoError(t, err)

	return &fixture{
		sessions: sessions,
		research: research,
		store:    st,
		llm:      client,
		archiver: archiver,
		session:  sess,
	}
}

func (f *fixture) historyLen(t *testing.T) int {
	t.Helper()
	sess, err := f.sessions.Get(context.Background(), "tenant-1", f.session.ID)
	require.NoError(t, err)
	return len(sess.Turns)
}

func generateReq() *model.AskRequest {
	return &model.AskRequest{Question: "What was the net profit?", Mode: model.ModeGenerate}
}

func TestAsk_SuccessAppendsExactlyOneTurn(t *testing.T) {
	st := &fakeStore{anns: q1Announcements(3)}
	client := &fakeLLM{resp: &llm.CompletionResponse{
		Content:         "Net profit was $4.2M [1], up from $3.1M [3].",
		CitationIndices: []int{1, 3},
		Model:           "main-model",
		TokensIn:        900,
		TokensOut:       120,
	}}
	f := newFixture(t, st, client, &fakeArchiver{})

	resp, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	require.NoError(t, err)

	assert.Equal(t, 1, f.historyLen(t))
	assert.Equal(t, 3, resp.SourcesCount)
	assert.Equal(t, 1, st.fetchCalls)
	assert.Equal(t, "ACM", st.lastTicker)

	require.Len(t, resp.Answer.Citations, 2)
	assert.Equal(t, "ann-1", resp.Answer.Citations[0].AnnouncementID)
	assert.Equal(t, "ann-3", resp.Answer.Citations[1].AnnouncementID)

	// Every citation maps to an announcement from this turn's fetch and
	// satisfies the filter that was active when the query was issued.
	fetched := map[string]model.Announcement{}
	for _, a := range st.anns {
		fetched[a.ID] = a
	}
	for _, c := range resp.Answer.Citations {
		a, ok := fetched[c.AnnouncementID]
		require.True(t, ok)
		assert.True(t, st.lastFilter.Matches(a))
	}
}

func TestAsk_OutOfRangeCitationIndicesDropped(t *testing.T) {
	st := &fakeStore{anns: q1Announcements(2)}
	client := &fakeLLM{resp: &llm.CompletionResponse{
		Content:         "Figures [1] and [2], plus a stray [7] and [0].",
		CitationIndices: []int{1, 2, 7},
	}}
	f := newFixture(t, st, client, nil)

	resp, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	require.NoError(t, err)

	require.Len(t, resp.Answer.Citations, 2)
	for _, c := range resp.Answer.Citations {
		assert.GreaterOrEqual(t, c.Index, 1)
		assert.LessOrEqual(t, c.Index, 2)
	}
}

func TestAsk_RetrievalFailureLeavesHistoryUnchanged(t *testing.T) {
	st := &fakeStore{err: fmt.Errorf("%w: connection refused", store.ErrStoreUnavailable)}
	client := &fakeLLM{}
	f := newFixture(t, st, client, nil)

	_, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalFailed)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	assert.Equal(t, 0, client.answerCalls, "no model call without grounding documents")
	assert.Equal(t, 0, f.historyLen(t))
}

func TestAsk_EmptyContextRejectedBeforeModelCall(t *testing.T) {
	st := &fakeStore{anns: nil}
	client := &fakeLLM{}
	f := newFixture(t, st, client, nil)

	_, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPromptFailed)
	assert.ErrorIs(t, err, prompt.ErrEmptyContext)

	assert.Equal(t, 0, client.answerCalls)
	assert.Equal(t, 0, f.historyLen(t))
}

func TestAsk_ModelFailureLeavesHistoryUnchanged(t *testing.T) {
	st := &fakeStore{anns: q1Announcements(2)}
	client := &fakeLLM{err: fmt.Errorf("%w: status 401", llm.ErrModel)}
	archiver := &fakeArchiver{}
	f := newFixture(t, st, client, archiver)

	_, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelFailed)
	assert.ErrorIs(t, err, llm.ErrModel)

	assert.Equal(t, 0, f.historyLen(t))
	assert.Empty(t, archiver.records)
}

func TestAsk_ArchiverFailureDoesNotFailTurn(t *testing.T) {
	st := &fakeStore{anns: q1Announcements(1)}
	client := &fakeLLM{resp: &llm.CompletionResponse{Content: "Answer [1].", CitationIndices: []int{1}}}
	f := newFixture(t, st, client, &fakeArchiver{err: errors.New("stream down")})

	failed := testutil.ToFloat64(metrics.TurnsArchived.WithLabelValues("failure"))

	_, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	require.NoError(t, err)
	assert.Equal(t, 1, f.historyLen(t))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.TurnsArchived.WithLabelValues("failure")))
}

func TestAsk_SummaryFailureDoesNotFailTurn(t *testing.T) {
	st := &fakeStore{anns: q1Announcements(1)}
	client := &fakeLLM{
		resp:       &llm.CompletionResponse{Content: "Answer [1].", CitationIndices: []int{1}},
		summaryErr: errors.New("summary model down"),
	}
	f := newFixture(t, st, client, nil)

	_, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	require.NoError(t, err)

	sess, err := f.sessions.Get(context.Background(), "tenant-1", f.session.ID)
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 1)
	assert.Empty(t, sess.Summaries)
}

func TestAsk_RollingSummaryRecorded(t *testing.T) {
	st := &fakeStore{anns: q1Announcements(1)}
	client := &fakeLLM{resp: &llm.CompletionResponse{Content: "Answer [1].", CitationIndices: []int{1}}}
	f := newFixture(t, st, client, nil)

	_, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	require.NoError(t, err)

	assert.Equal(t, 1, client.summaryCalls)

	sess, err := f.sessions.Get(context.Background(), "tenant-1", f.session.ID)
	require.NoError(t, err)
	require.Len(t, sess.Summaries, 1)
	assert.Contains(t, sess.Summaries[0], "User asked about")
}

func TestAsk_InvalidQuery(t *testing.T) {
	st := &fakeStore{anns: q1Announcements(1)}
	f := newFixture(t, st, &fakeLLM{}, nil)

	_, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID,
		&model.AskRequest{Question: "   ", Mode: model.ModeGenerate})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = f.research.Ask(context.Background(), "tenant-1", f.session.ID,
		&model.AskRequest{Question: "question", Mode: "summarize"})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	assert.Equal(t, 0, st.fetchCalls)
	assert.Equal(t, 0, f.historyLen(t))
}

func TestAsk_SessionNotFound(t *testing.T) {
	f := newFixture(t, &fakeStore{anns: q1Announcements(1)}, &fakeLLM{}, nil)

	_, err := f.research.Ask(context.Background(), "tenant-1", "00000000-0000-0000-0000-000000000000", generateReq())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.research.Ask(context.Background(), "other-tenant", f.session.ID, generateReq())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAsk_SecondConcurrentTurnRejected(t *testing.T) {
	f := newFixture(t, &fakeStore{anns: q1Announcements(1)}, &fakeLLM{}, nil)

	require.NoError(t, f.sessions.beginTurn("tenant-1", f.session.ID))
	defer f.sessions.endTurn(f.session.ID)

	_, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	assert.ErrorIs(t, err, ErrTurnInProgress)
}

func TestAsk_ArchiveRecordContents(t *testing.T) {
	st := &fakeStore{anns: q1Announcements(2)}
	client := &fakeLLM{resp: &llm.CompletionResponse{
		Content:         "Answer [2].",
		CitationIndices: []int{2},
		Model:           "main-model",
		TokensIn:        500,
		TokensOut:       80,
	}}
	archiver := &fakeArchiver{}
	f := newFixture(t, st, client, archiver)

	archived := testutil.ToFloat64(metrics.TurnsArchived.WithLabelValues("success"))

	_, err := f.research.Ask(context.Background(), "tenant-1", f.session.ID, generateReq())
	require.NoError(t, err)
	assert.Equal(t, archived+1, testutil.ToFloat64(metrics.TurnsArchived.WithLabelValues("success")))

	require.Len(t, archiver.records, 1)
	rec := archiver.records[0]
	assert.Equal(t, f.session.ID, rec.SessionID)
	assert.Equal(t, "ACM", rec.Ticker)
	assert.Equal(t, model.ModeGenerate, rec.Mode)
	assert.Equal(t, []string{"ann-2"}, rec.CitationIDs)
	assert.Equal(t, 2, rec.SourcesCount)
	assert.Equal(t, 500, rec.TokensIn)
}
