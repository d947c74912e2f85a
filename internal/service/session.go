package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ausiq/company-corpus/internal/model"
	"github.com/ausiq/company-corpus/internal/store"
	"github.com/ausiq/company-corpus/pkg/logger"
	"github.com/ausiq/company-corpus/pkg/metrics"

	"go.uber.org/zap"
)

// maxSummaries bounds the rolling conversation-history summary.
const maxSummaries = 5

// defaultLookback is the filter range a new session starts with.
const defaultLookback = 365 * 24 * time.Hour

// SessionService holds per-session conversation state. Sessions live in
// process memory and are discarded at session end; completed turns are
// archived separately.
type SessionService struct {
	logger *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*model.Session
	inFlight map[string]bool
}

// NewSessionService creates a new session service.
func NewSessionService(log *logger.Logger) *SessionService {
	return &SessionService{
		logger:   log,
		sessions: make(map[string]*model.Session),
		inFlight: make(map[string]bool),
	}
}

// Create starts a research session for one company. The company is
// immutable for the life of the session. The filter starts at all types
// over the last year.
func (s *SessionService) Create(ctx context.Context, tenantID, userID string, company model.Company) (*model.Session, error) {
	now := time.Now()

	sess := &model.Session{
		ID:       uuid.Must(uuid.NewV7()).String(),
		TenantID: tenantID,
		UserID:   userID,
		Company:  company,
		Filter: model.Filter{
			From: now.Add(-defaultLookback),
			To:   now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	metrics.SessionsTotal.WithLabelValues(tenantID).Inc()

	s.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("tenant_id", tenantID),
		zap.String("ticker", company.Ticker),
	)

	return sess, nil
}

// Get retrieves a session by ID. Returns a copy so callers cannot mutate
// state outside the service.
func (s *SessionService) Get(ctx context.Context, tenantID, sessionID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.lookupLocked(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	copied := *sess
	copied.Turns = append([]model.Turn(nil), sess.Turns...)
	copied.Summaries = append([]string(nil), sess.Summaries...)
	return &copied, nil
}

// List retrieves sessions for a tenant.
func (s *SessionService) List(ctx context.Context, tenantID string, limit, offset int) (*model.ListSessionsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []model.Session
	for _, sess := range s.sessions {
		if sess.TenantID == tenantID && !sess.Deleted {
			sessions = append(sessions, *sess)
		}
	}

	total := len(sessions)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &model.ListSessionsResponse{
		Sessions: sessions[start:end],
		Total:    total,
		HasMore:  end < total,
	}, nil
}

// Delete soft deletes a session.
func (s *SessionService) Delete(ctx context.Context, tenantID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(tenantID, sessionID)
	if err != nil {
		return err
	}

	sess.Deleted = true
	sess.UpdatedAt = time.Now()
	return nil
}

// SetFilter replaces the session's filter after validating it against the
// session's company.
func (s *SessionService) SetFilter(ctx context.Context, tenantID, sessionID string, f model.Filter) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := store.ValidateFilter(sess.Company.Ticker, f); err != nil {
		return nil, err
	}

	sess.Filter = f
	sess.UpdatedAt = time.Now()

	copied := *sess
	return &copied, nil
}

// beginTurn marks the session as having an active turn. A second concurrent
// turn on the same session is rejected.
func (s *SessionService) beginTurn(tenantID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookupLocked(tenantID, sessionID); err != nil {
		return err
	}
	if s.inFlight[sessionID] {
		return ErrTurnInProgress
	}
	s.inFlight[sessionID] = true
	return nil
}

// endTurn clears the active-turn marker.
func (s *SessionService) endTurn(sessionID string) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}

// appendTurn records one completed turn. This is the only place turn
// history is mutated; a failed turn never reaches it.
func (s *SessionService) appendTurn(tenantID, sessionID string, turn model.Turn, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(tenantID, sessionID)
	if err != nil {
		return err
	}

	sess.Turns = append(sess.Turns, turn)
	if summary != "" {
		sess.Summaries = append(sess.Summaries, summary)
		if len(sess.Summaries) > maxSummaries {
			sess.Summaries = sess.Summaries[len(sess.Summaries)-maxSummaries:]
		}
	}
	sess.UpdatedAt = time.Now()
	return nil
}

// lookupLocked finds a live session for the tenant. Callers hold s.mu.
func (s *SessionService) lookupLocked(tenantID, sessionID string) (*model.Session, error) {
	sess, exists := s.sessions[sessionID]
	if !exists || sess.Deleted || sess.TenantID != tenantID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}
