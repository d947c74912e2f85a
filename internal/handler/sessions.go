package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ausiq/company-corpus/internal/middleware"
	"github.com/ausiq/company-corpus/internal/model"
	"github.com/ausiq/company-corpus/internal/prompt"
	"github.com/ausiq/company-corpus/internal/service"
	"github.com/ausiq/company-corpus/internal/store"
	"github.com/ausiq/company-corpus/pkg/logger"
)

// SessionHandler handles research session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	research *service.ResearchService
	store    store.Store
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(
	sessions *service.SessionService,
	research *service.ResearchService,
	st store.Store,
	log *logger.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		research: research,
		store:    st,
		logger:   log,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	userID := middleware.GetUserID(ctx)

	var req model.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticker := strings.ToUpper(req.Ticker)
	if err := middleware.ValidateTicker(ticker); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The company must exist in the corpus before a session can target it.
	summary, err := h.store.CompanySummary(ctx, ticker)
	if errors.Is(err, store.ErrCompanyNotFound) {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to resolve company")
		writeError(w, http.StatusServiceUnavailable, "failed to resolve company")
		return
	}

	sess, err := h.sessions.Create(ctx, tenantID, userID, summary.Company)
	if err != nil {
		h.logger.Error("failed to create session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	limit := 20
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	resp, err := h.sessions.List(ctx, tenantID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list sessions")
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// Delete handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessions.Delete(ctx, tenantID, sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetFilter handles PUT /api/v1/sessions/{id}/filter
func (h *SessionHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	from, err := middleware.ParseDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := middleware.ParseDate(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := model.Filter{
		Types:              req.Types,
		From:               from,
		To:                 to,
		PriceSensitiveOnly: req.PriceSensitiveOnly,
	}

	sess, err := h.sessions.SetFilter(ctx, tenantID, sessionID, f)
	if errors.Is(err, service.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if errors.Is(err, store.ErrInvalidFilter) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to update filter")
		writeError(w, http.StatusInternalServerError, "failed to update filter")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// Ask handles POST /api/v1/sessions/{id}/ask
func (h *SessionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateQuestion(req.Question); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.research.Ask(ctx, tenantID, sessionID, &req)
	if err != nil {
		h.writeAskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeAskError maps turn failures to HTTP responses, preserving which
// stage failed.
func (h *SessionHandler) writeAskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, service.ErrTurnInProgress):
		writeError(w, http.StatusConflict, "a turn is already in progress")
	case errors.Is(err, service.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, prompt.ErrEmptyContext):
		writeError(w, http.StatusUnprocessableEntity, "no announcements match the current filter")
	case errors.Is(err, store.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRetrievalFailed):
		writeError(w, http.StatusServiceUnavailable, "retrieval stage failed")
	case errors.Is(err, service.ErrPromptFailed):
		writeError(w, http.StatusUnprocessableEntity, "prompt stage failed")
	case errors.Is(err, service.ErrModelFailed):
		writeError(w, http.StatusBadGateway, "model stage failed")
	default:
		h.logger.Error("turn failed")
		writeError(w, http.StatusInternalServerError, "turn failed")
	}
}

// History handles GET /api/v1/sessions/{id}/history
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, &model.HistoryResponse{
		Turns: sess.Turns,
		Total: len(sess.Turns),
	})
}
