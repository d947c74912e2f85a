// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ausiq/company-corpus/internal/middleware"
	"github.com/ausiq/company-corpus/internal/model"
	"github.com/ausiq/company-corpus/internal/store"
	"github.com/ausiq/company-corpus/pkg/logger"
)

// CompanyHandler handles company and announcement endpoints.
type CompanyHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewCompanyHandler creates a new company handler.
func NewCompanyHandler(st store.Store, log *logger.Logger) *CompanyHandler {
	return &CompanyHandler{
		store:  st,
		logger: log,
	}
}

// List handles GET /api/v1/companies
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.store.ListCompanies(r.Context())
	if err != nil {
		h.logger.Error("failed to list companies")
		writeError(w, http.StatusServiceUnavailable, "failed to list companies")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"companies": companies,
		"total":     len(companies),
	})
}

// Summary handles GET /api/v1/companies/{ticker}/summary
func (h *CompanyHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

	if err := middleware.ValidateTicker(ticker); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.store.CompanySummary(r.Context(), ticker)
	if errors.Is(err, store.ErrCompanyNotFound) {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch company summary")
		writeError(w, http.StatusServiceUnavailable, "failed to fetch company summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Announcements handles GET /api/v1/companies/{ticker}/announcements
// Query params: from, to (YYYY-MM-DD), types (comma separated), price_sensitive.
func (h *CompanyHandler) Announcements(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))

	if err := middleware.ValidateTicker(ticker); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	anns, err := h.store.Fetch(r.Context(), ticker, f)
	if errors.Is(err, store.ErrInvalidFilter) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch announcements")
		writeError(w, http.StatusServiceUnavailable, "failed to fetch announcements")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"announcements": anns,
		"total":         len(anns),
	})
}

// filterFromQuery parses filter query parameters. Bounds are required.
func filterFromQuery(r *http.Request) (model.Filter, error) {
	var f model.Filter

	from, err := middleware.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		return f, err
	}
	to, err := middleware.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		return f, err
	}
	f.From = from
	f.To = to

	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			f.Types = append(f.Types, model.AnnouncementType(strings.TrimSpace(t)))
		}
	}

	f.PriceSensitiveOnly = r.URL.Query().Get("price_sensitive") == "true"

	return f, nil
}
