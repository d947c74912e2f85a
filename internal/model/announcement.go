// Package model defines data structures for the company corpus platform.
package model

import (
	"time"
)

// AnnouncementType classifies a regulatory announcement.
type AnnouncementType string

const (
	TypeFinancialReport AnnouncementType = "financial_report"
	TypeCashflowReport  AnnouncementType = "cashflow_report"
	TypeMiningStudy     AnnouncementType = "mining_study"
	TypePlacement       AnnouncementType = "placement"
	TypeShareIssue      AnnouncementType = "share_issue"
	TypeTradingHalt     AnnouncementType = "trading_halt"
	TypePresentation    AnnouncementType = "presentation"
)

// KnownTypes lists the announcement types a filter may select.
var KnownTypes = []AnnouncementType{
	TypeFinancialReport,
	TypeCashflowReport,
	TypeMiningStudy,
	TypePlacement,
	TypeShareIssue,
	TypeTradingHalt,
	TypePresentation,
}

// Known reports whether t is a selectable announcement type.
func (t AnnouncementType) Known() bool {
	for _, k := range KnownTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Announcement is a single regulatory disclosure for a company.
// Announcements are immutable once ingested; ingestion is an external process.
type Announcement struct {
	ID             string           `json:"id"`
	Ticker         string           `json:"ticker"`
	Type           AnnouncementType `json:"type"`
	RawTypes       string           `json:"raw_types,omitempty"`
	Title          string           `json:"title"`
	URL            string           `json:"url,omitempty"`
	Content        string           `json:"content,omitempty"`
	PriceSensitive bool             `json:"price_sensitive"`
	PublishedAt    time.Time        `json:"published_at"`
}

// Filter narrows which announcements a session works over.
// An empty Types set means all types. Bounds are inclusive.
type Filter struct {
	Types              []AnnouncementType `json:"types,omitempty"`
	From               time.Time          `json:"from"`
	To                 time.Time          `json:"to"`
	PriceSensitiveOnly bool               `json:"price_sensitive_only,omitempty"`
}

// HasType reports whether t is selected by the filter.
func (f Filter) HasType(t AnnouncementType) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, ft := range f.Types {
		if ft == t {
			return true
		}
	}
	return false
}

// Matches reports whether the announcement satisfies the filter.
func (f Filter) Matches(a Announcement) bool {
	if a.PublishedAt.Before(f.From) || a.PublishedAt.After(f.To.Add(24*time.Hour-time.Nanosecond)) {
		return false
	}
	if f.PriceSensitiveOnly && !a.PriceSensitive {
		return false
	}
	return f.HasType(a.Type)
}
