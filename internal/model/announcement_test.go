package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnnouncementType_Known(t *testing.T) {
	for _, k := range KnownTypes {
		assert.True(t, k.Known(), "%s", k)
	}
	assert.False(t, AnnouncementType("press_release").Known())
	assert.False(t, AnnouncementType("").Known())
}

func TestFilter_MatchesEndDayInclusive(t *testing.T) {
	f := Filter{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, f.Matches(Announcement{PublishedAt: time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)}))
	assert.False(t, f.Matches(Announcement{PublishedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}))
	assert.False(t, f.Matches(Announcement{PublishedAt: time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)}))
}
