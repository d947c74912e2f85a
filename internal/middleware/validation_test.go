package middleware

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTicker(t *testing.T) {
	tests := []struct {
		name    string
		ticker  string
		wantErr bool
	}{
		{"three letters", "BHP", false},
		{"two letters", "WC", false},
		{"six characters", "ABC123", false},
		{"digits only", "29M", false},
		{"too short", "A", true},
		{"too long", "TOOLONG", true},
		{"lowercase", "bhp", true},
		{"empty", "", true},
		{"whitespace", "BH P", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTicker(tt.ticker)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateQuestion(t *testing.T) {
	assert.NoError(t, ValidateQuestion("What was the net profit last quarter?"))
	assert.NoError(t, ValidateQuestion(strings.Repeat("a", 4000)))

	assert.Error(t, ValidateQuestion(""))
	assert.Error(t, ValidateQuestion(strings.Repeat("a", 4001)))
	assert.Error(t, ValidateQuestion("bad utf8 \xff\xfe"))
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID("018f4e2a-9a3c-7f1b-b2d4-1c5e6f7a8b9c"))
	assert.Error(t, ValidateSessionID("not-a-uuid"))
	assert.Error(t, ValidateSessionID(""))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("31/03/2024")
	assert.Error(t, err)
	_, err = ParseDate("2024-13-01")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}
