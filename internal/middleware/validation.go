package middleware

import (
	"errors"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9]{2,6}$`)

// ValidateTicker validates an exchange ticker code.
func ValidateTicker(ticker string) error {
	if !tickerPattern.MatchString(ticker) {
		return errors.New("ticker must be 2-6 uppercase letters or digits")
	}
	return nil
}

// ValidateQuestion validates a research question.
func ValidateQuestion(question string) error {
	if len(question) == 0 {
		return errors.New("question cannot be empty")
	}
	if len(question) > 4000 {
		return errors.New("question exceeds maximum length")
	}
	if !utf8.ValidString(question) {
		return errors.New("question must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ParseDate parses an inclusive filter bound in YYYY-MM-DD form.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.New("date must be in YYYY-MM-DD format")
	}
	return t, nil
}
