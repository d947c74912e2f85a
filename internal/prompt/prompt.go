// Package prompt assembles LLM prompts from retrieved announcements.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ausiq/company-corpus/internal/model"
)

var (
	// ErrEmptyContext indicates a grounded prompt was requested with no
	// announcements to ground it in. Empty-context queries are rejected
	// here, before any model call.
	ErrEmptyContext = errors.New("no announcements to ground the prompt")
	// ErrUnknownMode indicates an unrecognised chat mode.
	ErrUnknownMode = errors.New("unknown chat mode")
)

// Payload is an assembled prompt ready for the model client.
type Payload struct {
	System      string
	User        string
	Mode        model.Mode
	SourceCount int
}

// Builder assembles prompts. Pure: no network or stateful access.
type Builder struct {
	// ConfidenceThreshold is embedded in the generate-mode instructions;
	// below it the model is told to flag the answer as uncertain.
	ConfidenceThreshold float64
	// MaxSourceChars caps how much of each announcement body is inlined.
	MaxSourceChars int
}

// NewBuilder returns a Builder with the defaults used in production.
func NewBuilder() *Builder {
	return &Builder{
		ConfidenceThreshold: 0.7,
		MaxSourceChars:      4000,
	}
}

// Build assembles the prompt for one turn. Template selection is a pure
// function of mode. historySummaries are rolling summaries of earlier turns,
// oldest first.
func (b *Builder) Build(mode model.Mode, company model.Company, question string, anns []model.Announcement, historySummaries []string) (*Payload, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if len(anns) == 0 {
		return nil, ErrEmptyContext
	}

	var system string
	switch mode {
	case model.ModeGenerate:
		system = fmt.Sprintf(generateSystemTemplate, company.Name, company.Ticker, b.ConfidenceThreshold, len(anns))
	case model.ModeSearch:
		system = fmt.Sprintf(searchSystemTemplate, company.Name, company.Ticker, len(anns))
	}

	if len(historySummaries) > 0 {
		var sb strings.Builder
		sb.WriteString(system)
		sb.WriteString("\n\nConversation history summary:\n")
		for _, s := range historySummaries {
			sb.WriteString("- ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
		system = sb.String()
	}

	return &Payload{
		System:      system,
		User:        b.userMessage(question, anns),
		Mode:        mode,
		SourceCount: len(anns),
	}, nil
}

// userMessage renders the question together with the numbered source digest
// the citation indices refer to.
func (b *Builder) userMessage(question string, anns []model.Announcement) string {
	var sb strings.Builder

	sb.WriteString("Source announcements, most recent first:\n\n")
	for i, a := range anns {
		sb.WriteString(fmt.Sprintf("[%d] %s — %s", i+1, a.PublishedAt.Format("2006-01-02"), a.Title))
		if a.PriceSensitive {
			sb.WriteString(" (price sensitive)")
		}
		sb.WriteString("\n")

		content := strings.TrimSpace(a.Content)
		if content != "" {
			if b.MaxSourceChars > 0 && len(content) > b.MaxSourceChars {
				cut := b.MaxSourceChars
				// Back off to a rune boundary so a multi-byte character is
				// never split.
				for cut > 0 && !utf8.RuneStart(content[cut]) {
					cut--
				}
				content = content[:cut] + " …[truncated]"
			}
			sb.WriteString(content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(question))

	return sb.String()
}

// BuildTurnSummary assembles the prompt used to condense one completed
// exchange into a single history line. Not grounded, so it never returns
// ErrEmptyContext.
func BuildTurnSummary(question, answer string) *Payload {
	return &Payload{
		System: turnSummarySystem,
		User:   fmt.Sprintf("User: %s | Assistant: %s", question, answer),
	}
}
