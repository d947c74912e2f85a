package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ausiq/company-corpus/internal/model"
)

const (
	// StreamName is the name of the research turns stream.
	StreamName = "RESEARCH_TURNS"

	// SubjectPrefix is the prefix for all turn subjects.
	SubjectPrefix = "corpus"
)

// Archiver publishes completed turns to JetStream.
type Archiver struct {
	client *Client
}

// NewArchiver creates a new turn archiver.
func NewArchiver(client *Client) *Archiver {
	return &Archiver{client: client}
}

// EnsureStream ensures the research turns stream exists.
func (a *Archiver) EnsureStream(ctx context.Context) error {
	js := a.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Completed research turns awaiting warehouse ingestion",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for one turn record.
func TurnSubject(ticker, sessionID string) string {
	return fmt.Sprintf("%s.%s.%s.turn", SubjectPrefix, ticker, sessionID)
}

// PublishTurn publishes a turn record and returns its stream sequence.
func (a *Archiver) PublishTurn(ctx context.Context, rec *model.TurnRecord) (uint64, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal turn record: %w", err)
	}

	ack, err := a.client.JetStream().Publish(ctx, TurnSubject(rec.Ticker, rec.SessionID), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish turn record: %w", err)
	}

	return ack.Sequence, nil
}
