// Package events publishes synthesis lifecycle notifications over NATS
// for downstream consumers. Publishing is optional and best effort: a
// gateway without a NATS URL simply runs without it.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const subjectSynthesisCompleted = "tts.synthesis.completed"

// SynthesisCompleted announces one finished synthesis.
type SynthesisCompleted struct {
	JobID       string    `json:"job_id,omitempty"`
	Provider    string    `json:"provider"`
	Voice       string    `json:"voice"`
	Lang        string    `json:"lang"`
	TextChars   int       `json:"text_chars"`
	AudioBytes  int       `json:"audio_bytes"`
	DurationMS  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher wraps a NATS connection scoped to synthesis subjects.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials the NATS server.
func Connect(url string) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("ttsgate"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// PublishSynthesisCompleted emits the event, stamping the completion time
// when the caller left it unset.
func (p *Publisher) PublishSynthesisCompleted(ev SynthesisCompleted) error {
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(subjectSynthesisCompleted, data); err != nil {
		return fmt.Errorf("publish %s: %w", subjectSynthesisCompleted, err)
	}
	return nil
}

// Close drains the connection so queued messages flush before shutdown.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
