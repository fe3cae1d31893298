package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/audioforge/ttsgate/internal/audit"
	"github.com/audioforge/ttsgate/internal/events"
	"github.com/audioforge/ttsgate/internal/jobs"
	"github.com/audioforge/ttsgate/internal/queue"
	"github.com/audioforge/ttsgate/internal/tts"
)

// SynthesizeWorker renders queued synthesis requests and stores the audio
// under the job id the API handed out.
type SynthesizeWorker struct {
	registry  *tts.Registry
	store     *jobs.Store
	auditor   *audit.Service
	publisher *events.Publisher
}

// NewSynthesizeWorker wires the worker. auditor and publisher may be nil
// when postgres or NATS are not configured.
func NewSynthesizeWorker(registry *tts.Registry, store *jobs.Store, auditor *audit.Service, publisher *events.Publisher) *SynthesizeWorker {
	return &SynthesizeWorker{
		registry:  registry,
		store:     store,
		auditor:   auditor,
		publisher: publisher,
	}
}

func (w *SynthesizeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.SynthesizePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("parse job ID: %w", err)
	}

	slog.Info("synthesizing job", "job_id", jobID, "provider", payload.Provider)

	if err := w.store.MarkProcessing(ctx, payload.JobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			slog.Warn("job state expired before processing, dropping", "job_id", jobID)
			return nil
		}
		return fmt.Errorf("update status to processing: %w", err)
	}

	provider, err := w.registry.Get(payload.Provider)
	if err != nil {
		w.failJob(ctx, payload.JobID, err)
		return fmt.Errorf("resolve provider: %v: %w", err, asynq.SkipRetry)
	}

	started := time.Now()
	res, err := provider.Synthesize(ctx, payload.Request)
	if err != nil {
		w.failJob(ctx, payload.JobID, err)
		if errors.Is(err, tts.ErrUnsupportedFormat) || errors.Is(err, tts.ErrNoVoicesAvailable) {
			return fmt.Errorf("synthesize: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("synthesize: %w", err)
	}
	elapsed := time.Since(started)

	if err := w.store.Complete(ctx, payload.JobID, res); err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	w.record(ctx, payload, provider.Name(), res, elapsed)

	slog.Info("job synthesized",
		"job_id", jobID,
		"provider", provider.Name(),
		"voice", res.Voice,
		"audio_bytes", len(res.Audio),
		"duration_ms", elapsed.Milliseconds())
	return nil
}

func (w *SynthesizeWorker) failJob(ctx context.Context, id string, cause error) {
	if err := w.store.Fail(ctx, id, cause); err != nil && !errors.Is(err, jobs.ErrNotFound) {
		slog.Error("failed to record job failure", "job_id", id, "error", err)
	}
}

func (w *SynthesizeWorker) record(ctx context.Context, payload queue.SynthesizePayload, providerName string, res *tts.Result, elapsed time.Duration) {
	if w.auditor != nil {
		entry := audit.Entry{
			Provider:   providerName,
			Voice:      res.Voice,
			Lang:       res.Lang,
			Format:     payload.Request.Format,
			Source:     "worker",
			TextChars:  utf8.RuneCountInString(payload.Request.Text),
			AudioBytes: len(res.Audio),
			DurationMS: elapsed.Milliseconds(),
			Status:     "completed",
		}
		if err := w.auditor.Record(ctx, entry); err != nil {
			slog.Error("failed to record usage", "job_id", payload.JobID, "error", err)
		}
	}
	if w.publisher != nil {
		ev := events.SynthesisCompleted{
			JobID:      payload.JobID,
			Provider:   providerName,
			Voice:      res.Voice,
			Lang:       res.Lang,
			TextChars:  utf8.RuneCountInString(payload.Request.Text),
			AudioBytes: len(res.Audio),
			DurationMS: elapsed.Milliseconds(),
		}
		if err := w.publisher.PublishSynthesisCompleted(ev); err != nil {
			slog.Error("failed to publish completion event", "job_id", payload.JobID, "error", err)
		}
	}
}
