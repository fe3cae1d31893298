// Package jobs tracks asynchronous synthesis requests through their
// lifecycle. State lives in redis so the API and the worker share it.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/audioforge/ttsgate/internal/cache"
	"github.com/audioforge/ttsgate/internal/tts"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrNotFound reports an unknown or expired job id.
var ErrNotFound = errors.New("job not found")

// Job is the stored state of one asynchronous synthesis request. Audio is
// present only once the job completes.
type Job struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Provider    string    `json:"provider"`
	Voice       string    `json:"voice,omitempty"`
	Lang        string    `json:"lang,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	SampleRate  int       `json:"sample_rate,omitempty"`
	Audio       []byte    `json:"audio,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store reads and writes job state with a fixed retention window.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewStore wraps the cache. ttl 0 means 24 hours of retention.
func NewStore(c *cache.Cache, ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Store{cache: c, ttl: ttl}
}

func jobKey(id string) string { return cache.Key("job", id) }

// Create records a freshly queued job.
func (s *Store) Create(ctx context.Context, id, provider string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        id,
		Status:    StatusQueued,
		Provider:  provider,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cache.Set(ctx, jobKey(id), job, s.ttl); err != nil {
		return nil, fmt.Errorf("store job %s: %w", id, err)
	}
	return job, nil
}

// Get returns the job or ErrNotFound once it has expired.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	err := s.cache.Get(ctx, jobKey(id), &job)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing flips a queued job to processing.
func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(job *Job) {
		job.Status = StatusProcessing
	})
}

// Complete stores the finished audio alongside the resolved parameters.
func (s *Store) Complete(ctx context.Context, id string, res *tts.Result) error {
	return s.mutate(ctx, id, func(job *Job) {
		job.Status = StatusCompleted
		job.Voice = res.Voice
		job.Lang = res.Lang
		job.ContentType = res.ContentType
		job.SampleRate = res.SampleRate
		job.Audio = res.Audio
		job.Error = ""
	})
}

// Fail records the failure reason.
func (s *Store) Fail(ctx context.Context, id string, cause error) error {
	return s.mutate(ctx, id, func(job *Job) {
		job.Status = StatusFailed
		job.Error = cause.Error()
	})
}

// Delete removes the job and any stored audio.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, jobKey(id))
}

func (s *Store) mutate(ctx context.Context, id string, change func(*Job)) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	change(job)
	job.UpdatedAt = time.Now().UTC()
	if err := s.cache.Set(ctx, jobKey(id), job, s.ttl); err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}
