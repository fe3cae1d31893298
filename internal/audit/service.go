// Package audit persists per-request synthesis usage when postgres is
// configured. The gateway runs fine without it; callers hold a nil
// service in that case and skip recording.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// EnsureSchema creates the usage table if this database has not seen the
// gateway before.
func (s *Service) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS synthesis_logs (
			id          BIGSERIAL PRIMARY KEY,
			provider    TEXT NOT NULL,
			voice       TEXT NOT NULL DEFAULT '',
			lang        TEXT NOT NULL DEFAULT '',
			format      TEXT NOT NULL DEFAULT 'wav',
			source      TEXT NOT NULL DEFAULT 'api',
			text_chars  INTEGER NOT NULL,
			audio_bytes INTEGER NOT NULL,
			duration_ms BIGINT NOT NULL,
			status      TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure synthesis_logs table: %w", err)
	}
	return nil
}

// Entry is one synthesis call as the usage log sees it.
type Entry struct {
	Provider   string
	Voice      string
	Lang       string
	Format     string
	Source     string // api, document, or worker
	TextChars  int
	AudioBytes int
	DurationMS int64
	Status     string // completed or failed
}

func (s *Service) Record(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO synthesis_logs (provider, voice, lang, format, source, text_chars, audio_bytes, duration_ms, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.Provider, e.Voice, e.Lang, e.Format, e.Source, e.TextChars, e.AudioBytes, e.DurationMS, e.Status,
	)
	if err != nil {
		return fmt.Errorf("insert synthesis log: %w", err)
	}
	return nil
}

type UsageSummary struct {
	Provider        string  `json:"provider"`
	Voice           string  `json:"voice"`
	TotalCalls      int     `json:"total_calls"`
	TotalTextChars  int64   `json:"total_text_chars"`
	TotalAudioBytes int64   `json:"total_audio_bytes"`
	AvgDurationMS   float64 `json:"avg_duration_ms"`
}

// GetUsageSummary aggregates synthesis volume per provider and voice,
// optionally bounded by a date window.
func (s *Service) GetUsageSummary(ctx context.Context, startDate, endDate *time.Time) ([]UsageSummary, error) {
	query := `SELECT provider, voice, COUNT(*) as total_calls,
			         COALESCE(SUM(text_chars), 0) as total_text_chars,
			         COALESCE(SUM(audio_bytes), 0) as total_audio_bytes,
			         COALESCE(AVG(duration_ms), 0) as avg_duration_ms
			  FROM synthesis_logs`
	var args []interface{}
	argIdx := 1

	if startDate != nil {
		query += fmt.Sprintf(" WHERE created_at >= $%d", argIdx)
		args = append(args, *startDate)
		argIdx++
	}
	if endDate != nil {
		if argIdx == 1 {
			query += fmt.Sprintf(" WHERE created_at <= $%d", argIdx)
		} else {
			query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		}
		args = append(args, *endDate)
		argIdx++
	}

	query += " GROUP BY provider, voice ORDER BY total_calls DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	defer rows.Close()

	var summaries []UsageSummary
	for rows.Next() {
		var us UsageSummary
		if err := rows.Scan(&us.Provider, &us.Voice, &us.TotalCalls, &us.TotalTextChars, &us.TotalAudioBytes, &us.AvgDurationMS); err != nil {
			return nil, fmt.Errorf("scan usage summary: %w", err)
		}
		summaries = append(summaries, us)
	}
	return summaries, nil
}
