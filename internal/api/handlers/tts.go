package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/audioforge/ttsgate/internal/audit"
	"github.com/audioforge/ttsgate/internal/cache"
	"github.com/audioforge/ttsgate/internal/config"
	"github.com/audioforge/ttsgate/internal/events"
	"github.com/audioforge/ttsgate/internal/tts"
)

const audioCacheTTL = time.Hour

type TTSHandler struct {
	registry  *tts.Registry
	cache     *cache.Cache
	auditor   *audit.Service
	publisher *events.Publisher
	cfg       config.TTSConfig
}

// NewTTSHandler wires the synchronous synthesis endpoints. cache, auditor,
// and publisher may be nil when their backing services are not configured.
func NewTTSHandler(registry *tts.Registry, c *cache.Cache, auditor *audit.Service, publisher *events.Publisher, cfg config.TTSConfig) *TTSHandler {
	return &TTSHandler{
		registry:  registry,
		cache:     c,
		auditor:   auditor,
		publisher: publisher,
		cfg:       cfg,
	}
}

// synthesizeRequest is the inbound JSON body. Speed, pitch, and seed are
// pointers so an absent field and an explicit zero stay distinguishable.
type synthesizeRequest struct {
	Text   string   `json:"text"`
	Voice  string   `json:"voice"`
	Lang   string   `json:"lang"`
	Speed  *float64 `json:"speed"`
	Pitch  *float64 `json:"pitch"`
	Format string   `json:"format"`
	Seed   *int64   `json:"seed"`
}

// parseSynthesisBody validates the body against the request contract and
// returns the provider-ready request, or a client-facing error message.
func parseSynthesisBody(body synthesizeRequest, maxTextLength int) (tts.Request, string) {
	text := strings.TrimSpace(body.Text)
	if text == "" {
		return tts.Request{}, "text is required"
	}
	if n := utf8.RuneCountInString(text); n > maxTextLength {
		return tts.Request{}, fmt.Sprintf("text exceeds %d characters (got %d)", maxTextLength, n)
	}

	speed := 1.0
	if body.Speed != nil {
		speed = *body.Speed
	}
	if speed < 0.5 || speed > 2.0 {
		return tts.Request{}, "speed must be between 0.5 and 2.0"
	}

	pitch := 0.0
	if body.Pitch != nil {
		pitch = *body.Pitch
	}
	if pitch < -1.0 || pitch > 1.0 {
		return tts.Request{}, "pitch must be between -1.0 and 1.0"
	}

	format := strings.ToLower(strings.TrimSpace(body.Format))
	if format == "" {
		format = tts.FormatWAV
	}
	if format != tts.FormatWAV && format != tts.FormatMP3 {
		return tts.Request{}, "format must be one of: " + strings.Join(tts.Formats(), ", ")
	}

	return tts.Request{
		Text:   text,
		Voice:  strings.TrimSpace(body.Voice),
		Lang:   strings.TrimSpace(body.Lang),
		Speed:  speed,
		Pitch:  pitch,
		Format: format,
		Seed:   body.Seed,
	}, ""
}

// Synthesize renders audio for the posted text and streams it back.
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var body synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req, msg := parseSynthesisBody(body, h.cfg.MaxTextLength)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	provider, err := h.registry.Get(r.URL.Query().Get("provider"))
	if err != nil {
		writeTTSError(w, err)
		return
	}

	h.serveSynthesis(w, r, provider, req, "api")
}

// serveSynthesis runs the cache-check, synthesize, record, respond
// pipeline shared by the text and document endpoints.
func (h *TTSHandler) serveSynthesis(w http.ResponseWriter, r *http.Request, provider tts.Provider, req tts.Request, source string) {
	cacheKey := synthesisCacheKey(provider.Name(), req)
	if h.cache != nil {
		var entry cachedSynthesis
		switch err := h.cache.Get(r.Context(), cacheKey, &entry); {
		case err == nil:
			h.respondAudio(w, provider.Name(), entry.result(), true)
			return
		case !errors.Is(err, cache.ErrMiss):
			slog.Warn("audio cache read failed", "error", err)
		}
	}

	started := time.Now()
	res, err := provider.Synthesize(r.Context(), req)
	elapsed := time.Since(started)
	if err != nil {
		h.recordFailure(r.Context(), provider.Name(), req, elapsed, source)
		writeTTSError(w, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), cacheKey, newCachedSynthesis(res), audioCacheTTL); err != nil {
			slog.Warn("audio cache write failed", "error", err)
		}
	}
	h.recordSuccess(r.Context(), provider.Name(), req, res, elapsed, source)
	h.respondAudio(w, provider.Name(), res, false)
}

// Formats lists the encodings a request may name with their MIME types.
func (h *TTSHandler) Formats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"formats": tts.FormatCatalog()})
}

// Providers lists registered providers and the default.
func (h *TTSHandler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": h.registry.Names(),
		"default":   h.registry.DefaultName(),
	})
}

// Voices lists the chosen provider's voices. Providers that cannot
// enumerate voices report an empty list.
func (h *TTSHandler) Voices(w http.ResponseWriter, r *http.Request) {
	provider, err := h.registry.Get(r.URL.Query().Get("provider"))
	if err != nil {
		writeTTSError(w, err)
		return
	}

	voices := []string{}
	if lister, ok := provider.(tts.VoiceLister); ok {
		voices, err = lister.Voices(r.Context())
		if err != nil {
			writeTTSError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": provider.Name(),
		"voices":   voices,
	})
}

func (h *TTSHandler) respondAudio(w http.ResponseWriter, providerName string, res *tts.Result, fromCache bool) {
	voice := res.Voice
	if voice == "" {
		voice = h.cfg.DefaultVoice
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("X-TTS-Provider", providerName)
	w.Header().Set("X-TTS-Voice", voice)
	w.Header().Set("X-TTS-Language", res.Lang)
	if fromCache {
		w.Header().Set("X-TTS-Cache", "hit")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Audio)
}

func (h *TTSHandler) recordSuccess(ctx context.Context, providerName string, req tts.Request, res *tts.Result, elapsed time.Duration, source string) {
	if h.auditor != nil {
		entry := audit.Entry{
			Provider:   providerName,
			Voice:      res.Voice,
			Lang:       res.Lang,
			Format:     req.Format,
			Source:     source,
			TextChars:  utf8.RuneCountInString(req.Text),
			AudioBytes: len(res.Audio),
			DurationMS: elapsed.Milliseconds(),
			Status:     "completed",
		}
		if err := h.auditor.Record(ctx, entry); err != nil {
			slog.Error("failed to record usage", "error", err)
		}
	}
	if h.publisher != nil {
		ev := events.SynthesisCompleted{
			Provider:   providerName,
			Voice:      res.Voice,
			Lang:       res.Lang,
			TextChars:  utf8.RuneCountInString(req.Text),
			AudioBytes: len(res.Audio),
			DurationMS: elapsed.Milliseconds(),
		}
		if err := h.publisher.PublishSynthesisCompleted(ev); err != nil {
			slog.Error("failed to publish completion event", "error", err)
		}
	}
}

func (h *TTSHandler) recordFailure(ctx context.Context, providerName string, req tts.Request, elapsed time.Duration, source string) {
	if h.auditor == nil {
		return
	}
	entry := audit.Entry{
		Provider:   providerName,
		Voice:      req.Voice,
		Lang:       req.Lang,
		Format:     req.Format,
		Source:     source,
		TextChars:  utf8.RuneCountInString(req.Text),
		DurationMS: elapsed.Milliseconds(),
		Status:     "failed",
	}
	if err := h.auditor.Record(ctx, entry); err != nil {
		slog.Error("failed to record usage", "error", err)
	}
}

// writeTTSError maps synthesis error kinds to HTTP statuses: caller
// mistakes are 400s, missing assets 503, engine trouble 502.
func writeTTSError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, tts.ErrProviderNotFound), errors.Is(err, tts.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	case errors.Is(err, tts.ErrAssetNotFound):
		status = http.StatusServiceUnavailable
	case errors.Is(err, tts.ErrNoVoicesAvailable), errors.Is(err, tts.ErrEngineInitFailure):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		slog.Error("synthesis failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// cachedSynthesis is the redis value for one rendered request.
type cachedSynthesis struct {
	Audio       []byte `json:"audio"`
	ContentType string `json:"content_type"`
	Voice       string `json:"voice"`
	Lang        string `json:"lang"`
	SampleRate  int    `json:"sample_rate"`
}

func newCachedSynthesis(res *tts.Result) cachedSynthesis {
	return cachedSynthesis{
		Audio:       res.Audio,
		ContentType: res.ContentType,
		Voice:       res.Voice,
		Lang:        res.Lang,
		SampleRate:  res.SampleRate,
	}
}

func (c cachedSynthesis) result() *tts.Result {
	return &tts.Result{
		Audio:       c.Audio,
		ContentType: c.ContentType,
		Voice:       c.Voice,
		Lang:        c.Lang,
		SampleRate:  c.SampleRate,
	}
}

func synthesisCacheKey(provider string, req tts.Request) string {
	seed := "none"
	if req.Seed != nil {
		seed = strconv.FormatInt(*req.Seed, 10)
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		provider,
		req.Text,
		req.Voice,
		req.Lang,
		strconv.FormatFloat(req.Speed, 'f', 4, 64),
		strconv.FormatFloat(req.Pitch, 'f', 4, 64),
		req.Format,
		seed,
	}, "|")))
	return cache.Key("audio", hex.EncodeToString(sum[:]))
}
