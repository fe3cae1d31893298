package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/audioforge/ttsgate/internal/audio"
)

// KokoroConfig holds everything the Kokoro adapter needs: asset locations,
// engine knobs, and the post-processing chain applied to raw samples.
type KokoroConfig struct {
	ModelPath     string
	VoicesPath    string
	EngineBin     string
	EspeakLibrary string
	EspeakData    string
	DefaultVoice  string
	DefaultLang   string
	// SampleRate is used when the engine does not report one.
	SampleRate int
	Processor  audio.ProcessorConfig
}

// KokoroProvider adapts an external Kokoro engine to the Provider
// contract. The engine handle is built on the first synthesis call and
// kept; a failed build is retried on the next call.
type KokoroProvider struct {
	cfg       KokoroConfig
	processor *audio.Processor
	newEngine EngineFactory

	mu           sync.Mutex
	engine       Engine
	voices       []string
	voicesLoaded bool
}

// NewKokoroProvider builds a provider backed by the kokoro CLI engine.
// It fails with ErrAssetNotFound when the model or voices file is absent,
// so callers can register an alternative instead.
func NewKokoroProvider(cfg KokoroConfig) (*KokoroProvider, error) {
	return NewKokoroProviderWithEngine(cfg, newCLIEngine)
}

// NewKokoroProviderWithEngine is NewKokoroProvider with a caller-supplied
// engine constructor.
func NewKokoroProviderWithEngine(cfg KokoroConfig, factory EngineFactory) (*KokoroProvider, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if err := statAssets(cfg); err != nil {
		return nil, err
	}
	return &KokoroProvider{
		cfg:       cfg,
		processor: audio.NewProcessor(cfg.Processor),
		newEngine: factory,
	}, nil
}

func (k *KokoroProvider) Name() string { return "kokoro" }

// Synthesize runs the engine, post-processes the samples, and encodes wav.
// Pitch and seed are accepted but have no engine-side effect.
func (k *KokoroProvider) Synthesize(ctx context.Context, req Request) (*Result, error) {
	req = req.normalized()
	if !strings.EqualFold(req.Format, FormatWAV) {
		return nil, fmt.Errorf("%w: kokoro provider produces only wav, got %q", ErrUnsupportedFormat, req.Format)
	}
	if req.Pitch != 0 {
		slog.Warn("kokoro engine has no pitch control, ignoring", "pitch", req.Pitch)
	}
	if req.Seed != nil {
		slog.Debug("kokoro engine is not seedable, ignoring", "seed", *req.Seed)
	}

	engine, voices, err := k.ensure()
	if err != nil {
		return nil, err
	}
	voice, err := k.resolveVoice(voices, req.Voice)
	if err != nil {
		return nil, err
	}
	lang := k.normalizeLang(req.Lang)

	samples, rate, err := engine.Generate(ctx, req.Text, voice, lang, req.Speed)
	if err != nil {
		return nil, fmt.Errorf("kokoro synthesis: %w", err)
	}
	if rate <= 0 {
		rate = k.cfg.SampleRate
	}
	return &Result{
		Audio:       audio.EncodeWAV(k.processor.Apply(samples), rate),
		ContentType: "audio/" + FormatWAV,
		Voice:       voice,
		Lang:        lang,
		SampleRate:  rate,
	}, nil
}

// Voices returns the engine's voice list, initializing it if needed.
func (k *KokoroProvider) Voices(_ context.Context) ([]string, error) {
	_, voices, err := k.ensure()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(voices))
	copy(out, voices)
	return out, nil
}

// ensure builds the engine handle and voice cache under the lock. Both
// steps leave their state unset on failure so the next call retries.
func (k *KokoroProvider) ensure() (Engine, []string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.engine == nil {
		if err := statAssets(k.cfg); err != nil {
			return nil, nil, err
		}
		eng, err := k.newEngine(k.cfg)
		if err != nil {
			if errors.Is(err, ErrAssetNotFound) {
				return nil, nil, err
			}
			return nil, nil, fmt.Errorf("%w: %v", ErrEngineInitFailure, err)
		}
		k.engine = eng
	}
	if !k.voicesLoaded {
		voices, err := k.engine.Voices()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: listing voices: %v", ErrEngineInitFailure, err)
		}
		k.voices = voices
		k.voicesLoaded = true
	}
	return k.engine, k.voices, nil
}

// resolveVoice returns the requested voice when the engine has it, the
// engine's first voice otherwise. An empty request means the default.
func (k *KokoroProvider) resolveVoice(voices []string, voice string) (string, error) {
	requested := voice
	if requested == "" {
		requested = k.cfg.DefaultVoice
	}
	requested = strings.TrimSpace(requested)
	if slices.Contains(voices, requested) {
		return requested, nil
	}
	if len(voices) > 0 {
		fallback := voices[0]
		slog.Warn("requested voice not available, using fallback",
			"requested", requested,
			"fallback", fallback,
			"available", strings.Join(voices, ", "))
		return fallback, nil
	}
	return "", fmt.Errorf("%w from the kokoro engine", ErrNoVoicesAvailable)
}

// normalizeLang maps tags to the engine's expected form: lowercase,
// hyphenated, with bare "en" widened to "en-us".
func (k *KokoroProvider) normalizeLang(lang string) string {
	candidate := lang
	if candidate == "" {
		candidate = k.cfg.DefaultLang
	}
	candidate = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(candidate, "_", "-")))
	if candidate == "" {
		return "en-us"
	}
	if !strings.Contains(candidate, "-") && candidate == "en" {
		return "en-us"
	}
	return candidate
}

func statAssets(cfg KokoroConfig) error {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return fmt.Errorf("%w: kokoro model %q (run scripts/setup-kokoro.sh to fetch assets)", ErrAssetNotFound, cfg.ModelPath)
	}
	if _, err := os.Stat(cfg.VoicesPath); err != nil {
		return fmt.Errorf("%w: kokoro voices %q (run scripts/setup-kokoro.sh to fetch assets)", ErrAssetNotFound, cfg.VoicesPath)
	}
	return nil
}
