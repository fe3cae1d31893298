package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/audioforge/ttsgate/internal/audio"
)

// Engine is the raw synthesis backend behind the Kokoro provider. It
// returns float samples in [-1, 1] plus the rate they were rendered at.
// Implementations must be safe for concurrent Generate calls.
type Engine interface {
	Voices() ([]string, error)
	Generate(ctx context.Context, text, voice, lang string, speed float64) ([]float64, int, error)
}

// EngineFactory builds an Engine from provider configuration. The Kokoro
// provider calls it once, on the first synthesis request.
type EngineFactory func(cfg KokoroConfig) (Engine, error)

// cliEngine shells out to a kokoro CLI binary that writes wav to stdout.
// Model inference stays outside this process entirely.
type cliEngine struct {
	binPath    string
	modelPath  string
	voicesPath string
	extraEnv   []string
}

// newCLIEngine verifies the binary is reachable and returns the engine.
func newCLIEngine(cfg KokoroConfig) (Engine, error) {
	bin := cfg.EngineBin
	if bin == "" {
		bin = "kokoro-tts"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("kokoro binary %q not found: %w", bin, err)
	}
	var env []string
	if cfg.EspeakLibrary != "" {
		env = append(env, "PHONEMIZER_ESPEAK_LIBRARY="+cfg.EspeakLibrary)
	}
	if cfg.EspeakData != "" {
		env = append(env, "ESPEAK_DATA_PATH="+cfg.EspeakData)
	}
	return &cliEngine{
		binPath:    bin,
		modelPath:  cfg.ModelPath,
		voicesPath: cfg.VoicesPath,
		extraEnv:   env,
	}, nil
}

// Voices asks the binary for its voice list, one name per line.
func (e *cliEngine) Voices() ([]string, error) {
	cmd := exec.Command(e.binPath, "--model", e.modelPath, "--voices", e.voicesPath, "--list-voices")
	cmd.Env = append(os.Environ(), e.extraEnv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("kokoro list voices failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	var voices []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if v := strings.TrimSpace(line); v != "" {
			voices = append(voices, v)
		}
	}
	return voices, nil
}

// Generate synthesizes text through the binary and decodes the wav it
// writes to stdout back into float samples.
func (e *cliEngine) Generate(ctx context.Context, text, voice, lang string, speed float64) ([]float64, int, error) {
	args := []string{
		"--model", e.modelPath,
		"--voices", e.voicesPath,
		"--voice", voice,
		"--lang", lang,
		"--speed", strconv.FormatFloat(speed, 'f', 2, 64),
		"--output", "-",
	}
	cmd := exec.CommandContext(ctx, e.binPath, args...)
	cmd.Env = append(os.Environ(), e.extraEnv...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("kokoro synthesis failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	pcm, rate, err := audio.DecodeWAV(stdout.Bytes())
	if err != nil {
		return nil, 0, fmt.Errorf("kokoro produced unreadable audio: %w", err)
	}
	samples := make([]float64, len(pcm))
	for i, v := range pcm {
		samples[i] = float64(v) / 32767.0
	}
	return samples, rate, nil
}
