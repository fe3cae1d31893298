package tts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/audioforge/ttsgate/internal/audio"
	"github.com/audioforge/ttsgate/internal/tts"
)

type generateCall struct {
	text  string
	voice string
	lang  string
	speed float64
}

// fakeEngine stands in for the kokoro CLI during tests.
type fakeEngine struct {
	mu        sync.Mutex
	voices    []string
	voicesErr error
	samples   []float64
	rate      int
	genErr    error
	calls     []generateCall
}

func (f *fakeEngine) Voices() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voicesErr != nil {
		return nil, f.voicesErr
	}
	return f.voices, nil
}

func (f *fakeEngine) Generate(_ context.Context, text, voice, lang string, speed float64) ([]float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, generateCall{text: text, voice: voice, lang: lang, speed: speed})
	if f.genErr != nil {
		return nil, 0, f.genErr
	}
	return f.samples, f.rate, nil
}

func (f *fakeEngine) lastCall(t *testing.T) generateCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

// rampSamples spreads n samples evenly across [lo, hi].
func rampSamples(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*(hi-lo)/float64(n-1)
	}
	return out
}

func testKokoroConfig(t *testing.T) tts.KokoroConfig {
	t.Helper()
	dir := t.TempDir()
	model := filepath.Join(dir, "kokoro-v1.0.onnx")
	voices := filepath.Join(dir, "voices-v1.0.bin")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o644))
	require.NoError(t, os.WriteFile(voices, []byte("voices"), 0o644))
	return tts.KokoroConfig{
		ModelPath:    model,
		VoicesPath:   voices,
		DefaultVoice: "af_alloy",
		DefaultLang:  "en-us",
		SampleRate:   24000,
	}
}

func newTestKokoro(t *testing.T, cfg tts.KokoroConfig, eng tts.Engine) *tts.KokoroProvider {
	t.Helper()
	p, err := tts.NewKokoroProviderWithEngine(cfg, func(tts.KokoroConfig) (tts.Engine, error) {
		return eng, nil
	})
	require.NoError(t, err)
	return p
}

func TestKokoroFailsWhenAssetsMissing(t *testing.T) {
	t.Parallel()

	cfg := testKokoroConfig(t)
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")

	_, err := tts.NewKokoroProviderWithEngine(cfg, func(tts.KokoroConfig) (tts.Engine, error) {
		t.Fatal("engine factory must not run without assets")
		return nil, nil
	})
	require.ErrorIs(t, err, tts.ErrAssetNotFound)
}

func TestKokoroKeepsKnownVoice(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{
		voices:  []string{"af_alloy", "af_heart"},
		samples: rampSamples(-0.5, 0.5, 64),
		rate:    24000,
	}
	p := newTestKokoro(t, testKokoroConfig(t), eng)

	res, err := p.Synthesize(context.Background(), tts.Request{Text: "hello", Voice: "af_heart"})
	require.NoError(t, err)
	require.Equal(t, "af_heart", res.Voice)
	require.Equal(t, "af_heart", eng.lastCall(t).voice)
}

func TestKokoroFallsBackToFirstVoice(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{
		voices:  []string{"af_alloy", "af_heart"},
		samples: rampSamples(-0.5, 0.5, 64),
		rate:    24000,
	}
	p := newTestKokoro(t, testKokoroConfig(t), eng)

	res, err := p.Synthesize(context.Background(), tts.Request{Text: "hello", Voice: "af_nope"})
	require.NoError(t, err)
	require.Equal(t, "af_alloy", res.Voice)
}

func TestKokoroEmptyVoiceUsesDefault(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{
		voices:  []string{"bf_emma", "af_alloy"},
		samples: rampSamples(-0.5, 0.5, 64),
		rate:    24000,
	}
	p := newTestKokoro(t, testKokoroConfig(t), eng)

	res, err := p.Synthesize(context.Background(), tts.Request{Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, "af_alloy", res.Voice, "configured default wins over list order")
}

func TestKokoroNoVoicesAvailable(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{voices: []string{}, samples: rampSamples(-0.5, 0.5, 64), rate: 24000}
	p := newTestKokoro(t, testKokoroConfig(t), eng)

	_, err := p.Synthesize(context.Background(), tts.Request{Text: "hello"})
	require.ErrorIs(t, err, tts.ErrNoVoicesAvailable)
}

func TestKokoroNoiseGateSilencesQuietEngineOutput(t *testing.T) {
	t.Parallel()

	cfg := testKokoroConfig(t)
	cfg.Processor = audio.ProcessorConfig{NoiseGateThreshold: 0.02}
	eng := &fakeEngine{
		voices:  []string{"af_alloy"},
		samples: rampSamples(-0.01, 0.01, 32),
		rate:    24000,
	}
	p := newTestKokoro(t, cfg, eng)

	res, err := p.Synthesize(context.Background(), tts.Request{Text: "quiet"})
	require.NoError(t, err)

	pcm, rate, err := audio.DecodeWAV(res.Audio)
	require.NoError(t, err)
	require.Equal(t, 24000, rate)
	require.Len(t, pcm, 32)
	for i, v := range pcm {
		require.Zerof(t, v, "sample %d should be gated to silence", i)
	}
}

func TestKokoroNormalizationReachesTarget(t *testing.T) {
	t.Parallel()

	cfg := testKokoroConfig(t)
	cfg.Processor = audio.ProcessorConfig{EnableNormalization: true, NormalizeTarget: 0.95}
	eng := &fakeEngine{
		voices:  []string{"af_alloy"},
		samples: rampSamples(-0.5, 0.5, 64),
		rate:    24000,
	}
	p := newTestKokoro(t, cfg, eng)

	res, err := p.Synthesize(context.Background(), tts.Request{Text: "hello"})
	require.NoError(t, err)

	pcm, _, err := audio.DecodeWAV(res.Audio)
	require.NoError(t, err)
	var peak int16
	for _, v := range pcm {
		if v > peak {
			peak = v
		}
		if -v > peak {
			peak = -v
		}
	}
	require.Equal(t, int16(31128), peak, "peak should land on 0.95 of full scale")
}

func TestKokoroLangNormalization(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty uses default", "", "en-us"},
		{"underscore and case", "EN_GB", "en-gb"},
		{"bare en widens", "en", "en-us"},
		{"bare non-en passes", "fr", "fr"},
		{"regioned passes", "pt-BR", "pt-br"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			eng := &fakeEngine{
				voices:  []string{"af_alloy"},
				samples: rampSamples(-0.5, 0.5, 64),
				rate:    24000,
			}
			p := newTestKokoro(t, testKokoroConfig(t), eng)

			res, err := p.Synthesize(context.Background(), tts.Request{Text: "hello", Lang: tc.in})
			require.NoError(t, err)
			require.Equal(t, tc.want, res.Lang)
			require.Equal(t, tc.want, eng.lastCall(t).lang)
		})
	}
}

func TestKokoroEngineRateFallsBackToConfigured(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{
		voices:  []string{"af_alloy"},
		samples: rampSamples(-0.5, 0.5, 64),
		rate:    0,
	}
	p := newTestKokoro(t, testKokoroConfig(t), eng)

	res, err := p.Synthesize(context.Background(), tts.Request{Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, 24000, res.SampleRate)

	_, rate, err := audio.DecodeWAV(res.Audio)
	require.NoError(t, err)
	require.Equal(t, 24000, rate)
}

func TestKokoroRetriesEngineInitAfterFailure(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{
		voices:  []string{"af_alloy"},
		samples: rampSamples(-0.5, 0.5, 64),
		rate:    24000,
	}
	attempts := 0
	p, err := tts.NewKokoroProviderWithEngine(testKokoroConfig(t), func(tts.KokoroConfig) (tts.Engine, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("onnx runtime unavailable")
		}
		return eng, nil
	})
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), tts.Request{Text: "hello"})
	require.ErrorIs(t, err, tts.ErrEngineInitFailure)

	_, err = p.Synthesize(context.Background(), tts.Request{Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestKokoroRejectsMP3BeforeEngineInit(t *testing.T) {
	t.Parallel()

	attempts := 0
	p, err := tts.NewKokoroProviderWithEngine(testKokoroConfig(t), func(tts.KokoroConfig) (tts.Engine, error) {
		attempts++
		return &fakeEngine{voices: []string{"af_alloy"}}, nil
	})
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), tts.Request{Text: "hello", Format: "mp3"})
	require.ErrorIs(t, err, tts.ErrUnsupportedFormat)
	require.Zero(t, attempts, "format is checked before the engine is built")
}

func TestKokoroVoicesListsEngineCatalog(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{voices: []string{"af_alloy", "af_heart"}}
	p := newTestKokoro(t, testKokoroConfig(t), eng)

	voices, err := p.Voices(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"af_alloy", "af_heart"}, voices)
}

func TestKokoroSpeedReachesEngine(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{
		voices:  []string{"af_alloy"},
		samples: rampSamples(-0.5, 0.5, 64),
		rate:    24000,
	}
	p := newTestKokoro(t, testKokoroConfig(t), eng)

	_, err := p.Synthesize(context.Background(), tts.Request{Text: "hello", Speed: 1.5})
	require.NoError(t, err)
	require.Equal(t, 1.5, eng.lastCall(t).speed)
}
