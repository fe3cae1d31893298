package tts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/audioforge/ttsgate/internal/audio"
	"github.com/audioforge/ttsgate/internal/tts"
)

func seed(v int64) *int64 { return &v }

func TestMockDeterministicForSameRequest(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)
	req := tts.Request{Text: "Test deterministic output", Seed: seed(42)}

	first, err := mock.Synthesize(context.Background(), req)
	require.NoError(t, err)
	second, err := mock.Synthesize(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, first.Audio, second.Audio)
}

func TestMockSeedChangesOutput(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)

	a, err := mock.Synthesize(context.Background(), tts.Request{Text: "Test deterministic output", Seed: seed(42)})
	require.NoError(t, err)
	b, err := mock.Synthesize(context.Background(), tts.Request{Text: "Test deterministic output", Seed: seed(43)})
	require.NoError(t, err)

	require.NotEqual(t, a.Audio, b.Audio)
}

func TestMockTextChangesOutput(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)

	a, err := mock.Synthesize(context.Background(), tts.Request{Text: "Test deterministic output", Seed: seed(42)})
	require.NoError(t, err)
	b, err := mock.Synthesize(context.Background(), tts.Request{Text: "Different text", Seed: seed(42)})
	require.NoError(t, err)

	require.NotEqual(t, a.Audio, b.Audio)
}

func TestMockNilSeedMeansZero(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)

	unseeded, err := mock.Synthesize(context.Background(), tts.Request{Text: "hello world"})
	require.NoError(t, err)
	zeroed, err := mock.Synthesize(context.Background(), tts.Request{Text: "hello world", Seed: seed(0)})
	require.NoError(t, err)

	require.Equal(t, unseeded.Audio, zeroed.Audio)
}

func TestMockProducesWellFormedWAV(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)
	res, err := mock.Synthesize(context.Background(), tts.Request{Text: "Test deterministic output"})
	require.NoError(t, err)

	require.Equal(t, "audio/wav", res.ContentType)
	require.Equal(t, tts.DefaultMockSampleRate, res.SampleRate)

	pcm, rate, err := audio.DecodeWAV(res.Audio)
	require.NoError(t, err)
	require.Equal(t, tts.DefaultMockSampleRate, rate)
	// 25 characters is 2.5 seconds at the default pace.
	require.Len(t, pcm, 40000)
}

func TestMockDurationClamps(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)

	short, err := mock.Synthesize(context.Background(), tts.Request{Text: "Hi"})
	require.NoError(t, err)
	pcm, _, err := audio.DecodeWAV(short.Audio)
	require.NoError(t, err)
	require.Len(t, pcm, 8000, "short text holds the half-second floor")

	long, err := mock.Synthesize(context.Background(), tts.Request{Text: "This sentence is deliberately much longer than fifty characters."})
	require.NoError(t, err)
	pcm, _, err = audio.DecodeWAV(long.Audio)
	require.NoError(t, err)
	require.Len(t, pcm, 80000, "long text caps at five seconds")
}

func TestMockSpeedShortensAudio(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)

	fast, err := mock.Synthesize(context.Background(), tts.Request{Text: "Test deterministic output", Speed: 2.0})
	require.NoError(t, err)
	pcm, _, err := audio.DecodeWAV(fast.Audio)
	require.NoError(t, err)
	require.Len(t, pcm, 20000)
}

func TestMockPitchChangesOutput(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)

	flat, err := mock.Synthesize(context.Background(), tts.Request{Text: "same words"})
	require.NoError(t, err)
	raised, err := mock.Synthesize(context.Background(), tts.Request{Text: "same words", Pitch: 0.5})
	require.NoError(t, err)

	require.NotEqual(t, flat.Audio, raised.Audio)
}

func TestMockRejectsMP3(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)
	_, err := mock.Synthesize(context.Background(), tts.Request{Text: "hello", Format: tts.FormatMP3})
	require.ErrorIs(t, err, tts.ErrUnsupportedFormat)
}

func TestMockAcceptsUppercaseWAV(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)
	_, err := mock.Synthesize(context.Background(), tts.Request{Text: "hello", Format: "WAV"})
	require.NoError(t, err)
}

func TestMockEchoesVoiceAndDefaultsLang(t *testing.T) {
	t.Parallel()

	mock := tts.NewMockProvider(0)
	res, err := mock.Synthesize(context.Background(), tts.Request{Text: "hello", Voice: "af_alloy"})
	require.NoError(t, err)

	require.Equal(t, "af_alloy", res.Voice)
	require.Equal(t, "en", res.Lang)
}
