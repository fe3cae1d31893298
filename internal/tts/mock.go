package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/audioforge/ttsgate/internal/audio"
)

// DefaultMockSampleRate is the rate the mock generator renders at unless
// configured otherwise.
const DefaultMockSampleRate = 16000

// MockProvider renders a short sine tone derived from the request text.
// The same text, pitch, speed, and seed always produce identical bytes,
// which makes it usable as an offline fallback and as a test fixture.
type MockProvider struct {
	sampleRate int
}

// NewMockProvider returns a mock provider rendering at sampleRate, or at
// DefaultMockSampleRate when sampleRate is not positive.
func NewMockProvider(sampleRate int) *MockProvider {
	if sampleRate <= 0 {
		sampleRate = DefaultMockSampleRate
	}
	return &MockProvider{sampleRate: sampleRate}
}

func (m *MockProvider) Name() string { return "mock" }

// Synthesize renders the tone and encodes it as wav. Any other format is
// rejected with ErrUnsupportedFormat.
func (m *MockProvider) Synthesize(_ context.Context, req Request) (*Result, error) {
	req = req.normalized()
	if !strings.EqualFold(req.Format, FormatWAV) {
		return nil, fmt.Errorf("%w: mock provider produces only wav, got %q", ErrUnsupportedFormat, req.Format)
	}

	// Roughly ten characters per second, clamped to keep responses small,
	// then stretched or compressed by the speed factor.
	duration := math.Max(0.5, math.Min(5.0, float64(utf8.RuneCountInString(req.Text))/10.0))
	duration /= math.Max(0.5, req.Speed)

	freq := toneFrequency(req.Text, req.Pitch)

	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	}
	samples := m.render(freq, duration, seed)

	lang := req.Lang
	if lang == "" {
		lang = "en"
	}
	return &Result{
		Audio:       audio.EncodeWAV(samples, m.sampleRate),
		ContentType: "audio/" + FormatWAV,
		Voice:       req.Voice,
		Lang:        lang,
		SampleRate:  m.sampleRate,
	}, nil
}

// toneFrequency picks a base frequency in [220, 440) from the text digest
// and shifts it up to twelve semitones in either direction for pitch.
func toneFrequency(text string, pitch float64) float64 {
	sum := md5.Sum([]byte(text))
	hash := new(big.Int).SetBytes(sum[:])
	base := 220.0 + float64(hash.Mod(hash, big.NewInt(220)).Int64())
	return base * math.Pow(2, pitch*12.0/12.0)
}

// render produces the amplitude-0.2 sine with seeded gaussian shimmer.
func (m *MockProvider) render(freq, duration float64, seed int64) []float64 {
	n := int(float64(m.sampleRate) * duration)
	rng := rand.New(rand.NewSource(seed))
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) * duration / float64(n)
		noise := 1.0 + 0.02*rng.NormFloat64()
		samples[i] = 0.2 * math.Sin(2*math.Pi*freq*t) * noise
	}
	return samples
}
