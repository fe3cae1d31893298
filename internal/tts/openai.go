package tts

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openaiVoices is the fixed catalog the speech endpoint accepts.
var openaiVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// OpenAIProvider synthesizes through the OpenAI speech endpoint. It exists
// for deployments that want hosted voices next to the local engine.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	voice  string
}

// NewOpenAIProvider builds the provider. Model defaults to tts-1 and the
// fallback voice to alloy.
func NewOpenAIProvider(apiKey, model, defaultVoice string) *OpenAIProvider {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if defaultVoice == "" {
		defaultVoice = string(openai.VoiceAlloy)
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		voice:  defaultVoice,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Synthesize requests wav audio from the speech endpoint. Pitch and seed
// have no remote equivalent and are ignored with a log line.
func (p *OpenAIProvider) Synthesize(ctx context.Context, req Request) (*Result, error) {
	req = req.normalized()
	if !strings.EqualFold(req.Format, FormatWAV) {
		return nil, fmt.Errorf("%w: openai provider is configured for wav, got %q", ErrUnsupportedFormat, req.Format)
	}
	if req.Pitch != 0 {
		slog.Warn("openai speech has no pitch control, ignoring", "pitch", req.Pitch)
	}
	if req.Seed != nil {
		slog.Debug("openai speech is not seedable, ignoring", "seed", *req.Seed)
	}

	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = p.voice
	}
	if !slices.Contains(openaiVoices, voice) {
		slog.Warn("requested voice not available, using fallback",
			"requested", voice,
			"fallback", p.voice,
			"available", strings.Join(openaiVoices, ", "))
		voice = p.voice
	}

	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          req.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("openai speech: reading audio: %w", err)
	}

	lang := req.Lang
	if lang == "" {
		lang = "en"
	}
	return &Result{
		Audio:       data,
		ContentType: "audio/" + FormatWAV,
		Voice:       voice,
		Lang:        lang,
		SampleRate:  wavSampleRate(data),
	}, nil
}

// Voices lists the endpoint's voice catalog.
func (p *OpenAIProvider) Voices(_ context.Context) ([]string, error) {
	out := make([]string, len(openaiVoices))
	copy(out, openaiVoices)
	return out, nil
}

// wavSampleRate reads the rate field of a RIFF header, or 0 when the
// payload is not recognizably wav.
func wavSampleRate(data []byte) int {
	if len(data) < 28 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0
	}
	return int(binary.LittleEndian.Uint32(data[24:28]))
}
