package tts

import (
	"log/slog"

	"github.com/audioforge/ttsgate/internal/audio"
	"github.com/audioforge/ttsgate/internal/config"
)

// NewRegistryFromConfig wires the registry the way deployments run it:
// the configured default backed by the kokoro engine, openai when an API
// key is present, and the mock fallback always on hand.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	kokoroCfg := KokoroConfig{
		ModelPath:     cfg.Kokoro.ModelPath,
		VoicesPath:    cfg.Kokoro.VoicesPath,
		EngineBin:     cfg.Kokoro.EngineBin,
		EspeakLibrary: cfg.Kokoro.EspeakLibrary,
		EspeakData:    cfg.Kokoro.EspeakData,
		DefaultVoice:  cfg.TTS.DefaultVoice,
		DefaultLang:   cfg.TTS.DefaultLanguage,
		SampleRate:    cfg.TTS.SampleRate,
		Processor: audio.ProcessorConfig{
			NoiseGateThreshold:  cfg.TTS.NoiseGateThreshold,
			EnableNormalization: cfg.TTS.EnableNormalization,
			NormalizeTarget:     cfg.TTS.NormalizeTarget,
		},
	}
	kokoroFactory := func() (Provider, error) {
		return NewKokoroProvider(kokoroCfg)
	}
	var openaiFactory ProviderFactory
	if cfg.OpenAI.APIKey != "" {
		openaiCfg := cfg.OpenAI
		openaiFactory = func() (Provider, error) {
			return NewOpenAIProvider(openaiCfg.APIKey, openaiCfg.Model, openaiCfg.Voice), nil
		}
	}

	defaultName := cfg.TTS.DefaultProvider
	var newDefault ProviderFactory
	switch defaultName {
	case "kokoro":
		newDefault = kokoroFactory
		kokoroFactory = nil
	case "openai":
		newDefault = openaiFactory
		openaiFactory = nil
	case MockName:
		// The fallback already covers it.
	default:
		slog.Warn("no engine backs the configured default provider, requests for it will serve mock",
			"provider", defaultName)
	}

	reg := NewRegistry(defaultName, newDefault, NewMockProvider(cfg.TTS.MockSampleRate))
	if kokoroFactory != nil {
		reg.AddLazy("kokoro", kokoroFactory)
	}
	if openaiFactory != nil {
		reg.AddLazy("openai", openaiFactory)
	}
	return reg
}
