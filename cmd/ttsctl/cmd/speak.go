package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/audioforge/ttsgate/internal/tts"
	"github.com/audioforge/ttsgate/pkg/textextract"
)

var (
	speakText     string
	speakFile     string
	speakVoice    string
	speakLang     string
	speakSpeed    float64
	speakPitch    float64
	speakFormat   string
	speakProvider string
	speakSeed     int64
	speakOutput   string
)

var speakCmd = &cobra.Command{
	Use:   "speak",
	Short: "Synthesize text or a document to an audio file",
	RunE:  runSpeak,
}

func init() {
	speakCmd.Flags().StringVar(&speakText, "text", "", "text to synthesize")
	speakCmd.Flags().StringVarP(&speakFile, "file", "f", "", "document to read text from (.pdf, .docx, .txt)")
	speakCmd.Flags().StringVar(&speakVoice, "voice", "", "voice name")
	speakCmd.Flags().StringVar(&speakLang, "lang", "", "language code, e.g. en-us")
	speakCmd.Flags().Float64Var(&speakSpeed, "speed", 1.0, "speaking speed, 0.5 to 2.0")
	speakCmd.Flags().Float64Var(&speakPitch, "pitch", 0, "pitch shift, -1.0 to 1.0")
	speakCmd.Flags().StringVar(&speakFormat, "format", "wav", "output encoding")
	speakCmd.Flags().StringVar(&speakProvider, "provider", "", "provider name, default from config")
	speakCmd.Flags().Int64Var(&speakSeed, "seed", 0, "deterministic seed for the mock provider")
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "output.wav", "path for the audio file")
	speakCmd.MarkFlagsMutuallyExclusive("text", "file")
	speakCmd.MarkFlagsOneRequired("text", "file")
	rootCmd.AddCommand(speakCmd)
}

func runSpeak(cmd *cobra.Command, args []string) error {
	registry, _, err := newRegistry()
	if err != nil {
		return err
	}

	text, err := resolveText()
	if err != nil {
		return err
	}

	provider, err := registry.Get(speakProvider)
	if err != nil {
		return err
	}

	req := tts.Request{
		Text:   text,
		Voice:  speakVoice,
		Lang:   speakLang,
		Speed:  speakSpeed,
		Pitch:  speakPitch,
		Format: strings.ToLower(speakFormat),
	}
	if cmd.Flags().Changed("seed") {
		req.Seed = &speakSeed
	}

	res, err := provider.Synthesize(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	if err := os.WriteFile(speakOutput, res.Audio, 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}

	fmt.Printf("%s (%d bytes, %s voice %s)\n", speakOutput, len(res.Audio), provider.Name(), res.Voice)
	return nil
}

func resolveText() (string, error) {
	if speakFile == "" {
		text := strings.TrimSpace(speakText)
		if text == "" {
			return "", fmt.Errorf("text is empty")
		}
		return text, nil
	}

	data, err := os.ReadFile(speakFile)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", speakFile, err)
	}
	ext := strings.ToLower(filepath.Ext(speakFile))
	extracted, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), ext)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w (supported: %s)", speakFile, err, strings.Join(textextract.SupportedTypes(), ", "))
	}
	if extracted.Content == "" {
		return "", fmt.Errorf("%s contains no extractable text", speakFile)
	}
	return extracted.Content, nil
}
