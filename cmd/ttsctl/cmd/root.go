package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/audioforge/ttsgate/internal/config"
	"github.com/audioforge/ttsgate/internal/tts"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ttsctl",
	Short: "Synthesize speech from the terminal",
	Long: `ttsctl drives the synthesis providers directly, no server needed.
It reads the same environment variables as the gateway, so a shell
configured for ttsgate works here unchanged.

Examples:
  ttsctl speak --text "Hello there" -o hello.wav
  ttsctl speak --file report.pdf --voice af_nova -o report.wav
  ttsctl voices --provider kokoro
  ttsctl providers`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig reads the gateway environment and points slog at stderr so
// log lines stay out of piped command output.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

func newRegistry() (*tts.Registry, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return tts.NewRegistryFromConfig(cfg), cfg, nil
}
