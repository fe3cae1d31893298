package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audioforge/ttsgate/internal/tts"
)

var voicesProvider string

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices a provider offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, err := newRegistry()
		if err != nil {
			return err
		}

		provider, err := registry.Get(voicesProvider)
		if err != nil {
			return err
		}

		lister, ok := provider.(tts.VoiceLister)
		if !ok {
			fmt.Printf("%s does not list voices\n", provider.Name())
			return nil
		}
		voices, err := lister.Voices(cmd.Context())
		if err != nil {
			return err
		}

		for _, v := range voices {
			fmt.Println(v)
		}
		fmt.Printf("\n%d voices (%s)\n", len(voices), provider.Name())
		return nil
	},
}

func init() {
	voicesCmd.Flags().StringVar(&voicesProvider, "provider", "", "provider name, default from config")
	rootCmd.AddCommand(voicesCmd)
}
