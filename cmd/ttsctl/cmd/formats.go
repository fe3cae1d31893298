package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audioforge/ttsgate/internal/tts"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported output encodings",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, f := range tts.FormatCatalog() {
			fmt.Printf("%s\t%s\n", f.ID, f.MimeType)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
