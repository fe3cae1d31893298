package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List registered synthesis providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, err := newRegistry()
		if err != nil {
			return err
		}

		def := registry.DefaultName()
		for _, name := range registry.Names() {
			if name == def {
				fmt.Printf("%s (default)\n", name)
				continue
			}
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
