package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "percept",
		Short: "percept — real-time visual assistant core",
		Long:  "Serves per-session chat and video-frame ingestion, running vision tool-calling agent turns against a sliding window of recent frames.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
