package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"os"
)

var rootCmd = &cobra.Command{
	Use:   "scout-pipeline",
	Short: "Candidate sourcing pipeline operated from Telegram",
	Long: "Extracts keywords from job descriptions, searches the candidate database, " +
		"delivers scout messages and tracks the responses.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
