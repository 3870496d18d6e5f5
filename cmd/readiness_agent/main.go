// Package main provides the entry point for the AI readiness assessment service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "readiness_agent",
	Short: "AI readiness assessment processing service",
	Long:  "Processes survey assessments into LLM-generated readiness reports, renders them as PDF and emails them to the submitter.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
