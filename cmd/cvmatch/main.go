// Package main provides the cvmatch CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cvmatch",
	Short: "CV/job-description matching pipeline",
	Long:  "cvmatch analyzes job descriptions against a CV, caching artifacts per company and producing skill matches, recommendations, and tailored CV drafts.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
