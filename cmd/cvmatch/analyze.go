package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-match/internal/ingestion"
	"github.com/jonathan/cv-match/internal/logging"
	"github.com/jonathan/cv-match/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a job description against the CV",
	Long: `Runs the analysis pipeline for one company: JD analysis, CV skill
extraction, CV/JD matching, component scoring, recommendations, and a
tailored CV draft. Stage outputs are cached per company; unchanged inputs
reuse the cached artifacts.`,
	RunE: runAnalyze,
}

var (
	analyzeConfigPath   string
	analyzeCompany      string
	analyzeJDFile       string
	analyzeJDURL        string
	analyzeRerun        bool
	analyzeForceRefresh bool
	analyzeLatest       bool
	analyzeUseBrowser   bool
	analyzeVerbose      bool
	analyzeDataRoot     string
	analyzeAPIKey       string
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config.json (flags override config values)")
	analyzeCmd.Flags().StringVarP(&analyzeCompany, "company", "c", "", "Company name (required)")
	analyzeCmd.Flags().StringVarP(&analyzeJDFile, "jd-file", "j", "", "Path to job description text file (mutually exclusive with --jd-url)")
	analyzeCmd.Flags().StringVar(&analyzeJDURL, "jd-url", "", "URL to fetch the job posting from (mutually exclusive with --jd-file)")
	analyzeCmd.Flags().BoolVar(&analyzeRerun, "rerun", false, "Evaluate the latest tailored CV instead of the original")
	analyzeCmd.Flags().BoolVar(&analyzeForceRefresh, "force-refresh", false, "Ignore cached artifacts and recompute every stage")
	analyzeCmd.Flags().BoolVar(&analyzeLatest, "latest", false, "Use whichever CV variant is newest, original or tailored")
	analyzeCmd.Flags().BoolVar(&analyzeUseBrowser, "use-browser", false, "Use headless browser for JavaScript-rendered job boards")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print detailed debug information")
	analyzeCmd.Flags().StringVar(&analyzeDataRoot, "data-root", "", "Directory holding cvs/ and cv-analysis/ (defaults to config)")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API key (defaults to GEMINI_API_KEY env var)")

	_ = analyzeCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(analyzeConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-root") {
		cfg.DataRoot = analyzeDataRoot
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = analyzeAPIKey
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = analyzeUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = analyzeVerbose
	}

	if analyzeRerun && analyzeLatest {
		return fmt.Errorf("--rerun and --latest are mutually exclusive")
	}

	jdText, err := acquireJD(ctx, cfg.UseBrowser)
	if err != nil {
		return err
	}

	log, err := logging.New(false, cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	orch, _, closeClient, err := buildOrchestrator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeClient() }()

	result := orch.Run(ctx, pipeline.Options{
		Company:          analyzeCompany,
		JDText:           jdText,
		IsRerun:          analyzeRerun,
		UseLatestOverall: analyzeLatest,
		ForceRefresh:     analyzeForceRefresh,
		OnProgress: func(e pipeline.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", e.State, e.Message)
		},
	})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Success {
		return fmt.Errorf("analysis did not complete successfully")
	}
	return nil
}

// acquireJD resolves the job description text from --jd-file or --jd-url.
func acquireJD(ctx context.Context, useBrowser bool) (string, error) {
	if (analyzeJDFile == "") == (analyzeJDURL == "") {
		return "", fmt.Errorf("exactly one of --jd-file and --jd-url is required")
	}

	if analyzeJDFile != "" {
		jd, err := ingestion.FromFile(analyzeJDFile)
		if err != nil {
			return "", err
		}
		return jd.Text, nil
	}

	opts := ingestion.DefaultFetchOptions()
	opts.AllowBrowser = useBrowser
	jd, err := ingestion.FromURL(ctx, analyzeJDURL, opts)
	if err != nil {
		return "", err
	}
	return jd.Text, nil
}
