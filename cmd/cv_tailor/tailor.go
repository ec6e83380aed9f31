package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/cv-tailor/internal/db"
	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/rendering"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
	"github.com/spf13/cobra"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor",
	Short: "Tailor a CV to a job description",
	Long: `Runs the full pipeline: job and CV extraction, evidence mapping, generation, fabrication
checks and the optional cover letter. The tailored CV is written in --format to --out
(stdout by default); --result saves the full result as JSON for a later export.`,
	RunE: runTailor,
}

var (
	tailorJob         string
	tailorJobURL      string
	tailorCV          string
	tailorStrictness  string
	tailorCoverLetter bool
	tailorFormat      string
	tailorOut         string
	tailorResult      string
	tailorNotes       string
	tailorAPIKey      string
	tailorVerbose     bool
	tailorRefresh     bool
	tailorFacts       string
)

func init() {
	tailorCmd.Flags().StringVarP(&tailorJob, "job", "j", "", "Path to job description file (mutually exclusive with --job-url)")
	tailorCmd.Flags().StringVar(&tailorJobURL, "job-url", "", "URL to fetch the job posting from (mutually exclusive with --job)")
	tailorCmd.Flags().StringVar(&tailorCV, "cv", "", "Path to CV file: .pdf, .docx, .txt or .md")
	tailorCmd.Flags().StringVar(&tailorFacts, "facts", "", "CV facts JSON written by extract-cv; skips CV extraction")
	tailorCmd.Flags().StringVarP(&tailorStrictness, "strictness", "s", "", "conservative, moderate or aggressive (defaults to DEFAULT_STRICTNESS)")
	tailorCmd.Flags().BoolVar(&tailorCoverLetter, "cover-letter", true, "Generate a cover letter")
	tailorCmd.Flags().StringVarP(&tailorFormat, "format", "f", string(types.FormatMarkdown), "Output format: markdown, docx, pdf, json or latex")
	tailorCmd.Flags().StringVarP(&tailorOut, "out", "o", "", "Output file (stdout when omitted)")
	tailorCmd.Flags().StringVar(&tailorResult, "result", "", "Also write the full result JSON to this file")
	tailorCmd.Flags().StringVar(&tailorNotes, "notes", "", "Extra instructions for the writer")
	tailorCmd.Flags().StringVar(&tailorAPIKey, "api-key", "", "LLM API key (defaults to LLM_API_KEY or the provider's key variable)")
	tailorCmd.Flags().BoolVarP(&tailorVerbose, "verbose", "v", false, "Print extraction, mapping and review details to stderr")
	tailorCmd.Flags().BoolVar(&tailorRefresh, "refresh", false, "Refetch --job-url instead of using the cached page")

	tailorCmd.MarkFlagsOneRequired("cv", "facts")

	rootCmd.AddCommand(tailorCmd)
}

// tailorOptions validates the option flags against the configured default strictness
func tailorOptions(defaultStrictness types.Strictness) (types.TailorOptions, error) {
	opts := types.TailorOptions{
		Strictness:          types.Strictness(tailorStrictness),
		GenerateCoverLetter: tailorCoverLetter,
		OutputFormat:        types.OutputFormat(tailorFormat),
		UserNotes:           tailorNotes,
	}
	if opts.Strictness == "" {
		opts.Strictness = defaultStrictness
	}
	opts = opts.WithDefaults()
	if !opts.Strictness.IsValid() {
		return opts, fmt.Errorf("invalid --strictness %q: must be conservative, moderate or aggressive", tailorStrictness)
	}
	if !opts.OutputFormat.IsValid() {
		return opts, fmt.Errorf("invalid --format %q: must be markdown, docx, pdf, json or latex", tailorFormat)
	}
	return opts, nil
}

func runTailor(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := tailorOptions(cfg.DefaultStrictness)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fetcher := newFetcher(ctx, cfg, log)
	defer fetcher.Close() //nolint:errcheck

	if tailorRefresh && tailorJobURL != "" {
		if err := fetcher.Invalidate(ctx, tailorJobURL); err != nil {
			log.WithError(err).Warn("Failed to drop cached page")
		}
	}
	jobText, err := readJob(ctx, tailorJob, tailorJobURL, fetcher)
	if err != nil {
		return err
	}
	var cvText string
	var facts *types.CVFacts
	if tailorFacts != "" {
		facts, err = experience.LoadCVFacts(tailorFacts)
	} else {
		cvText, err = readCV(tailorCV)
	}
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cfg, tailorAPIKey)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	runOpts := pipeline.Options{
		Logger: log,
		OnProgress: func(e pipeline.ProgressEvent) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", e.Step, e.Total, e.Message)
		},
	}
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		runOpts.Store = database
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	printer := observability.NewPrinter(cmd.ErrOrStderr())
	result, err := pipeline.Run(ctx, client, pipeline.Input{
		JobDescription: jobText,
		OriginalCV:     cvText,
		CVFacts:        facts,
		Options:        opts,
	}, runOpts)
	if err != nil {
		var fe *validation.FabricationError
		if errors.As(err, &fe) {
			printer.PrintViolations(fe.Violations)
		}
		return fmt.Errorf("tailoring failed: %w", err)
	}

	if tailorVerbose {
		printer.PrintResult(result)
	}

	if tailorResult != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if err := writeOutput(tailorResult, data); err != nil {
			return err
		}
	}

	doc, err := rendering.Render(ctx, result.TailoredCV, result.CoverLetter, opts.OutputFormat)
	if err != nil {
		return err
	}
	if err := writeOutput(tailorOut, doc.Data); err != nil {
		return err
	}
	if tailorOut != "" && tailorOut != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%s)\n", tailorOut, doc.Format)
	}
	return nil
}
