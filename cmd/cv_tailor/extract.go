package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/parsing"
	"github.com/spf13/cobra"
)

var extractJobCmd = &cobra.Command{
	Use:   "extract-job",
	Short: "Extract structured requirements from a job description",
	Long:  "Extract must-have, nice-to-have and inferred requirements, ATS keywords and culture signals from a job description file or URL, and write them as JSON.",
	RunE:  runExtractJob,
}

var extractCVCmd = &cobra.Command{
	Use:   "extract-cv",
	Short: "Extract structured facts from a CV",
	Long:  "Extract experiences, achievements, skills, education and certifications from a CV document, and write them as JSON. The file can be passed to tailor --facts.",
	RunE:  runExtractCV,
}

var (
	extractJob     string
	extractJobURL  string
	extractCV      string
	extractOut     string
	extractAPIKey  string
	extractVerbose bool
)

func init() {
	extractJobCmd.Flags().StringVarP(&extractJob, "job", "j", "", "Path to job description file (mutually exclusive with --job-url)")
	extractJobCmd.Flags().StringVar(&extractJobURL, "job-url", "", "URL to fetch the job posting from (mutually exclusive with --job)")

	extractCVCmd.Flags().StringVar(&extractCV, "cv", "", "Path to CV file: .pdf, .docx, .txt or .md (required)")
	_ = extractCVCmd.MarkFlagRequired("cv")

	for _, c := range []*cobra.Command{extractJobCmd, extractCVCmd} {
		c.Flags().StringVarP(&extractOut, "out", "o", "", "Output JSON file (stdout when omitted)")
		c.Flags().StringVar(&extractAPIKey, "api-key", "", "LLM API key (defaults to LLM_API_KEY or the provider's key variable)")
		c.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "Print a summary to stderr")
		rootCmd.AddCommand(c)
	}
}

func runExtractJob(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	fetcher := newFetcher(ctx, cfg, log)
	defer fetcher.Close() //nolint:errcheck

	text, err := readJob(ctx, extractJob, extractJobURL, fetcher)
	if err != nil {
		return err
	}

	client, err := newClient(ctx, cfg, extractAPIKey)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	reqs, err := parsing.ExtractJobRequirements(ctx, client, text, log)
	if err != nil {
		return fmt.Errorf("job extraction failed: %w", err)
	}
	if extractVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintJobRequirements(reqs)
	}
	return writeJSON(extractOut, reqs)
}

func runExtractCV(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	text, err := readCV(extractCV)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	client, err := newClient(ctx, cfg, extractAPIKey)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	facts, err := experience.ExtractCVFacts(ctx, client, text, log)
	if err != nil {
		return fmt.Errorf("CV extraction failed: %w", err)
	}
	if extractVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintCVFacts(facts)
	}
	if extractOut == "" || extractOut == "-" {
		return writeJSON(extractOut, facts)
	}
	return experience.SaveCVFacts(extractOut, facts)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return writeOutput(path, append(data, '\n'))
}
