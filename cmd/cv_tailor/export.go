package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/cv-tailor/internal/db"
	"github.com/jonathan/cv-tailor/internal/rendering"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a saved tailoring result",
	Long: `Render the tailored CV and cover letter as markdown, docx, pdf, json or latex, either from a
result JSON file written by tailor --result or from a run stored in the database.`,
	RunE:  runExport,
}

var (
	exportInput  string
	exportRun    string
	exportFormat string
	exportOut    string
)

func init() {
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "Path to result JSON file (mutually exclusive with --run)")
	exportCmd.Flags().StringVar(&exportRun, "run", "", "ID of a stored run to export (requires DATABASE_URL)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(types.FormatMarkdown), "Output format: markdown, docx, pdf, json or latex")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (defaults to a name derived from the candidate)")

	exportCmd.MarkFlagsMutuallyExclusive("input", "run")
	exportCmd.MarkFlagsOneRequired("input", "run")

	rootCmd.AddCommand(exportCmd)
}

// savedResult accepts both a full TailorResult and an export request body
type savedResult struct {
	TailoredCV  types.TailoredCV   `json:"tailored_cv"`
	CoverLetter *types.CoverLetter `json:"cover_letter"`
}

func loadResult(path string) (*savedResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	return parseResult(data, path)
}

func parseResult(data []byte, source string) (*savedResult, error) {
	var result savedResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result %s: %w", source, err)
	}
	if result.TailoredCV.Header.Name == "" && result.TailoredCV.Summary == "" && len(result.TailoredCV.Experience) == 0 {
		return nil, fmt.Errorf("%s does not contain a tailored_cv", source)
	}
	return &result, nil
}

// loadStoredResult reads the final result artifact of a run from the database
func loadStoredResult(ctx context.Context, id string) (*savedResult, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid --run %q: %w", id, err)
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("--run requires DATABASE_URL")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	content, err := database.GetArtifact(ctx, runID, db.StepResult)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, fmt.Errorf("run %s has no stored result", runID)
	}
	return parseResult(content, "run "+runID.String())
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	var result *savedResult
	var err error
	if exportRun != "" {
		result, err = loadStoredResult(ctx, exportRun)
	} else {
		result, err = loadResult(exportInput)
	}
	if err != nil {
		return err
	}

	doc, err := rendering.Render(ctx, result.TailoredCV, result.CoverLetter, types.OutputFormat(exportFormat))
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = doc.Filename
	}
	if err := writeOutput(out, doc.Data); err != nil {
		return err
	}
	if out != "-" {
		msg := fmt.Sprintf("Wrote %s (%s)", out, doc.Format)
		if doc.Pages > 0 {
			msg += fmt.Sprintf(", %d page(s)", doc.Pages)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}
	return nil
}
