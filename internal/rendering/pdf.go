package rendering

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// CompilationTimeout bounds a single pdflatex invocation
const CompilationTimeout = 30 * time.Second

var disableConfigDir sync.Once

// CompileLaTeX compiles tex with pdflatex in a scratch directory and returns the PDF bytes.
// A PDF produced alongside compiler errors is still returned together with the error.
func CompileLaTeX(ctx context.Context, tex string) ([]byte, error) {
	if _, err := exec.LookPath("pdflatex"); err != nil {
		return nil, &CompilationError{
			Message: "pdflatex not found in PATH. Please install a LaTeX distribution (e.g., TeX Live)",
			Cause:   err,
		}
	}

	workDir, err := os.MkdirTemp("", "cv-compile-*")
	if err != nil {
		return nil, &CompilationError{Message: "failed to create temporary working directory", Cause: err}
	}
	defer os.RemoveAll(workDir)

	texPath := filepath.Join(workDir, "cv.tex")
	if err := os.WriteFile(texPath, []byte(tex), 0o644); err != nil {
		return nil, &CompilationError{Message: "failed to write LaTeX source", Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, CompilationTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pdflatex", "-interaction=nonstopmode", "-output-directory", workDir, texPath)
	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()
	logOutput := out.String()

	pdf, err := os.ReadFile(filepath.Join(workDir, "cv.pdf"))
	if err != nil {
		return nil, &CompilationError{
			Message:   "LaTeX compilation failed: PDF was not generated",
			LogOutput: logOutput,
			Cause:     runErr,
		}
	}
	if runErr != nil {
		return pdf, &CompilationError{
			Message:   "LaTeX compilation completed with errors (PDF may be incomplete)",
			LogOutput: logOutput,
			Cause:     runErr,
		}
	}
	return pdf, nil
}

// PageCount reports the number of pages in a PDF document
func PageCount(data []byte) (int, error) {
	disableConfigDir.Do(api.DisableConfigDir)
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, &RenderError{Format: "pdf", Message: "failed to count pages", Cause: err}
	}
	return n, nil
}
