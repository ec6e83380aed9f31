package ingestion

import (
	"context"
	"fmt"

	"github.com/jonathan/cv-tailor/internal/fetch"
)

// IngestFromURL fetches a job posting and returns its cleaned text
func IngestFromURL(ctx context.Context, f fetch.Fetcher, url string) (string, *Metadata, error) {
	if err := fetch.ValidateURL(url); err != nil {
		return "", nil, err
	}

	page, err := f.JobPosting(ctx, url)
	if err != nil {
		return "", nil, fmt.Errorf("job posting fetch failed: %w", err)
	}

	text := CleanText(page.Text)
	if text == "" {
		return "", nil, fmt.Errorf("job posting at %s has no text", url)
	}

	metadata := NewMetadata(text, url, FormatText)
	metadata.Platform = string(page.Platform)
	return text, metadata, nil
}
