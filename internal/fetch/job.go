package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/sirupsen/logrus"
)

// DefaultBrowserTimeout bounds one headless render
const DefaultBrowserTimeout = 30 * time.Second

// Page is the extracted text of a job posting
type Page struct {
	URL       string    `json:"url"`
	Platform  Platform  `json:"platform"`
	Text      string    `json:"text"`
	Rendered  bool      `json:"rendered"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fetcher returns the text of the job posting at a URL
type Fetcher interface {
	JobPosting(ctx context.Context, url string) (*Page, error)
}

type renderFunc func(ctx context.Context, url string, timeout time.Duration, log logrus.FieldLogger) (string, error)

// HTTPFetcher fetches postings over plain HTTP and, when enabled, re-renders pages that
// look JavaScript-rendered in a headless browser.
type HTTPFetcher struct {
	options        *Options
	useBrowser     bool
	browserTimeout time.Duration
	render         renderFunc
	log            logrus.FieldLogger
}

// NewHTTPFetcher returns a fetcher. A nil opts uses DefaultOptions.
func NewHTTPFetcher(opts *Options, useBrowser bool, log logrus.FieldLogger) *HTTPFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTTPFetcher{
		options:        opts,
		useBrowser:     useBrowser,
		browserTimeout: DefaultBrowserTimeout,
		render:         WithBrowser,
		log:            observability.OrNop(log),
	}
}

// JobPosting implements Fetcher
func (f *HTTPFetcher) JobPosting(ctx context.Context, url string) (*Page, error) {
	log := f.log.WithField("url", url)

	result, err := URL(ctx, url, f.options)
	if err != nil {
		return nil, err
	}

	content, noise := Selectors(url)
	text, err := ExtractMainText(result.HTML, content, noise...)
	if err != nil {
		return nil, &Error{URL: url, Message: "content extraction failed", Cause: err}
	}

	page := &Page{URL: url, Platform: DetectPlatform(url), FetchedAt: time.Now().UTC()}
	if f.useBrowser && ShouldUseBrowser(text) {
		log.WithField("chars", len(text)).Info("Page content is short, rendering in browser")
		html, err := f.render(ctx, url, f.browserTimeout, log)
		if err != nil {
			log.WithError(err).Warn("Browser rendering failed, using HTTP content")
		} else if rendered, err := ExtractMainText(html, content, noise...); err == nil && len(rendered) > len(text) {
			text = rendered
			page.Rendered = true
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, &Error{URL: url, Message: "page has no text content"}
	}
	page.Text = text

	log.WithFields(logrus.Fields{
		"platform": page.Platform,
		"chars":    len(text),
		"rendered": page.Rendered,
	}).Info("Fetched job posting")
	return page, nil
}
