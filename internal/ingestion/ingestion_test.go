package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/cv-tailor/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", "   \n\t\n  ", ""},
		{"line endings", "Line 1\r\nLine 2\rLine 3\nLine 4", "Line 1\nLine 2\nLine 3\nLine 4"},
		{"blank lines collapse", "Line 1\n\n\n\n\nLine 2", "Line 1\n\nLine 2"},
		{"spaces collapse", "Line    with \t multiple    spaces", "Line with multiple spaces"},
		{"headings kept", "  # Title\n## Subtitle\nContent", "# Title\n## Subtitle\nContent"},
		{"bullet glyphs", "• Built APIs\n·  Ran CI\n▪ Led team", "- Built APIs\n- Ran CI\n- Led team"},
		{"nested bullets keep indent", "- Parent\n    - Child", "- Parent\n    - Child"},
		{"non-bullet indent dropped", "    Paystream   2021", "Paystream 2021"},
		{"non-breaking spaces", "Go  developer", "Go developer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestCleanText_Deterministic(t *testing.T) {
	input := "Test content   with   spaces\n\n\nMultiple   blank   lines"
	assert.Equal(t, CleanText(input), CleanText(input))
	assert.Equal(t, CleanText(input), CleanText(CleanText(input)))
}

func docxFixture(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	require.NoError(t, err)
	w, err = zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectType(t *testing.T) {
	pdfBytes := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
	tests := []struct {
		name     string
		data     []byte
		filename string
		mimeType string
		want     Format
		wantErr  any
	}{
		{"txt", []byte("Jane Doe"), "cv.txt", "", FormatText, nil},
		{"markdown", []byte("# Jane Doe"), "CV.MD", "", FormatText, nil},
		{"pdf by extension", pdfBytes, "cv.pdf", "", FormatPDF, nil},
		{"pdf by content", pdfBytes, "upload", "", FormatPDF, nil},
		{"declared text", []byte("Jane Doe"), "blob", "text/plain; charset=utf-8", FormatText, nil},
		{"docx", docxFixture(t, "Jane"), "cv.docx", "", FormatDOCX, nil},
		{"legacy doc", []byte("x"), "cv.doc", "", "", &UnsupportedTypeError{}},
		{"image", []byte("\x89PNG\r\n\x1a\n"), "cv.png", "", "", &UnsupportedTypeError{}},
		{"text named pdf", []byte("Jane Doe"), "cv.pdf", "", "", &ParseError{}},
		{"binary named txt", []byte{0xff, 0xfe, 0x00, 0xd8}, "cv.txt", "", "", &ParseError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectType(tt.data, tt.filename, tt.mimeType)
			switch tt.wantErr.(type) {
			case *UnsupportedTypeError:
				var ue *UnsupportedTypeError
				require.ErrorAs(t, err, &ue)
			case *ParseError:
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractText_DOCX(t *testing.T) {
	data := docxFixture(t, "Jane Doe", "•  Built payment APIs in Go", "Increased conversion by 15%")

	text, err := ExtractText(data, "cv.docx", "")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n- Built payment APIs in Go\nIncreased conversion by 15%", text)
}

func TestExtractText_CorruptDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("readme.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = ExtractText(buf.Bytes(), "cv.docx", "")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FormatDOCX, pe.Format)
}

func TestExtractText_EmptyDocument(t *testing.T) {
	_, err := ExtractText([]byte("  \n\n "), "cv.txt", "")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "no text")
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.md")
	require.NoError(t, os.WriteFile(path, []byte("# Senior Engineer\r\n\r\n• Go\r\n"), 0644))

	text, meta, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Senior Engineer\n\n- Go", text)
	assert.Equal(t, FormatText, meta.Format)
	assert.Equal(t, path, meta.Source)
	assert.Equal(t, computeHash(text), meta.Hash)
	assert.Len(t, meta.Hash, 64)
}

func TestReadFile_NotFound(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

type stubFetcher struct {
	page *fetch.Page
	err  error
}

func (s stubFetcher) JobPosting(context.Context, string) (*fetch.Page, error) {
	return s.page, s.err
}

func TestIngestFromURL(t *testing.T) {
	f := stubFetcher{page: &fetch.Page{Text: "Senior Engineer\n• Go", Platform: fetch.PlatformLever}}

	text, meta, err := IngestFromURL(context.Background(), f, "https://jobs.lever.co/acme/1")
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer\n- Go", text)
	assert.Equal(t, "lever", meta.Platform)
	assert.Equal(t, "https://jobs.lever.co/acme/1", meta.Source)
}

func TestIngestFromURL_Errors(t *testing.T) {
	_, _, err := IngestFromURL(context.Background(), stubFetcher{}, "not-a-url")
	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)

	_, _, err = IngestFromURL(context.Background(), stubFetcher{err: errors.New("timeout")}, "https://example.com/job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
