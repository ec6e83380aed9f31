// Package ingestion turns uploaded documents and fetched pages into clean plain text.
package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// Format is a supported document format
type Format string

// Supported formats
const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeZip  = "application/zip"
	mimeText = "text/plain"
)

var extensions = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".txt":      FormatText,
	".md":       FormatText,
	".markdown": FormatText,
}

// DetectType decides the format of data. The file extension decides when present and the
// content must agree with it; without one, the declared MIME type and then the sniffed
// content are used.
func DetectType(data []byte, filename, mimeType string) (Format, error) {
	sniffed := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(filename))

	if ext != "" {
		format, ok := extensions[ext]
		if !ok {
			return "", &UnsupportedTypeError{Filename: filename, MimeType: sniffed.String()}
		}
		if !contentMatches(format, data, sniffed) {
			return "", &ParseError{Filename: filename, Format: format, Message: "content does not match the file extension (" + sniffed.String() + ")"}
		}
		return format, nil
	}

	declared := strings.TrimSpace(strings.Split(mimeType, ";")[0])
	for _, candidate := range []string{declared, sniffed.String()} {
		switch {
		case candidate == mimePDF:
			return FormatPDF, nil
		case candidate == mimeDOCX:
			return FormatDOCX, nil
		case strings.HasPrefix(candidate, mimeText), candidate == "text/markdown":
			return FormatText, nil
		}
	}
	if sniffed.Is(mimePDF) {
		return FormatPDF, nil
	}
	if sniffed.Is(mimeText) {
		return FormatText, nil
	}
	return "", &UnsupportedTypeError{Filename: filename, MimeType: sniffed.String()}
}

func contentMatches(format Format, data []byte, sniffed *mimetype.MIME) bool {
	switch format {
	case FormatPDF:
		return sniffed.Is(mimePDF)
	case FormatDOCX:
		return sniffed.Is(mimeDOCX) || sniffed.Is(mimeZip)
	default:
		return utf8.Valid(data)
	}
}

// ExtractText returns the cleaned text of a PDF, DOCX, plain text or markdown document.
func ExtractText(data []byte, filename, mimeType string) (string, error) {
	format, err := DetectType(data, filename, mimeType)
	if err != nil {
		return "", err
	}

	var raw string
	switch format {
	case FormatPDF:
		raw, err = extractPDF(data)
	case FormatDOCX:
		raw, err = extractDOCX(data)
	default:
		raw = string(data)
	}
	if err != nil {
		return "", &ParseError{Filename: filename, Format: format, Message: "could not read document", Cause: err}
	}

	text := CleanText(raw)
	if text == "" {
		return "", &ParseError{Filename: filename, Format: format, Message: "document contains no text"}
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	text, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extractDOCX reads the paragraphs of word/document.xml
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
