package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	spaceRun    = regexp.MustCompile(`[ \t\x{00A0}]+`)
	blankRun    = regexp.MustCompile(`\n\n\n+`)
	bulletMarks = []string{"•", "·", "▪", "◦", "‣", "●"}
)

// CleanText normalizes line endings, bullet glyphs and whitespace while keeping the line
// structure of the document.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\f", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	// At most one blank line between blocks
	result := blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine trims a line, keeps markdown headings and list markers, and rewrites bullet
// glyphs as "- ". Indentation of list items is preserved.
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t\u00a0")
	trimmed := strings.TrimLeft(line, " \t\u00a0")
	if trimmed == "" {
		return ""
	}
	indent := len(line) - len(trimmed)

	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	for _, mark := range bulletMarks {
		if rest, ok := strings.CutPrefix(trimmed, mark); ok {
			trimmed = "- " + strings.TrimLeft(rest, " \t\u00a0")
			break
		}
	}

	trimmed = spaceRun.ReplaceAllString(trimmed, " ")
	if indent > 0 && isBulletLine(trimmed) {
		return strings.Repeat(" ", indent) + trimmed
	}
	return trimmed
}

func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")
}

// ReadFile extracts the text of a document on disk
func ReadFile(path string) (string, *Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}

	name := filepath.Base(path)
	format, err := DetectType(data, name, "")
	if err != nil {
		return "", nil, err
	}
	text, err := ExtractText(data, name, "")
	if err != nil {
		return "", nil, err
	}
	return text, NewMetadata(text, path, format), nil
}
