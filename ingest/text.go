// Package ingest turns a directory of judgments into chunk-store rows and a
// vector index whose ids match the row ids.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

var (
	pageNumberPattern = regexp.MustCompile(`\n\s*\d+\s*\n`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	unsafeIDPattern   = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

const maxDocumentIDLength = 100

// Supported reports whether path has an extension ExtractText can read
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// ExtractText reads the raw text of a .pdf or .txt document.
// Scanned PDFs without a text layer yield little or no text.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".pdf":
		return extractPDF(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var builder strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// CleanText drops page numbers standing alone on a line and collapses whitespace
func CleanText(text string) string {
	text = pageNumberPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// DocumentID derives a stable, URL-safe document id from a file name
func DocumentID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	id := unsafeIDPattern.ReplaceAllString(base, "_")
	if len(id) > maxDocumentIDLength {
		id = id[:maxDocumentIDLength]
	}
	return id
}
