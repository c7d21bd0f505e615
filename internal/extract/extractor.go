// Package extract turns PDF and DOCX buffers into normalized plain text.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/textnorm"
)

var (
	blankRuns     = regexp.MustCompile(`\n{3,}`)
	turkishHyphen = regexp.MustCompile(`([a-zA-ZçğıöşüÇĞİÖŞÜ])-\n([a-zçğıöşü])`)
)

// Extractor extracts the text layer of supported documents
type Extractor struct {
	maxFileSize int64
}

// NewExtractor creates an extractor that rejects inputs larger than
// maxFileSize bytes. Zero disables the limit.
func NewExtractor(maxFileSize int64) *Extractor {
	return &Extractor{maxFileSize: maxFileSize}
}

// ExtractText returns the cleaned text of data. A PDF without a text layer
// yields an empty string and no error.
func (e *Extractor) ExtractText(ctx context.Context, data []byte, mime form.MIMEType) (string, error) {
	if !mime.IsSupported() {
		return "", form.NewError(form.KindUnsupportedFormat, "extract",
			fmt.Sprintf("unsupported document type %q", mime), nil)
	}

	if e.maxFileSize > 0 && int64(len(data)) > e.maxFileSize {
		return "", form.NewError(form.KindExtractionFailed, "extract",
			fmt.Sprintf("document too large: %d bytes (max: %d bytes)", len(data), e.maxFileSize), nil)
	}

	var (
		raw string
		err error
	)
	switch mime {
	case form.MIMEPDF:
		raw, err = extractPDF(ctx, data)
	case form.MIMEDOCX:
		raw, err = extractDOCX(data)
	}
	if err != nil {
		return "", err
	}

	return Clean(raw), nil
}

// Clean normalizes extracted text and applies the layout clean-up passes
func Clean(text string) string {
	text = textnorm.Normalize(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text = turkishHyphen.ReplaceAllString(text, "$1$2")
	return strings.TrimSpace(text)
}
