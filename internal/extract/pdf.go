package extract

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-form-filler/internal/form"
)

// extractPDF reads the text layer page by page. Pages that fail to decode
// are skipped; a document that cannot be opened at all is an error.
func extractPDF(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		// ledongthuc/pdf panics on some malformed inputs
		if r := recover(); r != nil {
			text = ""
			err = form.NewError(form.KindExtractionFailed, "extract_pdf", "cannot parse PDF", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", form.NewError(form.KindExtractionFailed, "extract_pdf", "cannot parse PDF", err)
	}

	var builder strings.Builder
	numPages := reader.NumPage()
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", form.NewError(form.KindExtractionFailed, "extract_pdf", "extraction cancelled", err)
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("extract: skipping page %d: %v", pageNum, err)
			continue
		}

		builder.WriteString(content)
		if pageNum < numPages {
			builder.WriteString("\n\n")
		}
	}

	return builder.String(), nil
}
