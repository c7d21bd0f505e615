package pipeline

import (
	"context"
	"log"
	"strings"

	"github.com/a3tai/mcp-form-filler/internal/form"
)

// TextSource tells how the text of a document was obtained
type TextSource string

const (
	TextFromLayer TextSource = "text_layer"
	TextFromOCR   TextSource = "ocr"
)

// TextResult is the text of one document
type TextResult struct {
	MIMEType string     `json:"mime_type"`
	Text     string     `json:"text"`
	Source   TextSource `json:"source"`
	// Note explains an empty result
	Note string `json:"note,omitempty"`
}

// ReadText returns the text of a PDF, DOCX or page image. PDFs without a
// text layer and images are transcribed by the OCR reader when one is
// configured.
func (s *Service) ReadText(ctx context.Context, data []byte) (*TextResult, error) {
	if len(data) == 0 {
		return nil, form.NewError(form.KindInvalidInput, "read_text", "document is empty", nil)
	}

	if imageMIME, ok := form.DetectImageType(data); ok {
		if s.deps.OCR == nil {
			return nil, form.NewError(form.KindUnsupportedFormat, "read_text",
				"reading images needs a vision provider", nil)
		}
		text, err := s.deps.OCR.ReadText(ctx, data, imageMIME)
		if err != nil {
			return nil, err
		}
		return &TextResult{MIMEType: imageMIME, Text: text, Source: TextFromOCR}, nil
	}

	mime, err := form.DetectMIMEType(data)
	if err != nil {
		return nil, err
	}
	text, err := s.deps.Extractor.ExtractText(ctx, data, mime)
	if err != nil {
		return nil, err
	}
	res := &TextResult{MIMEType: string(mime), Text: text, Source: TextFromLayer}
	if strings.TrimSpace(text) != "" || mime != form.MIMEPDF {
		return res, nil
	}

	if s.deps.OCR == nil {
		res.Note = "the document has no text layer and no vision provider is configured"
		return res, nil
	}
	log.Printf("pipeline: no text layer, transcribing the first page")
	text, err = s.deps.OCR.ReadText(ctx, data, string(mime))
	if err != nil {
		return nil, err
	}
	return &TextResult{MIMEType: string(mime), Text: text, Source: TextFromOCR}, nil
}
