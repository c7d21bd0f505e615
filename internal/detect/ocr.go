package detect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/textnorm"
)

// ErrNoVision is returned by ReadText when the backend cannot look at images
var ErrNoVision = errors.New("backend cannot read images")

// ReadText transcribes a page with the vision backend. doc is either a PDF,
// whose first page is rasterized, or a JPEG or PNG image sent as is.
func (d *Detector) ReadText(ctx context.Context, doc []byte, mime string) (string, error) {
	if d.backend.Capability() != CapabilityVision {
		return "", form.NewError(form.KindExtractionFailed, "ocr",
			fmt.Sprintf("provider %s cannot read images", d.backend.Name()), ErrNoVision)
	}

	prompt := Prompt{Instruction: OCRInstruction(), Image: doc, ImageMIME: mime}
	if mime == string(form.MIMEPDF) {
		if d.raster == nil {
			return "", form.NewError(form.KindExtractionFailed, "ocr", "no rasterizer configured", nil)
		}
		img, err := d.raster.Rasterize(doc, d.opts.DPI)
		if err != nil {
			return "", form.NewError(form.KindPDFLoad, "ocr", "cannot render first page", err)
		}
		prompt.Image = img.Data
		prompt.ImageMIME = img.MIMEType
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	raw, err := d.complete(ctx, prompt)
	if err != nil {
		log.Printf("detect: provider=%s ocr failed: %v", d.backend.Name(), err)
		return "", form.NewError(form.KindExtractionFailed, "ocr", "text recognition failed", err)
	}

	text := textnorm.Normalize(strings.TrimSpace(stripFences(raw)))
	log.Printf("detect: provider=%s ocr characters=%d", d.backend.Name(), len([]rune(text)))
	return text, nil
}

// stripFences removes a surrounding markdown code fence some models add
// despite the instruction
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "```"), "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 && !strings.ContainsAny(t[:i], " \t") {
		// drop the language tag line
		t = t[i+1:]
	}
	return t
}
