// Package render draws field values onto the first page of a PDF.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-form-filler/internal/form"
)

// DefaultFontSize is the size of every drawn value, in points
const DefaultFontSize = 11

// Options configures a Renderer
type Options struct {
	// FontPath is an optional TrueType font with full Turkish coverage
	FontPath string
	// FontCacheDir is where pdfcpu keeps converted user fonts
	FontCacheDir string
	// FontSize defaults to DefaultFontSize and is rounded to whole points
	FontSize float64
}

// Output is the rendered document plus what was drawn
type Output struct {
	Bytes      []byte
	Font       string
	Placements []Placement
	Skipped    []Skipped
}

// Renderer overlays text on PDFs
type Renderer struct {
	opts Options
}

// NewRenderer creates a renderer
func NewRenderer(opts Options) *Renderer {
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultFontSize
	}
	return &Renderer{opts: opts}
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageSize returns the size of the first page of pdf
func PageSize(pdf []byte) (Dim, error) {
	ctx, err := api.ReadContext(bytes.NewReader(pdf), newConfiguration())
	if err != nil {
		return Dim{}, form.NewError(form.KindPDFLoad, "render", "cannot read document", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Dim{}, form.NewError(form.KindPDFLoad, "render", "cannot read page tree", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return Dim{}, form.NewError(form.KindPDFLoad, "render", "cannot read page size", err)
	}
	if len(dims) == 0 {
		return Dim{}, form.NewError(form.KindPDFLoad, "render", "document has no pages", nil)
	}
	return Dim{Width: dims[0].Width, Height: dims[0].Height}, nil
}

// Render draws fields onto page 1 of pdf and returns a new buffer. The
// input slice is never modified.
func (r *Renderer) Render(pdf []byte, fields []form.Field) (*Output, error) {
	page, err := PageSize(pdf)
	if err != nil {
		return nil, err
	}

	placements, skipped := Plan(fields, page)
	for _, s := range skipped {
		log.Printf("render: skipping field %q: %s", s.Field, s.Reason)
	}

	if len(placements) == 0 {
		return &Output{
			Bytes:   append([]byte(nil), pdf...),
			Skipped: skipped,
		}, nil
	}

	fontName, unicodeFont := r.resolveFont()
	out, err := r.stamp(pdf, placements, fontName, !unicodeFont)
	if err != nil && unicodeFont {
		log.Printf("render: stamping with %s failed, retrying with %s: %v", fontName, FallbackFont, err)
		fontName = FallbackFont
		out, err = r.stamp(pdf, placements, fontName, true)
	}
	if err != nil {
		var fe *form.Error
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, form.NewError(form.KindRender, "render", "cannot draw field values", err)
	}

	return &Output{
		Bytes:      out,
		Font:       fontName,
		Placements: placements,
		Skipped:    skipped,
	}, nil
}

// resolveFont picks the configured TrueType font, or the built-in fallback
func (r *Renderer) resolveFont() (string, bool) {
	if r.opts.FontPath != "" {
		name, err := installFont(r.opts.FontPath, r.opts.FontCacheDir)
		if err == nil {
			return name, true
		}
		log.Printf("render: font %s unavailable, using %s: %v", r.opts.FontPath, FallbackFont, err)
	}
	return FallbackFont, false
}

// StampOrigin returns the y offset that puts the baseline of a stamp at
// baseline. pdfcpu sits the stamp's bounding box on the offset, which is one
// rounded-up descent below the baseline.
func StampOrigin(fontName string, points int, baseline float64) float64 {
	return baseline - math.Ceil(font.Descent(fontName, points))
}

// points is the font size as pdfcpu takes it
func (r *Renderer) points() int {
	return max(1, int(math.Round(r.opts.FontSize)))
}

func (r *Renderer) stamp(pdf []byte, placements []Placement, fontName string, fold bool) ([]byte, error) {
	if fold && !font.IsCoreFont(fontName) {
		return nil, form.NewError(form.KindFontEmbed, "render", "fallback font is not available", nil)
	}

	size := r.points()
	stamps := make([]*model.Watermark, 0, len(placements))
	for _, p := range placements {
		text := p.Text
		if fold {
			folded, lossy := FoldForFallback(text)
			if lossy {
				log.Printf("render: %s cannot show every letter of field %q, writing %q", fontName, p.Field, folded)
			}
			text = folded
		}

		desc := fmt.Sprintf("fontname:%s, points:%d, scalefactor:1 abs, position:bl, offset:%.2f %.2f, fillcolor:#000000, rotation:0, opacity:1",
			fontName, size, p.X, StampOrigin(fontName, size, p.Y))
		wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("failed to build stamp for %q: %w", p.Field, err)
		}
		stamps = append(stamps, wm)
	}

	var buf bytes.Buffer
	err := api.AddWatermarksSliceMap(bytes.NewReader(pdf), &buf, map[int][]*model.Watermark{1: stamps}, newConfiguration())
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
