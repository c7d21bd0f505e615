package render

import (
	"strings"

	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/textnorm"
)

// VerticalOffset moves the baseline down from the top of the field box
const VerticalOffset = 10.0

// Dim is a page size in points
type Dim struct {
	Width  float64
	Height float64
}

// Placement is one piece of text to draw, in PDF user space (bottom-left
// origin)
type Placement struct {
	Field string  `json:"field"`
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Skip reasons reported for fields that are not drawn
const (
	SkipEmpty       = "empty value"
	SkipOutOfBounds = "outside the page"
)

// Skipped records a field that was not drawn and why
type Skipped struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Plan converts fields into placements for a page of the given size. Fields
// outside the page or without a value are skipped. Values are normalized
// before drawing.
func Plan(fields []form.Field, page Dim) ([]Placement, []Skipped) {
	var (
		placements []Placement
		skipped    []Skipped
	)
	for _, f := range fields {
		if !f.InBounds(page.Width, page.Height) {
			skipped = append(skipped, Skipped{Field: f.Name, Reason: SkipOutOfBounds})
			continue
		}
		text := strings.TrimSpace(textnorm.Normalize(f.Value))
		if text == "" {
			skipped = append(skipped, Skipped{Field: f.Name, Reason: SkipEmpty})
			continue
		}
		placements = append(placements, Placement{
			Field: f.Name,
			Text:  text,
			X:     f.X,
			Y:     page.Height - f.Y - VerticalOffset,
		})
	}
	return placements, skipped
}
