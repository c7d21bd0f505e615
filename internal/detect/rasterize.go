package detect

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
)

// PageImage is a rendered page ready to send to a vision backend
type PageImage struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	DPI      float64
}

// Rasterizer renders the first page of a PDF
type Rasterizer interface {
	Rasterize(pdf []byte, dpi float64) (*PageImage, error)
}

// FitzRasterizer renders pages with MuPDF through go-fitz
type FitzRasterizer struct {
	Quality int
}

// Rasterize renders page 1 of pdf to JPEG at the given resolution
func (r FitzRasterizer) Rasterize(pdf []byte, dpi float64) (*PageImage, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	img, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page 1: %w", err)
	}

	quality := r.Quality
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode page 1 as JPEG: %w", err)
	}

	bounds := img.Bounds()
	return &PageImage{
		Data:     buf.Bytes(),
		MIMEType: "image/jpeg",
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		DPI:      dpi,
	}, nil
}
