// Package scan assembles scanned page images into a single PDF.
package scan

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var supportedImages = []string{"image/jpeg", "image/png", "image/tiff"}

// Result describes an assembled document
type Result struct {
	OutputPath string `json:"output_path"`
	Pages      int    `json:"pages"`
	Size       int64  `json:"size"`
}

// Combine builds a PDF with one A4 page per image, in order
func Combine(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to combine")
	}

	readers := make([]io.Reader, 0, len(images))
	for i, img := range images {
		mt := mimetype.Detect(img)
		if !mimetype.EqualsAny(mt.String(), supportedImages...) {
			return nil, fmt.Errorf("image %d: unsupported type %s", i+1, mt.String())
		}
		readers = append(readers, bytes.NewReader(img))
	}

	imp := pdfcpu.DefaultImportConfig()
	conf := model.NewDefaultConfiguration()

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, imp, conf); err != nil {
		return nil, fmt.Errorf("failed to import images: %w", err)
	}
	return buf.Bytes(), nil
}

// CombineFiles reads the image files at paths and writes the assembled PDF
// to outPath
func CombineFiles(paths []string, outPath string) (*Result, error) {
	if outPath == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}

	images := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		images = append(images, data)
	}

	pdf, err := Combine(images)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(outPath, pdf, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	return &Result{
		OutputPath: outPath,
		Pages:      len(images),
		Size:       int64(len(pdf)),
	}, nil
}
