package pipeline

import (
	"fmt"
	"log"

	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/detect"
	"github.com/a3tai/mcp-form-filler/internal/extract"
	"github.com/a3tai/mcp-form-filler/internal/layout"
	"github.com/a3tai/mcp-form-filler/internal/merge"
	"github.com/a3tai/mcp-form-filler/internal/render"
)

// Build wires a Service from configuration. Without a provider every
// document falls back to the configured template.
func Build(cfg *config.Config) (*Service, error) {
	templates := layout.NewRegistry()
	if cfg.TemplatesFile != "" {
		if err := templates.LoadFile(cfg.TemplatesFile); err != nil {
			return nil, err
		}
	}
	if !templates.Has(cfg.Template) {
		return nil, fmt.Errorf("template %q is not defined", cfg.Template)
	}

	var (
		detector FieldDetector
		ocr      PageReader
	)
	if cfg.DetectionEnabled() {
		settings, err := cfg.DetectSettings()
		if err != nil {
			return nil, err
		}
		backend, err := detect.NewBackend(settings)
		if err != nil {
			return nil, fmt.Errorf("failed to create detection backend: %w", err)
		}

		var raster detect.Rasterizer
		if backend.Capability() == detect.CapabilityVision {
			raster = detect.FitzRasterizer{}
		}
		d := detect.NewDetector(backend, raster, cfg.DetectOptions())
		detector = d
		if raster != nil {
			ocr = d
		}
	} else {
		log.Printf("pipeline: no detection provider configured, using template %q for every document", cfg.Template)
	}

	return NewService(Dependencies{
		Extractor:  extract.NewExtractor(cfg.MaxFileSize),
		Detector:   detector,
		Merger:     merge.New(merge.WithDateLayout(cfg.DateLayout)),
		Templates:  templates,
		Renderer:   render.NewRenderer(cfg.RenderOptions()),
		OCR:        ocr,
		TemplateID: cfg.Template,
		Provider:   cfg.Provider,
	})
}
