// Package pipeline runs a document through extraction, field detection,
// profile merging and overlay rendering.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/layout"
	"github.com/a3tai/mcp-form-filler/internal/render"
)

// TextExtractor reads the text layer of a document
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, mime form.MIMEType) (string, error)
}

// FieldDetector locates fields on a document; failures come back in the result
type FieldDetector interface {
	Detect(ctx context.Context, doc []byte, mime form.MIMEType, text string) form.DetectionResult
}

// PageReader transcribes a page image or the first page of a PDF
type PageReader interface {
	ReadText(ctx context.Context, doc []byte, mime string) (string, error)
}

// ProfileMerger writes profile attributes into fields
type ProfileMerger interface {
	Merge(fields []form.Field, profile form.Profile) []form.Field
}

// Templates provides default layouts by id
type Templates interface {
	Lookup(id string) ([]form.Field, string)
	IDs() []string
}

// Overlay draws field values on a PDF
type Overlay interface {
	Render(pdf []byte, fields []form.Field) (*render.Output, error)
}

// Source tells where the fields of a result came from
type Source string

const (
	SourceDetected      Source = "detected"
	SourceDefaultLayout Source = "default_layout"
)

// Result is the outcome of one invocation. Bytes is nil for Analyze.
type Result struct {
	RequestID       string             `json:"request_id"`
	SourceName      string             `json:"source_name"`
	MIMEType        form.MIMEType      `json:"mime_type"`
	Bytes           []byte             `json:"-"`
	Text            string             `json:"-"`
	Fields          []form.Field       `json:"fields"`
	Source          Source             `json:"source"`
	TemplateID      string             `json:"template_id,omitempty"`
	DetectionReason string             `json:"detection_reason,omitempty"`
	Font            string             `json:"font,omitempty"`
	Drawn           []render.Placement `json:"drawn,omitempty"`
	Skipped         []render.Skipped   `json:"skipped,omitempty"`
}

// Dependencies wires the stages of a Service. Detector may be nil, in which
// case every document uses the default layout.
type Dependencies struct {
	Extractor  TextExtractor
	Detector   FieldDetector
	Merger     ProfileMerger
	Templates  Templates
	Renderer   Overlay
	OCR        PageReader // nil disables reading scans without a text layer
	TemplateID string
	// Provider names the detection backend in Info; informational only
	Provider string
}

// Service orchestrates the pipeline. It holds no per-request state and is
// safe for concurrent use when its stages are.
type Service struct {
	deps Dependencies
}

// NewService creates a pipeline service
func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Extractor == nil:
		return nil, fmt.Errorf("pipeline: extractor is required")
	case deps.Merger == nil:
		return nil, fmt.Errorf("pipeline: merger is required")
	case deps.Templates == nil:
		return nil, fmt.Errorf("pipeline: templates are required")
	case deps.Renderer == nil:
		return nil, fmt.Errorf("pipeline: renderer is required")
	}
	if deps.TemplateID == "" {
		deps.TemplateID = layout.DefaultTemplateID
	}
	return &Service{deps: deps}, nil
}

// Info describes how the service is wired
type Info struct {
	Provider   string   `json:"provider"`
	TemplateID string   `json:"template_id"`
	Templates  []string `json:"templates"`
}

// Info reports the detection provider and the available templates
func (s *Service) Info() Info {
	provider := s.deps.Provider
	if s.deps.Detector == nil {
		provider = "none"
	}
	return Info{
		Provider:   provider,
		TemplateID: s.deps.TemplateID,
		Templates:  s.deps.Templates.IDs(),
	}
}

// Template returns the fields of a template and the id actually used
func (s *Service) Template(id string) ([]form.Field, string) {
	if id == "" {
		id = s.deps.TemplateID
	}
	return s.deps.Templates.Lookup(id)
}

// Option adjusts a single invocation
type Option func(*callOptions)

type callOptions struct {
	templateID string
	requestID  string
}

// WithTemplate selects the fallback template for one invocation
func WithTemplate(id string) Option {
	return func(o *callOptions) {
		if id != "" {
			o.templateID = id
		}
	}
}

// WithRequestID tags the invocation with a caller-supplied id instead of a
// fresh one
func WithRequestID(id string) Option {
	return func(o *callOptions) {
		if id != "" {
			o.requestID = id
		}
	}
}

// Process fills doc with its profile and returns the rendered PDF. Detection
// problems never fail the call; every other stage error aborts it with a
// *form.Error and no output.
func (s *Service) Process(ctx context.Context, doc form.Document, opts ...Option) (*Result, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}
	if doc.MIMEType != form.MIMEPDF {
		return nil, form.NewError(form.KindUnsupportedFormat, "process",
			"overlay rendering requires a PDF original", nil)
	}

	res, err := s.analyze(ctx, doc, s.callOptions(opts))
	if err != nil {
		return nil, err
	}

	out, err := s.deps.Renderer.Render(doc.Bytes, res.Fields)
	if err != nil {
		log.Printf("pipeline: request=%s render failed: %v", res.RequestID, err)
		return nil, err
	}

	res.MIMEType = form.MIMEPDF
	res.Bytes = out.Bytes
	res.Font = out.Font
	res.Drawn = out.Placements
	res.Skipped = out.Skipped

	log.Printf("pipeline: request=%s source=%s fields=%d drawn=%d skipped=%d",
		res.RequestID, res.Source, len(res.Fields), len(res.Drawn), len(res.Skipped))
	return res, nil
}

// Analyze runs every stage except rendering. DOCX documents are accepted
// here; they need a text-capable detector to get anything but the default
// layout.
func (s *Service) Analyze(ctx context.Context, doc form.Document, opts ...Option) (*Result, error) {
	if err := validate(doc); err != nil {
		return nil, err
	}
	return s.analyze(ctx, doc, s.callOptions(opts))
}

func (s *Service) analyze(ctx context.Context, doc form.Document, o callOptions) (*Result, error) {
	requestID := o.requestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	res := &Result{
		RequestID:  requestID,
		SourceName: doc.Name,
		MIMEType:   doc.MIMEType,
	}

	text, err := s.deps.Extractor.ExtractText(ctx, doc.Bytes, doc.MIMEType)
	if err != nil {
		log.Printf("pipeline: request=%s extraction failed: %v", res.RequestID, err)
		return nil, err
	}
	res.Text = text

	var fields []form.Field
	detection := s.detect(ctx, doc, text)
	if detection.OK() {
		fields = detection.Fields
		res.Source = SourceDetected
	} else {
		var usedID string
		fields, usedID = s.deps.Templates.Lookup(o.templateID)
		res.Source = SourceDefaultLayout
		res.TemplateID = usedID
		res.DetectionReason = detection.Reason
		log.Printf("pipeline: request=%s using template %q: %s", res.RequestID, usedID, detection.Reason)
	}

	res.Fields = s.deps.Merger.Merge(fields, doc.Profile)
	return res, nil
}

func (s *Service) detect(ctx context.Context, doc form.Document, text string) form.DetectionResult {
	if s.deps.Detector == nil {
		return form.Failed("no detection backend configured", nil)
	}
	return s.deps.Detector.Detect(ctx, doc.Bytes, doc.MIMEType, text)
}

func (s *Service) callOptions(opts []Option) callOptions {
	o := callOptions{templateID: s.deps.TemplateID}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func validate(doc form.Document) error {
	if !doc.MIMEType.IsSupported() {
		return form.NewError(form.KindUnsupportedFormat, "process",
			fmt.Sprintf("unsupported document type %q", doc.MIMEType), nil)
	}
	if len(doc.Bytes) == 0 {
		return form.NewError(form.KindInvalidInput, "process", "document is empty", nil)
	}
	return doc.Profile.Validate()
}
