// Package detect locates form fields by asking an LLM backend for a JSON
// list of field boxes.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/a3tai/mcp-form-filler/internal/form"
)

const (
	DefaultTimeout = 45 * time.Second
	DefaultDPI     = 144
	rawLogPrefix   = 200
)

// Capability is what a backend can look at
type Capability int

const (
	CapabilityVision Capability = iota
	CapabilityText
)

// String returns a string representation of the Capability
func (c Capability) String() string {
	switch c {
	case CapabilityVision:
		return "vision"
	case CapabilityText:
		return "text"
	default:
		return "unknown"
	}
}

// Prompt is one request to a backend. Vision backends read Image, text
// backends read Text.
type Prompt struct {
	Instruction string
	Text        string
	Image       []byte
	ImageMIME   string
}

// Backend sends a prompt to one provider and returns the model's reply text
type Backend interface {
	Name() string
	Capability() Capability
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Options tunes a Detector
type Options struct {
	// Timeout bounds the whole detection call, retries included
	Timeout time.Duration
	// Retries is the number of extra attempts on transient provider errors
	Retries int
	// Interval is the minimum time between provider calls; zero disables pacing
	Interval time.Duration
	// DPI is the rasterization resolution for vision backends
	DPI float64
}

// Detector runs field detection against one backend
type Detector struct {
	backend Backend
	raster  Rasterizer
	limiter *rate.Limiter
	opts    Options
}

// NewDetector creates a detector. raster may be nil for text backends.
func NewDetector(backend Backend, raster Rasterizer, opts Options) *Detector {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Interval), 1)
	}

	return &Detector{
		backend: backend,
		raster:  raster,
		limiter: limiter,
		opts:    opts,
	}
}

// Backend returns the configured backend
func (d *Detector) Backend() Backend {
	return d.backend
}

// Detect asks the backend for the fields on the first page of doc. It never
// returns an error: every failure, including a timeout or an answer with too
// few fields, comes back as a failed DetectionResult.
func (d *Detector) Detect(ctx context.Context, doc []byte, mime form.MIMEType, text string) form.DetectionResult {
	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	prompt, scale, err := d.buildPrompt(doc, mime, text)
	if err != nil {
		return d.fail("prepare", err, "")
	}

	raw, err := d.complete(ctx, prompt)
	if err != nil {
		cause := "request"
		if errors.Is(err, context.DeadlineExceeded) {
			cause = "timeout"
		}
		return d.fail(cause, err, "")
	}

	fields, err := ParseFields(raw)
	if err != nil {
		return d.fail("parse", err, raw)
	}

	res := form.Detected(scaleFields(fields, scale))
	if !res.OK() {
		log.Printf("detect: provider=%s cause=too_few_fields reason=%q raw=%q",
			d.backend.Name(), res.Reason, prefix(raw, rawLogPrefix))
		return res
	}

	log.Printf("detect: provider=%s fields=%d", d.backend.Name(), len(res.Fields))
	return res
}

// buildPrompt prepares the request and returns the factor that converts the
// backend's coordinates into points
func (d *Detector) buildPrompt(doc []byte, mime form.MIMEType, text string) (Prompt, float64, error) {
	switch d.backend.Capability() {
	case CapabilityVision:
		if mime != form.MIMEPDF {
			return Prompt{}, 0, fmt.Errorf("vision backends need a PDF page, got %s", mime)
		}
		if d.raster == nil {
			return Prompt{}, 0, fmt.Errorf("no rasterizer configured")
		}
		img, err := d.raster.Rasterize(doc, d.opts.DPI)
		if err != nil {
			return Prompt{}, 0, fmt.Errorf("failed to rasterize first page: %w", err)
		}
		return Prompt{
			Instruction: VisionInstruction(img.Width, img.Height),
			Image:       img.Data,
			ImageMIME:   img.MIMEType,
		}, 72 / img.DPI, nil

	case CapabilityText:
		if text == "" {
			return Prompt{}, 0, fmt.Errorf("document has no text layer")
		}
		return Prompt{
			Instruction: TextInstruction(),
			Text:        text,
		}, 1, nil

	default:
		return Prompt{}, 0, fmt.Errorf("unknown backend capability %d", d.backend.Capability())
	}
}

func (d *Detector) fail(cause string, err error, raw string) form.DetectionResult {
	log.Printf("detect: provider=%s cause=%s error=%v raw=%q",
		d.backend.Name(), cause, err, prefix(raw, rawLogPrefix))
	return form.Failed(cause+": "+err.Error(), err)
}

func scaleFields(fields []form.Field, scale float64) []form.Field {
	if scale == 1 {
		return fields
	}
	out := make([]form.Field, len(fields))
	for i, f := range fields {
		f.X *= scale
		f.Y *= scale
		f.Width *= scale
		f.Height *= scale
		out[i] = f
	}
	return out
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
