package form

import (
	"fmt"
	"strings"
)

// MIMEType is the declared content type of an incoming document
type MIMEType string

const (
	MIMEPDF  MIMEType = "application/pdf"
	MIMEDOCX MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// MinDetectedFields is the smallest field count accepted from a detection backend
const MinDetectedFields = 4

// IsSupported reports whether the pipeline accepts documents of this type
func (m MIMEType) IsSupported() bool {
	return m == MIMEPDF || m == MIMEDOCX
}

// ParseMIMEType maps a content type string (parameters allowed) to a MIMEType
func ParseMIMEType(s string) (MIMEType, error) {
	base := strings.TrimSpace(strings.ToLower(s))
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	m := MIMEType(base)
	if !m.IsSupported() {
		return "", &Error{
			Kind:    KindUnsupportedFormat,
			Op:      "parse_mime",
			Message: fmt.Sprintf("unsupported document type %q", s),
		}
	}
	return m, nil
}

// Profile is the client record whose attributes are written onto the form
type Profile struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Age     *int   `json:"age,omitempty"`
}

// Validate checks the minimum a profile must carry
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return &Error{Kind: KindInvalidInput, Op: "validate_profile", Message: "client profile must have an email"}
	}
	return nil
}

// Document is one processing request as handed over by the host
type Document struct {
	Name     string
	MIMEType MIMEType
	Bytes    []byte
	Profile  Profile
}

// Field is a named blank region on a form. Coordinates are in points with
// the origin at the top-left corner of the page.
type Field struct {
	Name   string  `json:"name"`
	Value  string  `json:"value"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// InBounds reports whether the field's origin lies on a page of the given size
func (f Field) InBounds(pageWidth, pageHeight float64) bool {
	return f.X >= 0 && f.X < pageWidth && f.Y >= 0 && f.Y < pageHeight
}

// CloneFields returns an independent copy of fields
func CloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// DetectionResult is either a detected field list or a failure reason
type DetectionResult struct {
	Fields []Field
	Reason string
	Cause  error
	failed bool
}

// Detected builds a result from parsed fields. Fewer than MinDetectedFields
// fields turn the result into a failure.
func Detected(fields []Field) DetectionResult {
	if len(fields) < MinDetectedFields {
		return Failed(fmt.Sprintf("only %d fields detected (need %d)", len(fields), MinDetectedFields), nil)
	}
	return DetectionResult{Fields: CloneFields(fields)}
}

// Failed builds a failed detection result
func Failed(reason string, cause error) DetectionResult {
	return DetectionResult{Reason: reason, Cause: cause, failed: true}
}

// OK reports whether the detection was accepted
func (r DetectionResult) OK() bool {
	return !r.failed
}

// Err returns the failure as a DetectionFailed error, or nil
func (r DetectionResult) Err() error {
	if !r.failed {
		return nil
	}
	return &Error{Kind: KindDetectionFailed, Op: "detect", Message: r.Reason, Err: r.Cause}
}
