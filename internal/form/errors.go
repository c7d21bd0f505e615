package form

import "fmt"

// ErrorKind categorizes pipeline failures
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidInput
	KindUnsupportedFormat
	KindExtractionFailed
	KindDetectionFailed
	KindPDFLoad
	KindFontEmbed
	KindRender
)

// String returns a string representation of the ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindUnsupportedFormat:
		return "UNSUPPORTED_FORMAT"
	case KindExtractionFailed:
		return "EXTRACTION_FAILED"
	case KindDetectionFailed:
		return "DETECTION_FAILED"
	case KindPDFLoad:
		return "PDF_LOAD_ERROR"
	case KindFontEmbed:
		return "FONT_EMBED_ERROR"
	case KindRender:
		return "RENDER_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the error type surfaced by every pipeline stage
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "operation failed"
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can compare against the
// sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// UserMessage is the message suitable for showing to an end user
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindInvalidInput:
		return "The request is missing required client information."
	case KindUnsupportedFormat:
		return "This document type is not supported. Please upload a PDF or DOCX file."
	case KindExtractionFailed:
		return "The document could not be read."
	case KindPDFLoad:
		return "The document is not a valid PDF."
	case KindFontEmbed:
		return "No usable font was available to write on the document."
	case KindRender:
		return "The filled document could not be produced."
	default:
		return "The document could not be processed."
	}
}

// Sentinels for errors.Is comparisons
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrExtractionFailed  = &Error{Kind: KindExtractionFailed}
	ErrDetectionFailed   = &Error{Kind: KindDetectionFailed}
	ErrPDFLoad           = &Error{Kind: KindPDFLoad}
	ErrFontEmbed         = &Error{Kind: KindFontEmbed}
	ErrRender            = &Error{Kind: KindRender}
)

// NewError creates a new pipeline error
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}
