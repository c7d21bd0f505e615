package form

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMIMEType sniffs the content of a document the host received
// without a trustworthy content type
func DetectMIMEType(data []byte) (MIMEType, error) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		switch MIMEType(m.String()) {
		case MIMEPDF:
			return MIMEPDF, nil
		case MIMEDOCX:
			return MIMEDOCX, nil
		}
	}
	return "", &Error{
		Kind:    KindUnsupportedFormat,
		Op:      "detect_mime",
		Message: fmt.Sprintf("unsupported document type %s", mt.String()),
	}
}

// DetectImageType reports whether data is a JPEG or PNG page image, the
// formats every vision provider accepts
func DetectImageType(data []byte) (string, bool) {
	mt := mimetype.Detect(data)
	if mimetype.EqualsAny(mt.String(), "image/jpeg", "image/png") {
		return mt.String(), true
	}
	return "", false
}
