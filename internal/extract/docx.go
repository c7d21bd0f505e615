package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/a3tai/mcp-form-filler/internal/form"
)

const documentPart = "word/document.xml"

// extractDOCX returns the paragraph text of the main document part, one
// paragraph per line. Tables, headers and images are ignored.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", form.NewError(form.KindExtractionFailed, "extract_docx", "cannot open DOCX container", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", form.NewError(form.KindExtractionFailed, "extract_docx",
			fmt.Sprintf("%s not found", documentPart), nil)
	}

	rc, err := part.Open()
	if err != nil {
		return "", form.NewError(form.KindExtractionFailed, "extract_docx", "cannot read document part", err)
	}
	defer rc.Close()

	text, err := paragraphText(rc)
	if err != nil {
		return "", form.NewError(form.KindExtractionFailed, "extract_docx", "malformed document XML", err)
	}
	return text, nil
}

// paragraphText walks WordprocessingML and collects w:t runs
func paragraphText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		b      strings.Builder
		inText bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return b.String(), nil
}
