// Package pdftest builds small single-page PDFs for tests and reads back
// what was drawn on them.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Line is a run of text placed at X, Y in PDF user space (bottom-left origin)
type Line struct {
	X, Y float64
	Text string
}

// A4 returns a single A4 page carrying the given lines in Helvetica
func A4(lines ...Line) []byte {
	return Page(595, 842, lines...)
}

// Page returns a single-page PDF of the given size with a correct xref table.
// Text must be WinAnsi-encodable.
func Page(width, height float64, lines ...Line) []byte {
	var content strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&content, "BT\n/F1 12 Tf\n%.2f %.2f Td\n(%s) Tj\nET\n", l.X, l.Y, escape(l.Text))
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %.2f %.2f] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>", width, height),
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
