package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-filler/internal/extract"
	"github.com/a3tai/mcp-form-filler/internal/form"
	"github.com/a3tai/mcp-form-filler/internal/layout"
	"github.com/a3tai/mcp-form-filler/internal/merge"
	"github.com/a3tai/mcp-form-filler/internal/pdftest"
	"github.com/a3tai/mcp-form-filler/internal/render"
)

func TestMain(m *testing.M) {
	api.DisableConfigDir()
	os.Exit(m.Run())
}

type fakeDetector struct {
	result form.DetectionResult
	calls  int
	mime   form.MIMEType
	text   string
}

func (f *fakeDetector) Detect(_ context.Context, _ []byte, mime form.MIMEType, text string) form.DetectionResult {
	f.calls++
	f.mime = mime
	f.text = text
	return f.result
}

type failingRenderer struct{ err error }

func (f failingRenderer) Render([]byte, []form.Field) (*render.Output, error) {
	return nil, f.err
}

var fixedNow = time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, det FieldDetector) *Service {
	t.Helper()
	svc, err := NewService(Dependencies{
		Extractor: extract.NewExtractor(0),
		Detector:  det,
		Merger:    merge.New(merge.WithClock(func() time.Time { return fixedNow })),
		Templates: layout.NewRegistry(),
		Renderer:  render.NewRenderer(render.Options{}),
	})
	require.NoError(t, err)
	return svc
}

func ayse() form.Profile {
	return form.Profile{Name: "Ayşe Yılmaz", Email: "ayse@example.com", Address: "İstanbul"}
}

func pdfDoc(p form.Profile) form.Document {
	return form.Document{
		Name:     "basvuru.pdf",
		MIMEType: form.MIMEPDF,
		Bytes:    pdftest.A4(pdftest.Line{X: 72, Y: 760, Text: "Basvuru Formu"}),
		Profile:  p,
	}
}

func docx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body bytes.Buffer
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", p)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = fmt.Fprintf(w, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>%s</w:body></w:document>`, body.String())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func placementByField(drawn []render.Placement) map[string]render.Placement {
	out := make(map[string]render.Placement, len(drawn))
	for _, p := range drawn {
		out[p.Field] = p
	}
	return out
}

func TestProcess_DetectionFailureUsesDefaultLayout(t *testing.T) {
	det := &fakeDetector{result: form.Failed("provider timed out", context.DeadlineExceeded)}
	svc := newService(t, det)

	res, err := svc.Process(context.Background(), pdfDoc(ayse()))
	require.NoError(t, err)

	assert.Equal(t, 1, det.calls)
	assert.Equal(t, SourceDefaultLayout, res.Source)
	assert.Equal(t, layout.DefaultTemplateID, res.TemplateID)
	assert.Equal(t, "provider timed out", res.DetectionReason)
	assert.Equal(t, form.MIMEPDF, res.MIMEType)
	assert.Equal(t, "basvuru.pdf", res.SourceName)
	assert.NotEmpty(t, res.RequestID)
	assert.NotEmpty(t, res.Bytes)
	assert.Empty(t, res.Skipped)

	require.Len(t, res.Drawn, 5)
	drawn := placementByField(res.Drawn)
	want := map[string]struct {
		text string
		x, y float64
	}{
		"Tarih":   {"07.03.2025", 450, 120},
		"Adı":     {"Ayşe", 150, 200},
		"Soyadı":  {"Yılmaz", 150, 230},
		"E-posta": {"ayse@example.com", 150, 260},
		"Adres":   {"İstanbul", 150, 290},
	}
	for name, w := range want {
		p, ok := drawn[name]
		require.True(t, ok, "field %s not drawn", name)
		assert.Equal(t, w.text, p.Text, name)
		assert.Equal(t, w.x, p.X, name)
		assert.Equal(t, 842-w.y-render.VerticalOffset, p.Y, name)
	}

	dim, err := render.PageSize(res.Bytes)
	require.NoError(t, err)
	assert.Equal(t, render.Dim{Width: 595, Height: 842}, dim)

	// the document itself carries the five draws
	content, err := pdftest.ReadContent(res.Bytes)
	require.NoError(t, err)
	assert.Equal(t, 5, content.Drawn())
	for _, text := range []string{"07.03.2025", "Ayse", "Yilmaz", "ayse@example.com", "Istanbul"} {
		assert.True(t, content.Shows(text), "text %q not drawn", text)
	}
	for name, w := range want {
		assert.Contains(t, content.Page, stampAt(w.x, 842-w.y-render.VerticalOffset), name)
	}
}

// stampAt is the translation pdfcpu writes for a Helvetica stamp whose
// baseline is at x, y
func stampAt(x, y float64) string {
	return fmt.Sprintf("%.5f %.5f cm", x, render.StampOrigin(render.FallbackFont, render.DefaultFontSize, y))
}

func detectedSix() []form.Field {
	return []form.Field{
		{Name: "Firma", Value: "Acme Ltd", X: 100, Y: 100, Width: 200, Height: 20},
		{Name: "Vergi No", Value: "1234567890", X: 100, Y: 130, Width: 200, Height: 20},
		{Name: "Unvan", Value: "Muhasebe", X: 100, Y: 160, Width: 200, Height: 20},
		{Name: "E-Mail", Value: "old@example.com", X: 100, Y: 190, Width: 200, Height: 20},
		{Name: "Meslek", Value: "Mühendis", X: 100, Y: 220, Width: 200, Height: 20},
		{Name: "Şehir", Value: "Ankara", X: 100, Y: 250, Width: 200, Height: 20},
	}
}

func TestProcess_DetectedFieldsOnlyMatchingFieldChanges(t *testing.T) {
	fields := detectedSix()
	det := &fakeDetector{result: form.Detected(fields)}
	svc := newService(t, det)

	res, err := svc.Process(context.Background(), pdfDoc(ayse()))
	require.NoError(t, err)

	assert.Equal(t, SourceDetected, res.Source)
	assert.Empty(t, res.TemplateID)
	require.Len(t, res.Fields, 6)
	for i, f := range res.Fields {
		if f.Name == "E-Mail" {
			assert.Equal(t, "ayse@example.com", f.Value)
			continue
		}
		assert.Equal(t, fields[i], f)
	}
	assert.Len(t, res.Drawn, 6)

	// the detector's slice is untouched
	assert.Equal(t, "old@example.com", det.result.Fields[3].Value)
}

func TestProcess_TooFewDetectedFieldsFallsBack(t *testing.T) {
	det := &fakeDetector{result: form.Detected(detectedSix()[:3])}
	svc := newService(t, det)

	res, err := svc.Process(context.Background(), pdfDoc(ayse()))
	require.NoError(t, err)

	assert.Equal(t, SourceDefaultLayout, res.Source)
	require.Len(t, res.Fields, 5)
	for _, f := range res.Fields {
		assert.NotEqual(t, "Firma", f.Name)
		assert.NotEqual(t, "E-Mail", f.Name)
	}
	assert.Contains(t, res.DetectionReason, "only 3 fields")
}

func TestProcess_EmptyValuesAreNotDrawn(t *testing.T) {
	// no address and a single-token name: Soyadı and Adres stay empty
	svc := newService(t, nil)
	res, err := svc.Process(context.Background(), pdfDoc(form.Profile{Name: "Ayşe", Email: "ayse@example.com"}))
	require.NoError(t, err)

	drawn := placementByField(res.Drawn)
	assert.Len(t, drawn, 3)
	assert.NotContains(t, drawn, "Soyadı")
	assert.NotContains(t, drawn, "Adres")
	for _, p := range res.Drawn {
		assert.NotEqual(t, 842-230-render.VerticalOffset, p.Y)
		assert.NotEqual(t, 842-290-render.VerticalOffset, p.Y)
	}
	assert.ElementsMatch(t, []render.Skipped{
		{Field: "Soyadı", Reason: render.SkipEmpty},
		{Field: "Adres", Reason: render.SkipEmpty},
	}, res.Skipped)

	content, err := pdftest.ReadContent(res.Bytes)
	require.NoError(t, err)
	assert.Equal(t, 3, content.Drawn())
	assert.Contains(t, content.Page, stampAt(150, 842-200-render.VerticalOffset))
	assert.NotContains(t, content.Page, stampAt(150, 842-230-render.VerticalOffset))
	assert.NotContains(t, content.Page, stampAt(150, 842-290-render.VerticalOffset))
}

func TestProcess_TemplateOverride(t *testing.T) {
	reg := layout.NewRegistry()
	require.NoError(t, reg.Register("Short", []form.Field{
		{Name: "E-posta", X: 50, Y: 50, Width: 100, Height: 20},
	}))
	svc, err := NewService(Dependencies{
		Extractor: extract.NewExtractor(0),
		Merger:    merge.New(),
		Templates: reg,
		Renderer:  render.NewRenderer(render.Options{}),
	})
	require.NoError(t, err)

	res, err := svc.Process(context.Background(), pdfDoc(ayse()), WithTemplate("SHORT"))
	require.NoError(t, err)
	assert.Equal(t, "short", res.TemplateID)
	require.Len(t, res.Drawn, 1)
	assert.Equal(t, "ayse@example.com", res.Drawn[0].Text)

	res, err = svc.Process(context.Background(), pdfDoc(ayse()), WithTemplate("missing"))
	require.NoError(t, err)
	assert.Equal(t, layout.DefaultTemplateID, res.TemplateID)
}

func TestProcess_Errors(t *testing.T) {
	svc := newService(t, &fakeDetector{result: form.Detected(detectedSix())})

	tests := []struct {
		name string
		doc  form.Document
		want error
	}{
		{
			name: "missing email",
			doc:  pdfDoc(form.Profile{Name: "Ayşe Yılmaz"}),
			want: form.ErrInvalidInput,
		},
		{
			name: "unsupported type",
			doc:  form.Document{MIMEType: "image/png", Bytes: []byte{1}, Profile: ayse()},
			want: form.ErrUnsupportedFormat,
		},
		{
			name: "docx cannot be rendered",
			doc:  form.Document{MIMEType: form.MIMEDOCX, Bytes: []byte("PK"), Profile: ayse()},
			want: form.ErrUnsupportedFormat,
		},
		{
			name: "empty document",
			doc:  form.Document{MIMEType: form.MIMEPDF, Profile: ayse()},
			want: form.ErrInvalidInput,
		},
		{
			name: "unreadable pdf",
			doc:  form.Document{MIMEType: form.MIMEPDF, Bytes: []byte("%PDF-1.4 broken"), Profile: ayse()},
			want: form.ErrExtractionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Process(context.Background(), tt.doc)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestProcess_RenderErrorAborts(t *testing.T) {
	svc, err := NewService(Dependencies{
		Extractor: extract.NewExtractor(0),
		Merger:    merge.New(),
		Templates: layout.NewRegistry(),
		Renderer:  failingRenderer{err: form.NewError(form.KindFontEmbed, "render", "no font", nil)},
	})
	require.NoError(t, err)

	res, err := svc.Process(context.Background(), pdfDoc(ayse()))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, form.ErrFontEmbed))
}

func TestAnalyze(t *testing.T) {
	det := &fakeDetector{result: form.Detected(detectedSix())}
	svc := newService(t, det)

	res, err := svc.Analyze(context.Background(), pdfDoc(ayse()))
	require.NoError(t, err)
	assert.Nil(t, res.Bytes)
	assert.Empty(t, res.Drawn)
	assert.Equal(t, SourceDetected, res.Source)
	assert.Contains(t, det.text, "Basvuru Formu")
	assert.Equal(t, form.MIMEPDF, det.mime)
}

func TestAnalyze_DOCX(t *testing.T) {
	det := &fakeDetector{result: form.Failed("vision backends need a PDF page", nil)}
	svc := newService(t, det)

	res, err := svc.Analyze(context.Background(), form.Document{
		Name:     "form.docx",
		MIMEType: form.MIMEDOCX,
		Bytes:    docx(t, "Adı:", "Soyadı:"),
		Profile:  ayse(),
	})
	require.NoError(t, err)
	assert.Equal(t, form.MIMEDOCX, det.mime)
	assert.Equal(t, "Adı:\nSoyadı:", det.text)
	assert.Equal(t, SourceDefaultLayout, res.Source)
	assert.Equal(t, form.MIMEDOCX, res.MIMEType)
	assert.Len(t, res.Fields, 5)
}

func TestNewService_RequiresStages(t *testing.T) {
	_, err := NewService(Dependencies{})
	assert.Error(t, err)
}

func TestProcess_RequestID(t *testing.T) {
	svc := newService(t, nil)

	res, err := svc.Analyze(context.Background(), pdfDoc(ayse()), WithRequestID("req-42"))
	require.NoError(t, err)
	assert.Equal(t, "req-42", res.RequestID)

	a, err := svc.Analyze(context.Background(), pdfDoc(ayse()))
	require.NoError(t, err)
	b, err := svc.Analyze(context.Background(), pdfDoc(ayse()))
	require.NoError(t, err)
	assert.NotEqual(t, a.RequestID, b.RequestID)
}
