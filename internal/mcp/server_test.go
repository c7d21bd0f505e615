package mcp

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-form-filler/internal/config"
	"github.com/a3tai/mcp-form-filler/internal/descriptions"
	"github.com/a3tai/mcp-form-filler/internal/pdftest"
	"github.com/a3tai/mcp-form-filler/internal/pipeline"
	"github.com/a3tai/mcp-form-filler/internal/render"
)

func TestMain(m *testing.M) {
	api.DisableConfigDir()
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Directory = dir
	cfg.ServerName = "test-server"

	svc, err := pipeline.Build(cfg)
	require.NoError(t, err)
	s, err := NewServer(cfg, svc)
	require.NoError(t, err)

	form := pdftest.A4(pdftest.Line{X: 72, Y: 760, Text: "Basvuru Formu"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "form.pdf"), form, 0o644))
	return s, dir
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			return tc.Text
		}
		if tc, ok := content.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(config.DefaultConfig(), nil)
	assert.Error(t, err)

	s, dir := newTestServer(t)
	assert.NotNil(t, s.mcpServer)
	assert.Equal(t, dir, s.paths.Root())
}

func TestHandleFormFill(t *testing.T) {
	s, dir := newTestServer(t)

	result, err := s.handleFormFill(context.Background(), callRequest(map[string]interface{}{
		"path":    "form.pdf",
		"email":   "ayse@example.com",
		"name":    "Ayşe Yılmaz",
		"address": "İstanbul",
		"age":     float64(34),
	}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	require.False(t, result.IsError, text)

	out := filepath.Join(dir, "form_filled.pdf")
	assert.Contains(t, text, "Filled form written to: "+out)
	assert.Contains(t, text, `from template "default"`)
	assert.Contains(t, text, "Adı = Ayşe")
	assert.Contains(t, text, "Soyadı = Yılmaz")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	dim, err := render.PageSize(data)
	require.NoError(t, err)
	assert.Equal(t, render.Dim{Width: 595, Height: 842}, dim)
}

func TestHandleFormFill_Errors(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain text notes"), 0o644))

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{"missing path", map[string]interface{}{"email": "a@b.c"}, "path"},
		{"missing email", map[string]interface{}{"path": "form.pdf"}, "email"},
		{"outside directory", map[string]interface{}{"path": "../form.pdf", "email": "a@b.c"}, "outside"},
		{"missing file", map[string]interface{}{"path": "nope.pdf", "email": "a@b.c"}, "cannot access file"},
		{"unsupported type", map[string]interface{}{"path": "notes.txt", "email": "a@b.c"}, "not supported"},
		{"overwrite source", map[string]interface{}{"path": "form.pdf", "email": "a@b.c", "output": "form.pdf"}, "overwrite"},
		{"output outside", map[string]interface{}{"path": "form.pdf", "email": "a@b.c", "output": "/tmp/x.pdf"}, "outside"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleFormFill(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.wantErr)
		})
	}
}

func TestHandleFormFill_FileTooLarge(t *testing.T) {
	s, _ := newTestServer(t)
	s.config.MaxFileSize = 16

	result, err := s.handleFormFill(context.Background(), callRequest(map[string]interface{}{
		"path": "form.pdf", "email": "a@b.c",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "file too large")
}

func TestHandleFormDetectFields(t *testing.T) {
	s, dir := newTestServer(t)

	result, err := s.handleFormDetectFields(context.Background(), callRequest(map[string]interface{}{
		"path":  filepath.Join(dir, "form.pdf"),
		"email": "ayse@example.com",
		"name":  "Ayşe Yılmaz",
	}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	require.False(t, result.IsError, text)

	assert.Contains(t, text, "E-posta = ayse@example.com")
	assert.Contains(t, text, "Adres = (empty)")
	assert.Contains(t, text, "Detection: no detection backend configured")

	_, err = os.Stat(filepath.Join(dir, "form_filled.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestHandleFormExtractText(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleFormExtractText(context.Background(), callRequest(map[string]interface{}{"path": "form.pdf"}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "Type: application/pdf")
	assert.Contains(t, text, "Basvuru Formu")

	result, err = s.handleFormExtractText(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleFormExtractText_Scans(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.pdf"), pdftest.A4(), 0o644))
	pngFile(t, filepath.Join(dir, "page1.png"))

	// a PDF without a text layer explains why nothing came back
	result, err := s.handleFormExtractText(context.Background(), callRequest(map[string]interface{}{"path": "scan.pdf"}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "Source: text_layer")
	assert.Contains(t, text, "Characters: 0")
	assert.Contains(t, text, "no vision provider is configured")

	// images need a vision provider
	result, err = s.handleFormExtractText(context.Background(), callRequest(map[string]interface{}{"path": "page1.png"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "vision provider")
}

func TestHandleFormNormalizeText(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleFormNormalizeText(context.Background(), callRequest(map[string]interface{}{
		"text": "KadÄ±kÃ¶y",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Kadıköy", extractTextFromResult(result))
}

func TestHandleFormTemplates(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleFormTemplates(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "default (fallback)")

	result, err = s.handleFormTemplates(context.Background(), callRequest(map[string]interface{}{"id": "DEFAULT"}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "Template: default")
	assert.Contains(t, text, "1. Tarih = (empty)")
	assert.Contains(t, text, "Position: x=450 y=120")

	result, err = s.handleFormTemplates(context.Background(), callRequest(map[string]interface{}{"id": "bank"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func pngFile(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 48))
	img.Set(4, 4, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestHandleScanImagesToPDF(t *testing.T) {
	s, dir := newTestServer(t)
	pngFile(t, filepath.Join(dir, "scan1.png"))
	pngFile(t, filepath.Join(dir, "scan2.png"))

	result, err := s.handleScanImagesToPDF(context.Background(), callRequest(map[string]interface{}{
		"paths":  []interface{}{"scan1.png", "scan2.png"},
		"output": "scans.pdf",
	}))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	require.False(t, result.IsError, text)
	assert.Contains(t, text, "Combined 2 image(s)")

	_, err = os.Stat(filepath.Join(dir, "scans.pdf"))
	assert.NoError(t, err)
}

func TestHandleScanImagesToPDF_Errors(t *testing.T) {
	s, dir := newTestServer(t)
	pngFile(t, filepath.Join(dir, "scan1.png"))

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing paths", map[string]interface{}{"output": "out.pdf"}},
		{"empty paths", map[string]interface{}{"paths": []interface{}{}, "output": "out.pdf"}},
		{"not strings", map[string]interface{}{"paths": []interface{}{1}, "output": "out.pdf"}},
		{"missing output", map[string]interface{}{"paths": []interface{}{"scan1.png"}}},
		{"image outside", map[string]interface{}{"paths": []interface{}{"/etc/hostname"}, "output": "out.pdf"}},
		{"not an image", map[string]interface{}{"paths": []interface{}{"form.pdf"}, "output": "out.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleScanImagesToPDF(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}

func TestHandleFormServerInfo(t *testing.T) {
	s, dir := newTestServer(t)

	result, err := s.handleFormServerInfo(context.Background(), callRequest(nil))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "test-server v1.0.0")
	assert.Contains(t, text, "Directory: "+dir)
	assert.Contains(t, text, "Detection Provider: none")
	for _, tool := range []string{ToolFormFill, ToolFormDetectFields, ToolFormExtractText, ToolScanImagesToPDF} {
		assert.Contains(t, text, tool)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun_ServerModeStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	s.config.Mode = config.ModeServer
	s.config.Host = "127.0.0.1"
	s.config.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// wait until the SSE endpoint accepts connections
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(s.config.Port))
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestToolsAreDescribed(t *testing.T) {
	for _, name := range []string{
		ToolFormFill, ToolFormDetectFields, ToolFormExtractText, ToolFormNormalizeText,
		ToolFormTemplates, ToolScanImagesToPDF, ToolFormServerInfo,
	} {
		assert.NotEqual(t, "Tool description not available", descriptions.GetToolDescription(name), name)
	}
}
