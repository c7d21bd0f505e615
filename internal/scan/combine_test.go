package scan

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	api.DisableConfigDir()
	os.Exit(m.Run())
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pageCount(t *testing.T, pdf []byte) int {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(pdf), conf)
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())
	return ctx.PageCount
}

func TestCombine(t *testing.T) {
	pdf, err := Combine([][]byte{pngImage(t, 40, 60), pngImage(t, 60, 40)})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Equal(t, 2, pageCount(t, pdf))
}

func TestCombine_Errors(t *testing.T) {
	_, err := Combine(nil)
	assert.Error(t, err)

	_, err = Combine([][]byte{[]byte("plain text is not an image")})
	assert.Error(t, err)
}

func TestCombineFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"page1.png", "page2.png", "page3.png"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, pngImage(t, 30, 30), 0o644))
		paths = append(paths, p)
	}
	out := filepath.Join(dir, "combined.pdf")

	res, err := CombineFiles(paths, out)
	require.NoError(t, err)
	assert.Equal(t, out, res.OutputPath)
	assert.Equal(t, 3, res.Pages)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, 3, pageCount(t, data))

	_, err = CombineFiles([]string{filepath.Join(dir, "missing.png")}, out)
	assert.Error(t, err)
	_, err = CombineFiles(paths, "")
	assert.Error(t, err)
}
