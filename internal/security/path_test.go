package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot(t *testing.T) (string, *PathValidator) {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "scans"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "form.pdf"), []byte("%PDF-1.4"), 0o644))
	v, err := NewPathValidator(dir)
	require.NoError(t, err)
	return dir, v
}

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)

	v, err := NewPathValidator("/does/not/exist/yet")
	require.NoError(t, err)
	assert.Equal(t, "/does/not/exist/yet", v.Root())
}

func TestResolve(t *testing.T) {
	dir, v := newRoot(t)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "relative", path: "form.pdf", want: filepath.Join(dir, "form.pdf")},
		{name: "dot relative", path: "./scans/a.png", want: filepath.Join(dir, "scans", "a.png")},
		{name: "absolute inside", path: filepath.Join(dir, "form.pdf"), want: filepath.Join(dir, "form.pdf")},
		{name: "nul bytes dropped", path: "form\x00.pdf", want: filepath.Join(dir, "form.pdf")},
		{name: "empty", path: "", wantErr: true},
		{name: "blank", path: "  ", wantErr: true},
		{name: "traversal", path: "../../etc/passwd", wantErr: true},
		{name: "absolute outside", path: "/etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFile(t *testing.T) {
	dir, v := newRoot(t)

	got, err := v.ResolveFile("form.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "form.pdf"), got)

	_, err = v.ResolveFile("missing.pdf")
	assert.Error(t, err)

	_, err = v.ResolveFile("scans")
	assert.Error(t, err)
}

func TestResolveOutput(t *testing.T) {
	dir, v := newRoot(t)

	got, err := v.ResolveOutput("scans/filled.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scans", "filled.pdf"), got)

	_, err = v.ResolveOutput("nope/filled.pdf")
	assert.Error(t, err)

	_, err = v.ResolveOutput("scans")
	assert.Error(t, err)

	_, err = v.ResolveOutput("../filled.pdf")
	assert.Error(t, err)
}

func TestContains_Symlinks(t *testing.T) {
	dir, v := newRoot(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.pdf"), []byte("x"), 0o644))

	inner := filepath.Join(dir, "inner.pdf")
	escape := filepath.Join(dir, "escape.pdf")
	if err := os.Symlink(filepath.Join(dir, "form.pdf"), inner); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.pdf"), escape))

	ok, err := v.Contains(inner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Contains(escape)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContains_MissingRootAllowsAll(t *testing.T) {
	v, err := NewPathValidator(filepath.Join(t.TempDir(), "later"))
	require.NoError(t, err)

	ok, err := v.Contains("/etc/passwd")
	require.NoError(t, err)
	assert.True(t, ok)
}
