package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/golang/freetype/truetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackFont is the built-in font used when no TrueType font is usable
const FallbackFont = "Helvetica"

// pdfcpu keeps user fonts in a process-wide registry, so installs are
// serialized and remembered per file.
var (
	installMu sync.Mutex
	installed = map[string]string{}
)

// fontName returns the PostScript name pdfcpu registers a TrueType file under
func fontName(data []byte) (string, error) {
	f, err := truetype.Parse(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse TrueType font: %w", err)
	}
	name := strings.TrimSpace(f.Name(truetype.NameIDPostscriptName))
	if name == "" {
		return "", fmt.Errorf("font has no PostScript name")
	}
	return name, nil
}

// installFont makes the TrueType font at path available to pdfcpu and
// returns its name. cacheDir receives pdfcpu's converted font metrics.
func installFont(path, cacheDir string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve font path: %w", err)
	}

	installMu.Lock()
	defer installMu.Unlock()

	if name, ok := installed[abs]; ok {
		return name, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read font: %w", err)
	}
	name, err := fontName(data)
	if err != nil {
		return "", err
	}

	if !font.SupportedFont(name) {
		if cacheDir == "" {
			cacheDir = filepath.Join(os.TempDir(), "form-filler-fonts")
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create font cache dir: %w", err)
		}
		font.UserFontDir = cacheDir
		if err := api.InstallFonts([]string{abs}); err != nil {
			return "", fmt.Errorf("failed to install font: %w", err)
		}
		if err := font.LoadUserFonts(); err != nil {
			return "", fmt.Errorf("failed to load installed fonts: %w", err)
		}
		if !font.SupportedFont(name) {
			return "", fmt.Errorf("font %s not available after install", name)
		}
	}

	installed[abs] = name
	return name, nil
}

// turkishFold maps letters missing from WinAnsi to their closest ASCII form
var turkishFold = strings.NewReplacer(
	"ğ", "g", "Ğ", "G",
	"ş", "s", "Ş", "S",
	"ı", "i", "İ", "I",
)

// FoldForFallback rewrites text so every rune is encodable in WinAnsi,
// which is all the built-in fonts can show. It reports whether anything
// was lost.
func FoldForFallback(text string) (string, bool) {
	if encodable(text) {
		return text, false
	}

	out := turkishFold.Replace(text)
	if !encodable(out) {
		// strip remaining combining marks, then replace what is left
		stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), out)
		if err == nil {
			out = stripped
		}
		out = strings.Map(func(r rune) rune {
			if _, ok := charmap.Windows1252.EncodeRune(r); ok {
				return r
			}
			return '?'
		}, out)
	}
	return out, true
}

func encodable(s string) bool {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}
