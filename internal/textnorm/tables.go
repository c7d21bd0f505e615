package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// turkishLetters are the letters the repair tables restore
const turkishLetters = "çÇğĞıİöÖşŞüÜ"

// diacritic pairs a combining mark with the spacing form scanners emit
type diacritic struct {
	combining rune
	spacing   []rune
}

var (
	breve     = diacritic{combining: '\u0306', spacing: []rune{'\u02d8'}}
	diaeresis = diacritic{combining: '\u0308', spacing: []rune{'\u00a8'}}
	cedilla   = diacritic{combining: '\u0327', spacing: []rune{'\u00b8'}}
	dotAbove  = diacritic{combining: '\u0307', spacing: []rune{'\u02d9'}}
)

// decomposed lists each Turkish letter as base letter plus diacritic
var decomposed = []struct {
	base   rune
	mark   diacritic
	letter rune
}{
	{'g', breve, 'ğ'}, {'G', breve, 'Ğ'},
	{'u', diaeresis, 'ü'}, {'U', diaeresis, 'Ü'},
	{'o', diaeresis, 'ö'}, {'O', diaeresis, 'Ö'},
	{'s', cedilla, 'ş'}, {'S', cedilla, 'Ş'},
	{'c', cedilla, 'ç'}, {'C', cedilla, 'Ç'},
	{'I', dotAbove, 'İ'},
}

// extraSequences are fixed corruptions that do not follow the base+mark shape
var extraSequences = [][2]string{
	{"i\u0307", "i"}, // lower-cased İ under non-Turkish rules
	{"\u0131\u0307", "i"},
}

var (
	sequenceReplacer = strings.NewReplacer(buildSequenceTable()...)
	markerReplacer   = strings.NewReplacer(buildMarkerTable()...)
)

// buildSequenceTable returns old/new pairs for strings.NewReplacer. Spaced
// variants come first so they win over the glued ones at the same position.
func buildSequenceTable() []string {
	var spaced, glued []string
	for _, d := range decomposed {
		letter := string(d.letter)
		base := string(d.base)
		comb := string(d.mark.combining)

		spaced = append(spaced, base+" "+comb, letter)
		glued = append(glued, base+comb, letter)
		for _, s := range d.mark.spacing {
			sp := string(s)
			spaced = append(spaced,
				base+" "+sp, letter,
				sp+" "+base, letter,
			)
			glued = append(glued,
				base+sp, letter,
				sp+base, letter,
			)
		}
	}
	table := append(spaced, glued...)
	for _, pair := range extraSequences {
		table = append(table, pair[0], pair[1])
	}
	return table
}

// buildMarkerTable derives the mis-decoded markers from the code pages that
// produce them. Two families are covered: UTF-8 bytes read as a single-byte
// Western or Turkish code page ("ÅŸ" for "ş"), and Windows-1254 bytes shown
// through code page 437, where only the box-drawing look-alikes are kept.
func buildMarkerTable() []string {
	seen := make(map[string]bool)
	var table []string
	add := func(marker string, letter rune) {
		if marker == "" || marker == string(letter) || seen[marker] {
			return
		}
		seen[marker] = true
		table = append(table, marker, string(letter))
	}

	utf8Readers := []encoding.Encoding{charmap.Windows1252, charmap.Windows1254, charmap.ISO8859_1}
	for _, letter := range turkishLetters {
		raw := []byte(string(letter))
		for _, enc := range utf8Readers {
			decoded, err := enc.NewDecoder().Bytes(raw)
			if err != nil || strings.ContainsRune(string(decoded), unicode.ReplacementChar) {
				continue
			}
			add(string(decoded), letter)
		}
	}

	for _, letter := range turkishLetters {
		b, ok := charmap.Windows1254.EncodeRune(letter)
		if !ok {
			continue
		}
		shown := charmap.CodePage437.DecodeByte(b)
		if isBoxLike(shown) {
			add(string(shown), letter)
		}
	}
	return table
}

// isBoxLike reports whether r is a box-drawing, block, geometric shape or
// similar glyph that never appears in ordinary Turkish prose
func isBoxLike(r rune) bool {
	switch {
	case r >= '\u2500' && r <= '\u25ff':
		return true
	case r == '≡', r == 'ⁿ':
		return true
	}
	return false
}
