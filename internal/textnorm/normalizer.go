// Package textnorm repairs text damaged by scanning, OCR and broken
// encodings, with a focus on Turkish diacritics.
//
// The passes run in a fixed order: NFC composition, the corrupted-sequence
// table, the mis-decoded marker table and finally whitespace
// de-fragmentation. Later passes operate on the output of earlier ones.
//
// De-fragmentation joins runs of single letters separated by spaces
// ("A y ş e" becomes "Ayşe"). Two genuine one-letter words that happen to be
// adjacent are joined as well; that is a known limitation.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxRounds bounds the fixed-point iteration in Normalize
const maxRounds = 5

var hyphenBreak = regexp.MustCompile(`(\pL)-[ \t]*\r?\n[ \t]*(\pL)`)

// Normalize runs every repair pass over text until the output stops
// changing. It never fails and is safe for concurrent use.
func Normalize(text string) string {
	if text == "" {
		return text
	}
	out := text
	for i := 0; i < maxRounds; i++ {
		next := normalizeOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizeOnce(text string) string {
	text = norm.NFC.String(text)
	text = sequenceReplacer.Replace(text)
	text = markerReplacer.Replace(text)
	text = joinSingleLetters(text)
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	return text
}

// joinSingleLetters glues runs of single-letter tokens on each line
func joinSingleLetters(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = joinLine(line)
	}
	return strings.Join(lines, "\n")
}

type segment struct {
	text  string
	space bool
}

func joinLine(line string) string {
	segs := splitSegments(line)
	var b strings.Builder
	b.Grow(len(line))

	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		if seg.space {
			b.WriteString(seg.text)
			continue
		}

		b.WriteString(seg.text)
		cur := classify(seg.text)
		// extend the run while word, space, word keeps qualifying
		for cur.ok && cur.trail == "" && i+2 < len(segs) && segs[i+1].space {
			next := classify(segs[i+2].text)
			if !next.ok || next.lead != "" {
				break
			}
			b.WriteString(segs[i+2].text)
			i += 2
			cur = next
		}
	}
	return b.String()
}

func splitSegments(line string) []segment {
	var segs []segment
	start := 0
	inSpace := false
	for idx, r := range line {
		isSpace := r == ' ' || r == '\t' || r == '\r'
		if idx == 0 {
			inSpace = isSpace
			continue
		}
		if isSpace != inSpace {
			segs = append(segs, segment{text: line[start:idx], space: inSpace})
			start = idx
			inSpace = isSpace
		}
	}
	if start < len(line) {
		segs = append(segs, segment{text: line[start:], space: inSpace})
	}
	return segs
}

type letterToken struct {
	lead  string
	trail string
	ok    bool
}

// classify reports whether tok is exactly one letter, optionally wrapped
// in punctuation
func classify(tok string) letterToken {
	runes := []rune(tok)
	letterAt := -1
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r):
			if letterAt >= 0 {
				return letterToken{}
			}
			letterAt = i
		case unicode.IsPunct(r):
		default:
			return letterToken{}
		}
	}
	if letterAt < 0 {
		return letterToken{}
	}
	return letterToken{
		lead:  string(runes[:letterAt]),
		trail: string(runes[letterAt+1:]),
		ok:    true,
	}
}
