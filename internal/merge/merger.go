// Package merge writes client profile values into form fields by matching
// field names against a keyword table.
package merge

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/mcp-form-filler/internal/form"
)

// DefaultDateLayout is the Turkish day.month.year format
const DefaultDateLayout = "02.01.2006"

// Merger overwrites field values with profile data
type Merger struct {
	rules      []compiledRule
	now        func() time.Time
	dateLayout string
}

type compiledRule struct {
	keywords  []string
	excludes  []string
	attribute Attribute
}

// Option configures a Merger
type Option func(*Merger)

// WithClock sets the clock used for date fields
func WithClock(now func() time.Time) Option {
	return func(m *Merger) {
		if now != nil {
			m.now = now
		}
	}
}

// WithDateLayout sets the time layout used for date fields
func WithDateLayout(layout string) Option {
	return func(m *Merger) {
		if layout != "" {
			m.dateLayout = layout
		}
	}
}

// WithRules replaces the keyword table
func WithRules(rules []Rule) Option {
	return func(m *Merger) {
		m.rules = compileRules(rules)
	}
}

// New creates a Merger with the default keyword table
func New(opts ...Option) *Merger {
	m := &Merger{
		rules:      compileRules(DefaultRules()),
		now:        time.Now,
		dateLayout: DefaultDateLayout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge returns a copy of fields with profile values substituted. Fields
// whose name matches no rule, or whose attribute is empty in the profile,
// keep their value. Date fields always receive the current date.
func (m *Merger) Merge(fields []form.Field, profile form.Profile) []form.Field {
	out := form.CloneFields(fields)
	given, surname := SplitName(profile.Name)
	today := m.now().Format(m.dateLayout)

	values := map[Attribute]string{
		AttrFullName:  joinName(given, surname),
		AttrGivenName: given,
		AttrSurname:   surname,
		AttrEmail:     strings.TrimSpace(profile.Email),
		AttrAddress:   strings.TrimSpace(profile.Address),
		AttrPhone:     strings.TrimSpace(profile.Phone),
		AttrDate:      today,
	}

	for i := range out {
		attr := m.Match(out[i].Name)
		if attr == AttrNone {
			continue
		}
		if v := values[attr]; v != "" {
			out[i].Value = v
		}
	}
	return out
}

// Match returns the attribute of the first rule matching name
func (m *Merger) Match(name string) Attribute {
	key := foldKey(name)
	if key == "" {
		return AttrNone
	}
	for _, r := range m.rules {
		if hasWordPrefix(key, r.keywords) && !containsAny(key, r.excludes) {
			return r.attribute
		}
	}
	return AttrNone
}

// SplitName splits a free-text name into given name and surname. With two
// or more tokens the last one is the surname; a single token is a given
// name only.
func SplitName(name string) (given, surname string) {
	tokens := strings.Fields(norm.NFC.String(name))
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	default:
		return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1]
	}
}

func joinName(given, surname string) string {
	return strings.TrimSpace(given + " " + surname)
}

func compileRules(rules []Rule) []compiledRule {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		compiled = append(compiled, compiledRule{
			keywords:  foldAll(r.Keywords),
			excludes:  foldAll(r.Excludes),
			attribute: r.Attribute,
		})
	}
	return compiled
}

func foldAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if k := foldKey(w); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// foldKey lower-cases with Turkish rules and then maps dotless ı to i, so
// "ADI", "Adı" and "adi" compare equal and "E-MAIL" still reads as "e-mail".
func foldKey(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	s = cases.Lower(language.Turkish).String(s)
	return strings.ReplaceAll(s, "ı", "i")
}

// hasWordPrefix reports whether a word of s starts with any of prefixes, so
// "ad" matches "Adı" but not "Upload"
func hasWordPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		for from := 0; from < len(s); {
			i := strings.Index(s[from:], p)
			if i < 0 {
				break
			}
			i += from
			if prev, _ := utf8.DecodeLastRuneInString(s[:i]); i == 0 || !isWordRune(prev) {
				return true
			}
			from = i + 1
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
