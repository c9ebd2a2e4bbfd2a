// Package reference extracts file references from markup and script source
// text with a lexical scan.
package reference

import (
	"regexp"
)

// Kind is the language family a document belongs to.
type Kind int

// Language families.
const (
	// KindMarkup covers HTML and PHP documents.
	KindMarkup Kind = iota
	// KindScript covers JavaScript and TypeScript documents, including JSX/TSX.
	KindScript
)

// String returns the lower-case family name.
func (k Kind) String() string {
	switch k {
	case KindMarkup:
		return "markup"
	case KindScript:
		return "script"
	default:
		return "unknown"
	}
}

// ParseKind accepts a family name or an editor language identifier.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "markup":
		return KindMarkup, true
	case "script":
		return KindScript, true
	default:
		return KindForLanguageID(name)
	}
}

// MarshalText encodes the family by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Reference is a quoted path literal found at a reference site.
// End-Start always equals len(RawPath).
type Reference struct {
	RawPath string `json:"raw_path" yaml:"raw_path"`
	Start   int    `json:"start"    yaml:"start"`
	End     int    `json:"end"      yaml:"end"`
	Kind    Kind   `json:"kind"     yaml:"kind"`
}

// rawPathGroup is the submatch index of the quoted path in both patterns.
const rawPathGroup = 1

var (
	// markupPattern matches src=/href= attributes and PHP include/require
	// statements, with or without call parentheses.
	markupPattern = regexp.MustCompile(
		`(?:src|href|include|require|include_once|require_once)\s*=?\s*\(?\s*["']([^"']+)["']`)

	// scriptPattern matches import/from/require sites.
	scriptPattern = regexp.MustCompile(`(?:import|from|require)\s*\(?["']([^"']+)["']\)?`)
)

// Extract scans text and returns references in document order.
//
// The scan is purely lexical: paths inside comments are matched like any
// other text and unterminated literals produce nothing.
func Extract(text string, kind Kind) []Reference {
	pattern := scriptPattern
	if kind == KindMarkup {
		pattern = markupPattern
	}

	matches := pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]Reference, 0, len(matches))

	for _, loc := range matches {
		start, end := loc[2*rawPathGroup], loc[2*rawPathGroup+1]

		refs = append(refs, Reference{
			RawPath: text[start:end],
			Start:   start,
			End:     end,
			Kind:    kind,
		})
	}

	return refs
}
