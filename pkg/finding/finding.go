// Package finding turns verification results into user-facing findings and
// keeps the latest findings per document.
package finding

import (
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/linkmedic/pkg/resolve"
)

// MessagePrefix starts every finding message. The raw path follows the
// final Separator.
const (
	MessagePrefix = "LinkMedic: File not found"
	Separator     = " -> "
)

// Span is a half-open byte range in the document text.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end"   yaml:"end"`
}

// Finding is a reference whose target does not exist.
type Finding struct {
	Span     Span   `json:"span"               yaml:"span"`
	Message  string `json:"message"            yaml:"message"`
	RawPath  string `json:"raw_path"           yaml:"raw_path"`
	Location string `json:"location"           yaml:"location"`
	IsAlias  bool   `json:"is_alias,omitempty" yaml:"is_alias,omitempty"`
	// Probes lists every path tried, exact location first.
	Probes []string `json:"probes,omitempty" yaml:"probes,omitempty"`
	// Suggestion is RawPath rewritten to the closest existing sibling.
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	// Line and Column are one-based and set once the text is known.
	Line   int `json:"line,omitempty"   yaml:"line,omitempty"`
	Column int `json:"column,omitempty" yaml:"column,omitempty"`
}

// Result is the verification outcome for one candidate.
type Result struct {
	Candidate resolve.Candidate
	Resolved  bool
	Probes    []string
}

// Message formats the finding message for rawPath.
func Message(rawPath string) string {
	return MessagePrefix + Separator + rawPath
}

// RawPathFromMessage recovers the raw path from a finding message. It
// returns "" for messages not produced by Message.
func RawPathFromMessage(msg string) string {
	if !strings.HasPrefix(msg, MessagePrefix) {
		return ""
	}

	i := strings.LastIndex(msg, Separator)
	if i < 0 {
		return ""
	}

	return msg[i+len(Separator):]
}

// Assemble keeps unresolved results and orders them by start offset.
// Results sharing an offset keep their input order.
func Assemble(results []Result) []Finding {
	findings := make([]Finding, 0, len(results))

	for _, result := range results {
		if result.Resolved {
			continue
		}

		ref := result.Candidate.Reference

		findings = append(findings, Finding{
			Span:     Span{Start: ref.Start, End: ref.End},
			Message:  Message(ref.RawPath),
			RawPath:  ref.RawPath,
			Location: result.Candidate.Location,
			IsAlias:  result.Candidate.IsAlias,
			Probes:   result.Probes,
		})
	}

	slices.SortStableFunc(findings, func(a, b Finding) int {
		return a.Span.Start - b.Span.Start
	})

	return findings
}
