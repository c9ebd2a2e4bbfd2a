// Package suggest picks the existing name a mistyped reference most likely
// meant, by Levenshtein edit distance.
package suggest

import (
	"path"
	"slices"
	"strings"
	"unicode/utf8"
)

// MaxDistance caps the edits between a reference and its suggestion.
const MaxDistance = 2

// minNameRunes is the shortest name that gets a suggestion. Shorter names
// are within MaxDistance of too many others.
const minNameRunes = 3

// Matcher computes edit distances with a reused buffer. The zero value is
// ready to use; a Matcher must not be shared between goroutines.
type Matcher struct {
	column []int
}

func (m *Matcher) buffer(length int) []int {
	if cap(m.column) < length {
		m.column = make([]int, length)
	}

	return m.column[:length]
}

// Distance returns the number of single-rune insertions, deletions and
// substitutions that turn a into b. Space is O(len(a)).
func (m *Matcher) Distance(a, b string) int {
	left := []rune(a)
	right := []rune(b)

	if len(right) == 0 {
		return len(left)
	}

	column := m.buffer(len(left) + 1)
	for i := range column {
		column[i] = i
	}

	for j, r := range right {
		diagonal := column[0]
		column[0] = j + 1

		for i, l := range left {
			above := column[i+1]

			cost := 1
			if l == r {
				cost = 0
			}

			column[i+1] = min(above+1, column[i]+1, diagonal+cost)
			diagonal = above
		}
	}

	return column[len(left)]
}

// Closest returns the candidate nearest to name, at most MaxDistance edits
// away and closer than a third of name's length. Ties go to the
// lexicographically smaller candidate. When name has no extension,
// candidates are also compared without theirs, and the match is returned
// in that form.
func (m *Matcher) Closest(name string, candidates []string) (string, bool) {
	runes := utf8.RuneCountInString(name)
	if runes < minNameRunes {
		return "", false
	}

	limit := min(MaxDistance, runes/minNameRunes)
	bare := path.Ext(name) == ""

	best, bestDistance := "", limit+1

	for _, candidate := range sortedForms(candidates, bare) {
		if candidate == name {
			continue
		}

		distance := m.Distance(name, candidate)
		if distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}

	return best, best != ""
}

// sortedForms lists the names to compare against in sorted order,
// extensions stripped when bare is set.
func sortedForms(candidates []string, bare bool) []string {
	forms := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		if bare {
			candidate = strings.TrimSuffix(candidate, path.Ext(candidate))
		}

		if candidate != "" {
			forms = append(forms, candidate)
		}
	}

	slices.Sort(forms)

	return slices.Compact(forms)
}

// Replace swaps the last segment of rawPath for name.
func Replace(rawPath, name string) string {
	i := strings.LastIndex(rawPath, "/")

	return rawPath[:i+1] + name
}
