// Package resolve classifies raw reference paths and maps them to the
// filesystem locations that must exist for the reference to be valid.
package resolve

import (
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/linkmedic/pkg/alias"
	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
)

// Class is the classification of a raw path.
type Class int

// Path classes.
const (
	// ClassExternal is a URL or URL-like reference that is never checked.
	ClassExternal Class = iota
	// ClassRelative is resolved against the referencing document's directory.
	ClassRelative
	// ClassRootAbsolute starts with "/" and is resolved against the workspace root.
	ClassRootAbsolute
	// ClassBareModule is a script specifier such as "react" or "@/x".
	ClassBareModule
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassExternal:
		return "external"
	case ClassRelative:
		return "relative"
	case ClassRootAbsolute:
		return "root-absolute"
	case ClassBareModule:
		return "bare-module"
	default:
		return "unknown"
	}
}

// MarshalText encodes the class by name.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// externalPrefixes mark references that point outside the filesystem.
// "http" covers https as well.
var externalPrefixes = []string{"http", "//", "mailto:", "data:"}

// IsExternal reports whether rawPath is an external reference.
func IsExternal(rawPath string) bool {
	for _, prefix := range externalPrefixes {
		if strings.HasPrefix(rawPath, prefix) {
			return true
		}
	}

	return false
}

// Classify returns the class of rawPath for the given family. Markup has
// no bare modules: a bare markup path is relative to the document.
func Classify(rawPath string, kind reference.Kind) Class {
	switch {
	case IsExternal(rawPath):
		return ClassExternal
	case strings.HasPrefix(rawPath, "."):
		return ClassRelative
	case strings.HasPrefix(rawPath, "/"):
		return ClassRootAbsolute
	case kind == reference.KindMarkup:
		return ClassRelative
	default:
		return ClassBareModule
	}
}

// Origin locates the document a reference came from.
type Origin struct {
	// Path is the absolute path of the document.
	Path string
	// Root is the workspace root, empty when unknown.
	Root string
}

// Dir returns the directory of the document.
func (o Origin) Dir() string {
	return filepath.Dir(o.Path)
}

// Candidate is a reference paired with the location it must resolve to.
type Candidate struct {
	Reference reference.Reference `json:"reference"`
	Location  string              `json:"location"`
	Class     Class               `json:"class"`
	IsAlias   bool                `json:"is_alias"`
	// AliasPrefix is the matching alias pattern when IsAlias is set.
	AliasPrefix string `json:"alias_prefix,omitempty"`
}

// Resolve maps ref to its probe location. The second result is false when
// the reference is ignored: external URLs, blank paths, fragment-only
// links and script package imports that no alias matches.
func Resolve(ref reference.Reference, origin Origin, table *alias.Table) (Candidate, bool) {
	raw := ref.RawPath
	if strings.TrimSpace(raw) == "" {
		return Candidate{}, false
	}

	class := Classify(raw, ref.Kind)
	candidate := Candidate{Reference: ref, Class: class}

	switch class {
	case ClassExternal:
		return Candidate{}, false
	case ClassRelative:
		target, ok := trimSuffixParts(raw)
		if !ok {
			return Candidate{}, false
		}

		candidate.Location = filepath.Join(origin.Dir(), filepath.FromSlash(target))
	case ClassRootAbsolute:
		target, ok := trimSuffixParts(raw)
		if !ok {
			return Candidate{}, false
		}

		base := origin.Root
		if base == "" {
			base = origin.Dir()
		}

		candidate.Location = filepath.Join(base, filepath.FromSlash(target))
	case ClassBareModule:
		match, ok := table.Resolve(raw)
		if !ok || origin.Root == "" {
			return Candidate{}, false
		}

		target, ok := trimSuffixParts(match.Path)
		if !ok {
			return Candidate{}, false
		}

		candidate.Location = filepath.Join(origin.Root, filepath.FromSlash(table.BaseDir), filepath.FromSlash(target))
		candidate.IsAlias = true
		candidate.AliasPrefix = match.Prefix
	}

	return candidate, true
}

// trimSuffixParts removes a query string or fragment. It reports false
// when nothing but the suffix remains.
func trimSuffixParts(p string) (string, bool) {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	return p, p != "" && p != "/"
}
