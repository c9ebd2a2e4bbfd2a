package reference

import (
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// languageIDs maps editor language identifiers to families.
var languageIDs = map[string]Kind{
	"html":            KindMarkup,
	"php":             KindMarkup,
	"javascript":      KindScript,
	"javascriptreact": KindScript,
	"typescript":      KindScript,
	"typescriptreact": KindScript,
}

// enryLanguages maps linguist language names to families.
var enryLanguages = map[string]Kind{
	"HTML":       KindMarkup,
	"HTML+PHP":   KindMarkup,
	"PHP":        KindMarkup,
	"JavaScript": KindScript,
	"JSX":        KindScript,
	"TypeScript": KindScript,
	"TSX":        KindScript,
}

// extensions is consulted when linguist cannot decide (e.g. .php vs Hack).
var extensions = map[string]Kind{
	".html":  KindMarkup,
	".htm":   KindMarkup,
	".php":   KindMarkup,
	".phtml": KindMarkup,
	".js":    KindScript,
	".mjs":   KindScript,
	".cjs":   KindScript,
	".jsx":   KindScript,
	".ts":    KindScript,
	".mts":   KindScript,
	".cts":   KindScript,
	".tsx":   KindScript,
}

// KindForLanguageID returns the family for an editor language identifier.
func KindForLanguageID(languageID string) (Kind, bool) {
	kind, ok := languageIDs[strings.ToLower(languageID)]

	return kind, ok
}

// KindForFile detects the family of a file from its name, using content to
// break ties when linguist needs it. Content may be nil.
func KindForFile(name string, content []byte) (Kind, bool) {
	base := filepath.Base(name)

	if kind, ok := extensions[strings.ToLower(filepath.Ext(base))]; ok {
		lang := enry.GetLanguage(base, content)
		if detected, known := enryLanguages[lang]; known {
			return detected, true
		}

		return kind, true
	}

	kind, ok := enryLanguages[enry.GetLanguage(base, content)]

	return kind, ok
}

// Supported reports whether a file name belongs to a checked family.
func Supported(name string) bool {
	_, ok := KindForFile(name, nil)

	return ok
}
