// Package complete suggests file and directory names while a path literal
// is being typed at a reference site.
package complete

import (
	"context"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/linkmedic/pkg/alias"
	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
)

// TriggerCharacters re-open completion while a path is typed.
var TriggerCharacters = []string{"/", ".", "@", `"`, "'"}

// openLiteral matches a reference site whose quoted literal is still open
// at the end of the line prefix.
var openLiteral = regexp.MustCompile(
	`(?:src|href|import|from|include|require|include_once|require_once)\s*\(?=?\s*["']([^"']*)$`)

// aliasCandidate matches typed paths that may start with an alias prefix.
var aliasCandidate = regexp.MustCompile(`^(?:@|[a-zA-Z0-9_-])`)

// Lister lists directory entries.
type Lister interface {
	ListDir(ctx context.Context, dir string) ([]fsys.Entry, error)
}

// Request describes the cursor position.
type Request struct {
	// LinePrefix is the text of the current line up to the cursor.
	LinePrefix string
	// DocPath is the absolute path of the document.
	DocPath string
	// Root is the workspace root, empty when unknown.
	Root string
	// Aliases is the alias table of Root; nil means none.
	Aliases *alias.Table
}

// Item is one suggestion.
type Item struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

// TypedPath returns the partial path typed inside an open reference
// literal at the end of linePrefix.
func TypedPath(linePrefix string) (string, bool) {
	m := openLiteral.FindStringSubmatch(linePrefix)
	if m == nil {
		return "", false
	}

	return m[1], true
}

// SearchDir returns the directory whose entries complete typed. A typed
// path ending in "/" lists that directory, anything else lists its parent.
func SearchDir(typed string, req Request) (string, bool) {
	if req.Root != "" && aliasCandidate.MatchString(typed) {
		if match, ok := req.Aliases.Resolve(typed); ok {
			full := filepath.Join(req.Root, filepath.FromSlash(req.Aliases.BaseDir), filepath.FromSlash(match.Path))

			return listedDir(full, typed), true
		}
	}

	if strings.HasPrefix(typed, "/") {
		if req.Root == "" {
			return "", false
		}

		if typed == "/" {
			return req.Root, true
		}

		return listedDir(filepath.Join(req.Root, filepath.FromSlash(typed)), typed), true
	}

	docDir := filepath.Dir(req.DocPath)
	if typed == "" {
		return docDir, true
	}

	return listedDir(filepath.Join(docDir, filepath.FromSlash(typed)), typed), true
}

func listedDir(full, typed string) string {
	if strings.HasSuffix(typed, "/") {
		return full
	}

	return filepath.Dir(full)
}

// Complete lists suggestions for req. The second result is false when the
// cursor is not inside a reference literal or the directory is unreadable.
func Complete(ctx context.Context, lister Lister, req Request) ([]Item, bool) {
	typed, ok := TypedPath(req.LinePrefix)
	if !ok {
		return nil, false
	}

	dir, ok := SearchDir(typed, req)
	if !ok {
		return nil, false
	}

	entries, err := lister.ListDir(ctx, dir)
	if err != nil {
		return nil, false
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, Item{Name: entry.Name, IsDir: entry.IsDir})
	}

	slices.SortFunc(items, func(a, b Item) int {
		return strings.Compare(a.Name, b.Name)
	})

	return items, true
}
