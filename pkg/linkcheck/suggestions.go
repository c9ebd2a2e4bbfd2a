package linkcheck

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/linkmedic/pkg/finding"
	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
	"github.com/Sumatoshi-tech/linkmedic/pkg/suggest"
)

// attachSuggestions fills Suggestion from the entries next to each missing
// target. Only findings whose raw path ends in the missing name qualify.
// Markup suggests files only; scripts may also name a directory, which
// resolves through its index file.
func (c *Checker) attachSuggestions(ctx context.Context, findings []finding.Finding, kind reference.Kind) {
	var matcher suggest.Matcher

	listings := make(map[string][]string)

	for i := range findings {
		f := &findings[i]

		name := filepath.Base(f.Location)
		if f.RawPath[strings.LastIndex(f.RawPath, "/")+1:] != name {
			continue
		}

		dir := filepath.Dir(f.Location)

		names, listed := listings[dir]
		if !listed {
			names = c.siblings(ctx, dir, kind)
			listings[dir] = names
		}

		if closest, ok := matcher.Closest(name, names); ok {
			f.Suggestion = suggest.Replace(f.RawPath, closest)
		}
	}
}

func (c *Checker) siblings(ctx context.Context, dir string, kind reference.Kind) []string {
	entries, err := c.fs.ListDir(ctx, dir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir && kind == reference.KindMarkup {
			continue
		}

		names = append(names, entry.Name)
	}

	return names
}
