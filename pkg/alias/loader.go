package alias

import (
	"context"
	"log/slog"
)

// Source is the slice of the filesystem the loader needs.
type Source interface {
	// ListConfigCandidates returns existing config files under root in
	// priority order.
	ListConfigCandidates(ctx context.Context, root string) []string
	// ReadText returns the content of a file.
	ReadText(ctx context.Context, path string) (string, error)
}

// Loader reads the first usable alias table from a project root.
type Loader struct {
	source Source
	logger *slog.Logger
}

// NewLoader creates a Loader. A nil logger discards diagnostics.
func NewLoader(source Source, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Loader{source: source, logger: logger}
}

// Load returns the table of the first candidate that parses and declares
// aliases. Unreadable or malformed candidates are skipped; when none
// qualifies the Empty table is returned.
func (l *Loader) Load(ctx context.Context, root string) *Table {
	for _, candidate := range l.source.ListConfigCandidates(ctx, root) {
		text, err := l.source.ReadText(ctx, candidate)
		if err != nil {
			l.logger.DebugContext(ctx, "skip unreadable alias config", "path", candidate, "error", err)

			continue
		}

		table, err := Parse([]byte(text))
		if err != nil {
			l.logger.DebugContext(ctx, "skip alias config", "path", candidate, "error", err)

			continue
		}

		table.Source = candidate

		l.logger.DebugContext(ctx, "loaded alias config", "path", candidate, "aliases", table.Len())

		return table
	}

	return Empty
}
