// Package report renders batch check results as a terminal table, JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/linkmedic/pkg/linkcheck"
)

// Formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Width limits for the text table.
const (
	DefaultWidth = 100
	MinWidth     = 60

	// fixedColumns approximates the position column plus table borders.
	fixedColumns = 16
)

// ErrUnknownFormat indicates an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// Options controls rendering.
type Options struct {
	Format  string
	NoColor bool
	// Width is the terminal width for the text table; zero detects it.
	Width int
	// Root shortens displayed paths when set.
	Root string
	// Elapsed is shown in the text summary when non-zero.
	Elapsed time.Duration
}

// Document is the JSON and YAML shape of a report.
type Document struct {
	Files   []linkcheck.FileResult `json:"files"   yaml:"files"`
	Summary linkcheck.Summary      `json:"summary" yaml:"summary"`
}

// Write renders results to w.
func Write(w io.Writer, results []linkcheck.FileResult, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, results)
	case FormatYAML:
		return writeYAML(w, results)
	case FormatText, "":
		return writeText(w, results, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

func newDocument(results []linkcheck.FileResult) Document {
	if results == nil {
		results = []linkcheck.FileResult{}
	}

	return Document{Files: results, Summary: linkcheck.Summarize(results)}
}

func writeJSON(w io.Writer, results []linkcheck.FileResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(newDocument(results))
	if err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}

	return nil
}

func writeYAML(w io.Writer, results []linkcheck.FileResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(newDocument(results))
	if err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("flush yaml report: %w", err)
	}

	return nil
}

type palette struct {
	file    *color.Color
	missing *color.Color
	warn    *color.Color
	ok      *color.Color
	dim     *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		file:    color.New(color.FgCyan, color.Bold),
		missing: color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		ok:      color.New(color.FgGreen),
		dim:     color.New(color.FgHiBlack),
	}

	for _, c := range []*color.Color{p.file, p.missing, p.warn, p.ok, p.dim} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}

	return p
}

func writeText(w io.Writer, results []linkcheck.FileResult, opts Options) error {
	pal := newPalette(opts.NoColor)
	width := opts.Width

	if width == 0 {
		width = DetectWidth()
	}

	width = max(width, MinWidth)

	var b strings.Builder

	for _, result := range results {
		if len(result.Findings) == 0 && result.Error == "" {
			continue
		}

		pal.file.Fprintln(&b, displayPath(result.Path, opts.Root))

		if result.Error != "" {
			pal.warn.Fprintf(&b, "  cannot check: %s\n\n", result.Error)

			continue
		}

		b.WriteString(findingTable(result, opts.Root, width, pal))
		b.WriteString("\n\n")
	}

	b.WriteString(summaryLine(linkcheck.Summarize(results), opts.Elapsed, pal))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

func findingTable(result linkcheck.FileResult, root string, width int, pal palette) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Line:Col", "Reference", "Expected at"})

	pathWidth := max((width-fixedColumns)/2, 10)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: pathWidth, WidthMaxEnforcer: text.WrapHard},
		{Number: 3, WidthMax: pathWidth, WidthMaxEnforcer: text.WrapHard},
	})

	for _, f := range result.Findings {
		reference := pal.missing.Sprint(f.RawPath)
		if f.Suggestion != "" {
			reference += pal.ok.Sprintf(" (did you mean %s?)", f.Suggestion)
		}

		tw.AppendRow(table.Row{
			strconv.Itoa(f.Line) + ":" + strconv.Itoa(f.Column),
			reference,
			pal.dim.Sprint(displayPath(f.Location, root)),
		})
	}

	return tw.Render()
}

func summaryLine(summary linkcheck.Summary, elapsed time.Duration, pal palette) string {
	files := english.Plural(summary.Files, "file", "")
	if summary.Files >= 1000 {
		files = humanize.Comma(int64(summary.Files)) + " files"
	}

	var line string

	if summary.Findings == 0 {
		line = pal.ok.Sprintf("No missing references in %s", files)
	} else {
		line = pal.missing.Sprintf("%s missing in %s",
			english.Plural(summary.Findings, "reference", ""), files)
	}

	if summary.Errors > 0 {
		line += pal.warn.Sprintf(" (%s could not be checked)", english.Plural(summary.Errors, "file", ""))
	}

	if elapsed > 0 {
		line += pal.dim.Sprintf(" in %s", elapsed.Round(time.Millisecond))
	}

	return line
}

// displayPath shortens p relative to root when p lies under it.
func displayPath(p, root string) string {
	if root == "" {
		return p
	}

	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}

	return rel
}

// DetectWidth reads the terminal width from COLUMNS, falling back to
// DefaultWidth.
func DetectWidth() int {
	columns, err := strconv.Atoi(os.Getenv("COLUMNS"))
	if err != nil || columns <= 0 {
		return DefaultWidth
	}

	return columns
}
