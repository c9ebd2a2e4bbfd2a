// Package linkcheck runs the full reference check for a document: extract,
// resolve through the alias table, verify existence and assemble findings.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/linkmedic/pkg/alias"
	"github.com/Sumatoshi-tech/linkmedic/pkg/finding"
	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
	"github.com/Sumatoshi-tech/linkmedic/pkg/observability"
	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
	"github.com/Sumatoshi-tech/linkmedic/pkg/resolve"
	"github.com/Sumatoshi-tech/linkmedic/pkg/verify"
)

// DefaultWorkers bounds concurrent verifications per document.
const DefaultWorkers = 16

const (
	opCheck     = "check"
	opCheckFile = "check_file"
	spanCheck   = "linkmedic.check"
)

// ErrUnsupportedFile indicates the file is neither markup nor script.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Document is one text to check.
type Document struct {
	// Path is the absolute path of the document.
	Path string
	// Text is the full document content.
	Text string
	// Kind selects the extraction rules.
	Kind reference.Kind
	// Root is the workspace root, empty when unknown. Aliases and
	// root-absolute paths need it.
	Root string
}

// Checker checks documents against a filesystem. It is safe for
// concurrent use.
type Checker struct {
	fs       fsys.FileSystem
	aliases  *alias.Cache
	verifier *verify.Verifier

	workers   int
	cacheSize int
	logger    *slog.Logger
	tracer    trace.Tracer
	red       *observability.REDMetrics
	metrics   *observability.CheckMetrics
}

// Option configures a Checker.
type Option func(*Checker)

// WithWorkers bounds concurrent verifications. Non-positive values keep
// the default.
func WithWorkers(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithAliasCacheSize bounds the number of cached project roots.
func WithAliasCacheSize(n int) Option {
	return func(c *Checker) {
		c.cacheSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer for per-document and per-reference spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Checker) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithMetrics records RED and checker metrics. Either may be nil.
func WithMetrics(red *observability.REDMetrics, metrics *observability.CheckMetrics) Option {
	return func(c *Checker) {
		c.red = red
		c.metrics = metrics
	}
}

// New creates a Checker on fs.
func New(fs fsys.FileSystem, opts ...Option) *Checker {
	c := &Checker{
		fs:       fs,
		verifier: verify.New(fs),
		workers:  DefaultWorkers,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   nooptrace.NewTracerProvider().Tracer("linkmedic"),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.aliases = alias.NewCache(alias.NewLoader(fs, c.logger), c.cacheSize,
		alias.WithLoadHook(func(ctx context.Context, root string, table *alias.Table) {
			c.logger.DebugContext(ctx, "alias table loaded", "root", root, "source", table.Source, "aliases", table.Len())

			if c.metrics != nil {
				c.metrics.RecordAliasLoad(ctx)
			}
		}))

	return c
}

// FileSystem returns the filesystem the checker reads from.
func (c *Checker) FileSystem() fsys.FileSystem {
	return c.fs
}

// Aliases returns the alias table snapshot for root.
func (c *Checker) Aliases(ctx context.Context, root string) *alias.Table {
	if root == "" {
		return alias.Empty
	}

	return c.aliases.Get(ctx, root)
}

// Invalidate drops the alias snapshot of root.
func (c *Checker) Invalidate(root string) {
	c.aliases.Invalidate(root)
}

// InvalidateAll drops every alias snapshot.
func (c *Checker) InvalidateAll() {
	c.aliases.InvalidateAll()
}

// Check returns the findings of doc ordered by offset. Filesystem failures
// count as missing files; the only error is context cancellation.
func (c *Checker) Check(ctx context.Context, doc Document) ([]finding.Finding, error) {
	return c.observe(ctx, opCheck, doc, func(ctx context.Context) ([]finding.Finding, error) {
		return c.check(ctx, doc)
	})
}

// CheckFile reads path, detects its family from the name and content, and
// checks it.
func (c *Checker) CheckFile(ctx context.Context, path, root string) ([]finding.Finding, error) {
	text, err := c.fs.ReadText(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("check file: %w", err)
	}

	kind, ok := reference.KindForFile(path, []byte(text))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	doc := Document{Path: path, Text: text, Kind: kind, Root: root}

	return c.observe(ctx, opCheckFile, doc, func(ctx context.Context) ([]finding.Finding, error) {
		return c.check(ctx, doc)
	})
}

func (c *Checker) observe(
	ctx context.Context, op string, doc Document, run func(ctx context.Context) ([]finding.Finding, error),
) ([]finding.Finding, error) {
	ctx, span := c.tracer.Start(ctx, spanCheck, trace.WithAttributes(
		attribute.String("document.path", doc.Path),
		attribute.String("document.kind", doc.Kind.String()),
	))
	defer span.End()

	if c.red != nil {
		defer c.red.TrackInflight(ctx, op)()
	}

	start := time.Now()
	findings, err := run(ctx)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if c.red != nil {
		c.red.RecordRequest(ctx, op, status, time.Since(start))
	}

	span.SetAttributes(attribute.Int("linkmedic.findings", len(findings)))

	return findings, err
}

func (c *Checker) check(ctx context.Context, doc Document) ([]finding.Finding, error) {
	refs := reference.Extract(doc.Text, doc.Kind)

	table := alias.Empty
	if doc.Kind == reference.KindScript {
		table = c.Aliases(ctx, doc.Root)
	}

	origin := resolve.Origin{Path: doc.Path, Root: doc.Root}
	results := make([]finding.Result, len(refs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)

	for i, ref := range refs {
		candidate, ok := resolve.Resolve(ref, origin, table)
		if !ok {
			results[i] = finding.Result{Candidate: resolve.Candidate{Reference: ref}, Resolved: true}

			continue
		}

		group.Go(func() error {
			err := groupCtx.Err()
			if err != nil {
				return err
			}

			refCtx, span := c.tracer.Start(groupCtx, observability.SpanReference, trace.WithAttributes(
				attribute.String("reference.class", candidate.Class.String()),
				attribute.Bool("alias.matched", candidate.IsAlias),
			))
			defer span.End()

			result := finding.Result{Candidate: candidate}
			result.Resolved = c.verifier.Verify(refCtx, candidate.Location, ref.Kind)

			if !result.Resolved {
				result.Probes = verify.Probes(candidate.Location, ref.Kind)
			}

			results[i] = result

			return nil
		})
	}

	err := group.Wait()
	if err == nil {
		// A canceled verification reads as "missing"; never report those.
		err = ctx.Err()
	}

	if err != nil {
		return nil, fmt.Errorf("check %s: %w", doc.Path, err)
	}

	findings := finding.Assemble(results)
	c.attachSuggestions(ctx, findings, doc.Kind)
	finding.NewLineIndex(doc.Text).Annotate(findings)

	if c.metrics != nil {
		c.metrics.RecordDocument(ctx, doc.Kind.String(), len(refs), len(findings))
	}

	c.logger.DebugContext(ctx, "document checked",
		"path", doc.Path, "kind", doc.Kind.String(), "references", len(refs), "findings", len(findings))

	return findings, nil
}
