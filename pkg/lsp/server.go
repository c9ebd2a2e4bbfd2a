// Package lsp serves linkmedic diagnostics, quick fixes and path completion
// over the Language Server Protocol.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/Sumatoshi-tech/linkmedic/pkg/complete"
	"github.com/Sumatoshi-tech/linkmedic/pkg/finding"
	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
	"github.com/Sumatoshi-tech/linkmedic/pkg/linkcheck"
	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
	"github.com/Sumatoshi-tech/linkmedic/pkg/version"
)

// Protocol constants.
const (
	Name              = "linkmedic"
	DiagnosticSource  = "linkmedic"
	CommandCreateFile = "linkmedic.createFile"
	DefaultDebounce   = 500 * time.Millisecond

	methodPublishDiagnostics = "textDocument/publishDiagnostics"
	createFileTitle          = "Create missing file: "
	replaceTitle             = "Change to "
)

// ErrInvalidCommand indicates malformed workspace/executeCommand arguments.
var ErrInvalidCommand = errors.New("invalid command")

type notifyFunc func(method string, params any)

// Server is the linkmedic language server.
type Server struct {
	checker     *linkcheck.Checker
	store       *DocumentStore
	findings    *finding.Store
	roots       workspaceRoots
	watcher     *fsys.Watcher
	configFiles []string
	debounce    time.Duration
	logger      *slog.Logger
	handler     protocol.Handler

	mu     sync.Mutex
	ctx    context.Context //nolint:containedctx // notifications carry no context of their own.
	notify notifyFunc
	timers map[string]*time.Timer
}

// Option configures a Server.
type Option func(*Server)

// WithDebounce sets the delay between the last edit and the check.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWatcher re-checks open documents when an alias config changes on disk.
func WithWatcher(w *fsys.Watcher) Option {
	return func(s *Server) {
		s.watcher = w
	}
}

// WithConfigFiles sets the alias config names reported by the client's
// file watcher.
func WithConfigFiles(names ...string) Option {
	return func(s *Server) {
		if len(names) > 0 {
			s.configFiles = names
		}
	}
}

// NewServer creates a language server backed by checker.
func NewServer(checker *linkcheck.Checker, opts ...Option) *Server {
	srv := &Server{
		checker:     checker,
		store:       NewDocumentStore(),
		findings:    finding.NewStore(),
		configFiles: fsys.DefaultConfigFiles,
		debounce:    DefaultDebounce,
		logger:      slog.New(slog.DiscardHandler),
		ctx:         context.Background(),
		timers:      make(map[string]*time.Timer),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.handler = protocol.Handler{
		Initialize:                     srv.initialize,
		Initialized:                    srv.initialized,
		Shutdown:                       srv.shutdown,
		SetTrace:                       srv.setTrace,
		TextDocumentDidOpen:            srv.didOpen,
		TextDocumentDidChange:          srv.didChange,
		TextDocumentDidSave:            srv.didSave,
		TextDocumentDidClose:           srv.didClose,
		TextDocumentCompletion:         srv.completion,
		TextDocumentCodeAction:         srv.codeAction,
		WorkspaceExecuteCommand:        srv.executeCommand,
		WorkspaceDidChangeWatchedFiles: srv.didChangeWatchedFiles,
	}

	return srv
}

// Handler returns the protocol handler, for transports other than stdio.
func (srv *Server) Handler() *protocol.Handler {
	return &srv.handler
}

// Findings exposes the latest findings per document path.
func (srv *Server) Findings() *finding.Store {
	return srv.findings
}

// Run serves LSP on stdio until the client disconnects.
func (srv *Server) Run(ctx context.Context) error {
	srv.mu.Lock()
	srv.ctx = ctx
	srv.mu.Unlock()

	if srv.watcher != nil {
		go func() {
			err := srv.watcher.Run(ctx)
			if err != nil {
				srv.logger.ErrorContext(ctx, "config watcher stopped", "error", err)
			}
		}()
	}

	lspServer := server.NewServer(&srv.handler, Name, false)

	err := lspServer.RunStdio()
	if err != nil {
		return fmt.Errorf("lsp server: %w", err)
	}

	return nil
}

func (srv *Server) context() context.Context {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return srv.ctx
}

func (srv *Server) remember(ctx *glsp.Context) {
	if ctx == nil || ctx.Notify == nil {
		return
	}

	srv.mu.Lock()
	srv.notify = notifyFunc(ctx.Notify)
	srv.mu.Unlock()
}

func (srv *Server) publish(method string, params any) {
	srv.mu.Lock()
	notify := srv.notify
	srv.mu.Unlock()

	if notify != nil {
		notify(method, params)
	}
}

func (srv *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	srv.remember(ctx)
	srv.roots.set(workspaceFolders(params))

	capabilities := srv.handler.CreateServerCapabilities()

	openClose := true
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: complete.TriggerCharacters,
	}
	capabilities.CodeActionProvider = &protocol.CodeActionOptions{
		CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindQuickFix},
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: []string{CommandCreateFile},
	}

	serverVersion := version.Version

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &serverVersion,
		},
	}, nil
}

func workspaceFolders(params *protocol.InitializeParams) []string {
	var roots []string

	for _, folder := range params.WorkspaceFolders {
		if path, ok := PathFromURI(string(folder.URI)); ok {
			roots = append(roots, path)
		}
	}

	if len(roots) == 0 && params.RootURI != nil {
		if path, ok := PathFromURI(string(*params.RootURI)); ok {
			roots = append(roots, path)
		}
	}

	if len(roots) == 0 && params.RootPath != nil && *params.RootPath != "" {
		roots = append(roots, *params.RootPath)
	}

	return roots
}

func (srv *Server) initialized(ctx *glsp.Context, _ *protocol.InitializedParams) error {
	srv.remember(ctx)

	if srv.watcher == nil {
		return nil
	}

	for _, root := range srv.roots.all() {
		err := srv.watcher.WatchConfig(root, srv.configChanged)
		if err != nil {
			srv.logger.Warn("cannot watch alias config", "root", root, "error", err)
		}
	}

	return nil
}

func (srv *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)

	srv.mu.Lock()
	for uri, timer := range srv.timers {
		timer.Stop()
		delete(srv.timers, uri)
	}
	srv.mu.Unlock()

	if srv.watcher != nil {
		return srv.watcher.Close()
	}

	return nil
}

func (srv *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)

	return nil
}

func (srv *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	srv.remember(ctx)

	item := params.TextDocument

	path, ok := PathFromURI(string(item.URI))
	if !ok {
		return nil
	}

	srv.store.Set(Document{
		URI:        string(item.URI),
		Path:       path,
		LanguageID: item.LanguageID,
		Version:    item.Version,
		Text:       item.Text,
	})
	srv.checkAndPublish(string(item.URI))

	return nil
}

func (srv *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	srv.remember(ctx)

	uri := string(params.TextDocument.URI)

	text, ok := latestText(params.ContentChanges)
	if !ok {
		return nil
	}

	if !srv.store.Update(uri, text, params.TextDocument.Version) {
		return nil
	}

	srv.schedule(uri)

	return nil
}

// latestText returns the full text carried by the last change event. The
// server asks for full synchronization, so every event holds the whole
// document.
func latestText(changes []any) (string, bool) {
	if len(changes) == 0 {
		return "", false
	}

	switch change := changes[len(changes)-1].(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return change.Text, true
	case protocol.TextDocumentContentChangeEvent:
		return change.Text, change.Range == nil
	case map[string]any:
		text, ok := change["text"].(string)

		return text, ok
	default:
		return "", false
	}
}

func (srv *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	srv.remember(ctx)

	uri := string(params.TextDocument.URI)
	if _, ok := srv.store.Get(uri); ok {
		srv.cancelPending(uri)
		srv.checkAndPublish(uri)
	}

	return nil
}

func (srv *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	srv.remember(ctx)

	uri := string(params.TextDocument.URI)
	srv.cancelPending(uri)

	if doc, ok := srv.store.Get(uri); ok {
		srv.findings.Delete(doc.Path)
	}

	srv.store.Delete(uri)
	srv.publishFindings(uri, nil, nil)

	return nil
}

// schedule checks uri once no edit has arrived for the debounce delay. The
// timer reads the store when it fires, so only the latest snapshot is
// checked.
func (srv *Server) schedule(uri string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if timer, ok := srv.timers[uri]; ok {
		timer.Stop()
	}

	var timer *time.Timer

	timer = time.AfterFunc(srv.debounce, func() {
		srv.mu.Lock()
		srv.forgetTimerLocked(uri, timer)
		srv.mu.Unlock()

		srv.checkAndPublish(uri)
	})
	srv.timers[uri] = timer
}

// forgetTimerLocked drops fired from the pending set unless a newer timer
// has replaced it. srv.mu must be held.
func (srv *Server) forgetTimerLocked(uri string, fired *time.Timer) {
	if srv.timers[uri] == fired {
		delete(srv.timers, uri)
	}
}

func (srv *Server) cancelPending(uri string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if timer, ok := srv.timers[uri]; ok {
		timer.Stop()
		delete(srv.timers, uri)
	}
}

func (srv *Server) documentKind(doc Document) (reference.Kind, bool) {
	if kind, ok := reference.KindForLanguageID(doc.LanguageID); ok {
		return kind, true
	}

	return reference.KindForFile(doc.Path, []byte(doc.Text))
}

// checkAndPublish checks the current snapshot of uri and publishes the
// result unless the document changed or closed in the meantime.
func (srv *Server) checkAndPublish(uri string) {
	doc, ok := srv.store.Get(uri)
	if !ok {
		return
	}

	kind, ok := srv.documentKind(doc)
	if !ok {
		return
	}

	ctx := srv.context()

	findings, err := srv.checker.Check(ctx, linkcheck.Document{
		Path: doc.Path,
		Text: doc.Text,
		Kind: kind,
		Root: srv.roots.rootOf(doc.Path),
	})
	if err != nil {
		srv.logger.WarnContext(ctx, "check failed", "uri", uri, "error", err)

		return
	}

	current, ok := srv.store.Get(uri)
	if !ok || current.Version != doc.Version || current.Text != doc.Text {
		return
	}

	srv.findings.Set(doc.Path, findings)
	srv.publishFindings(uri, finding.NewLineIndex(doc.Text), findings)
}

func (srv *Server) publishFindings(uri string, idx *finding.LineIndex, findings []finding.Finding) {
	diagnostics := make([]protocol.Diagnostic, 0, len(findings))
	for _, f := range findings {
		diagnostics = append(diagnostics, Diagnostic(idx, f))
	}

	srv.publish(methodPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Diagnostic converts a finding into an error diagnostic. The expected
// location travels in the diagnostic data for the quick fix.
func Diagnostic(idx *finding.LineIndex, f finding.Finding) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := DiagnosticSource

	return protocol.Diagnostic{
		Range:    lspRange(idx, f.Span),
		Severity: &severity,
		Source:   &source,
		Message:  f.Message,
		Data:     f.Location,
	}
}

func lspRange(idx *finding.LineIndex, span finding.Span) protocol.Range {
	start := idx.Position(span.Start)
	end := idx.Position(span.End)

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(start.Line), Character: protocol.UInteger(start.Character)},
		End:   protocol.Position{Line: protocol.UInteger(end.Line), Character: protocol.UInteger(end.Character)},
	}
}

func (srv *Server) codeAction(ctx *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	srv.remember(ctx)

	doc, ok := srv.store.Get(string(params.TextDocument.URI))
	if !ok {
		return nil, nil //nolint:nilnil // LSP expects null when there are no actions.
	}

	kind := protocol.CodeActionKindQuickFix
	preferred := true

	var actions []protocol.CodeAction

	for _, diag := range params.Context.Diagnostics {
		if diag.Source == nil || *diag.Source != DiagnosticSource {
			continue
		}

		location := srv.fixLocation(doc, diag)
		if location == "" {
			continue
		}

		title := createFileTitle + location
		actions = append(actions, protocol.CodeAction{
			Title:       title,
			Kind:        &kind,
			Diagnostics: []protocol.Diagnostic{diag},
			IsPreferred: &preferred,
			Command: &protocol.Command{
				Title:     title,
				Command:   CommandCreateFile,
				Arguments: []any{location, string(params.TextDocument.URI)},
			},
		})

		if suggestion := srv.suggestion(doc, diag); suggestion != "" {
			actions = append(actions, protocol.CodeAction{
				Title:       replaceTitle + suggestion,
				Kind:        &kind,
				Diagnostics: []protocol.Diagnostic{diag},
				Edit: &protocol.WorkspaceEdit{
					Changes: map[protocol.DocumentUri][]protocol.TextEdit{
						params.TextDocument.URI: {{Range: diag.Range, NewText: suggestion}},
					},
				},
			})
		}
	}

	return actions, nil
}

// suggestion returns the replacement path stored with the finding behind
// diag, if any.
func (srv *Server) suggestion(doc Document, diag protocol.Diagnostic) string {
	raw := finding.RawPathFromMessage(diag.Message)
	if raw == "" {
		return ""
	}

	findings, _ := srv.findings.Get(doc.Path)
	for _, f := range findings {
		if f.RawPath == raw && f.Suggestion != "" {
			return f.Suggestion
		}
	}

	return ""
}

// fixLocation finds where the quick fix should create the file: the
// location carried in the diagnostic, then the stored finding with the
// same raw path, then the raw path joined with the document directory.
func (srv *Server) fixLocation(doc Document, diag protocol.Diagnostic) string {
	if location, ok := diag.Data.(string); ok && location != "" {
		return location
	}

	raw := finding.RawPathFromMessage(diag.Message)
	if raw == "" {
		return ""
	}

	findings, _ := srv.findings.Get(doc.Path)
	if i := slices.IndexFunc(findings, func(f finding.Finding) bool { return f.RawPath == raw }); i >= 0 {
		return findings[i].Location
	}

	return filepath.Join(filepath.Dir(doc.Path), filepath.FromSlash(raw))
}

func (srv *Server) executeCommand(ctx *glsp.Context, params *protocol.ExecuteCommandParams) (any, error) {
	srv.remember(ctx)

	if params.Command != CommandCreateFile {
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, params.Command)
	}

	if len(params.Arguments) == 0 {
		return nil, fmt.Errorf("%w: %s needs a path", ErrInvalidCommand, CommandCreateFile)
	}

	path, ok := params.Arguments[0].(string)
	if !ok || strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: %s needs a path", ErrInvalidCommand, CommandCreateFile)
	}

	base := srv.context()
	fs := srv.checker.FileSystem()

	if !fs.Exists(base, path) {
		err := fs.CreateFile(base, path)
		if err != nil {
			return nil, err
		}

		srv.logger.InfoContext(base, "created missing file", "path", path)
	}

	srv.recheckAll()

	return nil, nil //nolint:nilnil // the command has no result.
}

func (srv *Server) completion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	srv.remember(ctx)

	doc, ok := srv.store.Get(string(params.TextDocument.URI))
	if !ok {
		return nil, nil //nolint:nilnil // LSP expects null when there is nothing to complete.
	}

	base := srv.context()
	root := srv.roots.rootOf(doc.Path)

	items, ok := complete.Complete(base, srv.checker.FileSystem(), complete.Request{
		LinePrefix: linePrefix(doc.Text, params.Position),
		DocPath:    doc.Path,
		Root:       root,
		Aliases:    srv.checker.Aliases(base, root),
	})
	if !ok {
		return nil, nil //nolint:nilnil // LSP expects null when there is nothing to complete.
	}

	list := protocol.CompletionList{Items: make([]protocol.CompletionItem, 0, len(items))}

	for _, item := range items {
		kind := protocol.CompletionItemKindFile
		if item.IsDir {
			kind = protocol.CompletionItemKindFolder
		}

		list.Items = append(list.Items, protocol.CompletionItem{Label: item.Name, Kind: &kind})
	}

	return list, nil
}

// linePrefix returns the text of the cursor line up to the cursor.
func linePrefix(text string, pos protocol.Position) string {
	idx := finding.NewLineIndex(text)
	end := idx.Offset(finding.Position{Line: int(pos.Line), Character: int(pos.Character)})
	start := idx.Offset(finding.Position{Line: int(pos.Line)})

	return text[start:end]
}

func (srv *Server) didChangeWatchedFiles(ctx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	srv.remember(ctx)

	for _, change := range params.Changes {
		path, ok := PathFromURI(string(change.URI))
		if !ok {
			continue
		}

		if slices.Contains(srv.configFiles, filepath.Base(path)) {
			srv.checker.Invalidate(filepath.Dir(path))
		}
	}

	srv.recheckAll()

	return nil
}

// configChanged is the fsnotify callback for alias config edits.
func (srv *Server) configChanged(root string) {
	srv.checker.Invalidate(root)
	srv.recheckAll()
}

func (srv *Server) recheckAll() {
	for _, uri := range srv.store.URIs() {
		srv.checkAndPublish(uri)
	}
}
