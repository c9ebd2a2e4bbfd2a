// Package fsys is the filesystem boundary of linkmedic: text reads,
// existence checks, config discovery, directory listing and file creation
// behind one interface, with a viant/afs backed implementation.
package fsys

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// DefaultConfigFiles are the alias config candidates, in priority order.
var DefaultConfigFiles = []string{"tsconfig.json", "jsconfig.json"}

// Entry is one directory listing element.
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

// FileSystem is everything the checker needs from storage. Paths are
// absolute, slash-separated filesystem paths.
type FileSystem interface {
	ReadText(ctx context.Context, path string) (string, error)
	// Exists folds every stat failure into false.
	Exists(ctx context.Context, path string) bool
	ListConfigCandidates(ctx context.Context, root string) []string
	ListDir(ctx context.Context, dir string) ([]Entry, error)
	CreateFile(ctx context.Context, path string) error
}

// AFS implements FileSystem on top of an afs.Service. Paths are mapped to
// URLs by prefixing the base URL, so the same code serves local disk
// (empty base) and in-memory storage ("mem://localhost").
type AFS struct {
	service     afs.Service
	baseURL     string
	configFiles []string
}

// Option configures an AFS.
type Option func(*AFS)

// WithBaseURL sets the URL prefix prepended to every path.
func WithBaseURL(baseURL string) Option {
	return func(a *AFS) {
		a.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithConfigFiles overrides the alias config candidate names.
func WithConfigFiles(names ...string) Option {
	return func(a *AFS) {
		if len(names) > 0 {
			a.configFiles = names
		}
	}
}

// WithService replaces the afs service, mainly for tests.
func WithService(service afs.Service) Option {
	return func(a *AFS) {
		a.service = service
	}
}

// NewAFS creates an afs backed FileSystem for local disk unless a base URL
// option says otherwise.
func NewAFS(opts ...Option) *AFS {
	fs := &AFS{
		service:     afs.New(),
		configFiles: DefaultConfigFiles,
	}

	for _, opt := range opts {
		opt(fs)
	}

	return fs
}

// ConfigFiles returns the config candidate names in priority order.
func (a *AFS) ConfigFiles() []string {
	return a.configFiles
}

func (a *AFS) url(p string) string {
	if a.baseURL == "" {
		return p
	}

	return a.baseURL + filepath.ToSlash(p)
}

// ReadText downloads the file content as a string.
func (a *AFS) ReadText(ctx context.Context, p string) (string, error) {
	data, err := a.service.DownloadWithURL(ctx, a.url(p))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}

	return string(data), nil
}

// Exists reports whether a file or directory exists at p.
func (a *AFS) Exists(ctx context.Context, p string) bool {
	ok, err := a.service.Exists(ctx, a.url(p))

	return err == nil && ok
}

// ListConfigCandidates returns the config files present in root.
func (a *AFS) ListConfigCandidates(ctx context.Context, root string) []string {
	candidates := make([]string, 0, len(a.configFiles))

	for _, name := range a.configFiles {
		candidate := filepath.Join(root, name)
		if a.Exists(ctx, candidate) {
			candidates = append(candidates, candidate)
		}
	}

	return candidates
}

// ListDir returns the direct children of dir.
func (a *AFS) ListDir(ctx context.Context, dir string) ([]Entry, error) {
	objects, err := a.service.List(ctx, a.url(dir))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(objects))

	for i, object := range objects {
		// afs reports the listed folder itself first.
		if i == 0 && object.IsDir() && object.Name() == path.Base(filepath.ToSlash(dir)) {
			continue
		}

		entries = append(entries, Entry{Name: object.Name(), IsDir: object.IsDir()})
	}

	return entries, nil
}

// CreateFile writes an empty file at p, creating parent folders.
func (a *AFS) CreateFile(ctx context.Context, p string) error {
	err := a.service.Upload(ctx, a.url(p), file.DefaultFileOsMode, bytes.NewReader(nil))
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}

	return nil
}
