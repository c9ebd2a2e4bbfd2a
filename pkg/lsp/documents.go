package lsp

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Document is an open editor buffer.
type Document struct {
	URI        string
	Path       string
	LanguageID string
	Version    int32
	Text       string
}

// DocumentStore is a thread-safe store of open documents keyed by URI.
type DocumentStore struct {
	documents map[string]Document
	mu        sync.RWMutex
}

// NewDocumentStore creates a new empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]Document),
	}
}

// Set stores doc, replacing any previous snapshot of the same URI.
func (ds *DocumentStore) Set(doc Document) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[doc.URI] = doc
}

// Update replaces the text of an open document. It reports false when the
// document is not open.
func (ds *DocumentStore) Update(uri, text string, version int32) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	doc, ok := ds.documents[uri]
	if !ok {
		return false
	}

	doc.Text = text
	doc.Version = version
	ds.documents[uri] = doc

	return true
}

// Get retrieves a document by URI.
func (ds *DocumentStore) Get(uri string) (Document, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	doc, ok := ds.documents[uri]

	return doc, ok
}

// Delete removes a document by URI.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

// URIs returns the open document URIs in sorted order.
func (ds *DocumentStore) URIs() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	uris := make([]string, 0, len(ds.documents))
	for uri := range ds.documents {
		uris = append(uris, uri)
	}

	slices.Sort(uris)

	return uris
}

// PathFromURI converts a file:// URI into a filesystem path.
func PathFromURI(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}

	return filepath.FromSlash(u.Path), true
}

// URIFromPath converts an absolute filesystem path into a file:// URI.
func URIFromPath(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// workspaceRoots tracks the workspace folders of the session.
type workspaceRoots struct {
	mu    sync.RWMutex
	roots []string
}

func (w *workspaceRoots) set(roots []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.roots = slices.Compact(slices.Sorted(slices.Values(roots)))
}

func (w *workspaceRoots) all() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return slices.Clone(w.roots)
}

// rootOf returns the innermost workspace folder containing path.
func (w *workspaceRoots) rootOf(path string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	best := ""

	for _, root := range w.roots {
		if path != root && !strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator)) {
			continue
		}

		if len(root) > len(best) {
			best = root
		}
	}

	return best
}
