package complete_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/Sumatoshi-tech/linkmedic/pkg/alias"
	"github.com/Sumatoshi-tech/linkmedic/pkg/complete"
	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
)

func aliasTable(t *testing.T) *alias.Table {
	t.Helper()

	table, err := alias.Parse([]byte(`{
		"compilerOptions": {
			"baseUrl": "./src",
			"paths": {"@/*": ["./*"], "shared/*": ["../shared/*"]}
		}
	}`))
	require.NoError(t, err)

	return table
}

func TestTypedPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		want   string
		ok     bool
	}{
		{prefix: `<img src="./img/`, want: "./img/", ok: true},
		{prefix: `<a href='`, want: "", ok: true},
		{prefix: `import x from "@/comp`, want: "@/comp", ok: true},
		{prefix: `const m = require("../li`, want: "../li", ok: true},
		{prefix: `<?php include_once '/inc/`, want: "/inc/", ok: true},
		{prefix: `<img src="./a.png" alt="`, ok: false},
		{prefix: `let s = "text`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			t.Parallel()

			got, ok := complete.TypedPath(tt.prefix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchDir(t *testing.T) {
	t.Parallel()

	table := aliasTable(t)

	tests := []struct {
		name  string
		typed string
		root  string
		want  string
		ok    bool
	}{
		{name: "empty lists document dir", typed: "", root: "/w", want: "/w/src/pages", ok: true},
		{name: "relative dir", typed: "./img/", root: "/w", want: "/w/src/pages/img", ok: true},
		{name: "relative partial name", typed: "./img/lo", root: "/w", want: "/w/src/pages/img", ok: true},
		{name: "parent dir", typed: "../", root: "/w", want: "/w/src", ok: true},
		{name: "bare name", typed: "comp", root: "/w", want: "/w/src/pages", ok: true},
		{name: "root only", typed: "/", root: "/w", want: "/w", ok: true},
		{name: "root absolute", typed: "/static/", root: "/w", want: "/w/static", ok: true},
		{name: "root absolute without root", typed: "/static/", root: "", ok: false},
		{name: "alias dir", typed: "@/components/", root: "/w", want: "/w/src/components", ok: true},
		{name: "alias partial", typed: "@/comp", root: "/w", want: "/w/src", ok: true},
		{name: "alias to parent", typed: "shared/", root: "/w", want: "/w/shared", ok: true},
		{name: "tilde is never an alias", typed: "~x/", root: "/w", want: "/w/src/pages/~x", ok: true},
		{name: "alias without root is relative", typed: "@/components/", root: "", want: "/w/src/pages/@/components", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := complete.SearchDir(tt.typed, complete.Request{
				DocPath: "/w/src/pages/index.ts",
				Root:    tt.root,
				Aliases: table,
			})
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type staticLister struct {
	dirs map[string][]fsys.Entry
	seen []string
}

func (s *staticLister) ListDir(_ context.Context, dir string) ([]fsys.Entry, error) {
	s.seen = append(s.seen, dir)

	entries, ok := s.dirs[dir]
	if !ok {
		return nil, errors.New("no such directory")
	}

	return entries, nil
}

func TestComplete_SortsEntries(t *testing.T) {
	t.Parallel()

	lister := &staticLister{dirs: map[string][]fsys.Entry{
		"/w/src/components": {{Name: "Nav.tsx"}, {Name: "Button.tsx"}, {Name: "forms", IsDir: true}},
	}}

	items, ok := complete.Complete(context.Background(), lister, complete.Request{
		LinePrefix: `import Nav from "@/components/`,
		DocPath:    "/w/src/main.ts",
		Root:       "/w",
		Aliases:    aliasTable(t),
	})
	require.True(t, ok)
	assert.Equal(t, []complete.Item{
		{Name: "Button.tsx"},
		{Name: "Nav.tsx"},
		{Name: "forms", IsDir: true},
	}, items)
	assert.Equal(t, []string{"/w/src/components"}, lister.seen)
}

func TestComplete_NotInLiteral(t *testing.T) {
	t.Parallel()

	lister := &staticLister{}

	_, ok := complete.Complete(context.Background(), lister, complete.Request{
		LinePrefix: `const a = 1`,
		DocPath:    "/w/a.js",
		Root:       "/w",
	})
	assert.False(t, ok)
	assert.Empty(t, lister.seen)
}

func TestComplete_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, ok := complete.Complete(context.Background(), &staticLister{}, complete.Request{
		LinePrefix: `<img src="./nowhere/`,
		DocPath:    "/w/index.html",
	})
	assert.False(t, ok)
}

func TestComplete_MemoryFileSystem(t *testing.T) {
	t.Parallel()

	const base = "mem://localhost"

	ctx := context.Background()
	service := afs.New()
	root := "/" + t.Name()

	for _, rel := range []string{"index.html", "img/logo.png", "img/icons/home.svg"} {
		err := service.Upload(ctx, base+root+"/"+rel, file.DefaultFileOsMode, strings.NewReader("x"))
		require.NoError(t, err)
	}

	fs := fsys.NewAFS(fsys.WithBaseURL(base), fsys.WithService(service))

	items, ok := complete.Complete(ctx, fs, complete.Request{
		LinePrefix: `<img src="./img/`,
		DocPath:    root + "/index.html",
		Root:       root,
	})
	require.True(t, ok)
	assert.Equal(t, []complete.Item{
		{Name: "icons", IsDir: true},
		{Name: "logo.png"},
	}, items)
}
