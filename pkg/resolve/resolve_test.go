package resolve_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/linkmedic/pkg/alias"
	"github.com/Sumatoshi-tech/linkmedic/pkg/reference"
	"github.com/Sumatoshi-tech/linkmedic/pkg/resolve"
)

func ref(raw string, kind reference.Kind) reference.Reference {
	return reference.Reference{RawPath: raw, Start: 0, End: len(raw), Kind: kind}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		kind reference.Kind
		want resolve.Class
	}{
		{"https://cdn.example.com/x.js", reference.KindMarkup, resolve.ClassExternal},
		{"http://example.com", reference.KindScript, resolve.ClassExternal},
		{"//cdn.example.com/x.js", reference.KindMarkup, resolve.ClassExternal},
		{"mailto:me@example.com", reference.KindMarkup, resolve.ClassExternal},
		{"data:image/png;base64,AAAA", reference.KindMarkup, resolve.ClassExternal},
		{"./a.css", reference.KindMarkup, resolve.ClassRelative},
		{"../lib/util", reference.KindScript, resolve.ClassRelative},
		{"/assets/logo.png", reference.KindMarkup, resolve.ClassRootAbsolute},
		{"/src/x", reference.KindScript, resolve.ClassRootAbsolute},
		{"style.css", reference.KindMarkup, resolve.ClassRelative},
		{"react", reference.KindScript, resolve.ClassBareModule},
		{"@/components/Button", reference.KindScript, resolve.ClassBareModule},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, resolve.Classify(tt.raw, tt.kind))
		})
	}
}

func TestResolve_Markup(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/work")
	origin := resolve.Origin{Path: filepath.FromSlash("/work/pages/index.html"), Root: root}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "relative", raw: "./style.css", want: "/work/pages/style.css"},
		{name: "parent", raw: "../assets/a.png", want: "/work/assets/a.png"},
		{name: "bare", raw: "missing.png", want: "/work/pages/missing.png"},
		{name: "root absolute", raw: "/assets/logo.png", want: "/work/assets/logo.png"},
		{name: "query stripped", raw: "app.css?v=2", want: "/work/pages/app.css"},
		{name: "fragment stripped", raw: "about.html#team", want: "/work/pages/about.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			candidate, ok := resolve.Resolve(ref(tt.raw, reference.KindMarkup), origin, alias.Empty)
			require.True(t, ok)
			assert.Equal(t, filepath.FromSlash(tt.want), candidate.Location)
			assert.False(t, candidate.IsAlias)
			assert.Equal(t, tt.raw, candidate.Reference.RawPath)
		})
	}
}

func TestResolve_RootAbsoluteWithoutWorkspace(t *testing.T) {
	t.Parallel()

	origin := resolve.Origin{Path: filepath.FromSlash("/site/blog/post.html")}

	candidate, ok := resolve.Resolve(ref("/img/a.png", reference.KindMarkup), origin, alias.Empty)
	require.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/site/blog/img/a.png"), candidate.Location)
}

func TestResolve_Ignored(t *testing.T) {
	t.Parallel()

	origin := resolve.Origin{Path: filepath.FromSlash("/work/src/app.ts"), Root: filepath.FromSlash("/work")}

	tests := []struct {
		name string
		raw  string
		kind reference.Kind
	}{
		{name: "external", raw: "https://cdn.example.com/lib.js", kind: reference.KindScript},
		{name: "protocol relative", raw: "//fonts.example.com/f.css", kind: reference.KindMarkup},
		{name: "blank", raw: "   ", kind: reference.KindMarkup},
		{name: "fragment only", raw: "#top", kind: reference.KindMarkup},
		{name: "query only", raw: "?page=2", kind: reference.KindMarkup},
		{name: "package import", raw: "react", kind: reference.KindScript},
		{name: "scoped package", raw: "@scope/pkg", kind: reference.KindScript},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, ok := resolve.Resolve(ref(tt.raw, tt.kind), origin, alias.Empty)
			assert.False(t, ok)
		})
	}
}

func TestResolve_ScriptAlias(t *testing.T) {
	t.Parallel()

	table, err := alias.Parse([]byte(`{"compilerOptions": {"paths": {"@/*": ["src/*"]}}}`))
	require.NoError(t, err)

	origin := resolve.Origin{Path: filepath.FromSlash("/work/src/pages/home.tsx"), Root: filepath.FromSlash("/work")}

	candidate, ok := resolve.Resolve(ref("@/components/Button", reference.KindScript), origin, table)
	require.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/work/src/components/Button"), candidate.Location)
	assert.True(t, candidate.IsAlias)
	assert.Equal(t, "@/*", candidate.AliasPrefix)
	assert.Equal(t, resolve.ClassBareModule, candidate.Class)

	// Unrelated bare specifiers stay ignored.
	_, ok = resolve.Resolve(ref("lodash", reference.KindScript), origin, table)
	assert.False(t, ok)
}

func TestResolve_ScriptAliasHonoursBaseDir(t *testing.T) {
	t.Parallel()

	table, err := alias.Parse([]byte(`{"compilerOptions": {"baseUrl": "./app", "paths": {"~/*": ["lib/*"]}}}`))
	require.NoError(t, err)

	origin := resolve.Origin{Path: filepath.FromSlash("/work/app/main.js"), Root: filepath.FromSlash("/work")}

	candidate, ok := resolve.Resolve(ref("~/util/date", reference.KindScript), origin, table)
	require.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/work/app/lib/util/date"), candidate.Location)
}

func TestResolve_ScriptAliasNeedsWorkspaceRoot(t *testing.T) {
	t.Parallel()

	table, err := alias.Parse([]byte(`{"compilerOptions": {"paths": {"@/*": ["src/*"]}}}`))
	require.NoError(t, err)

	_, ok := resolve.Resolve(ref("@/x", reference.KindScript), resolve.Origin{Path: "/tmp/a.js"}, table)
	assert.False(t, ok)
}

func TestClass_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "external", resolve.ClassExternal.String())
	assert.Equal(t, "bare-module", resolve.ClassBareModule.String())
	assert.Equal(t, "unknown", resolve.Class(42).String())
}
