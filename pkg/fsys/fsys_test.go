package fsys_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/linkmedic/pkg/fsys"
)

const memBase = "mem://localhost"

// memRoot returns a root path unique to the running test.
func memRoot(t *testing.T) string {
	t.Helper()

	return "/" + strings.ReplaceAll(t.Name(), "/", "_")
}

func TestAFS_Memory_CreateExistsRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fs := fsys.NewAFS(fsys.WithBaseURL(memBase))
	root := memRoot(t)

	assert.False(t, fs.Exists(ctx, root+"/src/app.js"))

	require.NoError(t, fs.CreateFile(ctx, root+"/src/app.js"))
	assert.True(t, fs.Exists(ctx, root+"/src/app.js"))

	text, err := fs.ReadText(ctx, root+"/src/app.js")
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = fs.ReadText(ctx, root+"/missing.js")
	require.Error(t, err)
}

func TestAFS_Local_ConfigCandidatesInPriorityOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "jsconfig.json"), []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte(`{}`), 0o600))

	fs := fsys.NewAFS()
	assert.Equal(t, []string{
		filepath.Join(root, "tsconfig.json"),
		filepath.Join(root, "jsconfig.json"),
	}, fs.ListConfigCandidates(ctx, root))

	custom := fsys.NewAFS(fsys.WithConfigFiles("jsconfig.json"))
	assert.Equal(t, []string{filepath.Join(root, "jsconfig.json")}, custom.ListConfigCandidates(ctx, root))
	assert.Equal(t, []string{"jsconfig.json"}, custom.ConfigFiles())
}

func TestAFS_Local_ExistsAndListDir(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "components")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "forms"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Button.tsx"), []byte("x"), 0o600))

	fs := fsys.NewAFS()
	assert.True(t, fs.Exists(ctx, filepath.Join(dir, "Button.tsx")))
	assert.True(t, fs.Exists(ctx, dir))
	assert.False(t, fs.Exists(ctx, filepath.Join(dir, "Button")))

	entries, err := fs.ListDir(ctx, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []fsys.Entry{
		{Name: "Button.tsx", IsDir: false},
		{Name: "forms", IsDir: true},
	}, entries)
}

func TestResolveUserPath(t *testing.T) {
	t.Parallel()

	_, err := fsys.ResolveUserPath("  ")
	require.ErrorIs(t, err, fsys.ErrEmptyPath)

	_, err = fsys.ResolveUserPath("a\x00b")
	require.ErrorIs(t, err, fsys.ErrPathContainsNUL)

	root := t.TempDir()

	got, err := fsys.ResolveUserPath(root + "/./")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = fsys.ResolveUserPath(filepath.Join(root, "nope"))
	require.Error(t, err)
}

func TestCollectFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, rel := range []string{
		"index.html",
		"src/app.js",
		"src/notes.md",
		"node_modules/react/index.js",
		".git/hooks/pre-commit.js",
	} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}

	files, err := fsys.CollectFiles(root, []string{"node_modules"}, func(path string) bool {
		return filepath.Ext(path) != ".md"
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "index.html"),
		filepath.Join(root, "src/app.js"),
	}, files)
}

func TestCollectFiles_SkipsDirectoryRemovedMidWalk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, rel := range []string{"a.html", "b/gone.js", "c/kept.js"} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}

	// WalkDir visits a.html before reading b, so b disappears in between.
	files, err := fsys.CollectFiles(root, nil, func(path string) bool {
		if filepath.Base(path) == "a.html" {
			require.NoError(t, os.RemoveAll(filepath.Join(root, "b")))
		}

		return true
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.html"),
		filepath.Join(root, "c/kept.js"),
	}, files)
}

func TestCollectFiles_MissingRootFails(t *testing.T) {
	t.Parallel()

	_, err := fsys.CollectFiles(filepath.Join(t.TempDir(), "absent"), nil, func(string) bool { return true })
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindProjectRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "src", "pages")

	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "a.js"), nil, 0o600))

	assert.Equal(t, root, fsys.FindProjectRoot(filepath.Join(nested, "a.js"), []string{"tsconfig.json", "package.json"}))

	orphan := t.TempDir()
	assert.Equal(t, orphan, fsys.FindProjectRoot(orphan, []string{"no-such-marker-file"}))
}

func TestWatcher_NotifiesOnConfigChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	config := filepath.Join(root, "tsconfig.json")
	require.NoError(t, os.WriteFile(config, []byte(`{}`), 0o600))

	watcher, err := fsys.NewWatcher(fsys.DefaultConfigFiles, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = watcher.Close() })

	var calls atomic.Int32

	var gotRoot atomic.Value

	require.NoError(t, watcher.WatchConfig(root, func(changed string) {
		gotRoot.Store(changed)
		calls.Add(1)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = watcher.Run(ctx) }()

	// Unrelated files do not trigger the callback.
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.js"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(config, []byte(`{"compilerOptions": {}}`), 0o600))

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, root, gotRoot.Load())
}
