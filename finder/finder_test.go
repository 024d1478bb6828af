package finder_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cstatic/cstatic/engine"
	"github.com/cstatic/cstatic/finder"
	"github.com/cstatic/cstatic/storage"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func collect(t *testing.T, f *finder.Finder) []engine.FoundFile {
	t.Helper()
	var found []engine.FoundFile
	err := f.Find(context.Background(), func(file engine.FoundFile) error {
		found = append(found, file)
		return nil
	})
	require.NoError(t, err)
	return found
}

func destinations(files []engine.FoundFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.DestinationPath
	}
	return out
}

func TestFinder_WalksDepthFirstInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.css":               "body{}",
		"css/site.css":        "p{}",
		"css/vendor/grid.css": "div{}",
		"img/logo.png":        "png",
	})

	f := finder.New(zerolog.Nop(), finder.Root{Source: storage.NewLocal(dir)})
	found := collect(t, f)

	assert.Equal(t, []string{
		"a.css",
		"css/site.css",
		"css/vendor/grid.css",
		"img/logo.png",
	}, destinations(found))
}

func TestFinder_AppliesRootPrefix(t *testing.T) {
	appDir := t.TempDir()
	themeDir := t.TempDir()
	writeTree(t, appDir, map[string]string{"app.js": "x"})
	writeTree(t, themeDir, map[string]string{"theme.css": "y"})

	appSource := storage.NewLocal(appDir)
	f := finder.New(zerolog.Nop(),
		finder.Root{Source: appSource},
		finder.Root{Source: storage.NewLocal(themeDir), Prefix: "theme"},
	)
	found := collect(t, f)

	require.Len(t, found, 2)
	assert.Equal(t, "app.js", found[0].DestinationPath)
	assert.Equal(t, "app.js", found[0].SourcePath)
	assert.Same(t, appSource, found[0].Source)
	assert.Equal(t, "theme/theme.css", found[1].DestinationPath)
	assert.Equal(t, "theme.css", found[1].SourcePath)
}

func TestFinder_IgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.css":          "body{}",
		"a.css.map":      "{}",
		"sass/_base.css": "p{}",
		".hidden":        "x",
		"notes.txt":      "hi",
	})

	f := finder.New(zerolog.Nop(), finder.Root{Source: storage.NewLocal(dir)}).
		WithIgnore("*.map", ".*", "sass/**")
	found := collect(t, f)

	assert.Equal(t, []string{"a.css", "notes.txt"}, destinations(found))
}

func TestFinder_IgnoreMatchesBaseName(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"deep/nested/thumbs.db": "x",
		"deep/nested/fine.css":  "p{}",
	})

	f := finder.New(zerolog.Nop(), finder.Root{Source: storage.NewLocal(dir)}).
		WithIgnore("thumbs.db")
	found := collect(t, f)

	assert.Equal(t, []string{"deep/nested/fine.css"}, destinations(found))
}

func TestFinder_CallbackErrorStopsWalk(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.css": "x",
		"b.css": "y",
		"c.css": "z",
	})

	var seen int
	err := finder.New(zerolog.Nop(), finder.Root{Source: storage.NewLocal(dir)}).
		Find(context.Background(), func(engine.FoundFile) error {
			seen++
			if seen == 2 {
				return assert.AnError
			}
			return nil
		})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, seen)
}

func TestFinder_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.css": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := finder.New(zerolog.Nop(), finder.Root{Source: storage.NewLocal(dir)}).
		Find(ctx, func(engine.FoundFile) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFinder_ReportsFileSizes(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.css": "12345"})

	found := collect(t, finder.New(zerolog.Nop(), finder.Root{Source: storage.NewLocal(dir)}))
	require.Len(t, found, 1)
	assert.Equal(t, int64(5), found[0].Size)
}
