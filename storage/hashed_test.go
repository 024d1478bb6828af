package storage_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cstatic/cstatic/storage"
)

func contentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])[:12]
}

func newHashedBackend(t *testing.T, files map[string]string) *storage.HashedLocal {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return storage.NewHashedLocal(storage.NewLocal(dir))
}

func modified(paths ...string) []storage.ModifiedFile {
	files := make([]storage.ModifiedFile, len(paths))
	for i, p := range paths {
		files[i] = storage.ModifiedFile{DestinationPath: p}
	}
	return files
}

func runPostProcess(t *testing.T, h *storage.HashedLocal, files []storage.ModifiedFile, dryRun bool) []storage.PostProcessResult {
	t.Helper()
	var results []storage.PostProcessResult
	err := h.PostProcess(context.Background(), files, dryRun, func(res storage.PostProcessResult) error {
		results = append(results, res)
		return nil
	})
	require.NoError(t, err)
	return results
}

func TestHashedLocal_HashesFiles(t *testing.T) {
	h := newHashedBackend(t, map[string]string{
		"css/styles.css": "body{}",
		"app.js":         "let x=1",
	})

	results := runPostProcess(t, h, modified("css/styles.css", "app.js"), false)
	require.Len(t, results, 2)

	wantCSS := fmt.Sprintf("css/styles.%s.css", contentHash("body{}"))
	assert.Equal(t, "css/styles.css", results[0].OriginalPath)
	assert.Equal(t, wantCSS, results[0].ProcessedPath)
	assert.True(t, results[0].Processed)

	wantJS := fmt.Sprintf("app.%s.js", contentHash("let x=1"))
	assert.Equal(t, wantJS, results[1].ProcessedPath)

	ok, err := h.Exists(context.Background(), wantCSS)
	require.NoError(t, err)
	assert.True(t, ok, "hashed copy missing")

	// The original stays in place next to its hashed twin.
	ok, err = h.Exists(context.Background(), "css/styles.css")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashedLocal_WritesManifest(t *testing.T) {
	h := newHashedBackend(t, map[string]string{"styles.css": "body{}"})

	runPostProcess(t, h, modified("styles.css"), false)

	paths, err := h.Manifest()
	require.NoError(t, err)
	want := fmt.Sprintf("styles.%s.css", contentHash("body{}"))
	assert.Equal(t, map[string]string{"styles.css": want}, paths)
}

func TestHashedLocal_SkipsExistingHashedTwin(t *testing.T) {
	hashed := fmt.Sprintf("styles.%s.css", contentHash("body{}"))
	h := newHashedBackend(t, map[string]string{
		"styles.css": "body{}",
		hashed:       "body{}",
	})

	results := runPostProcess(t, h, modified("styles.css"), false)
	require.Len(t, results, 1)
	assert.False(t, results[0].Processed)
	assert.Equal(t, hashed, results[0].ProcessedPath)
}

func TestHashedLocal_DryRunWritesNothing(t *testing.T) {
	h := newHashedBackend(t, map[string]string{"styles.css": "body{}"})

	results := runPostProcess(t, h, modified("styles.css"), true)
	require.Len(t, results, 1)
	assert.True(t, results[0].Processed)

	hashed := fmt.Sprintf("styles.%s.css", contentHash("body{}"))
	ok, err := h.Exists(context.Background(), hashed)
	require.NoError(t, err)
	assert.False(t, ok, "dry run wrote a hashed copy")

	_, err = h.Manifest()
	assert.Error(t, err, "dry run wrote a manifest")
}

func TestHashedLocal_MissingFileEmitsFailure(t *testing.T) {
	h := newHashedBackend(t, map[string]string{"present.css": "body{}"})

	results := runPostProcess(t, h, modified("missing.css", "present.css"), false)
	require.Len(t, results, 2)

	assert.Equal(t, "missing.css", results[0].OriginalPath)
	assert.Error(t, results[0].Err)

	// The failure is the callback's problem; the pass keeps going.
	assert.True(t, results[1].Processed)
}

func TestHashedLocal_EmitErrorAbortsPass(t *testing.T) {
	h := newHashedBackend(t, map[string]string{
		"a.css": "body{}",
		"b.css": "p{}",
	})

	calls := 0
	err := h.PostProcess(context.Background(), modified("a.css", "b.css"), false,
		func(res storage.PostProcessResult) error {
			calls++
			return assert.AnError
		})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}
