package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cstatic/cstatic/storage"
)

func TestMemory_ImplicitDirectories(t *testing.T) {
	m := storage.NewMemory()
	m.SetFile("css/vendor/grid.css", []byte("div{}"), testModTime)
	m.SetFile("css/site.css", []byte("p{}"), testModTime)
	m.SetFile("a.css", []byte("body{}"), testModTime)
	ctx := context.Background()

	info, err := m.Stat(ctx, "css")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := m.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.css", entries[0].Name())
	assert.Equal(t, "css", entries[1].Name())
	assert.True(t, entries[1].IsDir())

	entries, err = m.List(ctx, "css")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "site.css", entries[0].Name())
	assert.Equal(t, "vendor", entries[1].Name())
}

func TestMemory_CopyFromSource(t *testing.T) {
	src := storage.NewMemory()
	src.SetFile("a.css", []byte("body{}"), testModTime)

	dest := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, dest.Copy(ctx, src, "a.css", "static/a.css"))

	data, ok := dest.Content("static/a.css")
	require.True(t, ok)
	assert.Equal(t, "body{}", string(data))

	info, err := dest.Stat(ctx, "static/a.css")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(testModTime))
}

func TestMemory_FailureInjection(t *testing.T) {
	src := storage.NewMemory()
	src.SetFile("a.css", []byte("body{}"), testModTime)

	dest := storage.NewMemory()
	dest.FailWith("static/a.css", assert.AnError)

	err := dest.Copy(context.Background(), src, "a.css", "static/a.css")
	assert.ErrorIs(t, err, assert.AnError)
	_, ok := dest.Content("static/a.css")
	assert.False(t, ok)
}
