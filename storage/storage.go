package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents the standard metadata for a file or a directory
// across different storage abstractions.
type FileInfo interface {
	Name() string
	Size() int64
	IsDir() bool
	ModTime() time.Time
}

// Source is the read side of a storage abstraction. Static files are
// collected out of one or more sources; a source may be a local directory
// tree or a remote object store.
type Source interface {
	// Stat returns the FileInfo for the given path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// List returns the contents of the given directory.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Open opens a file for streaming reads.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Backend is the destination a collection run writes to. A typical Backend
// might be local storage, S3, or any S3-compatible object store.
//
// Backends must be safe for concurrent use: a parallel run issues Copy and
// Link calls from many workers at once.
type Backend interface {
	Source

	// Exists reports whether a file is already present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Copy streams the file at sourcePath within src to path within the
	// backend, overwriting any existing file.
	Copy(ctx context.Context, src Source, sourcePath, path string) error

	// Link makes the file at sourcePath within src available at path
	// without copying its contents where the backend supports it.
	// Backends without link semantics fall back to Copy.
	Link(ctx context.Context, src Source, sourcePath, path string) error

	// Delete removes the file at path. Deleting a missing file is not an
	// error.
	Delete(ctx context.Context, path string) error
}

// LocalPather is implemented by sources whose files live on the local
// filesystem. Link targets need a real path to point at.
type LocalPather interface {
	LocalPath(path string) (string, error)
}

// ModifiedFile is one entry of the record of files touched by a collection
// run: the destination path a file was collected as, plus the origin it was
// collected from.
type ModifiedFile struct {
	DestinationPath string
	SourcePath      string
	Source          Source
}

// PostProcessResult is the outcome of post-processing a single file.
// Exactly one of the three shapes holds: processed (Processed true,
// ProcessedPath set), skipped (Processed false, Err nil), or failed
// (Err set).
type PostProcessResult struct {
	OriginalPath  string
	ProcessedPath string
	Processed     bool
	Err           error
}

// PostProcessor is an optional Backend capability that transforms collected
// files after all transfers have finished (content-hash renaming and the
// like). Results are streamed through emit in file order; a non-nil error
// from emit stops the pass and is returned as-is.
type PostProcessor interface {
	PostProcess(ctx context.Context, files []ModifiedFile, dryRun bool, emit func(PostProcessResult) error) error
}
