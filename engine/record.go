package engine

import (
	"github.com/cstatic/cstatic/storage"
)

// Record is the insertion-ordered set of files touched by a collection run,
// keyed by destination path. It is populated by the single-threaded
// discovery pass, never by workers, so post-processing sees the origin of
// every file regardless of execution order.
//
// A duplicate destination path keeps its original position but takes the
// origin seen last.
type Record struct {
	order []string
	files map[string]storage.ModifiedFile
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{
		files: make(map[string]storage.ModifiedFile),
	}
}

// Set records destinationPath as collected from (src, sourcePath).
func (r *Record) Set(destinationPath, sourcePath string, src storage.Source) {
	if _, ok := r.files[destinationPath]; !ok {
		r.order = append(r.order, destinationPath)
	}
	r.files[destinationPath] = storage.ModifiedFile{
		DestinationPath: destinationPath,
		SourcePath:      sourcePath,
		Source:          src,
	}
}

// Get returns the entry for destinationPath.
func (r *Record) Get(destinationPath string) (storage.ModifiedFile, bool) {
	f, ok := r.files[destinationPath]
	return f, ok
}

// Len returns the number of distinct destination paths recorded.
func (r *Record) Len() int {
	return len(r.order)
}

// Files returns all entries in insertion order.
func (r *Record) Files() []storage.ModifiedFile {
	out := make([]storage.ModifiedFile, 0, len(r.order))
	for _, dest := range r.order {
		out = append(out, r.files[dest])
	}
	return out
}
