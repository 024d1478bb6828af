package engine

import (
	"fmt"

	"github.com/cstatic/cstatic/storage"
)

// Op is the kind of transfer a task performs.
type Op int

const (
	// OpCopy copies the file contents to the destination backend.
	OpCopy Op = iota
	// OpLink links the file into the destination where supported.
	OpLink
)

func (o Op) String() string {
	if o == OpLink {
		return "link"
	}
	return "copy"
}

// TransferTask represents a single file transfer from a source storage to
// the destination backend. Tasks are created during discovery and either
// executed inline (sequential mode) or queued for the worker pool.
type TransferTask struct {
	// Op selects copy or link.
	Op Op

	// SourcePath is the file path within Source to read from.
	SourcePath string

	// DestinationPath is the path the file is collected as. It uniquely
	// identifies a logical file within a run.
	DestinationPath string

	// Source is the storage the file originates from.
	Source storage.Source

	// Size is the source file size as seen at discovery, used for
	// progress reporting only.
	Size int64
}

// TransferError is a failed copy or link of a single file. The destination
// path leads the message so it survives truncated output.
type TransferError struct {
	Op              Op
	DestinationPath string
	Err             error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.DestinationPath, e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// PostProcessError wraps a backend-reported post-processing failure for one
// file. Post-processing failures are always fatal to the run.
type PostProcessError struct {
	Path string
	Err  error
}

func (e *PostProcessError) Error() string {
	return fmt.Sprintf("%s: post-processing failed: %v", e.Path, e.Err)
}

func (e *PostProcessError) Unwrap() error { return e.Err }
