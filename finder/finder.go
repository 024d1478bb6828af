// Package finder enumerates the static files of one or more source storages.
// It implements the engine's Finder interface with an iterative (stack-based)
// walk, avoiding deep recursion on very deep directory structures.
package finder

import (
	"context"
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/cstatic/cstatic/engine"
	"github.com/cstatic/cstatic/storage"
)

// Root is one source to collect from. Prefix, when set, is prepended to
// every destination path produced from this root.
type Root struct {
	Source storage.Source
	Prefix string
}

// Finder walks a set of roots and yields every file, in deterministic
// order, that doesn't match an ignore pattern.
type Finder struct {
	roots  []Root
	ignore []string
	log    zerolog.Logger
}

// New creates a Finder over the given roots.
func New(log zerolog.Logger, roots ...Root) *Finder {
	return &Finder{
		roots: roots,
		log:   log,
	}
}

// WithIgnore adds doublestar glob patterns; a file is skipped when its
// source-relative path or its base name matches any of them.
func (f *Finder) WithIgnore(patterns ...string) *Finder {
	f.ignore = append(f.ignore, patterns...)
	return f
}

// Find walks every root and calls fn once per file. Roots are walked in
// order; within a root, directories are visited depth-first in lexical
// order. A non-nil error from fn stops the walk.
func (f *Finder) Find(ctx context.Context, fn func(engine.FoundFile) error) error {
	for _, root := range f.roots {
		if err := f.walkRoot(ctx, root, fn); err != nil {
			return err
		}
	}
	return nil
}

func (f *Finder) walkRoot(ctx context.Context, root Root, fn func(engine.FoundFile) error) error {
	stack := []string{""}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Pop the most recently pushed directory.
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := root.Source.List(ctx, dir)
		if err != nil {
			return fmt.Errorf("failed to list directory %q: %w", dir, err)
		}

		// Entries come back in lexical order; pushing subdirectories in
		// reverse keeps the depth-first visit lexical too.
		var dirs []string
		for _, entry := range entries {
			relPath := entry.Name()
			if dir != "" {
				relPath = path.Join(dir, entry.Name())
			}

			if entry.IsDir() {
				dirs = append(dirs, relPath)
				continue
			}

			if f.ignored(relPath) {
				f.log.Debug().Str("path", relPath).Msg("ignoring file")
				continue
			}

			found := engine.FoundFile{
				SourcePath:      relPath,
				DestinationPath: path.Join(root.Prefix, relPath),
				Source:          root.Source,
				Size:            entry.Size(),
			}
			if err := fn(found); err != nil {
				return err
			}
		}

		for i := len(dirs) - 1; i >= 0; i-- {
			stack = append(stack, dirs[i])
		}
	}

	return nil
}

func (f *Finder) ignored(relPath string) bool {
	base := path.Base(relPath)
	for _, pattern := range f.ignore {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
