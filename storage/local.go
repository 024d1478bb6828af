package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type localFileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (l *localFileInfo) Name() string       { return l.name }
func (l *localFileInfo) Size() int64        { return l.size }
func (l *localFileInfo) IsDir() bool        { return l.isDir }
func (l *localFileInfo) ModTime() time.Time { return l.modTime }

func wrapOSFileInfo(info os.FileInfo) FileInfo {
	return &localFileInfo{
		name:    info.Name(),
		size:    info.Size(),
		isDir:   info.IsDir(),
		modTime: info.ModTime(),
	}
}

// ensure interfaces are implemented
var (
	_ Backend     = (*Local)(nil)
	_ LocalPather = (*Local)(nil)
)

// Local implements Source and Backend for posix-compliant local filesystems,
// rooted at a base directory. All paths are interpreted relative to the root.
type Local struct {
	basePath string
	buffers  *BufferPool
}

// NewLocal creates a new Local rooted at basePath.
// If basePath is empty, it acts upon absolute or relative paths directly.
func NewLocal(basePath string) *Local {
	return &Local{
		basePath: basePath,
		buffers:  NewBufferPool(0),
	}
}

// Root returns the base directory the storage is rooted at.
func (l *Local) Root() string { return l.basePath }

func (l *Local) resolve(path string) string {
	if l.basePath == "" {
		return filepath.FromSlash(path)
	}
	return filepath.Join(l.basePath, filepath.FromSlash(filepath.Clean(path)))
}

// LocalPath returns the absolute filesystem path for a storage path.
func (l *Local) LocalPath(path string) (string, error) {
	return filepath.Abs(l.resolve(path))
}

func (l *Local) Stat(ctx context.Context, path string) (FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	info, err := os.Stat(l.resolve(path))
	if err != nil {
		return nil, err
	}
	return wrapOSFileInfo(info), nil
}

func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(l.resolve(path))
	if err != nil {
		return nil, err
	}

	var infos []FileInfo
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue // skip files that disappeared between ReadDir and Info
		}
		infos = append(infos, wrapOSFileInfo(info))
	}
	return infos, nil
}

func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return os.Open(l.resolve(path))
}

func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	_, err := os.Lstat(l.resolve(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Copy streams sourcePath from src into path, creating parent directories
// as needed and preserving the source modification time.
func (l *Local) Copy(ctx context.Context, src Source, sourcePath, path string) error {
	reader, err := src.Open(ctx, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", sourcePath, err)
	}
	defer reader.Close()

	fullPath := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	// A symlink left by an earlier --link run must not be written through.
	if info, err := os.Lstat(fullPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(fullPath); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	buf := l.buffers.Get()
	_, copyErr := io.CopyBuffer(file, reader, *buf)
	l.buffers.Put(buf)

	if copyErr != nil {
		file.Close()
		return fmt.Errorf("failed to copy to %s: %w", path, copyErr)
	}
	if err := file.Close(); err != nil {
		return err
	}

	if info, err := src.Stat(ctx, sourcePath); err == nil && !info.ModTime().IsZero() {
		// Ignore errors on applying the timestamp.
		_ = os.Chtimes(fullPath, time.Now(), info.ModTime())
	}
	return nil
}

// Link symlinks path to the real location of sourcePath. Sources that do not
// expose filesystem paths are copied instead.
func (l *Local) Link(ctx context.Context, src Source, sourcePath, path string) error {
	pather, ok := src.(LocalPather)
	if !ok {
		return l.Copy(ctx, src, sourcePath, path)
	}

	target, err := pather.LocalPath(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to resolve link target for %s: %w", sourcePath, err)
	}

	fullPath := l.resolve(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Symlink(target, fullPath); err != nil {
		return fmt.Errorf("failed to link %s: %w", path, err)
	}
	return nil
}

func (l *Local) Delete(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := os.Remove(l.resolve(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
