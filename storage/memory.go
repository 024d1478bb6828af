package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// ensure interface is implemented
var _ Backend = (*Memory)(nil)

// Memory is an in-memory Backend used by tests and dry runs. It is safe for
// concurrent use and can be told to fail specific paths to exercise error
// handling.
type Memory struct {
	mu    sync.Mutex
	files map[string]*memFile
	fail  map[string]error
}

type memFile struct {
	data    []byte
	modTime time.Time
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		files: make(map[string]*memFile),
		fail:  make(map[string]error),
	}
}

// SetFile stores content at path with the given modification time.
func (m *Memory) SetFile(pth string, data []byte, modTime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[normalize(pth)] = &memFile{data: append([]byte(nil), data...), modTime: modTime}
}

// FailWith makes every Copy or Link targeting path return err.
func (m *Memory) FailWith(pth string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[normalize(pth)] = err
}

// Content returns the stored bytes at path, if any.
func (m *Memory) Content(pth string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[normalize(pth)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.data...), true
}

// Paths returns all stored paths in sorted order.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func normalize(pth string) string {
	return strings.TrimPrefix(path.Clean("/"+pth), "/")
}

type memFileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return f.size }
func (f *memFileInfo) IsDir() bool        { return f.isDir }
func (f *memFileInfo) ModTime() time.Time { return f.modTime }

func (m *Memory) Stat(ctx context.Context, pth string) (FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalize(pth)
	if f, ok := m.files[key]; ok {
		return &memFileInfo{
			name:    path.Base(key),
			size:    int64(len(f.data)),
			modTime: f.modTime,
		}, nil
	}

	// Directories exist implicitly when something lives under them.
	dirPrefix := key + "/"
	if key == "" {
		dirPrefix = ""
	}
	for p := range m.files {
		if strings.HasPrefix(p, dirPrefix) {
			return &memFileInfo{name: path.Base(key), isDir: true}, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s", pth)
}

func (m *Memory) List(ctx context.Context, pth string) ([]FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirPrefix := normalize(pth)
	if dirPrefix != "" {
		dirPrefix += "/"
	}

	seen := make(map[string]*memFileInfo)
	for p, f := range m.files {
		if !strings.HasPrefix(p, dirPrefix) {
			continue
		}
		rest := strings.TrimPrefix(p, dirPrefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name := rest[:i]
			seen[name] = &memFileInfo{name: name, isDir: true}
		} else {
			seen[rest] = &memFileInfo{
				name:    rest,
				size:    int64(len(f.data)),
				modTime: f.modTime,
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]FileInfo, 0, len(names))
	for _, name := range names {
		infos = append(infos, seen[name])
	}
	return infos, nil
}

func (m *Memory) Open(ctx context.Context, pth string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[normalize(pth)]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", pth)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (m *Memory) Exists(ctx context.Context, pth string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[normalize(pth)]
	return ok, nil
}

func (m *Memory) Copy(ctx context.Context, src Source, sourcePath, pth string) error {
	m.mu.Lock()
	if err, ok := m.fail[normalize(pth)]; ok {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	reader, err := src.Open(ctx, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", sourcePath, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to copy to %s: %w", pth, err)
	}

	modTime := time.Now()
	if info, err := src.Stat(ctx, sourcePath); err == nil {
		modTime = info.ModTime()
	}
	m.SetFile(pth, data, modTime)
	return nil
}

func (m *Memory) Link(ctx context.Context, src Source, sourcePath, pth string) error {
	return m.Copy(ctx, src, sourcePath, pth)
}

func (m *Memory) Delete(ctx context.Context, pth string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, normalize(pth))
	return nil
}
