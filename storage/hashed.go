package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// ManifestName is the file the hashed post-processor writes its
// original-to-hashed path mapping to, relative to the backend root.
const ManifestName = "staticmanifest.json"

const manifestVersion = "1.0"

// ensure interfaces are implemented
var (
	_ Backend       = (*HashedLocal)(nil)
	_ PostProcessor = (*HashedLocal)(nil)
)

// HashedLocal is a Local backend with a post-processing pass that copies
// every collected file to a content-addressed name (style.css becomes
// style.55e7cbb9ba48.css) and records the mapping in a manifest, so servers
// can hand out far-future cache headers.
type HashedLocal struct {
	*Local
}

// NewHashedLocal wraps a Local backend with content-hash post-processing.
func NewHashedLocal(local *Local) *HashedLocal {
	return &HashedLocal{Local: local}
}

type manifest struct {
	Version string            `json:"version"`
	Paths   map[string]string `json:"paths"`
}

// PostProcess hashes every file in the collected set and emits one result
// per file in order. Files whose hashed twin already exists are skipped.
// An unreadable file is emitted as failed; whether that aborts the pass is
// up to the emit callback.
func (h *HashedLocal) PostProcess(ctx context.Context, files []ModifiedFile, dryRun bool, emit func(PostProcessResult) error) error {
	m := manifest{
		Version: manifestVersion,
		Paths:   make(map[string]string, len(files)),
	}

	for _, f := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sum, err := h.hashFile(ctx, f.DestinationPath)
		if err != nil {
			if emitErr := emit(PostProcessResult{OriginalPath: f.DestinationPath, Err: err}); emitErr != nil {
				return emitErr
			}
			continue
		}

		hashed := hashedName(f.DestinationPath, sum)
		m.Paths[f.DestinationPath] = hashed

		exists, err := h.Exists(ctx, hashed)
		if err != nil {
			if emitErr := emit(PostProcessResult{OriginalPath: f.DestinationPath, Err: err}); emitErr != nil {
				return emitErr
			}
			continue
		}
		if exists {
			if emitErr := emit(PostProcessResult{OriginalPath: f.DestinationPath, ProcessedPath: hashed}); emitErr != nil {
				return emitErr
			}
			continue
		}

		if !dryRun {
			if err := h.Copy(ctx, h.Local, f.DestinationPath, hashed); err != nil {
				if emitErr := emit(PostProcessResult{OriginalPath: f.DestinationPath, Err: err}); emitErr != nil {
					return emitErr
				}
				continue
			}
		}

		if emitErr := emit(PostProcessResult{
			OriginalPath:  f.DestinationPath,
			ProcessedPath: hashed,
			Processed:     true,
		}); emitErr != nil {
			return emitErr
		}
	}

	if dryRun {
		return nil
	}
	return h.writeManifest(m)
}

// hashFile computes the md5 digest of the file at path within the backend.
func (h *HashedLocal) hashFile(ctx context.Context, pth string) (string, error) {
	reader, err := h.Open(ctx, pth)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", pth, err)
	}
	defer reader.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", pth, err)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:12], nil
}

// hashedName inserts the content hash before the file extension:
// css/styles.css -> css/styles.55e7cbb9ba48.css.
func hashedName(pth, sum string) string {
	ext := path.Ext(pth)
	base := pth[:len(pth)-len(ext)]
	return base + "." + sum + ext
}

func (h *HashedLocal) writeManifest(m manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	fullPath := filepath.Join(h.Root(), ManifestName)
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Manifest reads the post-processing manifest written by a previous run.
func (h *HashedLocal) Manifest() (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(h.Root(), ManifestName))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return m.Paths, nil
}
