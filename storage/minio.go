package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ensure interface is implemented
var _ Backend = (*Minio)(nil)

// Minio is a Backend for any S3-compatible object store reachable through a
// custom endpoint (MinIO, Ceph RGW, and friends). Credentials come from the
// standard MinIO environment variables.
type Minio struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinio creates a Minio backend for the bucket at the given endpoint.
func NewMinio(endpoint, bucket, prefix string, secure bool) (*Minio, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewEnvMinio(),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create minio client for %s: %w", endpoint, err)
	}
	return &Minio{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (b *Minio) buildKey(subPath string) string {
	subPath = strings.TrimPrefix(subPath, "/")
	if b.prefix == "" {
		return subPath
	}
	return strings.TrimPrefix(path.Join(b.prefix, subPath), "/")
}

type minioFileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (f *minioFileInfo) Name() string       { return f.name }
func (f *minioFileInfo) Size() int64        { return f.size }
func (f *minioFileInfo) IsDir() bool        { return f.isDir }
func (f *minioFileInfo) ModTime() time.Time { return f.modTime }

func (b *Minio) Stat(ctx context.Context, pth string) (FileInfo, error) {
	key := b.buildKey(pth)
	stat, err := b.client.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("stat failed for %q: %w", pth, err)
	}
	return &minioFileInfo{
		name:    path.Base(key),
		size:    stat.Size,
		modTime: stat.LastModified,
	}, nil
}

func (b *Minio) List(ctx context.Context, pth string) ([]FileInfo, error) {
	dirPrefix := b.buildKey(pth)
	if dirPrefix != "" && !strings.HasSuffix(dirPrefix, "/") {
		dirPrefix += "/"
	}

	var infos []FileInfo
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    dirPrefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", pth, obj.Err)
		}

		name := strings.TrimPrefix(obj.Key, dirPrefix)
		if name == "" {
			continue
		}
		isDir := strings.HasSuffix(name, "/")
		if isDir {
			name = strings.TrimSuffix(name, "/")
		}
		infos = append(infos, &minioFileInfo{
			name:    name,
			size:    obj.Size,
			isDir:   isDir,
			modTime: obj.LastModified,
		})
	}
	return infos, nil
}

func (b *Minio) Open(ctx context.Context, pth string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.buildKey(pth), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", pth, err)
	}
	return obj, nil
}

func (b *Minio) Exists(ctx context.Context, pth string) (bool, error) {
	_, err := b.client.StatObject(ctx, b.bucket, b.buildKey(pth), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
			return false, nil
		}
		return false, fmt.Errorf("exists check failed for %q: %w", pth, err)
	}
	return true, nil
}

// Copy streams sourcePath from src into the bucket. The object size is
// unknown up front, so the client uses its streaming multipart path.
func (b *Minio) Copy(ctx context.Context, src Source, sourcePath, pth string) error {
	reader, err := src.Open(ctx, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", sourcePath, err)
	}
	defer reader.Close()

	size := int64(-1)
	if info, err := src.Stat(ctx, sourcePath); err == nil {
		size = info.Size()
	}

	_, err = b.client.PutObject(ctx, b.bucket, b.buildKey(pth), reader, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("upload of %s failed: %w", pth, err)
	}
	return nil
}

// Link has no object-store equivalent; the object is copied instead.
func (b *Minio) Link(ctx context.Context, src Source, sourcePath, pth string) error {
	return b.Copy(ctx, src, sourcePath, pth)
}

func (b *Minio) Delete(ctx context.Context, pth string) error {
	err := b.client.RemoveObject(ctx, b.bucket, b.buildKey(pth), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", pth, err)
	}
	return nil
}
