package config

import (
	"fmt"
	"strings"
)

// DestinationKind selects the storage backend for a destination.
type DestinationKind int

const (
	// DestinationLocal is a directory on the local filesystem.
	DestinationLocal DestinationKind = iota
	// DestinationS3 is an AWS S3 bucket.
	DestinationS3
	// DestinationMinio is an S3-compatible store at a custom endpoint.
	DestinationMinio
)

// Destination is a parsed destination URL.
type Destination struct {
	Kind DestinationKind

	// Path is the local directory (DestinationLocal only).
	Path string

	// Bucket and Prefix locate objects (S3 and MinIO).
	Bucket string
	Prefix string

	// Endpoint and Secure select the server (MinIO only). Secure is false
	// for the "minio+http://" scheme.
	Endpoint string
	Secure   bool
}

// ParseDestination parses a destination string:
//
//	/srv/www/static               local directory
//	s3://bucket/static            AWS S3
//	minio://host:9000/bucket/pfx  S3-compatible endpoint over TLS
//	minio+http://host:9000/bucket S3-compatible endpoint over plain HTTP
func ParseDestination(raw string) (Destination, error) {
	switch {
	case strings.HasPrefix(raw, "s3://"):
		bucket, prefix, err := splitBucket(strings.TrimPrefix(raw, "s3://"))
		if err != nil {
			return Destination{}, err
		}
		return Destination{Kind: DestinationS3, Bucket: bucket, Prefix: prefix}, nil

	case strings.HasPrefix(raw, "minio://"):
		return parseMinio(strings.TrimPrefix(raw, "minio://"), true)

	case strings.HasPrefix(raw, "minio+http://"):
		return parseMinio(strings.TrimPrefix(raw, "minio+http://"), false)
	}

	if strings.Contains(raw, "://") {
		return Destination{}, fmt.Errorf("unsupported destination scheme in %q", raw)
	}
	return Destination{Kind: DestinationLocal, Path: raw}, nil
}

func parseMinio(rest string, secure bool) (Destination, error) {
	endpoint, bucketAndPrefix, ok := strings.Cut(rest, "/")
	if !ok || endpoint == "" {
		return Destination{}, fmt.Errorf("minio destination needs endpoint and bucket, got %q", rest)
	}
	bucket, prefix, err := splitBucket(bucketAndPrefix)
	if err != nil {
		return Destination{}, err
	}
	return Destination{
		Kind:     DestinationMinio,
		Bucket:   bucket,
		Prefix:   prefix,
		Endpoint: endpoint,
		Secure:   secure,
	}, nil
}

func splitBucket(s string) (bucket, prefix string, err error) {
	bucket, prefix, _ = strings.Cut(s, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("destination is missing a bucket name")
	}
	return bucket, strings.TrimSuffix(prefix, "/"), nil
}
