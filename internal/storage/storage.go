// Package storage is the object storage gateway for provider documents and
// images. The registration saga uploads through it and deletes through it
// during compensation; nothing else in the system touches object storage.
package storage

import (
	"context"
	"io"
)

// Ref points at one stored object.
type Ref struct {
	Bucket    string
	Path      string
	PublicURL string
}

// Gateway abstracts the S3-compatible backend.
//
// Remove is best-effort batch deletion for compensation: it attempts every
// path and returns the first error after trying them all, so one stubborn
// object never leaves the rest behind.
type Gateway interface {
	Upload(ctx context.Context, bucket, path string, content io.Reader, size int64, contentType string) (Ref, error)
	Remove(ctx context.Context, bucket string, paths []string) error
	PublicURL(bucket, path string) string
}
