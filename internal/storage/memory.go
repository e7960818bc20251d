package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"carehub/pkg/platform/sentinel"
)

// InMemoryGateway backs tests and dev mode. FailPath arms a one-shot upload
// failure for paths containing a marker, so saga compensation can be
// exercised even though object keys embed freshly minted identity IDs.
type InMemoryGateway struct {
	mu       sync.Mutex
	objects  map[string][]byte // key: bucket/path
	failSubs []string
}

// NewInMemory builds an empty in-memory gateway.
func NewInMemory() *InMemoryGateway {
	return &InMemoryGateway{objects: make(map[string][]byte)}
}

// FailPath makes the next Upload whose path contains sub fail.
func (g *InMemoryGateway) FailPath(sub string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failSubs = append(g.failSubs, sub)
}

func (g *InMemoryGateway) Upload(_ context.Context, bucket, path string, content io.Reader, _ int64, _ string) (Ref, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return Ref{}, fmt.Errorf("read content: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for i, sub := range g.failSubs {
		if strings.Contains(path, sub) {
			g.failSubs = append(g.failSubs[:i], g.failSubs[i+1:]...)
			return Ref{}, fmt.Errorf("upload %s/%s: %w", bucket, path, sentinel.ErrUnavailable)
		}
	}

	g.objects[objectKey(bucket, path)] = data
	return Ref{Bucket: bucket, Path: path, PublicURL: g.PublicURL(bucket, path)}, nil
}

func (g *InMemoryGateway) Remove(_ context.Context, bucket string, paths []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, path := range paths {
		delete(g.objects, objectKey(bucket, path))
	}
	return nil
}

func (g *InMemoryGateway) PublicURL(bucket, path string) string {
	return fmt.Sprintf("memory://%s/%s", bucket, path)
}

// Exists reports whether an object is stored. Test helper.
func (g *InMemoryGateway) Exists(bucket, path string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.objects[objectKey(bucket, path)]
	return ok
}

// Count returns the number of stored objects. Test helper.
func (g *InMemoryGateway) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.objects)
}

func objectKey(bucket, path string) string {
	return bucket + "/" + path
}
