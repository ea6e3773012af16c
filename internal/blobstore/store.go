package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	Updated     time.Time
}

// Store hands out buckets by name.
type Store interface {
	Bucket(ctx context.Context, name string) (Bucket, error)
	Close() error
}

// Bucket is a flat key space of objects. Concurrent writes to the same key
// are last write wins.
type Bucket interface {
	Name() string
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
}

// OpenURL opens a store from a URL: file:///path or redis://host:port/db.
func OpenURL(rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse blob store url: %w", err)
	}
	switch u.Scheme {
	case "file", "":
		root := u.Path
		if u.Host != "" && u.Host != "localhost" {
			// file://./blobs style relative paths
			root = u.Host + u.Path
		}
		if root == "" {
			return nil, fmt.Errorf("blob store url %q has no path", rawURL)
		}
		return NewFSStore(root), nil
	case "redis", "rediss":
		return NewRedisStore(rawURL)
	default:
		return nil, fmt.Errorf("unsupported blob store scheme %q", u.Scheme)
	}
}

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid object key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("invalid object key %q", key)
		}
	}
	return nil
}
