package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FSStore keeps each bucket as a directory under Root. Content types are
// derived from the key extension.
type FSStore struct {
	Root string
}

func NewFSStore(root string) *FSStore {
	return &FSStore{Root: root}
}

// CreateBucket makes the bucket directory. Provisioning helper for tests and
// local setups.
func (s *FSStore) CreateBucket(name string) error {
	if err := validKey(name); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(s.Root, name), 0755)
}

func (s *FSStore) Bucket(_ context.Context, name string) (Bucket, error) {
	if err := validKey(name); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.Root, name)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("stat bucket %s: %w", name, err)
	}
	return &fsBucket{name: name, dir: dir}, nil
}

func (s *FSStore) Close() error { return nil }

type fsBucket struct {
	name string
	dir  string
}

func (b *fsBucket) Name() string { return b.name }

func (b *fsBucket) path(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	return filepath.Join(b.dir, filepath.FromSlash(key)), nil
}

func (b *fsBucket) Stat(_ context.Context, key string) (ObjectInfo, error) {
	p, err := b.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return ObjectInfo{}, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, b.name, key)
	}
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s/%s: %w", b.name, key, err)
	}
	return ObjectInfo{
		Key:         key,
		Size:        info.Size(),
		ContentType: contentTypeFor(key),
		Updated:     info.ModTime(),
	}, nil
}

func (b *fsBucket) Get(ctx context.Context, key string) ([]byte, error) {
	if _, err := b.Stat(ctx, key); err != nil {
		return nil, err
	}
	p, _ := b.path(key)
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", b.name, key, err)
	}
	return data, nil
}

func (b *fsBucket) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	// Write then rename so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(p), ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s/%s: %w", b.name, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s/%s: %w", b.name, key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("write %s/%s: %w", b.name, key, err)
	}
	return nil
}

func (b *fsBucket) Copy(ctx context.Context, srcKey, dstKey string) error {
	data, err := b.Get(ctx, srcKey)
	if err != nil {
		return err
	}
	return b.Put(ctx, dstKey, data, contentTypeFor(srcKey))
}
