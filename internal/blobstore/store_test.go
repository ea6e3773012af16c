package blobstore

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type provisioner func(t *testing.T) (Store, func(name string))

func fsProvisioner(t *testing.T) (Store, func(string)) {
	s := NewFSStore(t.TempDir())
	return s, func(name string) { require.NoError(t, s.CreateBucket(name)) }
}

func redisProvisioner(t *testing.T) (Store, func(string)) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(srv.Close)
	s, err := NewRedisStore("redis://" + srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, func(name string) { require.NoError(t, s.CreateBucket(context.Background(), name)) }
}

func TestStores(t *testing.T) {
	for name, p := range map[string]provisioner{"fs": fsProvisioner, "redis": redisProvisioner} {
		t.Run(name, func(t *testing.T) {
			store, create := p(t)
			ctx := context.Background()

			_, err := store.Bucket(ctx, "badges")
			require.ErrorIs(t, err, ErrBucketNotFound)

			create("badges")
			b, err := store.Bucket(ctx, "badges")
			require.NoError(t, err)
			assert.Equal(t, "badges", b.Name())

			_, err = b.Stat(ctx, "badges/success.svg")
			require.ErrorIs(t, err, ErrObjectNotFound)
			_, err = b.Get(ctx, "badges/success.svg")
			require.ErrorIs(t, err, ErrObjectNotFound)
			err = b.Copy(ctx, "badges/success.svg", "builds/x.svg")
			require.ErrorIs(t, err, ErrObjectNotFound)

			require.NoError(t, b.Put(ctx, "badges/success.svg", []byte("<svg>ok</svg>"), ""))
			info, err := b.Stat(ctx, "badges/success.svg")
			require.NoError(t, err)
			assert.Equal(t, int64(len("<svg>ok</svg>")), info.Size)
			assert.Equal(t, "image/svg+xml", info.ContentType)

			require.NoError(t, b.Copy(ctx, "badges/success.svg", "builds/arcs/branches/master.svg"))
			got, err := b.Get(ctx, "builds/arcs/branches/master.svg")
			require.NoError(t, err)
			assert.Equal(t, "<svg>ok</svg>", string(got))

			// Overwrite: last write wins.
			require.NoError(t, b.Put(ctx, "badges/failure.svg", []byte("<svg>bad</svg>"), ""))
			require.NoError(t, b.Copy(ctx, "badges/failure.svg", "builds/arcs/branches/master.svg"))
			got, err = b.Get(ctx, "builds/arcs/branches/master.svg")
			require.NoError(t, err)
			assert.Equal(t, "<svg>bad</svg>", string(got))

			_, err = b.Stat(ctx, "../escape")
			assert.Error(t, err)
		})
	}
}

func TestOpenURL(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenURL("file://" + dir)
	require.NoError(t, err)
	fsStore, ok := s.(*FSStore)
	require.True(t, ok)
	assert.Equal(t, dir, fsStore.Root)

	s, err = OpenURL("file://./blobs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("./blobs"), filepath.Clean(s.(*FSStore).Root))

	_, err = OpenURL("s3://bucket")
	assert.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/svg+xml", contentTypeFor("a/b.svg"))
	assert.Equal(t, "image/png", contentTypeFor("a.png"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("a.bin"))
}
