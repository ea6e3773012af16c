package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisURL = "redis://localhost:6379"
	bucketsKey      = "blob:buckets"
)

// RedisStore keeps objects as plain string values. Buckets are members of
// the blob:buckets set.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to url and pings the server.
func NewRedisStore(url string) (*RedisStore, error) {
	if url == "" {
		url = defaultRedisURL
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// CreateBucket registers a bucket name.
func (s *RedisStore) CreateBucket(ctx context.Context, name string) error {
	if err := validKey(name); err != nil {
		return err
	}
	return s.client.SAdd(ctx, bucketsKey, name).Err()
}

func (s *RedisStore) Bucket(ctx context.Context, name string) (Bucket, error) {
	ok, err := s.client.SIsMember(ctx, bucketsKey, name).Result()
	if err != nil {
		return nil, fmt.Errorf("lookup bucket %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}
	return &redisBucket{client: s.client, name: name}, nil
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

type redisBucket struct {
	client *redis.Client
	name   string
}

func (b *redisBucket) Name() string { return b.name }

func (b *redisBucket) objectKey(key string) string {
	return "blob:" + b.name + ":" + key
}

func (b *redisBucket) metaKey(key string) string {
	return "blob:meta:" + b.name + ":" + key
}

func (b *redisBucket) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if err := validKey(key); err != nil {
		return ObjectInfo{}, err
	}
	pipe := b.client.Pipeline()
	sizeCmd := pipe.StrLen(ctx, b.objectKey(key))
	existsCmd := pipe.Exists(ctx, b.objectKey(key))
	metaCmd := pipe.HGetAll(ctx, b.metaKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s/%s: %w", b.name, key, err)
	}
	if existsCmd.Val() == 0 {
		return ObjectInfo{}, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, b.name, key)
	}

	info := ObjectInfo{Key: key, Size: sizeCmd.Val(), ContentType: contentTypeFor(key)}
	meta := metaCmd.Val()
	if ct := meta["content_type"]; ct != "" {
		info.ContentType = ct
	}
	if ts, err := strconv.ParseInt(meta["updated"], 10, 64); err == nil {
		info.Updated = time.Unix(0, ts)
	}
	return info, nil
}

func (b *redisBucket) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	data, err := b.client.Get(ctx, b.objectKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s/%s", ErrObjectNotFound, b.name, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", b.name, key, err)
	}
	return data, nil
}

func (b *redisBucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if contentType == "" {
		contentType = contentTypeFor(key)
	}
	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.objectKey(key), data, 0)
	pipe.HSet(ctx, b.metaKey(key),
		"content_type", contentType,
		"updated", strconv.FormatInt(time.Now().UnixNano(), 10),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write %s/%s: %w", b.name, key, err)
	}
	return nil
}

func (b *redisBucket) Copy(ctx context.Context, srcKey, dstKey string) error {
	info, err := b.Stat(ctx, srcKey)
	if err != nil {
		return err
	}
	data, err := b.Get(ctx, srcKey)
	if err != nil {
		return err
	}
	return b.Put(ctx, dstKey, data, info.ContentType)
}
