package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketplace-auth/config"

	"github.com/redis/go-redis/v9"
)

// Record store paths, relative to the configured key prefix.
const (
	UserMetadataPath       = "user_metadata"
	ServiceInformationPath = "photographer_service_information"
)

// ServerTimestamp marks a field whose value is assigned by the store at
// write time, as epoch milliseconds.
const ServerTimestamp = "__SERVER_TIMESTAMP__"

var ErrNotFound = errors.New("record not found")

// Records is a point read/write client over a hierarchical key space.
// Set overwrites unconditionally; SetIfAbsent is the atomic
// create-if-absent primitive provisioning relies on; Update merges the
// provided fields into the stored object, leaving the rest untouched.
type Records interface {
	Once(ctx context.Context, path string, out interface{}) (bool, error)
	Set(ctx context.Context, path string, value interface{}) error
	SetIfAbsent(ctx context.Context, path string, value interface{}) (bool, error)
	Update(ctx context.Context, path string, fields map[string]interface{}) error
	Close() error
}

var timeNow = time.Now

var watchTx = func(ctx context.Context, client *redis.Client, fn func(*redis.Tx) error, keys ...string) error {
	return client.Watch(ctx, fn, keys...)
}

// updateRetries bounds the optimistic-locking retries when a concurrent
// writer invalidates the watched key.
const updateRetries = 3

type RedisRecords struct {
	client *redis.Client
	prefix string
}

func NewRedisRecords(cfg config.StoreConfig) (*RedisRecords, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("record store ping failed: %w", err)
	}

	return &RedisRecords{client: client, prefix: cfg.Prefix}, nil
}

func (r *RedisRecords) Once(ctx context.Context, path string, out interface{}) (bool, error) {
	payload, err := r.client.Get(ctx, r.key(path)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("record read %s: %w", path, err)
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return false, fmt.Errorf("record decode %s: %w", path, err)
		}
	}
	return true, nil
}

func (r *RedisRecords) Set(ctx context.Context, path string, value interface{}) error {
	payload, err := encodeRecord(value)
	if err != nil {
		return fmt.Errorf("record encode %s: %w", path, err)
	}
	if err := r.client.Set(ctx, r.key(path), payload, 0).Err(); err != nil {
		return fmt.Errorf("record write %s: %w", path, err)
	}
	return nil
}

func (r *RedisRecords) SetIfAbsent(ctx context.Context, path string, value interface{}) (bool, error) {
	payload, err := encodeRecord(value)
	if err != nil {
		return false, fmt.Errorf("record encode %s: %w", path, err)
	}
	created, err := r.client.SetNX(ctx, r.key(path), payload, 0).Result()
	if err != nil {
		return false, fmt.Errorf("record write %s: %w", path, err)
	}
	return created, nil
}

func (r *RedisRecords) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	key := r.key(path)
	merge := func(tx *redis.Tx) error {
		current := make(map[string]interface{})
		payload, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			if err := json.Unmarshal(payload, &current); err != nil {
				return fmt.Errorf("record decode %s: %w", path, err)
			}
		}
		for field, value := range resolveTimestamps(fields) {
			current[field] = value
		}
		merged, err := json.Marshal(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, merged, 0)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < updateRetries; attempt++ {
		err = watchTx(ctx, r.client, merge, key)
		if err != redis.TxFailedErr {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("record update %s: %w", path, err)
	}
	return nil
}

func (r *RedisRecords) Close() error {
	return r.client.Close()
}

func (r *RedisRecords) key(path string) string {
	return fmt.Sprintf("%s:%s", r.prefix, path)
}

// encodeRecord marshals a record after resolving server timestamp
// sentinels in its top-level fields.
func encodeRecord(value interface{}) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Not an object; store as-is.
		return raw, nil
	}
	return json.Marshal(resolveTimestamps(fields))
}

func resolveTimestamps(fields map[string]interface{}) map[string]interface{} {
	resolved := make(map[string]interface{}, len(fields))
	now := timeNow().UTC().UnixMilli()
	for field, value := range fields {
		if sentinel, ok := value.(string); ok && sentinel == ServerTimestamp {
			resolved[field] = now
			continue
		}
		resolved[field] = value
	}
	return resolved
}

// Path joins a record store collection and a child key.
func Path(parts ...string) string {
	path := ""
	for i, part := range parts {
		if i > 0 {
			path += "/"
		}
		path += part
	}
	return path
}
