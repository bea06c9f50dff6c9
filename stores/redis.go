package stores

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store over one redis keyspace prefix. Each record
// is a redis hash; fields hold JSON-encoded values so that nested maps and
// non-string types survive the round trip. HSET gives the per-field atomic
// update the store contract requires, across processes.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// updateScript sets a hash field only when the key already exists, so a
// strict Update on a deleted record reports NotFound instead of resurrecting it.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  return 1
end
return 0
`)

// NewRedisStore creates a store over the given client. The prefix
// namespaces all keys, e.g. "abaco:actors".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// NewClient builds a redis client from a connection URL and verifies the
// connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

// Get returns the record at key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) (Record, error) {
	raw, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}
	return decodeRecord(raw)
}

// Set replaces the whole record at key. The delete and rewrite run in one
// transaction so concurrent readers never observe a half-written record.
func (s *RedisStore) Set(ctx context.Context, key string, rec Record) error {
	fields, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(key))
	if len(fields) > 0 {
		pipe.HSet(ctx, s.key(key), fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}
	return nil
}

// Update sets a single field atomically; ErrNotFound if the record is absent.
func (s *RedisStore) Update(ctx context.Context, key, field string, value interface{}) error {
	enc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode field %s: %w", field, err)
	}
	n, err := updateScript.Run(ctx, s.client, []string{s.key(key)}, field, string(enc)).Int()
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetField sets a single field atomically, creating the record if needed.
func (s *RedisStore) SetField(ctx context.Context, key, field string, value interface{}) error {
	enc, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode field %s: %w", field, err)
	}
	if err := s.client.HSet(ctx, s.key(key), field, string(enc)).Err(); err != nil {
		return fmt.Errorf("failed to set field %s on %s: %w", field, key, err)
	}
	return nil
}

// Delete removes the record at key. Idempotent.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// Items enumerates every record under the store's prefix.
func (s *RedisStore) Items(ctx context.Context) (map[string]Record, error) {
	out := make(map[string]Record)
	match := s.prefix + ":*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan store %s: %w", s.prefix, err)
		}
		for _, full := range keys {
			raw, err := s.client.HGetAll(ctx, full).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to read record %s: %w", full, err)
			}
			if len(raw) == 0 {
				// deleted between scan and read
				continue
			}
			rec, err := decodeRecord(raw)
			if err != nil {
				return nil, err
			}
			out[full[len(s.prefix)+1:]] = rec
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func encodeRecord(rec Record) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
		}
		fields[k] = string(enc)
	}
	return fields, nil
}

func decodeRecord(raw map[string]string) (Record, error) {
	rec := make(Record, len(raw))
	for k, v := range raw {
		var val interface{}
		if err := json.Unmarshal([]byte(v), &val); err != nil {
			return nil, fmt.Errorf("failed to decode field %s: %w", k, err)
		}
		rec[k] = val
	}
	return rec, nil
}
