// Package redisstore keeps each collection in a Redis hash. A batch is applied
// by a Lua script, which Redis runs atomically.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/moguls753/docbench/internal/benchmark"
)

const (
	StatusConflict = "409"
	StatusNotFound = "404"
)

// KEYS[1] records hash, KEYS[2] meta hash, ARGV field/value pairs.
var submitScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 0 then
  return '404'
end
for i = 1, #ARGV, 2 do
  if redis.call('HEXISTS', KEYS[1], ARGV[i]) == 1 then
    return '409 ' .. ARGV[i]
  end
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 'OK'
`)

type Options struct {
	Endpoint         string
	AccessKey        string
	Database         string
	PoolSize         int
	PartitionKeyPath string
}

type Store struct {
	client   *redis.Client
	keyField string
}

// Open creates a client for opts. Database is the numeric Redis DB index.
func Open(opts Options) (*Store, error) {
	db := 0
	if opts.Database != "" {
		n, err := strconv.Atoi(opts.Database)
		if err != nil {
			return nil, fmt.Errorf("redis database must be a number, got %q", opts.Database)
		}
		db = n
	}

	ro := &redis.Options{
		Addr:     opts.Endpoint,
		DB:       db,
		PoolSize: opts.PoolSize,
	}
	if user, password, found := strings.Cut(opts.AccessKey, ":"); found {
		ro.Username, ro.Password = user, password
	} else {
		ro.Password = opts.AccessKey
	}

	return &Store{client: redis.NewClient(ro), keyField: benchmark.PartitionKeyField(opts.PartitionKeyPath)}, nil
}

func recordsKey(name string) string { return name + ":records" }
func metaKey(name string) string    { return name + ":meta" }

func field(partitionKey, id string) string { return partitionKey + ":" + id }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *Store) CreateCollection(ctx context.Context, spec benchmark.CollectionSpec) error {
	s.keyField = benchmark.PartitionKeyField(spec.PartitionKeyPath)
	err := s.client.HSet(ctx, metaKey(spec.Name),
		"partitionKeyPath", spec.PartitionKeyPath,
		"throughput", spec.Throughput,
	).Err()
	if err != nil {
		return fmt.Errorf("create collection %s: %w", spec.Name, err)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	n, err := s.client.Del(ctx, metaKey(name), recordsKey(name)).Result()
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("collection %s does not exist", name)
	}
	return nil
}

func (s *Store) SubmitBatch(ctx context.Context, name, partitionKey string, records []benchmark.SyntheticRecord) (benchmark.Result, error) {
	args := make([]interface{}, 0, len(records)*2)
	for _, r := range records {
		doc, err := json.Marshal(r.Document(s.keyField))
		if err != nil {
			return benchmark.Result{}, fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		args = append(args, field(partitionKey, r.ID), string(doc))
	}

	reply, err := submitScript.Run(ctx, s.client, []string{recordsKey(name), metaKey(name)}, args...).Text()
	if err != nil {
		var rerr redis.Error
		if errors.As(err, &rerr) {
			code, _, _ := strings.Cut(rerr.Error(), " ")
			return benchmark.Result{StatusCode: code, Message: rerr.Error()}, nil
		}
		return benchmark.Result{}, fmt.Errorf("submit batch: %w", err)
	}

	switch code, detail, _ := strings.Cut(reply, " "); code {
	case "OK":
		return benchmark.Result{Success: true}, nil
	case StatusConflict:
		return benchmark.Result{StatusCode: StatusConflict, Message: fmt.Sprintf("record %s already exists", detail)}, nil
	case StatusNotFound:
		return benchmark.Result{StatusCode: StatusNotFound, Message: fmt.Sprintf("collection %s does not exist", name)}, nil
	default:
		return benchmark.Result{}, fmt.Errorf("unexpected script reply %q", reply)
	}
}

func (s *Store) CountRecords(ctx context.Context, name string) (int64, error) {
	if err := s.ensure(ctx, name); err != nil {
		return 0, err
	}
	n, err := s.client.HLen(ctx, recordsKey(name)).Result()
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *Store) ListRecords(ctx context.Context, name string) ([]benchmark.RecordRef, error) {
	if err := s.ensure(ctx, name); err != nil {
		return nil, err
	}

	var refs []benchmark.RecordRef
	iter := s.client.HScan(ctx, recordsKey(name), 0, "", 500).Iterator()
	for i := 0; iter.Next(ctx); i++ {
		// HSCAN yields field, value, field, value, ...
		if i%2 == 1 {
			continue
		}
		key := iter.Val()
		cut := strings.LastIndex(key, ":")
		if cut < 0 {
			continue
		}
		refs = append(refs, benchmark.RecordRef{PartitionKey: key[:cut], ID: key[cut+1:]})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return refs, nil
}

func (s *Store) DeleteRecord(ctx context.Context, name, id, partitionKey string) error {
	n, err := s.client.HDel(ctx, recordsKey(name), field(partitionKey, id)).Result()
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("record %s not found in %s", id, name)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) ensure(ctx context.Context, name string) error {
	n, err := s.client.Exists(ctx, metaKey(name)).Result()
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("collection %s does not exist", name)
	}
	return nil
}
