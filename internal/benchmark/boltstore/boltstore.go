// Package boltstore is a benchmark.Store over a local bbolt file. Each collection
// is a top-level bucket with one nested bucket per partition key, so a batch is
// a single bbolt write transaction.
package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/moguls753/docbench/internal/benchmark"
)

const StatusConflict = "409"

var (
	metaBucket  = []byte("_meta")
	keyPartPath = []byte("partitionKeyPath")
	keyThrough  = []byte("throughput")
)

var errDuplicate = errors.New("duplicate record")

type Store struct {
	db       *bolt.DB
	keyField string
}

// Open opens (or creates) the bbolt file at path. Documents carry the partition
// key under the field named by partitionKeyPath.
func Open(path, partitionKeyPath string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt file %s: %w", path, err)
	}
	return &Store{db: db, keyField: benchmark.PartitionKeyField(partitionKeyPath)}, nil
}

func (s *Store) DatabaseExists(ctx context.Context) (bool, error) {
	return s.db != nil, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}

func (s *Store) CreateCollection(ctx context.Context, spec benchmark.CollectionSpec) error {
	s.keyField = benchmark.PartitionKeyField(spec.PartitionKeyPath)
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(spec.Name))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		meta, err := b.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		if err := meta.Put(keyPartPath, []byte(spec.PartitionKeyPath)); err != nil {
			return err
		}
		return meta.Put(keyThrough, []byte(strconv.Itoa(spec.Throughput)))
	})
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(name)); err != nil {
			return fmt.Errorf("delete bucket %s: %w", name, err)
		}
		return nil
	})
}

func (s *Store) SubmitBatch(ctx context.Context, name, partitionKey string, records []benchmark.SyntheticRecord) (benchmark.Result, error) {
	var dupID string
	err := s.db.Update(func(tx *bolt.Tx) error {
		coll := tx.Bucket([]byte(name))
		if coll == nil {
			return fmt.Errorf("collection %s does not exist", name)
		}
		part, err := coll.CreateBucketIfNotExists([]byte(partitionKey))
		if err != nil {
			return fmt.Errorf("create partition bucket: %w", err)
		}
		for _, r := range records {
			if part.Get([]byte(r.ID)) != nil {
				dupID = r.ID
				return errDuplicate
			}
			doc, err := json.Marshal(r.Document(s.keyField))
			if err != nil {
				return fmt.Errorf("encode record %s: %w", r.ID, err)
			}
			if err := part.Put([]byte(r.ID), doc); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errDuplicate) {
		return benchmark.Result{StatusCode: StatusConflict, Message: fmt.Sprintf("record %s already exists", dupID)}, nil
	}
	if err != nil {
		return benchmark.Result{}, err
	}
	return benchmark.Result{Success: true}, nil
}

func (s *Store) CountRecords(ctx context.Context, name string) (int64, error) {
	var count int64
	err := s.forEach(name, func(partitionKey, id []byte) error {
		count++
		return nil
	})
	return count, err
}

func (s *Store) ListRecords(ctx context.Context, name string) ([]benchmark.RecordRef, error) {
	var refs []benchmark.RecordRef
	err := s.forEach(name, func(partitionKey, id []byte) error {
		refs = append(refs, benchmark.RecordRef{ID: string(id), PartitionKey: string(partitionKey)})
		return nil
	})
	return refs, err
}

func (s *Store) DeleteRecord(ctx context.Context, name, id, partitionKey string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		coll := tx.Bucket([]byte(name))
		if coll == nil {
			return fmt.Errorf("collection %s does not exist", name)
		}
		part := coll.Bucket([]byte(partitionKey))
		if part == nil || part.Get([]byte(id)) == nil {
			return fmt.Errorf("record %s not found in %s", id, name)
		}
		return part.Delete([]byte(id))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// forEach visits every record key of a collection, skipping the meta bucket.
func (s *Store) forEach(name string, fn func(partitionKey, id []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		coll := tx.Bucket([]byte(name))
		if coll == nil {
			return fmt.Errorf("collection %s does not exist", name)
		}
		return coll.ForEach(func(k, v []byte) error {
			if v != nil || string(k) == string(metaBucket) {
				return nil
			}
			part := coll.Bucket(k)
			return part.ForEach(func(id, _ []byte) error {
				return fn(k, id)
			})
		})
	})
}
