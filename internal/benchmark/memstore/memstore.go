// Package memstore is an in-process benchmark.Store backed by go-memdb. It is
// used for dry runs and for exercising the harness without a database.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-memdb"

	"github.com/moguls753/docbench/internal/benchmark"
)

const (
	tableCollections = "collections"
	tableRecords     = "records"
)

// Status codes mirror the HTTP-style codes document databases report.
const (
	StatusConflict = "409"
	StatusNotFound = "404"
)

type collection struct {
	Name             string
	PartitionKeyPath string
	Throughput       int
}

type record struct {
	Collection   string
	PartitionKey string
	ID           string
	Document     benchmark.SyntheticRecord
}

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableCollections: {
			Name: tableCollections,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Name"},
				},
			},
		},
		tableRecords: {
			Name: tableRecords,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:   "id",
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "Collection"},
							&memdb.StringFieldIndex{Field: "PartitionKey"},
							&memdb.StringFieldIndex{Field: "ID"},
						},
					},
				},
				"collection": {
					Name:    "collection",
					Indexer: &memdb.StringFieldIndex{Field: "Collection"},
				},
			},
		},
	},
}

type Store struct {
	db       *memdb.MemDB
	database string

	mu     sync.Mutex
	closed bool
}

// New returns an empty store hosting a single database named database.
func New(database string) (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &Store{db: db, database: database}, nil
}

func (s *Store) DatabaseExists(ctx context.Context) (bool, error) {
	return s.database != "", nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

func (s *Store) CreateCollection(ctx context.Context, spec benchmark.CollectionSpec) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableCollections, "id", spec.Name)
	if err != nil {
		return fmt.Errorf("lookup collection: %w", err)
	}
	if existing != nil {
		return nil
	}

	c := &collection{Name: spec.Name, PartitionKeyPath: spec.PartitionKeyPath, Throughput: spec.Throughput}
	if err := txn.Insert(tableCollections, c); err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	txn.Commit()
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableCollections, "id", name)
	if err != nil {
		return fmt.Errorf("lookup collection: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("collection %s does not exist", name)
	}
	if err := txn.Delete(tableCollections, existing); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if _, err := txn.DeleteAll(tableRecords, "collection", name); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	txn.Commit()
	return nil
}

func (s *Store) SubmitBatch(ctx context.Context, name, partitionKey string, records []benchmark.SyntheticRecord) (benchmark.Result, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	c, err := txn.First(tableCollections, "id", name)
	if err != nil {
		return benchmark.Result{}, fmt.Errorf("lookup collection: %w", err)
	}
	if c == nil {
		return benchmark.Result{StatusCode: StatusNotFound, Message: fmt.Sprintf("collection %s does not exist", name)}, nil
	}

	for _, r := range records {
		if r.PartitionKey != partitionKey {
			return benchmark.Result{
				StatusCode: "400",
				Message:    fmt.Sprintf("record %s has partition key %s, batch is %s", r.ID, r.PartitionKey, partitionKey),
			}, nil
		}
		existing, err := txn.First(tableRecords, "id", name, partitionKey, r.ID)
		if err != nil {
			return benchmark.Result{}, fmt.Errorf("lookup record: %w", err)
		}
		if existing != nil {
			return benchmark.Result{StatusCode: StatusConflict, Message: fmt.Sprintf("record %s already exists", r.ID)}, nil
		}
		if err := txn.Insert(tableRecords, &record{Collection: name, PartitionKey: partitionKey, ID: r.ID, Document: r}); err != nil {
			return benchmark.Result{}, fmt.Errorf("insert record: %w", err)
		}
	}

	txn.Commit()
	return benchmark.Result{Success: true}, nil
}

func (s *Store) CountRecords(ctx context.Context, name string) (int64, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	if err := requireCollection(txn, name); err != nil {
		return 0, err
	}

	it, err := txn.Get(tableRecords, "collection", name)
	if err != nil {
		return 0, fmt.Errorf("scan records: %w", err)
	}
	var count int64
	for obj := it.Next(); obj != nil; obj = it.Next() {
		count++
	}
	return count, nil
}

func (s *Store) ListRecords(ctx context.Context, name string) ([]benchmark.RecordRef, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	if err := requireCollection(txn, name); err != nil {
		return nil, err
	}

	it, err := txn.Get(tableRecords, "collection", name)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	var refs []benchmark.RecordRef
	for obj := it.Next(); obj != nil; obj = it.Next() {
		r := obj.(*record)
		refs = append(refs, benchmark.RecordRef{ID: r.ID, PartitionKey: r.PartitionKey})
	}
	return refs, nil
}

func (s *Store) DeleteRecord(ctx context.Context, name, id, partitionKey string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableRecords, "id", name, partitionKey, id)
	if err != nil {
		return fmt.Errorf("lookup record: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("record %s not found in %s", id, name)
	}
	if err := txn.Delete(tableRecords, existing); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	txn.Commit()
	return nil
}

func requireCollection(txn *memdb.Txn, name string) error {
	c, err := txn.First(tableCollections, "id", name)
	if err != nil {
		return fmt.Errorf("lookup collection: %w", err)
	}
	if c == nil {
		return fmt.Errorf("collection %s does not exist", name)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
