package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgerrcode"
	_ "github.com/lib/pq"

	"github.com/moguls753/docbench/internal/benchmark"
)

const (
	DefaultUser = "benchmark"
	DefaultPort = "5432"
)

// Config locates the server. AccessKey is "user:password"; a bare value is
// taken as the password of DefaultUser. PartitionKeyPath names the document
// field that carries the partition key.
type Config struct {
	Endpoint         string
	AccessKey        string
	Database         string
	MaxConns         int
	PartitionKeyPath string
}

// DSN renders cfg as a postgres:// URL. Endpoint may be host, host:port or a
// full postgres URL whose query parameters are kept.
func DSN(cfg Config) (string, error) {
	u := &url.URL{Scheme: "postgres"}
	endpoint := cfg.Endpoint
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("parse endpoint: %w", err)
		}
		u = parsed
	} else {
		u.Host = endpoint
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no host", cfg.Endpoint)
	}
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		u.Host = net.JoinHostPort(u.Host, DefaultPort)
	}

	user, password := DefaultUser, cfg.AccessKey
	if name, secret, found := strings.Cut(cfg.AccessKey, ":"); found {
		user, password = name, secret
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	u.Path = "/" + cfg.Database

	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ConfigFromURL splits a postgres URL into a Config.
func ConfigFromURL(raw string) (Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse url: %w", err)
	}
	cfg := Config{
		Endpoint: u.Host,
		Database: strings.TrimPrefix(u.Path, "/"),
	}
	if u.User != nil {
		cfg.AccessKey = u.User.Username()
		if password, ok := u.User.Password(); ok {
			cfg.AccessKey += ":" + password
		}
	}
	return cfg, nil
}

// Open prepares a connection pool. The server is not contacted until the
// first call, so a missing database surfaces from DatabaseExists or Ping.
func Open(cfg Config) (*Store, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns)
	}
	return &Store{db: db, database: cfg.Database, keyField: benchmark.PartitionKeyField(cfg.PartitionKeyPath)}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// DatabaseExists reports false when the server rejects the connection with
// invalid_catalog_name.
func (s *Store) DatabaseExists(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, "SELECT current_database()").Scan(&name)
	if code, _, ok := statusOf(err); ok && code == pgerrcode.InvalidCatalogName {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query current database: %w", err)
	}
	return name == s.database, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
