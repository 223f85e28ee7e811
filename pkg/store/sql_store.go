package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Dialect captures the SQL differences between supported backends.
type Dialect struct {
	Name        string
	Driver      string
	PayloadType string
	numbered    bool
}

var (
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite", PayloadType: "TEXT"}
	Postgres = Dialect{Name: "postgres", Driver: "pgx", PayloadType: "JSONB", numbered: true}
)

const defaultTable = "attribute_records"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore keeps one JSON payload per record in a single table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
	newID   func() string
	now     func() time.Time
	mu      sync.Mutex
}

// SQLOption configures a SQLStore.
type SQLOption func(*SQLStore)

// WithTable overrides the table name.
func WithTable(name string) SQLOption {
	return func(s *SQLStore) {
		s.table = name
	}
}

// WithSQLIDGenerator replaces the default UUID generator.
func WithSQLIDGenerator(fn func() string) SQLOption {
	return func(s *SQLStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewSQLStore wraps an open database and ensures the record table exists.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect, opts ...SQLOption) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	s := &SQLStore{
		db:      db,
		dialect: dialect,
		table:   defaultTable,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if !tableName.MatchString(s.table) {
		return nil, fmt.Errorf("store: invalid table name %q", s.table)
	}
	if err := s.ensureTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens a SQLite database at path. ":memory:" keeps a single
// connection so every query sees the same in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...SQLOption) (*SQLStore, error) {
	if path == "" {
		path = "attributes.db"
	}
	db, err := sql.Open(SQLite.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLStore(ctx, db, SQLite, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres opens a Postgres database through pgx.
func OpenPostgres(ctx context.Context, dsn string, opts ...SQLOption) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store: postgres dsn is required")
	}
	db, err := sql.Open(Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := NewSQLStore(ctx, db, Postgres, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying database.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) ensureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		payload %s NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (collection, id)
	)`, s.table, s.dialect.PayloadType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure %s table: %w", s.table, err)
	}
	return nil
}

func (s *SQLStore) Insert(ctx context.Context, collection string, values map[string]any) (Ref, error) {
	ref := Ref{Collection: collection, ID: s.newID()}
	if _, err := ref.Identifier(); err != nil {
		return Ref{}, err
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return Ref{}, fmt.Errorf("encode payload: %w", err)
	}
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (collection, id, payload, updated_at) VALUES (?, ?, ?, ?)`, s.table))
	if _, err := s.db.ExecContext(ctx, query, ref.Collection, ref.ID, string(payload), s.now().UTC()); err != nil {
		return Ref{}, fmt.Errorf("insert record: %w", err)
	}
	return ref, nil
}

func (s *SQLStore) Update(ctx context.Context, ref Ref, values map[string]any) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.selectPayload(ctx, tx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return err
	}
	for name, value := range values {
		current[name] = value
	}
	payload, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	query := s.rebind(fmt.Sprintf(`UPDATE %s SET payload = ?, updated_at = ? WHERE collection = ? AND id = ?`, s.table))
	if _, err := tx.ExecContext(ctx, query, string(payload), s.now().UTC(), ref.Collection, ref.ID); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	query := s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE collection = ? AND id = ?`, s.table))
	res, err := s.db.ExecContext(ctx, query, ref.Collection, ref.ID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, ref Ref) (map[string]any, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, err
	}
	values, err := s.selectPayload(ctx, s.db, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return values, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) selectPayload(ctx context.Context, q queryer, ref Ref) (map[string]any, error) {
	query := s.rebind(fmt.Sprintf(`SELECT payload FROM %s WHERE collection = ? AND id = ?`, s.table))
	var payload []byte
	if err := q.QueryRowContext(ctx, query, ref.Collection, ref.ID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("select record: %w", err)
	}
	return decodePayload(payload)
}

// rebind rewrites ? placeholders for dialects with numbered parameters.
func (s *SQLStore) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// decodePayload keeps integral JSON numbers as int64 so ids survive a
// round trip with their type.
func decodePayload(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	for key, value := range values {
		values[key] = normalizeNumbers(value)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func normalizeNumbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	default:
		return value
	}
}
