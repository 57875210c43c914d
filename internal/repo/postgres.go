package repo

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "net/url"
    "strings"
    "time"

    _ "github.com/jackc/pgx/v5/stdlib"

    "github.com/google/uuid"
)

// PostgresStore implements DocumentStore on a single `documents` table with a
// JSONB body per row, keyed by collection name.
type PostgresStore struct {
    db     *sql.DB
    dbName string
}

var _ DocumentStore = (*PostgresStore)(nil)

// NewPostgresStore opens a connection pool using dsn, verifies it and makes
// sure the schema exists. When dbName is non-empty it replaces the database
// named in dsn.
func NewPostgresStore(ctx context.Context, dsn, dbName string) (*PostgresStore, error) {
    dsn, err := withDatabase(dsn, dbName)
    if err != nil {
        return nil, err
    }
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    // Verify connection
    pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := db.PingContext(pingCtx); err != nil {
        _ = db.Close()
        return nil, err
    }
    s := &PostgresStore{db: db, dbName: dbName}
    if err := s.ensureSchema(pingCtx); err != nil {
        _ = db.Close()
        return nil, err
    }
    if s.dbName == "" {
        _ = db.QueryRowContext(pingCtx, `SELECT current_database()`).Scan(&s.dbName)
    }
    return s, nil
}

// withDatabase rewrites the path of a URL-style DSN to name. Key/value DSNs
// get a dbname= pair appended instead.
func withDatabase(dsn, name string) (string, error) {
    if strings.TrimSpace(dsn) == "" {
        return "", errors.New("database url is empty")
    }
    if name == "" {
        return dsn, nil
    }
    if !strings.Contains(dsn, "://") {
        return dsn + " dbname=" + name, nil
    }
    u, err := url.Parse(dsn)
    if err != nil {
        return "", fmt.Errorf("parse database url: %w", err)
    }
    u.Path = "/" + url.PathEscape(name)
    return u.String(), nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Name() string { return s.dbName }

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
    _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS documents (
    id UUID PRIMARY KEY,
    collection TEXT NOT NULL,
    body JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection, created_at);
`)
    return err
}

// Create implements DocumentWriter.Create
func (s *PostgresStore) Create(ctx context.Context, collection string, record any) (string, error) {
    fields, err := toFields(record)
    if err != nil {
        return "", err
    }
    body, err := json.Marshal(fields)
    if err != nil {
        return "", err
    }
    id := uuid.NewString()
    _, err = s.db.ExecContext(ctx, `INSERT INTO documents (id,collection,body,created_at) VALUES ($1,$2,$3,$4)`,
        id, collection, string(body), time.Now().UTC())
    if err != nil {
        return "", err
    }
    return id, nil
}

// Query implements DocumentReader.Query. The filter is applied with JSONB
// containment, so it only supports equality on top-level fields.
func (s *PostgresStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
    want, err := toFields(filter)
    if err != nil {
        return nil, err
    }
    cond, err := json.Marshal(want)
    if err != nil {
        return nil, err
    }
    rows, err := s.db.QueryContext(ctx, `SELECT id,body FROM documents WHERE collection=$1 AND body @> $2::jsonb ORDER BY created_at ASC, id ASC`,
        collection, string(cond))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []Document
    for rows.Next() {
        doc, err := scanDocument(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, doc)
    }
    return out, rows.Err()
}

func (s *PostgresStore) Collections(ctx context.Context) ([]string, error) {
    rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT collection FROM documents ORDER BY collection`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var names []string
    for rows.Next() {
        var n string
        if err := rows.Scan(&n); err != nil {
            return nil, err
        }
        names = append(names, n)
    }
    return names, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanDocument(rs rowScanner) (Document, error) {
    var (
        id  string
        raw []byte
    )
    if err := rs.Scan(&id, &raw); err != nil {
        return Document{}, err
    }
    doc := Document{ID: id, Fields: map[string]any{}}
    // A body that no longer decodes is returned empty rather than failing the
    // whole query; readers coerce missing fields.
    _ = json.Unmarshal(raw, &doc.Fields)
    if doc.Fields == nil {
        doc.Fields = map[string]any{}
    }
    return doc, nil
}
