package repo

import (
	"context"
	"errors"
	"maps"
)

// ErrUnavailable is returned by every operation of a store that failed to initialise.
var ErrUnavailable = errors.New("document store unavailable")

// Document is a stored record: the generated ID plus whatever fields the
// record was created with. Fields are untyped; readers must tolerate
// missing or mistyped values.
type Document struct {
	ID     string
	Fields map[string]any
}

// Filter selects documents whose fields equal every given value. An empty
// filter matches all documents in the collection.
type Filter map[string]any

type DocumentStore interface {
	DocumentReader
	DocumentWriter
	Diagnoser
}

type DocumentReader interface {
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)
}

type DocumentWriter interface {
	// Create stores record (anything JSON-encodable to an object) and returns its ID.
	Create(ctx context.Context, collection string, record any) (string, error)
}

// Diagnoser exposes connectivity details for health reporting.
type Diagnoser interface {
	Name() string
	Ping(ctx context.Context) error
	Collections(ctx context.Context) ([]string, error)
}

func (d Document) Clone() Document {
	return Document{ID: d.ID, Fields: maps.Clone(d.Fields)}
}
