package repo

import (
	"context"
	"fmt"
)

// Unavailable stands in for a store that could not be initialised at
// startup. Every call fails with ErrUnavailable wrapping the original cause.
type Unavailable struct {
	Cause error
}

var _ DocumentStore = Unavailable{}

func (u Unavailable) err() error {
	if u.Cause == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, u.Cause)
}

func (u Unavailable) Name() string { return "" }

func (u Unavailable) Ping(context.Context) error { return u.err() }

func (u Unavailable) Create(context.Context, string, any) (string, error) { return "", u.err() }

func (u Unavailable) Query(context.Context, string, Filter) ([]Document, error) {
	return nil, u.err()
}

func (u Unavailable) Collections(context.Context) ([]string, error) { return nil, u.err() }
