package downloader

import "context"

// EngineFunc adapts a plain function to Engine. It is always available.
type EngineFunc func(ctx context.Context, req Request) (string, error)

var _ Engine = EngineFunc(nil)

func (f EngineFunc) Available(context.Context) error { return nil }

func (f EngineFunc) Fetch(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
