package downloader

import (
	"context"
	"sync"

	"github.com/tinoosan/stealth/internal/downloadcfg"
)

// Request describes one fetch: where from, where to, and what to prefer.
type Request struct {
	URL    string
	Dir    string
	Policy downloadcfg.FormatPolicy
}

// Engine fetches remote media into a local directory and reports the path
// of the produced file.
//
// Fetch returns *data.FetchError when the engine itself reports a failure
// (content unavailable, unsupported URL, network error) and an error
// matching data.ErrEngineUnavailable when the engine cannot be run at all.
// Implementations must write only inside Request.Dir.
type Engine interface {
	// Available reports whether the engine can be used. The answer is
	// computed once per process and cached.
	Available(ctx context.Context) error
	Fetch(ctx context.Context, req Request) (string, error)
}

// Probe runs a capability check once and caches the result.
type Probe struct {
	once  sync.Once
	check func() error
	err   error
}

func NewProbe(check func() error) *Probe {
	return &Probe{check: check}
}

func (p *Probe) Check() error {
	p.once.Do(func() {
		if p.check != nil {
			p.err = p.check()
		}
	})
	return p.err
}
