package service

import (
	"context"
	"errors"
	"time"

	"github.com/tinoosan/stealth/internal/repo"
)

const (
	maxReportedCollections = 10
	maxErrorText           = 50
	diagnosticsTimeout     = 5 * time.Second
)

// DiagnosticsReport is the /test payload. Field values are human-readable
// status strings.
type DiagnosticsReport struct {
	Backend          string   `json:"backend"`
	Database         string   `json:"database"`
	DatabaseURL      string   `json:"database_url"`
	DatabaseName     string   `json:"database_name"`
	ConnectionStatus string   `json:"connection_status"`
	Collections      []string `json:"collections"`
}

// Diagnostics reports backend and database health. Report never fails;
// problems are described in the payload.
type Diagnostics interface {
	Report(ctx context.Context) DiagnosticsReport
}

// DiagnosticsEnv records which connection settings were supplied.
type DiagnosticsEnv struct {
	DatabaseURLSet  bool
	DatabaseNameSet bool
}

type diagnostics struct {
	store repo.Diagnoser
	env   DiagnosticsEnv
}

func NewDiagnostics(store repo.Diagnoser, env DiagnosticsEnv) Diagnostics {
	return &diagnostics{store: store, env: env}
}

func (d *diagnostics) Report(ctx context.Context) DiagnosticsReport {
	rep := DiagnosticsReport{
		Backend:          "✅ Running",
		Database:         "❌ Not Available",
		ConnectionStatus: "Not Connected",
		Collections:      []string{},
		DatabaseURL:      setOrNot(d.env.DatabaseURLSet),
		DatabaseName:     setOrNot(d.env.DatabaseNameSet),
	}
	if d.store == nil {
		return rep
	}

	ctx, cancel := context.WithTimeout(ctx, diagnosticsTimeout)
	defer cancel()

	if err := d.store.Ping(ctx); err != nil {
		if errors.Is(err, repo.ErrUnavailable) {
			rep.Database = "⚠️  Available but not initialized"
		} else {
			rep.Database = "❌ Error: " + truncate(err.Error(), maxErrorText)
		}
		return rep
	}
	rep.Database = "✅ Available"
	rep.ConnectionStatus = "Connected"

	cols, err := d.store.Collections(ctx)
	if err != nil {
		rep.Database = "⚠️  Connected but Error: " + truncate(err.Error(), maxErrorText)
		return rep
	}
	if len(cols) > maxReportedCollections {
		cols = cols[:maxReportedCollections]
	}
	rep.Collections = append(rep.Collections, cols...)
	rep.Database = "✅ Connected & Working"
	return rep
}

func setOrNot(ok bool) string {
	if ok {
		return "✅ Set"
	}
	return "❌ Not Set"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
