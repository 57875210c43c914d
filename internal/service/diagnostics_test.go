package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tinoosan/stealth/internal/repo"
)

type stubDiagnoser struct {
	pingErr error
	cols    []string
	colsErr error
}

func (s stubDiagnoser) Name() string { return "stub" }
func (s stubDiagnoser) Ping(context.Context) error { return s.pingErr }
func (s stubDiagnoser) Collections(context.Context) ([]string, error) {
	return s.cols, s.colsErr
}

func TestDiagnostics_Report(t *testing.T) {
	many := make([]string, 15)
	for i := range many {
		many[i] = fmt.Sprintf("c%02d", i)
	}

	tests := []struct {
		name      string
		store     repo.Diagnoser
		env       DiagnosticsEnv
		database  string
		status    string
		nCols     int
		urlStatus string
	}{
		{"unavailable", repo.Unavailable{}, DiagnosticsEnv{}, "⚠️  Available but not initialized", "Not Connected", 0, "❌ Not Set"},
		{"nil store", nil, DiagnosticsEnv{DatabaseURLSet: true}, "❌ Not Available", "Not Connected", 0, "✅ Set"},
		{"ping error", stubDiagnoser{pingErr: errors.New("connection refused")}, DiagnosticsEnv{DatabaseURLSet: true}, "❌ Error: connection refused", "Not Connected", 0, "✅ Set"},
		{"collections error", stubDiagnoser{colsErr: errors.New("denied")}, DiagnosticsEnv{}, "⚠️  Connected but Error: denied", "Connected", 0, "❌ Not Set"},
		{"working", stubDiagnoser{cols: many}, DiagnosticsEnv{DatabaseURLSet: true, DatabaseNameSet: true}, "✅ Connected & Working", "Connected", 10, "✅ Set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := NewDiagnostics(tt.store, tt.env).Report(context.Background())
			if rep.Backend != "✅ Running" {
				t.Fatalf("backend=%q", rep.Backend)
			}
			if rep.Database != tt.database || rep.ConnectionStatus != tt.status {
				t.Fatalf("database=%q status=%q", rep.Database, rep.ConnectionStatus)
			}
			if rep.Collections == nil || len(rep.Collections) != tt.nCols {
				t.Fatalf("collections=%v", rep.Collections)
			}
			if rep.DatabaseURL != tt.urlStatus {
				t.Fatalf("database_url=%q", rep.DatabaseURL)
			}
		})
	}
}

func TestDiagnostics_TruncatesErrors(t *testing.T) {
	long := strings.Repeat("x", 120)
	rep := NewDiagnostics(stubDiagnoser{pingErr: errors.New(long)}, DiagnosticsEnv{}).Report(context.Background())
	if got := strings.TrimPrefix(rep.Database, "❌ Error: "); len(got) != 50 {
		t.Fatalf("error text len=%d", len(got))
	}
}
