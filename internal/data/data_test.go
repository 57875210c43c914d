package data

import (
	"errors"
	"strings"
	"testing"
)

func TestScoreRecordValidate(t *testing.T) {
	tests := []struct {
		name      string
		rec       ScoreRecord
		wantField string
	}{
		{"valid", ScoreRecord{Name: "Ana", Points: 100, Level: 2, DurationMS: 5000}, ""},
		{"zero points ok", ScoreRecord{Name: "Bo", Points: 0, Level: 1, DurationMS: 0}, ""},
		{"twenty runes ok", ScoreRecord{Name: strings.Repeat("é", 20), Points: 1, Level: 1}, ""},
		{"empty name", ScoreRecord{Name: "", Points: 1, Level: 1}, "name"},
		{"long name", ScoreRecord{Name: strings.Repeat("x", 21), Points: 1, Level: 1}, "name"},
		{"negative points", ScoreRecord{Name: "Ana", Points: -1, Level: 1}, "points"},
		{"level zero", ScoreRecord{Name: "Ana", Points: 1, Level: 0}, "level"},
		{"negative duration", ScoreRecord{Name: "Ana", Points: 1, Level: 1, DurationMS: -5}, "duration_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Fatalf("expected field %q got %q", tt.wantField, verr.Field)
			}
		})
	}
}

func TestFetchErrorMatchesSentinel(t *testing.T) {
	err := error(&FetchError{Detail: "video unavailable"})
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected FetchError to match ErrFetchFailed")
	}
	if !strings.Contains(err.Error(), "video unavailable") {
		t.Fatalf("engine message not carried: %q", err.Error())
	}
	inc := &FetchError{Detail: "no output", Inconsistent: true}
	if !strings.HasPrefix(inc.Error(), "failed to download video") {
		t.Fatalf("unexpected message %q", inc.Error())
	}
}
