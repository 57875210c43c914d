package service

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/tinoosan/stealth/internal/repo"
)

func TestIntField(t *testing.T) {
	tests := []struct {
		in     any
		want   int
		wantOK bool
	}{
		{12.0, 12, true},
		{12.9, 12, true},
		{int64(5), 5, true},
		{" 42 ", 42, true},
		{"3.5", 3, true},
		{"abc", 0, false},
		{true, 0, false},
		{1e300, 0, false},
		{-1e300, 0, false},
		{"1e300", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := intField(map[string]any{"k": tt.in}, "k")
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("intField(%#v)=%d,%v want %d,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRank_OrderedAndStable(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	docs := make([]repo.Document, 200)
	for i := range docs {
		docs[i] = repo.Document{ID: string(rune('a' + i%26)), Fields: map[string]any{
			"name":        "p",
			"points":      float64(rng.Intn(5)),
			"duration_ms": float64(rng.Intn(3) * 100),
			"level":       float64(i + 1),
		}}
	}

	for _, limit := range []int{1, 10, 200, 500} {
		got := rank(docs, limit)
		wantLen := limit
		if wantLen > len(docs) {
			wantLen = len(docs)
		}
		if len(got) != wantLen {
			t.Fatalf("limit %d: len=%d", limit, len(got))
		}
		ok := sort.SliceIsSorted(got, func(i, j int) bool {
			if got[i].Points != got[j].Points {
				return got[i].Points > got[j].Points
			}
			if got[i].DurationMS != got[j].DurationMS {
				return got[i].DurationMS < got[j].DurationMS
			}
			// level records insertion order here
			return got[i].Level < got[j].Level
		})
		if !ok {
			t.Fatalf("limit %d: not ordered: %v", limit, got)
		}
	}
}

func TestRank_MissingDurationSortsLast(t *testing.T) {
	docs := []repo.Document{
		{Fields: map[string]any{"name": "slow", "points": 5.0}},
		{Fields: map[string]any{"name": "fast", "points": 5.0, "duration_ms": 999_999.0}},
	}
	got := rank(docs, 10)
	if got[0].Name != "fast" || got[1].Name != "slow" || got[1].DurationMS != 0 {
		t.Fatalf("rank=%v", got)
	}
}

func TestRank_OutOfRangePointsAreCoerced(t *testing.T) {
	docs := []repo.Document{
		{Fields: map[string]any{"name": "small", "points": 5.0, "duration_ms": 1.0}},
		{Fields: map[string]any{"name": "huge", "points": 1e300, "duration_ms": 1.0}},
	}
	got := rank(docs, 10)
	if got[0].Name != "small" || got[1].Name != "huge" || got[1].Points != 0 {
		t.Fatalf("rank=%v", got)
	}
}
