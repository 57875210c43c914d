package service

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tinoosan/stealth/internal/data"
	"github.com/tinoosan/stealth/internal/repo"
)

const (
	defaultName = "Player"
	// unrankedDuration sorts records without a usable duration after every
	// record that has one.
	unrankedDuration = 1_000_000
)

type ranked struct {
	entry    data.LeaderboardEntry
	points   int
	duration int
}

// rank orders documents by points descending then duration ascending,
// keeping insertion order for ties, and returns at most limit entries.
func rank(docs []repo.Document, limit int) []data.LeaderboardEntry {
	rows := make([]ranked, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, project(d.Fields))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].points != rows[j].points {
			return rows[i].points > rows[j].points
		}
		return rows[i].duration < rows[j].duration
	})

	if limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]data.LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out
}

func project(f map[string]any) ranked {
	points, _ := intField(f, "points")
	duration, hasDuration := intField(f, "duration_ms")

	r := ranked{points: points, duration: unrankedDuration}
	if hasDuration {
		r.duration = duration
	}

	r.entry = data.LeaderboardEntry{
		Name:   defaultName,
		Points: points,
		Level:  1,
	}
	if s, ok := f["name"].(string); ok {
		r.entry.Name = s
	}
	if lvl, ok := intField(f, "level"); ok {
		r.entry.Level = lvl
	}
	if hasDuration {
		r.entry.DurationMS = duration
	}
	return r
}

// intField reads a numeric field, accepting JSON numbers and numeric strings.
func intField(f map[string]any, key string) (int, bool) {
	switch v := f[key].(type) {
	case float64:
		return floatToInt(v)
	case float32:
		return floatToInt(float64(v))
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if fl, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(fl)
		}
	}
	return 0, false
}

func floatToInt(v float64) (int, bool) {
	if math.IsNaN(v) || v < math.MinInt || v >= math.MaxInt {
		return 0, false
	}
	return int(v), true
}
