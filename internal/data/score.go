package data

// ScoreCollection is the document collection score records are stored under.
const ScoreCollection = "score"

// ScoreRecord is a single submitted game result. Records are immutable once
// stored.
type ScoreRecord struct {
	Name       string `json:"name" validate:"required,max=20"`
	Points     int    `json:"points" validate:"gte=0"`
	Level      int    `json:"level" validate:"gte=1"`
	DurationMS int    `json:"duration_ms" validate:"gte=0"`
}

// LeaderboardEntry is the ranked, read-only projection of a ScoreRecord.
type LeaderboardEntry struct {
	Name       string `json:"name"`
	Points     int    `json:"points"`
	Level      int    `json:"level"`
	DurationMS int    `json:"duration_ms"`
}

// Entry projects the record onto its leaderboard shape.
func (s *ScoreRecord) Entry() LeaderboardEntry {
	return LeaderboardEntry{
		Name:       s.Name,
		Points:     s.Points,
		Level:      s.Level,
		DurationMS: s.DurationMS,
	}
}
