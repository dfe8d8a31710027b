package progress

import (
	"sort"
)

// Event names recorded by the tracker.
const (
	RoundStarted = "roundStarted"
	PairMatched  = "pairMatched"
	HazardHit    = "hazardHit"
	LevelCleared = "levelCleared"
	LevelFailed  = "levelFailed"
	RunCompleted = "runCompleted"
)

// Tracker keeps the pair and level counters for one play session. Nothing is
// persisted; a new process starts from zero.
type Tracker struct {
	// public
	PairsMatched  int
	HazardsHit    int
	LevelsCleared int
	Completions   int // runs through every configured level
	// private
	levels map[int]*LevelStats
}

// LevelStats counts what happened on a single level.
type LevelStats struct {
	Level    int
	Attempts int
	Failures int
	Clears   int
}

func New() *Tracker {
	return &Tracker{levels: make(map[int]*LevelStats)}
}

// Record updates the counters for an event on a level.
func (t *Tracker) Record(event string, lvl int) {
	stats := t.stats(lvl)
	switch event {
	case RoundStarted:
		stats.Attempts++
	case PairMatched:
		t.PairsMatched++
	case HazardHit:
		t.HazardsHit++
	case LevelCleared:
		stats.Clears++
		t.LevelsCleared++
	case LevelFailed:
		stats.Failures++
	case RunCompleted:
		t.Completions++
	}
}

// Attempts returns how many rounds have been started on a level.
func (t *Tracker) Attempts(lvl int) int {
	if s, ok := t.levels[lvl]; ok {
		return s.Attempts
	}
	return 0
}

// Levels returns per-level counters ordered by level number.
func (t *Tracker) Levels() []LevelStats {
	out := make([]LevelStats, 0, len(t.levels))
	for _, s := range t.levels {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Level < out[j].Level
	})
	return out
}

func (t *Tracker) stats(lvl int) *LevelStats {
	s, ok := t.levels[lvl]
	if !ok {
		s = &LevelStats{Level: lvl}
		t.levels[lvl] = s
	}
	return s
}
