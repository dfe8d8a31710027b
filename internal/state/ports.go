package state

import (
	"fmt"
	"time"

	"go-tiles/internal/level"
)

// Notifier receives data-only notifications about round changes. The round
// never touches presentation objects; renderers implement this interface.
type Notifier interface {
	BoardReset(tiles []level.Tile, cfg level.Config)
	TileFlipped(position int)
	TileMatched(positions [2]int)
	TileMismatched(positions [2]int)
	HazardTriggered(position, livesRemaining int)
	HazardRehidden(position int)
	PreviewStarted()
	PreviewEnded()
	LevelCleared(level int)
	LevelFailed(level int)
	AllLevelsCompleted()
}

// NopNotifier ignores every notification. Embed it to implement only the
// callbacks you need.
type NopNotifier struct{}

func (NopNotifier) BoardReset([]level.Tile, level.Config) {}
func (NopNotifier) TileFlipped(int)                       {}
func (NopNotifier) TileMatched([2]int)                    {}
func (NopNotifier) TileMismatched([2]int)                 {}
func (NopNotifier) HazardTriggered(int, int)              {}
func (NopNotifier) HazardRehidden(int)                    {}
func (NopNotifier) PreviewStarted()                       {}
func (NopNotifier) PreviewEnded()                         {}
func (NopNotifier) LevelCleared(int)                      {}
func (NopNotifier) LevelFailed(int)                       {}
func (NopNotifier) AllLevelsCompleted()                   {}

// Scheduler delivers d back to Round.Fire once delay has elapsed, on the same
// goroutine that drives the round.
type Scheduler interface {
	After(delay time.Duration, d Deferred)
}

type DeferredKind int

const (
	HazardResolve DeferredKind = iota + 1
	MatchResolve
	MismatchResolve
	ClearPause
	PreviewEnd
)

func (k DeferredKind) String() string {
	switch k {
	case HazardResolve:
		return "hazardResolve"
	case MatchResolve:
		return "matchResolve"
	case MismatchResolve:
		return "mismatchResolve"
	case ClearPause:
		return "clearPause"
	case PreviewEnd:
		return "previewEnd"
	}
	return fmt.Sprintf("DeferredKind(%d)", int(k))
}

// Deferred is a resolution scheduled by the round. Generation ties it to the
// round that created it; once a new round starts it is inert.
type Deferred struct {
	Generation uint64
	Seq        uint64
	Kind       DeferredKind
	Positions  []int
}

// Timings holds the resolution delays.
type Timings struct {
	Hazard   time.Duration `yaml:"hazard"`
	Match    time.Duration `yaml:"match"`
	Mismatch time.Duration `yaml:"mismatch"`
	Preview  time.Duration `yaml:"preview"`
	Clear    time.Duration `yaml:"clear"`
}

func DefaultTimings() Timings {
	return Timings{
		Hazard:   600 * time.Millisecond,
		Match:    700 * time.Millisecond,
		Mismatch: 1200 * time.Millisecond,
		Preview:  5 * time.Second,
		Clear:    500 * time.Millisecond,
	}
}

// WithDefaults fills zero delays from DefaultTimings.
func (t Timings) WithDefaults() Timings {
	def := DefaultTimings()
	if t.Hazard == 0 {
		t.Hazard = def.Hazard
	}
	if t.Match == 0 {
		t.Match = def.Match
	}
	if t.Mismatch == 0 {
		t.Mismatch = def.Mismatch
	}
	if t.Preview == 0 {
		t.Preview = def.Preview
	}
	if t.Clear == 0 {
		t.Clear = def.Clear
	}
	return t
}

// Validate enforces mismatch > match > hazard so each outcome stays on
// screen a little longer than the one before it.
func (t Timings) Validate() error {
	switch {
	case t.Hazard <= 0 || t.Preview <= 0 || t.Clear <= 0:
		return &level.ConfigError{Reason: "timings must be positive"}
	case t.Match <= t.Hazard:
		return &level.ConfigError{Reason: fmt.Sprintf("match delay %s must exceed hazard delay %s", t.Match, t.Hazard)}
	case t.Mismatch <= t.Match:
		return &level.ConfigError{Reason: fmt.Sprintf("mismatch delay %s must exceed match delay %s", t.Mismatch, t.Match)}
	}
	return nil
}

// HazardPolicy decides what a survived hazard hit does to the board.
type HazardPolicy int

const (
	// KeepBoard turns the hazard face-down again and play continues with one
	// life fewer.
	KeepBoard HazardPolicy = iota
	// RestartRound fails the round on any hazard hit.
	RestartRound
)

func (p HazardPolicy) String() string {
	if p == RestartRound {
		return "restart-round"
	}
	return "keep-board"
}
