package state

import (
	"context"
	"time"

	"go-tiles/internal/level"

	"github.com/looplab/fsm"
)

// Round phases. These are the fsm state names.
const (
	Idle         = "idle"
	Previewing   = "previewing"
	Playing      = "playing"
	LevelCleared = "levelCleared"
	LevelFailed  = "levelFailed"
)

const (
	evStart       = "start"
	evPreview     = "preview"
	evPreviewDone = "previewDone"
	evClear       = "clear"
	evFail        = "fail"
)

type Options struct {
	Policy  HazardPolicy
	Timings Timings
}

// Round owns the live board for one attempt at a level. It is driven by
// RequestFlip, RequestPreview and Fire, all of which must be called from a
// single goroutine. Fields are exported for inspection; only Round's methods
// mutate them.
type Round struct {
	Level        int
	Config       level.Config
	Tiles        []level.Tile
	Lives        int
	MatchedPairs int
	Selection    []int // flipped, unresolved regular tiles
	Locked       bool  // a resolution is pending
	FSM          *fsm.FSM
	Options      Options

	generation uint64
	seq        uint64
	pending    uint64 // Seq of the one outstanding Deferred, 0 if none

	notifier  Notifier
	scheduler Scheduler
}

func NewRound(notifier Notifier, scheduler Scheduler, opts Options) *Round {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	r := &Round{
		notifier:  notifier,
		scheduler: scheduler,
		Options:   opts,
	}
	r.FSM = fsm.NewFSM(
		Idle,
		getPhaseTransitions(),
		getPhaseCallbacks(r),
	)
	return r
}

// StartRound discards the current board and begins a fresh attempt. Any
// resolution still scheduled for the previous board becomes stale.
func (r *Round) StartRound(lvl int, cfg level.Config, tiles []level.Tile, preview bool) {
	r.generation++
	r.pending = 0

	r.Level = lvl
	r.Config = cfg
	r.Tiles = tiles
	r.Lives = cfg.Hazards
	r.MatchedPairs = 0
	r.Selection = nil
	r.Locked = false

	r.FSM.SetState(Idle)
	r.notifier.BoardReset(r.copyTiles(), cfg)

	r.event(evStart)
	if preview {
		r.event(evPreview)
	}
}

// RequestFlip turns the tile at position face-up. Requests that cannot be
// honoured are ignored and the return value is false.
func (r *Round) RequestFlip(position int) bool {
	if !r.canFlip(position) {
		return false
	}

	tile := &r.Tiles[position]
	tile.State = level.Flipped
	r.notifier.TileFlipped(position)

	if tile.IsHazard() {
		r.Locked = true
		if r.Lives > 0 {
			r.Lives--
		}
		r.notifier.HazardTriggered(position, r.Lives)
		r.schedule(r.Options.Timings.Hazard, HazardResolve, position)
		return true
	}

	r.Selection = append(r.Selection, position)
	if len(r.Selection) < 2 {
		return true
	}

	r.Locked = true
	a, b := r.Selection[0], r.Selection[1]
	if r.Tiles[a].Symbol == r.Tiles[b].Symbol {
		r.schedule(r.Options.Timings.Match, MatchResolve, a, b)
	} else {
		r.schedule(r.Options.Timings.Mismatch, MismatchResolve, a, b)
	}
	return true
}

// RequestPreview shows every tile for the preview delay. Only a settled
// board can be previewed.
func (r *Round) RequestPreview() bool {
	if !r.FSM.Is(Playing) || r.Locked || len(r.Selection) > 0 {
		return false
	}
	r.event(evPreview)
	return true
}

// Fire completes a scheduled resolution. Deferred values from an earlier
// round, or ones already fired, are ignored and false is returned.
func (r *Round) Fire(d Deferred) bool {
	if d.Generation != r.generation || d.Seq == 0 || d.Seq != r.pending {
		return false
	}
	r.pending = 0

	switch d.Kind {
	case HazardResolve:
		r.resolveHazard(d.Positions[0])
	case MatchResolve:
		r.resolveMatch(d.Positions[0], d.Positions[1])
	case MismatchResolve:
		r.resolveMismatch(d.Positions[0], d.Positions[1])
	case ClearPause:
		r.event(evClear)
	case PreviewEnd:
		r.event(evPreviewDone)
	default:
		return false
	}
	return true
}

func (r *Round) resolveHazard(position int) {
	r.Tiles[position].State = level.Matched

	if r.Lives <= 0 || r.Options.Policy == RestartRound {
		r.event(evFail)
		return
	}

	r.Tiles[position].State = level.Hidden
	r.Locked = false
	r.notifier.HazardRehidden(position)
}

func (r *Round) resolveMatch(a, b int) {
	r.Tiles[a].State = level.Matched
	r.Tiles[b].State = level.Matched
	r.MatchedPairs++
	r.Selection = nil
	r.Locked = false
	r.notifier.TileMatched([2]int{a, b})

	if r.MatchedPairs == r.Config.Pairs {
		r.Locked = true
		r.schedule(r.Options.Timings.Clear, ClearPause)
	}
}

func (r *Round) resolveMismatch(a, b int) {
	r.Tiles[a].State = level.Hidden
	r.Tiles[b].State = level.Hidden
	r.Selection = nil
	r.Locked = false
	r.notifier.TileMismatched([2]int{a, b})
}

func (r *Round) schedule(delay time.Duration, kind DeferredKind, positions ...int) {
	r.seq++
	r.pending = r.seq
	if r.scheduler == nil {
		return
	}
	r.scheduler.After(delay, Deferred{
		Generation: r.generation,
		Seq:        r.seq,
		Kind:       kind,
		Positions:  positions,
	})
}

func (r *Round) event(name string) {
	_ = r.FSM.Event(context.Background(), name)
}

func getPhaseTransitions() []fsm.EventDesc {
	return fsm.Events{
		{Name: evStart, Src: []string{Idle}, Dst: Playing},
		{Name: evPreview, Src: []string{Playing}, Dst: Previewing},
		{Name: evPreviewDone, Src: []string{Previewing}, Dst: Playing},
		{Name: evClear, Src: []string{Playing}, Dst: LevelCleared},
		{Name: evFail, Src: []string{Playing}, Dst: LevelFailed},
	}
}

func getPhaseCallbacks(r *Round) map[string]fsm.Callback {
	return fsm.Callbacks{
		"enter_" + Previewing: func(ctx context.Context, e *fsm.Event) {
			r.notifier.PreviewStarted()
			r.schedule(r.Options.Timings.Preview, PreviewEnd)
		},
		"leave_" + Previewing: func(ctx context.Context, e *fsm.Event) {
			r.notifier.PreviewEnded()
		},
		// The level handlers may start the next round from inside the
		// callback, so nothing may touch the round after them.
		"enter_" + LevelCleared: func(ctx context.Context, e *fsm.Event) {
			r.notifier.LevelCleared(r.Level)
		},
		"enter_" + LevelFailed: func(ctx context.Context, e *fsm.Event) {
			r.notifier.LevelFailed(r.Level)
		},
	}
}
