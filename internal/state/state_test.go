package state

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"go-tiles/internal/level"
)

// recordingNotifier keeps a readable log of every notification.
type recordingNotifier struct {
	NopNotifier
	events []string
}

func (n *recordingNotifier) record(format string, args ...any) {
	n.events = append(n.events, fmt.Sprintf(format, args...))
}

func (n *recordingNotifier) BoardReset(tiles []level.Tile, cfg level.Config) {
	n.record("reset %d", len(tiles))
}
func (n *recordingNotifier) TileFlipped(p int)        { n.record("flip %d", p) }
func (n *recordingNotifier) TileMatched(p [2]int)     { n.record("match %d %d", p[0], p[1]) }
func (n *recordingNotifier) TileMismatched(p [2]int)  { n.record("mismatch %d %d", p[0], p[1]) }
func (n *recordingNotifier) HazardTriggered(p, l int) { n.record("hazard %d %d", p, l) }
func (n *recordingNotifier) HazardRehidden(p int)     { n.record("rehide %d", p) }
func (n *recordingNotifier) PreviewStarted()          { n.record("preview start") }
func (n *recordingNotifier) PreviewEnded()            { n.record("preview end") }
func (n *recordingNotifier) LevelCleared(lvl int)     { n.record("cleared %d", lvl) }
func (n *recordingNotifier) LevelFailed(lvl int)      { n.record("failed %d", lvl) }
func (n *recordingNotifier) reset()                   { n.events = nil }
func (n *recordingNotifier) last() string {
	if len(n.events) == 0 {
		return ""
	}
	return n.events[len(n.events)-1]
}

type scheduled struct {
	delay time.Duration
	d     Deferred
}

// manualScheduler queues deferred resolutions until the test fires them.
type manualScheduler struct {
	queue []scheduled
}

func (s *manualScheduler) After(delay time.Duration, d Deferred) {
	s.queue = append(s.queue, scheduled{delay, d})
}

func (s *manualScheduler) pop(t *testing.T) scheduled {
	t.Helper()
	if len(s.queue) == 0 {
		t.Fatal("Expected a scheduled resolution, queue is empty")
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next
}

// board builds tiles in the given order.
func board(symbols ...level.Symbol) []level.Tile {
	tiles := make([]level.Tile, len(symbols))
	for i, s := range symbols {
		tiles[i] = level.Tile{Symbol: s, Position: i}
	}
	return tiles
}

func newTestRound(policy HazardPolicy) (*Round, *recordingNotifier, *manualScheduler) {
	n := &recordingNotifier{}
	s := &manualScheduler{}
	r := NewRound(n, s, Options{Policy: policy, Timings: DefaultTimings()})
	return r, n, s
}

const (
	a = level.Symbol("A")
	b = level.Symbol("B")
	h = level.Hazard
)

func TestRound_IgnoresInputBeforeStart(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)

	if r.Phase() != Idle {
		t.Fatalf("New round should be idle, got %s", r.Phase())
	}
	if r.RequestFlip(0) {
		t.Error("Flip should be ignored while idle")
	}
	if r.RequestPreview() {
		t.Error("Preview should be ignored while idle")
	}
	if len(n.events) != 0 || len(s.queue) != 0 {
		t.Errorf("Idle round should stay silent, got %v", n.events)
	}
}

func TestRound_StartRound(t *testing.T) {
	r, n, _ := newTestRound(KeepBoard)
	cfg := level.Config{Pairs: 2, Hazards: 1}

	r.StartRound(3, cfg, board(a, h, b, a, b), false)

	if r.Phase() != Playing {
		t.Errorf("Expected playing, got %s", r.Phase())
	}
	if r.Lives != 1 {
		t.Errorf("Expected 1 life, got %d", r.Lives)
	}
	if r.MatchedPairs != 0 || len(r.Selection) != 0 || r.Locked {
		t.Errorf("Round not reset: %+v", r.Snapshot())
	}
	if r.Level != 3 {
		t.Errorf("Expected level 3, got %d", r.Level)
	}
	if !reflect.DeepEqual(n.events, []string{"reset 5"}) {
		t.Errorf("Unexpected notifications %v", n.events)
	}
}

func TestRound_Match(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)
	r.StartRound(1, level.Config{Pairs: 2}, board(a, b, a, b), false)
	n.reset()

	r.RequestFlip(0)
	if r.Locked {
		t.Fatal("One flipped tile should not lock the board")
	}
	r.RequestFlip(2)
	if !r.Locked {
		t.Fatal("Two flipped tiles should lock the board")
	}

	next := s.pop(t)
	if next.d.Kind != MatchResolve || next.delay != r.Options.Timings.Match {
		t.Fatalf("Expected match resolution after %s, got %s after %s", r.Options.Timings.Match, next.d.Kind, next.delay)
	}
	if r.MatchedPairs != 0 {
		t.Error("Pairs must not be counted before the delay elapses")
	}

	if !r.Fire(next.d) {
		t.Fatal("Fire should accept the pending resolution")
	}
	if r.Tiles[0].State != level.Matched || r.Tiles[2].State != level.Matched {
		t.Errorf("Both tiles should be matched: %v %v", r.Tiles[0].State, r.Tiles[2].State)
	}
	if r.MatchedPairs != 1 {
		t.Errorf("Expected 1 matched pair, got %d", r.MatchedPairs)
	}
	if r.Locked || len(r.Selection) != 0 {
		t.Error("Board should be unlocked with an empty selection")
	}
	want := []string{"flip 0", "flip 2", "match 0 2"}
	if !reflect.DeepEqual(n.events, want) {
		t.Errorf("Expected %v, got %v", want, n.events)
	}

	// Firing the same resolution again must not count the pair twice.
	if r.Fire(next.d) {
		t.Error("A resolution must only fire once")
	}
	if r.MatchedPairs != 1 {
		t.Errorf("Pair counted twice: %d", r.MatchedPairs)
	}
}

func TestRound_Mismatch(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)
	r.StartRound(1, level.Config{Pairs: 2}, board(a, b, a, b), false)
	n.reset()

	r.RequestFlip(0)
	r.RequestFlip(1)

	next := s.pop(t)
	if next.d.Kind != MismatchResolve || next.delay != r.Options.Timings.Mismatch {
		t.Fatalf("Expected mismatch resolution after %s, got %s after %s", r.Options.Timings.Mismatch, next.d.Kind, next.delay)
	}
	if r.Tiles[0].State != level.Flipped || r.Tiles[1].State != level.Flipped {
		t.Error("Tiles should stay face-up until the delay elapses")
	}

	r.Fire(next.d)

	if r.Tiles[0].State != level.Hidden || r.Tiles[1].State != level.Hidden {
		t.Error("Mismatched tiles should be hidden again")
	}
	if r.MatchedPairs != 0 {
		t.Errorf("Mismatch must not count a pair, got %d", r.MatchedPairs)
	}
	if r.Locked || len(r.Selection) != 0 {
		t.Error("Board should be unlocked with an empty selection")
	}
	if n.last() != "mismatch 0 1" {
		t.Errorf("Expected mismatch notification, got %v", n.events)
	}
}

func TestRound_IgnoredFlips(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)
	r.StartRound(1, level.Config{Pairs: 2}, board(a, b, a, b), false)

	// Match tiles 0 and 2 so there is a matched tile on the board.
	r.RequestFlip(0)
	r.RequestFlip(2)
	r.Fire(s.pop(t).d)

	r.RequestFlip(1)

	tests := []struct {
		name     string
		position int
	}{
		{"already flipped", 1},
		{"already matched", 0},
		{"negative position", -1},
		{"past the end", 4},
	}

	for _, tt := range tests {
		before := r.Snapshot()
		n.reset()
		queued := len(s.queue)

		if r.RequestFlip(tt.position) {
			t.Errorf("%s: flip should be ignored", tt.name)
		}
		if !reflect.DeepEqual(before, r.Snapshot()) {
			t.Errorf("%s: state changed", tt.name)
		}
		if len(n.events) != 0 || len(s.queue) != queued {
			t.Errorf("%s: ignored flip produced output %v", tt.name, n.events)
		}
	}

	// Matching 1 and 3 completes the board; it stays locked until cleared.
	r.RequestFlip(3)
	r.Fire(s.pop(t).d)
	if r.RequestFlip(1) {
		t.Error("Flip on a finished board should be ignored")
	}
}

func TestRound_IgnoresFlipWhileLocked(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)
	r.StartRound(1, level.Config{Pairs: 2}, board(a, b, a, b), false)

	r.RequestFlip(0)
	r.RequestFlip(1)
	n.reset()
	before := r.Snapshot()

	if r.RequestFlip(2) {
		t.Error("Flip should be ignored while a resolution is pending")
	}
	if r.RequestPreview() {
		t.Error("Preview should be ignored while a resolution is pending")
	}
	if !reflect.DeepEqual(before, r.Snapshot()) || len(n.events) != 0 {
		t.Error("Locked board must not change")
	}
	if len(s.queue) != 1 {
		t.Errorf("Expected one pending resolution, got %d", len(s.queue))
	}
}

func TestRound_IgnoresThirdTileWithFullSelection(t *testing.T) {
	r, _, _ := newTestRound(KeepBoard)
	r.StartRound(1, level.Config{Pairs: 2}, board(a, b, a, b), false)

	r.RequestFlip(0)
	r.RequestFlip(1)
	r.Locked = false // selection alone must still refuse a third tile

	if r.RequestFlip(2) {
		t.Error("A full selection should refuse a third tile")
	}
	if r.Tiles[2].State != level.Hidden {
		t.Error("Third tile must stay hidden")
	}
}

func TestRound_HazardKeepBoard(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)
	r.StartRound(2, level.Config{Pairs: 1, Hazards: 2}, board(a, h, a, h), false)
	n.reset()

	r.RequestFlip(1)

	if r.Lives != 1 {
		t.Errorf("Expected 1 life left, got %d", r.Lives)
	}
	if !r.Locked {
		t.Error("Hazard hit should lock the board")
	}
	if len(r.Selection) != 0 {
		t.Error("Hazard tiles never join the selection")
	}
	if n.last() != "hazard 1 1" {
		t.Errorf("Expected hazard notification, got %v", n.events)
	}

	next := s.pop(t)
	if next.d.Kind != HazardResolve || next.delay != r.Options.Timings.Hazard {
		t.Fatalf("Expected hazard resolution after %s, got %s after %s", r.Options.Timings.Hazard, next.d.Kind, next.delay)
	}
	r.Fire(next.d)

	if r.Phase() != Playing {
		t.Errorf("Surviving a hazard should keep playing, got %s", r.Phase())
	}
	if r.Tiles[1].State != level.Hidden {
		t.Errorf("Hazard should be face-down again, got %s", r.Tiles[1].State)
	}
	if r.Locked {
		t.Error("Board should be unlocked")
	}
	if n.last() != "rehide 1" {
		t.Errorf("Expected rehide notification, got %v", n.events)
	}

	// Second hit ends the round.
	r.RequestFlip(3)
	if r.Lives != 0 {
		t.Errorf("Expected 0 lives, got %d", r.Lives)
	}
	r.Fire(s.pop(t).d)

	if r.Phase() != LevelFailed {
		t.Errorf("Expected level failed, got %s", r.Phase())
	}
	if r.Tiles[3].State != level.Matched {
		t.Error("Triggered hazard should stay inert through the failure")
	}
	if n.last() != "failed 2" {
		t.Errorf("Expected failed notification, got %v", n.events)
	}
	if r.RequestFlip(0) {
		t.Error("Failed round must ignore flips")
	}
}

func TestRound_HazardWithPendingSelection(t *testing.T) {
	r, _, s := newTestRound(KeepBoard)
	r.StartRound(1, level.Config{Pairs: 1, Hazards: 2}, board(a, h, a, h), false)

	r.RequestFlip(0)
	r.RequestFlip(1)
	r.Fire(s.pop(t).d)

	if !reflect.DeepEqual(r.Selection, []int{0}) {
		t.Fatalf("Regular tile should stay selected, got %v", r.Selection)
	}

	r.RequestFlip(2)
	r.Fire(s.pop(t).d)
	if r.MatchedPairs != 1 {
		t.Errorf("Expected the pair to match after the hazard, got %d", r.MatchedPairs)
	}
}

func TestRound_HazardRestartPolicy(t *testing.T) {
	r, n, s := newTestRound(RestartRound)
	r.StartRound(4, level.Config{Pairs: 1, Hazards: 3}, board(h, a, h, a, h), false)

	r.RequestFlip(0)
	if r.Lives != 2 {
		t.Errorf("Expected 2 lives, got %d", r.Lives)
	}
	r.Fire(s.pop(t).d)

	if r.Phase() != LevelFailed {
		t.Errorf("Restart policy should fail the round on any hazard, got %s", r.Phase())
	}
	if n.last() != "failed 4" {
		t.Errorf("Expected failed notification, got %v", n.events)
	}
}

func TestRound_LevelCleared(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)
	r.StartRound(1, level.Config{Pairs: 2, Hazards: 1}, board(a, b, h, b, a), false)

	r.RequestFlip(0)
	r.RequestFlip(4)
	r.Fire(s.pop(t).d)
	r.RequestFlip(1)
	r.RequestFlip(3)
	r.Fire(s.pop(t).d)

	if r.MatchedPairs != 2 {
		t.Fatalf("Expected 2 pairs, got %d", r.MatchedPairs)
	}
	if r.Phase() != Playing || !r.Locked {
		t.Fatalf("Board should pause before clearing, phase %s locked %v", r.Phase(), r.Locked)
	}
	if r.RequestFlip(2) {
		t.Error("Hazard must not be flippable during the clear pause")
	}

	next := s.pop(t)
	if next.d.Kind != ClearPause || next.delay != r.Options.Timings.Clear {
		t.Fatalf("Expected clear pause after %s, got %s after %s", r.Options.Timings.Clear, next.d.Kind, next.delay)
	}
	r.Fire(next.d)

	if r.Phase() != LevelCleared {
		t.Errorf("Expected level cleared, got %s", r.Phase())
	}
	if n.last() != "cleared 1" {
		t.Errorf("Expected cleared notification, got %v", n.events)
	}
}

func TestRound_StaleResolutionIgnored(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)
	cfg := level.Config{Pairs: 2}
	r.StartRound(1, cfg, board(a, b, a, b), false)
	gen := r.Generation()

	r.RequestFlip(0)
	r.RequestFlip(2)
	stale := s.pop(t)

	r.StartRound(1, cfg, board(a, a, b, b), false)
	if r.Generation() == gen {
		t.Fatal("StartRound must advance the generation")
	}
	n.reset()
	before := r.Snapshot()

	if r.Fire(stale.d) {
		t.Error("Stale resolution should be ignored")
	}
	if !reflect.DeepEqual(before, r.Snapshot()) || len(n.events) != 0 {
		t.Error("Stale resolution must not change the new round")
	}
}

func TestRound_Preview(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)
	r.StartRound(1, level.Config{Pairs: 2}, board(a, b, a, b), true)

	if r.Phase() != Previewing {
		t.Fatalf("Expected previewing, got %s", r.Phase())
	}
	snap := r.Snapshot()
	for i := range snap.Tiles {
		if !snap.Revealed(i) {
			t.Errorf("Tile %d should be shown during preview", i)
		}
	}
	if r.RequestFlip(0) {
		t.Error("Flips are ignored during preview")
	}

	next := s.pop(t)
	if next.d.Kind != PreviewEnd || next.delay != r.Options.Timings.Preview {
		t.Fatalf("Expected preview end after %s, got %s after %s", r.Options.Timings.Preview, next.d.Kind, next.delay)
	}
	r.Fire(next.d)

	if r.Phase() != Playing {
		t.Errorf("Expected playing after preview, got %s", r.Phase())
	}
	if r.Snapshot().Revealed(0) {
		t.Error("Tiles should be hidden after preview")
	}
	want := []string{"reset 4", "preview start", "preview end"}
	if !reflect.DeepEqual(n.events, want) {
		t.Errorf("Expected %v, got %v", want, n.events)
	}

	// Preview on demand is refused with a tile pending.
	r.RequestFlip(0)
	if r.RequestPreview() {
		t.Error("Preview should be refused with a pending selection")
	}
}

func TestRound_RequestPreview(t *testing.T) {
	r, n, s := newTestRound(KeepBoard)
	r.StartRound(1, level.Config{Pairs: 2}, board(a, b, a, b), false)
	n.reset()

	if !r.RequestPreview() {
		t.Fatal("Preview should be accepted on a settled board")
	}
	if r.Phase() != Previewing {
		t.Errorf("Expected previewing, got %s", r.Phase())
	}
	r.Fire(s.pop(t).d)
	if r.Phase() != Playing {
		t.Errorf("Expected playing, got %s", r.Phase())
	}
	if !reflect.DeepEqual(n.events, []string{"preview start", "preview end"}) {
		t.Errorf("Unexpected notifications %v", n.events)
	}
}

func TestTimings_Validate(t *testing.T) {
	if err := DefaultTimings().Validate(); err != nil {
		t.Fatalf("Default timings should be valid: %v", err)
	}

	tests := []struct {
		name string
		mod  func(*Timings)
	}{
		{"match not above hazard", func(tm *Timings) { tm.Hazard = tm.Match }},
		{"mismatch not above match", func(tm *Timings) { tm.Mismatch = tm.Match - time.Millisecond }},
		{"zero preview", func(tm *Timings) { tm.Preview = 0 }},
	}

	for _, tt := range tests {
		tm := DefaultTimings()
		tt.mod(&tm)
		var ce *level.ConfigError
		if err := tm.Validate(); !errors.As(err, &ce) {
			t.Errorf("%s: expected ConfigError, got %v", tt.name, err)
		}
	}
}

func TestTimings_WithDefaults(t *testing.T) {
	tm := Timings{Match: 900 * time.Millisecond}.WithDefaults()

	if tm.Match != 900*time.Millisecond {
		t.Errorf("Explicit delay overwritten: %s", tm.Match)
	}
	if tm.Mismatch != DefaultTimings().Mismatch {
		t.Errorf("Missing delay not defaulted: %s", tm.Mismatch)
	}
}
