package game

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"go-tiles/internal/level"
	"go-tiles/internal/progress"
	"go-tiles/internal/state"

	"github.com/charmbracelet/log"
)

type Options struct {
	StartLevel int   // 1-based; 0 means level 1
	Seed       int64 // 0 seeds from the clock
	Preview    bool  // every round opens with a preview
	Policy     state.HazardPolicy
	Timings    state.Timings
}

// Session plays the configured levels in order. Clearing a level starts the
// next one, wrapping to level 1 after the last; failing a level restarts it
// on a fresh board. Like Round, a Session must be driven from one goroutine.
type Session struct {
	Table    level.Table
	Pool     []level.Symbol
	Round    *state.Round
	Progress *progress.Tracker
	Options  Options

	current  int
	rng      *rand.Rand
	notifier state.Notifier
	logger   *log.Logger
}

// NewSession validates the level table before any round starts. A nil
// notifier or logger is replaced by a no-op.
func NewSession(table level.Table, pool []level.Symbol, opts Options, notifier state.Notifier, scheduler state.Scheduler, logger *log.Logger) (*Session, error) {
	if err := table.Validate(pool); err != nil {
		return nil, fmt.Errorf("cannot start session: %w", err)
	}

	if opts.StartLevel == 0 {
		opts.StartLevel = 1
	}
	if _, err := table.Lookup(opts.StartLevel); err != nil {
		return nil, fmt.Errorf("cannot start session: %w", err)
	}

	opts.Timings = opts.Timings.WithDefaults()
	if err := opts.Timings.Validate(); err != nil {
		return nil, fmt.Errorf("cannot start session: %w", err)
	}

	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if notifier == nil {
		notifier = state.NopNotifier{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Session{
		Table:    table,
		Pool:     pool,
		Progress: progress.New(),
		Options:  opts,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		notifier: notifier,
		logger:   logger,
	}
	s.Round = state.NewRound(relay{s: s, Notifier: notifier}, scheduler, state.Options{
		Policy:  opts.Policy,
		Timings: opts.Timings,
	})

	logger.Debug("session ready", "levels", table.Len(), "seed", opts.Seed, "policy", opts.Policy)
	return s, nil
}

// Start begins the first round.
func (s *Session) Start() error {
	return s.StartLevel(s.Options.StartLevel)
}

// StartLevel generates a fresh board for lvl and starts a round on it.
func (s *Session) StartLevel(lvl int) error {
	cfg, err := s.Table.Lookup(lvl)
	if err != nil {
		return err
	}
	tiles, err := level.Generate(cfg, s.Pool, s.rng)
	if err != nil {
		return err
	}

	s.current = lvl
	s.Progress.Record(progress.RoundStarted, lvl)
	s.logger.Info("round started", "level", lvl, "attempt", s.Progress.Attempts(lvl), "pairs", cfg.Pairs, "hazards", cfg.Hazards)

	s.Round.StartRound(lvl, cfg, tiles, s.Options.Preview)
	return nil
}

// Restart begins the current level again on a new board.
func (s *Session) Restart() error {
	return s.StartLevel(s.current)
}

func (s *Session) Flip(position int) bool {
	return s.Round.RequestFlip(position)
}

func (s *Session) Preview() bool {
	return s.Round.RequestPreview()
}

// Fire hands an elapsed resolution to the round.
func (s *Session) Fire(d state.Deferred) {
	if !s.Round.Fire(d) {
		s.logger.Debug("dropped stale resolution", "kind", d.Kind, "generation", d.Generation, "current", s.Round.Generation())
	}
}

func (s *Session) CurrentLevel() int {
	return s.current
}

func (s *Session) Snapshot() state.Snapshot {
	return s.Round.Snapshot()
}

func (s *Session) levelCleared(lvl int) {
	s.Progress.Record(progress.LevelCleared, lvl)

	next := lvl + 1
	if next > s.Table.Len() {
		s.Progress.Record(progress.RunCompleted, lvl)
		s.logger.Info("all levels completed", "runs", s.Progress.Completions)
		s.notifier.AllLevelsCompleted()
		next = 1
	} else {
		s.logger.Info("level cleared", "level", lvl, "next", next)
	}

	if err := s.StartLevel(next); err != nil {
		s.logger.Error("could not start next level", "level", next, "err", err)
	}
}

func (s *Session) levelFailed(lvl int) {
	s.Progress.Record(progress.LevelFailed, lvl)
	s.logger.Info("level failed, restarting", "level", lvl)

	if err := s.StartLevel(lvl); err != nil {
		s.logger.Error("could not restart level", "level", lvl, "err", err)
	}
}

// relay forwards round notifications to the presentation and applies the
// session's progression rules.
type relay struct {
	state.Notifier
	s *Session
}

func (r relay) TileMatched(positions [2]int) {
	r.s.Progress.Record(progress.PairMatched, r.s.current)
	r.Notifier.TileMatched(positions)
}

func (r relay) HazardTriggered(position, livesRemaining int) {
	r.s.Progress.Record(progress.HazardHit, r.s.current)
	r.s.logger.Debug("hazard triggered", "level", r.s.current, "position", position, "lives", livesRemaining)
	r.Notifier.HazardTriggered(position, livesRemaining)
}

func (r relay) LevelCleared(lvl int) {
	r.Notifier.LevelCleared(lvl)
	r.s.levelCleared(lvl)
}

func (r relay) LevelFailed(lvl int) {
	r.Notifier.LevelFailed(lvl)
	r.s.levelFailed(lvl)
}
