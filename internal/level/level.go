package level

import (
	"fmt"
)

// Symbol is the face value printed on a tile.
type Symbol string

// Hazard is the symbol that costs a life instead of forming a pair.
const Hazard Symbol = "💣"

// DefaultPool is the ordered set of regular symbols. Levels take their pairs
// from the front of the pool.
var DefaultPool = []Symbol{
	"⭐", "🌈", "🔥", "💧", "🍎", "🚗", "💡", "🔔",
	"⚽", "🎈", "⚙️", "🎯", "🚀", "👑", "🔑", "🧊",
}

type TileState int

const (
	Hidden TileState = iota
	Flipped
	Matched
)

func (s TileState) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Flipped:
		return "flipped"
	case Matched:
		return "matched"
	}
	return fmt.Sprintf("TileState(%d)", int(s))
}

// Tile is one face-down/face-up unit on the board.
type Tile struct {
	Symbol   Symbol
	Position int
	State    TileState
}

// IsHazard reports whether the tile carries the hazard symbol.
func (t Tile) IsHazard() bool {
	return t.Symbol == Hazard
}

// Config describes a single level. Layout is a presentation hint and is not
// interpreted by the game core.
type Config struct {
	Pairs   int    `yaml:"pairs"`
	Hazards int    `yaml:"hazards"`
	Layout  string `yaml:"layout"`
}

// TileCount returns the board size for the level.
func (c Config) TileCount() int {
	return c.Pairs*2 + c.Hazards
}

// Validate checks the config against a symbol pool.
func (c Config) Validate(pool []Symbol) error {
	switch {
	case c.Pairs <= 0:
		return &ConfigError{Reason: fmt.Sprintf("pairs must be positive, got %d", c.Pairs)}
	case c.Hazards < 0:
		return &ConfigError{Reason: fmt.Sprintf("hazards must not be negative, got %d", c.Hazards)}
	case c.Pairs > len(pool):
		return &ConfigError{Reason: fmt.Sprintf("%d pairs requested but the symbol pool holds %d", c.Pairs, len(pool))}
	}

	// Every regular symbol must land on the board exactly twice.
	seen := make(map[Symbol]bool, c.Pairs)
	for _, sym := range pool[:c.Pairs] {
		if sym == Hazard {
			return &ConfigError{Reason: "symbol pool must not contain the hazard symbol"}
		}
		if seen[sym] {
			return &ConfigError{Reason: fmt.Sprintf("symbol %q appears more than once in the pool", sym)}
		}
		seen[sym] = true
	}
	return nil
}

// Table is the level configuration indexed by level number, starting at 1.
type Table []Config

// Len returns the number of configured levels.
func (t Table) Len() int {
	return len(t)
}

// Lookup returns the configuration for a 1-based level number.
func (t Table) Lookup(level int) (Config, error) {
	if level < 1 || level > len(t) {
		return Config{}, &ConfigError{Level: level, Reason: "level not configured"}
	}
	return t[level-1], nil
}

// Validate checks every level against the pool and returns the first error.
func (t Table) Validate(pool []Symbol) error {
	if len(t) == 0 {
		return &ConfigError{Reason: "no levels configured"}
	}
	for i, cfg := range t {
		if err := cfg.Validate(pool); err != nil {
			ce := err.(*ConfigError)
			ce.Level = i + 1
			return ce
		}
	}
	return nil
}

// ConfigError reports a level table that cannot be played. It is fatal at
// startup and is never produced once a round is running.
type ConfigError struct {
	Level  int // 0 when the error is not tied to one level
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Level > 0 {
		return fmt.Sprintf("level %d: %s", e.Level, e.Reason)
	}
	return "level config: " + e.Reason
}
