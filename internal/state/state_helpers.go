package state

import (
	"go-tiles/internal/level"
)

// Snapshot is a copy of the round that renderers can hold on to.
type Snapshot struct {
	Level        int
	Phase        string
	Config       level.Config
	Tiles        []level.Tile
	Lives        int
	MatchedPairs int
	Selection    []int
	Locked       bool
}

// Revealed reports whether the tile at position should be drawn face-up.
func (s Snapshot) Revealed(position int) bool {
	if position < 0 || position >= len(s.Tiles) {
		return false
	}
	return s.Phase == Previewing || s.Tiles[position].State != level.Hidden
}

func (r *Round) Snapshot() Snapshot {
	return Snapshot{
		Level:        r.Level,
		Phase:        r.Phase(),
		Config:       r.Config,
		Tiles:        r.copyTiles(),
		Lives:        r.Lives,
		MatchedPairs: r.MatchedPairs,
		Selection:    append([]int(nil), r.Selection...),
		Locked:       r.Locked,
	}
}

func (r *Round) Phase() string {
	return r.FSM.Current()
}

// Generation identifies the current board. It changes on every StartRound.
func (r *Round) Generation() uint64 {
	return r.generation
}

func (r *Round) canFlip(position int) bool {
	if !r.FSM.Is(Playing) || r.Locked {
		return false
	}
	if position < 0 || position >= len(r.Tiles) {
		return false
	}
	if r.Tiles[position].State != level.Hidden {
		return false
	}
	return len(r.Selection) < 2
}

func (r *Round) copyTiles() []level.Tile {
	tiles := make([]level.Tile, len(r.Tiles))
	copy(tiles, r.Tiles)
	return tiles
}
