package level

import (
	"math/rand"
)

// Generate builds the shuffled board for a level. The first cfg.Pairs symbols
// of pool are used, each twice, followed by cfg.Hazards hazard tiles. The
// only side effect is drawing from rng, so a seeded source reproduces the
// same board.
func Generate(cfg Config, pool []Symbol, rng *rand.Rand) ([]Tile, error) {
	if err := cfg.Validate(pool); err != nil {
		return nil, err
	}

	symbols := make([]Symbol, 0, cfg.TileCount())
	symbols = append(symbols, pool[:cfg.Pairs]...)
	symbols = append(symbols, pool[:cfg.Pairs]...)
	for i := 0; i < cfg.Hazards; i++ {
		symbols = append(symbols, Hazard)
	}

	Shuffle(symbols, rng)

	tiles := make([]Tile, len(symbols))
	for i, sym := range symbols {
		tiles[i] = Tile{Symbol: sym, Position: i, State: Hidden}
	}
	return tiles, nil
}

// Shuffle permutes symbols in place with Fisher–Yates.
func Shuffle(symbols []Symbol, rng *rand.Rand) {
	for i := len(symbols) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		symbols[i], symbols[j] = symbols[j], symbols[i]
	}
}
