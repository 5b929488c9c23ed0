// Terrain and town generation using layered simplex noise. Tree lines, rock
// outcrops, and ponds come from independent noise layers; the town's
// buildings and the dungeon entrance are then placed on open ground.
package world

import (
	"log/slog"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width  int
	Height int
	Seed   int64

	// Noise thresholds in [0,1]. A cell becomes the respective terrain when
	// its layer's octave noise exceeds the threshold.
	TreeLevel float64
	RockLevel float64
	PondLevel float64
}

// DefaultGenConfig returns the standard town map parameters.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		TreeLevel: 0.72,
		RockLevel: 0.80,
		PondLevel: 0.78,
	}
}

// SmallTestConfig returns a tiny, nearly open map for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:     40,
		Height:    30,
		Seed:      42,
		TreeLevel: 0.85,
		RockLevel: 0.95,
		PondLevel: 0.95,
	}
}

// Generate creates a world with terrain from the seed, places the town
// buildings and the dungeon entrance, and fully builds the heatmap registry.
func Generate(cfg GenConfig, maps *heatmap.Maps) *World {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	treeNoise := opensimplex.NewNormalized(seed)
	rockNoise := opensimplex.NewNormalized(seed + 1)
	pondNoise := opensimplex.NewNormalized(seed + 2)

	w := New(cfg.Width, cfg.Height)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)
			p := grid.Point{X: x, Y: y}
			switch {
			case octaveNoise(treeNoise, fx, fy, 4, 0.08, 0.5) > cfg.TreeLevel:
				w.Statics.Set(p, StaticTree)
			case octaveNoise(rockNoise, fx, fy, 3, 0.06, 0.5) > cfg.RockLevel:
				w.Statics.Set(p, StaticRock)
			case octaveNoise(pondNoise, fx, fy, 3, 0.05, 0.5) > cfg.PondLevel:
				w.Statics.Set(p, StaticWater)
			}
		}
	}

	placeTown(w, maps, rand.New(rand.NewSource(seed+3)))

	// Building placement registered sources without rebuilding; one full
	// rebuild now that every obstruction is in place.
	maps.RebuildAll(w.Blocked)

	return w
}

// placeTown clears a patch near the map center and stamps the inn, the
// general store, and the dungeon entrance around it.
func placeTown(w *World, maps *heatmap.Maps, rng *rand.Rand) {
	cx, cy := w.Width/2, w.Height/2

	// Clear the town footprint of generated terrain.
	for y := cy - 12; y <= cy+12; y++ {
		for x := cx - 16; x <= cx+16; x++ {
			p := grid.Point{X: x, Y: y}
			if w.Statics.InBounds(p) {
				w.Statics.Set(p, StaticNone)
			}
		}
	}

	innTpl := NewTemplate(TemplateInn)
	if rng.Intn(2) == 0 {
		innTpl.Clockwise()
	}
	stampTemplate(w, maps, innTpl, grid.Point{X: cx - 14, Y: cy - 8})

	storeTpl := NewTemplate(TemplateGeneralStore)
	stampTemplate(w, maps, storeTpl, grid.Point{X: cx + 6, Y: cy - 6})

	w.PlaceStatic(grid.Point{X: cx, Y: cy + 8}, StaticDungeon, maps)

	slog.Info("town placed", "center", grid.Point{X: cx, Y: cy}, "sources", len(w.SourceTags))
}

// stampTemplate places a template without the per-placement rebuild; the
// caller rebuilds once after all edits.
func stampTemplate(w *World, maps *heatmap.Maps, t *Template, origin grid.Point) {
	for p, s := range t.Cells {
		w.PlaceStatic(grid.Point{X: origin.X + p.X, Y: origin.Y + p.Y}, s, maps)
	}
}

// octaveNoise layers several noise octaves for a more natural look.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxValue := 0.0
	freq := frequency

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*freq, y*freq) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		freq *= 2
	}

	return total / maxValue
}
