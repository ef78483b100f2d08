// Package placement chooses where rays start: random centers inside the scene
// margin, an orientation from the configured set, and speed and width
// modulated by layered simplex noise so nearby rays grow at similar rates.
package placement

import (
	"math/rand"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/widmanstatten/internal/config"
	"github.com/talgya/widmanstatten/internal/scene"
)

// Generator produces ray specs for a scene. Safe for concurrent use.
type Generator struct {
	cfg  config.Scene
	seed int64

	speedNoise opensimplex.Noise
	widthNoise opensimplex.Noise

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A zero seed picks a random one.
func NewGenerator(cfg config.Scene, seed int64) *Generator {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Generator{
		cfg:        cfg,
		seed:       seed,
		speedNoise: opensimplex.NewNormalized(seed),
		widthNoise: opensimplex.NewNormalized(seed + 1),
		rng:        rand.New(rand.NewSource(seed + 2)),
	}
}

// Seed returns the seed in use.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Margin is the distance kept between initial centers and the scene edge.
func (g *Generator) Margin() float64 {
	return g.cfg.Width / 10
}

// Initial returns the specs for the initial batch of rays.
func (g *Generator) Initial() []scene.Spec {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := g.Margin()
	specs := make([]scene.Spec, 0, g.cfg.InitialCount)
	for i := 0; i < g.cfg.InitialCount; i++ {
		p := scene.Point{
			X: m + g.rng.Float64()*(g.cfg.Width-2*m),
			Y: m + g.rng.Float64()*(g.cfg.Height-2*m),
		}
		specs = append(specs, g.specAt(p))
	}
	return specs
}

// At returns a spec centered on p, e.g. for a ray inserted from a click.
func (g *Generator) At(p scene.Point) scene.Spec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.specAt(p)
}

// Orientation picks a random member of the orientation set.
func (g *Generator) Orientation() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orientation()
}

// SpeedAt returns the noise-modulated speed at p.
func (g *Generator) SpeedAt(p scene.Point) float64 {
	n := octaveNoise(g.speedNoise, p.X, p.Y, 3, g.cfg.NoiseScale, 0.5)
	return g.cfg.MeanSpeed * (1 + g.cfg.SpeedJitter*(2*n-1))
}

// WidthAt returns the noise-modulated render width at p, within ±50% of the mean.
func (g *Generator) WidthAt(p scene.Point) float64 {
	n := octaveNoise(g.widthNoise, p.X, p.Y, 2, g.cfg.NoiseScale, 0.5)
	return g.cfg.MeanWidth * (0.5 + n)
}

func (g *Generator) specAt(p scene.Point) scene.Spec {
	return scene.Spec{
		Center:      p,
		Orientation: g.orientation(),
		Speed:       g.SpeedAt(p),
		Width:       g.WidthAt(p),
	}
}

func (g *Generator) orientation() float64 {
	set := g.cfg.Orientations
	return set[g.rng.Intn(len(set))]
}

// octaveNoise sums octaves of normalized noise; the result stays in [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
