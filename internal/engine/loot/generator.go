// Package loot decides how many items to spawn on a map each tick
package loot

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/cespare/xxhash/v2"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
)

// diceResolution is the number of distinct fractions a dice source can produce
const diceResolution = 1_000_000

// RandomSource yields fractions in [0, 1]
type RandomSource interface {
	Fraction() float64
}

// Splitter is a RandomSource that derives independent child streams
type Splitter interface {
	RandomSource
	Split(key string) RandomSource
}

type diceSource struct {
	roller dice.Roller
}

// NewDiceSource turns a toolkit dice roller into a RandomSource
func NewDiceSource(roller dice.Roller) RandomSource {
	return &diceSource{roller: roller}
}

// Fraction rolls a d1000000 and maps it onto [0, 1)
func (d *diceSource) Fraction() float64 {
	v, err := d.roller.Roll(diceResolution)
	if err != nil {
		slog.Warn("dice roll failed, using 0", "size", diceResolution, "error", err)
		return 0
	}
	return float64(v-1) / diceResolution
}

// SeededSource is a reproducible RandomSource. It is not safe for
// concurrent use.
type SeededSource struct {
	seed uint64
	rng  *rand.Rand
}

// NewSeededSource creates a source whose draws depend only on seed
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{seed: seed, rng: rand.New(rand.NewPCG(seed, seed))}
}

// Fraction returns the next value in [0, 1)
func (s *SeededSource) Fraction() float64 {
	return s.rng.Float64()
}

// Split returns a new source seeded from this seed and key. The parent's
// own stream is not advanced.
func (s *SeededSource) Split(key string) RandomSource {
	h := xxhash.Sum64String(key)
	return &SeededSource{seed: s.seed ^ h, rng: rand.New(rand.NewPCG(s.seed, h))}
}

// FixedSource always returns the same fraction
type FixedSource float64

// Fraction returns the fixed value
func (f FixedSource) Fraction() float64 {
	return float64(f)
}

// Config holds generator settings
type Config struct {
	// Period is the interval over which Probability applies
	Period time.Duration
	// Probability of a spawn within one Period, in [0, 1]
	Probability float64
	Random      RandomSource
}

// Validate ensures settings are usable
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Period <= 0 {
		vb.Field("Period", "must be positive")
	}
	if c.Probability < 0 || c.Probability > 1 || math.IsNaN(c.Probability) {
		vb.Field("Probability", "must be between 0 and 1")
	}
	if c.Random == nil {
		vb.RequiredField("Random")
	}
	return vb.Build()
}

// Generator accumulates time without spawns and converts it into a spawn count.
// The count never exceeds the shortage of items relative to looters.
// A Generator is not safe for concurrent use.
type Generator struct {
	period          time.Duration
	probability     float64
	random          RandomSource
	timeWithoutLoot time.Duration
}

// NewGenerator creates a generator from cfg
func NewGenerator(cfg *Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Generator{
		period:      cfg.Period,
		probability: cfg.Probability,
		random:      cfg.Random,
	}, nil
}

// Generate returns how many items to spawn after elapsed time.
// The chance of a spawn grows as 1-(1-p)^(t/period) with t the time since
// the last spawn, scaled by a random fraction and by the shortage.
func (g *Generator) Generate(elapsed time.Duration, lootCount, looterCount int) int {
	if elapsed > 0 {
		g.timeWithoutLoot += elapsed
	}

	shortage := looterCount - lootCount
	if shortage <= 0 {
		return 0
	}

	ratio := float64(g.timeWithoutLoot) / float64(g.period)
	chance := (1 - math.Pow(1-g.probability, ratio)) * g.random.Fraction()
	chance = math.Min(math.Max(chance, 0), 1)

	generated := int(math.Round(float64(shortage) * chance))
	if generated > 0 {
		g.timeWithoutLoot = 0
	}
	return generated
}

// TimeWithoutLoot returns the accumulated time since the last spawn
func (g *Generator) TimeWithoutLoot() time.Duration {
	return g.timeWithoutLoot
}

// RestoreTimeWithoutLoot sets the accumulator, used when loading a snapshot
func (g *Generator) RestoreTimeWithoutLoot(d time.Duration) {
	if d < 0 {
		d = 0
	}
	g.timeWithoutLoot = d
}
