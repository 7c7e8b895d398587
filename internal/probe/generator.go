package probe

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/pkg/logger"
)

// Archetype names a behavioural pattern the generator draws from.
type Archetype string

const (
	ArchetypeRegular        Archetype = "regular"
	ArchetypeBulkBuyer      Archetype = "bulk_buyer"
	ArchetypeWeekendShopper Archetype = "weekend_shopper"
	ArchetypeNightOwl       Archetype = "night_owl"
	ArchetypeBurst          Archetype = "burst"
)

// Archetypes lists every archetype in generation order.
var Archetypes = []Archetype{
	ArchetypeRegular,
	ArchetypeBulkBuyer,
	ArchetypeWeekendShopper,
	ArchetypeNightOwl,
	ArchetypeBurst,
}

// generator draws valid RawInputs for each archetype.
type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// between returns a uniform integer in [lo, hi].
func (g *generator) between(lo, hi int64) int64 {
	return lo + g.rng.Int64N(hi-lo+1)
}

// uniform returns a uniform float in [lo, hi).
func (g *generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *generator) fraction(tx int64, lo, hi float64) int64 {
	return int64(math.Round(float64(tx) * g.uniform(lo, hi)))
}

func (g *generator) hour(lo, hi float64) float64 {
	return math.Round(g.uniform(lo, hi)*10) / 10
}

// profile builds one customer of the given archetype. Every field is
// inside the validated range.
func (g *generator) profile(a Archetype) Profile {
	var in model.RawInput
	switch a {
	case ArchetypeBulkBuyer:
		in.TotalTransactions = g.between(20, 300)
		in.TotalDaysActive = g.between(30, 365)
		in.TotalBulkOrders = g.fraction(in.TotalTransactions, 0.3, 0.9)
		in.WeekendOrders = g.fraction(in.TotalTransactions, 0.1, 0.3)
		in.AvgOrderValue = g.uniform(800, 5000)
		in.AvgInvoiceHour = g.hour(9, 18)
	case ArchetypeWeekendShopper:
		in.TotalTransactions = g.between(10, 200)
		in.TotalDaysActive = g.between(30, 365)
		in.TotalBulkOrders = g.fraction(in.TotalTransactions, 0, 0.1)
		in.WeekendOrders = g.fraction(in.TotalTransactions, 0.6, 1)
		in.AvgOrderValue = g.uniform(40, 600)
		in.AvgInvoiceHour = g.hour(10, 20)
	case ArchetypeNightOwl:
		in.TotalTransactions = g.between(10, 300)
		in.TotalDaysActive = g.between(10, 200)
		in.TotalBulkOrders = g.fraction(in.TotalTransactions, 0, 0.2)
		in.WeekendOrders = g.fraction(in.TotalTransactions, 0.2, 0.4)
		in.AvgOrderValue = g.uniform(100, 2000)
		in.AvgInvoiceHour = g.hour(0, 5)
	case ArchetypeBurst:
		in.TotalTransactions = g.between(100, 2000)
		in.TotalDaysActive = g.between(1, 10)
		in.TotalBulkOrders = g.fraction(in.TotalTransactions, 0.1, 0.5)
		in.WeekendOrders = g.fraction(in.TotalTransactions, 0.2, 0.6)
		in.AvgOrderValue = g.uniform(300, 4000)
		in.AvgInvoiceHour = g.hour(0, 23)
	default:
		a = ArchetypeRegular
		in.TotalTransactions = g.between(5, 150)
		in.TotalDaysActive = g.between(60, 720)
		in.TotalBulkOrders = g.fraction(in.TotalTransactions, 0, 0.05)
		in.WeekendOrders = g.fraction(in.TotalTransactions, 0.15, 0.35)
		in.AvgOrderValue = g.uniform(20, 400)
		in.AvgInvoiceHour = g.hour(9, 19)
	}
	in.AvgOrderValue = math.Round(in.AvgOrderValue*100) / 100
	return Profile{ID: uuid.NewString(), Archetype: a, Input: in}
}

// generateProfiles cycles through the archetypes until n profiles exist.
func generateProfiles(ctx context.Context, n int, seed uint64, stats *Stats) ([]Profile, error) {
	logger.Get().Info(ctx, "generating customer profiles", logger.Int("count", n))

	g := newGenerator(seed)
	profiles := make([]Profile, n)
	for i := range profiles {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		profiles[i] = g.profile(Archetypes[i%len(Archetypes)])
		if err := profiles[i].Input.Validate(); err != nil {
			return nil, fmt.Errorf("generated invalid profile %d: %w", i, err)
		}
	}

	stats.Generated = len(profiles)
	return profiles, nil
}
