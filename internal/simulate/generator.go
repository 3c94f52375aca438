package simulate

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/checkpoint/internal/domain/features"
)

// Feature derivation thresholds used when the training data was built.
const (
	highSpeedKmh      = 80
	suddenAccelMps2   = 3
	maxPastIncidents  = 3
	laneChangeChance  = 0.3
	minSpeedKmh       = 30
	speedRangeKmh     = 130
	accelRangeMps2    = 12
	speedDecimals     = 1
	coordinateDecimal = 6
)

// Derive computes the full feature mapping from the four raw measurements.
func Derive(speed, acceleration, laneChange, pastHistory, lat, lon float64) map[string]float64 {
	isHighSpeed := boolFloat(speed > highSpeedKmh)
	isSudden := boolFloat(math.Abs(acceleration) > suddenAccelMps2)
	return map[string]float64{
		features.Speed:                speed,
		features.Acceleration:         acceleration,
		features.LaneChange:           laneChange,
		features.PastHistory:          pastHistory,
		features.Latitude:             lat,
		features.Longitude:            lon,
		features.IsHighSpeed:          isHighSpeed,
		features.SpeedLaneInteraction: speed * laneChange,
		features.IsSudden:             isSudden,
		features.CombinedRisk:         isHighSpeed + isSudden + laneChange + pastHistory,
	}
}

// Generator produces readings from a fixed set of checkpoints.
type Generator struct {
	rng         *rand.Rand
	checkpoints []checkpoint
	now         func() time.Time
}

type checkpoint struct {
	id       string
	lat, lon float64
}

// NewGenerator places cfg.Checkpoints checkpoints around the configured center.
func NewGenerator(cfg Config) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	g := &Generator{
		rng: rand.New(rand.NewPCG(seed, seed>>1|1)),
		now: time.Now,
	}
	for range cfg.Checkpoints {
		g.checkpoints = append(g.checkpoints, checkpoint{
			id:  "cp-" + uuid.NewString()[:8],
			lat: round(cfg.CenterLat+g.offset(cfg.Spread), coordinateDecimal),
			lon: round(cfg.CenterLon+g.offset(cfg.Spread), coordinateDecimal),
		})
	}
	return g
}

// Generate returns n readings.
func (g *Generator) Generate(n int) []Reading {
	out := make([]Reading, n)
	for i := range out {
		out[i] = g.next()
	}
	return out
}

func (g *Generator) next() Reading {
	cp := g.checkpoints[g.rng.IntN(len(g.checkpoints))]
	speed := round(minSpeedKmh+g.rng.Float64()*speedRangeKmh, speedDecimals)
	accel := round((g.rng.Float64()-0.5)*accelRangeMps2, speedDecimals)
	lane := boolFloat(g.rng.Float64() < laneChangeChance)
	history := float64(g.rng.IntN(maxPastIncidents + 1))

	return Reading{
		Latitude:     cp.lat,
		Longitude:    cp.lon,
		Timestamp:    g.now().UTC().Format(time.RFC3339),
		CheckpointID: cp.id,
		VehicleID:    "veh-" + uuid.NewString()[:8],
		Features:     Derive(speed, accel, lane, history, cp.lat, cp.lon),
	}
}

func (g *Generator) offset(spread float64) float64 {
	return (g.rng.Float64()*2 - 1) * spread
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}
