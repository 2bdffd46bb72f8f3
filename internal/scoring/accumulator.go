package scoring

import (
	"math"

	"github.com/Dicklesworthstone/harness/internal/errkind"
)

// penaltyEpsilon absorbs float drift when checking bucket caps.
const penaltyEpsilon = 1e-9

// Accumulator sums one category: a base, bonuses, and capped penalty buckets.
type Accumulator struct {
	category Category
	base     float64
	bonus    float64
	cap      float64
	buckets  map[string]float64
	order    []string
}

// NewAccumulator starts a category at base with the given per-bucket cap.
func NewAccumulator(category Category, base, bucketCap float64) *Accumulator {
	return &Accumulator{
		category: category,
		base:     base,
		cap:      bucketCap,
		buckets:  map[string]float64{},
	}
}

// Add applies a bonus.
func (a *Accumulator) Add(v float64) {
	a.bonus += v
}

// AddIf applies a bonus when cond holds.
func (a *Accumulator) AddIf(cond bool, v float64) {
	if cond {
		a.bonus += v
	}
}

// Penalize records a raw penalty in bucket.
func (a *Accumulator) Penalize(bucket string, v float64) {
	if _, ok := a.buckets[bucket]; !ok {
		a.order = append(a.order, bucket)
	}
	a.buckets[bucket] += v
}

// Raw returns the uncapped penalty recorded in bucket.
func (a *Accumulator) Raw(bucket string) float64 {
	return a.buckets[bucket]
}

// Applied returns the penalty actually subtracted for bucket.
func (a *Accumulator) Applied(bucket string) float64 {
	return math.Min(a.buckets[bucket], a.cap)
}

// Total returns the clamped category score. It fails with
// BucketPenaltyExceeded if any applied bucket exceeds the cap.
func (a *Accumulator) Total() (float64, error) {
	score := a.base + a.bonus
	for _, bucket := range a.order {
		applied := a.Applied(bucket)
		if applied > a.cap+penaltyEpsilon || math.IsNaN(applied) {
			return 0, errkind.New(errkind.BucketPenaltyExceeded,
				"%s penalty bucket %s applied %.3f above cap %.3f", a.category, bucket, applied, a.cap)
		}
		score -= applied
	}
	return clamp(round(score)), nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// round trims float noise so equal inputs render identically.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
