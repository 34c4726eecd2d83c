// Package quantile implements the streaming approximate quantile summary
// used by timer/histogram buckets. It wraps a t-digest for the quantile
// estimate itself and tracks exact count/sum/min/max/last alongside it, so
// only the quantile query is approximate.
package quantile

import (
	"math"

	tdigest "github.com/caio/go-tdigest/v4"
)

// DefaultCompression controls the t-digest's size/accuracy tradeoff. Higher
// values give tighter quantile estimates at the cost of more centroids kept
// in memory; memory remains sublinear in the number of insertions either
// way.
const DefaultCompression = 100

// Summary is a streaming approximate quantile structure over float64
// observations, supporting insert, bounded-error quantile query, and
// merging with another Summary.
type Summary struct {
	digest *tdigest.TDigest

	count uint64
	sum   float64
	min   float64
	max   float64
	last  float64
}

// New returns an empty Summary using DefaultCompression.
func New() (*Summary, error) {
	return NewWithCompression(DefaultCompression)
}

// NewWithCompression returns an empty Summary with a custom compression
// factor.
func NewWithCompression(compression uint32) (*Summary, error) {
	td, err := tdigest.New(tdigest.Compression(float64(compression)))
	if err != nil {
		return nil, err
	}
	return &Summary{
		digest: td,
		min:    math.Inf(1),
		max:    math.Inf(-1),
	}, nil
}

// Insert adds one observation to the summary.
func (s *Summary) Insert(x float64) {
	_ = s.digest.Add(x)
	s.count++
	s.sum += x
	if x < s.min {
		s.min = x
	}
	if x > s.max {
		s.max = x
	}
	s.last = x
}

// Query returns the estimated value at quantile q (0 <= q <= 1), or false
// if the summary has seen no observations.
func (s *Summary) Query(q float64) (float64, bool) {
	if s.count == 0 {
		return 0, false
	}
	return s.digest.Quantile(q), true
}

// Count returns the exact number of observations inserted.
func (s *Summary) Count() uint64 { return s.count }

// Sum returns the exact running sum of observations.
func (s *Summary) Sum() float64 { return s.sum }

// Min returns the exact minimum observation, or 0 if none have been seen.
func (s *Summary) Min() float64 {
	if s.count == 0 {
		return 0
	}
	return s.min
}

// Max returns the exact maximum observation, or 0 if none have been seen.
func (s *Summary) Max() float64 {
	if s.count == 0 {
		return 0
	}
	return s.max
}

// Last returns the most recently inserted observation, or 0 if none have
// been seen.
func (s *Summary) Last() float64 { return s.last }

// Merge folds other's observations into s. This is how the aggregator
// combines a freshly parsed metric's own tiny summary into the persistent
// per-bucket-key summary for Timer/Histogram kinds.
func (s *Summary) Merge(other *Summary) error {
	if other == nil || other.count == 0 {
		return nil
	}
	if err := s.digest.Merge(other.digest); err != nil {
		return err
	}
	s.count += other.count
	s.sum += other.sum
	if other.min < s.min {
		s.min = other.min
	}
	if other.max > s.max {
		s.max = other.max
	}
	s.last = other.last
	return nil
}

// StandardQuantiles is the fixed set of quantiles the promexport sink
// exposes for Timer/Histogram kinds on each scrape. The console sink
// prints these same quantiles, plus min and max, from its own label table.
var StandardQuantiles = []float64{0.5, 0.9, 0.99, 0.999}
