// Package temporal normalizes per-source records onto a common daily grid.
// Raw reads come back as a bag of dated rows; everything downstream (pivot,
// merge, weekly resample) assumes one value per calendar day.
package temporal

import (
	"sort"
	"time"

	"shrimp/domain/feature"
)

// FillStrategy defines how to handle days with no observation.
type FillStrategy string

const (
	// FillZero treats absence as zero activity. Used for additive series
	// (tonnage, raw-material quantities, export weights): no row means no
	// transaction occurred, not unknown.
	FillZero FillStrategy = "zero"

	// FillForward carries the most recent observation forward. Used for
	// point-in-time price lists where a published value holds until the
	// next publication.
	FillForward FillStrategy = "forward"
)

// AggregationFunc defines how multiple observations on the same day combine.
type AggregationFunc string

const (
	AggSum  AggregationFunc = "sum"
	AggMean AggregationFunc = "mean"

	// AggLast keeps the last observation of the day in input order. With
	// rows ordered date ascending this gives a deterministic last-wins
	// tie-break for price lists republished within one day.
	AggLast AggregationFunc = "last"
)

// Point is a single dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a value for every calendar day of the requested window.
type Series struct {
	Dates  []time.Time
	Values []float64
}

// AlignDaily resamples points onto every calendar day in [from, to].
//
// Points dated before the window start are not dropped: for FillForward they
// act as the anchor that covers the window start (the store fetches the most
// recent price list at or before the window for exactly this purpose); for
// FillZero they are ignored.
func AlignDaily(points []Point, from, to time.Time, agg AggregationFunc, fill FillStrategy) Series {
	grid := feature.DateRange(from, to)
	values := make([]float64, len(grid))
	observed := make([]bool, len(grid))

	// Stable sort keeps insertion order within a day, so AggLast is
	// deterministic: the latest stored record for that day wins.
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	// Seed forward-fill from the latest observation before the window.
	var anchor float64
	var haveAnchor bool
	windowStart := feature.Day(from)
	for _, p := range sorted {
		if feature.Day(p.Date).Before(windowStart) {
			anchor = p.Value
			haveAnchor = true
		}
	}

	buckets := make(map[int64][]float64, len(grid))
	for _, p := range sorted {
		day := feature.Day(p.Date)
		if day.Before(windowStart) || day.After(feature.Day(to)) {
			continue
		}
		key := day.Unix()
		buckets[key] = append(buckets[key], p.Value)
	}

	for i, day := range grid {
		bucket := buckets[day.Unix()]
		if len(bucket) > 0 {
			observed[i] = true
			values[i] = aggregate(bucket, agg)
			continue
		}
		values[i] = fillMissing(fill, values, observed, i, anchor, haveAnchor)
	}

	return Series{Dates: grid, Values: values}
}

func aggregate(values []float64, fn AggregationFunc) float64 {
	switch fn {
	case AggSum:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum
	case AggMean:
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case AggLast:
		return values[len(values)-1]
	default:
		return values[len(values)-1]
	}
}

func fillMissing(strategy FillStrategy, values []float64, observed []bool, idx int, anchor float64, haveAnchor bool) float64 {
	switch strategy {
	case FillForward:
		// Forward-fill from the last observed day, even if its value was 0.
		for i := idx - 1; i >= 0; i-- {
			if observed[i] {
				return values[i]
			}
		}
		if haveAnchor {
			return anchor
		}
		return 0
	case FillZero:
		return 0
	default:
		return 0
	}
}
