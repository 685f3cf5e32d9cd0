package ergstats

import (
	"sort"
	"strconv"
)

// DistanceBucket summarizes all tests of one athlete at one exact
// distance, and carries those tests ordered by date, oldest first.
type DistanceBucket struct {
	DistanceM float64 `json:"distanceMeters"`
	Best      Test    `json:"best"`
	Latest    Test    `json:"latest"`
	Count     int     `json:"count"`
	Tests     []Test  `json:"tests"`
}

// AthleteStats groups an athlete's tests by their exact distance. Two
// tests belong to the same bucket only when their distances are equal,
// 2000 and 2000.5 are separate buckets.
type AthleteStats struct {
	TestsCount int
	Buckets    map[float64]DistanceBucket
}

// Aggregate builds per-distance stats out of the given tests. The
// result does not depend on the input order: best is the highest power
// (earliest date wins ties), latest is the most recent date (highest
// power wins ties), and each bucket keeps its tests ordered by date
// ascending. Empty input produces empty stats.
func Aggregate(tests []Test) AthleteStats {
	stats := AthleteStats{
		TestsCount: len(tests),
		Buckets:    make(map[float64]DistanceBucket),
	}

	for _, t := range tests {
		bucket, ok := stats.Buckets[t.DistanceM]
		if !ok {
			stats.Buckets[t.DistanceM] = DistanceBucket{
				DistanceM: t.DistanceM,
				Best:      t,
				Latest:    t,
				Count:     1,
				Tests:     []Test{t},
			}
			continue
		}

		bucket.Count++
		bucket.Tests = append(bucket.Tests, t)
		if beatsBest(t, bucket.Best) {
			bucket.Best = t
		}
		if beatsLatest(t, bucket.Latest) {
			bucket.Latest = t
		}
		stats.Buckets[t.DistanceM] = bucket
	}

	for _, bucket := range stats.Buckets {
		sortChronological(bucket.Tests)
	}

	return stats
}

func beatsBest(t, best Test) bool {
	if t.PowerW != best.PowerW {
		return t.PowerW > best.PowerW
	}
	return t.TestDate.Before(best.TestDate)
}

func beatsLatest(t, latest Test) bool {
	if !t.TestDate.Equal(latest.TestDate) {
		return t.TestDate.After(latest.TestDate)
	}
	return t.PowerW > latest.PowerW
}

func sortChronological(tests []Test) {
	sort.Slice(tests, func(i, j int) bool {
		if !tests[i].TestDate.Equal(tests[j].TestDate) {
			return tests[i].TestDate.Before(tests[j].TestDate)
		}
		return tests[i].CreatedAt.Before(tests[j].CreatedAt)
	})
}

// Distances returns the bucket distances in ascending order.
func (s AthleteStats) Distances() []float64 {
	distances := make([]float64, 0, len(s.Buckets))
	for d := range s.Buckets {
		distances = append(distances, d)
	}
	sort.Float64s(distances)
	return distances
}

// Labeled returns the buckets keyed by their display label, e.g. 2000
// becomes "2000m" and 1999.5 becomes "1999.5m".
func (s AthleteStats) Labeled() map[string]DistanceBucket {
	labeled := make(map[string]DistanceBucket, len(s.Buckets))
	for d, bucket := range s.Buckets {
		labeled[DistanceLabel(d)] = bucket
	}
	return labeled
}

// DistanceLabel formats a test distance for display, trailing zeros
// trimmed.
func DistanceLabel(distanceM float64) string {
	return strconv.FormatFloat(distanceM, 'f', -1, 64) + "m"
}
