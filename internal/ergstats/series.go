package ergstats

import (
	"time"
)

// ProgressionPoint is one test projected onto a progression chart.
type ProgressionPoint struct {
	Date   time.Time `json:"date"`
	PowerW float64   `json:"powerWatts"`
	PaceS  float64   `json:"paceSeconds"`
}

// ProgressionSeries projects the tests ran at exactly the given
// distance into chronologically ascending points. The input is never
// mutated; a fresh slice is returned on every call.
func ProgressionSeries(tests []Test, distanceM float64) []ProgressionPoint {
	matched := make([]Test, 0)
	for _, t := range tests {
		if t.DistanceM == distanceM {
			matched = append(matched, t)
		}
	}

	sortChronological(matched)

	points := make([]ProgressionPoint, 0, len(matched))
	for _, t := range matched {
		points = append(points, ProgressionPoint{
			Date:   t.TestDate,
			PowerW: t.PowerW,
			PaceS:  t.PacePer500S,
		})
	}
	return points
}

// DistanceComparisonRow compares best and latest power at one distance.
type DistanceComparisonRow struct {
	DistanceM    float64 `json:"distanceMeters"`
	Label        string  `json:"label"`
	BestPowerW   float64 `json:"bestPowerWatts"`
	LatestPowerW float64 `json:"latestPowerWatts"`
}

// DistanceComparison shapes the stats buckets into one row per
// distance, ascending by distance. Empty stats produce an empty slice.
func DistanceComparison(stats AthleteStats) []DistanceComparisonRow {
	rows := make([]DistanceComparisonRow, 0, len(stats.Buckets))
	for _, d := range stats.Distances() {
		bucket := stats.Buckets[d]
		rows = append(rows, DistanceComparisonRow{
			DistanceM:    d,
			Label:        DistanceLabel(d),
			BestPowerW:   bucket.Best.PowerW,
			LatestPowerW: bucket.Latest.PowerW,
		})
	}
	return rows
}
