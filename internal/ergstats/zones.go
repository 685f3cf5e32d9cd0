package ergstats

// Zone is one training intensity band. Watt bounds are fractions of the
// 2000m benchmark power; pace bounds are the same bounds converted with
// the inverse of the power law, so PaceMinS (the faster split)
// corresponds to MaxWatts and PaceMaxS to MinWatts.
type Zone struct {
	Name     string  `json:"name"`
	MinWatts float64 `json:"minWatts"`
	MaxWatts float64 `json:"maxWatts"`
	PaceMinS float64 `json:"paceMinSeconds"`
	PaceMaxS float64 `json:"paceMaxSeconds"`
}

type TrainingZones struct {
	BenchmarkPowerW float64 `json:"benchmarkPowerWatts"`
	Zones           []Zone  `json:"zones"`
}

// zoneBands are the standard five rowing intensity bands, from light
// aerobic work up to anaerobic efforts, as fractions of 2000m power.
// AN deliberately tops out above the benchmark power, no clamping.
var zoneBands = []struct {
	name    string
	minFrac float64
	maxFrac float64
}{
	{"UT2", 0.55, 0.65},
	{"UT1", 0.65, 0.75},
	{"AT", 0.75, 0.85},
	{"TR", 0.85, 0.95},
	{"AN", 0.95, 1.05},
}

// ComputeZones derives the athlete's training zones from their best
// 2000m test. Athletes without a 2000m test get ErrNoBenchmark.
func ComputeZones(stats AthleteStats) (*TrainingZones, error) {
	bucket, ok := stats.Buckets[BenchmarkDistanceM]
	if !ok {
		return nil, ErrNoBenchmark
	}

	p2k := bucket.Best.PowerW

	zones := make([]Zone, 0, len(zoneBands))
	for _, band := range zoneBands {
		minWatts := band.minFrac * p2k
		maxWatts := band.maxFrac * p2k
		zones = append(zones, Zone{
			Name:     band.name,
			MinWatts: minWatts,
			MaxWatts: maxWatts,
			PaceMinS: PaceFromPower(maxWatts),
			PaceMaxS: PaceFromPower(minWatts),
		})
	}

	return &TrainingZones{
		BenchmarkPowerW: p2k,
		Zones:           zones,
	}, nil
}
