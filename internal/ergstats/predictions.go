package ergstats

// BenchmarkDistanceM is the reference test distance all predictions and
// training zones are derived from.
const BenchmarkDistanceM float64 = 2000

// Calibration constants for the projected efforts, relative to the
// athlete's 2000m benchmark power.
const (
	predict100mPowerFactor = 1.73
	predict100mTimeS       = 16.5

	predict60secPowerFactor = 1.35
	predict60secDistanceM   = 330.0

	predict6kPowerFactor = 0.85
	predict6kTimeFactor  = 3.17
)

// Prediction is a projected performance for one effort type. Sprint
// efforts carry a predicted time, timed efforts a predicted distance.
type Prediction struct {
	Effort    string   `json:"effort"`
	PowerW    float64  `json:"powerWatts"`
	TimeS     *float64 `json:"timeSeconds,omitempty"`
	DistanceM *float64 `json:"distanceMeters,omitempty"`
}

type PredictionSet struct {
	Benchmark Test         `json:"benchmark"`
	Efforts   []Prediction `json:"efforts"`
}

// Predict projects the athlete's best 2000m test onto the other
// standard efforts. Athletes without a 2000m test get ErrNoBenchmark.
func Predict(stats AthleteStats) (*PredictionSet, error) {
	bucket, ok := stats.Buckets[BenchmarkDistanceM]
	if !ok {
		return nil, ErrNoBenchmark
	}

	benchmark := bucket.Best
	p2k := benchmark.PowerW

	sprintTime := predict100mTimeS
	minuteDistance := predict60secDistanceM
	sixKmTime := round2(benchmark.TimeS * predict6kTimeFactor)

	return &PredictionSet{
		Benchmark: benchmark,
		Efforts: []Prediction{
			{
				Effort: "100m",
				PowerW: round2(p2k * predict100mPowerFactor),
				TimeS:  &sprintTime,
			},
			{
				Effort:    "60sec",
				PowerW:    round2(p2k * predict60secPowerFactor),
				DistanceM: &minuteDistance,
			},
			{
				Effort: "6000m",
				PowerW: round2(p2k * predict6kPowerFactor),
				TimeS:  &sixKmTime,
			},
		},
	}, nil
}
