package ergstats

import "math"

// ergPowerConstant relates the 500m split to average power on the
// ergometer: watts = K / (split/500)^3. Both conversion directions use
// this same constant, so they are exact inverses of each other.
const ergPowerConstant = 2.8

// PowerFromPace converts a 500m split in seconds to average watts.
func PowerFromPace(pacePer500S float64) float64 {
	return ergPowerConstant / math.Pow(pacePer500S/500, 3)
}

// PaceFromPower converts average watts back to a 500m split in seconds.
func PaceFromPower(powerW float64) float64 {
	return 500 * math.Cbrt(ergPowerConstant/powerW)
}
