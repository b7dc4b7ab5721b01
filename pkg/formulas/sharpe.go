package formulas

import "math"

// SharpeUnbounded is reported as the Sharpe ratio when the selected samples
// carry no dispersion at all (the ratio is undefined/infinite).
const SharpeUnbounded = math.MaxFloat64

// RiskAdjusted calculates the dispersion of samples around mean and the
// resulting Sharpe-like ratio mean/risk.
//
// Risk uses the sample standard deviation (n-1 correction) when more than one
// sample is present, and the plain root of the squared deviation otherwise.
// When the squared deviation is exactly zero the risk stays 0 and the ratio is
// SharpeUnbounded.
func RiskAdjusted(samples []float64, mean float64) (risk float64, sharpe float64) {
	deviation := SquaredDeviation(samples, mean)
	if deviation == 0 {
		return 0, SharpeUnbounded
	}

	count := len(samples)
	if count > 1 {
		risk = math.Sqrt(deviation / float64(count-1))
	} else {
		risk = math.Sqrt(deviation)
	}

	return risk, mean / risk
}
