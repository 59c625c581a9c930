package indicator

// SMA returns the simple moving average of the p values ending at index i,
// inclusive. ok is false when fewer than p values are available.
func SMA(values []float64, i, p int) (avg float64, ok bool) {
	if p <= 0 || i < 0 || i >= len(values) || i+1 < p {
		return 0, false
	}
	var sum float64
	for _, v := range values[i-p+1 : i+1] {
		sum += v
	}
	return sum / float64(p), true
}

// EMA returns the exponential moving average series with smoothing
// 2/(p+1), seeded with the first value.
func EMA(values []float64, p int) []float64 {
	if p <= 0 || len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	k := 2.0 / float64(p+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// RSI is Cutler's relative strength index: simple averages of gains and
// losses over the period day-over-day changes ending at index i. An average
// loss of zero gives 100.
func RSI(closes []float64, i, period int) (rsi float64, ok bool) {
	if period <= 0 || i < period || i >= len(closes) {
		return 0, false
	}
	var gains, losses float64
	for j := i - period + 1; j <= i; j++ {
		change := closes[j] - closes[j-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	return 100 - 100/(1+avgGain/avgLoss), true
}

// Slope is the least-squares slope of values against their position.
func Slope(values []float64) float64 {
	n := float64(len(values))
	if len(values) < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// SlopeAt is the regression slope of the p values ending at index i,
// inclusive. It is zero until p values are available.
func SlopeAt(values []float64, i, p int) float64 {
	if p <= 0 || i < 0 || i >= len(values) || i+1 < p {
		return 0
	}
	return Slope(values[i-p+1 : i+1])
}
