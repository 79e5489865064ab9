package features

import (
	"math"

	"binance-signal-bot-go/internal/models"
)

// The rolling computations below return a slice aligned with the input
// series. Entries whose window is not yet full are NaN; the pipeline drops
// those rows before a vector ever leaves this package.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

// sma is a simple moving average. NaN inputs inside a window poison that
// window's output, which keeps smoothed-of-smoothed series honest.
func sma(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(xs[j]) {
				valid = false
				break
			}
			sum += xs[j]
		}
		if valid {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// rollingStd is the rolling standard deviation; sample selects the n-1
// denominator used for the volume z-score, population (n) feeds the bands.
func rollingStd(xs []float64, window int, sample bool) []float64 {
	out := nanSlice(len(xs))
	denom := float64(window)
	if sample {
		denom = float64(window - 1)
	}
	if window <= 0 || denom <= 0 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(xs[j]) {
				valid = false
				break
			}
			sum += xs[j]
		}
		if !valid {
			continue
		}
		mean := sum / float64(window)
		sq := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := xs[j] - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / denom)
	}
	return out
}

// ema is the recursive exponential moving average with alpha = 2/(span+1),
// seeded from the first sample. Output is withheld until minPeriods samples
// have been folded in.
func ema(xs []float64, span, minPeriods int) []float64 {
	out := nanSlice(len(xs))
	if span <= 0 || len(xs) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	v := xs[0]
	for i, x := range xs {
		if i > 0 {
			v = alpha*x + (1-alpha)*v
		}
		if i >= minPeriods-1 {
			out[i] = v
		}
	}
	return out
}

// macdLine is the fast EMA minus the slow EMA of the closes; it becomes
// defined once the slow window is full.
func macdLine(closes []float64, fast, slow int) []float64 {
	f := ema(closes, fast, fast)
	s := ema(closes, slow, slow)
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = f[i] - s[i]
	}
	return out
}

// rsi is the Wilder relative strength index: the first average gain/loss is
// a plain mean over the window, later values are smoothed recursively.
func rsi(closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	if window <= 0 || len(closes) <= window {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= window; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)
	out[window] = rsiValue(avgGain, avgLoss)
	for i := window + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		var gain, loss float64
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(window-1) + gain) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// atr is the Wilder average true range. The true range of bar 0 has no
// previous close and is excluded from the seed mean.
func atr(highs, lows, closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	if window <= 0 || len(closes) <= window {
		return out
	}
	trs := make([]float64, len(closes))
	trs[0] = highs[0] - lows[0]
	for i := 1; i < len(closes); i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		trs[i] = math.Max(hl, math.Max(hc, lc))
	}
	var sum float64
	for i := 1; i <= window; i++ {
		sum += trs[i]
	}
	v := sum / float64(window)
	out[window] = v
	for i := window + 1; i < len(closes); i++ {
		v = (v*float64(window-1) + trs[i]) / float64(window)
		out[i] = v
	}
	return out
}

// stochasticK is the raw %K oscillator: where the close sits inside the
// window's high/low range, 0..100. A flat window leaves the entry NaN.
func stochasticK(highs, lows, closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(closes); i++ {
		hi := math.Inf(-1)
		lo := math.Inf(1)
		for j := i - window + 1; j <= i; j++ {
			hi = math.Max(hi, highs[j])
			lo = math.Min(lo, lows[j])
		}
		if hi == lo {
			continue
		}
		out[i] = 100 * (closes[i] - lo) / (hi - lo)
	}
	return out
}

// vwap is the cumulative volume-weighted average of the typical price,
// anchored at the start of the series.
func vwap(highs, lows, closes, volumes []float64) []float64 {
	out := nanSlice(len(closes))
	var cumPV, cumVol float64
	for i := range closes {
		typical := (highs[i] + lows[i] + closes[i]) / 3
		cumPV += typical * volumes[i]
		cumVol += volumes[i]
		if cumVol > 0 {
			out[i] = cumPV / cumVol
		}
	}
	return out
}

// rollingZScore measures how far the latest sample sits from the rolling
// mean, in sample standard deviations. A zero-variance window stays NaN.
func rollingZScore(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	means := sma(xs, window)
	stds := rollingStd(xs, window, true)
	for i := range xs {
		if math.IsNaN(means[i]) || math.IsNaN(stds[i]) || stds[i] == 0 {
			continue
		}
		out[i] = (xs[i] - means[i]) / stds[i]
	}
	return out
}

// OrderBookImbalance is (bid-ask)/(bid+ask) over the aggregated book depth,
// +1 for an all-bid book and -1 for an all-ask book. It is undefined on an
// empty book.
func OrderBookImbalance(book models.OrderBookStats) (float64, error) {
	total := book.BidVolume + book.AskVolume
	if total == 0 {
		return 0, ErrDegenerateDepth
	}
	return (book.BidVolume - book.AskVolume) / total, nil
}
