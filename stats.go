package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Statistics summarizes the value history of a run.
type Statistics struct {
	Start, End  float64 // starting balance and last value
	ROI         Percent // 100 × (End - Start) / Start, NaN if nothing was simulated
	Volatility  float64 // population standard deviation of the returns, NaN without returns
	BiggestLoss float64 // most negative step over step change, 0 if the value never dropped
	MaxDrawdown Percent // most negative decline from a previous peak, 0 if none
	Steps       int     // number of values
	TradeCount  int     // number of rebalancing events
}

// NewStatistics computes the statistics of a value history for a starting balance.
//
// An empty history is a valid degenerate case: ROI and Volatility are NaN.
func NewStatistics(start float64, values []float64) Statistics {
	s := Statistics{
		Start:       start,
		End:         math.NaN(),
		ROI:         Percent(math.NaN()),
		Steps:       len(values),
		BiggestLoss: BiggestLoss(values),
		MaxDrawdown: MaxDrawdown(values),
		Volatility:  Volatility(Returns(values)),
	}
	if len(values) > 0 {
		s.End = values[len(values)-1]
		s.ROI = ROI(start, s.End)
	}
	return s
}

// ROI returns the return on investment from start to end, in percent.
func ROI(start, end float64) Percent { return Percent(100 * (end - start) / start) }

// Returns computes the step returns of values: r[i-1] = (values[i-1] - values[i]) / values[i-1].
//
// Mind the sign: a decrease in value yields a positive return. Only the dispersion of
// the series is consumed downstream. There is one return less than values, and none for
// less than 2 values.
//
// A step from a zero value, a portfolio wiped out by a zero price, has no return: it is
// NaN, and so is the Volatility of the series.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns[i-1] = math.NaN()
			continue
		}
		returns[i-1] = (values[i-1] - values[i]) / values[i-1]
	}
	return returns
}

// Volatility returns the population standard deviation (denominator n) of returns, or
// NaN if there are none.
func Volatility(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	_, variance := stat.PopMeanVariance(returns, nil)
	return math.Sqrt(variance)
}

// BiggestLoss returns the most negative values[i] - values[i-1], or 0 if values never
// decrease.
func BiggestLoss(values []float64) float64 {
	loss := 0.0
	for i := 1; i < len(values); i++ {
		loss = min(loss, values[i]-values[i-1])
	}
	return loss
}

// MaxDrawdown returns the most negative decline from a previous peak, in percent.
func MaxDrawdown(values []float64) Percent {
	var drawdown, peak float64
	for _, v := range values {
		peak = max(peak, v)
		if peak > 0 {
			drawdown = min(drawdown, 100*(v-peak)/peak)
		}
	}
	return Percent(drawdown)
}
