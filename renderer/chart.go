package renderer

import (
	"errors"
	"fmt"

	"github.com/etnz/backtest"
	"github.com/vicanso/go-charts/v2"
)

// Chart renders the value curve of a run as a PNG image.
//
// With withTrades, a second line steps to the portfolio value at each rebalancing date
// and stays flat in between, so that trades show as steps.
func Chart(r *backtest.Result, withTrades bool) ([]byte, error) {
	if r.Len() == 0 {
		return nil, errors.New("nothing to plot: the run is empty")
	}

	xLabels := make([]string, r.Len())
	layout := "Jan 02"
	if r.Dates[r.Len()-1].Year() != r.Dates[0].Year() {
		layout = "Jan '06"
	}
	for i, on := range r.Dates {
		xLabels[i] = on.Format(layout)
	}

	values := [][]float64{r.Values}
	names := []string{title(r)}
	if withTrades && r.Trades.Len() > 0 {
		values = append(values, tradeSteps(r))
		names = append(names, "rebalancing")
	}

	minVal, maxVal := r.Values[0], r.Values[0]
	for _, v := range r.Values {
		minVal, maxVal = min(minVal, v), max(maxVal, v)
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	yMin, yMax := minVal-padding, maxVal+padding

	splitNum := 6
	if len(xLabels) <= 30 {
		splitNum = max(len(xLabels)/3, 3)
	}

	s := r.Stats
	subtitle := fmt.Sprintf("ROI: %s | Vol: %s | MaxDD: %s | Trades: %d",
		s.ROI.SignedString(), volatility(s.Volatility), s.MaxDrawdown.SignedString(), s.TradeCount)

	p, err := charts.LineRender(
		values,
		charts.TitleTextOptionFunc(title(r), subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: names,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(500),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// tradeSteps returns, for each date, the value at the latest trade on or before it. It
// starts at the first value.
func tradeSteps(r *backtest.Result) []float64 {
	steps := make([]float64, r.Len())
	current, next := r.Values[0], 0
	for i, on := range r.Dates {
		for next < r.Trades.Len() && !r.Trades.Dates[next].After(on) {
			current = r.Trades.Values[next]
			next++
		}
		steps[i] = current
	}
	return steps
}
