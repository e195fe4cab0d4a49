// Package analysis turns aggregated market data into persisted AI analysis
// records: technical features, an LLM assessment and a blended confidence.
package analysis

import (
	"math"
	"sort"

	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

// Features are the indicators derived from a price series.
type Features struct {
	Volatility float64        `json:"volatility"` // stddev of day-over-day returns, in percent
	Trend      analysis.Trend `json:"trend"`
	Support    float64        `json:"support"`    // 20th percentile close
	Resistance float64        `json:"resistance"` // 80th percentile close
}

// ComputeFeatures derives indicators from chart closes. The trend compares
// the mean of the last 10 closes against the mean of up to 10 closes before
// them, so a partial prior window is enough; series of 10 or fewer points
// yield neutral. Support/resistance need 20 points, shorter series yield
// zero; shorter than 2 points also yields zero volatility.
func ComputeFeatures(points []asset.ChartPoint) Features {
	closes := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Close > 0 {
			closes = append(closes, p.Close)
		}
	}

	f := Features{Trend: analysis.TrendNeutral}
	f.Volatility = returnsVolatility(closes)

	n := len(closes)
	if n > 10 {
		priorStart := n - 20
		if priorStart < 0 {
			priorStart = 0
		}
		last := mean(closes[n-10:])
		prior := mean(closes[priorStart : n-10])
		switch {
		case prior > 0 && last > prior*1.02:
			f.Trend = analysis.TrendBullish
		case prior > 0 && last < prior*0.98:
			f.Trend = analysis.TrendBearish
		}
	}

	if n < 20 {
		return f
	}

	sorted := make([]float64, n)
	copy(sorted, closes)
	sort.Float64s(sorted)
	f.Support = sorted[int(float64(n)*0.2)]
	f.Resistance = sorted[int(float64(n)*0.8)]
	return f
}

// returnsVolatility is the population standard deviation of the percentage
// day-over-day returns.
func returnsVolatility(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	if len(returns) == 0 {
		return 0
	}

	m := mean(returns)
	var sumSq float64
	for _, r := range returns {
		d := r - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(returns)))
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
