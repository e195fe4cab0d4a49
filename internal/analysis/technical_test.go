package analysis

import (
	"fmt"
	"math"
	"testing"

	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

func series(closes ...float64) []asset.ChartPoint {
	points := make([]asset.ChartPoint, len(closes))
	for i, c := range closes {
		points[i] = asset.ChartPoint{Timestamp: fmt.Sprintf("t%d", i), Close: c}
	}
	return points
}

func TestComputeFeaturesAscendingTwenty(t *testing.T) {
	// Closes 1..20: last-10 mean 15.5 vs prior-10 mean 5.5 is clearly bullish.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	f := ComputeFeatures(series(closes...))

	if f.Trend != analysis.TrendBullish {
		t.Fatalf("trend = %s, want bullish", f.Trend)
	}
	// Percentiles index into the sorted closes: 20*0.2=4 -> value 5,
	// 20*0.8=16 -> value 17.
	if f.Support != 5 {
		t.Fatalf("support = %v, want 5", f.Support)
	}
	if f.Resistance != 17 {
		t.Fatalf("resistance = %v, want 17", f.Resistance)
	}
	if f.Volatility <= 0 {
		t.Fatalf("volatility = %v, want > 0", f.Volatility)
	}
}

func TestComputeFeaturesBearish(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(40 - i)
	}
	f := ComputeFeatures(series(closes...))
	if f.Trend != analysis.TrendBearish {
		t.Fatalf("trend = %s, want bearish", f.Trend)
	}
}

func TestComputeFeaturesFlatIsNeutral(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	f := ComputeFeatures(series(closes...))
	if f.Trend != analysis.TrendNeutral {
		t.Fatalf("trend = %s, want neutral", f.Trend)
	}
	if f.Volatility != 0 {
		t.Fatalf("volatility = %v, want 0 for a flat series", f.Volatility)
	}
	if f.Support != 100 || f.Resistance != 100 {
		t.Fatalf("support/resistance = %v/%v", f.Support, f.Resistance)
	}
}

func TestComputeFeaturesShortSeries(t *testing.T) {
	f := ComputeFeatures(series(10, 11, 12))
	if f.Trend != analysis.TrendNeutral {
		t.Fatalf("trend = %s, want neutral for short series", f.Trend)
	}
	if f.Support != 0 || f.Resistance != 0 {
		t.Fatalf("support/resistance = %v/%v, want 0/0 for < 20 points", f.Support, f.Resistance)
	}
	if f.Volatility == 0 {
		t.Fatal("volatility should still be computed from 3 points")
	}
}

func TestComputeFeaturesPartialPriorWindow(t *testing.T) {
	// 15 ascending closes: last-10 mean vs the 5 prior points still reads
	// bullish, while percentiles need the full 20.
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = float64(100 + 5*i)
	}
	f := ComputeFeatures(series(closes...))
	if f.Trend != analysis.TrendBullish {
		t.Fatalf("trend = %s, want bullish for 15 ascending closes", f.Trend)
	}
	if f.Support != 0 || f.Resistance != 0 {
		t.Fatalf("support/resistance = %v/%v, want 0/0 under 20 points", f.Support, f.Resistance)
	}
}

func TestComputeFeaturesTenPointsNeutral(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = float64(100 + 5*i)
	}
	f := ComputeFeatures(series(closes...))
	if f.Trend != analysis.TrendNeutral {
		t.Fatalf("trend = %s, want neutral without any prior window", f.Trend)
	}
}

func TestComputeFeaturesEmpty(t *testing.T) {
	f := ComputeFeatures(nil)
	if f.Trend != analysis.TrendNeutral || f.Volatility != 0 || f.Support != 0 || f.Resistance != 0 {
		t.Fatalf("unexpected features for empty series: %+v", f)
	}
}

func TestReturnsVolatilityKnownValue(t *testing.T) {
	// Returns: +10%, -10%. Mean 0, population stddev 10.
	got := returnsVolatility([]float64{100, 110, 99})
	want := 10.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("volatility = %v, want %v", got, want)
	}
}

func TestComputeFeaturesSkipsZeroCloses(t *testing.T) {
	f := ComputeFeatures(series(100, 0, 102, 110))
	if f.Volatility == 0 {
		t.Fatal("zero closes should be dropped, not poison the returns")
	}
}
