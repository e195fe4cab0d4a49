package analysis

import "testing"

func TestBlendConfidence(t *testing.T) {
	tests := []struct {
		name         string
		base         int
		sources      int
		volume       float64
		newsCount    int
		hasSentiment bool
		change24h    float64
		want         int
	}{
		{name: "base only", base: 50, want: 50},
		{name: "source bonus", base: 50, sources: 3, want: 65},
		{name: "source bonus capped", base: 50, sources: 10, want: 75},
		{name: "volume bonus", base: 50, volume: 2_000_000, want: 55},
		{name: "volume at threshold no bonus", base: 50, volume: 1_000_000, want: 50},
		{name: "news capped at five", base: 50, newsCount: 12, want: 55},
		{name: "sentiment bonus", base: 50, hasSentiment: true, want: 55},
		{name: "volatile penalty up", base: 50, change24h: 10.5, want: 45},
		{name: "volatile penalty down", base: 50, change24h: -11, want: 45},
		{name: "ten percent exactly no penalty", base: 50, change24h: 10, want: 50},
		{name: "clamped low", base: 0, change24h: 50, want: MinConfidence},
		{name: "clamped high", base: 95, sources: 5, volume: 5_000_000, newsCount: 5, hasSentiment: true, want: MaxConfidence},
		{
			name: "all factors", base: 60, sources: 4, volume: 1_500_000,
			newsCount: 3, hasSentiment: true, change24h: -12,
			// 60 + 20 + 5 + 3 + 5 - 5
			want: 88,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlendConfidence(tt.base, tt.sources, tt.volume, tt.newsCount, tt.hasSentiment, tt.change24h)
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBlendConfidenceDeterministic(t *testing.T) {
	first := BlendConfidence(70, 3, 2_000_000, 4, true, 2.5)
	for i := 0; i < 100; i++ {
		if got := BlendConfidence(70, 3, 2_000_000, 4, true, 2.5); got != first {
			t.Fatalf("call %d: got %d, want %d", i, got, first)
		}
	}
}
