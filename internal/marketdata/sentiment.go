package marketdata

import (
	"context"
	"math/rand"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/news"
)

// popularSymbols get a wider mention range in the stubbed feeds, mirroring
// their real-world chatter volume.
var popularSymbols = map[string]bool{
	"AAPL": true, "TSLA": true, "NVDA": true, "AMZN": true, "MSFT": true,
	"GOOGL": true, "META": true, "AMD": true, "GME": true, "AMC": true,
	"BTC": true, "ETH": true, "DOGE": true, "SOL": true,
}

// SentimentStub synthesizes social sentiment readings. Real social APIs sit
// behind paid access, so these stand in until a provider is wired; the shape
// and fan-out match what a live source would return. The rand source is
// injectable so tests can pin outputs.
type SentimentStub struct {
	source string
	rng    *rand.Rand
}

// NewSentimentStub builds a stub for the named source. A nil rng gets a fixed
// seed so repeated calls in one process stay stable enough to eyeball.
func NewSentimentStub(source string, rng *rand.Rand) *SentimentStub {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &SentimentStub{source: source, rng: rng}
}

// Sentiment returns one reading per symbol. Scores land in [0.3, 0.9),
// confidence in [0.5, 0.9); popular symbols get mention counts up to 5000,
// the rest up to 500.
func (s *SentimentStub) Sentiment(_ context.Context, symbols []string) ([]news.Sentiment, error) {
	readings := make([]news.Sentiment, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = asset.NormalizeSymbol(symbol)
		mentionRange := 500
		if popularSymbols[symbol] {
			mentionRange = 5000
		}
		readings = append(readings, news.Sentiment{
			Symbol:     symbol,
			Score:      0.3 + s.rng.Float64()*0.6,
			Confidence: 0.5 + s.rng.Float64()*0.4,
			Mentions:   s.rng.Intn(mentionRange) + 1,
			Source:     s.source,
		})
	}
	return readings, nil
}
