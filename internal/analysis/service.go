package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/metrics"
	"github.com/alphadesk/alphadesk/internal/app/storage"
	"github.com/alphadesk/alphadesk/internal/marketdata"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// recordTTL is how long a persisted analysis is served before the next
// request regenerates it.
const recordTTL = time.Hour

// MarketData is the slice of the aggregator the orchestrator consumes.
type MarketData interface {
	Comprehensive(ctx context.Context, symbol string, typ asset.Type) (marketdata.ComprehensiveData, error)
	ChartData(ctx context.Context, symbol string, typ asset.Type) ([]asset.ChartPoint, error)
}

type inflight struct {
	done chan struct{}
	rec  analysis.Record
	err  error
}

// Service orchestrates analysis generation: cache-first against the store,
// then market data gathering, technical features, the LLM call and the
// confidence blend, ending in an upsert keyed by (symbol, type).
//
// Concurrent requests for the same key are coalesced: one generation runs,
// the rest wait for its result.
type Service struct {
	store  storage.AnalysisStore
	market MarketData
	llm    Generator
	log    *logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	inflight map[string]*inflight
}

// NewService wires the orchestrator. A nil Generator disables the LLM step
// and every record is produced by the technical fallback.
func NewService(store storage.AnalysisStore, market MarketData, llm Generator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("analysis")
	}
	return &Service{
		store:    store,
		market:   market,
		llm:      llm,
		log:      log,
		now:      time.Now,
		inflight: make(map[string]*inflight),
	}
}

// WithClock injects a clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Analyze returns the current analysis for an asset, regenerating it when
// the stored record is missing or expired. A forced refresh bypasses the
// stored record and always regenerates.
func (s *Service) Analyze(ctx context.Context, symbol string, typ asset.Type, refresh bool) (analysis.Record, error) {
	symbol = asset.NormalizeSymbol(symbol)
	if symbol == "" {
		return analysis.Record{}, fmt.Errorf("symbol required")
	}

	if !refresh {
		if rec, err := s.store.GetAnalysis(ctx, symbol, typ); err == nil && !rec.Expired(s.now()) {
			return rec, nil
		}
	}

	key := symbol + "|" + string(typ)
	s.mu.Lock()
	if call, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.rec, call.err
		case <-ctx.Done():
			return analysis.Record{}, ctx.Err()
		}
	}
	call := &inflight{done: make(chan struct{})}
	s.inflight[key] = call
	s.mu.Unlock()

	call.rec, call.err = s.generate(ctx, symbol, typ)
	close(call.done)

	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()

	return call.rec, call.err
}

// Recent lists the latest stored analyses across all assets.
func (s *Service) Recent(ctx context.Context, limit int) ([]analysis.Record, error) {
	return s.store.ListRecentAnalyses(ctx, limit)
}

func (s *Service) generate(ctx context.Context, symbol string, typ asset.Type) (analysis.Record, error) {
	data, err := s.market.Comprehensive(ctx, symbol, typ)
	if err != nil {
		return analysis.Record{}, fmt.Errorf("gather market data for %s: %w", symbol, err)
	}

	// The chart is best-effort; features degrade to neutral without it.
	chart, err := s.market.ChartData(ctx, symbol, typ)
	if err != nil {
		s.log.WithError(err).WithField("symbol", symbol).Debug("chart unavailable, neutral features")
		chart = nil
	}
	features := ComputeFeatures(chart)

	in := Input{
		Symbol:     symbol,
		Type:       typ,
		Quote:      data.Quote,
		Features:   features,
		NewsTitles: newsTitles(data, 5),
	}
	if len(data.Sentiment) > 0 {
		in.HasSentiment = true
		var sum float64
		for _, r := range data.Sentiment {
			sum += r.Score
		}
		in.SentimentAvg = sum / float64(len(data.Sentiment))
	}

	// A configured model erroring is fatal for the request; the rule-based
	// fallback only covers deployments without a model at all.
	var out Output
	if s.llm == nil {
		metrics.RecordLLMRequest("fallback")
		out = fallbackOutput(in)
	} else {
		out, err = s.llm.Generate(ctx, in)
		if err != nil {
			metrics.RecordLLMRequest("error")
			return analysis.Record{}, fmt.Errorf("llm analysis for %s: %w", symbol, err)
		}
		metrics.RecordLLMRequest("ok")
	}

	confidence := BlendConfidence(
		out.Confidence,
		len(data.Sources),
		data.Quote.Volume,
		len(data.News),
		in.HasSentiment,
		data.Quote.ChangePercent,
	)

	now := s.now().UTC()
	sourceDetail, _ := json.Marshal(map[string]interface{}{
		"sources":         data.Sources,
		"data_confidence": data.DataConfidence,
		"features":        features,
		"news_count":      len(data.News),
		"llm":             s.llm != nil,
	})

	rec := analysis.Record{
		Symbol:           symbol,
		Type:             typ,
		Recommendation:   out.Recommendation,
		Confidence:       confidence,
		Reasoning:        out.Reasoning,
		TechnicalScore:   out.TechnicalScore,
		FundamentalScore: out.FundamentalScore,
		SentimentScore:   out.SentimentScore,
		RiskLevel:        out.RiskLevel,
		TargetPrice:      out.TargetPrice,
		StopLoss:         out.StopLoss,
		DataSource:       sourceDetail,
		CreatedAt:        now,
		ExpiresAt:        now.Add(recordTTL),
	}

	stored, err := s.store.UpsertAnalysis(ctx, rec)
	if err != nil {
		return analysis.Record{}, fmt.Errorf("persist analysis for %s: %w", symbol, err)
	}
	return stored, nil
}

// fallbackOutput derives a rule-based assessment for deployments running
// without a model, so analysis requests still succeed.
func fallbackOutput(in Input) Output {
	out := Output{
		Recommendation: analysis.RecommendHold,
		Confidence:     40,
		RiskLevel:      analysis.RiskMedium,
	}

	switch in.Features.Trend {
	case analysis.TrendBullish:
		out.Recommendation = analysis.RecommendBuy
		out.TechnicalScore = 65
	case analysis.TrendBearish:
		out.Recommendation = analysis.RecommendSell
		out.TechnicalScore = 35
	default:
		out.TechnicalScore = 50
	}

	switch {
	case in.Features.Volatility > 5:
		out.RiskLevel = analysis.RiskHigh
	case in.Features.Volatility > 0 && in.Features.Volatility < 1.5:
		out.RiskLevel = analysis.RiskLow
	}

	if in.HasSentiment {
		out.SentimentScore = int(in.SentimentAvg * 100)
	}

	parts := []string{fmt.Sprintf("Technical trend is %s", in.Features.Trend)}
	if in.Features.Volatility > 0 {
		parts = append(parts, fmt.Sprintf("volatility %.1f%%", in.Features.Volatility))
	}
	if in.Features.Support > 0 {
		parts = append(parts, fmt.Sprintf("support near %.2f, resistance near %.2f",
			in.Features.Support, in.Features.Resistance))
	}
	out.Reasoning = strings.Join(parts, "; ") + "."
	return out
}

func newsTitles(data marketdata.ComprehensiveData, limit int) []string {
	titles := make([]string, 0, limit)
	for _, a := range data.News {
		titles = append(titles, a.Title)
		if len(titles) >= limit {
			break
		}
	}
	return titles
}
