package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/news"
	"github.com/alphadesk/alphadesk/internal/app/metrics"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// Cache lifetimes per data class. Quotes churn fastest; news is the slowest.
const (
	quoteTTL  = time.Minute
	searchTTL = 5 * time.Minute
	moversTTL = 5 * time.Minute
	chartTTL  = 5 * time.Minute
	newsTTL   = 10 * time.Minute
)

const (
	maxNewsArticles  = 25
	maxSearchResults = 10
)

// QuoteProvider fetches one whole quote from one upstream source.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (asset.Quote, error)
}

// SentimentProvider returns social sentiment readings for a symbol set.
type SentimentProvider interface {
	Sentiment(ctx context.Context, symbols []string) ([]news.Sentiment, error)
}

type quoteSource struct {
	name     string
	provider QuoteProvider
}

// ComprehensiveData is everything the dashboard shows for one asset in a
// single response.
type ComprehensiveData struct {
	Quote          asset.Quote      `json:"quote"`
	News           []news.Article   `json:"news"`
	Sentiment      []news.Sentiment `json:"sentiment"`
	Sources        []string         `json:"sources"`
	DataConfidence int              `json:"data_confidence"`
	FetchedAt      time.Time        `json:"fetched_at"`
}

// Service is the market data aggregator. Every read goes cache-first; on a
// miss it walks the provider chain for the asset class, taking the first
// whole result. A provider that errors or returns nothing is skipped, never
// fatal, so one broken upstream degrades freshness instead of availability.
type Service struct {
	cache Cache
	quota *QuotaLimiter
	log   *logger.Logger
	now   func() time.Time

	yahoo        *YahooClient
	alphaVantage *AlphaVantageClient
	finnhub      *FinnhubClient
	coingecko    *CoinGeckoClient
	newsAPI      *NewsAPIClient
	social       SentimentProvider
	reddit       SentimentProvider

	// jitter, when set, perturbs the confidence score. Nil keeps the score
	// fully deterministic.
	jitter func() int
}

// ServiceOption tweaks Service construction.
type ServiceOption func(*Service)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithConfidenceJitter adds a perturbation to the confidence score. The
// result is still clamped to the documented range.
func WithConfidenceJitter(jitter func() int) ServiceOption {
	return func(s *Service) { s.jitter = jitter }
}

// NewService wires the aggregator. Any provider may be nil and is then
// skipped in its chain.
func NewService(
	cache Cache,
	quota *QuotaLimiter,
	yahoo *YahooClient,
	alphaVantage *AlphaVantageClient,
	finnhub *FinnhubClient,
	coingecko *CoinGeckoClient,
	newsAPI *NewsAPIClient,
	social, reddit SentimentProvider,
	log *logger.Logger,
	opts ...ServiceOption,
) *Service {
	if cache == nil {
		cache = NewMemoryCache(nil)
	}
	if quota == nil {
		quota = NewQuotaLimiter(nil, nil)
	}
	if log == nil {
		log = logger.NewDefault("marketdata")
	}
	s := &Service{
		cache:        cache,
		quota:        quota,
		log:          log,
		now:          time.Now,
		yahoo:        yahoo,
		alphaVantage: alphaVantage,
		finnhub:      finnhub,
		coingecko:    coingecko,
		newsAPI:      newsAPI,
		social:       social,
		reddit:       reddit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote returns the freshest quote for an asset, trying each configured
// source in order until one yields a complete record.
func (s *Service) Quote(ctx context.Context, symbol string, typ asset.Type) (asset.Quote, error) {
	symbol = asset.NormalizeSymbol(symbol)
	cacheKey := fmt.Sprintf("quote:%s:%s", typ, symbol)

	var cached asset.Quote
	if s.getCached(ctx, cacheKey, &cached) {
		return cached, nil
	}

	for _, src := range s.quoteChain(typ) {
		if !s.quota.CanRequest(src.name) {
			s.log.WithField("provider", src.name).Debug("quota exhausted, skipping")
			continue
		}
		s.quota.RecordRequest(src.name)

		quote, err := src.provider.Quote(ctx, symbol)
		metrics.RecordProviderRequest(src.name, err)
		if err != nil {
			s.log.WithError(err).WithField("provider", src.name).WithField("symbol", symbol).Debug("quote source failed")
			continue
		}
		s.cache.Set(ctx, cacheKey, quote, quoteTTL, src.name)
		return quote, nil
	}
	return asset.Quote{}, fmt.Errorf("quote %s: all sources exhausted: %w", symbol, ErrNoData)
}

// quoteChain lists the sources to try for an asset class, in preference
// order. Unconfigured clients are left out entirely.
func (s *Service) quoteChain(typ asset.Type) []quoteSource {
	if typ == asset.TypeCrypto {
		if s.coingecko == nil {
			return nil
		}
		return []quoteSource{{name: ProviderCoinGecko, provider: s.coingecko}}
	}
	chain := make([]quoteSource, 0, 3)
	if s.yahoo != nil {
		chain = append(chain, quoteSource{name: ProviderYahoo, provider: s.yahoo})
	}
	if s.alphaVantage != nil && s.alphaVantage.Configured() {
		chain = append(chain, quoteSource{name: ProviderAlphaVantage, provider: s.alphaVantage})
	}
	if s.finnhub != nil && s.finnhub.Configured() {
		chain = append(chain, quoteSource{name: ProviderFinnhub, provider: s.finnhub})
	}
	return chain
}

// Search runs the query against the stock and crypto catalogs, deduplicates
// by symbol and caps the merged list.
func (s *Service) Search(ctx context.Context, query string) ([]asset.Quote, error) {
	cacheKey := "search:" + query

	var cached []asset.Quote
	if s.getCached(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var results []asset.Quote
	if s.yahoo != nil && s.quota.CanRequest(ProviderYahooSearch) {
		s.quota.RecordRequest(ProviderYahooSearch)
		stocks, err := s.yahoo.Search(ctx, query)
		if err != nil {
			s.log.WithError(err).Debug("stock search failed")
		} else {
			results = append(results, stocks...)
		}
	}
	results = append(results, searchPopular(query)...)
	if s.finnhub != nil && s.finnhub.Configured() && s.quota.CanRequest(ProviderFinnhub) {
		s.quota.RecordRequest(ProviderFinnhub)
		matches, err := s.finnhub.Search(ctx, query)
		if err != nil {
			s.log.WithError(err).Debug("finnhub search failed")
		} else {
			results = append(results, matches...)
		}
	}
	if s.coingecko != nil && s.quota.CanRequest(ProviderCoinGecko) {
		s.quota.RecordRequest(ProviderCoinGecko)
		coins, err := s.coingecko.Search(ctx, query)
		if err != nil {
			s.log.WithError(err).Debug("crypto search failed")
		} else {
			results = append(results, coins...)
		}
	}

	seen := make(map[string]bool, len(results))
	deduped := results[:0]
	for _, r := range results {
		key := string(r.Type) + ":" + r.Symbol
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
		if len(deduped) >= maxSearchResults {
			break
		}
	}
	if len(deduped) == 0 {
		return nil, fmt.Errorf("search %q: %w", query, ErrNoData)
	}
	s.cache.Set(ctx, cacheKey, deduped, searchTTL, "aggregate")
	return deduped, nil
}

// MarketMovers returns the day's gainers and losers for one asset class.
func (s *Service) MarketMovers(ctx context.Context, typ asset.Type) (asset.Movers, error) {
	cacheKey := fmt.Sprintf("movers:%s", typ)

	var cached asset.Movers
	if s.getCached(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var (
		movers   asset.Movers
		err      error
		provider string
	)
	switch typ {
	case asset.TypeCrypto:
		provider = ProviderCoinGecko
		if s.coingecko == nil || !s.quota.CanRequest(provider) {
			return asset.Movers{}, fmt.Errorf("movers %s: %w", typ, ErrNoData)
		}
		s.quota.RecordRequest(provider)
		movers, err = s.coingecko.Movers(ctx)
	default:
		provider = ProviderYahooMovers
		if s.yahoo == nil || !s.quota.CanRequest(provider) {
			return asset.Movers{}, fmt.Errorf("movers %s: %w", typ, ErrNoData)
		}
		s.quota.RecordRequest(provider)
		movers, err = s.yahoo.Movers(ctx)
	}
	if err != nil {
		return asset.Movers{}, fmt.Errorf("movers %s: %w", typ, err)
	}
	s.cache.Set(ctx, cacheKey, movers, moversTTL, provider)
	return movers, nil
}

// ChartData returns an OHLCV series for the asset: 30 daily bars for stocks,
// 30 days of 4h bars for crypto.
func (s *Service) ChartData(ctx context.Context, symbol string, typ asset.Type) ([]asset.ChartPoint, error) {
	symbol = asset.NormalizeSymbol(symbol)
	cacheKey := fmt.Sprintf("chart:%s:%s", typ, symbol)

	var cached []asset.ChartPoint
	if s.getCached(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var (
		points   []asset.ChartPoint
		err      error
		provider string
	)
	switch typ {
	case asset.TypeCrypto:
		provider = ProviderCoinGecko
		if s.coingecko == nil || !s.quota.CanRequest(provider) {
			return nil, fmt.Errorf("chart %s: %w", symbol, ErrNoData)
		}
		s.quota.RecordRequest(provider)
		points, err = s.coingecko.Chart(ctx, symbol)
	default:
		provider = ProviderAlphaVantage
		if s.alphaVantage == nil || !s.alphaVantage.Configured() || !s.quota.CanRequest(provider) {
			return nil, fmt.Errorf("chart %s: %w", symbol, ErrNoData)
		}
		s.quota.RecordRequest(provider)
		points, err = s.alphaVantage.DailySeries(ctx, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	s.cache.Set(ctx, cacheKey, points, chartTTL, provider)
	return points, nil
}

// News merges articles from every configured feed, deduplicates by URL, and
// returns the newest first, capped at maxNewsArticles.
func (s *Service) News(ctx context.Context, symbols []string) ([]news.Article, error) {
	normalized := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		normalized = append(normalized, asset.NormalizeSymbol(sym))
	}
	cacheKey := "news:general"
	if len(normalized) > 0 {
		cacheKey = "news:" + strings.Join(normalized, ",")
	}

	var cached []news.Article
	if s.getCached(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var merged []news.Article
	if s.newsAPI != nil && s.newsAPI.Configured() && s.quota.CanRequest(ProviderNewsAPI) {
		s.quota.RecordRequest(ProviderNewsAPI)
		if articles, err := s.newsAPI.Headlines(ctx, normalized); err != nil {
			s.log.WithError(err).Debug("newsapi feed failed")
		} else {
			merged = append(merged, articles...)
		}
	}
	if s.alphaVantage != nil && s.alphaVantage.Configured() && s.quota.CanRequest(ProviderAlphaVantage) {
		s.quota.RecordRequest(ProviderAlphaVantage)
		if articles, err := s.alphaVantage.News(ctx, normalized); err != nil {
			s.log.WithError(err).Debug("alphavantage feed failed")
		} else {
			merged = append(merged, articles...)
		}
	}
	if len(normalized) > 0 && s.finnhub != nil && s.finnhub.Configured() && s.quota.CanRequest(ProviderFinnhub) {
		s.quota.RecordRequest(ProviderFinnhub)
		if articles, err := s.finnhub.CompanyNews(ctx, normalized); err != nil {
			s.log.WithError(err).Debug("finnhub feed failed")
		} else {
			merged = append(merged, articles...)
		}
	}

	seen := make(map[string]bool, len(merged))
	deduped := merged[:0]
	for _, a := range merged {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		deduped = append(deduped, a)
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].PublishedAt.After(deduped[j].PublishedAt)
	})
	if len(deduped) > maxNewsArticles {
		deduped = deduped[:maxNewsArticles]
	}
	if len(deduped) == 0 {
		return nil, fmt.Errorf("news: %w", ErrNoData)
	}
	s.cache.Set(ctx, cacheKey, deduped, newsTTL, "aggregate")
	return deduped, nil
}

// Sentiment fans out to the social feeds and merges their readings.
func (s *Service) Sentiment(ctx context.Context, symbols []string) ([]news.Sentiment, error) {
	var readings []news.Sentiment
	for _, p := range []SentimentProvider{s.social, s.reddit} {
		if p == nil {
			continue
		}
		batch, err := p.Sentiment(ctx, symbols)
		if err != nil {
			s.log.WithError(err).Debug("sentiment source failed")
			continue
		}
		readings = append(readings, batch...)
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("sentiment: %w", ErrNoData)
	}
	return readings, nil
}

// Comprehensive bundles quote, news and sentiment for one asset and scores
// how complete the picture is. The three fetches run concurrently; only a
// missing quote is fatal.
func (s *Service) Comprehensive(ctx context.Context, symbol string, typ asset.Type) (ComprehensiveData, error) {
	symbol = asset.NormalizeSymbol(symbol)

	var (
		wg       sync.WaitGroup
		quote    asset.Quote
		quoteErr error
		articles []news.Article
		readings []news.Sentiment
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		quote, quoteErr = s.Quote(ctx, symbol, typ)
	}()
	go func() {
		defer wg.Done()
		var err error
		if articles, err = s.News(ctx, []string{symbol}); err != nil {
			s.log.WithError(err).WithField("symbol", symbol).Debug("comprehensive: news unavailable")
			articles = nil
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if readings, err = s.Sentiment(ctx, []string{symbol}); err != nil {
			readings = nil
		}
	}()
	wg.Wait()

	if quoteErr != nil {
		// Without a quote there is nothing to build on.
		return ComprehensiveData{}, quoteErr
	}
	sources := []string{"quote"}
	if articles != nil {
		sources = append(sources, "news")
	}
	if readings != nil {
		sources = append(sources, "sentiment")
	}

	return ComprehensiveData{
		Quote:          quote,
		News:           articles,
		Sentiment:      readings,
		Sources:        sources,
		DataConfidence: s.dataConfidence(len(sources)),
		FetchedAt:      s.now().UTC(),
	}, nil
}

// dataConfidence maps source coverage to a 30..95 score. The mapping is
// deterministic unless a jitter hook was installed, and the clamp holds
// either way.
func (s *Service) dataConfidence(sourceCount int) int {
	score := 30 + sourceCount*20
	if s.jitter != nil {
		score += s.jitter()
	}
	if score > 95 {
		score = 95
	}
	if score < 30 {
		score = 30
	}
	return score
}

// getCached reads through the cache and counts the hit or miss.
func (s *Service) getCached(ctx context.Context, key string, dst interface{}) bool {
	if s.cache.Get(ctx, key, dst) {
		metrics.RecordCacheEvent("hit")
		return true
	}
	metrics.RecordCacheEvent("miss")
	return false
}

// CacheStats exposes the memory cache counters when that backend is in use.
func (s *Service) CacheStats() (entries int, sources map[string]int, ok bool) {
	mc, isMem := s.cache.(*MemoryCache)
	if !isMem {
		return 0, nil, false
	}
	entries, sources = mc.Stats()
	return entries, sources, true
}
