package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/news"
)

type sentimentFunc func(ctx context.Context, symbols []string) ([]news.Sentiment, error)

func (f sentimentFunc) Sentiment(ctx context.Context, symbols []string) ([]news.Sentiment, error) {
	return f(ctx, symbols)
}

const yahooChartBody = `{"chart":{"result":[{"meta":{
	"regularMarketPrice":190.5,"previousClose":188.0,
	"longName":"Apple Inc.","regularMarketVolume":52000000,
	"regularMarketDayHigh":191.2,"regularMarketDayLow":187.4}}]}}`

func newTestService(t *testing.T, yahooHandler, finnhubHandler http.HandlerFunc) (*Service, func()) {
	t.Helper()

	yahooSrv := httptest.NewServer(yahooHandler)
	finnhubSrv := httptest.NewServer(finnhubHandler)

	yahoo := NewYahooClient(yahooSrv.URL, yahooSrv.Client(), nil)
	finnhub := NewFinnhubClient(finnhubSrv.URL, "test-key", finnhubSrv.Client(), nil)

	svc := NewService(
		NewMemoryCache(nil),
		NewQuotaLimiter(map[string]ProviderQuota{}, nil),
		yahoo, nil, finnhub, nil, nil, nil, nil, nil,
	)
	cleanup := func() {
		yahooSrv.Close()
		finnhubSrv.Close()
	}
	return svc, cleanup
}

func TestQuotePrimarySource(t *testing.T) {
	svc, cleanup := newTestService(t,
		func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(yahooChartBody))
		},
		func(w http.ResponseWriter, _ *http.Request) {
			t.Error("finnhub should not be called when yahoo succeeds")
		},
	)
	defer cleanup()

	quote, err := svc.Quote(context.Background(), "aapl", asset.TypeStock)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Symbol != "AAPL" {
		t.Fatalf("symbol = %q, want AAPL", quote.Symbol)
	}
	if quote.Price != 190.5 {
		t.Fatalf("price = %v, want 190.5", quote.Price)
	}
	if quote.Name != "Apple Inc." {
		t.Fatalf("name = %q", quote.Name)
	}
	wantChange := 190.5 - 188.0
	if quote.Change != wantChange {
		t.Fatalf("change = %v, want %v", quote.Change, wantChange)
	}
}

func TestQuoteFallbackTakesWholeRecord(t *testing.T) {
	svc, cleanup := newTestService(t,
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"c":101.0,"h":103.0,"l":99.0,"pc":100.0}`))
		},
	)
	defer cleanup()

	quote, err := svc.Quote(context.Background(), "AAPL", asset.TypeStock)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// The whole record comes from the fallback source, never a field-level mix.
	if quote.Price != 101.0 || quote.Change != 1.0 || quote.ChangePercent != 1.0 {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if quote.High24h != 103.0 || quote.Low24h != 99.0 {
		t.Fatalf("high/low not carried from fallback: %+v", quote)
	}
}

func TestQuoteFallbackOrderAlphaVantageBeforeFinnhub(t *testing.T) {
	yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer yahooSrv.Close()
	avSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Global Quote":{"05. price":"42.5","09. change":"0.5","10. change percent":"1.19%","06. volume":"1000"}}`))
	}))
	defer avSrv.Close()
	finnhubSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("finnhub must not be tried before alphavantage")
	}))
	defer finnhubSrv.Close()

	svc := NewService(
		NewMemoryCache(nil),
		NewQuotaLimiter(map[string]ProviderQuota{}, nil),
		NewYahooClient(yahooSrv.URL, yahooSrv.Client(), nil),
		NewAlphaVantageClient(avSrv.URL, "k", avSrv.Client(), nil),
		NewFinnhubClient(finnhubSrv.URL, "k", finnhubSrv.Client(), nil),
		nil, nil, nil, nil, nil,
	)

	quote, err := svc.Quote(context.Background(), "XYZ", asset.TypeStock)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Price != 42.5 {
		t.Fatalf("price = %v, want 42.5 from alphavantage", quote.Price)
	}
}

func TestQuoteAllSourcesFailing(t *testing.T) {
	fail := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	svc, cleanup := newTestService(t, fail, fail)
	defer cleanup()

	_, err := svc.Quote(context.Background(), "AAPL", asset.TypeStock)
	if err == nil {
		t.Fatal("expected error when every source fails")
	}
}

func TestQuoteServedFromCache(t *testing.T) {
	var calls int32
	svc, cleanup := newTestService(t,
		func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Write([]byte(yahooChartBody))
		},
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.Quote(ctx, "AAPL", asset.TypeStock); err != nil {
		t.Fatalf("first Quote: %v", err)
	}
	if _, err := svc.Quote(ctx, "AAPL", asset.TypeStock); err != nil {
		t.Fatalf("second Quote: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("upstream called %d times, want 1", n)
	}
}

func TestQuoteSkipsProviderOverQuota(t *testing.T) {
	yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("yahoo must not be called when its quota is spent")
	}))
	defer yahooSrv.Close()
	finnhubSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"c":55.0,"h":56.0,"l":54.0,"pc":50.0}`))
	}))
	defer finnhubSrv.Close()

	limiter := NewQuotaLimiter(map[string]ProviderQuota{ProviderYahoo: {PerMinute: 1}}, nil)
	limiter.RecordRequest(ProviderYahoo)

	svc := NewService(
		NewMemoryCache(nil),
		limiter,
		NewYahooClient(yahooSrv.URL, yahooSrv.Client(), nil),
		nil,
		NewFinnhubClient(finnhubSrv.URL, "k", finnhubSrv.Client(), nil),
		nil, nil, nil, nil, nil,
	)

	quote, err := svc.Quote(context.Background(), "XYZ", asset.TypeStock)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Price != 55.0 {
		t.Fatalf("price = %v, want fallback 55.0", quote.Price)
	}
}

func TestNewsMergeDedupeAndOrder(t *testing.T) {
	newsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"ok","articles":[
			{"title":"Older","url":"https://example.com/a","publishedAt":"2025-06-01T08:00:00Z","source":{"name":"Wire"}},
			{"title":"Newest","url":"https://example.com/b","publishedAt":"2025-06-01T10:00:00Z","source":{"name":"Wire"}},
			{"title":"Duplicate of a","url":"https://example.com/a","publishedAt":"2025-06-01T09:00:00Z","source":{"name":"Wire"}}
		]}`))
	}))
	defer newsSrv.Close()

	svc := NewService(
		NewMemoryCache(nil),
		NewQuotaLimiter(map[string]ProviderQuota{}, nil),
		nil, nil, nil, nil,
		NewNewsAPIClient(newsSrv.URL, "k", newsSrv.Client(), nil),
		nil, nil, nil,
	)

	articles, err := svc.News(context.Background(), nil)
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2 after URL dedupe", len(articles))
	}
	if articles[0].Title != "Newest" {
		t.Fatalf("articles not ordered newest-first: %q", articles[0].Title)
	}
	if !articles[0].PublishedAt.After(articles[1].PublishedAt) {
		t.Fatal("expected descending publish order")
	}
}

func TestSentimentMergesSources(t *testing.T) {
	svc := NewService(
		NewMemoryCache(nil),
		NewQuotaLimiter(map[string]ProviderQuota{}, nil),
		nil, nil, nil, nil, nil,
		NewSentimentStub(ProviderSocial, nil),
		NewSentimentStub(ProviderReddit, nil),
		nil,
	)

	readings, err := svc.Sentiment(context.Background(), []string{"AAPL", "BTC"})
	if err != nil {
		t.Fatalf("Sentiment: %v", err)
	}
	if len(readings) != 4 {
		t.Fatalf("got %d readings, want 2 symbols x 2 sources", len(readings))
	}
	for _, r := range readings {
		if r.Score < 0 || r.Score > 1 {
			t.Fatalf("score out of range: %+v", r)
		}
		if r.Source != ProviderSocial && r.Source != ProviderReddit {
			t.Fatalf("unexpected source %q", r.Source)
		}
	}
}

func TestComprehensiveConfidenceDeterministic(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	build := func() (ComprehensiveData, error) {
		yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(yahooChartBody))
		}))
		defer yahooSrv.Close()

		svc := NewService(
			NewMemoryCache(nil),
			NewQuotaLimiter(map[string]ProviderQuota{}, nil),
			NewYahooClient(yahooSrv.URL, yahooSrv.Client(), nil),
			nil, nil, nil, nil,
			NewSentimentStub(ProviderSocial, nil),
			nil, nil,
			WithClock(func() time.Time { return fixed }),
		)
		return svc.Comprehensive(context.Background(), "AAPL", asset.TypeStock)
	}

	first, err := build()
	if err != nil {
		t.Fatalf("Comprehensive: %v", err)
	}
	second, err := build()
	if err != nil {
		t.Fatalf("Comprehensive: %v", err)
	}

	if first.DataConfidence != second.DataConfidence {
		t.Fatalf("confidence not deterministic: %d vs %d", first.DataConfidence, second.DataConfidence)
	}
	if first.DataConfidence < 30 || first.DataConfidence > 95 {
		t.Fatalf("confidence %d out of [30,95]", first.DataConfidence)
	}
	// quote + sentiment available, news not wired: two sources.
	if first.DataConfidence != 70 {
		t.Fatalf("confidence = %d, want 70 for two sources", first.DataConfidence)
	}
	if !first.FetchedAt.Equal(fixed) {
		t.Fatalf("fetchedAt = %v, want %v", first.FetchedAt, fixed)
	}
}

func TestComprehensiveFetchesConcurrently(t *testing.T) {
	// The quote response is held back until the sentiment fetch has started;
	// a sequential implementation would never get there and time out.
	sentimentStarted := make(chan struct{})
	yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		select {
		case <-sentimentStarted:
		case <-time.After(2 * time.Second):
			t.Error("sentiment fetch never started while the quote was in flight")
		}
		w.Write([]byte(yahooChartBody))
	}))
	defer yahooSrv.Close()

	stub := NewSentimentStub(ProviderSocial, nil)
	svc := NewService(
		NewMemoryCache(nil),
		NewQuotaLimiter(map[string]ProviderQuota{}, nil),
		NewYahooClient(yahooSrv.URL, yahooSrv.Client(), nil),
		nil, nil, nil, nil,
		sentimentFunc(func(ctx context.Context, symbols []string) ([]news.Sentiment, error) {
			close(sentimentStarted)
			return stub.Sentiment(ctx, symbols)
		}),
		nil, nil,
	)

	data, err := svc.Comprehensive(context.Background(), "AAPL", asset.TypeStock)
	if err != nil {
		t.Fatalf("Comprehensive: %v", err)
	}
	if data.Quote.Price != 190.5 {
		t.Fatalf("price = %v, want 190.5", data.Quote.Price)
	}
	if len(data.Sentiment) == 0 {
		t.Fatal("sentiment readings missing from the bundle")
	}
}

func TestComprehensiveJitterStaysClamped(t *testing.T) {
	yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(yahooChartBody))
	}))
	defer yahooSrv.Close()

	svc := NewService(
		NewMemoryCache(nil),
		NewQuotaLimiter(map[string]ProviderQuota{}, nil),
		NewYahooClient(yahooSrv.URL, yahooSrv.Client(), nil),
		nil, nil, nil, nil, nil, nil, nil,
		WithConfidenceJitter(func() int { return 1000 }),
	)

	data, err := svc.Comprehensive(context.Background(), "AAPL", asset.TypeStock)
	if err != nil {
		t.Fatalf("Comprehensive: %v", err)
	}
	if data.DataConfidence != 95 {
		t.Fatalf("confidence = %d, want clamp at 95", data.DataConfidence)
	}
}

func TestSearchDedupesAcrossCatalogs(t *testing.T) {
	yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"quotes":[
			{"symbol":"AAPL","typeDisp":"Equity","longname":"Apple Inc."},
			{"symbol":"AAPL","typeDisp":"Equity","longname":"Apple Inc."},
			{"symbol":"APLE","typeDisp":"Equity","shortname":"Apple Hospitality"}
		]}`))
	}))
	defer yahooSrv.Close()

	svc := NewService(
		NewMemoryCache(nil),
		NewQuotaLimiter(map[string]ProviderQuota{}, nil),
		NewYahooClient(yahooSrv.URL, yahooSrv.Client(), nil),
		nil, nil, nil, nil, nil, nil, nil,
	)

	results, err := svc.Search(context.Background(), "apple")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 after dedupe", len(results))
	}
}

func TestSearchUsesPopularTable(t *testing.T) {
	svc := NewService(
		NewMemoryCache(nil),
		NewQuotaLimiter(map[string]ProviderQuota{}, nil),
		nil, nil, nil, nil, nil, nil, nil, nil,
	)

	results, err := svc.Search(context.Background(), "microsoft")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Symbol != "MSFT" {
		t.Fatalf("results = %+v, want MSFT from the static table", results)
	}

	results, err = svc.Search(context.Background(), "NV")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].Symbol != "NVDA" {
		t.Fatalf("results = %+v, want NVDA first for symbol prefix", results)
	}
}
