package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient reads the unofficial Yahoo Finance JSON endpoints. The payloads
// are deeply nested and loosely typed, so extraction goes through gjson paths
// rather than struct decoding.
type YahooClient struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewYahooClient builds a client. Empty baseURL and nil client fall back to
// the public endpoint and a timeout-bounded default client.
func NewYahooClient(baseURL string, client *http.Client, log *logger.Logger) *YahooClient {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	if client == nil {
		client = defaultHTTPClient()
	}
	if log == nil {
		log = logger.NewDefault("yahoo")
	}
	return &YahooClient{baseURL: baseURL, client: client, log: log}
}

// Quote returns the current stock quote, or ErrNoData when the symbol is
// unknown to Yahoo.
func (c *YahooClient) Quote(ctx context.Context, symbol string) (asset.Quote, error) {
	symbol = asset.NormalizeSymbol(symbol)
	body, err := fetchBody(ctx, c.client, fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(symbol)), nil)
	if err != nil {
		return asset.Quote{}, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}

	meta := gjson.GetBytes(body, "chart.result.0.meta")
	if !meta.Exists() {
		return asset.Quote{}, fmt.Errorf("yahoo quote %s: %w", symbol, ErrNoData)
	}

	price := meta.Get("regularMarketPrice").Float()
	previousClose := meta.Get("previousClose").Float()
	if price == 0 {
		price = previousClose
	}
	if price == 0 {
		return asset.Quote{}, fmt.Errorf("yahoo quote %s: %w", symbol, ErrNoData)
	}

	change := price - previousClose
	var changePercent float64
	if previousClose != 0 {
		changePercent = change / previousClose * 100
	}

	name := meta.Get("longName").String()
	if name == "" {
		name = meta.Get("shortName").String()
	}
	if name == "" {
		name = symbol
	}

	return asset.Quote{
		Symbol:        symbol,
		Name:          name,
		Type:          asset.TypeStock,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        meta.Get("regularMarketVolume").Float(),
		MarketCap:     meta.Get("marketCap").Float(),
		High24h:       meta.Get("regularMarketDayHigh").Float(),
		Low24h:        meta.Get("regularMarketDayLow").Float(),
	}, nil
}

// Search returns up to eight equity/ETF matches for a free-text query.
// Prices are zero; callers fetch quotes separately when needed.
func (c *YahooClient) Search(ctx context.Context, query string) ([]asset.Quote, error) {
	u := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=10&newsCount=0", c.baseURL, url.QueryEscape(query))
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo search %q: %w", query, err)
	}

	quotes := gjson.GetBytes(body, "quotes")
	if !quotes.Exists() {
		return nil, fmt.Errorf("yahoo search %q: %w", query, ErrNoData)
	}

	var results []asset.Quote
	quotes.ForEach(func(_, q gjson.Result) bool {
		typeDisp := q.Get("typeDisp").String()
		if typeDisp != "Equity" && typeDisp != "ETF" {
			return true
		}
		name := q.Get("longname").String()
		if name == "" {
			name = q.Get("shortname").String()
		}
		symbol := asset.NormalizeSymbol(q.Get("symbol").String())
		if symbol == "" {
			return true
		}
		if name == "" {
			name = symbol
		}
		results = append(results, asset.Quote{
			Symbol: symbol,
			Name:   name,
			Type:   asset.TypeStock,
		})
		return len(results) < 8
	})
	return results, nil
}

// Movers returns the day's top gainers and losers from the Yahoo screener.
func (c *YahooClient) Movers(ctx context.Context) (asset.Movers, error) {
	gainers, err := c.screener(ctx, "day_gainers")
	if err != nil {
		return asset.Movers{}, err
	}
	losers, err := c.screener(ctx, "day_losers")
	if err != nil {
		return asset.Movers{}, err
	}
	if len(gainers) == 0 && len(losers) == 0 {
		return asset.Movers{}, fmt.Errorf("yahoo movers: %w", ErrNoData)
	}
	return asset.Movers{Gainers: gainers, Losers: losers}, nil
}

func (c *YahooClient) screener(ctx context.Context, screen string) ([]asset.MarketMover, error) {
	u := fmt.Sprintf("%s/v1/finance/screener/predefined/saved?formatted=true&scrIds=%s", c.baseURL, screen)
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo screener %s: %w", screen, err)
	}

	var movers []asset.MarketMover
	gjson.GetBytes(body, "finance.result.0.quotes").ForEach(func(_, q gjson.Result) bool {
		symbol := asset.NormalizeSymbol(q.Get("symbol").String())
		if symbol == "" {
			return true
		}
		name := q.Get("longName").String()
		if name == "" {
			name = q.Get("shortName").String()
		}
		if name == "" {
			name = symbol
		}
		movers = append(movers, asset.MarketMover{
			Symbol:        symbol,
			Name:          name,
			Price:         q.Get("regularMarketPrice.raw").Float(),
			Change:        q.Get("regularMarketChange.raw").Float(),
			ChangePercent: q.Get("regularMarketChangePercent.raw").Float(),
			Volume:        q.Get("regularMarketVolume.raw").Float(),
		})
		return len(movers) < 10
	})
	return movers, nil
}
