package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// coinIDs maps common ticker symbols to CoinGecko coin ids. Symbols outside
// the table fall back to the lowercased symbol, which matches for many coins.
var coinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"LTC":   "litecoin",
	"BNB":   "binancecoin",
	"USDT":  "tether",
	"USDC":  "usd-coin",
}

// CoinGeckoClient reads crypto prices, charts, movers and search from the
// CoinGecko public API. No API key is required on the free tier.
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewCoinGeckoClient builds a client.
func NewCoinGeckoClient(baseURL string, client *http.Client, log *logger.Logger) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = defaultCoinGeckoBaseURL
	}
	if client == nil {
		client = defaultHTTPClient()
	}
	if log == nil {
		log = logger.NewDefault("coingecko")
	}
	return &CoinGeckoClient{baseURL: baseURL, client: client, log: log}
}

// CoinID resolves a ticker symbol to the CoinGecko coin id.
func CoinID(symbol string) string {
	symbol = asset.NormalizeSymbol(symbol)
	if id, ok := coinIDs[symbol]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// Quote returns the current crypto quote for a ticker symbol.
func (c *CoinGeckoClient) Quote(ctx context.Context, symbol string) (asset.Quote, error) {
	symbol = asset.NormalizeSymbol(symbol)
	id := CoinID(symbol)
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true&include_24hr_vol=true&include_market_cap=true",
		c.baseURL, url.QueryEscape(id))
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return asset.Quote{}, fmt.Errorf("coingecko quote %s: %w", symbol, err)
	}

	var payload map[string]struct {
		USD          float64 `json:"usd"`
		USDMarketCap float64 `json:"usd_market_cap"`
		USD24hVol    float64 `json:"usd_24h_vol"`
		USD24hChange float64 `json:"usd_24h_change"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return asset.Quote{}, fmt.Errorf("coingecko quote %s: decode: %w", symbol, err)
	}
	coin, ok := payload[id]
	if !ok || coin.USD == 0 {
		return asset.Quote{}, fmt.Errorf("coingecko quote %s: %w", symbol, ErrNoData)
	}

	// simple/price reports percent change only; the absolute change is backed
	// out from the 24h-ago price.
	change := coin.USD * coin.USD24hChange / (100 + coin.USD24hChange)
	if coin.USD24hChange == -100 {
		change = 0
	}

	return asset.Quote{
		Symbol:        symbol,
		Name:          id,
		Type:          asset.TypeCrypto,
		Price:         coin.USD,
		Change:        change,
		ChangePercent: coin.USD24hChange,
		Volume:        coin.USD24hVol,
		MarketCap:     coin.USDMarketCap,
	}, nil
}

// Chart returns 30 days of OHLC bars for a coin. CoinGecko's ohlc endpoint
// carries no volume.
func (c *CoinGeckoClient) Chart(ctx context.Context, symbol string) ([]asset.ChartPoint, error) {
	symbol = asset.NormalizeSymbol(symbol)
	id := CoinID(symbol)
	u := fmt.Sprintf("%s/coins/%s/ohlc?vs_currency=usd&days=30", c.baseURL, url.PathEscape(id))
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko chart %s: %w", symbol, err)
	}

	var rows [][]float64
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("coingecko chart %s: decode: %w", symbol, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("coingecko chart %s: %w", symbol, ErrNoData)
	}

	points := make([]asset.ChartPoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		points = append(points, asset.ChartPoint{
			Timestamp: strconv.FormatInt(int64(row[0]), 10),
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
		})
	}
	return points, nil
}

// Movers returns the top crypto gainers and losers by 24h change among the
// top-100 coins by market cap.
func (c *CoinGeckoClient) Movers(ctx context.Context) (asset.Movers, error) {
	u := fmt.Sprintf("%s/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=100&page=1&price_change_percentage=24h", c.baseURL)
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return asset.Movers{}, fmt.Errorf("coingecko movers: %w", err)
	}

	var coins []struct {
		Symbol        string  `json:"symbol"`
		Name          string  `json:"name"`
		CurrentPrice  float64 `json:"current_price"`
		PriceChange   float64 `json:"price_change_24h"`
		ChangePercent float64 `json:"price_change_percentage_24h"`
		TotalVolume   float64 `json:"total_volume"`
	}
	if err := json.Unmarshal(body, &coins); err != nil {
		return asset.Movers{}, fmt.Errorf("coingecko movers: decode: %w", err)
	}
	if len(coins) == 0 {
		return asset.Movers{}, fmt.Errorf("coingecko movers: %w", ErrNoData)
	}

	toMover := func(i int) asset.MarketMover {
		return asset.MarketMover{
			Symbol:        asset.NormalizeSymbol(coins[i].Symbol),
			Name:          coins[i].Name,
			Price:         coins[i].CurrentPrice,
			Change:        coins[i].PriceChange,
			ChangePercent: coins[i].ChangePercent,
			Volume:        coins[i].TotalVolume,
		}
	}

	order := make([]int, len(coins))
	for i := range order {
		order[i] = i
	}
	// Selection by change percent, descending for gainers.
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if coins[order[j]].ChangePercent > coins[order[i]].ChangePercent {
				order[i], order[j] = order[j], order[i]
			}
		}
	}

	var movers asset.Movers
	for i := 0; i < len(order) && i < 10; i++ {
		movers.Gainers = append(movers.Gainers, toMover(order[i]))
	}
	for i := len(order) - 1; i >= 0 && len(movers.Losers) < 10; i-- {
		movers.Losers = append(movers.Losers, toMover(order[i]))
	}
	return movers, nil
}

// Search returns coin matches for a free-text query. Tokenized stocks and
// other wrapped assets are filtered out so crypto search stays crypto.
func (c *CoinGeckoClient) Search(ctx context.Context, query string) ([]asset.Quote, error) {
	u := fmt.Sprintf("%s/search?query=%s", c.baseURL, url.QueryEscape(query))
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko search %q: %w", query, err)
	}

	var payload struct {
		Coins []struct {
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"coins"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("coingecko search %q: decode: %w", query, err)
	}

	var results []asset.Quote
	for _, coin := range payload.Coins {
		if strings.Contains(strings.ToLower(coin.Name), "tokenized") {
			continue
		}
		symbol := asset.NormalizeSymbol(coin.Symbol)
		if symbol == "" {
			continue
		}
		results = append(results, asset.Quote{Symbol: symbol, Name: coin.Name, Type: asset.TypeCrypto})
		if len(results) >= 8 {
			break
		}
	}
	return results, nil
}
