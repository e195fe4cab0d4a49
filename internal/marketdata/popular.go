package marketdata

import (
	"sort"
	"strings"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

// popularStocks backs symbol search when providers return nothing useful.
// Matches carry no price; the caller resolves quotes separately.
var popularStocks = map[string]string{
	"AAPL":  "Apple Inc.",
	"GOOGL": "Alphabet Inc.",
	"GOOG":  "Alphabet Inc. Class A",
	"MSFT":  "Microsoft Corporation",
	"AMZN":  "Amazon.com Inc.",
	"TSLA":  "Tesla Inc.",
	"META":  "Meta Platforms Inc.",
	"NVDA":  "NVIDIA Corporation",
	"NFLX":  "Netflix Inc.",
	"AMD":   "Advanced Micro Devices Inc.",
	"ADBE":  "Adobe Inc.",
	"CRM":   "Salesforce Inc.",
	"ORCL":  "Oracle Corporation",
	"IBM":   "International Business Machines",
	"INTC":  "Intel Corporation",
	"PYPL":  "PayPal Holdings Inc.",
	"SHOP":  "Shopify Inc.",
	"UBER":  "Uber Technologies Inc.",
	"DIS":   "Walt Disney Company",
	"JPM":   "JPMorgan Chase & Co.",
	"BAC":   "Bank of America Corporation",
	"GS":    "Goldman Sachs Group Inc.",
	"V":     "Visa Inc.",
	"MA":    "Mastercard Incorporated",
	"KO":    "Coca-Cola Company",
	"PEP":   "PepsiCo Inc.",
	"MCD":   "McDonald's Corporation",
	"NKE":   "Nike Inc.",
	"WMT":   "Walmart Inc.",
	"JNJ":   "Johnson & Johnson",
	"PG":    "Procter & Gamble",
	"UNH":   "UnitedHealth Group",
	"HD":    "Home Depot Inc.",
	"CVX":   "Chevron Corporation",
	"XOM":   "Exxon Mobil Corporation",
	"COST":  "Costco Wholesale Corporation",
}

// searchPopular matches the query against the static table: exact symbol
// first, then symbol substrings, then company-name substrings. Substring
// passes run in sorted symbol order so results are stable.
func searchPopular(query string) []asset.Quote {
	upper := strings.ToUpper(strings.TrimSpace(query))
	lower := strings.ToLower(strings.TrimSpace(query))
	if upper == "" {
		return nil
	}

	symbols := make([]string, 0, len(popularStocks))
	for symbol := range popularStocks {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var results []asset.Quote
	seen := make(map[string]bool)
	add := func(symbol string) {
		if seen[symbol] {
			return
		}
		seen[symbol] = true
		results = append(results, asset.Quote{
			Symbol: symbol,
			Name:   popularStocks[symbol],
			Type:   asset.TypeStock,
		})
	}

	if _, ok := popularStocks[upper]; ok {
		add(upper)
	}
	for _, symbol := range symbols {
		if symbol != upper && strings.Contains(symbol, upper) {
			add(symbol)
		}
	}
	for _, symbol := range symbols {
		if strings.Contains(strings.ToLower(popularStocks[symbol]), lower) {
			add(symbol)
		}
	}
	return results
}
