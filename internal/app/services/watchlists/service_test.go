package watchlists

import (
	"context"
	"errors"
	"testing"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/storage/memory"
)

type fakeQuotes struct {
	quotes map[string]asset.Quote
}

func (f *fakeQuotes) Quote(_ context.Context, symbol string, _ asset.Type) (asset.Quote, error) {
	q, ok := f.quotes[symbol]
	if !ok {
		return asset.Quote{}, errors.New("no data")
	}
	return q, nil
}

func TestAddNamesFromQuote(t *testing.T) {
	store := memory.New()
	quotes := &fakeQuotes{quotes: map[string]asset.Quote{
		"AAPL": {Symbol: "AAPL", Name: "Apple Inc.", Price: 190},
	}}
	svc := New(store, quotes, nil)

	item, err := svc.Add(context.Background(), "u1", " aapl ", asset.TypeStock)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if item.Symbol != "AAPL" || item.Name != "Apple Inc." {
		t.Fatalf("item = %+v", item)
	}

	// Duplicates per (user, symbol) are rejected by the store.
	if _, err := svc.Add(context.Background(), "u1", "AAPL", asset.TypeStock); err == nil {
		t.Fatal("expected duplicate rejection")
	}
}

func TestAddSurvivesQuoteFailure(t *testing.T) {
	svc := New(memory.New(), &fakeQuotes{quotes: map[string]asset.Quote{}}, nil)

	item, err := svc.Add(context.Background(), "u1", "OBSCURE", asset.TypeStock)
	if err != nil {
		t.Fatalf("add must not depend on a live quote: %v", err)
	}
	if item.Name != "" {
		t.Fatalf("name = %q, want empty without a quote", item.Name)
	}
}

func TestListDecoratesWithQuotes(t *testing.T) {
	store := memory.New()
	quotes := &fakeQuotes{quotes: map[string]asset.Quote{
		"AAPL": {Symbol: "AAPL", Name: "Apple Inc.", Price: 190, Change: 2.5, ChangePercent: 1.3, Volume: 1000},
	}}
	svc := New(store, quotes, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", "AAPL", asset.TypeStock); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(ctx, "u1", "DARK", asset.TypeStock); err != nil {
		t.Fatalf("add: %v", err)
	}

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}

	byms := map[string]float64{}
	for _, qi := range list {
		byms[qi.Symbol] = qi.Price
	}
	if byms["AAPL"] != 190 {
		t.Fatalf("AAPL price = %v", byms["AAPL"])
	}
	// Unfetchable symbols still appear, priced at zero.
	if byms["DARK"] != 0 {
		t.Fatalf("DARK price = %v, want 0", byms["DARK"])
	}
}

func TestRemove(t *testing.T) {
	store := memory.New()
	svc := New(store, &fakeQuotes{quotes: map[string]asset.Quote{}}, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", "AAPL", asset.TypeStock); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Remove(ctx, "u1", "aapl"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("len = %d after removal", len(list))
	}
}
