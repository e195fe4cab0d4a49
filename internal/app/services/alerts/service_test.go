package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/alphadesk/alphadesk/internal/app/domain/alert"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/storage/memory"
)

type fakeQuotes struct {
	prices map[string]float64
}

func (f *fakeQuotes) Quote(_ context.Context, symbol string, _ asset.Type) (asset.Quote, error) {
	price, ok := f.prices[symbol]
	if !ok {
		return asset.Quote{}, errors.New("no data")
	}
	return asset.Quote{Symbol: symbol, Price: price}, nil
}

func TestCreateValidation(t *testing.T) {
	svc := New(memory.New(), &fakeQuotes{}, nil, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", "", asset.TypeStock, alert.ConditionAbove, 100); err == nil {
		t.Fatal("empty symbol must be rejected")
	}
	if _, err := svc.Create(ctx, "u1", "AAPL", asset.TypeStock, "crosses", 100); err == nil {
		t.Fatal("unknown condition must be rejected")
	}
	if _, err := svc.Create(ctx, "u1", "AAPL", asset.TypeStock, alert.ConditionAbove, 0); err == nil {
		t.Fatal("non-positive target must be rejected")
	}

	a, err := svc.Create(ctx, "u1", "aapl", asset.TypeStock, alert.ConditionAbove, 200)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Symbol != "AAPL" || !a.Active || a.Triggered {
		t.Fatalf("alert = %+v", a)
	}
}

func TestEvaluateFiresOnce(t *testing.T) {
	store := memory.New()
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 190}}
	svc := New(store, quotes, store, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, "u1", "AAPL", asset.TypeStock, alert.ConditionAbove, 200)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Below target: nothing fires.
	fired, err := svc.Evaluate(ctx)
	if err != nil || fired != 0 {
		t.Fatalf("fired = %d (%v), want 0", fired, err)
	}

	quotes.prices["AAPL"] = 205
	fired, err = svc.Evaluate(ctx)
	if err != nil || fired != 1 {
		t.Fatalf("fired = %d (%v), want 1", fired, err)
	}

	got, _ := store.GetAlert(ctx, a.ID)
	if !got.Triggered || got.Active || got.TriggeredAt == nil {
		t.Fatalf("alert after fire = %+v", got)
	}

	notes, err := store.ListNotifications(ctx, "u1", false)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Type != "alert" {
		t.Fatalf("notifications: %+v", notes)
	}

	// Fired alerts leave the active set: a second sweep is a no-op.
	fired, err = svc.Evaluate(ctx)
	if err != nil || fired != 0 {
		t.Fatalf("refire: fired = %d (%v), want 0", fired, err)
	}
}

func TestEvaluateBelowCondition(t *testing.T) {
	store := memory.New()
	quotes := &fakeQuotes{prices: map[string]float64{"BTC": 58_000}}
	svc := New(store, quotes, store, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", "BTC", asset.TypeCrypto, alert.ConditionBelow, 60_000); err != nil {
		t.Fatalf("create: %v", err)
	}
	fired, err := svc.Evaluate(ctx)
	if err != nil || fired != 1 {
		t.Fatalf("fired = %d (%v), want 1", fired, err)
	}
}

func TestEvaluateSkipsUnquotable(t *testing.T) {
	store := memory.New()
	svc := New(store, &fakeQuotes{prices: map[string]float64{}}, store, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, "u1", "DARK", asset.TypeStock, alert.ConditionAbove, 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fired, err := svc.Evaluate(ctx)
	if err != nil || fired != 0 {
		t.Fatalf("fired = %d (%v), want 0", fired, err)
	}
	// The alert stays armed for the next sweep.
	got, _ := store.GetAlert(ctx, a.ID)
	if !got.Active || got.Triggered {
		t.Fatalf("alert = %+v", got)
	}
}

func TestSetActiveRearms(t *testing.T) {
	store := memory.New()
	quotes := &fakeQuotes{prices: map[string]float64{"AAPL": 205}}
	svc := New(store, quotes, store, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, "u1", "AAPL", asset.TypeStock, alert.ConditionAbove, 200)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Evaluate(ctx); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	rearmed, err := svc.SetActive(ctx, "u1", a.ID, true)
	if err != nil {
		t.Fatalf("rearm: %v", err)
	}
	if !rearmed.Active || rearmed.Triggered || rearmed.TriggeredAt != nil {
		t.Fatalf("rearmed = %+v", rearmed)
	}

	fired, err := svc.Evaluate(ctx)
	if err != nil || fired != 1 {
		t.Fatalf("fired = %d (%v), want 1 after rearm", fired, err)
	}
}

func TestDeleteChecksOwnership(t *testing.T) {
	store := memory.New()
	svc := New(store, &fakeQuotes{}, nil, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, "u1", "AAPL", asset.TypeStock, alert.ConditionAbove, 200)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, "u2", a.ID); err == nil {
		t.Fatal("foreign user must not delete")
	}
	if err := svc.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
