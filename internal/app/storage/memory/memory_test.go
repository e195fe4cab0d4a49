package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/alert"
	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/user"
	"github.com/alphadesk/alphadesk/internal/app/domain/watchlist"
)

func TestUpsertAnalysisReplacesByKey(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.UpsertAnalysis(ctx, analysis.Record{
		Symbol:         "aapl",
		Type:           asset.TypeStock,
		Recommendation: analysis.RecommendHold,
		ExpiresAt:      time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	second, err := store.UpsertAnalysis(ctx, analysis.Record{
		Symbol:         "AAPL",
		Type:           asset.TypeStock,
		Recommendation: analysis.RecommendBuy,
		ExpiresAt:      time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a new row: %s vs %s", second.ID, first.ID)
	}

	got, err := store.GetAnalysis(ctx, "AAPL", asset.TypeStock)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Recommendation != analysis.RecommendBuy {
		t.Fatalf("recommendation = %s, want buy", got.Recommendation)
	}

	// Same symbol under a different asset type is a separate record.
	crypto, err := store.UpsertAnalysis(ctx, analysis.Record{
		Symbol: "AAPL", Type: asset.TypeCrypto, Recommendation: analysis.RecommendSell,
	})
	if err != nil {
		t.Fatalf("crypto upsert: %v", err)
	}
	if crypto.ID == first.ID {
		t.Fatal("different asset type must not share a record")
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, user.User{Email: "a@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateUser(ctx, user.User{Email: "A@Example.com", PasswordHash: "x"}); err == nil {
		t.Fatal("expected duplicate email rejection, case-insensitive")
	}

	got, err := store.GetUserByEmail(ctx, " A@EXAMPLE.COM ")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.Email != "a@example.com" {
		t.Fatalf("email = %q", got.Email)
	}
}

func TestWatchlistUniquePerUserSymbol(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.AddWatchlistItem(ctx, watchlist.Item{UserID: "u1", Symbol: "aapl", Type: asset.TypeStock}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.AddWatchlistItem(ctx, watchlist.Item{UserID: "u1", Symbol: "AAPL", Type: asset.TypeStock}); err == nil {
		t.Fatal("expected duplicate symbol rejection")
	}
	// Another user may track the same symbol.
	if _, err := store.AddWatchlistItem(ctx, watchlist.Item{UserID: "u2", Symbol: "AAPL", Type: asset.TypeStock}); err != nil {
		t.Fatalf("other user add: %v", err)
	}

	if err := store.RemoveWatchlistItem(ctx, "u1", "aapl"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	items, err := store.ListWatchlist(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("got %d items after removal", len(items))
	}
}

func TestListActiveAlertsExcludesTriggered(t *testing.T) {
	store := New()
	ctx := context.Background()

	a1, _ := store.CreateAlert(ctx, alert.Alert{UserID: "u1", Symbol: "AAPL", Condition: alert.ConditionAbove, TargetPrice: 200, Active: true})
	store.CreateAlert(ctx, alert.Alert{UserID: "u1", Symbol: "TSLA", Condition: alert.ConditionBelow, TargetPrice: 100, Active: false})

	active, err := store.ListActiveAlerts(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != a1.ID {
		t.Fatalf("unexpected active set: %+v", active)
	}

	now := time.Now().UTC()
	a1.Triggered = true
	a1.TriggeredAt = &now
	if _, err := store.UpdateAlert(ctx, a1); err != nil {
		t.Fatalf("update: %v", err)
	}
	active, _ = store.ListActiveAlerts(ctx)
	if len(active) != 0 {
		t.Fatalf("triggered alert still listed as active")
	}
}
