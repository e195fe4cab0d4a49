package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/portfolio"
	"github.com/alphadesk/alphadesk/internal/app/domain/user"
	"github.com/alphadesk/alphadesk/internal/platform/migrations"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db.DB); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)

	u, err := store.CreateUser(ctx, user.User{Email: "it@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := store.CreatePortfolio(ctx, portfolio.Portfolio{UserID: u.ID, CashBalance: 10000, InitialBalance: 10000}); err != nil {
		t.Fatalf("create portfolio: %v", err)
	}

	rec := analysis.Record{
		Symbol:         "AAPL",
		Type:           asset.TypeStock,
		Recommendation: analysis.RecommendHold,
		Confidence:     60,
		RiskLevel:      analysis.RiskMedium,
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	if _, err := store.UpsertAnalysis(ctx, rec); err != nil {
		t.Fatalf("upsert analysis: %v", err)
	}

	// A second upsert for the same (symbol, type) must replace, not duplicate.
	rec.Recommendation = analysis.RecommendBuy
	if _, err := store.UpsertAnalysis(ctx, rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err := store.GetAnalysis(ctx, "aapl", asset.TypeStock)
	if err != nil {
		t.Fatalf("get analysis: %v", err)
	}
	if got.Recommendation != analysis.RecommendBuy {
		t.Fatalf("recommendation = %s, want buy after upsert", got.Recommendation)
	}
}
