package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/user"
	"github.com/alphadesk/alphadesk/internal/app/storage/memory"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc, err := New(store, store, "test-secret", nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestSignupSeedsPortfolioAndIssuesToken(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	u, token, err := svc.Signup(ctx, "Trader@Example.com", "hunter2hunter2", "Trader")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Email != "trader@example.com" {
		t.Fatalf("email = %q, want lowercased", u.Email)
	}
	if u.PasswordHash == "hunter2hunter2" || u.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	p, err := store.GetPortfolio(ctx, u.ID)
	if err != nil {
		t.Fatalf("portfolio not seeded: %v", err)
	}
	if p.CashBalance != DefaultStartingBalance || p.InitialBalance != DefaultStartingBalance {
		t.Fatalf("balances = %v/%v, want %v", p.CashBalance, p.InitialBalance, float64(DefaultStartingBalance))
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != u.ID {
		t.Fatalf("claims uid = %q, want %q", claims.UserID, u.ID)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "not-an-email", "hunter2hunter2", ""); err == nil {
		t.Fatal("expected invalid email rejection")
	}
	if _, _, err := svc.Signup(ctx, "a@b.com", "short", ""); err == nil {
		t.Fatal("expected short password rejection")
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "a@b.com", "hunter2hunter2", ""); err != nil {
		t.Fatalf("signup: %v", err)
	}

	u, token, err := svc.Login(ctx, "a@b.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || u.Email != "a@b.com" {
		t.Fatalf("unexpected login result: %+v", u)
	}

	if _, _, err := svc.Login(ctx, "a@b.com", "wrong-password"); err == nil {
		t.Fatal("expected wrong password rejection")
	}
	if _, _, err := svc.Login(ctx, "nobody@b.com", "hunter2hunter2"); err == nil {
		t.Fatal("expected unknown user rejection")
	}
}

func TestVerifyTokenRejectsForeignSignature(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, token, err := svc.Signup(ctx, "a@b.com", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	other, err := New(memory.New(), nil, "different-secret", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := other.VerifyToken(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestTierDefaultsToFree(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	u, _, err := svc.Signup(ctx, "a@b.com", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if tier := svc.Tier(ctx, u.ID); tier != user.TierFree {
		t.Fatalf("tier = %s, want free", tier)
	}

	if _, err := svc.SetSubscription(ctx, u.ID, user.TierPro, time.Now().Add(30*24*time.Hour)); err != nil {
		t.Fatalf("set subscription: %v", err)
	}
	if tier := svc.Tier(ctx, u.ID); tier != user.TierPro {
		t.Fatalf("tier = %s, want pro", tier)
	}

	// An expired period falls back to free.
	if _, err := store.UpsertSubscription(ctx, user.Subscription{
		UserID: u.ID, Tier: user.TierPro, Status: "active",
		CurrentPeriodEnd: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if tier := svc.Tier(ctx, u.ID); tier != user.TierFree {
		t.Fatalf("tier = %s, want free after expiry", tier)
	}
}

func TestSetBrokerCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, _, err := svc.Signup(ctx, "a@b.com", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	updated, err := svc.SetBrokerCredentials(ctx, u.ID, "key", "secret", true)
	if err != nil {
		t.Fatalf("set credentials: %v", err)
	}
	if !updated.LiveTrading {
		t.Fatal("live trading should enable with credentials present")
	}

	// Clearing credentials force-disables live trading.
	updated, err = svc.SetBrokerCredentials(ctx, u.ID, "", "", true)
	if err != nil {
		t.Fatalf("clear credentials: %v", err)
	}
	if updated.LiveTrading {
		t.Fatal("live trading must drop without credentials")
	}
}
