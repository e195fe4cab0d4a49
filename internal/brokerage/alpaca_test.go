package brokerage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func checkAuth(t *testing.T, r *http.Request) {
	t.Helper()
	if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
		t.Errorf("missing credential headers")
	}
}

func TestGetAccountDecodesStringBalances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAuth(t, r)
		if r.URL.Path != "/v2/account" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"acct-1","status":"ACTIVE","cash":"2500.50","equity":"10000","buying_power":"5001"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	account, err := client.GetAccount(context.Background(), "key", "secret")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.ID != "acct-1" || account.Cash != 2500.50 || account.BuyingPower != 5001 {
		t.Fatalf("account = %+v", account)
	}
}

func TestGetPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAuth(t, r)
		if r.URL.Path != "/v2/positions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[{"symbol":"AAPL","qty":"3","avg_entry_price":"150.25","market_value":"480","unrealized_pl":"29.25"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	positions, err := client.GetPositions(context.Background(), "key", "secret")
	if err != nil {
		t.Fatalf("get positions: %v", err)
	}
	if len(positions) != 1 || positions[0].Symbol != "AAPL" || positions[0].AvgEntry != 150.25 {
		t.Fatalf("positions = %+v", positions)
	}
}

func TestSubmitOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkAuth(t, r)
		if r.Method != http.MethodPost || r.URL.Path != "/v2/orders" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["symbol"] != "AAPL" || payload["qty"] != "5" || payload["limit_price"] != "190.5" {
			t.Errorf("payload = %v", payload)
		}
		w.Write([]byte(`{"id":"ord-1","symbol":"AAPL","qty":"5","side":"buy","type":"limit","status":"accepted"}`))
	}))
	defer srv.Close()

	limit := 190.5
	client := NewClient(srv.URL, srv.Client(), nil)
	order, err := client.SubmitOrder(context.Background(), "key", "secret", OrderRequest{
		Symbol: "AAPL", Quantity: 5, Side: "buy", Type: "limit",
		TimeInForce: "day", LimitPrice: &limit,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order.ID != "ord-1" || order.Quantity != 5 || order.Status != "accepted" {
		t.Fatalf("order = %+v", order)
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client(), nil)
	if err := client.ValidateCredentials(context.Background(), "key", "secret"); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestMissingCredentials(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", nil, nil)
	if err := client.ValidateCredentials(context.Background(), "", ""); err == nil {
		t.Fatal("expected credentials-required error")
	}
}
