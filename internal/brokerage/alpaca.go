// Package brokerage talks to an Alpaca-compatible trading API for users who
// link their own brokerage account. All calls are best-effort: the simulated
// book stays canonical and live mirroring failures never block a trade.
package brokerage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alphadesk/alphadesk/pkg/logger"
)

const defaultBaseURL = "https://paper-api.alpaca.markets"

// Account is the linked brokerage account state.
type Account struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Cash        float64 `json:"cash"`
	Equity      float64 `json:"equity"`
	BuyingPower float64 `json:"buying_power"`
}

// Position is an open holding in the linked account.
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"qty,string"`
	AvgEntry     float64 `json:"avg_entry_price,string"`
	MarketValue  float64 `json:"market_value,string"`
	UnrealizedPL float64 `json:"unrealized_pl,string"`
}

// OrderRequest is a live order submission.
type OrderRequest struct {
	Symbol      string
	Quantity    float64
	Side        string // "buy" / "sell"
	Type        string // "market" / "limit" / "stop" / "stop_limit"
	TimeInForce string
	LimitPrice  *float64
	StopPrice   *float64
}

// Order is a live order as reported by the brokerage.
type Order struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Quantity    float64   `json:"qty,string"`
	Side        string    `json:"side"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Client is an Alpaca API client. Credentials are passed per call because
// each user links their own keys.
type Client struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewClient builds a brokerage client. An empty baseURL targets the Alpaca
// paper endpoint.
func NewClient(baseURL string, client *http.Client, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("brokerage")
	}
	return &Client{baseURL: baseURL, client: client, log: log}
}

// ValidateCredentials checks a key pair by fetching the account.
func (c *Client) ValidateCredentials(ctx context.Context, key, secret string) error {
	_, err := c.GetAccount(ctx, key, secret)
	return err
}

// GetAccount fetches the linked account's balances.
func (c *Client) GetAccount(ctx context.Context, key, secret string) (Account, error) {
	body, err := c.do(ctx, key, secret, http.MethodGet, "/v2/account", nil)
	if err != nil {
		return Account{}, err
	}

	// Alpaca serializes balances as strings.
	var raw struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		Cash        string `json:"cash"`
		Equity      string `json:"equity"`
		BuyingPower string `json:"buying_power"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Account{}, fmt.Errorf("brokerage: decode account: %w", err)
	}
	account := Account{ID: raw.ID, Status: raw.Status}
	account.Cash, _ = strconv.ParseFloat(raw.Cash, 64)
	account.Equity, _ = strconv.ParseFloat(raw.Equity, 64)
	account.BuyingPower, _ = strconv.ParseFloat(raw.BuyingPower, 64)
	return account, nil
}

// GetPositions returns the account's open positions.
func (c *Client) GetPositions(ctx context.Context, key, secret string) ([]Position, error) {
	body, err := c.do(ctx, key, secret, http.MethodGet, "/v2/positions", nil)
	if err != nil {
		return nil, err
	}
	var positions []Position
	if err := json.Unmarshal(body, &positions); err != nil {
		return nil, fmt.Errorf("brokerage: decode positions: %w", err)
	}
	return positions, nil
}

// ListOrders returns the account's open orders.
func (c *Client) ListOrders(ctx context.Context, key, secret string) ([]Order, error) {
	body, err := c.do(ctx, key, secret, http.MethodGet, "/v2/orders?status=open", nil)
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("brokerage: decode orders: %w", err)
	}
	return orders, nil
}

// SubmitOrder places a live order.
func (c *Client) SubmitOrder(ctx context.Context, key, secret string, req OrderRequest) (Order, error) {
	payload := map[string]string{
		"symbol":        req.Symbol,
		"qty":           strconv.FormatFloat(req.Quantity, 'f', -1, 64),
		"side":          req.Side,
		"type":          req.Type,
		"time_in_force": req.TimeInForce,
	}
	if req.LimitPrice != nil {
		payload["limit_price"] = strconv.FormatFloat(*req.LimitPrice, 'f', -1, 64)
	}
	if req.StopPrice != nil {
		payload["stop_price"] = strconv.FormatFloat(*req.StopPrice, 'f', -1, 64)
	}

	body, err := c.do(ctx, key, secret, http.MethodPost, "/v2/orders", payload)
	if err != nil {
		return Order{}, err
	}
	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return Order{}, fmt.Errorf("brokerage: decode order: %w", err)
	}
	return order, nil
}

func (c *Client) do(ctx context.Context, key, secret, method, path string, payload interface{}) ([]byte, error) {
	if key == "" || secret == "" {
		return nil, fmt.Errorf("brokerage: credentials required")
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("brokerage: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("brokerage: build request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", key)
	req.Header.Set("APCA-API-SECRET-KEY", secret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brokerage: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("brokerage: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("brokerage: %s %s: status %d", method, path, resp.StatusCode)
	}
	return body, nil
}
