// Package httpapi exposes the REST surface of the dashboard backend.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/alphadesk/alphadesk/internal/app"
	"github.com/alphadesk/alphadesk/internal/app/domain/alert"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/portfolio"
	"github.com/alphadesk/alphadesk/internal/app/domain/user"
	"github.com/alphadesk/alphadesk/internal/app/metrics"
	tradingsvc "github.com/alphadesk/alphadesk/internal/app/services/trading"
	"github.com/alphadesk/alphadesk/internal/middleware"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// Config tunes the middleware wrapped around the API.
type Config struct {
	AllowedOrigins []string
	// RateLimit is requests per second per caller; zero disables limiting.
	RateLimit int
	RateBurst int
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns the full API surface with the middleware chain applied:
// request IDs, CORS, metrics, token auth and per-caller rate limiting.
func NewHandler(application *app.Application, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/api/v1/auth/", h.auth)

	mux.HandleFunc("/api/v1/quotes/", h.quote)
	mux.HandleFunc("/api/v1/search", h.search)
	mux.HandleFunc("/api/v1/movers", h.movers)
	mux.HandleFunc("/api/v1/chart/", h.chart)
	mux.HandleFunc("/api/v1/news", h.news)
	mux.HandleFunc("/api/v1/sentiment", h.sentiment)
	mux.HandleFunc("/api/v1/comprehensive/", h.comprehensive)
	mux.HandleFunc("/api/v1/analysis/", h.analysis)
	mux.HandleFunc("/api/v1/stream", h.stream)

	mux.HandleFunc("/api/v1/me", h.me)
	mux.HandleFunc("/api/v1/me/", h.meResources)
	mux.HandleFunc("/api/v1/portfolio", h.portfolioSnapshot)
	mux.HandleFunc("/api/v1/positions", h.positions)
	mux.HandleFunc("/api/v1/trades", h.trades)
	mux.HandleFunc("/api/v1/trades/", h.tradeResources)
	mux.HandleFunc("/api/v1/watchlist", h.watchlist)
	mux.HandleFunc("/api/v1/watchlist/", h.watchlistItem)
	mux.HandleFunc("/api/v1/alerts", h.alerts)
	mux.HandleFunc("/api/v1/alerts/", h.alertResources)
	mux.HandleFunc("/api/v1/notifications", h.notifications)
	mux.HandleFunc("/api/v1/notifications/", h.notificationResources)
	mux.HandleFunc("/api/v1/chat", h.chat)
	mux.HandleFunc("/api/v1/chat/", h.chatResources)
	mux.HandleFunc("/api/v1/recommendations", h.recommendations)
	mux.HandleFunc("/api/v1/recommendations/", h.recommendationResources)

	auth := middleware.NewAuth(application.Accounts, log, []string{
		"/api/v1/auth/",
		"/healthz",
		"/metrics",
	})

	var chained http.Handler = mux
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = cfg.RateLimit
		}
		chained = middleware.NewRateLimiter(cfg.RateLimit, burst, log).Handler(chained)
	}
	chained = auth.Handler(chained)
	chained = metrics.InstrumentHandler(chained)
	chained = middleware.NewCORS(cfg.AllowedOrigins).Handler(chained)
	return middleware.RequestID(chained)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) auth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch pathSuffix(r.URL.Path, "/api/v1/auth") {
	case "signup":
		u, token, err := h.app.Accounts.Signup(r.Context(), payload.Email, payload.Password, payload.Name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"user": u, "token": token})
	case "login":
		u, token, err := h.app.Accounts.Login(r.Context(), payload.Email, payload.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"user": u, "token": token})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) quote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	symbol := pathSuffix(r.URL.Path, "/api/v1/quotes")
	if symbol == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	q, err := h.app.Market.Quote(r.Context(), symbol, assetType(r))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("q is required"))
		return
	}
	results, err := h.app.Market.Search(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *handler) movers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	movers, err := h.app.Market.MarketMovers(r.Context(), assetType(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, movers)
}

func (h *handler) chart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	symbol := pathSuffix(r.URL.Path, "/api/v1/chart")
	if symbol == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	points, err := h.app.Market.ChartData(r.Context(), symbol, assetType(r))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *handler) news(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	articles, err := h.app.Market.News(r.Context(), symbolList(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (h *handler) sentiment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	readings, err := h.app.Market.Sentiment(r.Context(), symbolList(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

func (h *handler) comprehensive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	symbol := pathSuffix(r.URL.Path, "/api/v1/comprehensive")
	if symbol == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	data, err := h.app.Market.Comprehensive(r.Context(), symbol, assetType(r))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *handler) analysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	target := pathSuffix(r.URL.Path, "/api/v1/analysis")
	if target == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if target == "recent" {
		limit := intQuery(r, "limit", 10)
		records, err := h.app.Analysis.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	refresh := r.URL.Query().Get("refresh") == "true"
	rec, err := h.app.Analysis.Analyze(r.Context(), target, assetType(r), refresh)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		u, err := h.app.Accounts.Get(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodPatch:
		var payload struct {
			Name  string `json:"name"`
			Theme string `json:"theme"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := h.app.Accounts.UpdateProfile(r.Context(), userID, payload.Name, payload.Theme)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) meResources(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	switch pathSuffix(r.URL.Path, "/api/v1/me") {
	case "broker":
		switch r.Method {
		case http.MethodPut:
			var payload struct {
				APIKey      string `json:"api_key"`
				APISecret   string `json:"api_secret"`
				LiveTrading bool   `json:"live_trading"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			u, err := h.app.Accounts.SetBrokerCredentials(r.Context(), userID, payload.APIKey, payload.APISecret, payload.LiveTrading)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusOK, u)

		case http.MethodGet:
			snap, err := h.app.Trading.LiveAccount(r.Context(), userID)
			if err != nil {
				if errors.Is(err, tradingsvc.ErrNoLinkedBroker) {
					writeError(w, http.StatusNotFound, err)
					return
				}
				writeError(w, http.StatusBadGateway, err)
				return
			}
			writeJSON(w, http.StatusOK, snap)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case "subscription":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Tier string `json:"tier"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		tier := user.Tier(strings.ToLower(strings.TrimSpace(payload.Tier)))
		sub, err := h.app.Accounts.SetSubscription(r.Context(), userID, tier, time.Now().UTC().AddDate(0, 1, 0))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) portfolioSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap, err := h.app.Trading.Snapshot(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handler) positions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	positions, err := h.app.Trading.Positions(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (h *handler) trades(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		trades, err := h.app.Trading.Trades(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, trades)

	case http.MethodPost:
		var payload struct {
			Symbol      string   `json:"symbol"`
			Type        string   `json:"type"`
			Action      string   `json:"action"`
			Quantity    float64  `json:"quantity"`
			OrderType   string   `json:"order_type"`
			LimitPrice  *float64 `json:"limit_price"`
			StopPrice   *float64 `json:"stop_price"`
			TimeInForce string   `json:"time_in_force"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		typ, err := asset.ParseType(payload.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if payload.OrderType == "" {
			payload.OrderType = string(portfolio.OrderMarket)
		}
		if payload.TimeInForce == "" {
			payload.TimeInForce = string(portfolio.TIFGTC)
		}
		trade, err := h.app.Trading.PlaceOrder(r.Context(), tradingsvc.OrderRequest{
			UserID:      userID,
			Symbol:      payload.Symbol,
			Type:        typ,
			Action:      portfolio.Side(payload.Action),
			Quantity:    payload.Quantity,
			OrderType:   portfolio.OrderType(payload.OrderType),
			LimitPrice:  payload.LimitPrice,
			StopPrice:   payload.StopPrice,
			TimeInForce: portfolio.TimeInForce(payload.TimeInForce),
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, trade)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) tradeResources(w http.ResponseWriter, r *http.Request) {
	tradeID := pathSuffix(r.URL.Path, "/api/v1/trades")
	if tradeID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	trade, err := h.app.Trading.CancelOrder(r.Context(), middleware.UserID(r.Context()), tradeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (h *handler) watchlist(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		items, err := h.app.Watchlists.List(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, items)

	case http.MethodPost:
		var payload struct {
			Symbol string `json:"symbol"`
			Type   string `json:"type"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		typ, err := asset.ParseType(payload.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		item, err := h.app.Watchlists.Add(r.Context(), userID, payload.Symbol, typ)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) watchlistItem(w http.ResponseWriter, r *http.Request) {
	symbol := pathSuffix(r.URL.Path, "/api/v1/watchlist")
	if symbol == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.Watchlists.Remove(r.Context(), middleware.UserID(r.Context()), symbol); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) alerts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		list, err := h.app.Alerts.List(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)

	case http.MethodPost:
		var payload struct {
			Symbol      string  `json:"symbol"`
			Type        string  `json:"type"`
			Condition   string  `json:"condition"`
			TargetPrice float64 `json:"target_price"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		typ, err := asset.ParseType(payload.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		condition := alert.Condition(strings.ToLower(strings.TrimSpace(payload.Condition)))
		created, err := h.app.Alerts.Create(r.Context(), userID, payload.Symbol, typ, condition, payload.TargetPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) alertResources(w http.ResponseWriter, r *http.Request) {
	alertID := pathSuffix(r.URL.Path, "/api/v1/alerts")
	if alertID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	userID := middleware.UserID(r.Context())

	switch r.Method {
	case http.MethodDelete:
		if err := h.app.Alerts.Delete(r.Context(), userID, alertID); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodPatch:
		var payload struct {
			Active *bool `json:"active"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if payload.Active == nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("active is required"))
			return
		}
		updated, err := h.app.Alerts.SetActive(r.Context(), userID, alertID, *payload.Active)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	unread := r.URL.Query().Get("unread") == "true"
	list, err := h.app.Notifications.List(r.Context(), middleware.UserID(r.Context()), unread)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) notificationResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := pathParts(r.URL.Path, "/api/v1/notifications")

	switch {
	case len(parts) == 1 && parts[0] == "read-all":
		if err := h.app.Notifications.MarkAllRead(r.Context(), middleware.UserID(r.Context())); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case len(parts) == 2 && parts[1] == "read":
		if err := h.app.Notifications.MarkRead(r.Context(), parts[0]); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		history, err := h.app.Assistant.History(r.Context(), userID, intQuery(r, "limit", 50))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, history)

	case http.MethodPost:
		var payload struct {
			Message string `json:"message"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		reply, err := h.app.Assistant.Ask(r.Context(), userID, payload.Message)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, reply)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) chatResources(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/v1/chat")
	if len(parts) != 2 || parts[1] != "feedback" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Feedback int `json:"feedback"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Assistant.Feedback(r.Context(), parts[0], payload.Feedback); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) recommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	unviewed := r.URL.Query().Get("unviewed") == "true"
	list, err := h.app.Recommendations.List(r.Context(), middleware.UserID(r.Context()), unviewed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) recommendationResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := pathParts(r.URL.Path, "/api/v1/recommendations")

	switch {
	case len(parts) == 1 && parts[0] == "refresh":
		created, err := h.app.Recommendations.Refresh(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, created)

	case len(parts) == 2 && parts[1] == "viewed":
		if err := h.app.Recommendations.MarkViewed(r.Context(), parts[0]); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// assetType reads the ?type= query, defaulting to stock.
func assetType(r *http.Request) asset.Type {
	typ, err := asset.ParseType(r.URL.Query().Get("type"))
	if err != nil {
		return asset.TypeStock
	}
	return typ
}

// symbolList reads the ?symbols= query as a comma-separated ticker list.
func symbolList(r *http.Request) []string {
	raw := strings.TrimSpace(r.URL.Query().Get("symbols"))
	if raw == "" {
		return nil
	}
	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		if s = asset.NormalizeSymbol(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// pathSuffix returns the single path element after the prefix, or "" when the
// path has none or more than one.
func pathSuffix(path, prefix string) string {
	parts := pathParts(path, prefix)
	if len(parts) != 1 {
		return ""
	}
	return parts[0]
}

func pathParts(path, prefix string) []string {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
