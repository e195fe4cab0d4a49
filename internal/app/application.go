package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alphadesk/alphadesk/internal/analysis"
	"github.com/alphadesk/alphadesk/internal/app/jobs"
	"github.com/alphadesk/alphadesk/internal/app/services/accounts"
	alertsvc "github.com/alphadesk/alphadesk/internal/app/services/alerts"
	"github.com/alphadesk/alphadesk/internal/app/services/assistant"
	notifysvc "github.com/alphadesk/alphadesk/internal/app/services/notifications"
	recsvc "github.com/alphadesk/alphadesk/internal/app/services/recommendations"
	tradingsvc "github.com/alphadesk/alphadesk/internal/app/services/trading"
	watchsvc "github.com/alphadesk/alphadesk/internal/app/services/watchlists"
	"github.com/alphadesk/alphadesk/internal/app/storage"
	"github.com/alphadesk/alphadesk/internal/app/storage/memory"
	"github.com/alphadesk/alphadesk/internal/app/system"
	"github.com/alphadesk/alphadesk/internal/brokerage"
	"github.com/alphadesk/alphadesk/internal/marketdata"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users           storage.UserStore
	Analyses        storage.AnalysisStore
	Portfolios      storage.PortfolioStore
	Watchlists      storage.WatchlistStore
	Alerts          storage.AlertStore
	Notifications   storage.NotificationStore
	Chats           storage.ChatStore
	Recommendations storage.RecommendationStore
}

// Config carries the external-surface settings the application needs:
// upstream API credentials, the signing secret and the LLM endpoint. Empty
// provider keys disable that provider; its chain skips it.
type Config struct {
	JWTSecret string

	AlphaVantageKey string
	FinnhubKey      string
	NewsAPIKey      string

	// Base URL overrides, mainly for tests. Empty uses each provider's
	// public endpoint.
	YahooBaseURL        string
	AlphaVantageBaseURL string
	FinnhubBaseURL      string
	CoinGeckoBaseURL    string
	NewsAPIBaseURL      string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	BrokerageBaseURL string

	// MarketCache backs the aggregator. Nil uses the in-process cache.
	MarketCache marketdata.Cache
	// Quotas overrides the per-provider request budgets. Nil uses the
	// free-plan defaults.
	Quotas map[string]marketdata.ProviderQuota
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Accounts        *accounts.Service
	Market          *marketdata.Service
	Analysis        *analysis.Service
	Trading         *tradingsvc.Service
	Watchlists      *watchsvc.Service
	Alerts          *alertsvc.Service
	Assistant       *assistant.Service
	Recommendations *recsvc.Service
	Notifications   *notifysvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, cfg Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Analyses == nil {
		stores.Analyses = mem
	}
	if stores.Portfolios == nil {
		stores.Portfolios = mem
	}
	if stores.Watchlists == nil {
		stores.Watchlists = mem
	}
	if stores.Alerts == nil {
		stores.Alerts = mem
	}
	if stores.Notifications == nil {
		stores.Notifications = mem
	}
	if stores.Chats == nil {
		stores.Chats = mem
	}
	if stores.Recommendations == nil {
		stores.Recommendations = mem
	}

	manager := system.NewManager()
	httpClient := &http.Client{Timeout: 10 * time.Second}

	acctService, err := accounts.New(stores.Users, stores.Portfolios, cfg.JWTSecret, log)
	if err != nil {
		return nil, fmt.Errorf("accounts service: %w", err)
	}

	yahoo := marketdata.NewYahooClient(cfg.YahooBaseURL, httpClient, log)
	coingecko := marketdata.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, httpClient, log)
	var alphaVantage *marketdata.AlphaVantageClient
	if cfg.AlphaVantageKey != "" {
		alphaVantage = marketdata.NewAlphaVantageClient(cfg.AlphaVantageBaseURL, cfg.AlphaVantageKey, httpClient, log)
	} else {
		log.Warn("alpha vantage key not set; provider disabled")
	}
	var finnhub *marketdata.FinnhubClient
	if cfg.FinnhubKey != "" {
		finnhub = marketdata.NewFinnhubClient(cfg.FinnhubBaseURL, cfg.FinnhubKey, httpClient, log)
	} else {
		log.Warn("finnhub key not set; provider disabled")
	}
	var newsAPI *marketdata.NewsAPIClient
	if cfg.NewsAPIKey != "" {
		newsAPI = marketdata.NewNewsAPIClient(cfg.NewsAPIBaseURL, cfg.NewsAPIKey, httpClient, log)
	} else {
		log.Warn("news api key not set; provider disabled")
	}

	marketService := marketdata.NewService(
		cfg.MarketCache,
		marketdata.NewQuotaLimiter(cfg.Quotas, nil),
		yahoo,
		alphaVantage,
		finnhub,
		coingecko,
		newsAPI,
		marketdata.NewSentimentStub("social", nil),
		marketdata.NewSentimentStub("reddit", nil),
		log,
	)

	var llmClient *analysis.Client
	if cfg.LLMAPIKey != "" {
		llmClient = analysis.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, httpClient, log)
	} else {
		log.Warn("llm key not set; analysis uses the technical fallback and the assistant is degraded")
	}
	var generator analysis.Generator
	var chatter assistant.Chatter
	if llmClient != nil {
		generator = llmClient
		chatter = llmClient
	}

	analysisService := analysis.NewService(stores.Analyses, marketService, generator, log)

	tradingService := tradingsvc.New(stores.Portfolios, marketService, acctService, stores.Notifications, log).
		WithLiveMirror(stores.Users, brokerage.NewClient(cfg.BrokerageBaseURL, httpClient, log))

	watchlistService := watchsvc.New(stores.Watchlists, marketService, log)
	alertService := alertsvc.New(stores.Alerts, marketService, stores.Notifications, log)
	assistantService := assistant.New(stores.Chats, chatter, log)
	recService := recsvc.New(stores.Recommendations, stores.Watchlists, analysisService, log)
	notifyService := notifysvc.New(stores.Notifications, log)

	for _, name := range []string{"accounts", "marketdata", "analysis", "trading"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	scheduler := jobs.NewScheduler(alertService, tradingService, log)
	if err := manager.Register(scheduler); err != nil {
		return nil, fmt.Errorf("register %s: %w", scheduler.Name(), err)
	}

	return &Application{
		manager:         manager,
		log:             log,
		Accounts:        acctService,
		Market:          marketService,
		Analysis:        analysisService,
		Trading:         tradingService,
		Watchlists:      watchlistService,
		Alerts:          alertService,
		Assistant:       assistantService,
		Recommendations: recService,
		Notifications:   notifyService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
