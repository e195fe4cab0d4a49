// Package runtime boots the full backend: configuration, persistence, the
// service container and the HTTP server lifecycle.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/alphadesk/alphadesk/internal/app"
	"github.com/alphadesk/alphadesk/internal/app/httpapi"
	"github.com/alphadesk/alphadesk/internal/app/storage/postgres"
	"github.com/alphadesk/alphadesk/internal/config"
	"github.com/alphadesk/alphadesk/internal/marketdata"
	"github.com/alphadesk/alphadesk/internal/platform/migrations"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sqlx.DB
	redis      *redis.Client
}

// NewApplication constructs the application from Load()ed configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig constructs the application from explicit
// configuration. An empty database DSN selects the in-memory store, an empty
// redis address the in-process cache.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	log := logger.New(cfg.Logging)

	var (
		stores app.Stores
		db     *sqlx.DB
	)
	if cfg.Database.DSN != "" {
		var err error
		db, err = openDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		pg := postgres.New(db)
		stores = app.Stores{
			Users:           pg,
			Analyses:        pg,
			Portfolios:      pg,
			Watchlists:      pg,
			Alerts:          pg,
			Notifications:   pg,
			Chats:           pg,
			Recommendations: pg,
		}
		log.Info("using postgres store")
	} else {
		log.Warn("no database configured; state is in-memory and lost on restart")
	}

	var (
		cache       marketdata.Cache
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			if db != nil {
				db.Close()
			}
			redisClient.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		cache = marketdata.NewRedisCache(redisClient, cfg.Redis.Prefix, log)
		log.WithField("addr", cfg.Redis.Addr).Info("using redis market data cache")
	}

	application, err := app.New(stores, app.Config{
		JWTSecret:           cfg.Auth.JWTSecret,
		AlphaVantageKey:     cfg.Providers.AlphaVantageKey,
		FinnhubKey:          cfg.Providers.FinnhubKey,
		NewsAPIKey:          cfg.Providers.NewsAPIKey,
		YahooBaseURL:        cfg.Providers.YahooBaseURL,
		AlphaVantageBaseURL: cfg.Providers.AlphaVantageBaseURL,
		FinnhubBaseURL:      cfg.Providers.FinnhubBaseURL,
		CoinGeckoBaseURL:    cfg.Providers.CoinGeckoBaseURL,
		NewsAPIBaseURL:      cfg.Providers.NewsAPIBaseURL,
		LLMBaseURL:          cfg.LLM.BaseURL,
		LLMAPIKey:           cfg.LLM.APIKey,
		LLMModel:            cfg.LLM.Model,
		BrokerageBaseURL:    cfg.Brokerage.BaseURL,
		MarketCache:         cache,
	}, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, fmt.Errorf("build application: %w", err)
	}

	handler := httpapi.NewHandler(application, httpapi.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
	}, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		app:        application,
		httpServer: httpServer,
		db:         db,
		redis:      redisClient,
	}, nil
}

// App exposes the service container, mainly for tests.
func (a *Application) App() *app.Application {
	return a.app
}

// Run starts the background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown drains the HTTP server, stops background services and closes the
// store connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		firstErr = err
	}
	if err := a.app.Stop(shutdownCtx); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
	}
	return firstErr
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrations.Apply(ctx, db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return db, nil
}
