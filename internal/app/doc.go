// Package app composes the dashboard backend into a running application.
//
// # Architecture Role
//
// The app package sits above the storage and service layers and wires them
// together. It is NOT a business logic layer - business logic belongs in
// internal/app/services/ and the standalone engines (internal/marketdata,
// internal/analysis).
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── asset/          # Quotes, chart points, asset types
//	│   ├── portfolio/      # Portfolios, positions, trades
//	│   ├── user/           # Users, tiers, subscriptions
//	│   └── ...             # Watchlists, alerts, notifications, chat, ...
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces (UserStore, PortfolioStore, ...)
//	│   ├── memory/         # In-memory implementation for dev and tests
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Account, trading, watchlist, alert, ... services
//	├── httpapi/            # HTTP handlers, routing and the quote stream
//	├── jobs/               # Background scheduler (alert sweeps, pending orders)
//	├── system/             # Service lifecycle manager
//	├── runtime/            # Process boot: config, DB, redis, HTTP server
//	└── metrics/            # Prometheus metrics
//
// # Responsibilities
//
// The app package is responsible for:
//
//   - Composing services with their stores and external clients
//   - Defining the storage interfaces services depend on
//   - Providing domain models shared across services
//   - Exposing the REST and websocket API
//   - Managing application-level concerns (auth, metrics, lifecycle)
//
// External market data and AI concerns live outside this tree on purpose:
// internal/marketdata aggregates provider clients behind a cache, and
// internal/analysis turns market snapshots into recommendations. Both are
// consumed here through narrow interfaces so they can be swapped in tests.
//
// # Dependency Direction
//
//	cmd/alphadesk/
//	      │
//	      ▼
//	internal/app/runtime/ (boot)
//	      │
//	      ▼
//	internal/app/ (composition)
//	      │
//	      ├──► internal/app/services/ (business logic)
//	      │           │
//	      │           └──► internal/app/storage/ (interfaces)
//	      │
//	      ├──► internal/marketdata/ (provider aggregation)
//	      │
//	      └──► internal/analysis/ (AI + technical analysis)
//
// # Example: Adding a New Domain
//
// When adding a new domain (e.g. "screeners"):
//
//  1. Create domain models in internal/app/domain/screener/
//  2. Add a storage interface to internal/app/storage/interfaces.go
//  3. Implement storage in internal/app/storage/postgres/ and memory/
//  4. Create the service in internal/app/services/screeners/service.go
//  5. Wire the service in internal/app/application.go
//  6. Add HTTP handlers in internal/app/httpapi/handler.go
package app
