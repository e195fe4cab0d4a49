package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alphadesk/alphadesk/internal/app/domain/alert"
	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/chat"
	"github.com/alphadesk/alphadesk/internal/app/domain/notification"
	"github.com/alphadesk/alphadesk/internal/app/domain/portfolio"
	"github.com/alphadesk/alphadesk/internal/app/domain/recommendation"
	"github.com/alphadesk/alphadesk/internal/app/domain/user"
	"github.com/alphadesk/alphadesk/internal/app/domain/watchlist"
	"github.com/alphadesk/alphadesk/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.AnalysisStore = (*Store)(nil)
var _ storage.PortfolioStore = (*Store)(nil)
var _ storage.WatchlistStore = (*Store)(nil)
var _ storage.AlertStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.ChatStore = (*Store)(nil)
var _ storage.RecommendationStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	Theme        string    `db:"theme"`
	BrokerKey    string    `db:"broker_key"`
	BrokerSecret string    `db:"broker_secret"`
	LiveTrading  bool      `db:"live_trading"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toDomain() user.User {
	return user.User(r)
}

func fromUser(u user.User) userRow {
	return userRow(u)
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, theme, broker_key, broker_secret, live_trading, created_at, updated_at)
		VALUES (:id, :email, :name, :password_hash, :theme, :broker_key, :broker_secret, :live_trading, :created_at, :updated_at)
	`, fromUser(u))
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.Email = existing.Email
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE users
		SET name = :name, password_hash = :password_hash, theme = :theme,
		    broker_key = :broker_key, broker_secret = :broker_secret,
		    live_trading = :live_trading, updated_at = :updated_at
		WHERE id = :id
	`, fromUser(u))
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, name, password_hash, theme, broker_key, broker_secret, live_trading, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
	if err != nil {
		return user.User{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, email, name, password_hash, theme, broker_key, broker_secret, live_trading, created_at, updated_at
		FROM users WHERE lower(email) = lower($1)
	`, email)
	if err != nil {
		return user.User{}, err
	}
	return row.toDomain(), nil
}

type subscriptionRow struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	Tier             string    `db:"tier"`
	Status           string    `db:"status"`
	CurrentPeriodEnd time.Time `db:"current_period_end"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (s *Store) UpsertSubscription(ctx context.Context, sub user.Subscription) (user.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, tier, status, current_period_end, created_at, updated_at)
		VALUES (:id, :user_id, :tier, :status, :current_period_end, :created_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE
		SET tier = EXCLUDED.tier, status = EXCLUDED.status,
		    current_period_end = EXCLUDED.current_period_end, updated_at = EXCLUDED.updated_at
	`, subscriptionRow{
		ID:               sub.ID,
		UserID:           sub.UserID,
		Tier:             string(sub.Tier),
		Status:           sub.Status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		CreatedAt:        sub.CreatedAt,
		UpdatedAt:        sub.UpdatedAt,
	})
	if err != nil {
		return user.Subscription{}, err
	}
	return sub, nil
}

func (s *Store) GetSubscription(ctx context.Context, userID string) (user.Subscription, error) {
	var row subscriptionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, tier, status, current_period_end, created_at, updated_at
		FROM subscriptions WHERE user_id = $1
	`, userID)
	if err != nil {
		return user.Subscription{}, err
	}
	return user.Subscription{
		ID:               row.ID,
		UserID:           row.UserID,
		Tier:             user.Tier(row.Tier),
		Status:           row.Status,
		CurrentPeriodEnd: row.CurrentPeriodEnd,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

// --- AnalysisStore ----------------------------------------------------------

type analysisRow struct {
	ID               string          `db:"id"`
	Symbol           string          `db:"symbol"`
	Type             string          `db:"asset_type"`
	Recommendation   string          `db:"recommendation"`
	Confidence       int             `db:"confidence"`
	Reasoning        string          `db:"reasoning"`
	TechnicalScore   int             `db:"technical_score"`
	FundamentalScore sql.NullInt64   `db:"fundamental_score"`
	SentimentScore   int             `db:"sentiment_score"`
	RiskLevel        string          `db:"risk_level"`
	TargetPrice      sql.NullFloat64 `db:"target_price"`
	StopLoss         sql.NullFloat64 `db:"stop_loss"`
	DataSource       []byte          `db:"data_source"`
	CreatedAt        time.Time       `db:"created_at"`
	ExpiresAt        time.Time       `db:"expires_at"`
}

func (r analysisRow) toDomain() analysis.Record {
	rec := analysis.Record{
		ID:             r.ID,
		Symbol:         r.Symbol,
		Type:           asset.Type(r.Type),
		Recommendation: analysis.Recommendation(r.Recommendation),
		Confidence:     r.Confidence,
		Reasoning:      r.Reasoning,
		TechnicalScore: r.TechnicalScore,
		SentimentScore: r.SentimentScore,
		RiskLevel:      analysis.RiskLevel(r.RiskLevel),
		DataSource:     json.RawMessage(r.DataSource),
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
	}
	if r.FundamentalScore.Valid {
		v := int(r.FundamentalScore.Int64)
		rec.FundamentalScore = &v
	}
	if r.TargetPrice.Valid {
		v := r.TargetPrice.Float64
		rec.TargetPrice = &v
	}
	if r.StopLoss.Valid {
		v := r.StopLoss.Float64
		rec.StopLoss = &v
	}
	return rec
}

func fromAnalysis(rec analysis.Record) analysisRow {
	row := analysisRow{
		ID:             rec.ID,
		Symbol:         rec.Symbol,
		Type:           string(rec.Type),
		Recommendation: string(rec.Recommendation),
		Confidence:     rec.Confidence,
		Reasoning:      rec.Reasoning,
		TechnicalScore: rec.TechnicalScore,
		SentimentScore: rec.SentimentScore,
		RiskLevel:      string(rec.RiskLevel),
		DataSource:     []byte(rec.DataSource),
		CreatedAt:      rec.CreatedAt,
		ExpiresAt:      rec.ExpiresAt,
	}
	if rec.FundamentalScore != nil {
		row.FundamentalScore = sql.NullInt64{Int64: int64(*rec.FundamentalScore), Valid: true}
	}
	if rec.TargetPrice != nil {
		row.TargetPrice = sql.NullFloat64{Float64: *rec.TargetPrice, Valid: true}
	}
	if rec.StopLoss != nil {
		row.StopLoss = sql.NullFloat64{Float64: *rec.StopLoss, Valid: true}
	}
	return row
}

func (s *Store) UpsertAnalysis(ctx context.Context, rec analysis.Record) (analysis.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Symbol = asset.NormalizeSymbol(rec.Symbol)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO analyses (id, symbol, asset_type, recommendation, confidence, reasoning,
			technical_score, fundamental_score, sentiment_score, risk_level,
			target_price, stop_loss, data_source, created_at, expires_at)
		VALUES (:id, :symbol, :asset_type, :recommendation, :confidence, :reasoning,
			:technical_score, :fundamental_score, :sentiment_score, :risk_level,
			:target_price, :stop_loss, :data_source, :created_at, :expires_at)
		ON CONFLICT (symbol, asset_type) DO UPDATE
		SET recommendation = EXCLUDED.recommendation, confidence = EXCLUDED.confidence,
		    reasoning = EXCLUDED.reasoning, technical_score = EXCLUDED.technical_score,
		    fundamental_score = EXCLUDED.fundamental_score, sentiment_score = EXCLUDED.sentiment_score,
		    risk_level = EXCLUDED.risk_level, target_price = EXCLUDED.target_price,
		    stop_loss = EXCLUDED.stop_loss, data_source = EXCLUDED.data_source,
		    created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
	`, fromAnalysis(rec))
	if err != nil {
		return analysis.Record{}, err
	}
	return rec, nil
}

func (s *Store) GetAnalysis(ctx context.Context, symbol string, typ asset.Type) (analysis.Record, error) {
	var row analysisRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, symbol, asset_type, recommendation, confidence, reasoning,
			technical_score, fundamental_score, sentiment_score, risk_level,
			target_price, stop_loss, data_source, created_at, expires_at
		FROM analyses WHERE symbol = $1 AND asset_type = $2
	`, asset.NormalizeSymbol(symbol), string(typ))
	if err != nil {
		return analysis.Record{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListRecentAnalyses(ctx context.Context, limit int) ([]analysis.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []analysisRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, symbol, asset_type, recommendation, confidence, reasoning,
			technical_score, fundamental_score, sentiment_score, risk_level,
			target_price, stop_loss, data_source, created_at, expires_at
		FROM analyses ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	result := make([]analysis.Record, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- PortfolioStore ---------------------------------------------------------

type portfolioRow struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	CashBalance    float64   `db:"cash_balance"`
	InitialBalance float64   `db:"initial_balance"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (s *Store) CreatePortfolio(ctx context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO portfolios (id, user_id, cash_balance, initial_balance, created_at, updated_at)
		VALUES (:id, :user_id, :cash_balance, :initial_balance, :created_at, :updated_at)
	`, portfolioRow(p))
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	return p, nil
}

func (s *Store) UpdatePortfolio(ctx context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error) {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE portfolios SET cash_balance = $2, updated_at = $3 WHERE user_id = $1
	`, p.UserID, p.CashBalance, p.UpdatedAt)
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return portfolio.Portfolio{}, sql.ErrNoRows
	}
	return s.GetPortfolio(ctx, p.UserID)
}

func (s *Store) GetPortfolio(ctx context.Context, userID string) (portfolio.Portfolio, error) {
	var row portfolioRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, cash_balance, initial_balance, created_at, updated_at
		FROM portfolios WHERE user_id = $1
	`, userID)
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	return portfolio.Portfolio(row), nil
}

type tradeRow struct {
	ID          string          `db:"id"`
	UserID      string          `db:"user_id"`
	Symbol      string          `db:"symbol"`
	Type        string          `db:"asset_type"`
	Action      string          `db:"action"`
	Quantity    float64         `db:"quantity"`
	Price       float64         `db:"price"`
	TotalValue  float64         `db:"total_value"`
	Fee         float64         `db:"fee"`
	Status      string          `db:"status"`
	OrderType   string          `db:"order_type"`
	LimitPrice  sql.NullFloat64 `db:"limit_price"`
	StopPrice   sql.NullFloat64 `db:"stop_price"`
	TimeInForce string          `db:"time_in_force"`
	ExecutedAt  time.Time       `db:"executed_at"`
}

func (r tradeRow) toDomain() portfolio.Trade {
	t := portfolio.Trade{
		ID:          r.ID,
		UserID:      r.UserID,
		Symbol:      r.Symbol,
		Type:        asset.Type(r.Type),
		Action:      portfolio.Side(r.Action),
		Quantity:    r.Quantity,
		Price:       r.Price,
		TotalValue:  r.TotalValue,
		Fee:         r.Fee,
		Status:      portfolio.Status(r.Status),
		OrderType:   portfolio.OrderType(r.OrderType),
		TimeInForce: portfolio.TimeInForce(r.TimeInForce),
		ExecutedAt:  r.ExecutedAt,
	}
	if r.LimitPrice.Valid {
		v := r.LimitPrice.Float64
		t.LimitPrice = &v
	}
	if r.StopPrice.Valid {
		v := r.StopPrice.Float64
		t.StopPrice = &v
	}
	return t
}

func fromTrade(t portfolio.Trade) tradeRow {
	row := tradeRow{
		ID:          t.ID,
		UserID:      t.UserID,
		Symbol:      t.Symbol,
		Type:        string(t.Type),
		Action:      string(t.Action),
		Quantity:    t.Quantity,
		Price:       t.Price,
		TotalValue:  t.TotalValue,
		Fee:         t.Fee,
		Status:      string(t.Status),
		OrderType:   string(t.OrderType),
		TimeInForce: string(t.TimeInForce),
		ExecutedAt:  t.ExecutedAt,
	}
	if t.LimitPrice != nil {
		row.LimitPrice = sql.NullFloat64{Float64: *t.LimitPrice, Valid: true}
	}
	if t.StopPrice != nil {
		row.StopPrice = sql.NullFloat64{Float64: *t.StopPrice, Valid: true}
	}
	return row
}

const tradeColumns = `id, user_id, symbol, asset_type, action, quantity, price, total_value, fee,
	status, order_type, limit_price, stop_price, time_in_force, executed_at`

func (s *Store) CreateTrade(ctx context.Context, t portfolio.Trade) (portfolio.Trade, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Symbol = asset.NormalizeSymbol(t.Symbol)
	if t.ExecutedAt.IsZero() {
		t.ExecutedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO trades (id, user_id, symbol, asset_type, action, quantity, price, total_value, fee,
			status, order_type, limit_price, stop_price, time_in_force, executed_at)
		VALUES (:id, :user_id, :symbol, :asset_type, :action, :quantity, :price, :total_value, :fee,
			:status, :order_type, :limit_price, :stop_price, :time_in_force, :executed_at)
	`, fromTrade(t))
	if err != nil {
		return portfolio.Trade{}, err
	}
	return t, nil
}

func (s *Store) UpdateTrade(ctx context.Context, t portfolio.Trade) (portfolio.Trade, error) {
	result, err := s.db.NamedExecContext(ctx, `
		UPDATE trades
		SET price = :price, total_value = :total_value, fee = :fee, status = :status,
		    executed_at = :executed_at
		WHERE id = :id
	`, fromTrade(t))
	if err != nil {
		return portfolio.Trade{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return portfolio.Trade{}, sql.ErrNoRows
	}
	return s.GetTrade(ctx, t.ID)
}

func (s *Store) GetTrade(ctx context.Context, id string) (portfolio.Trade, error) {
	var row tradeRow
	err := s.db.GetContext(ctx, &row, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id)
	if err != nil {
		return portfolio.Trade{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListTrades(ctx context.Context, userID string) ([]portfolio.Trade, error) {
	var rows []tradeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+tradeColumns+` FROM trades WHERE user_id = $1 ORDER BY executed_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	result := make([]portfolio.Trade, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) ListTradesByStatus(ctx context.Context, status portfolio.Status) ([]portfolio.Trade, error) {
	var rows []tradeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+tradeColumns+` FROM trades WHERE status = $1 ORDER BY executed_at
	`, string(status))
	if err != nil {
		return nil, err
	}
	result := make([]portfolio.Trade, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

// --- WatchlistStore ---------------------------------------------------------

type watchlistRow struct {
	ID      string    `db:"id"`
	UserID  string    `db:"user_id"`
	Symbol  string    `db:"symbol"`
	Type    string    `db:"asset_type"`
	Name    string    `db:"name"`
	AddedAt time.Time `db:"added_at"`
}

func (s *Store) AddWatchlistItem(ctx context.Context, item watchlist.Item) (watchlist.Item, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Symbol = asset.NormalizeSymbol(item.Symbol)
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO watchlist_items (id, user_id, symbol, asset_type, name, added_at)
		VALUES (:id, :user_id, :symbol, :asset_type, :name, :added_at)
	`, watchlistRow{
		ID:      item.ID,
		UserID:  item.UserID,
		Symbol:  item.Symbol,
		Type:    string(item.Type),
		Name:    item.Name,
		AddedAt: item.AddedAt,
	})
	if err != nil {
		return watchlist.Item{}, err
	}
	return item, nil
}

func (s *Store) RemoveWatchlistItem(ctx context.Context, userID, symbol string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist_items WHERE user_id = $1 AND symbol = $2
	`, userID, asset.NormalizeSymbol(symbol))
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) ListWatchlist(ctx context.Context, userID string) ([]watchlist.Item, error) {
	var rows []watchlistRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, symbol, asset_type, name, added_at
		FROM watchlist_items WHERE user_id = $1 ORDER BY added_at
	`, userID)
	if err != nil {
		return nil, err
	}
	result := make([]watchlist.Item, 0, len(rows))
	for _, row := range rows {
		result = append(result, watchlist.Item{
			ID:      row.ID,
			UserID:  row.UserID,
			Symbol:  row.Symbol,
			Type:    asset.Type(row.Type),
			Name:    row.Name,
			AddedAt: row.AddedAt,
		})
	}
	return result, nil
}

// --- AlertStore -------------------------------------------------------------

type alertRow struct {
	ID          string       `db:"id"`
	UserID      string       `db:"user_id"`
	Symbol      string       `db:"symbol"`
	Type        string       `db:"asset_type"`
	Condition   string       `db:"condition"`
	TargetPrice float64      `db:"target_price"`
	Active      bool         `db:"active"`
	Triggered   bool         `db:"triggered"`
	TriggeredAt sql.NullTime `db:"triggered_at"`
	CreatedAt   time.Time    `db:"created_at"`
}

func (r alertRow) toDomain() alert.Alert {
	a := alert.Alert{
		ID:          r.ID,
		UserID:      r.UserID,
		Symbol:      r.Symbol,
		Type:        asset.Type(r.Type),
		Condition:   alert.Condition(r.Condition),
		TargetPrice: r.TargetPrice,
		Active:      r.Active,
		Triggered:   r.Triggered,
		CreatedAt:   r.CreatedAt,
	}
	if r.TriggeredAt.Valid {
		at := r.TriggeredAt.Time
		a.TriggeredAt = &at
	}
	return a
}

func fromAlert(a alert.Alert) alertRow {
	row := alertRow{
		ID:          a.ID,
		UserID:      a.UserID,
		Symbol:      a.Symbol,
		Type:        string(a.Type),
		Condition:   string(a.Condition),
		TargetPrice: a.TargetPrice,
		Active:      a.Active,
		Triggered:   a.Triggered,
		CreatedAt:   a.CreatedAt,
	}
	if a.TriggeredAt != nil {
		row.TriggeredAt = sql.NullTime{Time: *a.TriggeredAt, Valid: true}
	}
	return row
}

func (s *Store) CreateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Symbol = asset.NormalizeSymbol(a.Symbol)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO alerts (id, user_id, symbol, asset_type, condition, target_price, active, triggered, triggered_at, created_at)
		VALUES (:id, :user_id, :symbol, :asset_type, :condition, :target_price, :active, :triggered, :triggered_at, :created_at)
	`, fromAlert(a))
	if err != nil {
		return alert.Alert{}, err
	}
	return a, nil
}

func (s *Store) UpdateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error) {
	result, err := s.db.NamedExecContext(ctx, `
		UPDATE alerts
		SET condition = :condition, target_price = :target_price, active = :active,
		    triggered = :triggered, triggered_at = :triggered_at
		WHERE id = :id
	`, fromAlert(a))
	if err != nil {
		return alert.Alert{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return alert.Alert{}, sql.ErrNoRows
	}
	return s.GetAlert(ctx, a.ID)
}

func (s *Store) GetAlert(ctx context.Context, id string) (alert.Alert, error) {
	var row alertRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, symbol, asset_type, condition, target_price, active, triggered, triggered_at, created_at
		FROM alerts WHERE id = $1
	`, id)
	if err != nil {
		return alert.Alert{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListAlerts(ctx context.Context, userID string) ([]alert.Alert, error) {
	var rows []alertRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, symbol, asset_type, condition, target_price, active, triggered, triggered_at, created_at
		FROM alerts WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	result := make([]alert.Alert, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) ListActiveAlerts(ctx context.Context) ([]alert.Alert, error) {
	var rows []alertRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, symbol, asset_type, condition, target_price, active, triggered, triggered_at, created_at
		FROM alerts WHERE active AND NOT triggered
	`)
	if err != nil {
		return nil, err
	}
	result := make([]alert.Alert, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- NotificationStore ------------------------------------------------------

type notificationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Type      string    `db:"type"`
	Data      []byte    `db:"data"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Store) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	dataJSON, err := json.Marshal(n.Data)
	if err != nil {
		return notification.Notification{}, err
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, data, read, created_at)
		VALUES (:id, :user_id, :title, :message, :type, :data, :read, :created_at)
	`, notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Data:      dataJSON,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, data, read, created_at
		FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC`

	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	result := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		n := notification.Notification{
			ID:        row.ID,
			UserID:    row.UserID,
			Title:     row.Title,
			Message:   row.Message,
			Type:      row.Type,
			Read:      row.Read,
			CreatedAt: row.CreatedAt,
		}
		if len(row.Data) > 0 {
			_ = json.Unmarshal(row.Data, &n.Data)
		}
		result = append(result, n)
	}
	return result, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	return err
}

// --- ChatStore --------------------------------------------------------------

type chatRow struct {
	ID        string        `db:"id"`
	UserID    string        `db:"user_id"`
	Role      string        `db:"role"`
	Content   string        `db:"content"`
	Feedback  sql.NullInt64 `db:"feedback"`
	CreatedAt time.Time     `db:"created_at"`
}

func (s *Store) CreateChatMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	row := chatRow{
		ID:        m.ID,
		UserID:    m.UserID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.Feedback != nil {
		row.Feedback = sql.NullInt64{Int64: int64(*m.Feedback), Valid: true}
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, role, content, feedback, created_at)
		VALUES (:id, :user_id, :role, :content, :feedback, :created_at)
	`, row)
	if err != nil {
		return chat.Message{}, err
	}
	return m, nil
}

func (s *Store) ListChatMessages(ctx context.Context, userID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []chatRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, role, content, feedback, created_at FROM (
			SELECT id, user_id, role, content, feedback, created_at
			FROM chat_messages WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
		) recent ORDER BY created_at
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	result := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		m := chat.Message{
			ID:        row.ID,
			UserID:    row.UserID,
			Role:      chat.Role(row.Role),
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
		}
		if row.Feedback.Valid {
			v := int(row.Feedback.Int64)
			m.Feedback = &v
		}
		result = append(result, m)
	}
	return result, nil
}

func (s *Store) SetChatFeedback(ctx context.Context, id string, feedback int) error {
	result, err := s.db.ExecContext(ctx, `UPDATE chat_messages SET feedback = $2 WHERE id = $1`, id, feedback)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- RecommendationStore ----------------------------------------------------

type recommendationRow struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	Symbol     string    `db:"symbol"`
	Type       string    `db:"asset_type"`
	Action     string    `db:"action"`
	Confidence int       `db:"confidence"`
	Reasoning  string    `db:"reasoning"`
	Viewed     bool      `db:"viewed"`
	CreatedAt  time.Time `db:"created_at"`
}

func (s *Store) CreateRecommendation(ctx context.Context, r recommendation.Recommendation) (recommendation.Recommendation, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Symbol = asset.NormalizeSymbol(r.Symbol)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO recommendations (id, user_id, symbol, asset_type, action, confidence, reasoning, viewed, created_at)
		VALUES (:id, :user_id, :symbol, :asset_type, :action, :confidence, :reasoning, :viewed, :created_at)
	`, recommendationRow{
		ID:         r.ID,
		UserID:     r.UserID,
		Symbol:     r.Symbol,
		Type:       string(r.Type),
		Action:     string(r.Action),
		Confidence: r.Confidence,
		Reasoning:  r.Reasoning,
		Viewed:     r.Viewed,
		CreatedAt:  r.CreatedAt,
	})
	if err != nil {
		return recommendation.Recommendation{}, err
	}
	return r, nil
}

func (s *Store) ListRecommendations(ctx context.Context, userID string, unviewedOnly bool) ([]recommendation.Recommendation, error) {
	query := `
		SELECT id, user_id, symbol, asset_type, action, confidence, reasoning, viewed, created_at
		FROM recommendations WHERE user_id = $1`
	if unviewedOnly {
		query += ` AND NOT viewed`
	}
	query += ` ORDER BY created_at DESC`

	var rows []recommendationRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	result := make([]recommendation.Recommendation, 0, len(rows))
	for _, row := range rows {
		result = append(result, recommendation.Recommendation{
			ID:         row.ID,
			UserID:     row.UserID,
			Symbol:     row.Symbol,
			Type:       asset.Type(row.Type),
			Action:     analysis.Recommendation(row.Action),
			Confidence: row.Confidence,
			Reasoning:  row.Reasoning,
			Viewed:     row.Viewed,
			CreatedAt:  row.CreatedAt,
		})
	}
	return result, nil
}

func (s *Store) MarkRecommendationViewed(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE recommendations SET viewed = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
