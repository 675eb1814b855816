// Package sqlite stores analyzed news, generated signals and executor
// results in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.NewsProvider, ports.SignalRepository and
// ports.TradeResultRepository on SQLite.
type Repository struct {
	db           *sql.DB
	logger       ports.Logger
	minImpact    int
	maxNewsItems int
	now          func() time.Time
}

var _ ports.NewsProvider = (*Repository)(nil)
var _ ports.SignalRepository = (*Repository)(nil)
var _ ports.TradeResultRepository = (*Repository)(nil)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath       string
	MinImpact    int // news impact floor for FetchRecentNews, default 3
	MaxNewsItems int // result cap for FetchRecentNews, default 10
	Logger       ports.Logger
}

// NewRepository opens (creating if needed) the database and bootstraps the schema.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for SQLite repository", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/fx_signal_bot.db"
	}
	if cfg.MinImpact == 0 {
		cfg.MinImpact = 3
	}
	if cfg.MaxNewsItems == 0 {
		cfg.MaxNewsItems = 10
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the trade and monitor cycles.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{
		db:           db,
		logger:       cfg.Logger,
		minImpact:    cfg.MinImpact,
		maxNewsItems: cfg.MaxNewsItems,
		now:          time.Now,
	}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS news (
		news_id TEXT PRIMARY KEY,
		source TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMP NULL,
		collected_at TIMESTAMP NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		sentiment INTEGER NOT NULL,
		impact_usdjpy INTEGER NOT NULL,
		impact_eurjpy INTEGER NOT NULL,
		time_horizon TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		signal_label TEXT NOT NULL DEFAULT '',
		rule_version TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		signal TEXT NOT NULL,
		confidence REAL NOT NULL,
		reason TEXT NOT NULL,
		rule_version TEXT NOT NULL,
		news_count INTEGER NOT NULL DEFAULT 0,
		avg_sentiment REAL NOT NULL DEFAULT 0,
		avg_impact REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		size INTEGER NOT NULL,
		success INTEGER NOT NULL,
		order_id TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		dry_run INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_news_collected_at ON news (collected_at);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol_created ON signals (symbol, created_at);
	CREATE INDEX IF NOT EXISTS idx_trade_results_symbol_created ON trade_results (symbol, created_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// --- NewsProvider implementation ---

// SaveNewsItem inserts or replaces one analyzed news item.
func (r *Repository) SaveNewsItem(ctx context.Context, item *domain.NewsItem) error {
	const query = `
	INSERT OR REPLACE INTO news
	(news_id, source, title, url, published_at, collected_at, topic, sentiment,
	 impact_usdjpy, impact_eurjpy, time_horizon, summary, signal_label, rule_version)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var publishedAt sql.NullTime
	if !item.PublishedAt.IsZero() {
		publishedAt = sql.NullTime{Time: item.PublishedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		item.NewsID, item.Source, item.Title, item.URL, publishedAt, item.CollectedAt,
		item.Topic, item.Sentiment, item.ImpactUSDJPY, item.ImpactEURJPY,
		string(item.TimeHorizon), item.Summary, string(item.Label), item.RuleVersion)
	if err != nil {
		return fmt.Errorf("%w: failed to insert news item %s: %w", ports.ErrQueryFailed, item.NewsID, err)
	}
	return nil
}

// FetchRecentNews returns the items collected within the lookback window
// whose symbol-relevant impact clears the configured floor, newest first.
func (r *Repository) FetchRecentNews(ctx context.Context, symbol string, lookback time.Duration) ([]domain.NewsItem, error) {
	query := fmt.Sprintf(`
	SELECT news_id, source, title, url, published_at, collected_at, topic, sentiment,
	       impact_usdjpy, impact_eurjpy, time_horizon, summary, signal_label, rule_version
	FROM news
	WHERE collected_at >= ? AND %s >= ?
	ORDER BY collected_at DESC
	LIMIT ?`, impactColumn(symbol))

	cutoff := r.now().UTC().Add(-lookback)
	rows, err := r.db.QueryContext(ctx, query, cutoff, r.minImpact, r.maxNewsItems)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query news for %s: %w", ports.ErrQueryFailed, symbol, err)
	}
	defer rows.Close()

	var items []domain.NewsItem
	for rows.Next() {
		item, err := scanNewsItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan news row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating news rows: %w", err)
	}
	r.logger.Debug(ctx, "Fetched recent news", map[string]interface{}{
		"symbol": symbol,
		"count":  len(items),
	})
	return items, nil
}

// impactColumn maps a symbol to its impact column. Only the two known
// columns can be returned, so the value is safe to interpolate.
func impactColumn(symbol string) string {
	if strings.HasPrefix(symbol, "EUR") {
		return "impact_eurjpy"
	}
	return "impact_usdjpy"
}

func scanNewsItem(s scanner) (domain.NewsItem, error) {
	var item domain.NewsItem
	var publishedAt sql.NullTime
	var horizon, label string
	err := s.Scan(&item.NewsID, &item.Source, &item.Title, &item.URL, &publishedAt,
		&item.CollectedAt, &item.Topic, &item.Sentiment, &item.ImpactUSDJPY,
		&item.ImpactEURJPY, &horizon, &item.Summary, &label, &item.RuleVersion)
	if err != nil {
		return domain.NewsItem{}, err
	}
	if publishedAt.Valid {
		item.PublishedAt = publishedAt.Time
	}
	item.TimeHorizon = domain.TimeHorizon(horizon)
	item.Label = domain.NewsLabel(label)
	return item, nil
}

// --- SignalRepository implementation ---

// SaveSignal stores a generated signal under a timestamp_symbol document ID.
func (r *Repository) SaveSignal(ctx context.Context, sig *domain.Signal) (string, error) {
	const query = `
	INSERT OR REPLACE INTO signals
	(id, symbol, signal, confidence, reason, rule_version, news_count, avg_sentiment, avg_impact, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id := fmt.Sprintf("%s_%s", sig.Timestamp.UTC().Format("20060102_150405"), sig.Symbol)
	_, err := r.db.ExecContext(ctx, query,
		id, sig.Symbol, string(sig.Type), sig.Confidence, sig.Reason, sig.RuleVersion,
		sig.News.Count, sig.News.AvgSentiment, sig.News.AvgImpact, sig.Timestamp.UTC())
	if err != nil {
		return "", fmt.Errorf("%w: failed to insert signal for %s: %w", ports.ErrQueryFailed, sig.Symbol, err)
	}
	r.logger.Debug(ctx, "Signal saved", map[string]interface{}{"id": id})
	return id, nil
}

// RecentSignals returns the latest stored signals for a symbol, newest first.
// Only the persisted summary fields are reconstructed.
func (r *Repository) RecentSignals(ctx context.Context, symbol string, limit int) ([]*domain.Signal, error) {
	const query = `
	SELECT symbol, signal, confidence, reason, rule_version, news_count, avg_sentiment, avg_impact, created_at
	FROM signals
	WHERE symbol = ?
	ORDER BY created_at DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query signals for %s: %w", ports.ErrQueryFailed, symbol, err)
	}
	defer rows.Close()

	var signals []*domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal rows: %w", err)
	}
	return signals, nil
}

func scanSignal(s scanner) (*domain.Signal, error) {
	sig := &domain.Signal{}
	var sigType string
	err := s.Scan(&sig.Symbol, &sigType, &sig.Confidence, &sig.Reason, &sig.RuleVersion,
		&sig.News.Count, &sig.News.AvgSentiment, &sig.News.AvgImpact, &sig.Timestamp)
	if err != nil {
		return nil, err
	}
	sig.Type = domain.SignalType(sigType)
	return sig, nil
}

// --- TradeResultRepository implementation ---

// SaveTradeResult stores one executor outcome and returns its row ID.
func (r *Repository) SaveTradeResult(ctx context.Context, res *domain.TradeResult) (int64, error) {
	const query = `
	INSERT INTO trade_results (symbol, action, size, success, order_id, reason, dry_run, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		res.Symbol, string(res.Action), res.Size, res.Success, res.OrderID, res.Reason,
		res.DryRun, res.Timestamp.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert trade result for %s: %w", ports.ErrQueryFailed, res.Symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade result: %w", err)
	}
	return id, nil
}

// RecentTradeResults returns the latest results for a symbol, newest first.
func (r *Repository) RecentTradeResults(ctx context.Context, symbol string, limit int) ([]*domain.TradeResult, error) {
	const query = `
	SELECT symbol, action, size, success, order_id, reason, dry_run, created_at
	FROM trade_results
	WHERE symbol = ?
	ORDER BY created_at DESC, id DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query trade results for %s: %w", ports.ErrQueryFailed, symbol, err)
	}
	defer rows.Close()

	var results []*domain.TradeResult
	for rows.Next() {
		res, err := scanTradeResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade result row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade result rows: %w", err)
	}
	return results, nil
}

func scanTradeResult(s scanner) (*domain.TradeResult, error) {
	res := &domain.TradeResult{}
	var action string
	err := s.Scan(&res.Symbol, &action, &res.Size, &res.Success, &res.OrderID,
		&res.Reason, &res.DryRun, &res.Timestamp)
	if err != nil {
		return nil, err
	}
	res.Action = domain.TradeAction(action)
	return res, nil
}
