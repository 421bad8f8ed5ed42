package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradeGate/internal/domain"
	"tradeGate/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.TraderStateRepository and ports.AttemptRecorder using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository: %w", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/tradegate.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writers; per-identity locking happens above this layer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", ports.Fields{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trader_states (
		identity TEXT PRIMARY KEY,
		risk_per_trade REAL NOT NULL,
		max_position_size REAL NOT NULL,
		min_confidence REAL NOT NULL,
		stop_loss_pct REAL NOT NULL,
		take_profit_pct REAL NOT NULL,
		min_trade_interval_seconds REAL NOT NULL,
		daily_pnl_stop REAL NOT NULL,
		consecutive_loss_stop INTEGER NOT NULL,
		mode TEXT NOT NULL,
		daily_pnl REAL NOT NULL DEFAULT 0,
		consecutive_losses INTEGER NOT NULL DEFAULT 0,
		last_trade_at TIMESTAMP DEFAULT NULL,
		total_trades INTEGER NOT NULL DEFAULT 0,
		total_pnl REAL NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attempt_records (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		size REAL NOT NULL,
		price REAL NOT NULL,
		result TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		pnl REAL NOT NULL DEFAULT 0,
		mode TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempt_records_identity_created ON attempt_records (identity, created_at);
	CREATE INDEX IF NOT EXISTS idx_attempt_records_result ON attempt_records (result);
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

// --- TraderStateRepository Implementation ---

const stateColumns = `identity, risk_per_trade, max_position_size, min_confidence, stop_loss_pct,
	       take_profit_pct, min_trade_interval_seconds, daily_pnl_stop, consecutive_loss_stop, mode,
	       daily_pnl, consecutive_losses, last_trade_at, total_trades, total_pnl, updated_at`

// SaveState inserts or replaces the state for its identity.
func (r *Repository) SaveState(ctx context.Context, st domain.TraderRiskState) error {
	const query = `
	INSERT INTO trader_states (` + stateColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(identity) DO UPDATE SET
		risk_per_trade = excluded.risk_per_trade,
		max_position_size = excluded.max_position_size,
		min_confidence = excluded.min_confidence,
		stop_loss_pct = excluded.stop_loss_pct,
		take_profit_pct = excluded.take_profit_pct,
		min_trade_interval_seconds = excluded.min_trade_interval_seconds,
		daily_pnl_stop = excluded.daily_pnl_stop,
		consecutive_loss_stop = excluded.consecutive_loss_stop,
		mode = excluded.mode,
		daily_pnl = excluded.daily_pnl,
		consecutive_losses = excluded.consecutive_losses,
		last_trade_at = excluded.last_trade_at,
		total_trades = excluded.total_trades,
		total_pnl = excluded.total_pnl,
		updated_at = excluded.updated_at`

	var lastTradeAt sql.NullTime
	if !st.LastTradeAt.IsZero() {
		lastTradeAt = sql.NullTime{Time: st.LastTradeAt.UTC(), Valid: true}
	}
	updatedAt := st.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		st.Identity, st.RiskPerTrade, st.MaxPositionSize, st.MinConfidence, st.StopLossPct,
		st.TakeProfitPct, st.MinTradeInterval.Seconds(), st.DailyPnLStop, st.ConsecutiveLossStop, string(st.Mode),
		st.DailyPnL, st.ConsecutiveLosses, lastTradeAt, st.TotalTrades, st.TotalPnL, updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save state for identity %s: %w: %w", st.Identity, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Trader state saved", ports.Fields{"identity": st.Identity, "totalTrades": st.TotalTrades})
	return nil
}

// LoadState retrieves the state for an identity, or nil if none is stored.
func (r *Repository) LoadState(ctx context.Context, identity string) (*domain.TraderRiskState, error) {
	const query = `SELECT ` + stateColumns + ` FROM trader_states WHERE identity = ?`

	st, err := scanState(r.db.QueryRowContext(ctx, query, identity))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "No stored state for identity", ports.Fields{"identity": identity})
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query state for identity %s: %w: %w", identity, ports.ErrQueryFailed, err)
	}
	return st, nil
}

// ListStates returns every stored state ordered by identity.
func (r *Repository) ListStates(ctx context.Context) ([]domain.TraderRiskState, error) {
	const query = `SELECT ` + stateColumns + ` FROM trader_states ORDER BY identity`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trader states: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	states := make([]domain.TraderRiskState, 0)
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trader state: %w: %w", ports.ErrQueryFailed, err)
		}
		states = append(states, *st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trader state rows: %w", err)
	}
	return states, nil
}

// --- AttemptRecorder Implementation ---

// RecordAttempt stores one attempt record. Records are append-only.
func (r *Repository) RecordAttempt(ctx context.Context, rec domain.AttemptRecord) error {
	const query = `
	INSERT INTO attempt_records (id, identity, symbol, side, size, price, result, detail, pnl, mode, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Identity, rec.Symbol, string(rec.Side), rec.Size, rec.Price,
		string(rec.Result), rec.Detail, rec.PnL, string(rec.Mode), rec.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert attempt %s: %w: %w", rec.ID, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Attempt recorded", ports.Fields{"attempt": rec.ID, "identity": rec.Identity, "result": rec.Result})
	return nil
}

// ListAttempts returns the most recent attempts of an identity, newest first.
// An empty identity lists attempts of every identity.
func (r *Repository) ListAttempts(ctx context.Context, identity string, limit int) ([]domain.AttemptRecord, error) {
	const query = `
	SELECT id, identity, symbol, side, size, price, result, detail, pnl, mode, created_at
	FROM attempt_records
	WHERE (? = '' OR identity = ?)
	ORDER BY created_at DESC LIMIT ?`

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, query, identity, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	records := make([]domain.AttemptRecord, 0)
	for rows.Next() {
		rec, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt record: %w: %w", ports.ErrQueryFailed, err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempt rows: %w", err)
	}
	return records, nil
}

// CountByResult returns how many attempts ended in each result kind.
func (r *Repository) CountByResult(ctx context.Context) (map[domain.ResultKind]int, error) {
	const query = `SELECT result, COUNT(*) FROM attempt_records GROUP BY result`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	counts := make(map[domain.ResultKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan attempt count: %w", err)
		}
		counts[domain.ResultKind(kind)] = n
	}
	return counts, rows.Err()
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanState(s scanner) (*domain.TraderRiskState, error) {
	st := &domain.TraderRiskState{}
	var intervalSeconds float64
	var mode string
	var lastTradeAt sql.NullTime
	err := s.Scan(
		&st.Identity, &st.RiskPerTrade, &st.MaxPositionSize, &st.MinConfidence, &st.StopLossPct,
		&st.TakeProfitPct, &intervalSeconds, &st.DailyPnLStop, &st.ConsecutiveLossStop, &mode,
		&st.DailyPnL, &st.ConsecutiveLosses, &lastTradeAt, &st.TotalTrades, &st.TotalPnL, &st.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	st.MinTradeInterval = time.Duration(intervalSeconds * float64(time.Second))
	st.Mode = domain.ParseMode(mode)
	if lastTradeAt.Valid {
		st.LastTradeAt = lastTradeAt.Time
	}
	return st, nil
}

func scanAttempt(s scanner) (domain.AttemptRecord, error) {
	var rec domain.AttemptRecord
	var side, result, mode string
	err := s.Scan(&rec.ID, &rec.Identity, &rec.Symbol, &side, &rec.Size, &rec.Price,
		&result, &rec.Detail, &rec.PnL, &mode, &rec.Timestamp)
	if err != nil {
		return rec, err
	}
	rec.Side = domain.OrderSide(side)
	rec.Result = domain.ResultKind(result)
	rec.Mode = domain.ParseMode(mode)
	return rec, nil
}
