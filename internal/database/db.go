// Package database persists analysis artifacts to PostgreSQL: analyzed text
// signals, behavioral alerts and periodic behavior reports. Persistence is
// optional; the engine runs fully in memory when no database is configured.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// NewDB creates a new database connection
func NewDB(cfg Config, log zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	db := &DB{Pool: pool, log: log.With().Str("component", "database").Logger()}
	db.log.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.Info().Msg("database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS text_signals (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			text TEXT NOT NULL,
			language VARCHAR(8) NOT NULL,
			sentiment_score DECIMAL(4, 3) NOT NULL,
			sentiment_label VARCHAR(10) NOT NULL,
			quality_score DECIMAL(4, 3) NOT NULL,
			emotions JSONB,
			warnings JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_text_signals_user ON text_signals(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_text_signals_created_at ON text_signals(created_at)`,

		`CREATE TABLE IF NOT EXISTS behavior_alerts (
			id UUID PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			symbol VARCHAR(20),
			alert_type VARCHAR(20) NOT NULL,
			severity VARCHAR(10) NOT NULL,
			score DECIMAL(5, 1) NOT NULL,
			reasons JSONB,
			recommendation TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_behavior_alerts_user ON behavior_alerts(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_behavior_alerts_type ON behavior_alerts(alert_type)`,
		`CREATE INDEX IF NOT EXISTS idx_behavior_alerts_created_at ON behavior_alerts(created_at)`,

		`CREATE TABLE IF NOT EXISTS behavior_reports (
			id UUID PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			period VARCHAR(32) NOT NULL,
			risk_score DECIMAL(5, 1) NOT NULL,
			report JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_behavior_reports_user ON behavior_reports(user_id)`,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	db.log.Info().Msg("database migrations complete")
	return nil
}
