package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trading-psychology-engine/internal/analyzer"
	"trading-psychology-engine/internal/detectors"
	"trading-psychology-engine/internal/nlp"
)

// SaveTextSignal stores one analyzed note.
func (db *DB) SaveTextSignal(ctx context.Context, userID string, res *nlp.Result) error {
	emotions, err := json.Marshal(res.Emotions)
	if err != nil {
		return fmt.Errorf("failed to marshal emotions: %w", err)
	}
	warnings, err := json.Marshal(res.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO text_signals (user_id, text, language, sentiment_score, sentiment_label, quality_score, emotions, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		userID, res.Text, res.Language, res.SentimentScore, res.SentimentLabel, res.QualityScore, emotions, warnings,
	)
	if err != nil {
		return fmt.Errorf("failed to save text signal: %w", err)
	}
	return nil
}

// SaveAlert stores one behavioral alert.
func (db *DB) SaveAlert(ctx context.Context, userID, symbol string, a *detectors.Alert) error {
	reasons, err := json.Marshal(a.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO behavior_alerts (id, user_id, symbol, alert_type, severity, score, reasons, recommendation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		a.ID, userID, symbol, string(a.Type), a.Severity.String(), a.Score, reasons, a.Recommendation, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// SaveReport stores one behavior report with the full report body as JSONB.
func (db *DB) SaveReport(ctx context.Context, report *analyzer.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO behavior_reports (id, user_id, period, risk_score, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		report.ID, report.UserID, report.Period, report.RiskScore, body, report.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// StoredAlert is one persisted alert row.
type StoredAlert struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Symbol         string    `json:"symbol"`
	AlertType      string    `json:"alert_type"`
	Severity       string    `json:"severity"`
	Score          float64   `json:"score"`
	Reasons        []string  `json:"reasons"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecentAlerts returns the user's newest alerts, newest first.
func (db *DB) RecentAlerts(ctx context.Context, userID string, limit int) ([]StoredAlert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, COALESCE(symbol, ''), alert_type, severity, score, reasons, COALESCE(recommendation, ''), created_at
		FROM behavior_alerts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []StoredAlert
	for rows.Next() {
		var a StoredAlert
		var reasons []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.Symbol, &a.AlertType, &a.Severity, &a.Score, &reasons, &a.Recommendation, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if len(reasons) > 0 {
			if err := json.Unmarshal(reasons, &a.Reasons); err != nil {
				db.log.Warn().Err(err).Str("alert_id", a.ID).Msg("corrupt reasons payload")
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
