// Package session tracks each user's rolling trading session: win/loss
// counters, session pnl, drawdown from the session peak and trade cadence.
// The active analyzer reads these stats to judge revenge and tilt risk.
//
// State lives in memory and is optionally mirrored to Redis so a restart does
// not wipe sessions mid-day. Redis failures degrade gracefully to
// memory-only operation.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"trading-psychology-engine/internal/detectors"
)

// ClosedTrade is one finished trade reported into the session.
type ClosedTrade struct {
	Symbol     string    `json:"symbol"`
	ClosedAt   time.Time `json:"closed_at"`
	PnLPercent float64   `json:"pnl_pct"`
	Size       float64   `json:"size"`
}

// maxRecentTrades bounds the per-user trade ring.
const maxRecentTrades = 100

// sessionState is the persisted per-user state.
type sessionState struct {
	StartedAt  time.Time     `json:"started_at"`
	Trades     []ClosedTrade `json:"trades"`
	Wins       int           `json:"wins"`
	Losses     int           `json:"losses"`
	PnLPercent float64       `json:"pnl_pct"`
	PeakPnLPct float64       `json:"peak_pnl_pct"`
}

// Tracker holds all live sessions. Safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	rdb *redis.Client // nil means memory-only
	ttl time.Duration
	log zerolog.Logger
}

// NewTracker builds a session tracker. rdb may be nil to disable
// persistence; ttl bounds how long an idle session survives in Redis.
func NewTracker(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Tracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tracker{
		sessions: make(map[string]*sessionState),
		rdb:      rdb,
		ttl:      ttl,
		log:      log.With().Str("component", "session").Logger(),
	}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s:state", userID)
}

// RecordTrade adds a closed trade to the user's session, starting one if
// needed.
func (t *Tracker) RecordTrade(ctx context.Context, userID string, trade ClosedTrade) {
	t.mu.Lock()
	s := t.sessions[userID]
	if s == nil {
		s = t.restore(ctx, userID)
		if s == nil {
			s = &sessionState{StartedAt: trade.ClosedAt}
		}
		t.sessions[userID] = s
	}

	s.Trades = append(s.Trades, trade)
	if len(s.Trades) > maxRecentTrades {
		s.Trades = s.Trades[len(s.Trades)-maxRecentTrades:]
	}
	switch {
	case trade.PnLPercent > 0:
		s.Wins++
	case trade.PnLPercent < 0:
		s.Losses++
	}
	s.PnLPercent += trade.PnLPercent
	if s.PnLPercent > s.PeakPnLPct {
		s.PeakPnLPct = s.PnLPercent
	}
	snapshot := *s
	t.mu.Unlock()

	t.persist(ctx, userID, &snapshot)
}

// Stats assembles the detector-facing view of the user's session: the stats
// block, the most recent losing trade and the average position size. Returns
// a nil stats block when the user has no session.
func (t *Tracker) Stats(ctx context.Context, userID string, now time.Time) (*detectors.SessionStats, *detectors.TradeInfo, float64) {
	t.mu.Lock()
	s := t.sessions[userID]
	if s == nil {
		if s = t.restore(ctx, userID); s != nil {
			t.sessions[userID] = s
		}
	}
	t.mu.Unlock()
	if s == nil {
		return nil, nil, 0
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	total := s.Wins + s.Losses
	winRate := 0.0
	if total > 0 {
		winRate = float64(s.Wins) / float64(total)
	}

	lastHour := 0
	var sizeSum float64
	var lastLoss *detectors.TradeInfo
	for i := range s.Trades {
		tr := s.Trades[i]
		if now.Sub(tr.ClosedAt) <= time.Hour {
			lastHour++
		}
		sizeSum += tr.Size
		if tr.PnLPercent < 0 {
			lastLoss = &detectors.TradeInfo{
				Symbol:     tr.Symbol,
				ClosedAt:   tr.ClosedAt,
				PnLPercent: tr.PnLPercent,
			}
		}
	}

	hours := now.Sub(s.StartedAt).Hours()
	if hours < 1 {
		hours = 1
	}

	avgSize := 0.0
	if len(s.Trades) > 0 {
		avgSize = sizeSum / float64(len(s.Trades))
	}

	stats := &detectors.SessionStats{
		DrawdownPercent:  s.PeakPnLPct - s.PnLPercent,
		TradesLastHour:   lastHour,
		AvgTradesPerHour: float64(len(s.Trades)) / hours,
		WinRate:          winRate,
		TradeCount:       total,
		PnLPercent:       s.PnLPercent,
	}
	return stats, lastLoss, avgSize
}

// Reset drops the user's session, both in memory and in Redis.
func (t *Tracker) Reset(ctx context.Context, userID string) {
	t.mu.Lock()
	delete(t.sessions, userID)
	t.mu.Unlock()

	if t.rdb == nil {
		return
	}
	if err := t.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
		t.log.Warn().Err(err).Str("user_id", userID).Msg("failed to drop session from redis")
	}
}

// persist mirrors the session to Redis. Failures are logged and ignored.
func (t *Tracker) persist(ctx context.Context, userID string, s *sessionState) {
	if t.rdb == nil {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		t.log.Warn().Err(err).Str("user_id", userID).Msg("failed to marshal session")
		return
	}
	if err := t.rdb.Set(ctx, sessionKey(userID), raw, t.ttl).Err(); err != nil {
		t.log.Warn().Err(err).Str("user_id", userID).Msg("failed to persist session to redis")
	}
}

// restore loads a session from Redis after a restart. Caller holds the lock.
func (t *Tracker) restore(ctx context.Context, userID string) *sessionState {
	if t.rdb == nil {
		return nil
	}
	raw, err := t.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			t.log.Warn().Err(err).Str("user_id", userID).Msg("failed to restore session from redis")
		}
		return nil
	}
	var s sessionState
	if err := json.Unmarshal(raw, &s); err != nil {
		t.log.Warn().Err(err).Str("user_id", userID).Msg("corrupt session state in redis")
		return nil
	}
	return &s
}
