package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trading-psychology-engine/internal/analyzer"
	"trading-psychology-engine/internal/cache"
	"trading-psychology-engine/internal/detectors"
	"trading-psychology-engine/internal/events"
	"trading-psychology-engine/internal/logging"
	"trading-psychology-engine/internal/market"
	"trading-psychology-engine/internal/nlp"
	"trading-psychology-engine/internal/session"
)

const persistTimeout = 5 * time.Second

// analyzeTextRequest is the body of POST /api/nlp/analyze.
type analyzeTextRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text" binding:"required"`
}

func (s *Server) handleAnalyzeText(c *gin.Context) {
	var req analyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	var result *nlp.Result
	if s.cache != nil {
		var cached nlp.Result
		if err := s.cache.GetJSON(c.Request.Context(), cache.TextResultKey(req.Text), &cached); err == nil {
			result = &cached
		}
	}
	if result == nil {
		result = s.engine.Analyze(c.Request.Context(), req.Text)
		if s.cache != nil {
			s.cache.SetJSON(c.Request.Context(), cache.TextResultKey(req.Text), result, cache.TextResultTTL)
		}
	}

	s.eventBus.Publish(events.Event{
		Type: events.EventTextAnalyzed,
		Data: map[string]interface{}{
			"user_id":         req.UserID,
			"language":        result.Language,
			"sentiment_score": result.SentimentScore,
			"quality_score":   result.QualityScore,
		},
	})
	s.persistTextSignal(req.UserID, result)

	successResponse(c, result)
}

// evaluateRequest is the body of POST /api/analysis/evaluate. Candles are
// optional; when present and no precomputed market context is given, the
// market snapshot is derived from them.
type evaluateRequest struct {
	analyzer.TradeContext
	Candles      []market.Candle `json:"candles,omitempty"`
	CurrentPrice float64         `json:"current_price,omitempty"`
}

func (s *Server) handleEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.UserID == "" {
		errorResponse(c, http.StatusBadRequest, "user_id is required")
		return
	}

	tc := req.TradeContext
	if tc.Market == nil && len(req.Candles) > 0 {
		tc.Market = market.Analyze(tc.Symbol, req.Candles, req.CurrentPrice).DetectorContext()
	} else if tc.Market == nil && s.cache != nil && tc.Symbol != "" {
		// No candles supplied: fall back to the last cached snapshot.
		var snap market.Snapshot
		if err := s.cache.GetJSON(c.Request.Context(), cache.SnapshotKey(tc.Symbol), &snap); err == nil {
			tc.Market = snap.DetectorContext()
		}
	}
	if s.tracker != nil && tc.Session == nil {
		now := tc.EntryTime
		if now.IsZero() {
			now = time.Now()
		}
		stats, lastLoss, avgSize := s.tracker.Stats(c.Request.Context(), tc.UserID, now)
		tc.Session = stats
		if tc.LastLoss == nil {
			tc.LastLoss = lastLoss
		}
		if tc.AvgPositionSize == 0 {
			tc.AvgPositionSize = avgSize
		}
	}

	verdict := s.active.Evaluate(c.Request.Context(), tc)

	if tc.Notes != "" {
		s.persistTextSignal(tc.UserID, verdict.Notes)
	}
	s.persistAlerts(tc.UserID, tc.Symbol, verdict.Alerts)

	successResponse(c, verdict)
}

func (s *Server) handleEvaluateQuick(c *gin.Context) {
	var req analyzer.QuickContext
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.UserID == "" {
		errorResponse(c, http.StatusBadRequest, "user_id is required")
		return
	}

	verdict := s.active.EvaluateQuick(c.Request.Context(), req)
	s.persistAlerts(req.UserID, "", verdict.Alerts)

	successResponse(c, verdict)
}

// analyzeHistoryRequest is the body of POST /api/analysis/history.
type analyzeHistoryRequest struct {
	UserID string           `json:"user_id" binding:"required"`
	Trades []analyzer.Trade `json:"trades"`
}

func (s *Server) handleAnalyzeHistory(c *gin.Context) {
	var req analyzeHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	report := s.passive.Analyze(req.Trades, req.UserID)

	if s.cache != nil {
		s.cache.SetJSON(c.Request.Context(), cache.ReportKey(req.UserID), report, cache.ReportTTL)
	}
	if s.db != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := s.db.SaveReport(ctx, report); err != nil {
				s.log.Warn().Err(err).Str("report_id", report.ID).Msg("failed to persist report")
				s.eventBus.PublishError("database", "failed to persist report", err)
			}
		}()
	}

	successResponse(c, report)
}

// handleLatestReport serves the user's most recent behavior report from
// cache.
func (s *Server) handleLatestReport(c *gin.Context) {
	if s.cache == nil {
		errorResponse(c, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	userID := c.Param("user_id")

	var report analyzer.Report
	if err := s.cache.GetJSON(c.Request.Context(), cache.ReportKey(userID), &report); err != nil {
		errorResponse(c, http.StatusNotFound, "no recent report for user")
		return
	}
	successResponse(c, report)
}

// marketContextRequest is the body of POST /api/market/context.
type marketContextRequest struct {
	Symbol       string          `json:"symbol" binding:"required"`
	Candles      []market.Candle `json:"candles" binding:"required"`
	CurrentPrice float64         `json:"current_price,omitempty"`
}

func (s *Server) handleMarketContext(c *gin.Context) {
	var req marketContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	snapshot := market.Analyze(req.Symbol, req.Candles, req.CurrentPrice)
	if s.cache != nil {
		s.cache.SetJSON(c.Request.Context(), cache.SnapshotKey(req.Symbol), snapshot, cache.SnapshotTTL)
	}
	successResponse(c, snapshot)
}

// recordTradeRequest is the body of POST /api/session/trades.
type recordTradeRequest struct {
	UserID string              `json:"user_id" binding:"required"`
	Trade  session.ClosedTrade `json:"trade" binding:"required"`
}

func (s *Server) handleRecordTrade(c *gin.Context) {
	if s.tracker == nil {
		errorResponse(c, http.StatusServiceUnavailable, "session tracking is disabled")
		return
	}
	var req recordTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Trade.ClosedAt.IsZero() {
		req.Trade.ClosedAt = time.Now()
	}

	s.tracker.RecordTrade(c.Request.Context(), req.UserID, req.Trade)
	successResponse(c, gin.H{"recorded": true})
}

func (s *Server) handleSessionStats(c *gin.Context) {
	if s.tracker == nil {
		errorResponse(c, http.StatusServiceUnavailable, "session tracking is disabled")
		return
	}
	userID := c.Param("user_id")

	stats, lastLoss, avgSize := s.tracker.Stats(c.Request.Context(), userID, time.Now())
	if stats == nil {
		errorResponse(c, http.StatusNotFound, "no session for user")
		return
	}
	successResponse(c, gin.H{
		"stats":     stats,
		"last_loss": lastLoss,
		"avg_size":  avgSize,
	})
}

func (s *Server) handleResetSession(c *gin.Context) {
	if s.tracker == nil {
		errorResponse(c, http.StatusServiceUnavailable, "session tracking is disabled")
		return
	}
	s.tracker.Reset(c.Request.Context(), c.Param("user_id"))
	successResponse(c, gin.H{"reset": true})
}

func (s *Server) handleRecentAlerts(c *gin.Context) {
	if s.db == nil {
		errorResponse(c, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}
	userID := c.Param("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	alerts, err := s.db.RecentAlerts(c.Request.Context(), userID, limit)
	if err != nil {
		reqLog := logging.FromContext(c.Request.Context())
		reqLog.Error().Err(err).Str("user_id", userID).Msg("failed to load alerts")
		errorResponse(c, http.StatusInternalServerError, "failed to load alerts")
		return
	}
	successResponse(c, alerts)
}

// persistTextSignal stores an analyzed note without blocking the request.
func (s *Server) persistTextSignal(userID string, res *nlp.Result) {
	if s.db == nil || res == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.db.SaveTextSignal(ctx, userID, res); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to persist text signal")
			s.eventBus.PublishError("database", "failed to persist text signal", err)
		}
	}()
}

// persistAlerts stores raised alerts without blocking the request.
func (s *Server) persistAlerts(userID, symbol string, alerts []*detectors.Alert) {
	if s.db == nil || len(alerts) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		for _, a := range alerts {
			if err := s.db.SaveAlert(ctx, userID, symbol, a); err != nil {
				s.log.Warn().Err(err).Str("alert_id", a.ID).Msg("failed to persist alert")
				s.eventBus.PublishError("database", "failed to persist alert", err)
			}
		}
	}()
}
