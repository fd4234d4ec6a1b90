package analyzer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trading-psychology-engine/internal/events"
)

// Trade is one historical trade as the passive analyzer sees it. Open trades
// have a nil PnL and are counted but not analyzed.
type Trade struct {
	ID           int64      `json:"id"`
	Symbol       string     `json:"symbol"`
	Side         string     `json:"side"`
	EntryPrice   float64    `json:"entry_price"`
	ExitPrice    *float64   `json:"exit_price,omitempty"`
	Quantity     float64    `json:"quantity"`
	PnL          *float64   `json:"pnl,omitempty"`
	PnLPercent   *float64   `json:"pnl_pct,omitempty"`
	EntryTime    time.Time  `json:"entry_time"`
	ExitTime     *time.Time `json:"exit_time,omitempty"`
	HoldDuration *int       `json:"hold_duration_minutes,omitempty"`
}

// IntervalAnalysis compares how long the trader waits after wins vs losses.
type IntervalAnalysis struct {
	AvgIntervalAfterLoss float64 `json:"avg_interval_after_loss"` // minutes
	AvgIntervalAfterWin  float64 `json:"avg_interval_after_win"`
	RushingAfterLoss     bool    `json:"rushing_after_loss"`
	RushRatio            float64 `json:"rush_ratio"`
	Recommendation       string  `json:"recommendation,omitempty"`
}

// SizingAnalysis looks for position size escalation after losses.
type SizingAnalysis struct {
	AvgSizeIncreaseAfterLoss float64 `json:"avg_size_increase_after_loss"`
	AvgSizeIncreaseAfterWin  float64 `json:"avg_size_increase_after_win"`
	RevengePatternDetected   bool    `json:"revenge_pattern_detected"`
	Severity                 string  `json:"severity"` // LOW, MEDIUM, HIGH
	Recommendation           string  `json:"recommendation,omitempty"`
}

// HoldAnalysis compares hold durations of winners and losers.
type HoldAnalysis struct {
	AvgWinningHoldMinutes float64 `json:"avg_winning_hold_minutes"`
	AvgLosingHoldMinutes  float64 `json:"avg_losing_hold_minutes"`
	LossAversionRatio     float64 `json:"loss_aversion_ratio"`
	LossAversionDetected  bool    `json:"loss_aversion_detected"`
	Recommendation        string  `json:"recommendation,omitempty"`
}

// HourStats aggregates performance for one hour of day.
type HourStats struct {
	WinRate    float64 `json:"win_rate"`
	AvgPnL     float64 `json:"avg_pnl"`
	TradeCount int     `json:"trade_count"`
}

// TimeAnalysis surfaces the hours and weekdays the trader performs best and
// worst in.
type TimeAnalysis struct {
	BestHours      []int             `json:"best_hours"`
	WorstHours     []int             `json:"worst_hours"`
	BestDays       []string          `json:"best_days"`
	WorstDays      []string          `json:"worst_days"`
	HourlyStats    map[int]HourStats `json:"hourly_stats"`
	Recommendation string            `json:"recommendation,omitempty"`
}

// SymbolStats aggregates performance for one symbol.
type SymbolStats struct {
	WinRate    float64 `json:"win_rate"`
	AvgPnL     float64 `json:"avg_pnl"`
	TradeCount int     `json:"trade_count"`
	Sharpe     float64 `json:"sharpe"`
}

// SymbolAnalysis ranks symbols by risk-adjusted performance.
type SymbolAnalysis struct {
	SymbolStats    map[string]SymbolStats `json:"symbol_stats"`
	BestSymbols    []string               `json:"best_symbols"`
	WorstSymbols   []string               `json:"worst_symbols"`
	Recommendation string                 `json:"recommendation,omitempty"`
}

// Report is the complete historical behavior analysis for one user.
type Report struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Period      string    `json:"period"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	AvgPnLPct    float64 `json:"avg_pnl_pct"`
	MaxDrawdown  float64 `json:"max_drawdown"`

	Intervals *IntervalAnalysis `json:"interval_analysis,omitempty"`
	Sizing    *SizingAnalysis   `json:"sizing_analysis,omitempty"`
	Holds     *HoldAnalysis     `json:"hold_analysis,omitempty"`
	Times     *TimeAnalysis     `json:"time_analysis,omitempty"`
	Symbols   *SymbolAnalysis   `json:"symbol_analysis,omitempty"`

	Recommendations []string `json:"recommendations"`
	RiskScore       float64  `json:"risk_score"` // 0-100
}

// Minimum sample sizes before a sub-analysis reports anything. Small samples
// produce noise, not patterns.
const (
	minTradesForIntervals = 3
	minTradesForSizing    = 3
	minTradesForTime      = 10
	minTradesForSymbols   = 5
	minTradesPerHourSlot  = 3
	minTradesPerSymbol    = 2
	minTradesToRankSymbol = 3
	minTradesForWinRate   = 5
)

// Pattern thresholds.
const (
	rushRatioThreshold     = 0.5 // entering 2x faster after losses
	revengeSizeThreshold   = 1.3
	revengeSizeHigh        = 1.5
	lossAversionThreshold  = 2.0
	riskRushingPts         = 25
	riskSizingHighPts      = 35
	riskSizingMediumPts    = 25
	riskSizingLowPts       = 15
	riskLossAversionPts    = 20
)

// Passive mines closed-trade history for self-destructive behavior patterns.
type Passive struct {
	bus *events.EventBus
	log zerolog.Logger
}

// NewPassive builds the historical analyzer. bus may be nil.
func NewPassive(bus *events.EventBus, log zerolog.Logger) *Passive {
	return &Passive{
		bus: bus,
		log: log.With().Str("component", "passive_analyzer").Logger(),
	}
}

// Analyze runs all sub-analyses over the trade history. Trades are sorted by
// entry time internally; an empty history yields an empty report rather than
// an error.
func (p *Passive) Analyze(trades []Trade, userID string) *Report {
	if len(trades) == 0 {
		return p.emptyReport(userID)
	}

	sorted := make([]Trade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EntryTime.Before(sorted[j].EntryTime)
	})

	var closed []Trade
	for _, t := range sorted {
		if t.PnL != nil {
			closed = append(closed, t)
		}
	}

	var wins, losses int
	var totalProfit, totalLoss, pnlPctSum float64
	pnlPctCount := 0
	for _, t := range closed {
		switch {
		case *t.PnL > 0:
			wins++
			totalProfit += *t.PnL
		case *t.PnL < 0:
			losses++
			totalLoss += math.Abs(*t.PnL)
		}
		if t.PnLPercent != nil {
			pnlPctSum += *t.PnLPercent
			pnlPctCount++
		}
	}

	winRate := 0.0
	if len(closed) > 0 {
		winRate = float64(wins) / float64(len(closed))
	}
	if totalLoss == 0 {
		totalLoss = 1
	}
	profitFactor := totalProfit / totalLoss
	avgPnLPct := 0.0
	if pnlPctCount > 0 {
		avgPnLPct = pnlPctSum / float64(pnlPctCount)
	}

	report := &Report{
		ID:           uuid.NewString(),
		UserID:       userID,
		Period:       fmt.Sprintf("last_%d_trades", len(sorted)),
		GeneratedAt:  time.Now().UTC(),
		TotalTrades:  len(sorted),
		WinRate:      winRate,
		ProfitFactor: profitFactor,
		AvgPnLPct:    avgPnLPct,
		MaxDrawdown:  maxDrawdown(closed),
		Intervals:    analyzeIntervals(closed),
		Sizing:       analyzeSizing(closed),
		Holds:        analyzeHolds(closed),
		Times:        analyzeTimes(closed),
		Symbols:      analyzeSymbols(closed),
	}
	report.Recommendations = collectRecommendations(report)
	report.RiskScore = compositeRiskScore(report)

	if p.bus != nil {
		p.bus.PublishReportGenerated(userID, report.ID, report.RiskScore)
	}
	p.log.Info().
		Str("user_id", userID).
		Int("trades", report.TotalTrades).
		Float64("risk_score", report.RiskScore).
		Msg("behavioral report generated")
	return report
}

func analyzeIntervals(trades []Trade) *IntervalAnalysis {
	if len(trades) < minTradesForIntervals {
		return nil
	}

	var afterLoss, afterWin []float64
	for i := 1; i < len(trades); i++ {
		prev, cur := trades[i-1], trades[i]
		if prev.ExitTime == nil {
			continue
		}
		interval := cur.EntryTime.Sub(*prev.ExitTime).Minutes()
		if interval < 0 {
			continue
		}
		switch {
		case prev.PnL != nil && *prev.PnL < 0:
			afterLoss = append(afterLoss, interval)
		case prev.PnL != nil && *prev.PnL > 0:
			afterWin = append(afterWin, interval)
		}
	}
	if len(afterLoss) == 0 || len(afterWin) == 0 {
		return nil
	}

	avgLoss := mean(afterLoss)
	avgWin := mean(afterWin)
	rushRatio := 1.0
	if avgWin > 0 {
		rushRatio = avgLoss / avgWin
	}
	rushing := rushRatio < rushRatioThreshold

	ia := &IntervalAnalysis{
		AvgIntervalAfterLoss: avgLoss,
		AvgIntervalAfterWin:  avgWin,
		RushingAfterLoss:     rushing,
		RushRatio:            rushRatio,
	}
	if rushing {
		ia.Recommendation = fmt.Sprintf(
			"⚠️ Bạn vào lệnh nhanh hơn %.0f%% sau khi thua. Hãy chờ ít nhất 30 phút sau loss.",
			(1-rushRatio)*100)
	}
	return ia
}

func analyzeSizing(trades []Trade) *SizingAnalysis {
	if len(trades) < minTradesForSizing {
		return nil
	}

	var afterLoss, afterWin []float64
	for i := 1; i < len(trades); i++ {
		prev, cur := trades[i-1], trades[i]
		if prev.Quantity == 0 || cur.Quantity == 0 {
			continue
		}
		ratio := cur.Quantity / prev.Quantity
		switch {
		case prev.PnL != nil && *prev.PnL < 0:
			afterLoss = append(afterLoss, ratio)
		case prev.PnL != nil && *prev.PnL > 0:
			afterWin = append(afterWin, ratio)
		}
	}
	if len(afterLoss) == 0 {
		return nil
	}

	avgLoss := mean(afterLoss)
	avgWin := 1.0
	if len(afterWin) > 0 {
		avgWin = mean(afterWin)
	}

	detected := avgLoss > revengeSizeThreshold
	severity := "LOW"
	switch {
	case avgLoss > revengeSizeHigh:
		severity = "HIGH"
	case avgLoss > revengeSizeThreshold:
		severity = "MEDIUM"
	}

	sa := &SizingAnalysis{
		AvgSizeIncreaseAfterLoss: avgLoss,
		AvgSizeIncreaseAfterWin:  avgWin,
		RevengePatternDetected:   detected,
		Severity:                 severity,
	}
	if detected {
		sa.Recommendation = fmt.Sprintf(
			"🛑 Phát hiện REVENGE PATTERN: Size tăng %.0f%% sau loss. Hãy giữ size cố định!",
			(avgLoss-1)*100)
	}
	return sa
}

func analyzeHolds(trades []Trade) *HoldAnalysis {
	var winHolds, lossHolds []float64
	for _, t := range trades {
		if t.PnL == nil || t.HoldDuration == nil {
			continue
		}
		switch {
		case *t.PnL > 0:
			winHolds = append(winHolds, float64(*t.HoldDuration))
		case *t.PnL < 0:
			lossHolds = append(lossHolds, float64(*t.HoldDuration))
		}
	}
	if len(winHolds) == 0 || len(lossHolds) == 0 {
		return nil
	}

	avgWin := mean(winHolds)
	avgLoss := mean(lossHolds)
	ratio := 1.0
	if avgWin > 0 {
		ratio = avgLoss / avgWin
	}
	detected := ratio > lossAversionThreshold

	ha := &HoldAnalysis{
		AvgWinningHoldMinutes: avgWin,
		AvgLosingHoldMinutes:  avgLoss,
		LossAversionRatio:     ratio,
		LossAversionDetected:  detected,
	}
	if detected {
		ha.Recommendation = fmt.Sprintf(
			"⚠️ Loss Aversion: Giữ lệnh lỗ gấp %.1fx lệnh lời. Hãy cắt lỗ nhanh hơn!", ratio)
	}
	return ha
}

func analyzeTimes(trades []Trade) *TimeAnalysis {
	if len(trades) < minTradesForTime {
		return nil
	}

	hourly := make(map[int][]float64)
	daily := make(map[string][]float64)
	for _, t := range trades {
		if t.PnLPercent == nil {
			continue
		}
		hourly[t.EntryTime.Hour()] = append(hourly[t.EntryTime.Hour()], *t.PnLPercent)
		day := t.EntryTime.Weekday().String()
		daily[day] = append(daily[day], *t.PnLPercent)
	}

	hourlyStats := make(map[int]HourStats, len(hourly))
	for hour, pnls := range hourly {
		wins := 0
		for _, p := range pnls {
			if p > 0 {
				wins++
			}
		}
		hourlyStats[hour] = HourStats{
			WinRate:    float64(wins) / float64(len(pnls)),
			AvgPnL:     mean(pnls),
			TradeCount: len(pnls),
		}
	}

	hours := make([]int, 0, len(hourlyStats))
	for h := range hourlyStats {
		hours = append(hours, h)
	}
	// win rate descending, hour ascending as the tiebreak for stable output
	sort.Slice(hours, func(i, j int) bool {
		a, b := hourlyStats[hours[i]], hourlyStats[hours[j]]
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		return hours[i] < hours[j]
	})

	var best, worst []int
	for _, h := range firstN(hours, 3) {
		if hourlyStats[h].TradeCount >= minTradesPerHourSlot {
			best = append(best, h)
		}
	}
	for _, h := range lastN(hours, 3) {
		if hourlyStats[h].TradeCount >= minTradesPerHourSlot {
			worst = append(worst, h)
		}
	}

	dayRates := make(map[string]float64, len(daily))
	for day, pnls := range daily {
		wins := 0
		for _, p := range pnls {
			if p > 0 {
				wins++
			}
		}
		dayRates[day] = float64(wins) / float64(len(pnls))
	}
	days := make([]string, 0, len(dayRates))
	for d := range dayRates {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		if dayRates[days[i]] != dayRates[days[j]] {
			return dayRates[days[i]] > dayRates[days[j]]
		}
		return days[i] < days[j]
	})

	ta := &TimeAnalysis{
		BestHours:   best,
		WorstHours:  worst,
		BestDays:    firstN(days, 2),
		WorstDays:   lastN(days, 2),
		HourlyStats: hourlyStats,
	}
	if len(best) > 0 && len(worst) > 0 {
		ta.Recommendation = fmt.Sprintf(
			"📊 Trade nhiều vào %dh-%dh, tránh %dh-%dh",
			best[0], best[len(best)-1], worst[0], worst[len(worst)-1])
	}
	return ta
}

func analyzeSymbols(trades []Trade) *SymbolAnalysis {
	if len(trades) < minTradesForSymbols {
		return nil
	}

	bySymbol := make(map[string][]float64)
	for _, t := range trades {
		if t.PnLPercent == nil {
			continue
		}
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], *t.PnLPercent)
	}

	stats := make(map[string]SymbolStats)
	for symbol, pnls := range bySymbol {
		if len(pnls) < minTradesPerSymbol {
			continue
		}
		wins := 0
		for _, p := range pnls {
			if p > 0 {
				wins++
			}
		}
		avg := mean(pnls)
		sharpe := 0.0
		if sd := stdev(pnls); sd > 0 {
			sharpe = avg / sd
		}
		stats[symbol] = SymbolStats{
			WinRate:    float64(wins) / float64(len(pnls)),
			AvgPnL:     avg,
			TradeCount: len(pnls),
			Sharpe:     sharpe,
		}
	}
	if len(stats) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(stats))
	for s := range stats {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool {
		if stats[symbols[i]].Sharpe != stats[symbols[j]].Sharpe {
			return stats[symbols[i]].Sharpe > stats[symbols[j]].Sharpe
		}
		return symbols[i] < symbols[j]
	})

	var best, worst []string
	for _, s := range firstN(symbols, 3) {
		if stats[s].TradeCount >= minTradesToRankSymbol {
			best = append(best, s)
		}
	}
	for _, s := range lastN(symbols, 3) {
		if stats[s].TradeCount >= minTradesToRankSymbol {
			worst = append(worst, s)
		}
	}

	sa := &SymbolAnalysis{
		SymbolStats:  stats,
		BestSymbols:  best,
		WorstSymbols: worst,
	}
	if len(best) > 0 && len(worst) > 0 && best[0] != worst[len(worst)-1] {
		sa.Recommendation = fmt.Sprintf(
			"💡 Focus vào %s (Sharpe=%.2f), tránh %s",
			best[0], stats[best[0]].Sharpe, worst[len(worst)-1])
	}
	return sa
}

// maxDrawdown is the largest peak-to-trough fall of the cumulative pnl%
// curve, as a positive number.
func maxDrawdown(trades []Trade) float64 {
	var cumulative, peak, maxDD float64
	for _, t := range trades {
		if t.PnLPercent == nil {
			continue
		}
		cumulative += *t.PnLPercent
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func collectRecommendations(r *Report) []string {
	var recs []string
	if r.Intervals != nil && r.Intervals.Recommendation != "" {
		recs = append(recs, r.Intervals.Recommendation)
	}
	if r.Sizing != nil && r.Sizing.Recommendation != "" {
		recs = append(recs, r.Sizing.Recommendation)
	}
	if r.Holds != nil && r.Holds.Recommendation != "" {
		recs = append(recs, r.Holds.Recommendation)
	}
	if r.Times != nil && r.Times.Recommendation != "" {
		recs = append(recs, r.Times.Recommendation)
	}
	if r.Symbols != nil && r.Symbols.Recommendation != "" {
		recs = append(recs, r.Symbols.Recommendation)
	}
	if len(recs) == 0 {
		recs = append(recs, "✅ Không phát hiện vấn đề nghiêm trọng. Tiếp tục duy trì kỷ luật!")
	}
	return recs
}

// compositeRiskScore combines the interval, sizing and hold findings into one
// 0-100 behavioral risk number.
func compositeRiskScore(r *Report) float64 {
	score := 0.0
	if r.Intervals != nil && r.Intervals.RushingAfterLoss {
		score += riskRushingPts
	}
	if r.Sizing != nil && r.Sizing.RevengePatternDetected {
		switch r.Sizing.Severity {
		case "HIGH":
			score += riskSizingHighPts
		case "MEDIUM":
			score += riskSizingMediumPts
		default:
			score += riskSizingLowPts
		}
	}
	if r.Holds != nil && r.Holds.LossAversionDetected {
		score += riskLossAversionPts
	}
	return math.Min(100, score)
}

func (p *Passive) emptyReport(userID string) *Report {
	return &Report{
		ID:              uuid.NewString(),
		UserID:          userID,
		Period:          "no_trades",
		GeneratedAt:     time.Now().UTC(),
		Recommendations: []string{"📊 Chưa có dữ liệu giao dịch để phân tích"},
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func firstN[T any](s []T, n int) []T {
	if len(s) < n {
		n = len(s)
	}
	return s[:n]
}

func lastN[T any](s []T, n int) []T {
	if len(s) < n {
		n = len(s)
	}
	return s[len(s)-n:]
}
