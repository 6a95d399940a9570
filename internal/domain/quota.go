package domain

import "time"

// Quota window lengths. Windows are rolling: a counter resets once "now
// minus last reset" exceeds the window, not on calendar boundaries.
const (
	DailyQuotaWindow   = 24 * time.Hour
	MonthlyQuotaWindow = 30 * 24 * time.Hour
)

// QuotaLimits are configuration inputs, not managed by the core.
type QuotaLimits struct {
	DailyText      int
	DailyImage     int
	MonthlyCostCap float64
}

// QuotaRecord tracks one user's generation usage. Daily counters gate on
// request counts; the monthly figure gates on dollars. The two are never
// conflated.
type QuotaRecord struct {
	UserID           string
	DailyTextUsed    int
	DailyImageUsed   int
	MonthlyCostUsed  float64
	LastDailyReset   time.Time
	LastMonthlyReset time.Time
}
