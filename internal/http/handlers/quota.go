package handlers

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *App) UserQuota(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	rec, limits, err := a.Guard.Usage(r.Context(), userID)
	if err != nil {
		a.domainError(w, err)
		return
	}

	usagePct := 0.0
	if limits.MonthlyCostCap > 0 {
		usagePct = rec.MonthlyCostUsed / limits.MonthlyCostCap * 100
	}
	a.json(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"daily_limits": map[string]any{
			"text_quota":      limits.DailyText,
			"text_used":       rec.DailyTextUsed,
			"text_remaining":  limits.DailyText - rec.DailyTextUsed,
			"image_quota":     limits.DailyImage,
			"image_used":      rec.DailyImageUsed,
			"image_remaining": limits.DailyImage - rec.DailyImageUsed,
			"last_reset":      rec.LastDailyReset,
		},
		"monthly_limits": map[string]any{
			"cost_cap_usd":       limits.MonthlyCostCap,
			"cost_used_usd":      round4(rec.MonthlyCostUsed),
			"cost_remaining_usd": round4(limits.MonthlyCostCap - rec.MonthlyCostUsed),
			"usage_percentage":   round2(usagePct),
			"last_reset":         rec.LastMonthlyReset,
		},
	})
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
