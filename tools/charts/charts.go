// Package charts builds visualization-ready data series from the transaction
// history: monthly burn, category breakdowns, balance history and runway
// forecasts. Payloads are plain maps so they serialize directly for both the
// model and the artifact store.
package charts

import (
	"math"
	"sort"
	"time"

	"github.com/hupe1980/finsight/tools/finance"
)

// BurnRateChart returns a month-by-month income / expense / burn series for
// the trailing window.
func BurnRateChart(txs []finance.Transaction, months int, now time.Time) map[string]any {
	if months <= 0 {
		months = 12
	}
	cutoff := now.AddDate(0, 0, -months*30)

	type flows struct{ income, expenses float64 }
	monthly := map[string]*flows{}
	for _, t := range txs {
		if t.Date.Before(cutoff) {
			continue
		}
		key := t.Date.Format("2006-01")
		f, ok := monthly[key]
		if !ok {
			f = &flows{}
			monthly[key] = f
		}
		if t.Type == finance.Income {
			f.income += t.Amount
		} else {
			f.expenses += t.Amount
		}
	}

	keys := sortedKeys(monthly)
	data := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		f := monthly[key]
		burn := f.expenses - f.income
		data = append(data, map[string]any{
			"month":         key,
			"month_label":   monthLabel(key),
			"income":        round2(f.income),
			"expenses":      round2(f.expenses),
			"burn_rate":     round2(burn),
			"net_cash_flow": round2(-burn),
		})
	}

	return map[string]any{
		"type":   "burn_rate_chart",
		"data":   data,
		"months": len(data),
	}
}

// CategoryBreakdownChart aggregates amounts per category for pie or bar
// rendering, keeping the top N categories and folding the rest into "Other".
func CategoryBreakdownChart(txs []finance.Transaction, txType finance.TransactionType, topN int) map[string]any {
	if topN <= 0 {
		topN = 10
	}

	totals := map[string]float64{}
	for _, t := range txs {
		if t.Type != txType {
			continue
		}
		cat := t.Category
		if cat == "" {
			cat = "Uncategorized"
		}
		totals[cat] += t.Amount
	}

	type entry struct {
		category string
		amount   float64
	}
	sorted := make([]entry, 0, len(totals))
	for cat, amount := range totals {
		sorted = append(sorted, entry{cat, amount})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].amount > sorted[j].amount })

	top := sorted
	if len(sorted) > topN {
		top = sorted[:topN]
	}
	var total float64
	for _, e := range top {
		total += e.amount
	}

	data := make([]map[string]any, 0, len(top)+1)
	for _, e := range top {
		pct := 0.0
		if total > 0 {
			pct = e.amount / total * 100
		}
		data = append(data, map[string]any{
			"category":   e.category,
			"amount":     round2(e.amount),
			"percentage": round2(pct),
		})
	}
	if len(sorted) > topN {
		var other float64
		for _, e := range sorted[topN:] {
			other += e.amount
		}
		data = append(data, map[string]any{
			"category":   "Other",
			"amount":     round2(other),
			"percentage": round2(other / (total + other) * 100),
		})
	}

	return map[string]any{
		"type":             "category_breakdown_chart",
		"transaction_type": string(txType),
		"data":             data,
		"total":            round2(total),
		"category_count":   len(totals),
	}
}

// RunwayForecastChart projects the balance forward month by month at the
// given burn rate and marks the depletion point, if any.
func RunwayForecastChart(currentBalance, monthlyBurnRate float64, forecastMonths int, now time.Time) map[string]any {
	if forecastMonths <= 0 {
		forecastMonths = 12
	}

	data := make([]map[string]any, 0, forecastMonths+1)
	balance := currentBalance
	var depletionMonth any
	for month := 0; month <= forecastMonths; month++ {
		date := now.AddDate(0, month, 0)
		depleted := balance <= 0
		if depleted && depletionMonth == nil {
			depletionMonth = month
		}
		data = append(data, map[string]any{
			"month":        date.Format("2006-01"),
			"month_label":  date.Format("Jan 2006"),
			"balance":      round2(math.Max(0, balance)),
			"is_projected": month > 0,
			"is_depleted":  depleted,
		})
		balance -= monthlyBurnRate
	}

	return map[string]any{
		"type":              "runway_forecast_chart",
		"data":              data,
		"current_balance":   round2(currentBalance),
		"monthly_burn_rate": round2(monthlyBurnRate),
		"forecast_months":   forecastMonths,
		"depletion_month":   depletionMonth,
	}
}

// BalanceHistoryChart replays the transaction history to produce end-of-month
// balances over the trailing window.
func BalanceHistoryChart(initialCapital float64, txs []finance.Transaction, months int, now time.Time) map[string]any {
	if months <= 0 {
		months = 12
	}
	cutoff := now.AddDate(0, 0, -months*30)

	recent := make([]finance.Transaction, 0, len(txs))
	for _, t := range txs {
		if !t.Date.Before(cutoff) {
			recent = append(recent, t)
		}
	}
	sort.Slice(recent, func(i, j int) bool { return recent[i].Date.Before(recent[j].Date) })

	monthlyBalance := map[string]float64{}
	balance := initialCapital
	for _, t := range recent {
		if t.Type == finance.Income {
			balance += t.Amount
		} else {
			balance -= t.Amount
		}
		monthlyBalance[t.Date.Format("2006-01")] = balance
	}

	keys := make([]string, 0, len(monthlyBalance))
	for k := range monthlyBalance {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		b := monthlyBalance[key]
		data = append(data, map[string]any{
			"month":       key,
			"month_label": monthLabel(key),
			"balance":     round2(b),
			"is_positive": b > 0,
		})
	}

	return map[string]any{
		"type":            "balance_history_chart",
		"data":            data,
		"initial_capital": round2(initialCapital),
		"final_balance":   round2(balance),
		"months":          len(data),
	}
}

func monthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2006")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
