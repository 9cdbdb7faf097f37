// Package finance provides the deterministic financial calculation tools
// agents invoke through the registry: balance, burn rate, runway, spending
// breakdowns, growth rates and investment readiness.
package finance

import (
	"math"
	"sort"
	"time"
)

// TransactionType distinguishes money in from money out.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Transaction is one dated cash movement. Amounts are always positive; the
// type carries the sign.
type Transaction struct {
	Date     time.Time
	Amount   float64
	Type     TransactionType
	Category string
}

// Balance sums a transaction history on top of the initial capital.
//
// current_balance = initial_capital + total_income - total_expenses
func Balance(initialCapital float64, txs []Transaction) map[string]any {
	var totalIncome, totalExpenses float64
	for _, t := range txs {
		switch t.Type {
		case Income:
			totalIncome += t.Amount
		case Expense:
			totalExpenses += t.Amount
		}
	}
	current := initialCapital + totalIncome - totalExpenses

	status := "positive"
	if current <= 0 {
		status = "negative"
	}
	return map[string]any{
		"current_balance": round2(current),
		"initial_capital": round2(initialCapital),
		"total_income":    round2(totalIncome),
		"total_expenses":  round2(totalExpenses),
		"net_change":      round2(totalIncome - totalExpenses),
		"balance_status":  status,
	}
}

// BurnRate computes the average monthly net burn over the trailing period.
// A positive burn rate means the company is losing money.
func BurnRate(txs []Transaction, periodMonths int, now time.Time) map[string]any {
	if periodMonths <= 0 {
		periodMonths = 3
	}
	if len(txs) == 0 {
		return map[string]any{
			"burn_rate":            0.0,
			"avg_monthly_expenses": 0.0,
			"avg_monthly_income":   0.0,
			"net_burn":             0.0,
			"period_months":        periodMonths,
			"transaction_count":    0,
		}
	}

	cutoff := now.AddDate(0, 0, -periodMonths*30)
	monthlyIncome := map[string]float64{}
	monthlyExpenses := map[string]float64{}
	count := 0
	for _, t := range txs {
		if t.Date.Before(cutoff) {
			continue
		}
		count++
		key := t.Date.Format("2006-01")
		if t.Type == Income {
			monthlyIncome[key] += t.Amount
		} else {
			monthlyExpenses[key] += t.Amount
		}
	}

	numMonths := max(len(monthlyIncome), len(monthlyExpenses))
	if numMonths == 0 {
		numMonths = 1
	}
	avgIncome := sum(monthlyIncome) / float64(numMonths)
	avgExpenses := sum(monthlyExpenses) / float64(numMonths)
	netBurn := avgExpenses - avgIncome

	return map[string]any{
		"burn_rate":            round2(netBurn),
		"avg_monthly_expenses": round2(avgExpenses),
		"avg_monthly_income":   round2(avgIncome),
		"net_burn":             round2(netBurn),
		"period_months":        periodMonths,
		"transaction_count":    count,
		"months_analyzed":      numMonths,
	}
}

// Runway converts balance and burn into months of remaining cash with a
// health status band. A non-positive burn means cash is not depleting.
//
// Bands: <3 critical, <6 warning, <12 healthy, otherwise excellent.
func Runway(currentBalance, monthlyBurnRate float64, now time.Time) map[string]any {
	if monthlyBurnRate <= 0 {
		return map[string]any{
			"runway_months":     nil,
			"runway_days":       nil,
			"current_balance":   round2(currentBalance),
			"monthly_burn_rate": round2(monthlyBurnRate),
			"status":            "positive_cash_flow",
		}
	}

	months := currentBalance / monthlyBurnRate
	days := months * 30
	depletion := now.AddDate(0, 0, int(days))

	var status string
	switch {
	case months < 3:
		status = "critical"
	case months < 6:
		status = "warning"
	case months < 12:
		status = "healthy"
	default:
		status = "excellent"
	}

	return map[string]any{
		"runway_months":            round2(months),
		"runway_days":              math.Round(days),
		"estimated_depletion_date": depletion.Format("2006-01-02"),
		"current_balance":          round2(currentBalance),
		"monthly_burn_rate":        round2(monthlyBurnRate),
		"status":                   status,
	}
}

// SpendingByCategory breaks expenses down per category with totals,
// percentages and per-transaction averages, sorted by total descending.
// periodMonths of zero means all time.
func SpendingByCategory(txs []Transaction, periodMonths int, now time.Time) map[string]any {
	if periodMonths > 0 {
		cutoff := now.AddDate(0, 0, -periodMonths*30)
		filtered := txs[:0:0]
		for _, t := range txs {
			if !t.Date.Before(cutoff) {
				filtered = append(filtered, t)
			}
		}
		txs = filtered
	}

	totals := map[string]float64{}
	counts := map[string]int{}
	var totalExpenses, totalIncome float64
	for _, t := range txs {
		if t.Type == Expense {
			cat := t.Category
			if cat == "" {
				cat = "Uncategorized"
			}
			totals[cat] += t.Amount
			counts[cat]++
			totalExpenses += t.Amount
		} else {
			totalIncome += t.Amount
		}
	}

	categories := make([]map[string]any, 0, len(totals))
	for cat, total := range totals {
		pct := 0.0
		if totalExpenses > 0 {
			pct = total / totalExpenses * 100
		}
		categories = append(categories, map[string]any{
			"category":            cat,
			"total":               round2(total),
			"count":               counts[cat],
			"percentage":          round2(pct),
			"avg_per_transaction": round2(total / float64(counts[cat])),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i]["total"].(float64) > categories[j]["total"].(float64)
	})

	period := any("all_time")
	if periodMonths > 0 {
		period = periodMonths
	}
	return map[string]any{
		"categories":        categories,
		"total_expenses":    round2(totalExpenses),
		"total_income":      round2(totalIncome),
		"net_position":      round2(totalIncome - totalExpenses),
		"transaction_count": len(txs),
		"period_months":     period,
	}
}

// GrowthRate computes the average month-over-month growth of income or
// expenses over the trailing period.
func GrowthRate(txs []Transaction, metric TransactionType, periodMonths int, now time.Time) map[string]any {
	if periodMonths <= 0 {
		periodMonths = 6
	}
	cutoff := now.AddDate(0, 0, -periodMonths*30)

	monthlyTotals := map[string]float64{}
	for _, t := range txs {
		if t.Date.Before(cutoff) || t.Type != metric {
			continue
		}
		monthlyTotals[t.Date.Format("2006-01")] += t.Amount
	}

	months := make([]string, 0, len(monthlyTotals))
	for m := range monthlyTotals {
		months = append(months, m)
	}
	sort.Strings(months)

	if len(months) < 2 {
		return map[string]any{
			"growth_rate":       0.0,
			"metric":            string(metric),
			"period_months":     periodMonths,
			"insufficient_data": true,
		}
	}

	var rates []float64
	for i := 1; i < len(months); i++ {
		prev := monthlyTotals[months[i-1]]
		curr := monthlyTotals[months[i]]
		if prev > 0 {
			rates = append(rates, (curr-prev)/prev*100)
		}
	}
	avg := 0.0
	if len(rates) > 0 {
		for _, r := range rates {
			avg += r
		}
		avg /= float64(len(rates))
	}

	values := make([]map[string]any, len(months))
	for i, m := range months {
		values[i] = map[string]any{"month": m, "value": round2(monthlyTotals[m])}
	}
	trend := "decreasing"
	if avg > 0 {
		trend = "increasing"
	}
	return map[string]any{
		"growth_rate":     round2(avg),
		"metric":          string(metric),
		"period_months":   periodMonths,
		"months_analyzed": len(months),
		"monthly_values":  values,
		"trend":           trend,
	}
}

// AssessReadiness decides whether investing is appropriate given the current
// balance and burn. A negative balance or critical runway always means
// not_ready.
func AssessReadiness(currentBalance, monthlyBurnRate float64, now time.Time) map[string]any {
	runway := Runway(currentBalance, monthlyBurnRate, now)

	runwayMonths := math.Inf(1)
	if v, ok := runway["runway_months"].(float64); ok {
		runwayMonths = v
	}

	var readiness, reason string
	switch {
	case currentBalance <= 0:
		readiness, reason = "not_ready", "Negative balance - focus on profitability"
	case runwayMonths < 3:
		readiness, reason = "not_ready", "Critical runway - preserve cash"
	case runwayMonths < 6:
		readiness, reason = "cautious", "Limited runway - minimal investment only"
	case runwayMonths < 12:
		readiness, reason = "ready", "Healthy runway - can invest conservatively"
	default:
		readiness, reason = "ready", "Strong runway - can invest moderately"
	}

	out := map[string]any{
		"readiness":       readiness,
		"reason":          reason,
		"runway_months":   runway["runway_months"],
		"current_balance": currentBalance,
		"runway_status":   runway["status"],
	}
	return out
}

// InvestmentCapacity reserves an emergency fund and allocates whatever is
// left across risk tiers. Allocation gets more aggressive as the balance
// multiple over the required fund grows.
func InvestmentCapacity(currentBalance, monthlyExpenses float64, emergencyFundMonths int) map[string]any {
	if emergencyFundMonths <= 0 {
		emergencyFundMonths = 6
	}
	required := monthlyExpenses * float64(emergencyFundMonths)
	investable := math.Max(0, currentBalance-required)

	var allocation map[string]any
	switch {
	case investable == 0:
		allocation = map[string]any{"emergency_fund": 100, "low_risk": 0, "moderate_risk": 0, "growth": 0}
	case currentBalance < required*1.5:
		allocation = map[string]any{"emergency_fund": 70, "low_risk": 30, "moderate_risk": 0, "growth": 0}
	case currentBalance < required*2:
		allocation = map[string]any{"emergency_fund": 50, "low_risk": 40, "moderate_risk": 10, "growth": 0}
	default:
		allocation = map[string]any{"emergency_fund": 40, "low_risk": 30, "moderate_risk": 20, "growth": 10}
	}

	amounts := make(map[string]any, len(allocation))
	for tier, pct := range allocation {
		amounts[tier] = round2(currentBalance * float64(pct.(int)) / 100)
	}

	return map[string]any{
		"current_balance":         currentBalance,
		"emergency_fund_required": round2(required),
		"emergency_fund_months":   emergencyFundMonths,
		"investable_amount":       round2(investable),
		"recommended_allocation":  allocation,
		"allocation_amounts":      amounts,
	}
}

// HealthScore combines runway, revenue growth and expense control into a
// 0-100 score with a rating and concrete recommendations.
func HealthScore(currentBalance, monthlyBurnRate, revenueGrowthRate, expenseGrowthRate float64) map[string]any {
	runwayScore := 40 // positive cash flow earns the full runway score
	if monthlyBurnRate > 0 {
		months := currentBalance / monthlyBurnRate
		switch {
		case months >= 18:
			runwayScore = 40
		case months >= 12:
			runwayScore = 35
		case months >= 6:
			runwayScore = 25
		case months >= 3:
			runwayScore = 15
		default:
			runwayScore = 5
		}
	}

	var revenueScore int
	switch {
	case revenueGrowthRate >= 20:
		revenueScore = 30
	case revenueGrowthRate >= 10:
		revenueScore = 25
	case revenueGrowthRate >= 0:
		revenueScore = 15
	default:
		revenueScore = 5
	}

	var expenseScore int
	switch {
	case expenseGrowthRate < revenueGrowthRate:
		expenseScore = 30
	case expenseGrowthRate < 5:
		expenseScore = 25
	case expenseGrowthRate < 15:
		expenseScore = 20
	case expenseGrowthRate < 30:
		expenseScore = 10
	default:
		expenseScore = 5
	}

	score := runwayScore + revenueScore + expenseScore
	var rating string
	switch {
	case score >= 80:
		rating = "Excellent"
	case score >= 60:
		rating = "Good"
	case score >= 40:
		rating = "Fair"
	case score >= 20:
		rating = "Poor"
	default:
		rating = "Critical"
	}

	var recommendations []string
	if runwayScore < 20 {
		recommendations = append(recommendations, "URGENT: Extend runway by reducing expenses or raising capital")
	} else if runwayScore < 30 {
		recommendations = append(recommendations, "Focus on extending runway to at least 12 months")
	}
	if revenueScore < 15 {
		recommendations = append(recommendations, "Prioritize revenue growth strategies")
	}
	if expenseScore < 20 {
		recommendations = append(recommendations, "Control expense growth - expenses growing too fast")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Maintain current trajectory")
	}

	return map[string]any{
		"health_score": score,
		"rating":       rating,
		"factors": map[string]any{
			"runway_score":          runwayScore,
			"revenue_growth_score":  revenueScore,
			"expense_control_score": expenseScore,
		},
		"recommendations": recommendations,
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func sum(m map[string]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}
