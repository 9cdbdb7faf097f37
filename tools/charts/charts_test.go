package charts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finsight/artifact"
	"github.com/hupe1980/finsight/tool"
	"github.com/hupe1980/finsight/tools/finance"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func sampleTransactions() []finance.Transaction {
	return []finance.Transaction{
		{Date: testNow.AddDate(0, -2, 0), Amount: 8000, Type: finance.Income, Category: "Revenue"},
		{Date: testNow.AddDate(0, -2, 0), Amount: 10000, Type: finance.Expense, Category: "Salaries"},
		{Date: testNow.AddDate(0, -1, 0), Amount: 9000, Type: finance.Income, Category: "Revenue"},
		{Date: testNow.AddDate(0, -1, 0), Amount: 11000, Type: finance.Expense, Category: "Salaries"},
		{Date: testNow.AddDate(0, -1, 0), Amount: 2000, Type: finance.Expense, Category: "Office"},
	}
}

func TestBurnRateChart(t *testing.T) {
	out := BurnRateChart(sampleTransactions(), 12, testNow)

	data := out["data"].([]map[string]any)
	require.Len(t, data, 2)
	// oldest month first
	assert.Equal(t, 2000.0, data[0]["burn_rate"])
	assert.Equal(t, 4000.0, data[1]["burn_rate"])
	assert.Equal(t, -4000.0, data[1]["net_cash_flow"])
}

func TestCategoryBreakdownChart(t *testing.T) {
	out := CategoryBreakdownChart(sampleTransactions(), finance.Expense, 10)

	data := out["data"].([]map[string]any)
	require.Len(t, data, 2)
	assert.Equal(t, "Salaries", data[0]["category"])
	assert.Equal(t, 21000.0, data[0]["amount"])
	assert.Equal(t, 23000.0, out["total"])

	t.Run("folds overflow into Other", func(t *testing.T) {
		out := CategoryBreakdownChart(sampleTransactions(), finance.Expense, 1)
		data := out["data"].([]map[string]any)
		require.Len(t, data, 2)
		assert.Equal(t, "Other", data[1]["category"])
		assert.Equal(t, 2000.0, data[1]["amount"])
	})
}

func TestRunwayForecastChart(t *testing.T) {
	out := RunwayForecastChart(10000, 4000, 6, testNow)

	data := out["data"].([]map[string]any)
	require.Len(t, data, 7)
	assert.Equal(t, false, data[0]["is_projected"])
	// 10000, 6000, 2000, then depleted
	assert.Equal(t, 3, out["depletion_month"])
	assert.Equal(t, 0.0, data[3]["balance"])

	t.Run("no depletion with zero burn", func(t *testing.T) {
		out := RunwayForecastChart(10000, 0, 3, testNow)
		assert.Nil(t, out["depletion_month"])
	})
}

func TestBalanceHistoryChart(t *testing.T) {
	out := BalanceHistoryChart(50000, sampleTransactions(), 12, testNow)

	data := out["data"].([]map[string]any)
	require.Len(t, data, 2)
	assert.Equal(t, 48000.0, data[0]["balance"])
	assert.Equal(t, 44000.0, data[1]["balance"])
	assert.Equal(t, 44000.0, out["final_balance"])
}

func TestToolsetPersistsArtifacts(t *testing.T) {
	store := artifact.NewInMemoryStore()
	r := tool.NewRegistry()
	ts := &Toolset{
		Transactions:   sampleTransactions(),
		InitialCapital: 50000,
		Artifacts:      store,
		SessionID:      "run_1",
		Clock:          func() time.Time { return testNow },
	}
	require.NoError(t, ts.Register(r))

	out, err := r.Execute(context.Background(), "generate_runway_forecast", map[string]any{
		"current_balance":   10000.0,
		"monthly_burn_rate": 4000.0,
	})
	require.NoError(t, err)

	id, ok := out["artifact_id"].(string)
	require.True(t, ok)

	raw, err := store.Get("run_1", id)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "runway_forecast_chart", payload["type"])
}

func TestToolsetWithoutStoreReturnsPayload(t *testing.T) {
	r := tool.NewRegistry()
	ts := &Toolset{Transactions: sampleTransactions(), Clock: func() time.Time { return testNow }}
	require.NoError(t, ts.Register(r))

	out, err := r.Execute(context.Background(), "generate_burn_rate_chart", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "burn_rate_chart", out["type"])
	assert.NotContains(t, out, "artifact_id")
}
