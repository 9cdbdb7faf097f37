package testutil

import (
	"time"

	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/gateway"
	"github.com/hupe1980/finsight/tools/finance"
)

// BasicTransactions is the minimal dataset used throughout the tests: one
// income of 10000 and expenses of 5000 and 8000. Against an initial capital
// of 100000 the resulting balance is 97000.
func BasicTransactions(now time.Time) []finance.Transaction {
	return []finance.Transaction{
		{Date: now.AddDate(0, 0, -20), Amount: 10000, Type: finance.Income, Category: "Revenue"},
		{Date: now.AddDate(0, 0, -15), Amount: 5000, Type: finance.Expense, Category: "Salaries"},
		{Date: now.AddDate(0, 0, -10), Amount: 8000, Type: finance.Expense, Category: "Infrastructure"},
	}
}

// MonthlyTransactions spreads recurring income and expenses over the given
// number of trailing months for burn rate and growth tests.
func MonthlyTransactions(now time.Time, months int, income, expenses float64) []finance.Transaction {
	var txs []finance.Transaction
	for m := 0; m < months; m++ {
		date := now.AddDate(0, -m, 0)
		txs = append(txs,
			finance.Transaction{Date: date, Amount: income, Type: finance.Income, Category: "Revenue"},
			finance.Transaction{Date: date, Amount: expenses, Type: finance.Expense, Category: "Operations"},
		)
	}
	return txs
}

// TextCompletion builds a final-answer gateway step.
func TextCompletion(text string) gateway.MockStep {
	return gateway.MockStep{Completion: &gateway.Completion{Text: text}}
}

// ToolCallCompletion builds a gateway step requesting a single tool call.
func ToolCallCompletion(callID, name string, args map[string]any) gateway.MockStep {
	return gateway.MockStep{Completion: &gateway.Completion{
		ToolCalls: []core.ToolCall{{ID: callID, Name: name, Arguments: args}},
	}}
}

// ErrCompletion builds a gateway step that fails with the given error.
func ErrCompletion(err error) gateway.MockStep {
	return gateway.MockStep{Err: err}
}
