package models

// BudgetLedger represents the daily spend ledger.
// This corresponds to ~/.forgeloop/budget.yaml, rewritten on every spend.
// Date is the ISO day the ledger covers; when the wall clock advances past
// it the spend and task counter reset.
type BudgetLedger struct {
	Version     int     `yaml:"version"`
	Date        string  `yaml:"date"` // YYYY-MM-DD
	SpentUSD    float64 `yaml:"spent_usd"`
	Tasks       int     `yaml:"tasks"`
	DailyCapUSD float64 `yaml:"daily_cap_usd"`
}

// NewBudgetLedger creates a ledger with the default daily cap and no spend.
func NewBudgetLedger() *BudgetLedger {
	return &BudgetLedger{
		Version:     1,
		DailyCapUSD: DefaultDailyCapUSD,
	}
}
