package config

import (
	"github.com/forgeloop-io/forgeloop/internal/models"
)

// LoadBudgetLedger loads the budget ledger from ~/.forgeloop/budget.yaml.
// If the file doesn't exist, returns a fresh ledger.
func LoadBudgetLedger() (*models.BudgetLedger, error) {
	path, err := GlobalBudgetFile()
	if err != nil {
		return nil, err
	}
	return LoadYAMLOrDefault(path, models.NewBudgetLedger)
}

// SaveBudgetLedger saves the budget ledger to ~/.forgeloop/budget.yaml.
func SaveBudgetLedger(ledger *models.BudgetLedger) error {
	if err := EnsureGlobalDir(); err != nil {
		return err
	}
	path, err := GlobalBudgetFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, ledger)
}
