// Package budget enforces the process-wide daily spend cap.
package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/forgeloop-io/forgeloop/internal/config"
	"github.com/forgeloop-io/forgeloop/internal/models"
)

const dateFormat = "2006-01-02"

// Tracker is the daily spend ledger. A reservation is a commitment: the
// check and the deduction happen under one lock, so spent never exceeds
// the cap. The ledger rolls over lazily when the date advances.
type Tracker struct {
	mu     sync.Mutex
	ledger *models.BudgetLedger
	now    func() time.Time // test hook
}

// NewTracker loads the budget ledger and returns a tracker.
func NewTracker(capUSD float64) (*Tracker, error) {
	ledger, err := config.LoadBudgetLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to load budget ledger: %w", err)
	}
	if capUSD > 0 {
		ledger.DailyCapUSD = capUSD
	}
	t := &Tracker{ledger: ledger, now: time.Now}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.rolloverLocked(); err != nil {
		return nil, err
	}
	return t, nil
}

// rolloverLocked resets the ledger when the wall-clock date has advanced
// past the stored date. Caller holds t.mu.
func (t *Tracker) rolloverLocked() error {
	today := t.now().Format(dateFormat)
	if t.ledger.Date == today {
		return nil
	}
	t.ledger.Date = today
	t.ledger.SpentUSD = 0
	t.ledger.Tasks = 0
	return config.SaveBudgetLedger(t.ledger)
}

// Reserve atomically checks that amount fits under today's cap and commits
// the spend on allow. There is no separate commit phase and no partial
// spend: a denied reservation leaves the ledger untouched.
func (t *Tracker) Reserve(amountUSD float64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.rolloverLocked(); err != nil {
		return false, err
	}
	if t.ledger.SpentUSD+amountUSD > t.ledger.DailyCapUSD {
		return false, nil
	}
	t.ledger.SpentUSD += amountUSD
	t.ledger.Tasks++
	if err := config.SaveBudgetLedger(t.ledger); err != nil {
		t.ledger.SpentUSD -= amountUSD
		t.ledger.Tasks--
		return false, err
	}
	return true, nil
}

// Record adjusts today's spend without a cap check: positive to settle
// real agent costs after the fact, negative to refund an unused
// reservation. The cap gates new work, not costs already incurred.
func (t *Tracker) Record(amountUSD float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.rolloverLocked(); err != nil {
		return err
	}
	t.ledger.SpentUSD += amountUSD
	if t.ledger.SpentUSD < 0 {
		// Refund settlements are bounded by prior reservations; only float
		// drift can land below zero.
		t.ledger.SpentUSD = 0
	}
	return config.SaveBudgetLedger(t.ledger)
}

// Remaining returns today's unspent budget.
func (t *Tracker) Remaining() (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.rolloverLocked(); err != nil {
		return 0, err
	}
	rem := t.ledger.DailyCapUSD - t.ledger.SpentUSD
	if rem < 0 {
		rem = 0
	}
	return rem, nil
}

// Spent returns today's spend so far.
func (t *Tracker) Spent() (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.rolloverLocked(); err != nil {
		return 0, err
	}
	return t.ledger.SpentUSD, nil
}

// TasksToday returns the number of reservations committed today.
func (t *Tracker) TasksToday() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.rolloverLocked(); err != nil {
		return 0, err
	}
	return t.ledger.Tasks, nil
}

// Cap returns the daily cap.
func (t *Tracker) Cap() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.DailyCapUSD
}

// SetCap updates the daily cap and persists the ledger.
func (t *Tracker) SetCap(capUSD float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ledger.DailyCapUSD = capUSD
	return config.SaveBudgetLedger(t.ledger)
}
