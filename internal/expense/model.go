package expense

import (
	"time"

	"github.com/tallyapp/tally/internal/ledger"
)

// Expense represents one cost event paid by a single member of a group.
// Amount and participant shares are minor currency units.
type Expense struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	PayerID     int64     `json:"payer_id"`
	Description string    `json:"description"`
	Category    *string   `json:"category,omitempty"`
	Amount      int64     `json:"amount"`
	SplitMethod string    `json:"split_method"` // EQUAL, PERCENTAGE, EXACT
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`

	// Populated via JOIN
	PayerName string `json:"payer_name,omitempty"`
}

// Participant is one member's share of an expense
type Participant struct {
	ID          int64 `json:"id"`
	ExpenseID   int64 `json:"expense_id"`
	UserID      int64 `json:"user_id"`
	ShareAmount int64 `json:"share_amount"`

	// Populated via JOIN
	Name string `json:"name,omitempty"`
}

// ExpenseWithParticipants combines an expense with its participant shares
type ExpenseWithParticipants struct {
	Expense      *Expense
	Participants []*Participant
}

// LedgerExpense converts to the ledger engine's expense view
func (e *ExpenseWithParticipants) LedgerExpense() ledger.Expense {
	shares := make([]ledger.Share, len(e.Participants))
	for i, p := range e.Participants {
		shares[i] = ledger.Share{UserID: p.UserID, Amount: p.ShareAmount}
	}
	return ledger.Expense{PayerID: e.Expense.PayerID, Amount: e.Expense.Amount, Shares: shares}
}
