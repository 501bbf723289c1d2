package settlement

import (
	"time"

	"github.com/tallyapp/tally/internal/ledger"
)

// Settlement represents a direct repayment between two group members.
// Amount is stored in minor currency units. FromName and ToName are joined
// from users for display and are not persisted on this table.
type Settlement struct {
	ID         int64     `json:"id"`
	GroupID    int64     `json:"group_id"`
	FromUserID int64     `json:"from_user_id"`
	ToUserID   int64     `json:"to_user_id"`
	Amount     int64     `json:"amount"`
	Note       *string   `json:"note,omitempty"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"created_at"`

	FromName string `json:"from_name,omitempty"`
	ToName   string `json:"to_name,omitempty"`
}

// LedgerSettlement converts the record to its engine form
func (s *Settlement) LedgerSettlement() ledger.Settlement {
	return ledger.Settlement{
		FromUserID: s.FromUserID,
		ToUserID:   s.ToUserID,
		Amount:     s.Amount,
	}
}
