package balance

import (
	"time"

	"github.com/tallyapp/tally/pkg/money"
)

// MemberBalance is one group member's net position. Net is in minor
// currency units: positive means the group owes them, negative means they
// owe the group, zero means settled.
type MemberBalance struct {
	GroupID   int64     `json:"group_id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Net       int64     `json:"net"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceResponse represents one member's net position in a response
type BalanceResponse struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Net      string `json:"net"`
}

// ToResponse converts a MemberBalance to a BalanceResponse DTO
func (b *MemberBalance) ToResponse() *BalanceResponse {
	return &BalanceResponse{
		UserID:   b.UserID,
		Name:     b.Name,
		Username: b.Username,
		Net:      money.Format(b.Net),
	}
}

// TransferResponse is one suggested repayment in a settle-up plan
type TransferResponse struct {
	FromUserID int64  `json:"from_user_id"`
	ToUserID   int64  `json:"to_user_id"`
	Amount     string `json:"amount"`
}

// AuditResponse reports whether the materialized balances match a full
// recomputation over the ledger rows
type AuditResponse struct {
	GroupID       int64                  `json:"group_id"`
	Consistent    bool                   `json:"consistent"`
	Discrepancies []*DiscrepancyResponse `json:"discrepancies,omitempty"`
}

// DiscrepancyResponse is one user whose cached net disagrees with the ledger
type DiscrepancyResponse struct {
	UserID     int64  `json:"user_id"`
	Cached     string `json:"cached"`
	Recomputed string `json:"recomputed"`
}
