package settlement

import (
	"github.com/tallyapp/tally/pkg/money"
)

// CreateSettlementRequest represents the request to record a settlement.
// Amount is a decimal currency string.
type CreateSettlementRequest struct {
	GroupID    int64   `json:"group_id" validate:"required"`
	FromUserID int64   `json:"from_user_id,omitempty"` // defaults to the authenticated user
	ToUserID   int64   `json:"to_user_id" validate:"required"`
	Amount     string  `json:"amount" validate:"required"`
	Note       *string `json:"note,omitempty" validate:"omitempty,max=255"`
	Date       string  `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

// UpdateSettlementRequest represents the request to correct a settlement.
// Only the amount, note, and date can change; the parties are immutable.
type UpdateSettlementRequest struct {
	Amount *string `json:"amount,omitempty"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=255"`
	Date   *string `json:"date,omitempty"`
}

// SettlementResponse represents the response for a settlement
type SettlementResponse struct {
	ID         int64   `json:"id"`
	GroupID    int64   `json:"group_id"`
	FromUserID int64   `json:"from_user_id"`
	FromName   string  `json:"from_name,omitempty"`
	ToUserID   int64   `json:"to_user_id"`
	ToName     string  `json:"to_name,omitempty"`
	Amount     string  `json:"amount"`
	Note       *string `json:"note,omitempty"`
	Date       string  `json:"date"`
	CreatedAt  string  `json:"created_at"`
}

// ToResponse converts a Settlement model to a SettlementResponse DTO
func (s *Settlement) ToResponse() *SettlementResponse {
	return &SettlementResponse{
		ID:         s.ID,
		GroupID:    s.GroupID,
		FromUserID: s.FromUserID,
		FromName:   s.FromName,
		ToUserID:   s.ToUserID,
		ToName:     s.ToName,
		Amount:     money.Format(s.Amount),
		Note:       s.Note,
		Date:       s.Date.Format("2006-01-02"),
		CreatedAt:  s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
