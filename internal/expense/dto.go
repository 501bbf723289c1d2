package expense

import (
	"github.com/tallyapp/tally/pkg/money"
)

// ParticipantInput names one participant in a split request. Percentage is
// used by PERCENTAGE splits; ShareAmount (a decimal string like "4.50") by
// EXACT splits.
type ParticipantInput struct {
	UserID      int64    `json:"user_id" validate:"required"`
	Percentage  *float64 `json:"percentage,omitempty"`
	ShareAmount *string  `json:"share_amount,omitempty"`
}

// CreateExpenseRequest represents the request to create an expense.
// Amount is a decimal currency string; conversion to minor units happens
// here at the boundary.
type CreateExpenseRequest struct {
	GroupID      int64               `json:"group_id" validate:"required"`
	PayerID      int64               `json:"payer_id,omitempty"` // defaults to the authenticated user
	Description  string              `json:"description" validate:"required,min=1,max=255"`
	Category     *string             `json:"category,omitempty" validate:"omitempty,max=50"`
	Amount       string              `json:"amount" validate:"required"`
	Date         string              `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	SplitMethod  string              `json:"split_method" validate:"required,oneof=EQUAL PERCENTAGE EXACT"`
	Participants []*ParticipantInput `json:"participants" validate:"required,min=1"`
}

// UpdateExpenseRequest represents the request to update an expense.
// Changing the amount, split method, or participant list replaces the whole
// participant set and recomputes every share; shares are never patched
// individually.
type UpdateExpenseRequest struct {
	Description  *string             `json:"description,omitempty" validate:"omitempty,min=1,max=255"`
	Category     *string             `json:"category,omitempty" validate:"omitempty,max=50"`
	Date         *string             `json:"date,omitempty"`
	Amount       *string             `json:"amount,omitempty"`
	SplitMethod  *string             `json:"split_method,omitempty" validate:"omitempty,oneof=EQUAL PERCENTAGE EXACT"`
	Participants []*ParticipantInput `json:"participants,omitempty"`
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID           int64                  `json:"id"`
	GroupID      int64                  `json:"group_id"`
	PayerID      int64                  `json:"payer_id"`
	PayerName    string                 `json:"payer_name,omitempty"`
	Description  string                 `json:"description"`
	Category     *string                `json:"category,omitempty"`
	Amount       string                 `json:"amount"`
	SplitMethod  string                 `json:"split_method"`
	Date         string                 `json:"date"`
	CreatedAt    string                 `json:"created_at"`
	Participants []*ParticipantResponse `json:"participants,omitempty"`
}

// ParticipantResponse represents one participant share in a response
type ParticipantResponse struct {
	UserID      int64  `json:"user_id"`
	Name        string `json:"name,omitempty"`
	ShareAmount string `json:"share_amount"`
}

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	return &ExpenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PayerID:     e.PayerID,
		PayerName:   e.PayerName,
		Description: e.Description,
		Category:    e.Category,
		Amount:      money.Format(e.Amount),
		SplitMethod: e.SplitMethod,
		Date:        e.Date.Format("2006-01-02"),
		CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts an ExpenseWithParticipants model to a response DTO
func (e *ExpenseWithParticipants) ToResponse() *ExpenseResponse {
	resp := e.Expense.ToResponse()
	resp.Participants = make([]*ParticipantResponse, len(e.Participants))
	for i, p := range e.Participants {
		resp.Participants[i] = p.ToResponse()
	}
	return resp
}

// ToResponse converts a Participant model to a ParticipantResponse DTO
func (p *Participant) ToResponse() *ParticipantResponse {
	return &ParticipantResponse{
		UserID:      p.UserID,
		Name:        p.Name,
		ShareAmount: money.Format(p.ShareAmount),
	}
}
