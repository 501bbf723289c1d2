package notification

import "time"

// Entity types a notification can point back to
const (
	EntityExpense    = "EXPENSE"
	EntitySettlement = "SETTLEMENT"
)

// Notification is a message delivered to a user about ledger activity
type Notification struct {
	ID                int64     `json:"id"`
	RecipientID       int64     `json:"recipient_id"`
	Message           string    `json:"message"`
	IsRead            bool      `json:"is_read"`
	RelatedEntityType string    `json:"related_entity_type"`
	RelatedEntityID   int64     `json:"related_entity_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID                int64  `json:"id"`
	Message           string `json:"message"`
	IsRead            bool   `json:"is_read"`
	RelatedEntityType string `json:"related_entity_type"`
	RelatedEntityID   int64  `json:"related_entity_id"`
	CreatedAt         string `json:"created_at"`
}

// ToResponse converts a Notification model to a NotificationResponse DTO
func (n *Notification) ToResponse() *NotificationResponse {
	return &NotificationResponse{
		ID:                n.ID,
		Message:           n.Message,
		IsRead:            n.IsRead,
		RelatedEntityType: n.RelatedEntityType,
		RelatedEntityID:   n.RelatedEntityID,
		CreatedAt:         n.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
