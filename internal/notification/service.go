package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tallyapp/tally/internal/expense"
	"github.com/tallyapp/tally/internal/settlement"
	"github.com/tallyapp/tally/pkg/money"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Service delivers and reads notifications. Delivery is best effort: a
// failed insert is logged and never fails the ledger write that caused it.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService creates a new notification service
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ExpenseAdded notifies every participant except the payer
func (s *Service) ExpenseAdded(ctx context.Context, e *expense.Expense, participantIDs []int64) {
	message := fmt.Sprintf("%s added a %s expense %q and your group owes a share",
		payerLabel(e), money.Format(e.Amount), e.Description)

	for _, recipientID := range participantIDs {
		n := &Notification{
			RecipientID:       recipientID,
			Message:           message,
			RelatedEntityType: EntityExpense,
			RelatedEntityID:   e.ID,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			s.log.Warn("failed to deliver expense notification",
				"expense_id", e.ID,
				"recipient_id", recipientID,
				"error", err)
		}
	}
}

func payerLabel(e *expense.Expense) string {
	if e.PayerName != "" {
		return e.PayerName
	}
	return fmt.Sprintf("User %d", e.PayerID)
}

// SettlementRecorded notifies the receiving party
func (s *Service) SettlementRecorded(ctx context.Context, st *settlement.Settlement) {
	n := &Notification{
		RecipientID:       st.ToUserID,
		Message:           fmt.Sprintf("You were paid %s to settle up", money.Format(st.Amount)),
		RelatedEntityType: EntitySettlement,
		RelatedEntityID:   st.ID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Warn("failed to deliver settlement notification",
			"settlement_id", st.ID,
			"recipient_id", st.ToUserID,
			"error", err)
	}
}

// List retrieves the user's notifications, newest first
func (s *Service) List(ctx context.Context, recipientID int64, unreadOnly bool, page, perPage int) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage
	return s.repo.ListByRecipient(ctx, recipientID, unreadOnly, perPage, offset)
}

// MarkRead marks one of the user's notifications as read
func (s *Service) MarkRead(ctx context.Context, id, recipientID int64) error {
	ok, err := s.repo.MarkRead(ctx, id, recipientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read and
// returns how many changed
func (s *Service) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipientID)
}
