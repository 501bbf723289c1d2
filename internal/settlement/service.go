package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tallyapp/tally/pkg/money"
)

// Common errors
var (
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrNotRecorder        = errors.New("only the paying user can modify this settlement")
	ErrUnknownMember      = errors.New("user is not a member of this group")
	ErrCannotSettleSelf   = errors.New("cannot settle with yourself")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
)

// Notifier receives best-effort notifications about ledger events
type Notifier interface {
	SettlementRecorded(ctx context.Context, s *Settlement)
}

// Service handles settlement business logic
type Service struct {
	repo     Repository
	notifier Notifier
	log      *slog.Logger
}

// NewService creates a new settlement service with dependencies injected
func NewService(repo Repository, notifier Notifier, log *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, log: log}
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// CreateSettlement records a repayment from one member to another. It raises
// the payer's net and lowers the recipient's by the amount.
func (s *Service) CreateSettlement(ctx context.Context, actorID int64, req *CreateSettlementRequest) (*Settlement, error) {
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	fromID := req.FromUserID
	if fromID == 0 {
		fromID = actorID
	}
	if fromID == req.ToUserID {
		return nil, ErrCannotSettleSelf
	}

	created, err := s.repo.Create(ctx, &Settlement{
		GroupID:    req.GroupID,
		FromUserID: fromID,
		ToUserID:   req.ToUserID,
		Amount:     amount,
		Note:       req.Note,
		Date:       date,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("settlement recorded",
		"settlement_id", created.ID,
		"group_id", created.GroupID,
		"from_user_id", created.FromUserID,
		"to_user_id", created.ToUserID,
		"amount", created.Amount)

	if s.notifier != nil {
		s.notifier.SettlementRecorded(ctx, created)
	}
	return created, nil
}

// GetSettlementByID retrieves a settlement
func (s *Service) GetSettlementByID(ctx context.Context, id int64) (*Settlement, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrSettlementNotFound
	}
	return st, nil
}

// ListSettlementsByGroupID retrieves settlements for a group, newest first
func (s *Service) ListSettlementsByGroupID(ctx context.Context, groupID int64, page, perPage int) ([]*Settlement, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage
	return s.repo.ListByGroupID(ctx, groupID, perPage, offset)
}

// UpdateSettlement corrects the amount, note, or date of a settlement. Only
// the paying user may do so, and the parties are immutable: correcting who
// paid whom means deleting the record and creating a new one.
func (s *Service) UpdateSettlement(ctx context.Context, id, actorID int64, req *UpdateSettlementRequest) (*Settlement, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrSettlementNotFound
	}
	if existing.FromUserID != actorID {
		return nil, ErrNotRecorder
	}

	updated := *existing
	if req.Amount != nil {
		amount, err := money.ParsePositive(*req.Amount)
		if err != nil {
			return nil, err
		}
		updated.Amount = amount
	}
	if req.Note != nil {
		updated.Note = req.Note
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		updated.Date = date
	}

	return s.repo.Update(ctx, &updated)
}

// DeleteSettlement removes a settlement and reverses its balance effect
func (s *Service) DeleteSettlement(ctx context.Context, id, actorID int64) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrSettlementNotFound
	}
	if existing.FromUserID != actorID {
		return ErrNotRecorder
	}
	return s.repo.Delete(ctx, id)
}
