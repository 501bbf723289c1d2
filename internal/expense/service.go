package expense

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tallyapp/tally/internal/ledger"
	"github.com/tallyapp/tally/pkg/money"
)

// Common errors
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrNotPayer        = errors.New("only the payer can modify this expense")
	ErrUnknownMember   = errors.New("user is not a member of this group")
	ErrInvalidDate     = errors.New("invalid date, expected YYYY-MM-DD")

	// ErrParticipantsRequired is returned when an update changes the amount
	// or split method of a PERCENTAGE or EXACT expense without resubmitting
	// the participant inputs needed to recompute shares.
	ErrParticipantsRequired = errors.New("participant list required to recompute shares")
)

// Notifier receives best-effort notifications about ledger events
type Notifier interface {
	ExpenseAdded(ctx context.Context, e *Expense, participantIDs []int64)
}

// Service handles expense business logic. Every write validates the
// conservation invariant (shares sum exactly to the amount) before anything
// reaches the repository.
type Service struct {
	repo         Repository
	splitFactory *ledger.Factory
	notifier     Notifier
	log          *slog.Logger
}

// NewService creates a new expense service with dependencies injected
func NewService(repo Repository, splitFactory *ledger.Factory, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		splitFactory: splitFactory,
		notifier:     notifier,
		log:          log,
	}
}

// computeShares parses the split inputs and runs the appropriate strategy
func (s *Service) computeShares(method string, amount int64, inputs []*ParticipantInput) ([]ledger.Share, error) {
	strategy, err := s.splitFactory.CreateFromString(method)
	if err != nil {
		return nil, err
	}

	participants := make([]ledger.Participant, len(inputs))
	for i, in := range inputs {
		p := ledger.Participant{UserID: in.UserID, Percentage: in.Percentage}
		if in.ShareAmount != nil {
			share, err := money.Parse(*in.ShareAmount)
			if err != nil {
				return nil, err
			}
			p.Share = &share
		}
		participants[i] = p
	}

	return strategy.Split(amount, participants)
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

// CreateExpense validates the split, computes shares, and persists the
// expense together with its balance deltas in one transaction. If an
// idempotency key is supplied and was seen before, the previously created
// expense is returned instead of a duplicate.
func (s *Service) CreateExpense(ctx context.Context, actorID int64, req *CreateExpenseRequest, idempotencyKey string) (*ExpenseWithParticipants, error) {
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	payerID := req.PayerID
	if payerID == 0 {
		payerID = actorID
	}

	shares, err := s.computeShares(req.SplitMethod, amount, req.Participants)
	if err != nil {
		return nil, err
	}

	e := &Expense{
		GroupID:     req.GroupID,
		PayerID:     payerID,
		Description: req.Description,
		Category:    req.Category,
		Amount:      amount,
		SplitMethod: req.SplitMethod,
		Date:        date,
	}

	created, err := s.repo.Create(ctx, e, shares, idempotencyKey)
	if err != nil {
		return nil, err
	}
	s.log.Info("expense created",
		"expense_id", created.Expense.ID,
		"group_id", created.Expense.GroupID,
		"amount", created.Expense.Amount,
		"split_method", created.Expense.SplitMethod)

	if s.notifier != nil {
		ids := make([]int64, 0, len(created.Participants))
		for _, p := range created.Participants {
			if p.UserID != payerID {
				ids = append(ids, p.UserID)
			}
		}
		s.notifier.ExpenseAdded(ctx, created.Expense, ids)
	}

	return created, nil
}

// GetExpenseByID retrieves an expense with its participants
func (s *Service) GetExpenseByID(ctx context.Context, id int64) (*ExpenseWithParticipants, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}
	return e, nil
}

// ListExpensesByGroupID retrieves expenses for a group, newest first
func (s *Service) ListExpensesByGroupID(ctx context.Context, groupID int64, page, perPage int) ([]*Expense, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage
	return s.repo.ListByGroupID(ctx, groupID, perPage, offset)
}

// UpdateExpense applies an update. If the amount, split method, or
// participant list changes, the whole participant set is replaced and every
// share recomputed; balance deltas for the before and after states are
// reconciled in the same transaction.
func (s *Service) UpdateExpense(ctx context.Context, id, actorID int64, req *UpdateExpenseRequest) (*ExpenseWithParticipants, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrExpenseNotFound
	}
	if existing.Expense.PayerID != actorID {
		return nil, ErrNotPayer
	}

	updated := *existing.Expense
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Category != nil {
		updated.Category = req.Category
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		updated.Date = date
	}
	if req.Amount != nil {
		amount, err := money.ParsePositive(*req.Amount)
		if err != nil {
			return nil, err
		}
		updated.Amount = amount
	}
	if req.SplitMethod != nil {
		updated.SplitMethod = *req.SplitMethod
	}

	var shares []ledger.Share
	if req.Amount != nil || req.SplitMethod != nil || req.Participants != nil {
		inputs := req.Participants
		if inputs == nil {
			// Amount changed with the same participant set: recompute from
			// the stored list. Only EQUAL carries enough information for
			// that; PERCENTAGE and EXACT need the inputs resubmitted.
			if updated.SplitMethod != string(ledger.SplitEqual) {
				return nil, ErrParticipantsRequired
			}
			inputs = make([]*ParticipantInput, len(existing.Participants))
			for i, p := range existing.Participants {
				inputs[i] = &ParticipantInput{UserID: p.UserID}
			}
		}
		shares, err = s.computeShares(updated.SplitMethod, updated.Amount, inputs)
		if err != nil {
			return nil, err
		}
	} else {
		// Metadata-only update keeps the stored shares
		shares = make([]ledger.Share, len(existing.Participants))
		for i, p := range existing.Participants {
			shares[i] = ledger.Share{UserID: p.UserID, Amount: p.ShareAmount}
		}
	}

	return s.repo.Update(ctx, &updated, shares)
}

// DeleteExpense removes an expense and reverses its balance contribution
func (s *Service) DeleteExpense(ctx context.Context, id, actorID int64) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrExpenseNotFound
	}
	if existing.Expense.PayerID != actorID {
		return ErrNotPayer
	}
	return s.repo.Delete(ctx, id)
}
