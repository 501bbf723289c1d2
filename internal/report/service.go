package report

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tallyapp/tally/internal/balance"
	"github.com/tallyapp/tally/internal/expense"
	"github.com/tallyapp/tally/internal/group"
	"github.com/tallyapp/tally/internal/ledger"
)

// Common errors
var (
	ErrGroupNotFound = errors.New("group not found")
)

// How many expense rows a statement includes at most
const maxStatementRows = 500

// GroupReader exposes the group lookups a statement needs
type GroupReader interface {
	GetByID(ctx context.Context, id int64) (*group.Group, error)
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// ExpenseReader lists a group's expenses
type ExpenseReader interface {
	ListExpensesByGroupID(ctx context.Context, groupID int64, page, perPage int) ([]*expense.Expense, int, error)
}

// BalanceReader reads net positions and settle-up plans
type BalanceReader interface {
	GetGroupBalances(ctx context.Context, groupID int64) ([]*balance.MemberBalance, error)
	GetSuggestedTransfers(ctx context.Context, groupID int64) ([]ledger.Transfer, error)
}

// Statement is a full snapshot of a group's ledger: its expenses, every
// member's net position, and the transfers that would settle it
type Statement struct {
	Group      *group.Group
	Expenses   []*expense.Expense
	TotalCount int
	TotalSpent int64
	Balances   []*balance.MemberBalance
	Transfers  []ledger.Transfer
}

// Service assembles group statements
type Service struct {
	groups   GroupReader
	expenses ExpenseReader
	balances BalanceReader
	log      *slog.Logger
}

// NewService creates a new report service
func NewService(groups GroupReader, expenses ExpenseReader, balances BalanceReader, log *slog.Logger) *Service {
	return &Service{groups: groups, expenses: expenses, balances: balances, log: log}
}

// GroupStatement gathers everything a statement shows for one group
func (s *Service) GroupStatement(ctx context.Context, groupID int64) (*Statement, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, group.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}

	expenses, total, err := s.expenses.ListExpensesByGroupID(ctx, groupID, 1, maxStatementRows)
	if err != nil {
		return nil, err
	}

	var totalSpent int64
	for _, e := range expenses {
		totalSpent += e.Amount
	}

	balances, err := s.balances.GetGroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	transfers, err := s.balances.GetSuggestedTransfers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return &Statement{
		Group:      g,
		Expenses:   expenses,
		TotalCount: total,
		TotalSpent: totalSpent,
		Balances:   balances,
		Transfers:  transfers,
	}, nil
}
