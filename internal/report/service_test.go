package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tallyapp/tally/internal/balance"
	"github.com/tallyapp/tally/internal/expense"
	"github.com/tallyapp/tally/internal/group"
	"github.com/tallyapp/tally/internal/ledger"
)

type fakeGroups struct {
	group *group.Group
}

func (f *fakeGroups) GetByID(_ context.Context, id int64) (*group.Group, error) {
	if f.group != nil && f.group.ID == id {
		return f.group, nil
	}
	return nil, nil
}

func (f *fakeGroups) IsMember(_ context.Context, _, _ int64) (bool, error) {
	return true, nil
}

type fakeExpenses struct {
	expenses []*expense.Expense
}

func (f *fakeExpenses) ListExpensesByGroupID(_ context.Context, _ int64, _, _ int) ([]*expense.Expense, int, error) {
	return f.expenses, len(f.expenses), nil
}

type fakeBalances struct {
	balances  []*balance.MemberBalance
	transfers []ledger.Transfer
}

func (f *fakeBalances) GetGroupBalances(_ context.Context, _ int64) ([]*balance.MemberBalance, error) {
	return f.balances, nil
}

func (f *fakeBalances) GetSuggestedTransfers(_ context.Context, _ int64) ([]ledger.Transfer, error) {
	return f.transfers, nil
}

func testStatement(t *testing.T) *Statement {
	t.Helper()

	svc := NewService(
		&fakeGroups{group: &group.Group{ID: 1, Name: "Ski Trip"}},
		&fakeExpenses{expenses: []*expense.Expense{
			{ID: 1, GroupID: 1, PayerID: 1, PayerName: "Alice", Description: "Cabin", Amount: 30000, Date: time.Now()},
			{ID: 2, GroupID: 1, PayerID: 2, PayerName: "Bob", Description: "Fuel", Amount: 6000, Date: time.Now()},
		}},
		&fakeBalances{
			balances: []*balance.MemberBalance{
				{GroupID: 1, UserID: 1, Name: "Alice", Net: 12000},
				{GroupID: 1, UserID: 2, Name: "Bob", Net: -12000},
			},
			transfers: []ledger.Transfer{{FromUserID: 2, ToUserID: 1, Amount: 12000}},
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	st, err := svc.GroupStatement(context.Background(), 1)
	if err != nil {
		t.Fatalf("GroupStatement: %v", err)
	}
	return st
}

func TestGroupStatement(t *testing.T) {
	st := testStatement(t)

	if st.TotalSpent != 36000 {
		t.Errorf("total spent = %d, want 36000", st.TotalSpent)
	}
	if st.TotalCount != 2 {
		t.Errorf("expense count = %d, want 2", st.TotalCount)
	}
	if len(st.Balances) != 2 || len(st.Transfers) != 1 {
		t.Errorf("balances = %d, transfers = %d", len(st.Balances), len(st.Transfers))
	}
}

func TestGroupStatementMissingGroup(t *testing.T) {
	svc := NewService(&fakeGroups{}, &fakeExpenses{}, &fakeBalances{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := svc.GroupStatement(context.Background(), 42)
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("error = %v, want ErrGroupNotFound", err)
	}
}

func TestRenderPDF(t *testing.T) {
	st := testStatement(t)

	data, err := RenderPDF(st)
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty pdf output")
	}
	if string(data[:5]) != "%PDF-" {
		t.Errorf("output does not start with a pdf header: %q", data[:5])
	}
}
