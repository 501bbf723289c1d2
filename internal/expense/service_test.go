package expense

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/tallyapp/tally/internal/ledger"
)

// fakeRepository keeps expenses in memory and maintains per-group balances
// the same way the SQL implementation does, so tests can assert that
// service-level writes keep the ledger consistent.
type fakeRepository struct {
	nextID      int64
	expenses    map[int64]*ExpenseWithParticipants
	idempotency map[string]int64
	balances    map[int64]ledger.Balances
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		nextID:      1,
		expenses:    make(map[int64]*ExpenseWithParticipants),
		idempotency: make(map[string]int64),
		balances:    make(map[int64]ledger.Balances),
	}
}

func (f *fakeRepository) groupBalances(groupID int64) ledger.Balances {
	b, ok := f.balances[groupID]
	if !ok {
		b = make(ledger.Balances)
		f.balances[groupID] = b
	}
	return b
}

func (f *fakeRepository) Create(_ context.Context, e *Expense, shares []ledger.Share, idempotencyKey string) (*ExpenseWithParticipants, error) {
	if idempotencyKey != "" {
		if id, ok := f.idempotency[idempotencyKey]; ok {
			return f.expenses[id], nil
		}
	}

	stored := *e
	stored.ID = f.nextID
	f.nextID++

	participants := make([]*Participant, len(shares))
	for i, s := range shares {
		participants[i] = &Participant{ExpenseID: stored.ID, UserID: s.UserID, ShareAmount: s.Amount}
	}

	result := &ExpenseWithParticipants{Expense: &stored, Participants: participants}
	f.expenses[stored.ID] = result
	f.groupBalances(stored.GroupID).AddExpense(result.LedgerExpense())

	if idempotencyKey != "" {
		f.idempotency[idempotencyKey] = stored.ID
	}
	return result, nil
}

func (f *fakeRepository) GetByID(_ context.Context, id int64) (*ExpenseWithParticipants, error) {
	return f.expenses[id], nil
}

func (f *fakeRepository) ListByGroupID(_ context.Context, groupID int64, limit, offset int) ([]*Expense, int, error) {
	var all []*Expense
	for _, e := range f.expenses {
		if e.Expense.GroupID == groupID {
			all = append(all, e.Expense)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeRepository) Update(_ context.Context, e *Expense, shares []ledger.Share) (*ExpenseWithParticipants, error) {
	old, ok := f.expenses[e.ID]
	if !ok {
		return nil, ErrExpenseNotFound
	}

	stored := *e
	participants := make([]*Participant, len(shares))
	for i, s := range shares {
		participants[i] = &Participant{ExpenseID: stored.ID, UserID: s.UserID, ShareAmount: s.Amount}
	}

	result := &ExpenseWithParticipants{Expense: &stored, Participants: participants}
	f.expenses[stored.ID] = result

	b := f.groupBalances(stored.GroupID)
	b.RemoveExpense(old.LedgerExpense())
	b.AddExpense(result.LedgerExpense())
	return result, nil
}

func (f *fakeRepository) Delete(_ context.Context, id int64) error {
	old, ok := f.expenses[id]
	if !ok {
		return ErrExpenseNotFound
	}
	delete(f.expenses, id)
	f.groupBalances(old.Expense.GroupID).RemoveExpense(old.LedgerExpense())
	return nil
}

type recordingNotifier struct {
	expenseIDs     []int64
	participantIDs [][]int64
}

func (n *recordingNotifier) ExpenseAdded(_ context.Context, e *Expense, participantIDs []int64) {
	n.expenseIDs = append(n.expenseIDs, e.ID)
	n.participantIDs = append(n.participantIDs, participantIDs)
}

func newTestService(repo Repository, notifier Notifier) *Service {
	return NewService(repo, ledger.NewSplitStrategyFactory(), notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func equalRequest(amount string, userIDs ...int64) *CreateExpenseRequest {
	participants := make([]*ParticipantInput, len(userIDs))
	for i, id := range userIDs {
		participants[i] = &ParticipantInput{UserID: id}
	}
	return &CreateExpenseRequest{
		GroupID:      1,
		Description:  "Dinner",
		Amount:       amount,
		SplitMethod:  string(ledger.SplitEqual),
		Participants: participants,
	}
}

func TestCreateExpenseEqualSplit(t *testing.T) {
	repo := newFakeRepository()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)

	created, err := svc.CreateExpense(context.Background(), 1, equalRequest("90.00", 1, 2, 3), "")
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	if created.Expense.Amount != 9000 {
		t.Errorf("amount = %d, want 9000", created.Expense.Amount)
	}
	if created.Expense.PayerID != 1 {
		t.Errorf("payer defaults to actor, got %d", created.Expense.PayerID)
	}
	for _, p := range created.Participants {
		if p.ShareAmount != 3000 {
			t.Errorf("share for user %d = %d, want 3000", p.UserID, p.ShareAmount)
		}
	}

	// Payer covered 90.00 and owes a 30.00 share of it.
	b := repo.groupBalances(1)
	want := ledger.Balances{1: 6000, 2: -3000, 3: -3000}
	for userID, net := range want {
		if b[userID] != net {
			t.Errorf("balance[%d] = %d, want %d", userID, b[userID], net)
		}
	}

	if len(notifier.expenseIDs) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(notifier.expenseIDs))
	}
	if got := notifier.participantIDs[0]; len(got) != 2 {
		t.Errorf("notified participants = %v, want the two non-payers", got)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	svc := newTestService(newFakeRepository(), nil)
	ctx := context.Background()

	pct := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		req     *CreateExpenseRequest
		wantErr error
	}{
		{
			name:    "no participants",
			req:     equalRequest("10.00"),
			wantErr: ledger.ErrNoParticipants,
		},
		{
			name:    "duplicate participant",
			req:     equalRequest("10.00", 1, 1),
			wantErr: ledger.ErrDuplicateParticipant,
		},
		{
			name: "percentages off",
			req: &CreateExpenseRequest{
				GroupID:     1,
				Description: "Rent",
				Amount:      "100.00",
				SplitMethod: string(ledger.SplitPercentage),
				Participants: []*ParticipantInput{
					{UserID: 1, Percentage: pct(60)},
					{UserID: 2, Percentage: pct(30)},
				},
			},
			wantErr: ledger.ErrPercentageMismatch,
		},
		{
			name: "unknown method",
			req: &CreateExpenseRequest{
				GroupID:      1,
				Description:  "Rent",
				Amount:       "100.00",
				SplitMethod:  "SHARES",
				Participants: []*ParticipantInput{{UserID: 1}},
			},
			wantErr: ledger.ErrUnknownMethod,
		},
		{
			name: "bad date",
			req: func() *CreateExpenseRequest {
				r := equalRequest("10.00", 1, 2)
				r.Date = "2026/01/15"
				return r
			}(),
			wantErr: ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateExpense(ctx, 1, tt.req, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateExpense error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateExpenseIdempotency(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	key := "3b9d1a52-8f13-4c64-9e07-2f5a6b7c8d90"
	first, err := svc.CreateExpense(ctx, 1, equalRequest("30.00", 1, 2), key)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.CreateExpense(ctx, 1, equalRequest("30.00", 1, 2), key)
	if err != nil {
		t.Fatalf("retried create: %v", err)
	}

	if first.Expense.ID != second.Expense.ID {
		t.Errorf("retry created a new expense: %d vs %d", first.Expense.ID, second.Expense.ID)
	}
	if b := repo.groupBalances(1); b[1] != 1500 || b[2] != -1500 {
		t.Errorf("retry double-applied balances: %v", b)
	}
}

func TestUpdateExpense(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, 1, equalRequest("60.00", 1, 2, 3), "")
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	t.Run("only payer can update", func(t *testing.T) {
		desc := "Brunch"
		_, err := svc.UpdateExpense(ctx, created.Expense.ID, 2, &UpdateExpenseRequest{Description: &desc})
		if !errors.Is(err, ErrNotPayer) {
			t.Errorf("error = %v, want ErrNotPayer", err)
		}
	})

	t.Run("metadata update keeps shares", func(t *testing.T) {
		desc := "Brunch"
		updated, err := svc.UpdateExpense(ctx, created.Expense.ID, 1, &UpdateExpenseRequest{Description: &desc})
		if err != nil {
			t.Fatalf("UpdateExpense: %v", err)
		}
		if updated.Expense.Description != "Brunch" {
			t.Errorf("description = %q", updated.Expense.Description)
		}
		for _, p := range updated.Participants {
			if p.ShareAmount != 2000 {
				t.Errorf("share changed on metadata update: %d", p.ShareAmount)
			}
		}
	})

	t.Run("amount change recomputes equal shares", func(t *testing.T) {
		amount := "90.00"
		updated, err := svc.UpdateExpense(ctx, created.Expense.ID, 1, &UpdateExpenseRequest{Amount: &amount})
		if err != nil {
			t.Fatalf("UpdateExpense: %v", err)
		}
		for _, p := range updated.Participants {
			if p.ShareAmount != 3000 {
				t.Errorf("share = %d, want 3000", p.ShareAmount)
			}
		}
		b := repo.groupBalances(1)
		if b[1] != 6000 || b[2] != -3000 || b[3] != -3000 {
			t.Errorf("balances not reconciled after update: %v", b)
		}
	})

	t.Run("missing expense", func(t *testing.T) {
		desc := "Nope"
		_, err := svc.UpdateExpense(ctx, 404, 1, &UpdateExpenseRequest{Description: &desc})
		if !errors.Is(err, ErrExpenseNotFound) {
			t.Errorf("error = %v, want ErrExpenseNotFound", err)
		}
	})
}

func TestUpdateExpenseNeedsParticipantsForExact(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	share := func(v string) *string { return &v }
	created, err := svc.CreateExpense(ctx, 1, &CreateExpenseRequest{
		GroupID:     1,
		Description: "Groceries",
		Amount:      "25.00",
		SplitMethod: string(ledger.SplitExact),
		Participants: []*ParticipantInput{
			{UserID: 1, ShareAmount: share("10.00")},
			{UserID: 2, ShareAmount: share("15.00")},
		},
	}, "")
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	amount := "30.00"
	_, err = svc.UpdateExpense(ctx, created.Expense.ID, 1, &UpdateExpenseRequest{Amount: &amount})
	if !errors.Is(err, ErrParticipantsRequired) {
		t.Errorf("error = %v, want ErrParticipantsRequired", err)
	}

	// Resubmitting shares that match the new amount succeeds.
	updated, err := svc.UpdateExpense(ctx, created.Expense.ID, 1, &UpdateExpenseRequest{
		Amount: &amount,
		Participants: []*ParticipantInput{
			{UserID: 1, ShareAmount: share("12.00")},
			{UserID: 2, ShareAmount: share("18.00")},
		},
	})
	if err != nil {
		t.Fatalf("UpdateExpense with participants: %v", err)
	}
	if updated.Participants[0].ShareAmount != 1200 || updated.Participants[1].ShareAmount != 1800 {
		t.Errorf("shares = %d, %d", updated.Participants[0].ShareAmount, updated.Participants[1].ShareAmount)
	}
}

func TestDeleteExpense(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, 1, equalRequest("40.00", 1, 2), "")
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	if err := svc.DeleteExpense(ctx, created.Expense.ID, 2); !errors.Is(err, ErrNotPayer) {
		t.Errorf("non-payer delete error = %v, want ErrNotPayer", err)
	}

	if err := svc.DeleteExpense(ctx, created.Expense.ID, 1); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}

	b := repo.groupBalances(1)
	if b[1] != 0 || b[2] != 0 {
		t.Errorf("balances not reversed after delete: %v", b)
	}
	if err := svc.DeleteExpense(ctx, created.Expense.ID, 1); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("second delete error = %v, want ErrExpenseNotFound", err)
	}
}
