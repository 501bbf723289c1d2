package settlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/tallyapp/tally/internal/ledger"
)

type fakeRepository struct {
	nextID      int64
	settlements map[int64]*Settlement
	balances    map[int64]ledger.Balances
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		nextID:      1,
		settlements: make(map[int64]*Settlement),
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

func (f *fakeRepository) Create(_ context.Context, s *Settlement) (*Settlement, error) {
	stored := *s
	stored.ID = f.nextID
	f.nextID++
	f.settlements[stored.ID] = &stored
	f.groupBalances(stored.GroupID).AddSettlement(stored.LedgerSettlement())
	return &stored, nil
}

func (f *fakeRepository) GetByID(_ context.Context, id int64) (*Settlement, error) {
	return f.settlements[id], nil
}

func (f *fakeRepository) ListByGroupID(_ context.Context, groupID int64, limit, offset int) ([]*Settlement, int, error) {
	var all []*Settlement
	for _, s := range f.settlements {
		if s.GroupID == groupID {
			all = append(all, s)
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

func (f *fakeRepository) Update(_ context.Context, s *Settlement) (*Settlement, error) {
	old, ok := f.settlements[s.ID]
	if !ok {
		return nil, ErrSettlementNotFound
	}
	stored := *s
	f.settlements[stored.ID] = &stored
	b := f.groupBalances(stored.GroupID)
	b.RemoveSettlement(old.LedgerSettlement())
	b.AddSettlement(stored.LedgerSettlement())
	return &stored, nil
}

func (f *fakeRepository) Delete(_ context.Context, id int64) error {
	old, ok := f.settlements[id]
	if !ok {
		return ErrSettlementNotFound
	}
	delete(f.settlements, id)
	f.groupBalances(old.GroupID).RemoveSettlement(old.LedgerSettlement())
	return nil
}

type recordingNotifier struct {
	recorded []*Settlement
}

func (n *recordingNotifier) SettlementRecorded(_ context.Context, s *Settlement) {
	n.recorded = append(n.recorded, s)
}

func newTestService(repo Repository, notifier Notifier) *Service {
	return NewService(repo, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateSettlement(t *testing.T) {
	repo := newFakeRepository()
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)

	created, err := svc.CreateSettlement(context.Background(), 2, &CreateSettlementRequest{
		GroupID:  1,
		ToUserID: 1,
		Amount:   "45.00",
	})
	if err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}

	if created.FromUserID != 2 {
		t.Errorf("from defaults to actor, got %d", created.FromUserID)
	}
	if created.Amount != 4500 {
		t.Errorf("amount = %d, want 4500", created.Amount)
	}

	// Paying raises the payer's net and lowers the recipient's.
	b := repo.groupBalances(1)
	if b[2] != 4500 || b[1] != -4500 {
		t.Errorf("balances = %v, want {2: 4500, 1: -4500}", b)
	}

	if len(notifier.recorded) != 1 {
		t.Errorf("notifications sent = %d, want 1", len(notifier.recorded))
	}
}

func TestCreateSettlementValidation(t *testing.T) {
	svc := newTestService(newFakeRepository(), nil)
	ctx := context.Background()

	t.Run("self settlement", func(t *testing.T) {
		_, err := svc.CreateSettlement(ctx, 1, &CreateSettlementRequest{
			GroupID: 1, ToUserID: 1, Amount: "10.00",
		})
		if !errors.Is(err, ErrCannotSettleSelf) {
			t.Errorf("error = %v, want ErrCannotSettleSelf", err)
		}
	})

	t.Run("explicit from equals to", func(t *testing.T) {
		_, err := svc.CreateSettlement(ctx, 1, &CreateSettlementRequest{
			GroupID: 1, FromUserID: 3, ToUserID: 3, Amount: "10.00",
		})
		if !errors.Is(err, ErrCannotSettleSelf) {
			t.Errorf("error = %v, want ErrCannotSettleSelf", err)
		}
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := svc.CreateSettlement(ctx, 1, &CreateSettlementRequest{
			GroupID: 1, ToUserID: 2, Amount: "0.00",
		})
		if err == nil {
			t.Error("expected error for zero amount")
		}
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := svc.CreateSettlement(ctx, 1, &CreateSettlementRequest{
			GroupID: 1, ToUserID: 2, Amount: "10.00", Date: "15-01-2026",
		})
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("error = %v, want ErrInvalidDate", err)
		}
	})
}

func TestUpdateSettlement(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateSettlement(ctx, 2, &CreateSettlementRequest{
		GroupID: 1, ToUserID: 1, Amount: "45.00",
	})
	if err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}

	t.Run("only payer can update", func(t *testing.T) {
		amount := "40.00"
		_, err := svc.UpdateSettlement(ctx, created.ID, 1, &UpdateSettlementRequest{Amount: &amount})
		if !errors.Is(err, ErrNotRecorder) {
			t.Errorf("error = %v, want ErrNotRecorder", err)
		}
	})

	t.Run("amount correction reconciles balances", func(t *testing.T) {
		amount := "40.00"
		updated, err := svc.UpdateSettlement(ctx, created.ID, 2, &UpdateSettlementRequest{Amount: &amount})
		if err != nil {
			t.Fatalf("UpdateSettlement: %v", err)
		}
		if updated.Amount != 4000 {
			t.Errorf("amount = %d, want 4000", updated.Amount)
		}
		if updated.FromUserID != 2 || updated.ToUserID != 1 {
			t.Errorf("parties changed: from %d to %d", updated.FromUserID, updated.ToUserID)
		}
		b := repo.groupBalances(1)
		if b[2] != 4000 || b[1] != -4000 {
			t.Errorf("balances = %v, want {2: 4000, 1: -4000}", b)
		}
	})

	t.Run("missing settlement", func(t *testing.T) {
		amount := "40.00"
		_, err := svc.UpdateSettlement(ctx, 404, 2, &UpdateSettlementRequest{Amount: &amount})
		if !errors.Is(err, ErrSettlementNotFound) {
			t.Errorf("error = %v, want ErrSettlementNotFound", err)
		}
	})
}

func TestDeleteSettlement(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateSettlement(ctx, 2, &CreateSettlementRequest{
		GroupID: 1, ToUserID: 1, Amount: "45.00",
	})
	if err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}

	if err := svc.DeleteSettlement(ctx, created.ID, 1); !errors.Is(err, ErrNotRecorder) {
		t.Errorf("non-payer delete error = %v, want ErrNotRecorder", err)
	}

	if err := svc.DeleteSettlement(ctx, created.ID, 2); err != nil {
		t.Fatalf("DeleteSettlement: %v", err)
	}

	b := repo.groupBalances(1)
	if b[1] != 0 || b[2] != 0 {
		t.Errorf("balances not reversed after delete: %v", b)
	}
}
