package balance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tallyapp/tally/internal/ledger"
)

type fakeRepository struct {
	members    []*MemberBalance
	recomputed ledger.Balances
}

func (f *fakeRepository) GetGroupBalances(_ context.Context, groupID int64) ([]*MemberBalance, error) {
	var out []*MemberBalance
	for _, m := range f.members {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRepository) GetMemberBalance(_ context.Context, groupID, userID int64) (*MemberBalance, error) {
	for _, m := range f.members {
		if m.GroupID == groupID && m.UserID == userID {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) RecomputeGroup(_ context.Context, _ int64) (ledger.Balances, error) {
	return f.recomputed, nil
}

func member(groupID, userID, net int64) *MemberBalance {
	return &MemberBalance{
		GroupID:   groupID,
		UserID:    userID,
		Net:       net,
		UpdatedAt: time.Now(),
	}
}

func newTestService(repo Repository) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGetMemberBalance(t *testing.T) {
	repo := &fakeRepository{members: []*MemberBalance{
		member(1, 1, 4500),
		member(1, 2, 0),
	}}
	svc := newTestService(repo)
	ctx := context.Background()

	b, err := svc.GetMemberBalance(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetMemberBalance: %v", err)
	}
	if b.Net != 4500 {
		t.Errorf("net = %d, want 4500", b.Net)
	}

	// A member with no activity is settled, not missing.
	b, err = svc.GetMemberBalance(ctx, 1, 2)
	if err != nil {
		t.Fatalf("GetMemberBalance settled member: %v", err)
	}
	if b.Net != 0 {
		t.Errorf("settled member net = %d, want 0", b.Net)
	}

	if _, err := svc.GetMemberBalance(ctx, 1, 99); !errors.Is(err, ErrNotGroupMember) {
		t.Errorf("non-member error = %v, want ErrNotGroupMember", err)
	}
}

func TestGetSuggestedTransfers(t *testing.T) {
	repo := &fakeRepository{members: []*MemberBalance{
		member(1, 1, 6000),
		member(1, 2, -3000),
		member(1, 3, -3000),
		member(1, 4, 0),
	}}
	svc := newTestService(repo)

	transfers, err := svc.GetSuggestedTransfers(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetSuggestedTransfers: %v", err)
	}

	if len(transfers) != 2 {
		t.Fatalf("transfers = %d, want 2", len(transfers))
	}
	remaining := ledger.Balances{1: 6000, 2: -3000, 3: -3000}
	for _, tr := range transfers {
		if tr.FromUserID == tr.ToUserID || tr.Amount <= 0 {
			t.Errorf("invalid transfer %+v", tr)
		}
		remaining[tr.FromUserID] += tr.Amount
		remaining[tr.ToUserID] -= tr.Amount
	}
	for userID, net := range remaining {
		if net != 0 {
			t.Errorf("user %d left with %d after plan", userID, net)
		}
	}
}

func TestAudit(t *testing.T) {
	t.Run("consistent", func(t *testing.T) {
		repo := &fakeRepository{
			members: []*MemberBalance{
				member(1, 1, 4500),
				member(1, 2, -4500),
			},
			recomputed: ledger.Balances{1: 4500, 2: -4500},
		}
		result, err := newTestService(repo).Audit(context.Background(), 1)
		if err != nil {
			t.Fatalf("Audit: %v", err)
		}
		if !result.Consistent || len(result.Discrepancies) != 0 {
			t.Errorf("result = %+v, want consistent with no discrepancies", result)
		}
	})

	t.Run("drifted cache", func(t *testing.T) {
		repo := &fakeRepository{
			members: []*MemberBalance{
				member(1, 1, 4500),
				member(1, 2, -4400),
			},
			recomputed: ledger.Balances{1: 4500, 2: -4500},
		}
		result, err := newTestService(repo).Audit(context.Background(), 1)
		if err != nil {
			t.Fatalf("Audit: %v", err)
		}
		if result.Consistent {
			t.Error("drift not detected")
		}
		if len(result.Discrepancies) != 1 {
			t.Fatalf("discrepancies = %d, want 1", len(result.Discrepancies))
		}
		d := result.Discrepancies[0]
		if d.UserID != 2 || d.Cached != "-44.00" || d.Recomputed != "-45.00" {
			t.Errorf("discrepancy = %+v", d)
		}
	})
}
