package ledger

import (
	"math/rand"
	"reflect"
	"testing"
)

// applyTransfers plays suggested transfers back onto a copy of the balances
func applyTransfers(balances Balances, transfers []Transfer) Balances {
	b := balances.Clone()
	for _, tr := range transfers {
		b[tr.FromUserID] += tr.Amount
		b[tr.ToUserID] -= tr.Amount
	}
	return b
}

func TestSimplify(t *testing.T) {
	tests := []struct {
		name     string
		balances Balances
		want     []Transfer
	}{
		{
			name:     "single debtor single creditor",
			balances: Balances{1: -500, 2: 500},
			want:     []Transfer{{FromUserID: 1, ToUserID: 2, Amount: 500}},
		},
		{
			name:     "one creditor covers two debtors",
			balances: Balances{1: 900, 2: -450, 3: -450},
			want: []Transfer{
				{FromUserID: 2, ToUserID: 1, Amount: 450},
				{FromUserID: 3, ToUserID: 1, Amount: 450},
			},
		},
		{
			name:     "largest debt pairs with largest credit first",
			balances: Balances{1: 700, 2: 300, 3: -600, 4: -400},
			want: []Transfer{
				{FromUserID: 3, ToUserID: 1, Amount: 600},
				{FromUserID: 4, ToUserID: 1, Amount: 100},
				{FromUserID: 4, ToUserID: 2, Amount: 300},
			},
		},
		{
			name:     "all settled",
			balances: Balances{1: 0, 2: 0},
			want:     nil,
		},
		{
			name:     "empty group",
			balances: Balances{},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Simplify(tt.balances)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Simplify() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSimplifySettlesRandomGroups checks on random balance sets that applying
// every suggested transfer zeroes all balances, that no transfer is
// non-positive, and that the transfer count stays below the number of
// unsettled members.
func TestSimplifySettlesRandomGroups(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for iter := 0; iter < 300; iter++ {
		n := 2 + rng.Intn(10)
		balances := make(Balances)

		// Build a zero-sum balance set
		var running int64
		for id := int64(1); id < int64(n); id++ {
			v := rng.Int63n(20_001) - 10_000
			balances[id] = v
			running += v
		}
		balances[int64(n)] = -running

		unsettled := 0
		for _, net := range balances {
			if net != 0 {
				unsettled++
			}
		}

		transfers := Simplify(balances)

		if unsettled > 0 && len(transfers) > unsettled-1 {
			t.Fatalf("iter %d: %d transfers for %d unsettled members", iter, len(transfers), unsettled)
		}
		for _, tr := range transfers {
			if tr.Amount <= 0 {
				t.Fatalf("iter %d: non-positive transfer %+v", iter, tr)
			}
			if tr.FromUserID == tr.ToUserID {
				t.Fatalf("iter %d: self transfer %+v", iter, tr)
			}
		}

		settled := applyTransfers(balances, transfers)
		for id, net := range settled {
			if net != 0 {
				t.Fatalf("iter %d: member %d still at %d after transfers", iter, id, net)
			}
		}

		// Same input twice must yield the same plan
		if again := Simplify(balances); !reflect.DeepEqual(transfers, again) {
			t.Fatalf("iter %d: Simplify not deterministic", iter)
		}
	}
}
