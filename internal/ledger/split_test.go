package ledger

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func pf(v float64) *float64 { return &v }
func pi(v int64) *int64     { return &v }

func participants(ids ...int64) []Participant {
	ps := make([]Participant, len(ids))
	for i, id := range ids {
		ps[i] = Participant{UserID: id}
	}
	return ps
}

func sumShares(shares []Share) int64 {
	var sum int64
	for _, s := range shares {
		sum += s.Amount
	}
	return sum
}

func TestEqualSplit(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		participants []Participant
		want         []Share
		wantErr      error
	}{
		{
			name:         "1000 across three participants",
			amount:       1000,
			participants: participants(1, 2, 3),
			want:         []Share{{1, 334}, {2, 333}, {3, 333}},
		},
		{
			name:         "evenly divisible",
			amount:       900,
			participants: participants(1, 2, 3),
			want:         []Share{{1, 300}, {2, 300}, {3, 300}},
		},
		{
			name:         "single participant takes everything",
			amount:       1250,
			participants: participants(7),
			want:         []Share{{7, 1250}},
		},
		{
			name:         "one cent among many participants",
			amount:       1,
			participants: participants(1, 2, 3, 4, 5),
			want:         []Share{{1, 1}, {2, 0}, {3, 0}, {4, 0}, {5, 0}},
		},
		{
			name:         "zero amount",
			amount:       0,
			participants: participants(1, 2),
			wantErr:      ErrInvalidAmount,
		},
		{
			name:         "negative amount",
			amount:       -500,
			participants: participants(1, 2),
			wantErr:      ErrInvalidAmount,
		},
		{
			name:         "no participants",
			amount:       1000,
			participants: nil,
			wantErr:      ErrNoParticipants,
		},
		{
			name:         "duplicate participant",
			amount:       1000,
			participants: participants(1, 2, 1),
			wantErr:      ErrDuplicateParticipant,
		},
	}

	s := &EqualStrategy{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Split(tt.amount, tt.participants)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Split() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercentageSplit(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		participants []Participant
		want         []Share
		wantErr      error
	}{
		{
			name:   "50/30/20 of 10000",
			amount: 10000,
			participants: []Participant{
				{UserID: 1, Percentage: pf(50)},
				{UserID: 2, Percentage: pf(30)},
				{UserID: 3, Percentage: pf(20)},
			},
			want: []Share{{1, 5000}, {2, 3000}, {3, 2000}},
		},
		{
			name:   "thirds of 100 leave a residual",
			amount: 100,
			participants: []Participant{
				{UserID: 1, Percentage: pf(33.33)},
				{UserID: 2, Percentage: pf(33.33)},
				{UserID: 3, Percentage: pf(33.34)},
			},
			// 33+33+33=99, the leftover cent goes to the first participant
			want: []Share{{1, 34}, {2, 33}, {3, 33}},
		},
		{
			name:   "zero percent participant never gets the residual",
			amount: 101,
			participants: []Participant{
				{UserID: 1, Percentage: pf(0)},
				{UserID: 2, Percentage: pf(50)},
				{UserID: 3, Percentage: pf(50)},
			},
			// 0+51+51=102, one cent comes back off user 2
			want: []Share{{1, 0}, {2, 50}, {3, 51}},
		},
		{
			name:   "percentages short of 100",
			amount: 1000,
			participants: []Participant{
				{UserID: 1, Percentage: pf(40)},
				{UserID: 2, Percentage: pf(40)},
			},
			wantErr: ErrPercentageMismatch,
		},
		{
			name:   "percentage out of range",
			amount: 1000,
			participants: []Participant{
				{UserID: 1, Percentage: pf(120)},
				{UserID: 2, Percentage: pf(-20)},
			},
			wantErr: ErrPercentageMismatch,
		},
		{
			name:   "missing percentage",
			amount: 1000,
			participants: []Participant{
				{UserID: 1, Percentage: pf(50)},
				{UserID: 2},
			},
			wantErr: ErrMissingPercentage,
		},
	}

	s := &PercentageStrategy{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Split(tt.amount, tt.participants)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Split() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExactSplit(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		participants []Participant
		want         []Share
		wantErr      error
	}{
		{
			name:   "shares sum to total",
			amount: 900,
			participants: []Participant{
				{UserID: 1, Share: pi(450)},
				{UserID: 2, Share: pi(450)},
			},
			want: []Share{{1, 450}, {2, 450}},
		},
		{
			name:   "shares off by one cent",
			amount: 900,
			participants: []Participant{
				{UserID: 1, Share: pi(450)},
				{UserID: 2, Share: pi(449)},
			},
			wantErr: ErrShareSumMismatch,
		},
		{
			name:   "negative share",
			amount: 100,
			participants: []Participant{
				{UserID: 1, Share: pi(200)},
				{UserID: 2, Share: pi(-100)},
			},
			wantErr: ErrNegativeShare,
		},
		{
			name:   "missing share",
			amount: 100,
			participants: []Participant{
				{UserID: 1, Share: pi(100)},
				{UserID: 2},
			},
			wantErr: ErrMissingShare,
		},
	}

	s := &ExactStrategy{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Split(tt.amount, tt.participants)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Split() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSplitConservation hammers EQUAL and PERCENTAGE with random inputs and
// checks that shares always sum exactly to the amount, are never negative,
// and that a repeated call returns identical output.
func TestSplitConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	factory := NewSplitStrategyFactory()

	for iter := 0; iter < 500; iter++ {
		n := 1 + rng.Intn(12)
		amount := 1 + rng.Int63n(1_000_000)

		ps := make([]Participant, n)
		remaining := 100.0
		for i := range ps {
			ps[i].UserID = int64(i + 1)
			var pct float64
			if i == n-1 {
				pct = remaining
			} else {
				pct = float64(rng.Intn(int(remaining*100)+1)) / 100
				remaining -= pct
			}
			ps[i].Percentage = &pct
		}

		for _, method := range []SplitMethod{SplitEqual, SplitPercentage} {
			strategy, err := factory.Create(method)
			if err != nil {
				t.Fatalf("Create(%s): %v", method, err)
			}
			shares, err := strategy.Split(amount, ps)
			if err != nil {
				t.Fatalf("%s Split(amount=%d, n=%d): %v", method, amount, n, err)
			}
			if got := sumShares(shares); got != amount {
				t.Fatalf("%s conservation broken: sum=%d, amount=%d", method, got, amount)
			}
			for _, s := range shares {
				if s.Amount < 0 {
					t.Fatalf("%s produced negative share %+v", method, s)
				}
			}
			again, err := strategy.Split(amount, ps)
			if err != nil {
				t.Fatalf("%s repeat Split: %v", method, err)
			}
			if !reflect.DeepEqual(shares, again) {
				t.Fatalf("%s not deterministic: %v vs %v", method, shares, again)
			}
		}
	}
}

func TestFactoryUnknownMethod(t *testing.T) {
	factory := NewSplitStrategyFactory()
	if _, err := factory.CreateFromString("HALVSIES"); err == nil {
		t.Error("expected error for unknown split method")
	}
	for _, m := range []string{"EQUAL", "PERCENTAGE", "EXACT"} {
		strategy, err := factory.CreateFromString(m)
		if err != nil {
			t.Fatalf("CreateFromString(%s): %v", m, err)
		}
		if string(strategy.Method()) != m {
			t.Errorf("Method() = %s, want %s", strategy.Method(), m)
		}
	}
}
