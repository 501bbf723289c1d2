package ledger

// =============================================================================
// BALANCE ACCUMULATOR
// Net position per member: positive = owed money, negative = owes money
// =============================================================================

// Expense is the minimal expense view the accumulator needs: who paid the
// full amount and what each participant's share is. Shares are assumed to sum
// to Amount; that invariant is enforced where expenses are written.
type Expense struct {
	PayerID int64
	Amount  int64
	Shares  []Share
}

// Settlement is a direct payment from one member to another clearing debt
type Settlement struct {
	FromUserID int64
	ToUserID   int64
	Amount     int64
}

// Balances maps member id to net balance in minor units. A member missing
// from the map has a net of zero; distinguishing "zero balance" from "not a
// group member" is the caller's concern.
type Balances map[int64]int64

// AddExpense applies one expense: the payer is credited the full amount and
// every participant is debited their share. A payer who is also a participant
// nets amount minus their own share; a payer who is not listed nets the full
// amount.
func (b Balances) AddExpense(e Expense) {
	b[e.PayerID] += e.Amount
	for _, s := range e.Shares {
		b[s.UserID] -= s.Amount
	}
}

// RemoveExpense reverses AddExpense
func (b Balances) RemoveExpense(e Expense) {
	b[e.PayerID] -= e.Amount
	for _, s := range e.Shares {
		b[s.UserID] += s.Amount
	}
}

// AddSettlement applies a direct payment: paying down debt raises the payer's
// net and lowers the receiver's.
func (b Balances) AddSettlement(s Settlement) {
	b[s.FromUserID] += s.Amount
	b[s.ToUserID] -= s.Amount
}

// RemoveSettlement reverses AddSettlement
func (b Balances) RemoveSettlement(s Settlement) {
	b[s.FromUserID] -= s.Amount
	b[s.ToUserID] += s.Amount
}

// Clone returns a copy of the balance map
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for id, net := range b {
		out[id] = net
	}
	return out
}

// ComputeBalances recomputes every member's net from the full event history.
// This is the reference semantics; incrementally maintained balances must
// equal its result at all times.
func ComputeBalances(expenses []Expense, settlements []Settlement) Balances {
	b := make(Balances)
	for _, e := range expenses {
		b.AddExpense(e)
	}
	for _, s := range settlements {
		b.AddSettlement(s)
	}
	return b
}
