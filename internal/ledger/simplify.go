package ledger

import "sort"

// =============================================================================
// DEBT SIMPLIFIER
// Minimal set of transfers that would zero out all balances
// =============================================================================

// Transfer is a suggested payment from one member to another. It is a view
// value only: never persisted and never applied to balances by this package.
type Transfer struct {
	FromUserID int64
	ToUserID   int64
	Amount     int64
}

// party is one side of the matching with its outstanding magnitude
type party struct {
	userID int64
	amount int64
}

// Simplify produces a minimal list of transfers that would settle the group.
// Greedy matching: the largest outstanding debt is paired with the largest
// outstanding credit, the smaller of the two is transferred, and whichever
// side reaches zero drops out. Each step settles at least one party, so the
// result has at most n-1 transfers for n unsettled members. Ordering is
// deterministic: by magnitude descending, then by member id.
func Simplify(balances Balances) []Transfer {
	var creditors, debtors []party
	for id, net := range balances {
		switch {
		case net > 0:
			creditors = append(creditors, party{userID: id, amount: net})
		case net < 0:
			debtors = append(debtors, party{userID: id, amount: -net})
		}
	}

	sortParties(creditors)
	sortParties(debtors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount < amount {
			amount = creditors[j].amount
		}

		transfers = append(transfers, Transfer{
			FromUserID: debtors[i].userID,
			ToUserID:   creditors[j].userID,
			Amount:     amount,
		})

		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}

	return transfers
}

func sortParties(ps []party) {
	sort.Slice(ps, func(a, b int) bool {
		if ps[a].amount != ps[b].amount {
			return ps[a].amount > ps[b].amount
		}
		return ps[a].userID < ps[b].userID
	})
}
