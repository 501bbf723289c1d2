package ledger

// =============================================================================
// EQUAL SPLIT STRATEGY
// Divides the expense equally among all participants
// =============================================================================

// EqualStrategy implements the Strategy interface for equal splits
type EqualStrategy struct{}

// Method returns the split method identifier
func (s *EqualStrategy) Method() SplitMethod {
	return SplitEqual
}

// Validate checks if the inputs are valid for an equal split
func (s *EqualStrategy) Validate(amount int64, participants []Participant) error {
	return validateCommon(amount, participants)
}

// Split divides the amount evenly among all participants. Integer division
// leaves 0 <= remainder < n minor units; the first `remainder` participants
// (in list order) carry one extra unit so the shares sum exactly to amount.
func (s *EqualStrategy) Split(amount int64, participants []Participant) ([]Share, error) {
	if err := s.Validate(amount, participants); err != nil {
		return nil, err
	}

	n := int64(len(participants))
	base := amount / n
	remainder := amount - base*n

	shares := make([]Share, len(participants))
	for i, p := range participants {
		share := base
		if int64(i) < remainder {
			share++
		}
		shares[i] = Share{UserID: p.UserID, Amount: share}
	}

	if err := checkConservation(amount, shares); err != nil {
		return nil, err
	}
	return shares, nil
}
