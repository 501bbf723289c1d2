package ledger

// =============================================================================
// EXACT SPLIT STRATEGY
// Each participant owes a specific exact amount (must sum to total)
// =============================================================================

// ExactStrategy implements the Strategy interface for exact amount splits
type ExactStrategy struct{}

// Method returns the split method identifier
func (s *ExactStrategy) Method() SplitMethod {
	return SplitExact
}

// Validate checks if the inputs are valid for an exact split
func (s *ExactStrategy) Validate(amount int64, participants []Participant) error {
	if err := validateCommon(amount, participants); err != nil {
		return err
	}

	var total int64
	for _, p := range participants {
		if p.Share == nil {
			return ErrMissingShare
		}
		if *p.Share < 0 {
			return ErrNegativeShare
		}
		total += *p.Share
	}

	// Minor units are exact, so unlike percentages there is no tolerance
	if total != amount {
		return ErrShareSumMismatch
	}
	return nil
}

// Split returns the exact amounts specified for each participant
func (s *ExactStrategy) Split(amount int64, participants []Participant) ([]Share, error) {
	if err := s.Validate(amount, participants); err != nil {
		return nil, err
	}

	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{UserID: p.UserID, Amount: *p.Share}
	}

	if err := checkConservation(amount, shares); err != nil {
		return nil, err
	}
	return shares, nil
}
