package ledger

import "math"

// =============================================================================
// PERCENTAGE SPLIT STRATEGY
// Divides the expense based on specified percentages for each participant
// =============================================================================

// percentageTolerance is how far the percentage sum may drift from 100
// before the input is rejected (covers client-side rounding of thirds etc.)
const percentageTolerance = 0.5

// PercentageStrategy implements the Strategy interface for percentage-based splits
type PercentageStrategy struct{}

// Method returns the split method identifier
func (s *PercentageStrategy) Method() SplitMethod {
	return SplitPercentage
}

// Validate checks if the inputs are valid for a percentage split
func (s *PercentageStrategy) Validate(amount int64, participants []Participant) error {
	if err := validateCommon(amount, participants); err != nil {
		return err
	}

	var total float64
	for _, p := range participants {
		if p.Percentage == nil {
			return ErrMissingPercentage
		}
		if *p.Percentage < 0 || *p.Percentage > 100 {
			return ErrPercentageMismatch
		}
		total += *p.Percentage
	}

	if math.Abs(total-100) > percentageTolerance {
		return ErrPercentageMismatch
	}
	return nil
}

// Split divides the amount by each participant's percentage using
// round-half-up, then corrects the rounding residual by moving one minor unit
// at a time to participants with a positive percentage, cycling in list
// order. The result is deterministic and sums exactly to amount.
func (s *PercentageStrategy) Split(amount int64, participants []Participant) ([]Share, error) {
	if err := s.Validate(amount, participants); err != nil {
		return nil, err
	}

	shares := make([]Share, len(participants))
	var distributed int64
	for i, p := range participants {
		share := roundHalfUp(float64(amount) * (*p.Percentage) / 100)
		shares[i] = Share{UserID: p.UserID, Amount: share}
		distributed += share
	}

	// Spread the residual one unit at a time over participants that carry a
	// positive percentage, so a 0% participant never picks up a stray cent.
	delta := amount - distributed
	step := int64(1)
	if delta < 0 {
		step = -1
	}
	for i := 0; delta != 0; i = (i + 1) % len(participants) {
		if *participants[i].Percentage <= 0 {
			continue
		}
		if step < 0 && shares[i].Amount == 0 {
			continue
		}
		shares[i].Amount += step
		delta -= step
	}

	if err := checkConservation(amount, shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// roundHalfUp rounds to the nearest integer, halves away from zero
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
