// Package ledger implements the group expense engine: share splitting,
// balance accumulation, and debt simplification. All amounts are integers in
// minor currency units (cents); the package performs no I/O and no floating
// point arithmetic on money except where percentages require it.
package ledger

import (
	"errors"
	"fmt"
)

// SplitMethod defines how an expense is divided among participants
type SplitMethod string

const (
	SplitEqual      SplitMethod = "EQUAL"
	SplitPercentage SplitMethod = "PERCENTAGE"
	SplitExact      SplitMethod = "EXACT"
)

// Participant is one member of a split with the method-specific inputs
type Participant struct {
	UserID     int64
	Percentage *float64 // For PERCENTAGE split
	Share      *int64   // For EXACT split, in minor units
}

// Share is the computed amount one participant owes toward an expense
type Share struct {
	UserID int64
	Amount int64 // minor units
}

// Strategy is the interface that all split strategies must implement
type Strategy interface {
	// Split computes each participant's share. The returned shares always
	// sum exactly to amount (conservation).
	Split(amount int64, participants []Participant) ([]Share, error)

	// Method returns the method identifier for this strategy
	Method() SplitMethod

	// Validate checks if the inputs are valid for this strategy
	Validate(amount int64, participants []Participant) error
}

// Factory creates split strategies based on the requested method
type Factory struct{}

// NewSplitStrategyFactory creates a new factory instance
func NewSplitStrategyFactory() *Factory {
	return &Factory{}
}

// Create returns the strategy implementation for the given method
func (f *Factory) Create(method SplitMethod) (Strategy, error) {
	switch method {
	case SplitEqual:
		return &EqualStrategy{}, nil
	case SplitPercentage:
		return &PercentageStrategy{}, nil
	case SplitExact:
		return &ExactStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// CreateFromString creates a strategy from a string method (useful for API requests)
func (f *Factory) CreateFromString(method string) (Strategy, error) {
	return f.Create(SplitMethod(method))
}

var (
	ErrUnknownMethod        = errors.New("unknown split method")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNoParticipants       = errors.New("no participants selected")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrPercentageMismatch   = errors.New("percentages must sum to 100")
	ErrMissingPercentage    = errors.New("percentage value required for all participants")
	ErrMissingShare         = errors.New("share amount required for all participants")
	ErrNegativeShare        = errors.New("share amounts cannot be negative")
	ErrShareSumMismatch     = errors.New("share amounts must sum to total amount")

	// ErrConservation indicates computed shares did not sum to the total.
	// This is an internal bug if it ever surfaces for valid input.
	ErrConservation = errors.New("computed shares do not sum to total amount")
)

// validateCommon checks the constraints shared by every strategy
func validateCommon(amount int64, participants []Participant) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[int64]struct{}, len(participants))
	for _, p := range participants {
		if _, dup := seen[p.UserID]; dup {
			return ErrDuplicateParticipant
		}
		seen[p.UserID] = struct{}{}
	}
	return nil
}

// checkConservation asserts the engine's central invariant on strategy output
func checkConservation(amount int64, shares []Share) error {
	var sum int64
	for _, s := range shares {
		if s.Amount < 0 {
			return ErrNegativeShare
		}
		sum += s.Amount
	}
	if sum != amount {
		return ErrConservation
	}
	return nil
}
