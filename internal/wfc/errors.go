package wfc

import "errors"

var (
	// ErrInvalidDomain indicates a tile domain that cannot be used, most often
	// because a tile has a non-positive weight.
	ErrInvalidDomain = errors.New("wfc: invalid tile domain")
	// ErrInvalidRule indicates a rule with an unknown direction, a negative
	// weight, or a tile outside the domain.
	ErrInvalidRule = errors.New("wfc: invalid adjacency rule")
	// ErrDimension indicates non-positive grid dimensions or a sample whose
	// cell count does not match its declared size.
	ErrDimension = errors.New("wfc: invalid grid dimensions")
	// ErrEmptyCandidates means a cell lost every candidate. The propagation
	// safeguard makes this unreachable; seeing it is a programming error.
	ErrEmptyCandidates = errors.New("wfc: empty candidate set")
)
