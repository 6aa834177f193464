package shape

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when an input or initial state does not
	// match the configured model dimensions.
	ErrShapeMismatch = errors.New("shape: shape mismatch")

	// ErrRank is returned for inputs that are neither rank 2 nor rank 3.
	ErrRank = fmt.Errorf("%w: input must be rank 2 or 3", ErrShapeMismatch)
)

// ShapeMismatchError reports the observed and expected sizes of a rejected
// operand. It matches ErrShapeMismatch under errors.Is.
type ShapeMismatchError struct {
	What     string
	Given    []int
	Expected []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape: given %s size %v does not match expected size %v", e.What, e.Given, e.Expected)
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}
