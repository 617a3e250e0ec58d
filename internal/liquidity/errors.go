package liquidity

import "errors"

var (
	// ErrInvalidInput: бюджет, цена или USD-котировка вне области определения.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidRange: min >= max.
	ErrInvalidRange = errors.New("invalid price range: min must be less than max")
	// ErrDegenerateAllocation: знаменатель формулы обнулился или ушёл в Inf/NaN.
	ErrDegenerateAllocation = errors.New("degenerate allocation")
)
