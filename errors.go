package mailscore

import (
	"errors"

	"github.com/optimode/mailscore/check"
)

var (
	// ErrNoResolver is returned when the validator was configured
	// with a nil DNS resolver.
	ErrNoResolver = errors.New("mailscore: nil MX resolver")

	// ErrEmptyBatch is returned by ValidateBulk for an empty input.
	ErrEmptyBatch = errors.New("mailscore: empty batch")

	// ErrBatchTooLarge is returned by ValidateBulk when the input
	// exceeds the allowed count.
	ErrBatchTooLarge = errors.New("mailscore: batch exceeds maximum size")

	// ErrResolverPanic is returned when the DNS resolver crashed.
	// It is the only infrastructure failure Validate reports.
	ErrResolverPanic = check.ErrResolverPanic
)
