package generator

import "errors"

var (
	// ErrUnknownGenerator is returned by New for a name outside Names.
	ErrUnknownGenerator = errors.New("generator: unknown generator")

	// ErrInvalidParams is returned when a generator's size parameters yield no points or more than a uint32 can count.
	ErrInvalidParams = errors.New("generator: invalid parameters")
)
