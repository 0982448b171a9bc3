package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformed indicates a frame whose length does not match its code.
var ErrMalformed = errors.New("malformed message")

func errShort(what string, got, want int) error {
	return fmt.Errorf("%w: %s is %d bytes, want %d", ErrMalformed, what, got, want)
}

func errLength(code Code, got uint32, want ...int) error {
	return fmt.Errorf("%w: code %d body is %d bytes, want %v", ErrMalformed, uint32(code), got, want)
}
