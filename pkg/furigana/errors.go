package furigana

import (
	"errors"
	"fmt"
)

// ErrContract is returned when a collaborator or the caller breaks one of the
// engine's invariants. The current call is aborted.
var ErrContract = errors.New("furigana: contract violation")

// ErrReservedDelimiter is returned by Process when the input already contains
// the furigana tags or the custom reading sentinels.
var ErrReservedDelimiter = fmt.Errorf("%w: input contains a reserved delimiter", ErrContract)

func contractf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrContract, fmt.Sprintf(format, args...))
}

// RegistrationError reports malformed override data passed to
// RegisterKanjiReadings or RegisterWordReadings.
type RegistrationError struct {
	Key string
	Msg string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("furigana: invalid reading for %q: %s", e.Key, e.Msg)
}
