package model

import (
	"errors"
	"fmt"
)

// Domain errors returned by the booking ledger. Handlers should match them
// with errors.Is and translate them to user-facing responses.
var (
	// ErrInvalidAppointment is the root of every business-rule violation
	// raised while saving an appointment. Nothing is persisted when it fires.
	ErrInvalidAppointment = errors.New("invalid appointment")

	ErrNotADoctor       = fmt.Errorf("%w: booked user is not a doctor", ErrInvalidAppointment)
	ErrSelfBooking      = fmt.Errorf("%w: doctors cannot book appointments with themselves", ErrInvalidAppointment)
	ErrNotFutureWeekday = fmt.Errorf("%w: date is not a future business day", ErrInvalidAppointment)
	ErrUnknownTimeSlot  = fmt.Errorf("%w: time is not part of the slot catalog", ErrInvalidAppointment)
)
