package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrBookUnavailable    = errors.New("book is not available for reservation")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrTerminalState guards the state machine: pending is the only state
	// a reservation may leave.
	ErrTerminalState = errors.New("reservation is already in a terminal state")
)

// ActiveReservationError rejects a reservation create while the requester
// still holds a pending one; it names the blocking reservation.
type ActiveReservationError struct {
	ReservationID int
	BookTitle     string
}

func (e *ActiveReservationError) Error() string {
	return fmt.Sprintf("you already have an active reservation for %q; pick it up or cancel it before reserving another book", e.BookTitle)
}
