package booking

import "errors"

var (
	ErrForbidden = errors.New("forbidden")
	ErrSlotTaken = errors.New("this time slot is already booked")
	ErrNotFound  = errors.New("appointment not found")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationError(msg string) error { return &ValidationError{Msg: msg} }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
