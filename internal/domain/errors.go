package domain

import "fmt"

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Invalid returns a *ValidationError carrying msg.
func Invalid(msg string) error {
	return validationError(msg)
}

// CapacityError reports that the slots requested for a service are not free.
type CapacityError struct {
	Date        string
	Slot        string
	ServiceType string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("slot %s %s is not available for service %q", e.Date, e.Slot, e.ServiceType)
}
