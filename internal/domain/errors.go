package domain

import "fmt"

// ErrInvalidArgument is returned when a caller supplies an argument that cannot be accepted.
type ErrInvalidArgument struct {
	// Name of the offending argument.
	Name string
	// Value that was rejected.
	Value interface{}
	// Message explaining why the value was rejected.
	Message string
}

func (err *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument %q with value %v: %s", err.Name, err.Value, err.Message)
}
