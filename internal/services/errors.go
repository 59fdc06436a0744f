package services

import "fmt"

type ValidationReason string

const (
	ReasonTooLarge        ValidationReason = "too_large"
	ReasonUnsupportedType ValidationReason = "unsupported_type"
)

// ValidationError is client-detectable and terminal: it never reaches the
// network and is never retried.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// GatewayError covers any failed call to an external recommendation service:
// transport errors, non-2xx responses, and malformed bodies. Timeout marks
// calls that exceeded their deadline.
type GatewayError struct {
	Op      string
	Status  int
	Body    string
	Timeout bool
	Err     error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: request timed out", e.Op)
	case e.Status != 0:
		return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.Status, e.Body)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failure to durably record the resume reference.
// Unconfigured means the primary path failed and no fallback credential was
// configured; recommendation calls must not be issued for that run.
type PersistenceError struct {
	Unconfigured bool
	Message      string
	Err          error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
