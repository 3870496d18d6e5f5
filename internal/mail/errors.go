package mail

import "fmt"

// DeliveryError wraps failures while sending a report email. Callers treat
// it as non-fatal for the processing run: the record stays queued for the
// next delivery attempt.
type DeliveryError struct {
	Message string
	Cause   error
}

func (e *DeliveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("delivery error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("delivery error: %s", e.Message)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}
