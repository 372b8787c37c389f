package protocol

import (
	"errors"
	"fmt"
	"time"
)

// ProtocolError means the receiver answered, but not with what the sender
// needed (NAK, CAN or an unexpected byte).
type ProtocolError struct {
	// Operation is the step that was rejected
	Operation string

	// Response is the byte the receiver sent
	Response byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s rejected: %s (0x%02X)", e.Operation, getResponseName(e.Response), e.Response)
}

// TimeoutError means the receiver did not answer within the bound.
type TimeoutError struct {
	// Operation is the step that timed out
	Operation string

	// Timeout is the bound that was exceeded
	Timeout time.Duration

	// Err is the underlying channel error
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no response within %s", e.Operation, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// TransferError reports which phase of a transfer failed.
type TransferError struct {
	// Phase is "setup", "data" or "close"
	Phase string

	// Err is the cause, usually a *TimeoutError or *ProtocolError
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s phase failed: %v", e.Phase, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsProtocolError returns true if err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsTimeoutError returns true if err is or wraps a TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// getResponseName returns a human-readable name for a control byte.
func getResponseName(b byte) string {
	switch b {
	case ACK:
		return "ACK"
	case NAK:
		return "NAK"
	case CAN:
		return "cancelled"
	case CRCRequest:
		return "CRC request"
	case EOT:
		return "EOT"
	default:
		return "unexpected byte"
	}
}
