package bootloader

import (
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-ymboot/transport"
)

// ErrNotInBootloader is returned by operations issued after the device left
// its bootloader (boot, reset or an applied upgrade).
var ErrNotInBootloader = errors.New("device is not in bootloader mode")

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session closed")

// EntryTimeoutError indicates that the bootloader prompt never appeared.
type EntryTimeoutError struct {
	Strategy string
	Timeout  time.Duration
}

func (e *EntryTimeoutError) Error() string {
	return fmt.Sprintf("bootloader entry (%s) timed out after %s", e.Strategy, e.Timeout)
}

func (e *EntryTimeoutError) Unwrap() error {
	return transport.ErrTimeout
}

// ApplyTimeoutError indicates that the device never reported the outcome of
// applying an update.
type ApplyTimeoutError struct {
	Timeout time.Duration

	// Output is what the device printed while we waited
	Output string
}

func (e *ApplyTimeoutError) Error() string {
	return fmt.Sprintf("update not confirmed within %s", e.Timeout)
}

func (e *ApplyTimeoutError) Unwrap() error {
	return transport.ErrTimeout
}

// CommandError indicates that the bootloader answered a command with ERROR.
type CommandError struct {
	Command  string
	Response string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Response)
}

// CommandNotSupportedError indicates that the device family does not accept
// a command. Nothing was sent to the device.
type CommandNotSupportedError struct {
	Family  DeviceFamily
	Command string
}

func (e *CommandNotSupportedError) Error() string {
	return fmt.Sprintf("command %q is not supported by the %s bootloader", e.Command, e.Family)
}

// UnknownFamilyError indicates a device family with no profile.
type UnknownFamilyError struct {
	Family string
}

func (e *UnknownFamilyError) Error() string {
	return fmt.Sprintf("unknown device family %q", e.Family)
}
