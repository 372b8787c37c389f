package bootloader

import (
	"fmt"

	"github.com/moffa90/go-ymboot/ymodem"
)

// EventKind identifies a session milestone.
type EventKind int

const (
	// EventManualResetRequired asks the user to reset the device by hand
	EventManualResetRequired EventKind = iota + 1

	// EventBootloaderEntered is sent once the bootloader prompt was seen
	EventBootloaderEntered

	// EventApplicationEntered is sent when the device leaves the bootloader
	// for its application
	EventApplicationEntered

	// EventTransferSetupStarted is sent when the setup frame of a file is
	// first written
	EventTransferSetupStarted

	// EventTransferSucceeded is sent when the bootloader accepted a file
	EventTransferSucceeded

	// EventTransferFailed is sent when a transfer was rejected or timed out;
	// Event.Err holds the cause
	EventTransferFailed

	// EventApplyingUpdate is sent before waiting for an update to be applied
	EventApplyingUpdate
)

func (k EventKind) String() string {
	switch k {
	case EventManualResetRequired:
		return "manual reset required"
	case EventBootloaderEntered:
		return "bootloader entered"
	case EventApplicationEntered:
		return "application entered"
	case EventTransferSetupStarted:
		return "transfer setup started"
	case EventTransferSucceeded:
		return "transfer succeeded"
	case EventTransferFailed:
		return "transfer failed"
	case EventApplyingUpdate:
		return "applying update"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a session milestone delivered to the Observer.
type Event struct {
	Kind   EventKind
	Family DeviceFamily

	// File is the image name for transfer events
	File string

	// Err is the failure cause for EventTransferFailed
	Err error
}

// Observer receives session events synchronously, in order. Implementations
// should return quickly; the session waits for them.
//
// Example:
//
//	session, err := bootloader.Open(ch, &bootloader.ManualResetEntry{}, bootloader.FamilyOrion,
//	    bootloader.WithObserver(func(e bootloader.Event) {
//	        if e.Kind == bootloader.EventManualResetRequired {
//	            fmt.Println("Press the reset button on the device")
//	        }
//	    }),
//	)
type Observer func(Event)

// ProgressFunc reports transfer progress in bytes. (-1, 0, "") marks the
// setup frame being written.
type ProgressFunc = ymodem.ProgressFunc

// Logger is an optional logging interface that can be provided to the session.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	session, err := bootloader.Open(ch, entry, family, bootloader.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
