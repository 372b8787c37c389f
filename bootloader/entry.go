package bootloader

import (
	"bytes"
	"fmt"
	"time"

	"github.com/moffa90/go-ymboot/protocol"
	"github.com/moffa90/go-ymboot/timer"
	"github.com/moffa90/go-ymboot/transport"
)

// EntryStrategy brings a device into its bootloader and waits for an update
// to be applied. Devices differ in whether the host can trigger the reboot
// or a person has to.
type EntryStrategy interface {
	// Name identifies the strategy in errors and logs
	Name() string

	// EnterBootloader returns once the bootloader prompt has been seen and
	// the input drained, or *EntryTimeoutError after timeout.
	EnterBootloader(link *Link, timeout time.Duration) error

	// CompleteUpgrade waits up to timeout for an update to be applied and
	// reports whether it succeeded.
	CompleteUpgrade(link *Link, timeout time.Duration) (bool, error)
}

// Link is what a session lends to its EntryStrategy.
type Link struct {
	Channel transport.Channel
	Clock   timer.Clock
	Family  DeviceFamily

	observer Observer
	logger   Logger
}

// Emit delivers an event to the session observer.
func (l *Link) Emit(e Event) {
	if e.Family == "" {
		e.Family = l.Family
	}
	if l.observer != nil {
		l.observer(e)
	}
}

func (l *Link) logDebug(msg string, keysAndValues ...interface{}) {
	if l.logger != nil {
		l.logger.Debug(msg, keysAndValues...)
	}
}

// Entry defaults.
const (
	DefaultResetCommand       = "AT+RESET"
	DefaultCommandProbe       = 100 * time.Millisecond
	DefaultManualProbeTimeout = 3 * time.Second
)

// Handshake bytes of command-triggered entry: the host sends 'm' until the
// rebooting device echoes it, then "ts" to stop the application from
// starting.
const (
	handshakeProbe = 'm'
	handshakeStop  = "ts" + transport.LineTerminator
	handshakeEcho  = 't'
)

// CommandEntry reboots the device with a command sent to its application and
// catches the bootloader with the 'm' / "ts" handshake.
type CommandEntry struct {
	// ResetCommand reboots the application; empty means DefaultResetCommand
	ResetCommand string

	// ProbeTimeout bounds the wait for each handshake byte; zero means
	// DefaultCommandProbe
	ProbeTimeout time.Duration
}

func (e *CommandEntry) Name() string {
	return "command"
}

func (e *CommandEntry) EnterBootloader(link *Link, timeout time.Duration) error {
	resetCmd := e.ResetCommand
	if resetCmd == "" {
		resetCmd = DefaultResetCommand
	}
	probe := e.ProbeTimeout
	if probe <= 0 {
		probe = DefaultCommandProbe
	}

	start := timer.Start(link.Clock)
	if err := link.Channel.WriteLine(resetCmd); err != nil {
		return fmt.Errorf("write reset command: %w", err)
	}

	stopped := false
	for !start.Expired(timeout) {
		if !stopped {
			if err := link.Channel.Write([]byte{handshakeProbe}); err != nil {
				return fmt.Errorf("write handshake probe: %w", err)
			}
		}

		b, err := link.Channel.Read(1, minDuration(probe, start.Remaining(timeout)))
		if err != nil {
			if !transport.IsTimeout(err) {
				return fmt.Errorf("read handshake: %w", err)
			}
			// stop request lost, start over
			stopped = false
			continue
		}

		switch {
		case b[0] == handshakeProbe && !stopped:
			link.logDebug("device answered handshake probe")
			if err := link.Channel.Write([]byte(handshakeStop)); err != nil {
				return fmt.Errorf("write handshake stop: %w", err)
			}
			stopped = true
		case b[0] == handshakeEcho && stopped:
			found, err := scanForPromptTail(link, start, timeout)
			if err != nil {
				return err
			}
			if found {
				return drain(link)
			}
		}
	}

	return &EntryTimeoutError{Strategy: e.Name(), Timeout: timeout}
}

// CompleteUpgrade waits out timeout: the device reboots into the new
// application without reporting back.
func (e *CommandEntry) CompleteUpgrade(link *Link, timeout time.Duration) (bool, error) {
	link.logDebug("waiting for update to be applied", "timeout", timeout.String())
	link.Clock.Sleep(timeout)
	return true, nil
}

// ManualResetEntry asks for the device to be reset by hand and probes the
// console until the bootloader prompt appears.
type ManualResetEntry struct {
	// ProbeTimeout bounds each wait for the prompt; zero means
	// DefaultManualProbeTimeout
	ProbeTimeout time.Duration
}

func (e *ManualResetEntry) Name() string {
	return "manual"
}

func (e *ManualResetEntry) EnterBootloader(link *Link, timeout time.Duration) error {
	probe := e.ProbeTimeout
	if probe <= 0 {
		probe = DefaultManualProbeTimeout
	}

	start := timer.Start(link.Clock)
	link.Emit(Event{Kind: EventManualResetRequired})

	for !start.Expired(timeout) {
		if err := link.Channel.Write([]byte(transport.LineTerminator)); err != nil {
			return fmt.Errorf("write probe: %w", err)
		}

		_, err := link.Channel.ReadUntil([]byte(protocol.PromptTail), minDuration(probe, start.Remaining(timeout)))
		if err == nil {
			return drain(link)
		}
		if !transport.IsTimeout(err) {
			return fmt.Errorf("read prompt: %w", err)
		}
	}

	return &EntryTimeoutError{Strategy: e.Name(), Timeout: timeout}
}

// CompleteUpgrade collects device output until it reports the outcome of
// the update.
func (e *ManualResetEntry) CompleteUpgrade(link *Link, timeout time.Duration) (bool, error) {
	start := timer.Start(link.Clock)
	var output []byte

	for !start.Expired(timeout) {
		line, err := link.Channel.ReadUntil([]byte("\n"), start.Remaining(timeout))
		output = append(output, line...)

		if done, ok := protocol.ParseApplyOutcome(output); done {
			link.logDebug("update outcome", "ok", ok)
			return ok, nil
		}
		if err != nil && !transport.IsTimeout(err) {
			return false, fmt.Errorf("read update outcome: %w", err)
		}
	}

	return false, &ApplyTimeoutError{Timeout: timeout, Output: string(output)}
}

// scanForPromptTail reads byte by byte until the prompt tail arrives or the
// entry deadline passes.
func scanForPromptTail(link *Link, start timer.Timer, timeout time.Duration) (bool, error) {
	tail := []byte(protocol.PromptTail)
	var buf []byte
	for !start.Expired(timeout) {
		b, err := link.Channel.Read(1, start.Remaining(timeout))
		if err != nil {
			if transport.IsTimeout(err) {
				return false, nil
			}
			return false, fmt.Errorf("read prompt: %w", err)
		}
		buf = append(buf, b[0])
		if bytes.HasSuffix(buf, tail) {
			return true, nil
		}
	}
	return false, nil
}

func drain(link *Link) error {
	discarded, err := transport.Drain(link.Channel, transport.DefaultDrainQuiet)
	if err != nil {
		return fmt.Errorf("drain input: %w", err)
	}
	if len(discarded) > 0 {
		link.logDebug("discarded input after prompt", "bytes", len(discarded))
	}
	return nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
