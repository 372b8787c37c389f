// Package transport defines the byte channel used to talk to a device
// bootloader and provides a serial port implementation of it.
//
// The channel is half-duplex and strictly request/response. Every blocking
// call is bounded by a per-call timeout; a timeout is reported as an error
// wrapping ErrTimeout, with whatever partial data arrived returned alongside.
package transport

import (
	"errors"
	"fmt"
	"time"
)

// LineTerminator is appended to every command line.
const LineTerminator = "\r\n"

// ErrTimeout is wrapped by every error caused by a read exceeding its bound.
var ErrTimeout = errors.New("transport: timeout")

// ErrClosed is returned by operations on a closed channel.
var ErrClosed = errors.New("transport: channel closed")

// Channel is the minimal contract a bootloader session needs from the
// underlying link.
type Channel interface {
	// Write sends p as-is.
	Write(p []byte) error

	// WriteLine sends line followed by LineTerminator. Channels configured
	// with local echo consume the echoed line before returning.
	WriteLine(line string) error

	// Read blocks until n bytes arrived or timeout elapsed.
	Read(n int, timeout time.Duration) ([]byte, error)

	// ReadUntil blocks until token has been received or timeout elapsed.
	// The returned data includes the token.
	ReadUntil(token []byte, timeout time.Duration) ([]byte, error)

	// Close releases the link. Blocked and subsequent calls fail.
	Close() error
}

// IsTimeout reports whether err was caused by a read timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// DefaultDrainQuiet is how long a link must stay silent for Drain to stop.
const DefaultDrainQuiet = 50 * time.Millisecond

// maxDrainReads bounds Drain against a device that never stops talking.
const maxDrainReads = 64

// ErrNotQuiet is returned by Drain when input kept arriving for
// maxDrainReads reads.
var ErrNotQuiet = errors.New("transport: link not quiet")

// Drain discards buffered input until the channel stays quiet for the given
// duration. It returns the discarded bytes, and ErrNotQuiet if the link was
// still talking when the read limit was reached.
func Drain(ch Channel, quiet time.Duration) ([]byte, error) {
	var out []byte
	for i := 0; i < maxDrainReads; i++ {
		b, err := ch.Read(256, quiet)
		out = append(out, b...)
		if err != nil {
			if IsTimeout(err) {
				return out, nil
			}
			return out, err
		}
	}
	return out, fmt.Errorf("discarded %d bytes: %w", len(out), ErrNotQuiet)
}
