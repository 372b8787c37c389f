package ymodem

import (
	"fmt"
	"time"

	"github.com/moffa90/go-ymboot/firmware"
	"github.com/moffa90/go-ymboot/protocol"
	"github.com/moffa90/go-ymboot/timer"
	"github.com/moffa90/go-ymboot/transport"
)

// Transfer phases reported in protocol.TransferError.
const (
	PhaseSetup = "setup"
	PhaseData  = "data"
)

// ProgressFunc reports transfer progress in bytes. It is called once with
// (-1, 0, "") each time the setup frame has been written, then after every
// acknowledged data block.
type ProgressFunc func(transferred, total int, message string)

// Logger is an optional logging interface. It matches bootloader.Logger so a
// single logger can be shared.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Sender transfers files over a channel it borrows for the duration of Send.
//
// Sender is not safe for concurrent use.
type Sender struct {
	ch     transport.Channel
	config Config
}

// New creates a Sender on ch.
//
// Example:
//
//	s := ymodem.New(ch, ymodem.WithMaxErrors(5))
func New(ch transport.Channel, opts ...Option) *Sender {
	if ch == nil {
		panic("channel cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Sender{ch: ch, config: cfg}
}

// Send transfers img. setupTimeout bounds the wait for the setup frame to be
// acknowledged, which covers the receiver preparing storage for the file.
func (s *Sender) Send(img *firmware.Image, setupTimeout time.Duration, progress ProgressFunc) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}

	setup, err := protocol.BuildSetupFrame(img.Name, img.Size())
	if err != nil {
		return err
	}

	start := timer.Start(s.config.Clock)
	s.logDebug("starting transfer", "file", img.Name, "size", img.Size())

	if err := s.sendSetup(setup, setupTimeout, progress); err != nil {
		s.logError("setup failed", "file", img.Name, "error", err)
		return &protocol.TransferError{Phase: PhaseSetup, Err: err}
	}

	if err := s.sendData(img, progress); err != nil {
		s.logError("data transfer failed", "file", img.Name, "error", err)
		return &protocol.TransferError{Phase: PhaseData, Err: err}
	}

	s.finish()

	s.logInfo("transfer complete",
		"file", img.Name,
		"bytes", img.Size(),
		"elapsed", start.Elapsed().String(),
	)
	return nil
}

// sendSetup announces the file, retrying up to MaxErrors times.
func (s *Sender) sendSetup(setup []byte, setupTimeout time.Duration, progress ProgressFunc) error {
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxErrors; attempt++ {
		b, err := s.readByte("CRC request", protocol.CRCTimeout)
		if err != nil {
			if !protocol.IsTimeoutError(err) {
				return err
			}
			lastErr = err
			s.logDebug("no CRC request", "attempt", attempt)
			continue
		}
		if b != protocol.CRCRequest {
			lastErr = &protocol.ProtocolError{Operation: "CRC request", Response: b}
			s.logDebug("unexpected byte before setup", "byte", fmt.Sprintf("0x%02X", b), "attempt", attempt)
			continue
		}

		if err := s.ch.Write(setup); err != nil {
			return fmt.Errorf("write setup frame: %w", err)
		}
		report(progress, -1, 0, "")

		b, err = s.readByte("setup frame", setupTimeout)
		if err != nil {
			if !protocol.IsTimeoutError(err) {
				return err
			}
			lastErr = err
			s.logDebug("setup frame not acknowledged", "attempt", attempt)
			continue
		}
		if b == protocol.ACK {
			return nil
		}
		lastErr = &protocol.ProtocolError{Operation: "setup frame", Response: b}
		s.logDebug("setup frame rejected", "byte", fmt.Sprintf("0x%02X", b), "attempt", attempt)
	}
	return lastErr
}

// sendData sends every 1024-byte block of img.
func (s *Sender) sendData(img *firmware.Image, progress ProgressFunc) error {
	if err := s.awaitCRCRequest(); err != nil {
		return err
	}

	blocks := img.Blocks(protocol.BlockSize1K)
	total := int(img.Size())
	sent := 0
	for i, block := range blocks {
		n := i + 1
		packet, err := protocol.BuildDataFrame(byte(n), block)
		if err != nil {
			return err
		}
		if err := s.sendBlock(n, packet); err != nil {
			return err
		}

		sent += len(block)
		report(progress, sent, total, fmt.Sprintf("block %d/%d", n, len(blocks)))
	}
	return nil
}

// awaitCRCRequest waits for the 'C' that opens the data phase.
func (s *Sender) awaitCRCRequest() error {
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxErrors; attempt++ {
		b, err := s.readByte("CRC request", protocol.CRCTimeout)
		if err != nil {
			if !protocol.IsTimeoutError(err) {
				return err
			}
			lastErr = err
			continue
		}
		if b == protocol.CRCRequest {
			return nil
		}
		lastErr = &protocol.ProtocolError{Operation: "CRC request", Response: b}
	}
	return lastErr
}

// sendBlock writes one data packet until it is acknowledged. NAKs and
// unexpected bytes are retried up to MaxErrors times; CAN and timeouts abort.
func (s *Sender) sendBlock(n int, packet []byte) error {
	op := fmt.Sprintf("block %d", n)
	for attempt := 1; ; attempt++ {
		if err := s.ch.Write(packet); err != nil {
			return fmt.Errorf("write %s: %w", op, err)
		}

		b, err := s.readByte(op, protocol.NAKTimeout)
		if err != nil {
			return err
		}

		switch b {
		case protocol.ACK:
			return nil
		case protocol.CAN:
			return &protocol.ProtocolError{Operation: op, Response: b}
		}

		if attempt >= s.config.MaxErrors {
			return &protocol.ProtocolError{Operation: op, Response: b}
		}
		s.logDebug("block rejected, resending", "block", n, "attempt", attempt)
	}
}

// finish ends the transmission and closes the batch. Failures are logged:
// by now every data block has been acknowledged.
func (s *Sender) finish() {
	if err := s.sendEOT(); err != nil {
		s.logError("end of transmission not acknowledged", "error", err)
		return
	}

	b, err := s.readByte("CRC request", protocol.CRCTimeout)
	if err != nil {
		s.logError("no CRC request for closing frame", "error", err)
		return
	}
	if b != protocol.CRCRequest {
		s.logDebug("skipping closing frame", "byte", fmt.Sprintf("0x%02X", b))
		return
	}

	if err := s.ch.Write(protocol.BuildClosingFrame()); err != nil {
		s.logError("write closing frame", "error", err)
		return
	}
	if _, err := s.readByte("closing frame", protocol.CRCTimeout); err != nil {
		s.logDebug("closing frame not acknowledged", "error", err)
	}
}

// sendEOT writes EOT, resending it once if the receiver answers NAK.
func (s *Sender) sendEOT() error {
	for resent := false; ; resent = true {
		if err := s.ch.Write([]byte{protocol.EOT}); err != nil {
			return fmt.Errorf("write EOT: %w", err)
		}

		b, err := s.readByte("EOT", protocol.NAKTimeout)
		if err != nil {
			return err
		}
		if b == protocol.ACK {
			return nil
		}
		if b != protocol.NAK || resent {
			return &protocol.ProtocolError{Operation: "EOT", Response: b}
		}
	}
}

// readByte reads a single control byte. Timeouts become *protocol.TimeoutError;
// other channel errors are returned wrapped.
func (s *Sender) readByte(op string, timeout time.Duration) (byte, error) {
	b, err := s.ch.Read(1, timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return 0, &protocol.TimeoutError{Operation: op, Timeout: timeout, Err: err}
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return b[0], nil
}

func report(progress ProgressFunc, transferred, total int, message string) {
	if progress != nil {
		progress(transferred, total, message)
	}
}

func (s *Sender) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (s *Sender) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

func (s *Sender) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
