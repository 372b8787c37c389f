package transport

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/moffa90/go-ymboot/timer"
)

// SerialConfig holds configuration for opening a serial port.
type SerialConfig struct {
	Port     string
	BaudRate int

	// Parity is one of "none", "even", "odd". Empty means none.
	Parity string

	// Echo makes WriteLine consume the line echoed back by the device.
	Echo bool

	// EchoTimeout bounds the wait for an echoed line.
	EchoTimeout time.Duration
}

// Serial implements Channel on top of a go.bug.st/serial port.
type Serial struct {
	port        serial.Port
	name        string
	echo        bool
	echoTimeout time.Duration
	clock       timer.Clock
	closed      bool
}

// OpenSerial opens and configures a serial port.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port path is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.EchoTimeout == 0 {
		cfg.EchoTimeout = time.Second
	}

	parity, err := parseParity(cfg.Parity)
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   parity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}

	// Stale bytes from before we opened would be taken for a response.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to reset input buffer: %w", err)
	}

	return &Serial{
		port:        port,
		name:        cfg.Port,
		echo:        cfg.Echo,
		echoTimeout: cfg.EchoTimeout,
		clock:       timer.System,
	}, nil
}

// ListSerialPorts returns the names of the serial ports present on the host.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return serial.NoParity, nil
	case "even", "e":
		return serial.EvenParity, nil
	case "odd", "o":
		return serial.OddParity, nil
	}
	return serial.NoParity, fmt.Errorf("unknown parity %q", s)
}

// PortName returns the serial port name.
func (s *Serial) PortName() string {
	return s.name
}

func (s *Serial) Write(p []byte) error {
	if s.closed {
		return ErrClosed
	}
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return fmt.Errorf("write %s: %w", s.name, err)
		}
		p = p[n:]
	}
	return nil
}

func (s *Serial) WriteLine(line string) error {
	if err := s.Write([]byte(line + LineTerminator)); err != nil {
		return err
	}
	if !s.echo || line == "" {
		return nil
	}
	// the echo ends with the terminator too
	if _, err := s.ReadUntil([]byte(line+LineTerminator), s.echoTimeout); err != nil {
		return fmt.Errorf("consume echo of %q: %w", line, err)
	}
	return nil
}

func (s *Serial) Read(n int, timeout time.Duration) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	buf := make([]byte, 0, n)
	chunk := make([]byte, n)
	t := timer.Start(s.clock)
	for len(buf) < n {
		left := t.Remaining(timeout)
		if left <= 0 {
			return buf, fmt.Errorf("read %d bytes from %s within %s: %w", n, s.name, timeout, ErrTimeout)
		}
		if err := s.port.SetReadTimeout(left); err != nil {
			return buf, fmt.Errorf("set read timeout: %w", err)
		}
		k, err := s.port.Read(chunk[:n-len(buf)])
		if err != nil {
			return buf, fmt.Errorf("read %s: %w", s.name, err)
		}
		buf = append(buf, chunk[:k]...)
	}
	return buf, nil
}

func (s *Serial) ReadUntil(token []byte, timeout time.Duration) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	var buf []byte
	b := make([]byte, 1)
	t := timer.Start(s.clock)
	for !bytes.HasSuffix(buf, token) {
		left := t.Remaining(timeout)
		if left <= 0 {
			return buf, fmt.Errorf("read until %q from %s within %s: %w", token, s.name, timeout, ErrTimeout)
		}
		if err := s.port.SetReadTimeout(left); err != nil {
			return buf, fmt.Errorf("set read timeout: %w", err)
		}
		k, err := s.port.Read(b)
		if err != nil {
			return buf, fmt.Errorf("read %s: %w", s.name, err)
		}
		if k == 1 {
			buf = append(buf, b[0])
		}
	}
	return buf, nil
}

func (s *Serial) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}
