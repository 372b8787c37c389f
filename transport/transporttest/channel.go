// Package transporttest provides an in-memory transport.Channel for tests.
//
// Bytes queued with Feed are returned by reads instantly. When a read cannot
// be satisfied the OnIdle hook gets one chance to queue more data; after that
// the fake clock is advanced by the read's timeout and transport.ErrTimeout is
// returned, so timeout accounting can be asserted without sleeping.
package transporttest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/moffa90/go-ymboot/timer"
	"github.com/moffa90/go-ymboot/transport"
)

// Channel is a scripted in-memory channel.
type Channel struct {
	Clock *timer.Fake

	// OnWrite is called with every chunk written by the host, after it has
	// been recorded.
	OnWrite func(p []byte)

	// OnIdle is called when a read finds too little data. It may Feed more.
	OnIdle func()

	rx       []byte
	writes   [][]byte
	reads    []ReadCall
	closed   bool
	closeErr error
}

// ReadCall records one read issued by the host.
type ReadCall struct {
	N        int
	Token    []byte
	Timeout  time.Duration
	TimedOut bool
}

// New returns an empty Channel with a fresh fake clock.
func New() *Channel {
	return &Channel{Clock: timer.NewFake()}
}

// Feed queues bytes for the host to read.
func (c *Channel) Feed(b ...byte) {
	c.rx = append(c.rx, b...)
}

// FeedString queues s for the host to read.
func (c *Channel) FeedString(s string) {
	c.rx = append(c.rx, s...)
}

// Pending returns the number of queued bytes not yet read.
func (c *Channel) Pending() int {
	return len(c.rx)
}

// Writes returns every chunk written, in order.
func (c *Channel) Writes() [][]byte {
	return c.writes
}

// Written returns all written bytes concatenated.
func (c *Channel) Written() []byte {
	return bytes.Join(c.writes, nil)
}

// Reads returns every read issued, in order.
func (c *Channel) Reads() []ReadCall {
	return c.reads
}

// Closed reports whether Close was called.
func (c *Channel) Closed() bool {
	return c.closed
}

// SetCloseError makes Close return err.
func (c *Channel) SetCloseError(err error) {
	c.closeErr = err
}

func (c *Channel) Write(p []byte) error {
	if c.closed {
		return transport.ErrClosed
	}
	cp := append([]byte(nil), p...)
	c.writes = append(c.writes, cp)
	if c.OnWrite != nil {
		c.OnWrite(cp)
	}
	return nil
}

func (c *Channel) WriteLine(line string) error {
	return c.Write([]byte(line + transport.LineTerminator))
}

func (c *Channel) Read(n int, timeout time.Duration) ([]byte, error) {
	if c.closed {
		return nil, transport.ErrClosed
	}
	if len(c.rx) < n && c.OnIdle != nil {
		c.OnIdle()
	}
	call := ReadCall{N: n, Timeout: timeout}
	if len(c.rx) >= n {
		out := c.take(n)
		c.reads = append(c.reads, call)
		return out, nil
	}
	out := c.take(len(c.rx))
	c.Clock.Advance(timeout)
	call.TimedOut = true
	c.reads = append(c.reads, call)
	return out, fmt.Errorf("read %d bytes within %s: %w", n, timeout, transport.ErrTimeout)
}

func (c *Channel) ReadUntil(token []byte, timeout time.Duration) ([]byte, error) {
	if c.closed {
		return nil, transport.ErrClosed
	}
	call := ReadCall{Token: append([]byte(nil), token...), Timeout: timeout}
	i := bytes.Index(c.rx, token)
	if i < 0 && c.OnIdle != nil {
		c.OnIdle()
		i = bytes.Index(c.rx, token)
	}
	if i >= 0 {
		out := c.take(i + len(token))
		c.reads = append(c.reads, call)
		return out, nil
	}
	out := c.take(len(c.rx))
	c.Clock.Advance(timeout)
	call.TimedOut = true
	c.reads = append(c.reads, call)
	return out, fmt.Errorf("read until %q within %s: %w", token, timeout, transport.ErrTimeout)
}

func (c *Channel) Close() error {
	c.closed = true
	return c.closeErr
}

func (c *Channel) take(n int) []byte {
	out := append([]byte(nil), c.rx[:n]...)
	c.rx = c.rx[n:]
	return out
}
