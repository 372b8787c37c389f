package simulator

import (
	"github.com/moffa90/go-ymboot/protocol"
)

type rxPhase int

const (
	awaitSetup rxPhase = iota
	awaitData
	awaitClosing
)

// receiver is the device side of a single YMODEM transfer.
type receiver struct {
	dev     *Device
	command string
	dst     string

	phase   rxPhase
	info    protocol.SetupInfo
	next    byte
	count   int
	data    []byte
	rejects int
}

func newReceiver(dev *Device, command, dst string) *receiver {
	return &receiver{
		dev:     dev,
		command: command,
		dst:     dst,
		next:    1,
		rejects: dev.cfg.RejectSetups,
	}
}

// idle asks for the next frame, the way a receiver repeats 'C' while it
// waits for the setup frame.
func (r *receiver) idle() {
	if r.dev.cfg.Silent || r.phase != awaitSetup {
		return
	}
	r.dev.ch.Feed(protocol.CRCRequest)
}

// handle consumes one host write. It returns false when the write is not
// part of the transfer.
func (r *receiver) handle(p []byte) bool {
	if len(p) == 1 && p[0] == protocol.EOT {
		return r.handleEOT()
	}
	if len(p) != protocol.PacketSize128 && len(p) != protocol.PacketSize1K {
		return false
	}

	f, err := protocol.ParseFrame(p)
	if err != nil {
		r.dev.trace("bad frame: %v", err)
		r.dev.ch.Feed(protocol.NAK)
		return true
	}

	switch {
	case f.Block == 0 && f.Header == protocol.SOH:
		r.handleBlockZero(f)
	case r.phase == awaitData:
		r.handleData(f)
	default:
		r.dev.ch.Feed(protocol.NAK)
	}
	return true
}

func (r *receiver) handleBlockZero(f *protocol.Frame) {
	info, closing, err := protocol.ParseSetupPayload(f.Payload)
	switch {
	case err != nil:
		r.dev.ch.Feed(protocol.NAK)
	case closing && r.phase == awaitClosing:
		r.dev.ch.Feed(protocol.ACK)
		r.dev.received(r.command, r.dst, r.info, r.data)
	case closing:
		r.dev.ch.Feed(protocol.NAK)
	case r.phase != awaitSetup:
		// setup resent after our ACK was lost
		r.dev.ch.Feed(protocol.ACK, protocol.CRCRequest)
	case r.rejects > 0:
		r.rejects--
		r.dev.trace("rejecting setup for %s", info.Name)
		r.dev.ch.Feed(protocol.NAK)
	default:
		r.info = info
		r.phase = awaitData
		r.data = make([]byte, 0, info.Size)
		r.dev.trace("receiving %s (%d bytes)", info.Name, info.Size)
		r.dev.ch.Feed(protocol.ACK, protocol.CRCRequest)
	}
}

func (r *receiver) handleData(f *protocol.Frame) {
	switch f.Block {
	case r.next:
		if r.count+1 == r.dev.cfg.CancelBlock {
			r.dev.trace("cancelling at block %d", r.count+1)
			r.dev.ch.Feed(protocol.CAN)
			r.dev.abort()
			return
		}
		r.data = append(r.data, f.Payload...)
		r.count++
		r.next++
		r.dev.ch.Feed(protocol.ACK)
	case r.next - 1:
		// duplicate of the block we already have
		r.dev.ch.Feed(protocol.ACK)
	default:
		r.dev.ch.Feed(protocol.NAK)
	}
}

func (r *receiver) handleEOT() bool {
	switch r.phase {
	case awaitData:
		if int64(len(r.data)) > r.info.Size {
			r.data = r.data[:r.info.Size]
		}
		r.phase = awaitClosing
	case awaitClosing:
		// EOT resent after our ACK was lost
	default:
		return false
	}
	r.dev.ch.Feed(protocol.ACK, protocol.CRCRequest)
	return true
}
