package protocol

import "time"

// Frame header and control bytes.
const (
	// SOH starts a frame carrying a 128-byte payload
	SOH = 0x01

	// STX starts a frame carrying a 1024-byte payload
	STX = 0x02

	// EOT ends the transmission
	EOT = 0x04

	// ACK acknowledges a frame
	ACK = 0x06

	// NAK rejects a frame
	NAK = 0x15

	// CAN cancels the transfer
	CAN = 0x18

	// CRCRequest is sent by the receiver to ask for CRC16 framed blocks ('C')
	CRCRequest = 0x43
)

// Frame sizes.
const (
	// BlockSize128 is the payload size of an SOH frame
	BlockSize128 = 128

	// BlockSize1K is the payload size of an STX frame
	BlockSize1K = 1024

	// HeaderSize is header byte + block number + complement
	HeaderSize = 3

	// CRCSize is the size of the trailing CRC16
	CRCSize = 2

	// FrameOverhead is everything in a frame except the payload
	FrameOverhead = HeaderSize + CRCSize

	// PacketSize128 is the on-wire size of an SOH frame (133 bytes)
	PacketSize128 = FrameOverhead + BlockSize128

	// PacketSize1K is the on-wire size of an STX frame (1029 bytes)
	PacketSize1K = FrameOverhead + BlockSize1K
)

// Transfer timing and retry budget.
const (
	// CRCTimeout bounds each wait for a CRC request byte
	CRCTimeout = 5 * time.Second

	// NAKTimeout bounds each wait for a block or EOT acknowledgement
	NAKTimeout = 10 * time.Second

	// CRCRequestTimeout bounds the wait for the first CRC request after a
	// receive command has been issued
	CRCRequestTimeout = 30 * time.Second

	// MaxErrors bounds consecutive failures of a single frame
	MaxErrors = 10
)

// Bootloader console.
const (
	// Prompt is printed by the bootloader when it is ready for a command
	Prompt = "bootloader :>"

	// PromptTail is the part of Prompt matched while entering the
	// bootloader; the first four bytes are consumed by the entry handshake
	PromptTail = "loader :>"

	// ErrorMarker appears in any response to a failed command
	ErrorMarker = "ERROR"

	// ApplySucceededMarker is printed once an upgrade has been applied
	ApplySucceededMarker = "successful"

	// ApplyFailedMarker is printed when applying an upgrade failed
	ApplyFailedMarker = "Failed"
)
