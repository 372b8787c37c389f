package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// PayloadSize returns the fixed payload size for a frame header.
func PayloadSize(header byte) (int, error) {
	switch header {
	case SOH:
		return BlockSize128, nil
	case STX:
		return BlockSize1K, nil
	}
	return 0, fmt.Errorf("invalid frame header 0x%02X", header)
}

// Encode builds the on-wire packet for the frame.
//
// Frame structure:
//
//	[HEADER][BLOCK][~BLOCK][PAYLOAD(128|1024)][CRC_H][CRC_L]
//
// The payload is zero-padded to the fixed size and the CRC16 covers the
// padded payload only.
func (f *Frame) Encode() ([]byte, error) {
	size, err := PayloadSize(f.Header)
	if err != nil {
		return nil, err
	}
	if len(f.Payload) > size {
		return nil, fmt.Errorf("payload length %d exceeds maximum %d bytes", len(f.Payload), size)
	}

	packet := make([]byte, FrameOverhead+size)
	packet[0] = f.Header
	packet[1] = f.Block
	packet[2] = ^f.Block
	copy(packet[HeaderSize:], f.Payload)

	payload := packet[HeaderSize : HeaderSize+size]
	binary.BigEndian.PutUint16(packet[HeaderSize+size:], CRC16(payload))

	return packet, nil
}

// ParseFrame validates a complete packet and returns the frame it carries.
// The returned payload always has the full fixed size.
func ParseFrame(packet []byte) (*Frame, error) {
	if len(packet) == 0 {
		return nil, fmt.Errorf("empty packet")
	}

	size, err := PayloadSize(packet[0])
	if err != nil {
		return nil, err
	}
	if len(packet) != FrameOverhead+size {
		return nil, fmt.Errorf("packet length mismatch: got %d bytes, expected %d", len(packet), FrameOverhead+size)
	}

	if packet[1] != ^packet[2] {
		return nil, fmt.Errorf("block number 0x%02X does not match complement 0x%02X", packet[1], packet[2])
	}

	payload := packet[HeaderSize : HeaderSize+size]
	checksumExpected := binary.BigEndian.Uint16(packet[HeaderSize+size:])
	checksumActual := CRC16(payload)
	if checksumExpected != checksumActual {
		return nil, fmt.Errorf("checksum mismatch: got 0x%04X, expected 0x%04X", checksumActual, checksumExpected)
	}

	return &Frame{
		Header:  packet[0],
		Block:   packet[1],
		Payload: append([]byte(nil), payload...),
	}, nil
}

// BuildSetupFrame builds the block 0 packet announcing a file.
//
// Payload layout, zero-padded to 128 bytes:
//
//	[NAME][NUL][SIZE in decimal ASCII][SPACE]
func BuildSetupFrame(name string, size int64) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("file name cannot be empty")
	}
	if size < 0 {
		return nil, fmt.Errorf("file size cannot be negative: %d", size)
	}

	payload := make([]byte, 0, BlockSize128)
	payload = append(payload, name...)
	payload = append(payload, 0x00)
	payload = strconv.AppendInt(payload, size, 10)
	payload = append(payload, ' ')
	if len(payload) > BlockSize128 {
		return nil, fmt.Errorf("file name %q too long for setup frame", name)
	}

	f := Frame{Header: SOH, Block: 0, Payload: payload}
	return f.Encode()
}

// BuildClosingFrame builds the all-zero block 0 packet that ends a session.
func BuildClosingFrame() []byte {
	f := Frame{Header: SOH, Block: 0}
	packet, _ := f.Encode()
	return packet
}

// BuildDataFrame builds a 1024-byte data packet. Short data is zero-padded.
func BuildDataFrame(block byte, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}
	f := Frame{Header: STX, Block: block, Payload: data}
	return f.Encode()
}

// ParseSetupPayload decodes a block 0 payload. An all-zero payload is a
// closing frame and yields a zero SetupInfo with closing set.
func ParseSetupPayload(payload []byte) (info SetupInfo, closing bool, err error) {
	nul := bytes.IndexByte(payload, 0x00)
	if nul == 0 {
		return SetupInfo{}, true, nil
	}
	if nul < 0 {
		return SetupInfo{}, false, fmt.Errorf("setup payload has no name terminator")
	}

	info.Name = string(payload[:nul])

	rest := payload[nul+1:]
	end := bytes.IndexAny(rest, " \x00")
	if end < 0 {
		end = len(rest)
	}
	if end == 0 {
		return info, false, fmt.Errorf("setup payload for %q has no size", info.Name)
	}
	info.Size, err = strconv.ParseInt(string(rest[:end]), 10, 64)
	if err != nil {
		return info, false, fmt.Errorf("invalid size in setup payload: %w", err)
	}

	return info, false, nil
}

// DataFrameCount returns how many 1024-byte data frames carry size bytes.
func DataFrameCount(size int64) int {
	return int((size + BlockSize1K - 1) / BlockSize1K)
}
