// Package protocol implements the wire format spoken by the device bootloader.
//
// # Frames
//
// Files are sent with a YMODEM-derived framing:
//
//	[HEADER][BLOCK][~BLOCK][PAYLOAD][CRC_H][CRC_L]
//
// Where:
//   - HEADER = SOH (0x01, 128-byte payload) or STX (0x02, 1024-byte payload)
//   - BLOCK = block number mod 256; 0 for setup and closing frames, data from 1
//   - ~BLOCK = one's complement of BLOCK
//   - PAYLOAD = zero-padded to the fixed size
//   - CRC = CRC-16/XMODEM over the payload, big-endian
//
// Use the Build* functions to create packets and ParseFrame to validate them:
//
//	packet, err := protocol.BuildSetupFrame("app.bin", 4096)
//	packet, err := protocol.BuildDataFrame(1, data)
//	frame, err := protocol.ParseFrame(packet)
//
// # Commands
//
// The bootloader is driven with text lines terminated by CRLF and answers
// with free text ending in the prompt "bootloader :>". Any response
// containing "ERROR" means the command failed:
//
//	line := protocol.BuildRecvCmd(simpleTransfer, "config.bin")
//	entries := protocol.ParseListResponse(response)
//
// # Errors
//
// TimeoutError (no answer in time) and ProtocolError (an answer rejecting
// the frame) are kept apart so callers can decide whether to retry.
package protocol
