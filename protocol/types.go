package protocol

// Frame is one YMODEM block as it travels on the wire.
type Frame struct {
	// Header is SOH (128-byte payload) or STX (1024-byte payload)
	Header byte

	// Block is the block number mod 256. Zero only for setup and closing frames.
	Block byte

	// Payload is the block data. Encode zero-pads it to the frame size.
	Payload []byte
}

// FileEntry is one file stored by the bootloader, as reported by "list".
type FileEntry struct {
	// Name is the file name on the device
	Name string

	// Size is the file size in bytes
	Size int64
}

// SetupInfo is the content of a setup frame.
type SetupInfo struct {
	// Name is the base name of the file being sent
	Name string

	// Size is the file size in bytes
	Size int64
}
