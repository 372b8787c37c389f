package protocol

// CRC16 algorithm constants (CRC-16/XMODEM).
const (
	// CRC16Polynomial is the CCITT polynomial (0x1021)
	CRC16Polynomial = 0x1021

	// CRC16InitialValue is zero for the XMODEM variant
	CRC16InitialValue = 0x0000

	// CRC16HighBitMask is the high bit mask for CRC-16 calculations
	CRC16HighBitMask = 0x8000

	// BitsPerByte is the number of bits per byte
	BitsPerByte = 8
)

// CRC16 computes the CRC-16/XMODEM of data: polynomial 0x1021, initial
// value 0, no reflection, no final XOR. Frames carry it big-endian after the
// payload.
func CRC16(data []byte) uint16 {
	var crc uint16 = CRC16InitialValue

	for _, b := range data {
		crc ^= uint16(b) << BitsPerByte
		for i := 0; i < BitsPerByte; i++ {
			if crc&CRC16HighBitMask != 0 {
				crc = (crc << 1) ^ CRC16Polynomial
			} else {
				crc = crc << 1
			}
		}
	}

	return crc
}
