package firmware

// Image is a firmware file ready to be sent to the bootloader.
type Image struct {
	// Name is the file name announced to the receiver (base name, no
	// compression suffix)
	Name string

	// Data is the uncompressed image content
	Data []byte
}

// Size returns the image size in bytes.
func (img *Image) Size() int64 {
	return int64(len(img.Data))
}

// Blocks splits the image into consecutive chunks of at most blockSize
// bytes. The last chunk may be short; an empty image has no blocks.
func (img *Image) Blocks(blockSize int) [][]byte {
	if blockSize <= 0 {
		return nil
	}
	blocks := make([][]byte, 0, (len(img.Data)+blockSize-1)/blockSize)
	for off := 0; off < len(img.Data); off += blockSize {
		end := off + blockSize
		if end > len(img.Data) {
			end = len(img.Data)
		}
		blocks = append(blocks, img.Data[off:end])
	}
	return blocks
}
