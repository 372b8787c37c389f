// Package firmware loads firmware images for transfer to a device.
//
// Images are opaque: the package reads the bytes and the file name the
// receiver is told about, nothing more. Images stored with an ".xz" suffix
// are decompressed on load.
//
// # Usage
//
//	img, err := firmware.Load("app.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for i, block := range img.Blocks(1024) {
//	    fmt.Printf("block %d: %d bytes\n", i+1, len(block))
//	}
package firmware
