// Package ymodem sends a single file over a transport.Channel using the
// YMODEM-derived framing understood by the device bootloader.
//
// A transfer has four steps:
//
//  1. Setup: on the receiver's 'C', block 0 announces the file name and size.
//  2. Data: after another 'C', 1024-byte STX blocks numbered from 1 (mod 256),
//     the last one zero-padded. NAK resends a block, CAN aborts.
//  3. EOT: end of transmission, resent once if the receiver NAKs it.
//  4. Close: on the receiver's next 'C', an all-zero block 0 ends the batch.
//
// Setup and data failures are returned as *protocol.TransferError wrapping a
// *protocol.TimeoutError or *protocol.ProtocolError. Once every data block is
// acknowledged the transfer counts as delivered; problems while closing are
// only logged.
//
// # Usage
//
//	img, _ := firmware.Load("app.bin")
//	s := ymodem.New(ch)
//	err := s.Send(img, 15*time.Second, func(done, total int, msg string) {
//	    if done >= 0 {
//	        fmt.Printf("%s (%d/%d)\n", msg, done, total)
//	    }
//	})
package ymodem
