// Package simulator provides a simulated device bootloader for tests and
// examples.
//
// A Device attaches to a transporttest.Channel and answers host writes the
// way a real device does: it reboots on the reset command, completes the
// entry handshake, executes prompt commands against in-memory storage and
// receives files over YMODEM. Config switches between command-triggered and
// manual entry, restricts the command set, and injects faults (rejected setup
// frames, a silent or cancelling receiver, failed apply, ERROR responses).
//
//	ch := transporttest.New()
//	dev := simulator.New(ch, simulator.Config{SimpleTransfer: true})
//	// drive ch with a bootloader.Session, then inspect dev.Applied(),
//	// dev.Files() or dev.Commands()
package simulator
