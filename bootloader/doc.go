// Package bootloader provides a high-level API for updating devices whose
// bootloader speaks a textual command prompt ("bootloader :>") and receives
// files over YMODEM.
//
// # Overview
//
// A Session owns the channel to one device and:
//   - Enters the bootloader with an EntryStrategy
//   - Sends files and firmware updates with the ymodem package
//   - Lists, deletes and erases stored files
//   - Applies staged updates and boots the application
//
// What a device accepts depends on its family. Profiles hold the command set,
// transfer flavour and timeouts of every supported family:
//
//	p, _ := bootloader.LookupProfile(bootloader.FamilyVega)
//	fmt.Println(p.Supports("flash")) // false
//
// # Basic Usage
//
//	port, err := transport.OpenSerial(transport.SerialConfig{Port: "/dev/ttyUSB0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	img, err := firmware.Load("app.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = bootloader.With(port, &bootloader.CommandEntry{}, bootloader.FamilyNova,
//	    func(s *bootloader.Session) error {
//	        ok, err := s.SendUpgrade(img, true, nil)
//	        if err == nil && !ok {
//	            err = errors.New("upgrade rejected")
//	        }
//	        return err
//	    })
//
// # Entry Strategies
//
// CommandEntry reboots the device by sending a command to its application,
// then catches the bootloader with a short handshake. ManualResetEntry emits
// EventManualResetRequired and waits for somebody to press the reset button.
//
// # Events and Progress
//
// Session milestones are delivered synchronously to an Observer set with
// WithObserver. Transfer progress is reported through a ProgressFunc passed
// to each transfer.
//
// # Error Handling
//
// Transfer failures are reported as false plus EventTransferFailed; returned
// errors signal channel faults or misuse. The structured error types are:
//   - EntryTimeoutError: the bootloader prompt never appeared
//   - ApplyTimeoutError: an update was not confirmed in time
//   - CommandError: the bootloader answered ERROR
//   - CommandNotSupportedError: the family lacks a command; nothing was sent
//   - ErrNotInBootloader: the device already left the bootloader
//
// Session is not safe for concurrent use.
package bootloader
