package bootloader

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/moffa90/go-ymboot/firmware"
	"github.com/moffa90/go-ymboot/protocol"
	"github.com/moffa90/go-ymboot/timer"
	"github.com/moffa90/go-ymboot/transport"
	"github.com/moffa90/go-ymboot/ymodem"
)

// State is where the device is from the session's point of view.
type State int

const (
	StateBootloader State = iota + 1
	StateApplication
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateBootloader:
		return "bootloader"
	case StateApplication:
		return "application"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session drives a device bootloader over a channel it owns from Open until
// Close.
//
// Session is not safe for concurrent use.
type Session struct {
	ch      transport.Channel
	entry   EntryStrategy
	profile Profile
	config  Config
	link    *Link
	state   State
}

// Open enters the bootloader of a device of the given family and returns a
// session ready for commands. On failure nothing is rebooted and the channel
// stays open for the caller to close.
//
// Example:
//
//	session, err := bootloader.Open(port, &bootloader.CommandEntry{}, bootloader.FamilyNova,
//	    bootloader.WithObserver(observer),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
func Open(ch transport.Channel, entry EntryStrategy, family DeviceFamily, opts ...Option) (*Session, error) {
	if ch == nil {
		panic("channel cannot be nil")
	}
	if entry == nil {
		panic("entry strategy cannot be nil")
	}

	profile, err := LookupProfile(family)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		ch:      ch,
		entry:   entry,
		profile: profile,
		config:  cfg,
		link: &Link{
			Channel:  ch,
			Clock:    cfg.Clock,
			Family:   family,
			observer: cfg.Observer,
			logger:   cfg.Logger,
		},
	}

	start := timer.Start(cfg.Clock)
	s.logDebug("entering bootloader", "family", family, "strategy", entry.Name())
	if err := entry.EnterBootloader(s.link, cfg.EntryTimeout); err != nil {
		s.logError("bootloader entry failed", "family", family, "error", err)
		return nil, fmt.Errorf("enter bootloader: %w", err)
	}

	s.state = StateBootloader
	s.emit(EventBootloaderEntered, "", nil)
	s.logInfo("bootloader entered", "family", family, "elapsed", start.Elapsed().String())

	return s, nil
}

// With opens a session, runs fn and closes the session, also when fn
// panics. fn's error takes precedence; a Close error is appended to it.
//
// Example:
//
//	err := bootloader.With(port, &bootloader.CommandEntry{}, bootloader.FamilyAtlas,
//	    func(s *bootloader.Session) error {
//	        _, err := s.SendUpgrade(img, true, nil)
//	        return err
//	    })
func With(ch transport.Channel, entry EntryStrategy, family DeviceFamily, fn func(*Session) error, opts ...Option) (err error) {
	s, err := Open(ch, entry, family, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := s.Close(); cerr != nil {
			if err == nil {
				err = cerr
			} else {
				err = multierror.Append(err, cerr)
			}
		}
	}()

	return fn(s)
}

// Close boots the application if the device is still in its bootloader and
// closes the channel. Closing twice is a no-op.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}

	var result *multierror.Error
	if s.state == StateBootloader && s.profile.Supports(protocol.CmdBoot) {
		if err := s.Boot(); err != nil {
			result = multierror.Append(result, fmt.Errorf("boot: %w", err))
		}
	}
	if err := s.ch.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close channel: %w", err))
	}
	s.state = StateClosed

	return result.ErrorOrNil()
}

// Profile returns the profile of the device family.
func (s *Session) Profile() Profile {
	return s.profile
}

// State returns the current session state.
func (s *Session) State() State {
	return s.state
}

// Boot leaves the bootloader and starts the application.
func (s *Session) Boot() error {
	if err := s.writeCommand(protocol.CmdBoot); err != nil {
		return err
	}
	s.state = StateApplication
	s.emit(EventApplicationEntered, "", nil)
	return nil
}

// Reset reboots the device.
func (s *Session) Reset() error {
	if err := s.writeCommand(protocol.CmdReset); err != nil {
		return err
	}
	s.state = StateApplication
	return nil
}

// Erase wipes the device file storage.
func (s *Session) Erase() error {
	if err := s.check(protocol.CmdErase); err != nil {
		return err
	}

	resp, err := s.command(protocol.CmdErase, s.config.EraseTimeout)
	if err != nil {
		return err
	}
	if protocol.ContainsError(resp) {
		return &CommandError{Command: protocol.CmdErase, Response: protocol.TrimResponse(resp)}
	}
	return nil
}

// SendFile stores img on the device, under dst if given or under the image
// name otherwise. A rejected or timed out transfer yields false with a nil
// error; errors are reserved for channel faults and misuse. Families without
// recv get *CommandNotSupportedError.
func (s *Session) SendFile(img *firmware.Image, dst string, progress ProgressFunc) (bool, error) {
	if err := s.check(protocol.CmdRecv); err != nil {
		return false, err
	}
	if img == nil {
		return false, fmt.Errorf("image cannot be nil")
	}

	// No current simple-transfer family has recv, so the "ymodem" argument
	// is only reached by a future one that does.
	if err := s.writeLine(protocol.BuildRecvCmd(s.profile.SimpleTransfer, dst)); err != nil {
		return false, err
	}

	if _, err := s.ch.ReadUntil([]byte{protocol.CRCRequest}, protocol.CRCRequestTimeout); err != nil {
		if !transport.IsTimeout(err) {
			return false, fmt.Errorf("wait for receiver: %w", err)
		}
		s.transferFailed(img.Name, &protocol.TransferError{
			Phase: ymodem.PhaseSetup,
			Err:   &protocol.TimeoutError{Operation: "receiver ready", Timeout: protocol.CRCRequestTimeout, Err: err},
		})
		return false, nil
	}

	return s.transferAndConfirm(img, protocol.CmdRecv, progress)
}

// SendUpgrade sends a firmware update. With apply, or on families that
// always apply, the update is installed right away and the device reboots
// into it; otherwise it is staged for a later Flash.
func (s *Session) SendUpgrade(img *firmware.Image, apply bool, progress ProgressFunc) (bool, error) {
	if img == nil {
		return false, fmt.Errorf("image cannot be nil")
	}

	if !apply && !s.profile.AlwaysApply {
		if err := s.check(protocol.CmdTransfer); err != nil {
			return false, err
		}
		if err := s.writeLine(protocol.BuildTransferCmd(s.profile.SimpleTransfer)); err != nil {
			return false, err
		}
		return s.transferAndConfirm(img, protocol.CmdTransfer, progress)
	}

	if err := s.check(protocol.CmdUpgrade); err != nil {
		return false, err
	}
	if err := s.writeLine(protocol.BuildUpgradeCmd(s.profile.SimpleTransfer)); err != nil {
		return false, err
	}

	ok, err := s.transfer(img, progress)
	if err != nil {
		return false, err
	}
	if !ok {
		// the receiver gave up; leave the bootloader rather than stay stuck in it
		if err := s.Boot(); err != nil {
			return false, fmt.Errorf("boot after failed upgrade: %w", err)
		}
		return false, nil
	}

	s.emit(EventTransferSucceeded, img.Name, nil)
	return s.completeUpgrade(img.Name)
}

// Flash applies an update staged by SendUpgrade without apply.
func (s *Session) Flash() (bool, error) {
	if s.profile.AlwaysApply {
		return false, &CommandNotSupportedError{Family: s.profile.Family, Command: protocol.CmdFlash}
	}
	if err := s.writeCommand(protocol.CmdFlash); err != nil {
		return false, err
	}
	return s.completeUpgrade("")
}

// ListFiles returns the files stored on the device. A device answering
// ERROR has no files.
func (s *Session) ListFiles() ([]protocol.FileEntry, error) {
	if err := s.check(protocol.CmdList); err != nil {
		return nil, err
	}

	resp, err := s.command(protocol.CmdList, s.config.ResponseTimeout)
	if err != nil {
		return nil, err
	}
	return protocol.ParseListResponse(resp), nil
}

// DeleteFile removes a stored file and reports whether the device accepted.
func (s *Session) DeleteFile(name string) (bool, error) {
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return false, fmt.Errorf("invalid file name %q", name)
	}
	if err := s.check(protocol.CmdDelete); err != nil {
		return false, err
	}

	resp, err := s.command(protocol.BuildDeleteCmd(name), s.config.ResponseTimeout)
	if err != nil {
		return false, err
	}
	if protocol.ContainsError(resp) {
		s.logDebug("delete rejected", "file", name, "response", protocol.TrimResponse(resp))
		return false, nil
	}
	return true, nil
}

// Help returns the bootloader's own command summary.
func (s *Session) Help() (string, error) {
	if err := s.check(protocol.CmdHelp); err != nil {
		return "", err
	}

	resp, err := s.command(protocol.CmdHelp, s.config.ResponseTimeout)
	if err != nil {
		return "", err
	}
	return protocol.TrimResponse(resp), nil
}

// transferAndConfirm runs the transfer for a command whose result the
// bootloader prints before returning to the prompt.
func (s *Session) transferAndConfirm(img *firmware.Image, command string, progress ProgressFunc) (bool, error) {
	ok, err := s.transfer(img, progress)
	if err != nil || !ok {
		return false, err
	}

	resp, err := s.ch.ReadUntil([]byte(protocol.Prompt), s.config.ResponseTimeout)
	if err != nil {
		if !transport.IsTimeout(err) {
			return false, fmt.Errorf("read %s response: %w", command, err)
		}
		s.transferFailed(img.Name, &protocol.TimeoutError{Operation: command + " response", Timeout: s.config.ResponseTimeout, Err: err})
		return false, nil
	}
	if protocol.ContainsError(resp) {
		s.transferFailed(img.Name, &CommandError{Command: command, Response: protocol.TrimResponse(resp)})
		return false, nil
	}

	s.emit(EventTransferSucceeded, img.Name, nil)
	return true, nil
}

// transfer sends img with the YMODEM sender. Receiver failures are reported
// as an event and false; only channel faults are returned as errors.
func (s *Session) transfer(img *firmware.Image, progress ProgressFunc) (bool, error) {
	sender := ymodem.New(s.ch,
		ymodem.WithLogger(s.config.Logger),
		ymodem.WithClock(s.config.Clock),
	)

	setupStarted := false
	err := sender.Send(img, s.profile.SetupTimeout, func(transferred, total int, message string) {
		if transferred < 0 && !setupStarted {
			setupStarted = true
			s.emit(EventTransferSetupStarted, img.Name, nil)
		}
		if progress != nil {
			progress(transferred, total, message)
		}
	})
	if err == nil {
		return true, nil
	}
	if protocol.IsTimeoutError(err) || protocol.IsProtocolError(err) {
		s.transferFailed(img.Name, err)
		return false, nil
	}
	return false, err
}

// completeUpgrade waits for an update to be applied.
func (s *Session) completeUpgrade(file string) (bool, error) {
	s.emit(EventApplyingUpdate, file, nil)

	ok, err := s.entry.CompleteUpgrade(s.link, s.profile.ApplyTimeout)
	if err != nil {
		s.logError("update not confirmed", "error", err)
		return false, err
	}
	if !ok {
		s.logError("update failed", "file", file)
		return false, nil
	}

	s.state = StateApplication
	s.emit(EventApplicationEntered, "", nil)
	s.logInfo("update applied", "file", file)
	return true, nil
}

func (s *Session) transferFailed(file string, err error) {
	s.logError("transfer failed", "file", file, "error", err)
	s.emit(EventTransferFailed, file, err)
}

// check verifies that a command may be sent now.
func (s *Session) check(command string) error {
	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateBootloader:
	default:
		return ErrNotInBootloader
	}
	if !s.profile.Supports(command) {
		return &CommandNotSupportedError{Family: s.profile.Family, Command: command}
	}
	return nil
}

// writeCommand checks and sends a command that has no response.
func (s *Session) writeCommand(command string) error {
	if err := s.check(command); err != nil {
		return err
	}
	return s.writeLine(command)
}

func (s *Session) writeLine(line string) error {
	s.logDebug("sending command", "line", line)
	if err := s.ch.WriteLine(line); err != nil {
		return fmt.Errorf("write command %q: %w", line, err)
	}
	return nil
}

// command sends line and returns everything up to and including the prompt.
func (s *Session) command(line string, timeout time.Duration) ([]byte, error) {
	if err := s.writeLine(line); err != nil {
		return nil, err
	}

	resp, err := s.ch.ReadUntil([]byte(protocol.Prompt), timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return resp, &protocol.TimeoutError{Operation: line, Timeout: timeout, Err: err}
		}
		return resp, fmt.Errorf("read response to %q: %w", line, err)
	}
	return resp, nil
}

func (s *Session) emit(kind EventKind, file string, err error) {
	s.link.Emit(Event{Kind: kind, File: file, Err: err})
}

// logDebug logs a debug message if a logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
