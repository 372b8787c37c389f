package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/moffa90/go-ymboot/bootloader"
	"github.com/moffa90/go-ymboot/transport"
)

const (
	entryCommand = "command"
	entryManual  = "manual"
)

var errPortRequired = errors.New("no serial port given, use --port or set \"port\" in the config file")

func newEntry(name, resetCommand string) (bootloader.EntryStrategy, error) {
	switch strings.ToLower(name) {
	case entryCommand:
		return &bootloader.CommandEntry{ResetCommand: resetCommand}, nil
	case entryManual:
		return &bootloader.ManualResetEntry{}, nil
	}
	return nil, fmt.Errorf("invalid entry strategy %q, must be one of: %s, %s", name, entryCommand, entryManual)
}

// withSession opens the serial port, enters the bootloader and runs fn. The
// device is booted and the port closed afterwards.
func withSession(fn func(s *bootloader.Session, log *zap.SugaredLogger) error) error {
	family, err := bootloader.ParseFamily(flagFamily)
	if err != nil {
		return err
	}
	entry, err := newEntry(flagEntry, flagResetCommand)
	if err != nil {
		return err
	}
	if flagPort == "" {
		return errPortRequired
	}

	logger, err := newLogger(flagVerbose)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	port, err := transport.OpenSerial(transport.SerialConfig{
		Port:     flagPort,
		BaudRate: flagBaud,
		Parity:   flagParity,
		Echo:     flagEcho,
	})
	if err != nil {
		return err
	}
	// the session closes the port, except when entry fails
	defer port.Close()

	log.Infow("Entering bootloader", "port", flagPort, "family", family, "entry", entry.Name())
	return bootloader.With(port, entry, family,
		func(s *bootloader.Session) error {
			return fn(s, log)
		},
		bootloader.WithLogger(&zapLogger{s: logger.Named("bootloader").Sugar()}),
		bootloader.WithObserver(newObserver(log)),
		bootloader.WithEntryTimeout(flagEntryTimeout),
	)
}

// newObserver reports session milestones to the user.
func newObserver(log *zap.SugaredLogger) bootloader.Observer {
	return func(e bootloader.Event) {
		switch e.Kind {
		case bootloader.EventManualResetRequired:
			fmt.Fprintln(os.Stderr, "Press the reset button on the device now.")
		case bootloader.EventBootloaderEntered:
			log.Infow("Bootloader ready", "family", e.Family)
		case bootloader.EventTransferFailed:
			log.Errorw("Transfer failed", "file", e.File, "error", e.Err)
		case bootloader.EventApplyingUpdate:
			log.Infow("Applying update, do not power off the device")
		case bootloader.EventApplicationEntered:
			log.Infow("Application started")
		default:
			log.Debugw("Session event", "event", e.Kind.String(), "file", e.File)
		}
	}
}

// newProgress renders transfer progress as a byte progress bar on stderr.
// The bar is created when the first data block is acknowledged.
func newProgress(description string) (bootloader.ProgressFunc, func()) {
	var bar *progressbar.ProgressBar
	progress := func(transferred, total int, message string) {
		if transferred < 0 {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(description),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)
		}
		bar.Set(transferred)
	}
	done := func() {
		if bar != nil {
			bar.Finish()
		}
	}
	return progress, done
}
