package bootloader

import (
	"time"

	"github.com/moffa90/go-ymboot/timer"
)

// Default session timeouts.
const (
	DefaultEntryTimeout    = 60 * time.Second
	DefaultResponseTimeout = 10 * time.Second
	DefaultEraseTimeout    = 30 * time.Second
)

// Config holds the session configuration.
type Config struct {
	// Observer receives session events (optional)
	Observer Observer

	// Logger is used for logging operations (optional)
	Logger Logger

	// EntryTimeout bounds entering the bootloader
	EntryTimeout time.Duration

	// ResponseTimeout bounds the wait for the prompt after a command
	ResponseTimeout time.Duration

	// EraseTimeout bounds the erase command, which can take a while
	EraseTimeout time.Duration

	// Clock drives every timeout; tests substitute a fake one
	Clock timer.Clock
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		EntryTimeout:    DefaultEntryTimeout,
		ResponseTimeout: DefaultResponseTimeout,
		EraseTimeout:    DefaultEraseTimeout,
		Clock:           timer.System,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithObserver sets the function receiving session events.
//
// Example:
//
//	session, err := bootloader.Open(ch, entry, family,
//	    bootloader.WithObserver(func(e bootloader.Event) {
//	        fmt.Println(e.Kind)
//	    }),
//	)
func WithObserver(observer Observer) Option {
	return func(c *Config) {
		c.Observer = observer
	}
}

// WithLogger sets a logger for the session operations.
//
// Example:
//
//	session, err := bootloader.Open(ch, entry, family, bootloader.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithEntryTimeout sets how long entering the bootloader may take.
//
// Example:
//
//	session, err := bootloader.Open(ch, entry, family, bootloader.WithEntryTimeout(2*time.Minute))
func WithEntryTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.EntryTimeout = timeout
		}
	}
}

// WithResponseTimeout sets how long to wait for the prompt after a command.
func WithResponseTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ResponseTimeout = timeout
		}
	}
}

// WithEraseTimeout sets how long the erase command may take.
func WithEraseTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.EraseTimeout = timeout
		}
	}
}

// WithClock sets the clock driving session timeouts. It should be the
// clock the channel itself measures timeouts with.
func WithClock(clock timer.Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}
