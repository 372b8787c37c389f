package ymodem

import (
	"github.com/moffa90/go-ymboot/protocol"
	"github.com/moffa90/go-ymboot/timer"
)

// Config holds the sender configuration.
type Config struct {
	// MaxErrors bounds consecutive failures of a single frame
	MaxErrors int

	// Logger is used for logging transfer steps (optional)
	Logger Logger

	// Clock measures transfer duration; nil means the system clock
	Clock timer.Clock
}

func defaultConfig() Config {
	return Config{
		MaxErrors: protocol.MaxErrors,
		Clock:     timer.System,
	}
}

// Option is a functional option for configuring the Sender.
type Option func(*Config)

// WithMaxErrors sets the retry budget for each frame. Values below 1 are
// ignored.
//
// Example:
//
//	s := ymodem.New(ch, ymodem.WithMaxErrors(3))
func WithMaxErrors(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxErrors = n
		}
	}
}

// WithLogger sets a logger for transfer steps.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithClock sets the clock used to time transfers.
func WithClock(clock timer.Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}
