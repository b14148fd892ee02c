package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/simforecast/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// Options controls the process-wide logger settings.
type Options struct {
	// Level is a zerolog level name such as "debug" or "warn".
	Level string
	// Format is "json" or "console". APP_ENV=dev forces console output.
	Format string
	// Out defaults to os.Stderr.
	Out io.Writer
}

var (
	mu      sync.RWMutex
	current = Options{Level: "info", Format: "json"}
)

// Configure sets the level and format used by loggers created afterwards.
func Configure(opts Options) error {
	if opts.Level == "" {
		opts.Level = "info"
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	current = opts
	zerolog.SetGlobalLevel(lvl)
	return nil
}

func options() Options {
	mu.RLock()
	defer mu.RUnlock()
	o := current
	if o.Out == nil {
		o.Out = os.Stderr
	}
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		o.Format = "console"
	}
	return o
}

// New returns a Logger for the given component.
func New(component string) Logger {
	return NewZerologLogger(component)
}
