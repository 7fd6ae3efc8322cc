package ttystep

import (
	"log/slog"
	"time"

	"github.com/aretw0/ttystep/pkg/adapters/process"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/registry"
)

// DefaultRecording is the recording path used when none is configured.
const DefaultRecording = "ttystep.ttyrec"

// DefaultProgram is the program wrapped when none is configured.
const DefaultProgram = "demo"

type options struct {
	id            string
	program       string
	registry      *registry.Registry
	image         *process.Image
	images        map[string]process.Image
	strategy      domain.Strategy
	recording     string
	appendMode    bool
	recordActions bool
	workDir       string
	settle        time.Duration
	terminalFD    int
	rebind        bool
	logger        *slog.Logger
	hooks         domain.LifecycleHooks
}

// Option configures a Session.
type Option func(*options)

// WithSessionID sets the session identifier (default: a random UUID).
func WithSessionID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithProgram selects the registered program to wrap.
func WithProgram(name string) Option {
	return func(o *options) {
		o.program = name
	}
}

// WithRegistry sets where program names are resolved (default: the built-in programs).
func WithRegistry(reg *registry.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithImage overrides the program image spawned by the isolated and relay strategies.
func WithImage(img process.Image) Option {
	return func(o *options) {
		o.image = &img
	}
}

// WithImages declares program images by program name. The image named like
// the selected program is used unless WithImage sets one explicitly.
func WithImages(images map[string]process.Image) Option {
	return func(o *options) {
		o.images = images
	}
}

// WithStrategy selects how the session is run and reset.
func WithStrategy(s domain.Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithRecording sets the recording path. An existing file is truncated unless
// WithAppend is given.
func WithRecording(path string) Option {
	return func(o *options) {
		o.recording = path
	}
}

// WithAppend appends to an existing recording instead of truncating it.
func WithAppend(enabled bool) Option {
	return func(o *options) {
		o.appendMode = enabled
	}
}

// WithRecordActions also records every action fed to the program.
func WithRecordActions(enabled bool) Option {
	return func(o *options) {
		o.recordActions = enabled
	}
}

// WithWorkDir sets the directory holding the program's resource files.
func WithWorkDir(dir string) Option {
	return func(o *options) {
		o.workDir = dir
	}
}

// WithSettle sets the relay settle window.
func WithSettle(d time.Duration) Option {
	return func(o *options) {
		o.settle = d
	}
}

// WithTerminalMode captures the terminal on fd for the lifetime of the session,
// switching it to non-canonical, non-echo input.
func WithTerminalMode(fd int) Option {
	return func(o *options) {
		o.terminalFD = fd
	}
}

// WithStdioRebind points descriptors 0 and 1 at the session conduits
// (inplace strategy only).
func WithStdioRebind(enabled bool) Option {
	return func(o *options) {
		o.rebind = enabled
	}
}

// WithLogger sets a custom structured logger for the session.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}
