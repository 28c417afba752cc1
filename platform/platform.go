package platform

import (
	"context"
	"io"
)

// WrapConfig is the platform-independent projection of an sx.Policy: the
// fields a Platform needs to build a Seatbelt profile and launch the
// sandboxed child. It lives here, rather than the root package importing
// this one, because platform/darwin builds on this package and must not
// import the root package back (that would be a cycle) — root wires the
// two together at init via platform_darwin.go.
type WrapConfig struct {
	WorkingDir string
	HomeDir    string

	AllowRead  []string
	AllowWrite []string
	DenyRead   []string

	NetworkMode string // "offline" | "localhost" | "online"

	EnvPass []string
	EnvDeny []string
	EnvSet  map[string]string

	RawRules []string
	Shell    string
}

// LaunchOptions configures a single Launch call.
type LaunchOptions struct {
	Argv       []string // command + args; empty means launch Shell interactively
	InvokerEnv []string // "KEY=value" pairs captured at process startup

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Debug bool // preserve the profile file instead of deleting it on exit

	// OnStart, if set, is called once the sandboxed child has been
	// started, with its PID. Used by --trace to attach a log-stream
	// observer scoped to that PID before the child produces output.
	OnStart func(pid int)
}

// LaunchResult reports how a Launch call concluded.
type LaunchResult struct {
	ExitCode    int
	ProfilePath string // non-empty only when Debug was set
	Rejected    bool   // true if sandbox-exec's own diagnostics indicate a profile rejection
	KernelDiag  string // captured kernel diagnostic text, populated when Rejected
}

// DependencyCheck holds the result of a dependency check.
type DependencyCheck struct {
	// Errors lists critical missing dependencies that prevent sandboxing.
	Errors []string

	// Warnings lists non-critical issues that may degrade functionality.
	Warnings []string
}

// OK returns true if no critical dependency errors were found.
func (d *DependencyCheck) OK() bool {
	return len(d.Errors) == 0
}

// Platform is the OS-specific implementation of the Seatbelt profile
// emitter (C6) and launcher (C7). macOS via sandbox-exec is the only
// supported target per spec.md §1; every other OS gets the stub from
// NewUnsupportedPlatform.
type Platform interface {
	// Name returns a human-readable identifier, e.g. "darwin-seatbelt".
	Name() string

	// Available reports whether the sandbox mechanism is usable on this
	// system (e.g. sandbox-exec exists and is executable).
	Available() bool

	// CheckDependencies inspects the system for required dependencies.
	CheckDependencies() *DependencyCheck

	// BuildProfile translates cfg into Seatbelt profile text. It is a
	// pure function of cfg (spec.md §4.6, Testable Property 1:
	// determinism) so --dry-run and --explain can render it without
	// spawning anything.
	BuildProfile(cfg *WrapConfig) (string, error)

	// Launch materializes the profile to a temp file, spawns the
	// sandboxed child described by opts under cfg's policy, forwards
	// signals, waits for it to exit, and cleans up (spec.md §4.7).
	Launch(ctx context.Context, cfg *WrapConfig, opts *LaunchOptions) (*LaunchResult, error)
}

// Detect returns the appropriate Platform for the current OS: on darwin,
// one backed by sandbox-exec; anywhere else, a stub that reports itself
// unavailable.
func Detect() Platform {
	return detectPlatform()
}
