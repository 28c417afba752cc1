//go:build darwin

package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// SandboxExecPath is the path to the macOS sandbox-exec binary.
// This is a var (not const) so tests can temporarily override it to simulate
// a missing sandbox-exec binary.
var SandboxExecPath = "/usr/bin/sandbox-exec"

// detectPlatform returns a minimal built-in darwin platform. It only
// confirms sandbox-exec is present; the real profile emitter and launcher
// live in platform/darwin and are wired in by the root package's init
// (see platform_darwin.go) to avoid this package importing its own
// subpackage.
func detectPlatform() Platform {
	return &builtinDarwinPlatform{}
}

// builtinDarwinPlatform is the Platform that Detect() returns on darwin. The
// root package replaces it with platform/darwin's implementation by
// overriding its own detectPlatformFn.
type builtinDarwinPlatform struct{}

func (p *builtinDarwinPlatform) Name() string { return "darwin-seatbelt" }

func (p *builtinDarwinPlatform) Available() bool {
	_, err := os.Stat(SandboxExecPath)
	return err == nil
}

func (p *builtinDarwinPlatform) CheckDependencies() *DependencyCheck {
	check := &DependencyCheck{}
	if _, err := os.Stat(SandboxExecPath); err != nil {
		check.Errors = append(check.Errors, fmt.Sprintf("sandbox-exec not found at %s: %v", SandboxExecPath, err))
	}
	return check
}

func (p *builtinDarwinPlatform) BuildProfile(_ *WrapConfig) (string, error) {
	return "", errors.New("darwin-seatbelt: built-in stub does not implement BuildProfile; use the platform/darwin package")
}

func (p *builtinDarwinPlatform) Launch(_ context.Context, _ *WrapConfig, _ *LaunchOptions) (*LaunchResult, error) {
	return nil, errors.New("darwin-seatbelt: built-in stub does not implement Launch; use the platform/darwin package")
}
