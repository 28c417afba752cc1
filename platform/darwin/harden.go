//go:build darwin

package darwin

import (
	"fmt"
	"syscall"
)

// ptDenyAttach is the PT_DENY_ATTACH request code for ptrace on macOS.
// Applying it prevents debuggers from attaching to the calling process.
// See: <sys/ptrace.h> in the Darwin kernel headers.
const ptDenyAttach = 31

// hardenProcess is a package-level variable so tests can override it to
// simulate errors without mutating the real process.
var hardenProcess = hardenProcessImpl

// hardenProcessImpl hardens the sx process itself (not the sandboxed
// child) before it builds and hands off the child's environment:
//   - PT_DENY_ATTACH: prevents a debugger from attaching to sx and reading
//     the invoker's environment (which may still carry secrets at the
//     point BuildChildEnv's allowlist is applied).
//   - RLIMIT_CORE=0: disables core dumps, so a crash of sx can't leave
//     that same environment readable on disk.
//
// Idempotent: a second call's EINVAL from an already-applied
// PT_DENY_ATTACH is ignored.
func hardenProcessImpl() error {
	_, _, errno := syscall.Syscall(syscall.SYS_PTRACE, ptDenyAttach, 0, 0)
	if errno != 0 && errno != syscall.EINVAL {
		return fmt.Errorf("PT_DENY_ATTACH failed: %w", errno)
	}

	rlim := syscall.Rlimit{Cur: 0, Max: 0}
	if err := syscall.Setrlimit(syscall.RLIMIT_CORE, &rlim); err != nil {
		return fmt.Errorf("disable core dumps (RLIMIT_CORE): %w", err)
	}
	return nil
}
