//go:build darwin

package darwin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sxtool/sx/internal/envutil"
	"github.com/sxtool/sx/platform"
)

// processGroupWaitDelay is how long Launch waits for a signaled child's
// process group to exit on its own before escalating to SIGKILL.
const processGroupWaitDelay = 3 * time.Second

// Platform implements platform.Platform using macOS sandbox-exec
// (Seatbelt): it turns a WrapConfig into an SBPL profile (BuildProfile)
// and spawns the sandboxed child under it (Launch).
type Platform struct{}

// buildProfile is a package-level variable so tests can override it to
// simulate emitter failures without constructing a real profileBuilder.
var buildProfile = func(cfg *platform.WrapConfig) (string, error) {
	return newProfileBuilder().Build(cfg)
}

func New() *Platform { return &Platform{} }

func (d *Platform) Name() string { return "darwin-seatbelt" }

func (d *Platform) Available() bool {
	_, err := os.Stat(platform.SandboxExecPath)
	return err == nil
}

func (d *Platform) CheckDependencies() *platform.DependencyCheck {
	check := &platform.DependencyCheck{}
	if _, err := os.Stat(platform.SandboxExecPath); err != nil {
		check.Errors = append(check.Errors,
			fmt.Sprintf("sandbox-exec not found at %s: %v", platform.SandboxExecPath, err))
	}
	return check
}

// BuildProfile renders cfg's SBPL profile text. It performs no I/O beyond
// what the emitter itself does, and spawns nothing, so --dry-run and
// --explain can call it directly.
func (d *Platform) BuildProfile(cfg *platform.WrapConfig) (string, error) {
	if cfg == nil {
		cfg = &platform.WrapConfig{}
	}
	return buildProfile(cfg)
}

// Launch materializes cfg's profile to a uniquely-named temp file, spawns
// the sandboxed child under sandbox-exec -f, forwards termination signals
// to the child's process group, waits for it to exit, and removes the
// profile file unless opts.Debug asked it preserved (spec.md §4.7).
func (d *Platform) Launch(ctx context.Context, cfg *platform.WrapConfig, opts *platform.LaunchOptions) (*platform.LaunchResult, error) {
	if cfg == nil {
		cfg = &platform.WrapConfig{}
	}
	if opts == nil {
		opts = &platform.LaunchOptions{}
	}

	// Best-effort: harden sx itself against debugger attachment and core
	// dumps before it assembles the child's environment, which may still
	// carry unfiltered secrets from the invoker at this point. A failure
	// here (e.g. already ptrace-denied by an ancestor) never blocks launch.
	_ = hardenProcess()

	profile, err := buildProfile(cfg)
	if err != nil {
		return nil, fmt.Errorf("darwin-seatbelt: building profile: %w", err)
	}

	profilePath, err := writeProfileFile(profile)
	if err != nil {
		return nil, fmt.Errorf("darwin-seatbelt: writing profile file: %w", err)
	}
	removeProfile := func() {
		if !opts.Debug {
			_ = os.Remove(profilePath)
		}
	}

	argv := opts.Argv
	shell := cfg.Shell
	if shell == "" {
		shell = "/bin/zsh"
	}
	var sandboxArgs []string
	if len(argv) == 0 {
		sandboxArgs = []string{shell}
	} else {
		sandboxArgs = argv
	}

	args := []string{"-f", profilePath,
		"-D", "working_dir=" + cfg.WorkingDir,
		"-D", "home=" + cfg.HomeDir,
		"--"}
	args = append(args, sandboxArgs...)

	cmd := exec.CommandContext(ctx, platform.SandboxExecPath, args...)
	cmd.Dir = cfg.WorkingDir
	cmd.Env = envutil.BuildChildEnv(opts.InvokerEnv, cfg.EnvPass, cfg.EnvDeny, cfg.EnvSet, cfg.NetworkMode)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout

	var stderrTee bytes.Buffer
	if opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(opts.Stderr, &stderrTee)
	} else {
		cmd.Stderr = &stderrTee
	}

	setupProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		removeProfile()
		return nil, fmt.Errorf("darwin-seatbelt: starting sandbox-exec: %w", err)
	}
	if opts.OnStart != nil {
		opts.OnStart(cmd.Process.Pid)
	}

	exitCode, waitErr := waitWithSignalForwarding(cmd)

	result := &platform.LaunchResult{ExitCode: exitCode}
	if looksLikeProfileRejection(stderrTee.String()) {
		result.Rejected = true
		result.KernelDiag = strings.TrimSpace(stderrTee.String())
	}

	if opts.Debug && (result.Rejected || waitErr != nil) {
		result.ProfilePath = profilePath
	} else {
		removeProfile()
	}

	return result, nil
}

// writeProfileFile writes profile to a uniquely-named, owner-only-readable
// temp file so concurrent sx invocations never collide (spec.md §5).
func writeProfileFile(profile string) (string, error) {
	name := filepath.Join(os.TempDir(), "sx-"+uuid.NewString()+".sb")
	if err := os.WriteFile(name, []byte(profile), 0o600); err != nil {
		return "", err
	}
	return name, nil
}

// looksLikeProfileRejection is a best-effort heuristic: it reports true when
// stderr contains "Sandbox: sandbox-exec" or "profile compilation failed",
// which sandbox-exec prints when the kernel rejects a malformed profile, as
// opposed to the sandboxed program merely failing on its own.
func looksLikeProfileRejection(stderr string) bool {
	return strings.Contains(stderr, "Sandbox: sandbox-exec") ||
		strings.Contains(stderr, "profile compilation failed")
}

// setupProcessGroup configures cmd to run in its own process group and to
// send SIGTERM to that group (rather than just the direct child) on context
// cancellation, so a shell session's background jobs are terminated with
// it. If the child has not exited after processGroupWaitDelay, it is killed
// with SIGKILL.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.WaitDelay = processGroupWaitDelay
	cmd.Cancel = func() error {
		if cmd.Process == nil || cmd.Process.Pid <= 1 {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
}

// waitWithSignalForwarding forwards SIGINT/SIGTERM/SIGHUP/SIGQUIT received
// by sx itself to the child's process group, and waits for the child to
// exit. It returns the exit code to propagate: 128+signum if the child died
// from a signal, its own exit code otherwise (spec.md §4.7).
func waitWithSignalForwarding(cmd *exec.Cmd) (int, error) {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case sig := <-sigCh:
				if cmd.Process != nil {
					_ = syscall.Kill(-cmd.Process.Pid, sig.(syscall.Signal))
				}
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)
	wg.Wait()

	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return 1, err
}
