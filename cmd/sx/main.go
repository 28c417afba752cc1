// Command sx wraps shell sessions and one-off commands in a macOS
// Seatbelt sandbox, restricting filesystem and network access.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sxtool/sx"
	"github.com/sxtool/sx/detect"
	"github.com/sxtool/sx/platform"
	"github.com/sxtool/sx/shellprompt"
	"github.com/sxtool/sx/tracelog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		verbose    bool
		debug      bool
		trace      bool
		traceFile  string
		dryRun     bool
		configPath string
		noConfig   bool
		initFlag   bool
		explain    bool
		offline    bool
		online     bool
		localhost  bool
		allowRead  []string
		allowWrite []string
		denyRead   []string
	)

	root := &cobra.Command{
		Use:   "sx [flags] [profiles...] [-- command args...]",
		Short: "Run a shell session or command inside a macOS sandbox",
		Long: "sx wraps shell sessions and one-off commands in a macOS Seatbelt\n" +
			"sandbox, restricting filesystem and network access to protect the\n" +
			"user's system.",
		Example: "  sx rust                 # interactive shell, rust profile\n" +
			"  sx online -- npm install\n" +
			"  sx --dry-run claude",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, positional []string) error {
			logger := newLogger(verbose, debug)

			if initFlag {
				return runInit(logger)
			}

			profiles, command := splitProfilesAndCommand(positional, cmd.ArgsLenAtDash())

			// Only override the merged policy's network mode when the user
			// actually passed one of --offline/--online/--localhost; leaving
			// CLIOverrides.NetworkMode nil lets layers below (profiles,
			// config) decide (spec.md §6.1, worked examples E2/E6).
			var networkMode *sx.NetworkMode
			switch {
			case cmd.Flags().Changed("online"):
				m := sx.NetworkOnline
				networkMode = &m
			case cmd.Flags().Changed("localhost"):
				m := sx.NetworkLocalhost
				networkMode = &m
			case cmd.Flags().Changed("offline"):
				m := sx.NetworkOffline
				networkMode = &m
			}

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}

			opts := &sx.Options{
				WorkingDir:   wd,
				HomeDir:      home,
				InvokerEnv:   os.Environ(),
				NoConfig:     noConfig,
				ConfigPath:   configPath,
				ProjectRoot:  detect.ProjectRoot(wd),
				ProfileNames: profiles,
				CLI: sx.CLIOverrides{
					NetworkMode: networkMode,
					AllowRead:   allowRead,
					AllowWrite:  allowWrite,
					DenyRead:    denyRead,
				},
			}

			sess := sx.NewSession(logger)

			if dryRun || explain {
				profile, policy, err := sess.BuildProfile(opts)
				if err != nil {
					return err
				}
				if explain {
					printExplain(cmd.OutOrStdout(), policy)
				} else {
					fmt.Fprint(cmd.OutOrStdout(), profile)
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var tracer *tracelog.Tracer
			launchOpts := &platform.LaunchOptions{
				Argv:       command,
				InvokerEnv: os.Environ(),
				Stdin:      os.Stdin,
				Stdout:     os.Stdout,
				Stderr:     os.Stderr,
				Debug:      debug,
			}
			if trace || debug {
				launchOpts.OnStart = func(pid int) {
					tracer = tracelog.New(pid)
					if err := tracer.Start(ctx); err != nil {
						logger.Warn("trace: failed to start", "error", err)
						tracer = nil
					}
				}
			}

			result, err := sess.Run(ctx, opts, launchOpts)
			if tracer != nil {
				_ = tracer.Stop()
				out, closeFn := traceOutput(traceFile)
				fmt.Fprint(out, tracelog.Render(tracer.Violations()))
				closeFn()
			}
			if err != nil {
				return err
			}
			if result.ProfilePath != "" && debug {
				fmt.Fprintf(os.Stderr, "sx: profile preserved at %s\n", result.ProfilePath)
			}
			os.Exit(result.ExitCode)
			return nil
		},
	}

	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable informational log output")
	root.Flags().BoolVarP(&debug, "debug", "d", false, "log all denials and preserve the profile file on failure")
	root.Flags().BoolVarP(&trace, "trace", "t", false, "show blocked operations in real time")
	root.Flags().StringVar(&traceFile, "trace-file", "", "write trace output to PATH instead of stderr")
	root.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the generated sandbox profile without executing")
	root.Flags().StringVarP(&configPath, "config", "c", "", "use the config file at PATH instead of the discovered one")
	root.Flags().BoolVar(&noConfig, "no-config", false, "ignore all config files")
	root.Flags().BoolVar(&initFlag, "init", false, "create a .sandbox.toml in the current directory")
	root.Flags().BoolVar(&explain, "explain", false, "show what the resolved policy would allow and deny")
	root.Flags().BoolVar(&offline, "offline", false, "block all network access (default)")
	root.Flags().BoolVar(&online, "online", false, "allow all network access")
	root.Flags().BoolVar(&localhost, "localhost", false, "allow localhost network access only")
	root.Flags().StringSliceVar(&allowRead, "allow-read", nil, "allow read access to PATH")
	root.Flags().StringSliceVar(&allowWrite, "allow-write", nil, "allow write access to PATH")
	root.Flags().StringSliceVar(&denyRead, "deny-read", nil, "deny read access to PATH, overriding any allow")

	root.AddCommand(shellInitCmd())

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatCLIError(err))
		return 1
	}
	return 0
}

func newLogger(verbose, debug bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// splitProfilesAndCommand separates the leading profile names from a
// trailing "-- command args..." using cobra's ArgsLenAtDash, which is -1
// when no "--" was present (spec.md §6.1).
func splitProfilesAndCommand(args []string, dashAt int) (profiles, command []string) {
	if dashAt < 0 {
		return args, nil
	}
	return args[:dashAt], args[dashAt:]
}

// traceOutput opens --trace-file if set, falling back to stderr. The
// returned close func is always safe to call.
func traceOutput(path string) (io.Writer, func()) {
	if path == "" {
		return os.Stderr, func() {}
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sx: trace: %v, writing to stderr instead\n", err)
		return os.Stderr, func() {}
	}
	return f, func() { _ = f.Close() }
}

func runInit(logger *slog.Logger) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	profile := detect.Detect(wd)
	path := filepath.Join(wd, ".sandbox.toml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("sx: init: %s already exists", path)
	}
	content := detect.RenderInitialConfig(profile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}
	logger.Info("created .sandbox.toml", "path", path, "detected_profile", profile)
	return nil
}

func printExplain(w io.Writer, p *sx.Policy) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, bold.Sprint("network:"), p.NetworkMode)
	fmt.Fprintln(w, bold.Sprint("shell:"), p.Shell)
	fmt.Fprintln(w, bold.Sprint("allow_read:"))
	for _, path := range p.FS.AllowRead.Slice() {
		fmt.Fprintln(w, " ", path)
	}
	fmt.Fprintln(w, bold.Sprint("allow_write:"))
	for _, path := range p.FS.AllowWrite.Slice() {
		fmt.Fprintln(w, " ", path)
	}
	fmt.Fprintln(w, bold.Sprint("deny_read:"))
	for _, path := range p.FS.DenyRead.Slice() {
		fmt.Fprintln(w, " ", path)
	}
}

// formatCLIError renders err for stderr. *sx.SxError already produces the
// "sx: <kind>: <detail>" diagnostic format from spec.md §7; anything else
// (cobra usage errors, plain I/O errors) gets the same "sx: " prefix so
// every failure mode looks consistent on the terminal.
func formatCLIError(err error) string {
	if _, ok := err.(*sx.SxError); ok {
		return err.Error()
	}
	return "sx: " + err.Error()
}

func shellInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell-init {zsh|bash}",
		Short: "Print a shell snippet that adds a SANDBOX_MODE prompt segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snippet, err := shellprompt.Snippet(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), snippet)
			return nil
		},
	}
}
