package sx

import (
	"context"
	"log/slog"

	"github.com/sxtool/sx/platform"
)

// detectPlatformFn is the function used to detect the sandbox platform.
// It is a var, rather than a direct call to platform.Detect, so darwin's
// init (platform_darwin.go) can swap in the full Seatbelt implementation,
// and so tests can stub it out.
var detectPlatformFn = platform.Detect

// Options bundles everything Session needs to resolve a Policy: the
// ambient invocation context plus the CLI-level overrides from spec.md
// §6.1. ConfigPath, when non-empty, replaces the discovered global config
// path; NoConfig skips loading both the global and project config files
// entirely.
type Options struct {
	WorkingDir string
	HomeDir    string
	InvokerEnv []string

	NoConfig   bool
	ConfigPath string // overrides the discovered global config path

	ProjectRoot string // detected project root, for profile resolution tier 2

	ProfileNames []string
	CLI          CLIOverrides
}

// Session orchestrates config discovery, policy resolution, and dispatch
// to a Platform (profile emission or full launch).
type Session struct {
	Logger   *slog.Logger
	Platform platform.Platform
}

// NewSession returns a Session using the detected platform and an slog
// logger writing structured text to stderr by default, per SPEC_FULL.md
// §10.1.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{Logger: logger, Platform: detectPlatformFn()}
}

// Resolve loads the applicable config files, resolves opts.ProfileNames,
// and runs the merge engine, returning the effective Policy.
func (s *Session) Resolve(opts *Options) (*Policy, error) {
	var global, project *Config

	if !opts.NoConfig {
		globalPath := opts.ConfigPath
		if globalPath == "" {
			p, err := GlobalConfigPath()
			if err != nil {
				return nil, err
			}
			globalPath = p
		}
		g, err := LoadGlobalConfig(globalPath)
		if err != nil {
			return nil, err
		}
		global = g

		projectPath, err := FindProjectConfig(opts.WorkingDir)
		if err != nil {
			return nil, err
		}
		p, err := LoadProjectConfig(projectPath)
		if err != nil {
			return nil, err
		}
		project = p
	}

	profileNames := opts.ProfileNames
	if len(profileNames) == 0 && project != nil && len(project.DefaultProfiles) > 0 {
		profileNames = project.DefaultProfiles
	}
	if len(profileNames) == 0 && global != nil && len(global.DefaultProfiles) > 0 {
		profileNames = global.DefaultProfiles
	}

	configHome, err := ConfigHome()
	if err != nil {
		return nil, err
	}

	in := &MergeInputs{
		WorkingDir:   opts.WorkingDir,
		HomeDir:      opts.HomeDir,
		InvokerEnv:   opts.InvokerEnv,
		Global:       global,
		Project:      project,
		ProfileNames: profileNames,
		Resolver:     &ProfileResolver{ProjectRoot: opts.ProjectRoot, ConfigHome: configHome},
		CLI:          opts.CLI,
	}

	p, err := Merge(in)
	if err != nil {
		return nil, err
	}
	for _, w := range p.Warnings {
		s.Logger.Warn(w)
	}
	return p, nil
}

// toWrapConfig projects a Policy onto the platform-independent shape the
// emitter and launcher operate on.
func toWrapConfig(p *Policy) *platform.WrapConfig {
	return &platform.WrapConfig{
		WorkingDir:  p.WorkingDir,
		HomeDir:     p.HomeDir,
		AllowRead:   p.FS.AllowRead.Slice(),
		AllowWrite:  p.FS.AllowWrite.Slice(),
		DenyRead:    p.FS.DenyRead.Slice(),
		NetworkMode: string(p.NetworkMode),
		EnvPass:     p.Env.Pass.Slice(),
		EnvDeny:     p.Env.Deny.Slice(),
		EnvSet:      p.Env.Set,
		RawRules:    p.RawRules,
		Shell:       p.Shell,
	}
}

// BuildProfile resolves opts into a Policy and renders its Seatbelt
// profile text, for --dry-run and --explain. It spawns nothing.
func (s *Session) BuildProfile(opts *Options) (string, *Policy, error) {
	p, err := s.Resolve(opts)
	if err != nil {
		return "", nil, err
	}
	profile, err := s.Platform.BuildProfile(toWrapConfig(p))
	if err != nil {
		return "", nil, wrapErr(KindProfileRejected, "profile generation", err)
	}
	return profile, p, nil
}

// Run resolves opts into a Policy and launches the sandboxed child under
// it, returning the platform's LaunchResult.
func (s *Session) Run(ctx context.Context, opts *Options, launchOpts *platform.LaunchOptions) (*platform.LaunchResult, error) {
	p, err := s.Resolve(opts)
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("launching sandboxed session", "network_mode", p.NetworkMode, "shell", p.Shell)

	result, err := s.Platform.Launch(ctx, toWrapConfig(p), launchOpts)
	if err != nil {
		return nil, wrapErr(KindSpawnFailure, "launching sandboxed process", err)
	}
	if result.Rejected {
		return result, newErr(KindProfileRejected, "kernel rejected the generated profile: %s", result.KernelDiag)
	}
	return result, nil
}
