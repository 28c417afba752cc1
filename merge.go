package sx

import (
	"strings"

	"github.com/sxtool/sx/internal/pathutil"
)

// CLIOverrides carries the layer-6 command-line inputs from spec.md §6.1:
// the network-mode flags and the repeatable --allow-read/--allow-write/
// --deny-read flags. It is always applied last.
type CLIOverrides struct {
	NetworkMode *NetworkMode
	AllowRead   []string
	AllowWrite  []string
	DenyRead    []string
}

// MergeInputs bundles everything the merge engine (C5) needs to produce a
// Policy: the ambient inputs (working directory, home, the invoker's
// environment) plus every layer named in spec.md §4.5.
type MergeInputs struct {
	WorkingDir string
	HomeDir    string
	InvokerEnv []string // "KEY=value" pairs, captured once at startup

	Global  *Config // nil if absent or --no-config
	Project *Config // nil if absent or --no-config

	ProfileNames []string // positional profile names, left-to-right
	Resolver     *ProfileResolver

	CLI CLIOverrides
}

// Merge produces the effective Policy from inputs, per the six-layer
// order in spec.md §4.5. The engine is pure: identical inputs produce an
// identical Policy, including path-set ordering.
func Merge(in *MergeInputs) (*Policy, error) {
	lookupEnv := envLookup(in.InvokerEnv)

	workingDir, err := pathutil.Canonicalize(in.WorkingDir, in.WorkingDir)
	if err != nil {
		return nil, wrapErr(KindInvalidPath, in.WorkingDir, err)
	}

	resolvedProfiles := make([]*Fragment, 0, len(in.ProfileNames))
	for _, name := range in.ProfileNames {
		frag, err := in.Resolver.Resolve(name)
		if err != nil {
			return nil, err
		}
		resolvedProfiles = append(resolvedProfiles, frag)
	}

	inheritGlobal := true
	if in.Project != nil && in.Project.InheritGlobal != nil {
		inheritGlobal = *in.Project.InheritGlobal
	}

	inheritBase := true
	for _, frag := range inheritBaseCandidates(in, resolvedProfiles) {
		if frag.InheritBase != nil {
			inheritBase = *frag.InheritBase
		}
	}

	p := newPolicy(workingDir, in.HomeDir)

	apply := func(frag *Fragment) error {
		return applyFragment(p, frag, workingDir, in.HomeDir, lookupEnv)
	}

	if inheritBase {
		if err := apply(baseFragment()); err != nil {
			return nil, err
		}
	}
	if inheritGlobal && in.Global != nil {
		if err := applyConfigLayer(p, in.Global, workingDir, in.HomeDir, lookupEnv); err != nil {
			return nil, err
		}
	}
	if in.Project != nil {
		if err := applyConfigLayer(p, in.Project, workingDir, in.HomeDir, lookupEnv); err != nil {
			return nil, err
		}
	}
	for _, frag := range resolvedProfiles {
		if err := apply(frag); err != nil {
			return nil, err
		}
	}

	if err := applyCLIOverrides(p, in.CLI, workingDir, in.HomeDir, lookupEnv); err != nil {
		return nil, err
	}

	// spec.md Testable Property 5: working_dir is always writable.
	p.FS.AllowWrite.Add(workingDir)

	if p.Shell == "" {
		if sh, ok := lookupEnv("SHELL"); ok && sh != "" {
			p.Shell = sh
		} else {
			p.Shell = "/bin/zsh"
		}
	}

	reinforceHardDenies(p, workingDir, in.HomeDir, lookupEnv)

	return p, nil
}

// inheritBaseCandidates returns, in merge order, every fragment that may
// set inherit_base: global config, project config, then named profiles.
// Per spec.md §4.5, "last setter wins" among these.
func inheritBaseCandidates(in *MergeInputs, profiles []*Fragment) []*Fragment {
	var out []*Fragment
	if in.Global != nil {
		out = append(out, in.Global.Fragment)
	}
	if in.Project != nil {
		out = append(out, in.Project.Fragment)
	}
	out = append(out, profiles...)
	return out
}

// applyFragment unions frag's sets into p and overwrites p's scalars when
// frag specifies them, expanding and canonicalizing paths as it goes.
func applyFragment(p *Policy, frag *Fragment, workingDir, homeDir string, lookupEnv func(string) (string, bool)) error {
	if err := addPaths(p.FS.AllowRead, frag.FS.AllowRead.Slice(), workingDir, homeDir, lookupEnv); err != nil {
		return err
	}
	if err := addPaths(p.FS.AllowWrite, frag.FS.AllowWrite.Slice(), workingDir, homeDir, lookupEnv); err != nil {
		return err
	}
	if err := addPaths(p.FS.DenyRead, frag.FS.DenyRead.Slice(), workingDir, homeDir, lookupEnv); err != nil {
		return err
	}

	if frag.NetworkMode != nil {
		p.NetworkMode = *frag.NetworkMode
	}

	for _, name := range frag.Env.Pass.Slice() {
		if !pathutil.IsValidEnvName(name) {
			return newErr(KindConfigSchema, "env.pass: %q is not a valid environment-variable name", name)
		}
		p.Env.Pass.Add(name)
	}
	for _, pattern := range frag.Env.Deny.Slice() {
		p.Env.Deny.Add(pattern)
	}
	for k, v := range frag.Env.Set {
		if !pathutil.IsValidEnvName(k) {
			return newErr(KindConfigSchema, "env.set: %q is not a valid environment-variable name", k)
		}
		p.Env.Set[k] = v
	}

	p.RawRules = append(p.RawRules, frag.RawRules...)
	return nil
}

// applyConfigLayer applies a Config's Fragment and its extra scalars
// (default_network, shell) — default_profiles is consumed by the caller
// before Merge runs (it seeds ProfileNames), not here, since it only
// supplies a default when no profiles were named on the command line.
func applyConfigLayer(p *Policy, cfg *Config, workingDir, homeDir string, lookupEnv func(string) (string, bool)) error {
	if err := applyFragment(p, cfg.Fragment, workingDir, homeDir, lookupEnv); err != nil {
		return err
	}
	if cfg.DefaultNetwork != nil {
		p.NetworkMode = *cfg.DefaultNetwork
	}
	if cfg.Shell != "" {
		p.Shell = cfg.Shell
	}
	return nil
}

// applyCLIOverrides applies layer 6. Unlike other layers, a hard-deny
// path named explicitly here is fatal (spec.md §7's HardDenyViolation
// "fatal only if the same path appears with --allow-read or --allow-write
// explicitly"), rather than silently dropped.
func applyCLIOverrides(p *Policy, cli CLIOverrides, workingDir, homeDir string, lookupEnv func(string) (string, bool)) error {
	if cli.NetworkMode != nil {
		p.NetworkMode = *cli.NetworkMode
	}

	checkNotHardDeny := func(raw string) error {
		expanded, cp, err := expandAndCanonicalize(raw, workingDir, homeDir, lookupEnv)
		if err != nil {
			return err
		}
		for _, hd := range hardDenyPaths {
			_, hdCanon, err := expandAndCanonicalize(hd, workingDir, homeDir, lookupEnv)
			if err != nil {
				return err
			}
			if cp == hdCanon || strings.HasPrefix(cp, hdCanon+"/") {
				return newErr(KindHardDenyViolation, "--allow-read/--allow-write for %q (expands to %q) is inside the hard-deny set", raw, expanded)
			}
		}
		return nil
	}

	for _, p2 := range cli.AllowRead {
		if err := checkNotHardDeny(p2); err != nil {
			return err
		}
	}
	for _, p2 := range cli.AllowWrite {
		if err := checkNotHardDeny(p2); err != nil {
			return err
		}
	}

	if err := addPaths(p.FS.AllowRead, cli.AllowRead, workingDir, homeDir, lookupEnv); err != nil {
		return err
	}
	if err := addPaths(p.FS.AllowWrite, cli.AllowWrite, workingDir, homeDir, lookupEnv); err != nil {
		return err
	}
	if err := addPaths(p.FS.DenyRead, cli.DenyRead, workingDir, homeDir, lookupEnv); err != nil {
		return err
	}
	return nil
}

// reinforceHardDenies implements spec.md §4.5's final step: the hard-deny
// set is added to fs.deny_read, and any allow entry that is itself, or a
// descendant of, a hard-deny path is dropped with a warning. CLI-layer
// violations were already rejected as fatal errors before this runs.
func reinforceHardDenies(p *Policy, workingDir, homeDir string, lookupEnv func(string) (string, bool)) {
	for _, hd := range hardDenyPaths {
		_, cp, err := expandAndCanonicalize(hd, workingDir, homeDir, lookupEnv)
		if err != nil {
			continue
		}
		p.FS.DenyRead.Add(cp)

		for _, allowSet := range []*orderedSet{p.FS.AllowRead, p.FS.AllowWrite} {
			for _, a := range allowSet.Slice() {
				if a == cp || strings.HasPrefix(a, cp+"/") {
					allowSet.Remove(a)
					p.warn("dropped allow rule for %q: inside the hard-deny set %q", a, cp)
				}
			}
		}
	}
}

// addPaths expands, canonicalizes, and adds each raw path in raws to set.
func addPaths(set *orderedSet, raws []string, workingDir, homeDir string, lookupEnv func(string) (string, bool)) error {
	for _, raw := range raws {
		_, cp, err := expandAndCanonicalize(raw, workingDir, homeDir, lookupEnv)
		if err != nil {
			return err
		}
		set.Add(cp)
	}
	return nil
}

func expandAndCanonicalize(raw, workingDir, homeDir string, lookupEnv func(string) (string, bool)) (expanded, canon string, err error) {
	expanded, err = pathutil.Expand(raw, homeDir, lookupEnv)
	if err != nil {
		return "", "", wrapErr(KindInvalidPath, raw, err)
	}
	canon, err = pathutil.Canonicalize(expanded, workingDir)
	if err != nil {
		return "", "", wrapErr(KindInvalidPath, raw, err)
	}
	return expanded, canon, nil
}

// envLookup adapts an invoker environment slice into the lookup function
// pathutil.Expand expects.
func envLookup(env []string) func(string) (string, bool) {
	m := make(map[string]string, len(env))
	for _, e := range env {
		if idx := strings.IndexByte(e, '='); idx >= 0 {
			m[e[:idx]] = e[idx+1:]
		}
	}
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}
