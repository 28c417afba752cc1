// Package sx implements the sandboxing engine behind the sx command: a
// macOS Seatbelt (sandbox-exec) wrapper for running shell sessions and
// one-off commands under a restricted filesystem and network policy.
//
// It resolves a layered policy (base fragment, global config, project
// config, named profiles, CLI overrides) into an effective Policy, and
// dispatches to a platform.Platform to render that policy as an SBPL
// profile and launch the sandboxed child under it.
//
// Basic usage:
//
//	sess := sx.NewSession(nil)
//	policy, err := sess.Resolve(&sx.Options{WorkingDir: wd, HomeDir: home})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := sess.Run(ctx, opts, launchOpts)
package sx
