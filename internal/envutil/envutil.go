// Package envutil manipulates process environment slices ("KEY=value"
// string lists) and implements sx's allowlist/denylist/override env
// construction for sandboxed children.
package envutil

import (
	"sort"
	"strings"

	"github.com/sxtool/sx/internal/pathutil"
)

// SetEnv sets or replaces an environment variable in an env slice.
// Returns the modified slice. If the key already exists, its value is updated
// in place. Otherwise, the new entry is appended.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// GetEnv gets a value from an env slice.
// Returns the value and true if found, or empty string and false if not.
func GetEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return e[len(prefix):], true
		}
	}
	return "", false
}

// RemoveEnv removes a variable from an env slice.
// Returns a new slice with the variable removed.
func RemoveEnv(env []string, key string) []string {
	prefix := key + "="
	result := make([]string, 0, len(env))
	for _, e := range env {
		if !strings.HasPrefix(e, prefix) {
			result = append(result, e)
		}
	}
	return result
}

// RemoveEnvPrefix removes all variables with a given prefix from an env slice.
// Useful for removing DYLD_* variables on macOS.
// The prefix is matched against the key portion (before '=').
func RemoveEnvPrefix(env []string, prefix string) []string {
	result := make([]string, 0, len(env))
	for _, e := range env {
		key := e
		if idx := strings.IndexByte(e, '='); idx >= 0 {
			key = e[:idx]
		}
		if !strings.HasPrefix(key, prefix) {
			result = append(result, e)
		}
	}
	return result
}

// MergeEnv merges additional env vars into base, with additional taking precedence.
// Returns a new slice. Variables in additional override those in base with the same key.
func MergeEnv(base, additional []string) []string {
	// Build a map of additional keys for quick lookup.
	overrides := make(map[string]string, len(additional))
	overrideOrder := make([]string, 0, len(additional))
	for _, e := range additional {
		key := e
		if idx := strings.IndexByte(e, '='); idx >= 0 {
			key = e[:idx]
		}
		if _, exists := overrides[key]; !exists {
			overrideOrder = append(overrideOrder, key)
		}
		overrides[key] = e
	}

	// Copy base, replacing any overridden keys.
	replaced := make(map[string]bool, len(overrides))
	result := make([]string, 0, len(base)+len(additional))
	for _, e := range base {
		key := e
		if idx := strings.IndexByte(e, '='); idx >= 0 {
			key = e[:idx]
		}
		if override, ok := overrides[key]; ok {
			result = append(result, override)
			replaced[key] = true
		} else {
			result = append(result, e)
		}
	}

	// Append any additional vars that weren't in base, preserving order.
	for _, key := range overrideOrder {
		if !replaced[key] {
			result = append(result, overrides[key])
		}
	}

	return result
}

// BuildChildEnv constructs the sandboxed child's environment from the
// invoker's environment (invokerEnv, "KEY=value" pairs) per spec's env
// allowlist rule: pass is an allowlist except when empty, in which case
// pass-through is disabled entirely; any name matching a deny pattern is
// stripped even if it is in pass or set; set is applied last and overrides
// passed-through values. sandboxMode is injected as SANDBOX_MODE regardless
// of pass/deny/set.
func BuildChildEnv(invokerEnv []string, pass, deny []string, set map[string]string, sandboxMode string) []string {
	passSet := make(map[string]bool, len(pass))
	for _, name := range pass {
		passSet[name] = true
	}

	result := make([]string, 0, len(invokerEnv)+len(set)+1)

	if len(pass) > 0 {
		for _, e := range invokerEnv {
			key, _, ok := splitEnv(e)
			if !ok {
				continue
			}
			if !passSet[key] {
				continue
			}
			if pathutil.AnyEnvPatternMatch(key, deny) {
				continue
			}
			result = append(result, e)
		}
	}

	setKeys := make([]string, 0, len(set))
	for k := range set {
		setKeys = append(setKeys, k)
	}
	sort.Strings(setKeys)
	for _, k := range setKeys {
		if pathutil.AnyEnvPatternMatch(k, deny) {
			continue
		}
		result = SetEnv(result, k, set[k])
	}

	result = SetEnv(result, "SANDBOX_MODE", sandboxMode)

	return SanitizeDynamicLoaderEnv(result)
}

// SanitizeDynamicLoaderEnv strips DYLD_* and LD_* variables from env. Both
// prefixes can be used to inject dynamic libraries into a spawned process
// and are removed unconditionally, even if present in an explicit env.set
// override, as a final pass independent of the allow/deny logic above.
func SanitizeDynamicLoaderEnv(env []string) []string {
	env = RemoveEnvPrefix(env, "DYLD_")
	env = RemoveEnvPrefix(env, "LD_")
	return env
}

// splitEnv splits a "KEY=value" string into its key and value.
func splitEnv(e string) (key, value string, ok bool) {
	idx := strings.IndexByte(e, '=')
	if idx < 0 {
		return "", "", false
	}
	return e[:idx], e[idx+1:], true
}
