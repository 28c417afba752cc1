// Package pathutil implements the path and pattern utilities used by the
// rest of sx to expand, canonicalize, and validate filesystem paths, and to
// match environment-variable names against deny-list glob patterns.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// ContainsControlBytes reports whether s contains a NUL byte, a newline, or
// a carriage return — characters the Seatbelt parser cannot represent in a
// string literal.
func ContainsControlBytes(s string) bool {
	return strings.ContainsAny(s, "\x00\n\r")
}

// Expand resolves a leading "~" to home and any "$VAR" / "${VAR}" reference
// against lookupEnv. It fails if a referenced variable is unset or if the
// result is empty.
func Expand(path, home string, lookupEnv func(string) (string, bool)) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}

	if path == "~" {
		path = home
	} else if strings.HasPrefix(path, "~/") {
		path = filepath.Join(home, path[2:])
	}

	expanded, err := expandEnvRefs(path, lookupEnv)
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return "", fmt.Errorf("path expands to empty string")
	}
	return expanded, nil
}

// expandEnvRefs expands $VAR and ${VAR} references. Unlike os.Expand's
// default behavior of silently substituting the empty string, an
// unresolved reference is treated as an error so a typo in a config file
// cannot silently narrow a path down to something unintended.
func expandEnvRefs(s string, lookupEnv func(string) (string, bool)) (string, error) {
	var firstErr error
	out := os.Expand(s, func(name string) string {
		v, ok := lookupEnv(name)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("unresolved environment reference %q", name)
			}
			return ""
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Canonicalize returns an absolute, cleaned path. Relative paths are
// resolved against workingDir. Symbolic links are deliberately NOT
// followed — a malicious symlink placed inside the working tree must not
// be able to widen an allow rule by resolving to a different target at
// emission time. The one exception is macOS's well-known /tmp and /var
// bind-mount aliases, which are rewritten to their /private/* real paths
// the same way the kernel itself treats them.
func Canonicalize(path, workingDir string) (string, error) {
	if ContainsControlBytes(path) {
		return "", fmt.Errorf("path contains control bytes")
	}
	if !filepath.IsAbs(path) {
		if workingDir == "" {
			return "", fmt.Errorf("relative path %q with no working directory to resolve against", path)
		}
		path = filepath.Join(workingDir, path)
	}
	cleaned := filepath.Clean(path)
	if cleaned == "/tmp" || strings.HasPrefix(cleaned, "/tmp/") {
		cleaned = "/private" + cleaned
	}
	if cleaned == "/var" || strings.HasPrefix(cleaned, "/var/") {
		cleaned = "/private" + cleaned
	}
	return cleaned, nil
}

// IsValidEnvName reports whether name is a syntactically valid POSIX
// environment-variable name: a letter or underscore, followed by letters,
// digits, or underscores.
func IsValidEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// EnvPatternMatch reports whether name matches pattern, where '*' means
// "zero or more characters" and every other character is literal.
// Matching is case-sensitive.
func EnvPatternMatch(name, pattern string) bool {
	// Quote every glob meta character except '*', so '?', '[', '{' and '\'
	// are matched literally.
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = glob.QuoteMeta(part)
	}
	g, err := glob.Compile(strings.Join(parts, "*"))
	if err != nil {
		// A pattern that still fails to compile never matches.
		return false
	}
	return g.Match(name)
}

// AnyEnvPatternMatch reports whether name matches any pattern in patterns.
func AnyEnvPatternMatch(name string, patterns []string) bool {
	for _, p := range patterns {
		if EnvPatternMatch(name, p) {
			return true
		}
	}
	return false
}
