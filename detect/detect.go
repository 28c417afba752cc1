// Package detect implements project-type heuristics used only to seed
// `sx --init`'s generated .sandbox.toml with a sensible default_profiles
// entry. It has no bearing on policy resolution itself.
package detect

import (
	"fmt"
	"os"
	"path/filepath"
)

// markers maps a built-in sx profile name to the marker files (relative to
// a project root) whose presence indicates that profile applies. Checked
// in order; bun is checked ahead of a hypothetical node detector since a
// bun lockfile is more specific than a generic package.json would be.
var markers = []struct {
	Profile string
	Files   []string
}{
	{"bun", []string{"bun.lockb", "bunfig.toml"}},
	{"rust", []string{"Cargo.toml"}},
	{"claude", []string{".claude", "CLAUDE.md"}},
	{"gpg", []string{".gnupg"}},
}

// Detect returns the first built-in profile whose marker files are present
// directly under dir, or "" if none match.
func Detect(dir string) string {
	for _, m := range markers {
		for _, f := range m.Files {
			if _, err := os.Stat(filepath.Join(dir, f)); err == nil {
				return m.Profile
			}
		}
	}
	return ""
}

// ProjectRoot walks upward from dir looking for a ".git" directory, the
// convention sx's profile resolver uses to find a project's
// .sandbox/profiles/ tier. Returns "" if none is found.
func ProjectRoot(dir string) string {
	d := dir
	for {
		if _, err := os.Stat(filepath.Join(d, ".git")); err == nil {
			return d
		}
		parent := filepath.Dir(d)
		if parent == d {
			return ""
		}
		d = parent
	}
}

// RenderInitialConfig returns the .sandbox.toml contents `sx --init`
// writes for a detected profile. An empty profile renders a minimal,
// commented-out template instead of a blank file.
func RenderInitialConfig(profile string) string {
	if profile == "" {
		return "# sx project config. Uncomment and edit as needed.\n" +
			"# default_profiles = [\"online\"]\n" +
			"# default_network = \"offline\"\n"
	}
	return fmt.Sprintf("default_profiles = [%q]\n", profile)
}
