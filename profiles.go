package sx

import (
	"embed"
	"os"
	"path/filepath"
)

//go:embed profiles/*.toml
var builtinProfilesFS embed.FS

// builtinProfileNames lists every selectable built-in profile. "base" is
// deliberately excluded — it is not selectable by name (spec.md §4.3); it
// is composed implicitly unless inherit_base = false.
var builtinProfileNames = map[string]string{
	"online":    "profiles/online.toml",
	"localhost": "profiles/localhost.toml",
	"rust":      "profiles/rust.toml",
	"bun":       "profiles/bun.toml",
	"claude":    "profiles/claude.toml",
	"gpg":       "profiles/gpg.toml",
}

// hardDenyPaths is the absolute (unoverridable) hard-deny set from
// spec.md §4.5/§4.6/§9: SSH, AWS, Docker credentials, and the three
// common document directories. Stored as written ("~"-relative); expanded
// and canonicalized during merge.
var hardDenyPaths = []string{
	"~/.ssh",
	"~/.aws",
	"~/.docker",
	"~/Documents",
	"~/Desktop",
	"~/Downloads",
}

// lcEnvNames expands the base fragment's "LC_*" display-critical
// pass-through shorthand into the concrete POSIX locale variable names,
// since env.pass is defined as a list of literal names, not patterns.
var lcEnvNames = []string{"LC_ALL", "LC_CTYPE", "LC_COLLATE", "LC_MESSAGES", "LC_MONETARY", "LC_NUMERIC", "LC_TIME"}

// baseFragment returns the implicit base fragment, composed first in the
// merge engine unless a layer sets inherit_base = false (spec.md §4.3).
func baseFragment() *Fragment {
	f := NewFragment()

	for _, p := range []string{"/usr", "/bin", "/sbin", "/Library", "/System", "/opt", "/private/etc", "/private/var/select"} {
		f.FS.AllowRead.Add(p)
	}
	for _, p := range []string{"/tmp", "/var/folders"} {
		f.FS.AllowWrite.Add(p)
	}
	for _, p := range hardDenyPaths {
		f.FS.DenyRead.Add(p)
	}

	for _, name := range []string{"TERM", "PATH", "HOME", "USER", "SHELL", "LANG", "EDITOR", "PAGER", "COLORTERM"} {
		f.Env.Pass.Add(name)
	}
	for _, name := range lcEnvNames {
		f.Env.Pass.Add(name)
	}
	for _, pattern := range []string{"AWS_*", "*_SECRET*", "*_PASSWORD*", "*_KEY", "*_TOKEN*"} {
		f.Env.Deny.Add(pattern)
	}

	return f
}

// ProfileResolver resolves profile names to fragments per the three-tier
// search order in spec.md §4.3: built-in, then project-local, then user.
type ProfileResolver struct {
	// ProjectRoot is the detected project root directory, or "" if none.
	ProjectRoot string
	// ConfigHome is the user's config home (e.g. ~/.config); user profiles
	// are looked up under ConfigHome/sx/profiles.
	ConfigHome string
}

// Resolve returns the Fragment for name, or an *SxError with
// KindUnknownProfile if no definition is found in any tier.
func (r *ProfileResolver) Resolve(name string) (*Fragment, error) {
	if rel, ok := builtinProfileNames[name]; ok {
		data, err := builtinProfilesFS.ReadFile(rel)
		if err != nil {
			return nil, wrapErr(KindConfigSchema, "built-in profile "+name, err)
		}
		return decodeFragmentTOML(data, "built-in profile "+name)
	}

	if r.ProjectRoot != "" {
		p := filepath.Join(r.ProjectRoot, ".sandbox", "profiles", name+".toml")
		if frag, err, found := tryLoadFragmentFile(p); found {
			return frag, err
		}
	}

	if r.ConfigHome != "" {
		p := filepath.Join(r.ConfigHome, "sx", "profiles", name+".toml")
		if frag, err, found := tryLoadFragmentFile(p); found {
			return frag, err
		}
	}

	return nil, newErr(KindUnknownProfile, "%q", name)
}

// tryLoadFragmentFile loads and decodes the profile file at path. found is
// false only when the file does not exist, so callers can fall through to
// the next resolution tier; any other error (permissions, malformed TOML)
// is returned immediately with found = true.
func tryLoadFragmentFile(path string) (frag *Fragment, err error, found bool) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return nil, nil, false
		}
		return nil, wrapErr(KindConfigSchema, path, readErr), true
	}
	frag, err = decodeFragmentTOML(data, path)
	return frag, err, true
}
