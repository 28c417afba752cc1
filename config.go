package sx

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fragmentDoc mirrors Fragment's shape for TOML decoding (spec.md §4.4:
// "the same schema as Fragment"). Profile files decode directly into
// this; config files decode into configDoc, which embeds it.
type fragmentDoc struct {
	FS struct {
		AllowRead  []string `toml:"allow_read"`
		AllowWrite []string `toml:"allow_write"`
		DenyRead   []string `toml:"deny_read"`
	} `toml:"fs"`
	NetworkMode string `toml:"network_mode"`
	Env         struct {
		Pass []string          `toml:"pass"`
		Deny []string          `toml:"deny"`
		Set  map[string]string `toml:"set"`
	} `toml:"env"`
	RawRules    []string `toml:"raw_rules"`
	InheritBase *bool    `toml:"inherit_base"`
}

// configDoc is the schema shared by the global and project config files:
// fragmentDoc plus default_network, default_profiles, inherit_global, and
// shell (spec.md §4.4).
type configDoc struct {
	fragmentDoc
	DefaultNetwork  string   `toml:"default_network"`
	DefaultProfiles []string `toml:"default_profiles"`
	InheritGlobal   *bool    `toml:"inherit_global"`
	Shell           string   `toml:"shell"`
}

// toFragment converts the decoded document's fragment-shaped fields into
// a *Fragment. Paths and network mode are kept exactly as written; they
// are expanded and canonicalized only during merge (spec.md §4.4).
func (d *fragmentDoc) toFragment() *Fragment {
	f := NewFragment()
	for _, p := range d.FS.AllowRead {
		f.FS.AllowRead.Add(p)
	}
	for _, p := range d.FS.AllowWrite {
		f.FS.AllowWrite.Add(p)
	}
	for _, p := range d.FS.DenyRead {
		f.FS.DenyRead.Add(p)
	}
	if d.NetworkMode != "" {
		m := NetworkMode(d.NetworkMode)
		f.NetworkMode = &m
	}
	for _, n := range d.Env.Pass {
		f.Env.Pass.Add(n)
	}
	for _, n := range d.Env.Deny {
		f.Env.Deny.Add(n)
	}
	for k, v := range d.Env.Set {
		f.Env.Set[k] = v
	}
	f.RawRules = append(f.RawRules, d.RawRules...)
	f.InheritBase = d.InheritBase
	return f
}

// decodeFragmentTOML decodes a profile file's contents into a Fragment,
// rejecting any key that fragmentDoc does not recognize.
func decodeFragmentTOML(data []byte, source string) (*Fragment, error) {
	var doc fragmentDoc
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, wrapErr(KindConfigSchema, source, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, newErr(KindConfigSchema, "%s: unknown key %q", source, undecoded[0].String())
	}
	if err := validateNetworkModeString(doc.NetworkMode); err != nil {
		return nil, wrapErr(KindConfigSchema, source, err)
	}
	return doc.toFragment(), nil
}

// Config is the decoded form of a global or project config file: a
// Fragment plus the extra scalars from spec.md §4.4.
type Config struct {
	Fragment        *Fragment
	DefaultNetwork  *NetworkMode
	DefaultProfiles []string
	InheritGlobal   *bool
	Shell           string
}

// decodeConfigTOML decodes a global or project config file.
func decodeConfigTOML(data []byte, source string) (*Config, error) {
	var doc configDoc
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, wrapErr(KindConfigSchema, source, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, newErr(KindConfigSchema, "%s: unknown key %q", source, undecoded[0].String())
	}
	if err := validateNetworkModeString(doc.fragmentDoc.NetworkMode); err != nil {
		return nil, wrapErr(KindConfigSchema, source, err)
	}
	if err := validateNetworkModeString(doc.DefaultNetwork); err != nil {
		return nil, wrapErr(KindConfigSchema, source, err)
	}

	cfg := &Config{
		Fragment:        doc.fragmentDoc.toFragment(),
		DefaultProfiles: doc.DefaultProfiles,
		InheritGlobal:   doc.InheritGlobal,
		Shell:           doc.Shell,
	}
	if doc.DefaultNetwork != "" {
		m := NetworkMode(doc.DefaultNetwork)
		cfg.DefaultNetwork = &m
	}
	return cfg, nil
}

func validateNetworkModeString(s string) error {
	switch s {
	case "", string(NetworkOffline), string(NetworkLocalhost), string(NetworkOnline):
		return nil
	default:
		return newErr(KindConfigSchema, "invalid network_mode %q", s)
	}
}

// GlobalConfigPath returns the global config file path: $XDG_CONFIG_HOME
// /sx/config.toml, falling back to ~/.config/sx/config.toml.
func GlobalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", wrapErr(KindInvalidPath, "determining home directory", err)
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "sx", "config.toml"), nil
}

// ConfigHome returns the directory that holds sx's config and user
// profiles directory: $XDG_CONFIG_HOME, falling back to ~/.config.
func ConfigHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", wrapErr(KindInvalidPath, "determining home directory", err)
	}
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return base, nil
	}
	return filepath.Join(home, ".config"), nil
}

// LoadGlobalConfig reads and decodes the config file at path. A missing
// file is not an error: it returns (nil, nil), matching spec.md's
// "no-config is a valid, minimal state" expectation.
func LoadGlobalConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapErr(KindConfigSchema, path, err)
	}
	return decodeConfigTOML(data, path)
}

// FindProjectConfig walks upward from workingDir looking for a
// ".sandbox.toml" file, stopping at the first hit (spec.md §4.4). Returns
// ("", nil) if none is found anywhere up to the filesystem root.
func FindProjectConfig(workingDir string) (string, error) {
	dir := workingDir
	for {
		candidate := filepath.Join(dir, ".sandbox.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadProjectConfig reads and decodes the project config at path. Like
// LoadGlobalConfig, a missing file is not an error.
func LoadProjectConfig(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapErr(KindConfigSchema, path, err)
	}
	return decodeConfigTOML(data, path)
}
