//go:build darwin

package darwin

import (
	"fmt"
	"strings"

	"github.com/sxtool/sx/platform"
)

// profileBuilder constructs an SBPL (Sandbox Profile Language) profile
// from a WrapConfig. SBPL uses Scheme-like S-expression syntax.
type profileBuilder struct {
	buf strings.Builder
}

func newProfileBuilder() *profileBuilder {
	return &profileBuilder{}
}

// Build generates an SBPL profile string from cfg. The emission order is
// load-bearing: Seatbelt applies last-matching-rule-wins, so allow
// file-read* rules must precede the broader allow file* rules, which must
// precede the deny file-read* (hard-deny) rules, with raw_rules appended
// last of all so a profile can escalate past anything above it.
func (b *profileBuilder) Build(cfg *platform.WrapConfig) (string, error) {
	b.buf.Reset()

	b.writeBase()
	if err := b.writeFilesystem(cfg); err != nil {
		return "", err
	}
	if err := b.writeNetwork(cfg); err != nil {
		return "", err
	}
	b.writePTY()
	if err := b.writeRawRules(cfg); err != nil {
		return "", err
	}

	return b.buf.String(), nil
}

// writeBase emits the SBPL version header and the minimal process
// permissions every sandboxed session needs regardless of policy.
func (b *profileBuilder) writeBase() {
	b.line("(version 1)")
	b.line("(deny default)")
	b.blank()
	b.comment("Allow basic process operations")
	b.line("(allow process-fork)")
	b.line("(allow process-exec)")
	b.line("(allow signal (target self))")
	b.line("(allow process-info* (target same-sandbox))")
	b.comment("Allow read-only sysctl and file metadata queries everywhere")
	b.line("(allow sysctl-read)")
	b.line("(allow file-read-metadata)")
	b.comment("Allow resolving the root directory itself")
	b.line(`(allow file-read* (literal "/"))`)
	b.blank()
}

// writeFilesystem emits fs.allow_read, fs.allow_write, and fs.deny_read in
// the exact order spec.md §4.6 requires: allow reads, then allow writes
// (file-write* implies file-read* in Seatbelt, so writable roots are also
// readable), then the denies, which by the time Build runs already
// include spec's hard-deny set (merge.go's reinforceHardDenies guarantees
// every hard-deny path is in cfg.DenyRead).
func (b *profileBuilder) writeFilesystem(cfg *platform.WrapConfig) error {
	b.comment("Filesystem: allowlist model, deny by default")
	for _, p := range cfg.AllowRead {
		cp, err := canonicalizeForEmit(p)
		if err != nil {
			return err
		}
		b.linef(`(allow file-read* (subpath "%s"))`, escapeForSBPL(cp))
	}
	b.blank()

	for _, p := range cfg.AllowWrite {
		cp, err := canonicalizeForEmit(p)
		if err != nil {
			return err
		}
		b.linef(`(allow file* (subpath "%s"))`, escapeForSBPL(cp))
	}
	b.blank()

	for _, p := range cfg.DenyRead {
		cp, err := canonicalizeForEmit(p)
		if err != nil {
			return err
		}
		b.linef(`(deny file-read* (subpath "%s"))`, escapeForSBPL(cp))
		b.linef(`(deny file-write* (subpath "%s"))`, escapeForSBPL(cp))
	}
	b.blank()
	return nil
}

// writeNetwork emits the three-mode network policy from spec.md §4.2:
// offline denies everything beyond the base rules (the implicit
// deny default already covers it, so nothing further is emitted);
// localhost permits only loopback traffic; online permits everything.
func (b *profileBuilder) writeNetwork(cfg *platform.WrapConfig) error {
	switch cfg.NetworkMode {
	case "", "offline":
		b.comment("Network: offline, no rules beyond the implicit deny default")
	case "localhost":
		b.comment("Network: localhost only")
		b.line(`(allow network-outbound (remote ip "localhost:*"))`)
		b.line(`(allow network-outbound (remote ip "127.0.0.1:*"))`)
		b.line(`(allow network-bind (local ip "localhost:*"))`)
		b.line(`(allow network-bind (local ip "127.0.0.1:*"))`)
	case "online":
		b.comment("Network: online, unrestricted")
		b.line("(allow network*)")
	default:
		return fmt.Errorf("emitter: unknown network mode %q", cfg.NetworkMode)
	}
	b.blank()
	return nil
}

// writePTY allows the device nodes an interactive shell needs, without a
// blanket (subpath "/dev") that would defeat fs.deny_read entries under it.
func (b *profileBuilder) writePTY() {
	b.comment("Allow PTY and standard device access for interactive sessions")
	b.line(`(allow file-read* (regex #"^/dev/(ttys|pty|null|zero|random|urandom|fd)"))`)
	b.line(`(allow file-write* (regex #"^/dev/ttys[0-9]+$"))`)
	b.line(`(allow file-write* (regex #"^/dev/pty[a-z][0-9a-f]$"))`)
	b.line(`(allow file-write* (literal "/dev/null"))`)
	b.line(`(allow file-write* (literal "/dev/zero"))`)
	b.line(`(allow file-write* (literal "/dev/random"))`)
	b.line(`(allow file-write* (literal "/dev/urandom"))`)
	b.line(`(allow file-ioctl (regex #"^/dev/(ttys|pty)"))`)
	b.blank()
}

// writeRawRules appends a policy's raw_rules verbatim as the very last
// lines of the profile (spec.md §4.3: raw_rules "bypasses the allow/deny
// model entirely" and must win any last-matching-rule-wins conflict).
func (b *profileBuilder) writeRawRules(cfg *platform.WrapConfig) error {
	if len(cfg.RawRules) == 0 {
		return nil
	}
	b.comment("Raw rules (from policy raw_rules, applied verbatim and last)")
	for _, r := range cfg.RawRules {
		if strings.ContainsAny(r, "\x00") {
			return fmt.Errorf("emitter: raw_rule contains a NUL byte")
		}
		b.line(r)
	}
	b.blank()
	return nil
}

func (b *profileBuilder) line(s string) {
	b.buf.WriteString(s)
	b.buf.WriteByte('\n')
}

func (b *profileBuilder) linef(format string, args ...any) {
	b.buf.WriteString(fmt.Sprintf(format, args...))
	b.buf.WriteByte('\n')
}

func (b *profileBuilder) comment(s string) {
	b.buf.WriteString("; ")
	b.buf.WriteString(s)
	b.buf.WriteByte('\n')
}

func (b *profileBuilder) blank() {
	b.buf.WriteByte('\n')
}

// escapeForSBPL escapes a string for use inside an SBPL string literal.
func escapeForSBPL(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

// canonicalizeForEmit rejects control bytes; by the time paths reach the
// emitter they have already been canonicalized by the merge engine
// (internal/pathutil.Canonicalize), so this is a defense-in-depth check,
// not the primary canonicalization step.
func canonicalizeForEmit(p string) (string, error) {
	for _, r := range p {
		if r < 0x20 {
			return "", fmt.Errorf("emitter: path %q contains a control byte", p)
		}
	}
	return p, nil
}
