//go:build darwin

package darwin

import (
	"os"
	"testing"

	"github.com/sxtool/sx/platform"
)

func TestWriteProfileFileIsUniqueAndOwnerOnly(t *testing.T) {
	a, err := writeProfileFile("(version 1)\n")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(a)
	b, err := writeProfileFile("(version 1)\n")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(b)

	if a == b {
		t.Fatal("expected two distinct profile file paths")
	}

	info, err := os.Stat(a)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("got perm %v, want 0600", info.Mode().Perm())
	}
}

func TestLooksLikeProfileRejection(t *testing.T) {
	cases := map[string]bool{
		"Sandbox: sandbox-exec(1234) deny file-read-data": true,
		"profile compilation failed: unexpected token":    true,
		"permission denied: /etc/shadow":                  false,
		"":                                                 false,
	}
	for in, want := range cases {
		if got := looksLikeProfileRejection(in); got != want {
			t.Errorf("looksLikeProfileRejection(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPlatformNameAndAvailable(t *testing.T) {
	p := New()
	if p.Name() != "darwin-seatbelt" {
		t.Fatalf("got %q", p.Name())
	}
	_ = p.Available() // just confirm it does not panic
}

func TestPlatformBuildProfileDelegatesToEmitter(t *testing.T) {
	p := New()
	out, err := p.BuildProfile(&platform.WrapConfig{NetworkMode: "online"})
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Fatal("expected non-empty profile text")
	}
}

// Compile-time check that Platform implements platform.Platform.
var _ platform.Platform = (*Platform)(nil)
