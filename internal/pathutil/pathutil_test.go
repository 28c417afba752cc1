package pathutil

import "testing"

func TestExpandTilde(t *testing.T) {
	lookup := func(string) (string, bool) { return "", false }
	got, err := Expand("~/.cargo", "/Users/u", lookup)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != "/Users/u/.cargo" {
		t.Fatalf("got %q, want /Users/u/.cargo", got)
	}
}

func TestExpandEnvRef(t *testing.T) {
	lookup := func(name string) (string, bool) {
		if name == "PROJECT" {
			return "/tmp/demo", true
		}
		return "", false
	}
	got, err := Expand("$PROJECT/src", "/Users/u", lookup)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != "/tmp/demo/src" {
		t.Fatalf("got %q", got)
	}
}

func TestExpandUnresolvedEnvRefFails(t *testing.T) {
	lookup := func(string) (string, bool) { return "", false }
	if _, err := Expand("$NOPE/x", "/Users/u", lookup); err == nil {
		t.Fatal("expected error for unresolved reference")
	}
}

func TestCanonicalizeRewritesTmpAlias(t *testing.T) {
	// /tmp is rewritten to /private/tmp (macOS's own bind-mount alias),
	// which is the one exception — not a symlink chase, a fixed rewrite.
	got, err := Canonicalize("/tmp/demo", "/")
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if got != "/private/tmp/demo" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	p := "/Users/u/.ssh"
	once, err := Canonicalize(p, "/")
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Canonicalize(once, "/")
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Fatalf("not idempotent: %q != %q", once, twice)
	}
}

func TestCanonicalizeRelativeResolvesAgainstWorkingDir(t *testing.T) {
	got, err := Canonicalize("sub/dir", "/tmp/demo")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/private/tmp/demo/sub/dir" {
		t.Fatalf("got %q", got)
	}
}

func TestCanonicalizeRejectsControlBytes(t *testing.T) {
	if _, err := Canonicalize("/tmp/a\x00b", "/"); err == nil {
		t.Fatal("expected error for control byte")
	}
}

func TestEnvPatternMatch(t *testing.T) {
	cases := []struct {
		name, pattern string
		want          bool
	}{
		{"AWS_SECRET_ACCESS_KEY", "AWS_*", true},
		{"AWS_SECRET_ACCESS_KEY", "aws_*", false},
		{"MY_API_TOKEN", "*_TOKEN*", true},
		{"PATH", "AWS_*", false},
		{"GITHUB_TOKEN", "*_TOKEN*", true},
	}
	for _, c := range cases {
		if got := EnvPatternMatch(c.name, c.pattern); got != c.want {
			t.Errorf("EnvPatternMatch(%q, %q) = %v, want %v", c.name, c.pattern, got, c.want)
		}
	}
}

func TestIsValidEnvName(t *testing.T) {
	valid := []string{"PATH", "_FOO", "LC_ALL", "a1"}
	invalid := []string{"", "1FOO", "FOO-BAR", "FOO BAR"}
	for _, n := range valid {
		if !IsValidEnvName(n) {
			t.Errorf("IsValidEnvName(%q) = false, want true", n)
		}
	}
	for _, n := range invalid {
		if IsValidEnvName(n) {
			t.Errorf("IsValidEnvName(%q) = true, want false", n)
		}
	}
}
