package sx

import "testing"

func testResolver() *ProfileResolver {
	return &ProfileResolver{}
}

func TestMergeDefaultsToOfflineAndWritableWorkingDir(t *testing.T) {
	p, err := Merge(&MergeInputs{
		WorkingDir: "/tmp/demo",
		HomeDir:    "/Users/u",
		Resolver:   testResolver(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.NetworkMode != NetworkOffline {
		t.Fatalf("got network mode %v, want offline", p.NetworkMode)
	}
	if !p.FS.AllowWrite.Has("/private/tmp/demo") {
		t.Fatalf("working dir must always be writable: %v", p.FS.AllowWrite.Slice())
	}
}

func TestMergeHardDenyDroppedFromProfileAllowWithWarning(t *testing.T) {
	frag := NewFragment()
	frag.FS.AllowRead.Add("~/.ssh")
	resolver := &ProfileResolver{}
	_ = resolver

	p := newPolicy("/tmp/demo", "/Users/u")
	if err := applyFragment(p, frag, "/tmp/demo", "/Users/u", envLookup(nil)); err != nil {
		t.Fatal(err)
	}
	reinforceHardDenies(p, "/tmp/demo", "/Users/u", envLookup(nil))

	if p.FS.AllowRead.Has("/Users/u/.ssh") {
		t.Fatal("~/.ssh must be dropped from allow_read by hard-deny reinforcement")
	}
	if !p.FS.DenyRead.Has("/Users/u/.ssh") {
		t.Fatal("~/.ssh must appear in deny_read after reinforcement")
	}
	if len(p.Warnings) == 0 {
		t.Fatal("expected a warning about the dropped allow rule")
	}
}

func TestMergeHardDenyViaCLIFlagIsFatal(t *testing.T) {
	_, err := Merge(&MergeInputs{
		WorkingDir: "/tmp/demo",
		HomeDir:    "/Users/u",
		Resolver:   testResolver(),
		CLI:        CLIOverrides{AllowRead: []string{"~/.ssh"}},
	})
	if err == nil {
		t.Fatal("expected HardDenyViolation error")
	}
	se, ok := err.(*SxError)
	if !ok || se.Kind != KindHardDenyViolation {
		t.Fatalf("expected KindHardDenyViolation, got %v", err)
	}
}

func TestMergeCLINetworkModeWinsOverConfig(t *testing.T) {
	online := NetworkOnline
	localhost := NetworkLocalhost
	p, err := Merge(&MergeInputs{
		WorkingDir: "/tmp/demo",
		HomeDir:    "/Users/u",
		Resolver:   testResolver(),
		Global:     &Config{Fragment: NewFragment(), DefaultNetwork: &online},
		CLI:        CLIOverrides{NetworkMode: &localhost},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.NetworkMode != NetworkLocalhost {
		t.Fatalf("got %v, want localhost (CLI overrides config)", p.NetworkMode)
	}
}

func TestMergeProfileOrderLeftToRight(t *testing.T) {
	p, err := Merge(&MergeInputs{
		WorkingDir:   "/tmp/demo",
		HomeDir:      "/Users/u",
		Resolver:     testResolver(),
		ProfileNames: []string{"rust", "online"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.NetworkMode != NetworkOnline {
		t.Fatalf("expected online from the 'online' profile, got %v", p.NetworkMode)
	}
	if !p.FS.AllowRead.Has("/Users/u/.cargo") {
		t.Fatalf("expected ~/.cargo from the 'rust' profile: %v", p.FS.AllowRead.Slice())
	}
}

func TestMergeUnknownProfileFails(t *testing.T) {
	_, err := Merge(&MergeInputs{
		WorkingDir:   "/tmp/demo",
		HomeDir:      "/Users/u",
		Resolver:     testResolver(),
		ProfileNames: []string{"does-not-exist"},
	})
	if err == nil {
		t.Fatal("expected UnknownProfile error")
	}
	se, ok := err.(*SxError)
	if !ok || se.Kind != KindUnknownProfile {
		t.Fatalf("expected KindUnknownProfile, got %v", err)
	}
}
