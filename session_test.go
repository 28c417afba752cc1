package sx

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/sxtool/sx/platform"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubPlatform struct {
	profile string
	buildErr error
	result   *platform.LaunchResult
	launchErr error
}

func (s stubPlatform) Name() string      { return "stub" }
func (s stubPlatform) Available() bool   { return true }
func (s stubPlatform) CheckDependencies() *platform.DependencyCheck {
	return &platform.DependencyCheck{}
}
func (s stubPlatform) BuildProfile(_ *platform.WrapConfig) (string, error) {
	return s.profile, s.buildErr
}
func (s stubPlatform) Launch(_ context.Context, _ *platform.WrapConfig, _ *platform.LaunchOptions) (*platform.LaunchResult, error) {
	return s.result, s.launchErr
}

func newTestSession(t *testing.T, p platform.Platform) *Session {
	t.Helper()
	return &Session{Logger: discardLogger(), Platform: p}
}

func TestSessionBuildProfileUsesResolvedPolicy(t *testing.T) {
	sess := newTestSession(t, stubPlatform{profile: "(version 1)\n"})
	profile, policy, err := sess.BuildProfile(&Options{
		WorkingDir: "/tmp/demo",
		HomeDir:    "/Users/u",
		NoConfig:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if profile != "(version 1)\n" {
		t.Fatalf("got %q", profile)
	}
	if policy.NetworkMode != NetworkOffline {
		t.Fatalf("got %v", policy.NetworkMode)
	}
}

func TestSessionRunPropagatesLaunchResult(t *testing.T) {
	sess := newTestSession(t, stubPlatform{result: &platform.LaunchResult{ExitCode: 7}})
	result, err := sess.Run(context.Background(), &Options{
		WorkingDir: "/tmp/demo",
		HomeDir:    "/Users/u",
		NoConfig:   true,
	}, &platform.LaunchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.ExitCode != 7 {
		t.Fatalf("got exit code %d", result.ExitCode)
	}
}

func TestSessionRunSurfacesProfileRejection(t *testing.T) {
	sess := newTestSession(t, stubPlatform{result: &platform.LaunchResult{Rejected: true, KernelDiag: "bad profile"}})
	_, err := sess.Run(context.Background(), &Options{
		WorkingDir: "/tmp/demo",
		HomeDir:    "/Users/u",
		NoConfig:   true,
	}, &platform.LaunchOptions{})
	if err == nil {
		t.Fatal("expected an error when the platform reports a profile rejection")
	}
	se, ok := err.(*SxError)
	if !ok || se.Kind != KindProfileRejected {
		t.Fatalf("expected KindProfileRejected, got %v", err)
	}
}

func TestSessionResolveUnknownProfileFails(t *testing.T) {
	sess := newTestSession(t, stubPlatform{})
	_, err := sess.Resolve(&Options{
		WorkingDir:   "/tmp/demo",
		HomeDir:      "/Users/u",
		NoConfig:     true,
		ProfileNames: []string{"does-not-exist"},
	})
	if err == nil {
		t.Fatal("expected UnknownProfile error")
	}
}
