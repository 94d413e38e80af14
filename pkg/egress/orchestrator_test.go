package egress

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jail-ai/jailctl/pkg/egress/protocol"
)

func TestLocateHelperFindsBinaryInSearchPath(t *testing.T) {
	dir := t.TempDir()
	helperPath := filepath.Join(dir, HelperBinaryName)
	if err := os.WriteFile(helperPath, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	o := NewOrchestrator("")
	o.HelperSearchPaths = []string{t.TempDir(), dir}

	got, err := o.locateHelper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != helperPath {
		t.Fatalf("expected %s, got %s", helperPath, got)
	}
}

func TestLocateHelperMissingEverywhere(t *testing.T) {
	o := NewOrchestrator("")
	o.HelperSearchPaths = []string{t.TempDir()}

	if _, err := o.locateHelper(); err == nil {
		t.Fatal("expected error when helper is nowhere in search paths")
	}
}

func TestAttachFailsOpenOnInvalidCgroupPath(t *testing.T) {
	o := NewOrchestrator("")
	err := o.Attach(context.Background(), "relative/path")
	if err != nil {
		t.Fatalf("Attach should never itself return an error, got %v", err)
	}
	if o.State() != FailedOpen {
		t.Fatalf("expected FailedOpen, got %s", o.State())
	}
	if o.LastCategory() != protocol.CategoryCgroupPathRejected {
		t.Fatalf("expected cgroup-path category, got %s", o.LastCategory())
	}
}

func TestAttachFailsOpenWhenHelperMissing(t *testing.T) {
	if _, statErr := os.Stat("/sys/fs/cgroup"); statErr != nil {
		t.Skip("no /sys/fs/cgroup on this host")
	}

	o := NewOrchestrator("")
	o.HelperSearchPaths = []string{t.TempDir()}

	err := o.Attach(context.Background(), "/sys/fs/cgroup")
	if err != nil {
		t.Fatalf("Attach should never itself return an error, got %v", err)
	}
	if o.State() != FailedOpen {
		t.Fatalf("expected FailedOpen, got %s", o.State())
	}
	if o.LastCategory() != protocol.CategoryKernelFeatureUnavailable {
		t.Fatalf("expected kernel-feature category, got %s", o.LastCategory())
	}
}

func TestAttachFailsOpenWhenHelperTimesOut(t *testing.T) {
	if _, statErr := os.Stat("/sys/fs/cgroup"); statErr != nil {
		t.Skip("no /sys/fs/cgroup on this host")
	}

	dir := t.TempDir()
	helperPath := filepath.Join(dir, HelperBinaryName)
	if err := os.WriteFile(helperPath, []byte("#!/bin/sh\nsleep 60\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	o := NewOrchestrator("")
	o.HelperSearchPaths = []string{dir}
	o.HelperTimeout = 50 * time.Millisecond

	start := time.Now()
	err := o.Attach(context.Background(), "/sys/fs/cgroup")
	if err != nil {
		t.Fatalf("Attach should never itself return an error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Attach should have failed open near the configured timeout, took %s", elapsed)
	}
	if o.State() != FailedOpen {
		t.Fatalf("expected FailedOpen, got %s", o.State())
	}
	if o.LastCategory() != protocol.CategoryAttachRejected {
		t.Fatalf("expected attach-rejected category, got %s", o.LastCategory())
	}
}

func TestEnsureAttachedSkipsWhenNotRequested(t *testing.T) {
	o := NewOrchestrator("")
	if err := o.EnsureAttached(context.Background(), false, "/sys/fs/cgroup/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State() != Inactive {
		t.Fatalf("expected Inactive, got %s", o.State())
	}
}

func TestEnsureAttachedSkipsWhenAlreadyAttached(t *testing.T) {
	o := NewOrchestrator("")
	o.state = Attached
	if err := o.EnsureAttached(context.Background(), true, "/sys/fs/cgroup/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.State() != Attached {
		t.Fatalf("expected Attached to remain unchanged, got %s", o.State())
	}
}

func TestDetachResetsState(t *testing.T) {
	o := NewOrchestrator("")
	o.state = Attached
	o.Detach()
	if o.State() != Inactive {
		t.Fatalf("expected Inactive after Detach, got %s", o.State())
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Inactive:               "inactive",
		AttachingHelperRunning: "attaching-helper-running",
		Attached:               "attached",
		FailedOpen:             "failed-open",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("state %d: expected %q, got %q", s, want, got)
		}
	}
}
