// Package egress implements the unprivileged side of the Egress Filter
// Orchestrator and Privileged Helper split (§4.E): cgroup/address
// discovery, locating and invoking the helper binary, and the state
// machine tracking whether host-blocking is attached.
package egress

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jesseduffield/kill"

	"github.com/jail-ai/jailctl/pkg/egress/protocol"
	"github.com/jail-ai/jailctl/pkg/jail"
	"github.com/jail-ai/jailctl/pkg/jailerrors"
)

// HelperBinaryName is the filename the orchestrator searches for.
const HelperBinaryName = "jail-ai-helper"

// defaultHelperTimeout bounds how long Attach waits for the helper to
// exit before declaring it hung and failing open (§5 "Cancellation").
const defaultHelperTimeout = 30 * time.Second

// State is one of the egress filter's four states (§4.E "State machine").
type State int

const (
	Inactive State = iota
	AttachingHelperRunning
	Attached
	FailedOpen
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case AttachingHelperRunning:
		return "attaching-helper-running"
	case Attached:
		return "attached"
	case FailedOpen:
		return "failed-open"
	default:
		return "unknown"
	}
}

// Orchestrator drives the state machine for one jail's egress filter.
type Orchestrator struct {
	state             State
	lastCategory      protocol.ErrorCategory
	HelperSearchPaths []string
	ProgramPath       string
	Verbose           bool

	// HelperTimeout bounds how long Attach awaits the helper's exit before
	// killing it and failing open (§5 "Cancellation"). Zero means
	// defaultHelperTimeout.
	HelperTimeout time.Duration
}

// NewOrchestrator constructs an Orchestrator in the Inactive state.
func NewOrchestrator(programPath string) *Orchestrator {
	return &Orchestrator{
		state:             Inactive,
		HelperSearchPaths: defaultSearchPaths(),
		ProgramPath:       programPath,
		HelperTimeout:     defaultHelperTimeout,
	}
}

func defaultSearchPaths() []string {
	paths := []string{"/usr/local/libexec/jail-ai", "/usr/libexec/jail-ai", "/usr/local/bin", "/usr/bin"}
	if exe, err := os.Executable(); err == nil {
		paths = append([]string{filepath.Dir(exe)}, paths...)
	}
	return paths
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State { return o.state }

// LastCategory returns the error category recorded on the last
// FailedOpen transition, or "" if none occurred.
func (o *Orchestrator) LastCategory() protocol.ErrorCategory { return o.lastCategory }

// locateHelper searches the directory of the current executable, then a
// standard list of system binary directories (§4.E step 4).
func (o *Orchestrator) locateHelper() (string, error) {
	for _, dir := range o.HelperSearchPaths {
		candidate := filepath.Join(dir, HelperBinaryName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", jailerrors.New(jailerrors.KindEgress, HelperBinaryName, errHelperNotFound)
}

type egressErr string

func (e egressErr) Error() string { return string(e) }

var errHelperNotFound = egressErr("helper binary not found in search paths")

// Attach runs the full attach sequence for a jail's cgroup (§4.E steps
// 1-6): validates the cgroup path, enumerates host addresses, spawns the
// helper, and interprets its exit. On any failure it transitions to
// FailedOpen and returns nil — by design the orchestrator never fails
// the caller's operation over a filter attach failure (fail-open at the
// orchestrator level mirrors the kernel program's own fail-open rule).
func (o *Orchestrator) Attach(ctx context.Context, cgroupPath string) error {
	o.state = AttachingHelperRunning

	if err := jail.ValidateCgroupPath(cgroupPath); err != nil {
		return o.failOpen(protocol.CategoryCgroupPathRejected, err.Error())
	}

	ipv4, ipv6, err := HostAddresses()
	if err != nil {
		return o.failOpen(protocol.CategoryAddressListRejected, err.Error())
	}

	helperPath, err := o.locateHelper()
	if err != nil {
		return o.failOpen(protocol.CategoryKernelFeatureUnavailable, err.Error())
	}

	req := protocol.Request{
		CgroupPath:  cgroupPath,
		IPv4:        ipv4,
		IPv6:        ipv6,
		Verbose:     o.Verbose,
		ProgramPath: o.ProgramPath,
	}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return o.failOpen(protocol.CategoryAddressListRejected, err.Error())
	}

	cmd := exec.Command(helperPath)
	cmd.Stdin = bytes.NewReader(reqBytes)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Setpgid so a hung helper's own children (if any) die with it when we
	// kill the group below, rather than surviving the timeout.
	kill.PrepareForChildren(cmd)

	if err := cmd.Start(); err != nil {
		return o.failOpen(protocol.CategoryKernelFeatureUnavailable, err.Error())
	}

	timeout := o.HelperTimeout
	if timeout <= 0 {
		timeout = defaultHelperTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			category := categorizeFailure(stderr.String())
			return o.failOpen(category, stderr.String())
		}
	case <-timer.C:
		_ = kill.Kill(cmd)
		<-done
		return o.failOpen(protocol.CategoryAttachRejected, "helper did not exit within timeout")
	case <-ctx.Done():
		_ = kill.Kill(cmd)
		<-done
		return o.failOpen(protocol.CategoryAttachRejected, ctx.Err().Error())
	}

	o.state = Attached
	o.lastCategory = ""
	return nil
}

// Detach transitions the orchestrator back to Inactive, e.g. because the
// container's cgroup was destroyed (§4.E "Attached → Inactive").
func (o *Orchestrator) Detach() {
	o.state = Inactive
	o.lastCategory = ""
}

func (o *Orchestrator) failOpen(category protocol.ErrorCategory, message string) error {
	o.state = FailedOpen
	o.lastCategory = category
	_ = message
	return nil
}

// categorizeFailure extracts the structured marker category from the
// helper's stderr, falling back to a generic attach-rejected category if
// the marker can't be parsed (§4.E step 6, protocol.Response.Marker).
func categorizeFailure(stderr string) protocol.ErrorCategory {
	for _, c := range []protocol.ErrorCategory{
		protocol.CategoryKernelFeatureUnavailable,
		protocol.CategoryInsufficientCapabilities,
		protocol.CategoryCgroupPathRejected,
		protocol.CategoryAddressListRejected,
		protocol.CategoryProgramLoadRejected,
		protocol.CategoryAttachRejected,
	} {
		if strings.Contains(stderr, string(c)) {
			return c
		}
	}
	return protocol.CategoryAttachRejected
}

// EnsureAttached re-enters AttachingHelperRunning if the block-host flag
// is set and the state is Inactive, matching any subsequent start/exec/
// join operation's reattach rule (§4.E "Reattach on restart").
func (o *Orchestrator) EnsureAttached(ctx context.Context, blockHost bool, cgroupPath string) error {
	if !blockHost {
		return nil
	}
	if o.state != Inactive {
		return nil
	}
	return o.Attach(ctx, cgroupPath)
}
