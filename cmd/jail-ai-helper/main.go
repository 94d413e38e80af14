// Command jail-ai-helper is the privileged half of the egress filter
// (§4.E). It is never invoked directly by a user: the orchestrator
// spawns it, writes a JSON request to its stdin, and reads its exit
// code and stderr marker. It reads one request, performs exactly one
// privileged attach attempt, drops its capabilities, and exits.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/moby/sys/capability"

	"github.com/jail-ai/jailctl/pkg/egress/bpf"
	"github.com/jail-ai/jailctl/pkg/egress/protocol"
	"github.com/jail-ai/jailctl/pkg/jail"
	"github.com/jail-ai/jailctl/pkg/jailerrors"
)

func main() {
	os.Exit(run(os.Stdin, os.Stdout, os.Stderr))
}

func run(in io.Reader, out, errOut io.Writer) int {
	req, resp, exitCode, ok := readRequest(in)
	if !ok {
		return finish(resp, out, errOut, exitCode)
	}

	resp, exitCode = attach(req)
	return finish(resp, out, errOut, exitCode)
}

func readRequest(in io.Reader) (protocol.Request, protocol.Response, int, bool) {
	var req protocol.Request
	decoder := json.NewDecoder(in)
	if err := decoder.Decode(&req); err != nil {
		return req, protocol.Response{
			Category: protocol.CategoryAttachRejected,
			Message:  fmt.Sprintf("decode request: %v", err),
		}, jailerrors.KindHelperProtocol.ExitCode(), false
	}

	if err := validator.New().Struct(req); err != nil {
		return req, protocol.Response{
			Category: protocol.CategoryAddressListRejected,
			Message:  fmt.Sprintf("validate request: %v", err),
		}, jailerrors.KindHelperProtocol.ExitCode(), false
	}

	if err := jail.ValidateCgroupPath(req.CgroupPath); err != nil {
		return req, protocol.Response{
			Category: protocol.CategoryCgroupPathRejected,
			Message:  err.Error(),
		}, jailerrors.KindHelperProtocol.ExitCode(), false
	}

	return req, protocol.Response{}, 0, true
}

// attach performs the privileged sequence (§4.E steps 5-6): load the
// kernel program, populate its address maps, attach at both cgroup
// hooks, then drop capabilities regardless of outcome.
func attach(req protocol.Request) (protocol.Response, int) {
	defer dropCapabilities()

	spec, err := bpf.Load(req.ProgramBytes, req.ProgramPath)
	if err != nil {
		return protocol.Response{
			Category: protocol.CategoryKernelFeatureUnavailable,
			Message:  err.Error(),
		}, jailerrors.KindEgress.ExitCode()
	}

	coll, err := bpf.NewCollection(spec)
	if err != nil {
		return protocol.Response{
			Category: protocol.CategoryProgramLoadRejected,
			Message:  err.Error(),
		}, jailerrors.KindEgress.ExitCode()
	}

	if err := coll.PopulateV4(req.IPv4); err != nil {
		coll.Close()
		return protocol.Response{
			Category: protocol.CategoryAddressListRejected,
			Message:  err.Error(),
		}, jailerrors.KindEgress.ExitCode()
	}
	if err := coll.PopulateV6(req.IPv6); err != nil {
		coll.Close()
		return protocol.Response{
			Category: protocol.CategoryAddressListRejected,
			Message:  err.Error(),
		}, jailerrors.KindEgress.ExitCode()
	}

	if err := coll.AttachConnect4(req.CgroupPath); err != nil {
		coll.Close()
		return protocol.Response{
			Category: protocol.CategoryAttachRejected,
			Message:  err.Error(),
		}, jailerrors.KindEgress.ExitCode()
	}
	if err := coll.AttachConnect6(req.CgroupPath); err != nil {
		coll.Close()
		return protocol.Response{
			Category: protocol.CategoryAttachRejected,
			Message:  err.Error(),
		}, jailerrors.KindEgress.ExitCode()
	}

	// Success: the links stay attached to the cgroup after this process
	// exits (§4.E "the helper binary ... exits 0"); do not Close coll.
	return protocol.Response{OK: true}, 0
}

// dropCapabilities clears the process's effective, permitted, and
// inheritable capability sets before exit, whether the attach succeeded
// or failed (§4.E step 6, §9 least-privilege).
func dropCapabilities() {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return
	}
	if err := caps.Load(); err != nil {
		return
	}
	caps.Clear(capability.CAPS | capability.BOUNDING | capability.AMBIENT)
	_ = caps.Apply(capability.CAPS | capability.BOUNDING | capability.AMBIENT)
}

func finish(resp protocol.Response, out, errOut io.Writer, exitCode int) int {
	enc := json.NewEncoder(out)
	_ = enc.Encode(resp)
	if !resp.OK {
		fmt.Fprintln(errOut, resp.Marker())
	}
	return exitCode
}
