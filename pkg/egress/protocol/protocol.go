// Package protocol defines the JSON document exchanged between the
// unprivileged orchestrator and the privileged helper over the helper's
// standard input/output (§4.E).
package protocol

// Request is written by the orchestrator to the helper's stdin.
type Request struct {
	CgroupPath string   `json:"cgroup_path" validate:"required"`
	IPv4       []string `json:"ipv4" validate:"required,min=1,max=999,dive,ip4_addr|cidrv4"`
	IPv6       []string `json:"ipv6" validate:"omitempty,max=999,dive,ip6_addr|cidrv6"`
	Verbose    bool     `json:"verbose,omitempty"`
	// ProgramBytes carries the compiled kernel program directly; when
	// empty the helper loads it from ProgramPath instead (§4.E step 5).
	ProgramBytes []byte `json:"program_bytes,omitempty"`
	ProgramPath  string `json:"program_path,omitempty"`
}

// ErrorCategory enumerates the structured failure categories the helper
// must distinguish (§4.E "Error categories").
type ErrorCategory string

const (
	CategoryKernelFeatureUnavailable ErrorCategory = "kernel feature unavailable"
	CategoryInsufficientCapabilities ErrorCategory = "insufficient capabilities at helper"
	CategoryCgroupPathRejected       ErrorCategory = "cgroup path rejected by validation"
	CategoryAddressListRejected      ErrorCategory = "address list rejected by validation"
	CategoryProgramLoadRejected      ErrorCategory = "program load rejected by kernel verifier"
	CategoryAttachRejected           ErrorCategory = "attach rejected"
)

// Response is written by the helper to its stdout on both success and
// failure; on failure the same structured marker is also written to
// stderr as a single line (§4.E step 6).
type Response struct {
	OK       bool          `json:"ok"`
	Category ErrorCategory `json:"category,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// Marker renders the one-line structured marker the helper writes to
// stderr on failure, e.g. "jail-ai-helper: cgroup path rejected by validation: ...".
func (r Response) Marker() string {
	if r.OK {
		return ""
	}
	return "jail-ai-helper: " + string(r.Category) + ": " + r.Message
}
