package jail

import "github.com/jail-ai/jailctl/pkg/runtime"

// MountRequest describes one caller-requested mount before conflict
// resolution (§4.C "Mount composition").
type MountRequest struct {
	Source   string
	Target   string
	ReadOnly bool
}

// ComposeMounts builds the effective mount list: the workspace, the
// persistent home volume, and any opt-in caller mounts, resolving
// duplicate targets so the most restrictive mode wins (an explicit
// read-only beats an implicit read-write).
func ComposeMounts(workspace, workspaceMount, homeVolume, agentHome string, extra []MountRequest) []runtime.MountSpec {
	byTarget := map[string]runtime.MountSpec{}
	order := []string{}

	add := func(source, target string, readOnly bool) {
		if existing, ok := byTarget[target]; ok {
			if readOnly && !existing.ReadOnly {
				existing.ReadOnly = true
				byTarget[target] = existing
			}
			return
		}
		byTarget[target] = runtime.MountSpec{Source: source, Target: target, ReadOnly: readOnly}
		order = append(order, target)
	}

	add(workspace, workspaceMount, false)
	add(homeVolume, agentHome, false)
	for _, m := range extra {
		add(m.Source, m.Target, m.ReadOnly)
	}

	out := make([]runtime.MountSpec, 0, len(order))
	for _, target := range order {
		out = append(out, byTarget[target])
	}
	return out
}

// whitelistedHostEnv is the small set of host environment variables the
// manager forwards into every jail (§4.C "Environment composition").
var whitelistedHostEnv = []string{"TERM", "TZ"}

// ComposeEnv builds the effective environment: whitelisted host vars,
// caller-supplied additions, and (when enabled) the signing-agent socket
// variable pointing at its interior mount path.
func ComposeEnv(hostEnv map[string]string, extra []string, signingSocketInteriorPath string) []string {
	out := []string{}
	for _, k := range whitelistedHostEnv {
		if v, ok := hostEnv[k]; ok && v != "" {
			out = append(out, k+"="+v)
		}
	}
	out = append(out, extra...)
	if signingSocketInteriorPath != "" {
		out = append(out, "SSH_AUTH_SOCK="+signingSocketInteriorPath)
	}
	return out
}
