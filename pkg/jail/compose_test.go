package jail

import "testing"

func TestComposeMountsMostRestrictiveWins(t *testing.T) {
	mounts := ComposeMounts("/work", "/workspace", "home-vol", "/home/agent", []MountRequest{
		{Source: "/workspace", Target: "/workspace", ReadOnly: true},
	})
	for _, m := range mounts {
		if m.Target == "/workspace" && !m.ReadOnly {
			t.Fatalf("expected explicit read-only to win, got %+v", m)
		}
	}
}

func TestComposeMountsIncludesWorkspaceAndHome(t *testing.T) {
	mounts := ComposeMounts("/work", "/workspace", "home-vol", "/home/agent", nil)
	if len(mounts) != 2 {
		t.Fatalf("expected 2 base mounts, got %d: %+v", len(mounts), mounts)
	}
}

func TestComposeEnvIncludesWhitelistAndSigningSocket(t *testing.T) {
	env := ComposeEnv(map[string]string{"TERM": "xterm-256color", "HOME": "/root"}, []string{"FOO=bar"}, "/home/agent/.ssh-agent.sock")
	found := map[string]bool{}
	for _, e := range env {
		found[e] = true
	}
	if !found["TERM=xterm-256color"] {
		t.Fatalf("expected TERM forwarded, got %v", env)
	}
	if found["HOME=/root"] {
		t.Fatalf("expected HOME not forwarded (not whitelisted), got %v", env)
	}
	if !found["FOO=bar"] {
		t.Fatalf("expected caller env forwarded, got %v", env)
	}
	if !found["SSH_AUTH_SOCK=/home/agent/.ssh-agent.sock"] {
		t.Fatalf("expected signing socket env injected, got %v", env)
	}
}
