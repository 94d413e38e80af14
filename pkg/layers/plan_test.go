package layers

import (
	"testing"

	"github.com/jail-ai/jailctl/pkg/ecosystem"
)

func TestPlanInjectsNodeForAgent(t *testing.T) {
	stack := Plan([]ecosystem.Tag{ecosystem.Base, ecosystem.Rust}, Options{
		Agent:             "claude",
		AgentRequiresNode: true,
		Registry:          "localhost",
	})
	if stack.StackTag != "base-nodejs-rust" {
		t.Fatalf("expected base-nodejs-rust, got %q", stack.StackTag)
	}
	last := stack.Layers[len(stack.Layers)-1]
	if !last.IsTerminal || last.Tag != ecosystem.AgentTag("claude") {
		t.Fatalf("expected terminal agent layer, got %+v", last)
	}
	if last.ImageRef() != "localhost/jail-ai-agent-claude:base-nodejs-rust" {
		t.Fatalf("unexpected terminal image ref %q", last.ImageRef())
	}
}

func TestPlanWithoutAgentTerminatesOnLastLanguage(t *testing.T) {
	stack := Plan([]ecosystem.Tag{ecosystem.Base, ecosystem.Go}, Options{Registry: "localhost"})
	last := stack.Layers[len(stack.Layers)-1]
	if !last.IsTerminal || last.Tag != ecosystem.Go {
		t.Fatalf("expected terminal go layer, got %+v", last)
	}
}

func TestPlanAppendsCustomDigestToStackTag(t *testing.T) {
	stack := Plan([]ecosystem.Tag{ecosystem.Base, ecosystem.Rust}, Options{
		CustomRecipeBytes: []byte("FROM scratch\n"),
		Registry:          "localhost",
	})
	if len(stack.StackTag) < len("base-rust-custom-") {
		t.Fatalf("expected custom suffix, got %q", stack.StackTag)
	}
}

func TestPlanIsolatedModeUsesWorkspaceShortID(t *testing.T) {
	stack := Plan([]ecosystem.Tag{ecosystem.Base}, Options{
		Agent:            "claude",
		Isolated:         true,
		WorkspaceShortID: "abcd1234",
		Registry:         "localhost",
	})
	last := stack.Layers[len(stack.Layers)-1]
	if last.ImageTag != "abcd1234" {
		t.Fatalf("expected isolated tag abcd1234, got %q", last.ImageTag)
	}
}
