package drift

import (
	"strings"
	"testing"

	"github.com/jail-ai/jailctl/pkg/ecosystem"
	"github.com/jail-ai/jailctl/pkg/layers"
	"github.com/jail-ai/jailctl/pkg/runtime"
)

func TestDetectEmptyWhenEverythingMatches(t *testing.T) {
	stack := layers.Plan([]ecosystem.Tag{ecosystem.Base}, layers.Options{Registry: "localhost"})
	current := runtime.ImageRef(stack.Layers[len(stack.Layers)-1].ImageRef())
	report := Detect(stack, current, func(l layers.LayerSpec) (string, bool) {
		return l.RecipeHash, true
	})
	if !report.Empty() {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestDetectFindsOutdatedLayer(t *testing.T) {
	stack := layers.Plan([]ecosystem.Tag{ecosystem.Base}, layers.Options{Registry: "localhost"})
	current := runtime.ImageRef(stack.Layers[len(stack.Layers)-1].ImageRef())
	report := Detect(stack, current, func(l layers.LayerSpec) (string, bool) {
		return "stale-hash", true
	})
	if len(report.OutdatedLayers) != len(stack.Layers) {
		t.Fatalf("expected all layers outdated, got %+v", report.OutdatedLayers)
	}
}

func TestDetectFindsImageDrift(t *testing.T) {
	stack := layers.Plan([]ecosystem.Tag{ecosystem.Base, ecosystem.Nix}, layers.Options{Registry: "localhost"})
	report := Detect(stack, "localhost/jail-ai-agent-claude:base-rust-nodejs", func(l layers.LayerSpec) (string, bool) {
		return l.RecipeHash, true
	})
	if report.ImageDrift == nil {
		t.Fatal("expected image drift")
	}
}

func TestNoPrompterAlwaysDeclines(t *testing.T) {
	rebuild, err := NoPrompter{}.Confirm(Report{ImageDrift: &ImageDrift{}})
	if err != nil || rebuild {
		t.Fatalf("expected headless decline, got rebuild=%v err=%v", rebuild, err)
	}
}

func TestStdPrompterAcceptsYes(t *testing.T) {
	var out strings.Builder
	p := StdPrompter{In: strings.NewReader("y\n"), Out: &out}
	rebuild, err := p.Confirm(Report{ImageDrift: &ImageDrift{Current: "a", Expected: "b"}})
	if err != nil || !rebuild {
		t.Fatalf("expected rebuild=true, got %v err=%v", rebuild, err)
	}
}

func TestStdPrompterDefaultsToNoOnEmptyInput(t *testing.T) {
	var out strings.Builder
	p := StdPrompter{In: strings.NewReader(""), Out: &out}
	rebuild, err := p.Confirm(Report{ImageDrift: &ImageDrift{}})
	if err != nil || rebuild {
		t.Fatalf("expected default decline, got %v err=%v", rebuild, err)
	}
}
