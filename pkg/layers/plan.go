// Package layers implements the Layer Planner & Builder (§4.B): mapping
// an ecosystem set and an optional agent to an ordered, content-hashed
// layer stack, and building whichever layers aren't already fresh.
package layers

import (
	"strings"

	"github.com/jail-ai/jailctl/pkg/ecosystem"
	"github.com/jail-ai/jailctl/pkg/recipes"
)

// LayerSpec is one entry in a planned stack: the ecosystem tag it
// implements, the recipe used to build it, and the registry-qualified
// image reference it resolves to.
type LayerSpec struct {
	Tag          ecosystem.Tag
	RecipeName   string
	RecipeBytes  []byte
	RecipeHash   string
	ImageTag     string // e.g. "latest" for shared layers, the stack tag for the terminal layer
	Repository   string // e.g. "localhost/jail-ai-rust" or "localhost/jail-ai-agent-claude"
	BuildArgs    map[string]string
	IsTerminal   bool
}

// Stack is a fully planned, ordered layer list plus the shared stack tag
// it resolves to.
type Stack struct {
	Layers   []LayerSpec
	StackTag string
}

// Options customizes planning beyond the raw ecosystem set.
type Options struct {
	Agent string
	// AgentRequiresNode is looked up by the caller (e.g. from an agent
	// registry) and tells the planner whether to inject nodejs when the
	// workspace's own tags don't already imply it.
	AgentRequiresNode bool
	// CustomRecipeBytes is the workspace-local jail-ai.Containerfile
	// content, if the classifier found one.
	CustomRecipeBytes []byte
	// Isolated selects isolated tagging mode (§3): the terminal image is
	// tagged with the workspace short identifier instead of the shared
	// stack tag.
	Isolated         bool
	WorkspaceShortID string
	Registry         string
}

// Plan produces the ordered layer stack for tags and opts (§4.B).
// tags must already reflect classifier output (nix-precedence already
// applied); Plan only adds the nodejs-for-agent injection and appends
// custom/agent layers.
func Plan(tags []ecosystem.Tag, opts Options) Stack {
	set := make(map[ecosystem.Tag]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}

	if opts.Agent != "" && opts.AgentRequiresNode && !set[ecosystem.NodeJS] {
		set[ecosystem.NodeJS] = true
	}

	ordered := []ecosystem.Tag{ecosystem.Base}
	for _, lang := range ecosystem.LanguageOrder() {
		if set[lang] {
			ordered = append(ordered, lang)
		}
	}

	registry := opts.Registry
	if registry == "" {
		registry = "localhost"
	}

	layerSpecs := make([]LayerSpec, 0, len(ordered)+2)
	for _, tag := range ordered {
		r, _ := recipes.Get(string(tag))
		layerSpecs = append(layerSpecs, LayerSpec{
			Tag:         tag,
			RecipeName:  string(tag),
			RecipeBytes: r.Bytes,
			RecipeHash:  r.Hash,
			ImageTag:    "latest",
			Repository:  registry + "/jail-ai-" + string(tag),
		})
	}

	stackTagParts := make([]string, len(ordered))
	for i, t := range ordered {
		stackTagParts[i] = string(t)
	}
	stackTag := strings.Join(stackTagParts, "-")

	if len(opts.CustomRecipeBytes) > 0 {
		short := recipes.ShortHashBytes(opts.CustomRecipeBytes)
		layerSpecs = append(layerSpecs, LayerSpec{
			Tag:         ecosystem.Custom,
			RecipeName:  "custom",
			RecipeBytes: opts.CustomRecipeBytes,
			RecipeHash:  recipes.HashBytes(opts.CustomRecipeBytes),
			ImageTag:    "latest",
			Repository:  registry + "/jail-ai-custom-" + short,
		})
		stackTag += "-custom-" + short
	}

	finalTag := stackTag
	if opts.Isolated {
		finalTag = opts.WorkspaceShortID
	}

	if opts.Agent != "" {
		agentRecipe, _ := recipes.Get("agent")
		layerSpecs = append(layerSpecs, LayerSpec{
			Tag:         ecosystem.AgentTag(opts.Agent),
			RecipeName:  "agent",
			RecipeBytes: agentRecipe.Bytes,
			RecipeHash:  agentRecipe.Hash,
			ImageTag:    finalTag,
			Repository:  registry + "/jail-ai-agent-" + opts.Agent,
			BuildArgs:   map[string]string{"AGENT_NAME": opts.Agent},
			IsTerminal:  true,
		})
	} else if len(layerSpecs) > 0 {
		layerSpecs[len(layerSpecs)-1].ImageTag = finalTag
		layerSpecs[len(layerSpecs)-1].IsTerminal = true
	}

	return Stack{Layers: layerSpecs, StackTag: stackTag}
}

// ImageRef returns the fully qualified "<repository>:<tag>" reference
// for a planned layer.
func (l LayerSpec) ImageRef() string {
	return l.Repository + ":" + l.ImageTag
}
