// Package ecosystem defines the closed set of ecosystem tags shared by
// the Project Classifier and the Layer Planner (§3).
package ecosystem

import "strings"

// Tag is a stable identifier for a language or tooling layer.
type Tag string

const (
	Base       Tag = "base"
	Rust       Tag = "rust"
	Go         Tag = "go"
	NodeJS     Tag = "nodejs"
	Python     Tag = "python"
	Java       Tag = "java"
	PHP        Tag = "php"
	CPP        Tag = "cpp"
	CSharp     Tag = "csharp"
	Nix        Tag = "nix"
	Kubernetes Tag = "kubernetes"
	Terraform  Tag = "terraform"
	AWS        Tag = "aws"
	GCP        Tag = "gcp"
	Custom     Tag = "custom"
)

// AgentTag builds the agent-<name> tag for a named agent.
func AgentTag(agent string) Tag {
	return Tag("agent-" + agent)
}

// IsAgentTag reports whether t is an agent-<name> tag.
func IsAgentTag(t Tag) bool {
	return strings.HasPrefix(string(t), "agent-")
}

// AgentName extracts <name> from an agent-<name> tag, or "" if t isn't one.
func AgentName(t Tag) string {
	if !IsAgentTag(t) {
		return ""
	}
	return strings.TrimPrefix(string(t), "agent-")
}

// languageOrder is the stable lexicographic order language tags appear in
// a layer stack (§4.B). nodejs and nix both sort in their ordinary
// alphabetical place rather than being special-cased next to custom/agent;
// when the planner injects nodejs for an agent's Node requirement it lands
// wherever that place is, which is why it so often ends up directly
// before the terminal agent layer.
var languageOrder = []Tag{
	AWS, CPP, CSharp, GCP, Go, Java, Kubernetes, Nix, NodeJS, PHP, Python, Rust, Terraform,
}

// LanguageOrder returns the canonical ordering of language tags.
func LanguageOrder() []Tag {
	out := make([]Tag, len(languageOrder))
	copy(out, languageOrder)
	return out
}

// IsLanguageTag reports whether t is one of the closed set of ecosystem
// language tags (i.e. not base/custom/agent-*).
func IsLanguageTag(t Tag) bool {
	switch t {
	case Rust, Go, NodeJS, Python, Java, PHP, CPP, CSharp, Nix, Kubernetes, Terraform, AWS, GCP:
		return true
	default:
		return false
	}
}
