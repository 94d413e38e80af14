// Package classifier implements the Project Classifier (§4.A): given a
// workspace directory, it inspects the root-level entries and produces
// an ordered, deduplicated ecosystem-tag list. Classification is
// non-recursive and is, by design, a pure function of the directory's
// root-level entry set (§8).
package classifier

import (
	"os"
	"path/filepath"

	"github.com/jail-ai/jailctl/pkg/ecosystem"
	"github.com/jail-ai/jailctl/pkg/jailerrors"
)

// CustomRecipeName is the workspace-root file that, when present, adds
// the sentinel "custom" tag (§4.A).
const CustomRecipeName = "jail-ai.Containerfile"

// Options tweaks classification behavior.
type Options struct {
	// SuppressNix disables the nix-precedence elision rule even when
	// flake.nix is present.
	SuppressNix bool
}

// signalRule pairs a set of candidate root-level file names with the tag
// they imply. Any one match is sufficient.
type signalRule struct {
	tag   ecosystem.Tag
	names []string
}

var fileRules = []signalRule{
	{ecosystem.Rust, []string{"Cargo.toml"}},
	{ecosystem.Go, []string{"go.mod", "go.sum"}},
	{ecosystem.NodeJS, []string{"package.json"}},
	{ecosystem.Python, []string{"pyproject.toml", "requirements.txt", "setup.py", "Pipfile", "poetry.lock"}},
	{ecosystem.Java, []string{"pom.xml", "build.gradle", "build.gradle.kts"}},
	{ecosystem.PHP, []string{"composer.json"}},
	{ecosystem.CPP, []string{"CMakeLists.txt"}},
	{ecosystem.Terraform, []string{"main.tf", "terraform.tfstate"}},
}

// globRules pairs a glob pattern (matched against root-level entries
// only) with the tag it implies.
var globRules = []struct {
	tag     ecosystem.Tag
	pattern string
}{
	{ecosystem.CSharp, "*.csproj"},
	{ecosystem.CSharp, "*.sln"},
	{ecosystem.Kubernetes, "*.k8s.yaml"},
	{ecosystem.Kubernetes, "*.k8s.yml"},
}

// Classify inspects workspace's root-level entries and returns an
// ordered, deduplicated ecosystem-tag list per the rule table of §4.A.
// I/O errors reading the directory are fatal to the operation and are
// reported wrapped in a jailerrors.KindClassification error naming the
// offending path.
func Classify(workspace string, opts Options) ([]ecosystem.Tag, error) {
	entries, err := os.ReadDir(workspace)
	if err != nil {
		return nil, jailerrors.New(jailerrors.KindClassification, workspace, err)
	}

	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}

	hasCMake := names["CMakeLists.txt"]
	hasCppMakefile := names["Makefile"] && hasCSources(workspace, entries)
	hasNix := names["flake.nix"]
	hasCustom := names[CustomRecipeName]
	hasTerraformDir := names[".terraform"] || names["terragrunt.hcl"]
	hasKustomize := names["kustomization.yaml"] || names["kustomization.yml"]
	hasHelmChart := names["Chart.yaml"]
	hasAWSCDK := names["cdk.json"]
	hasGCPDeploymentManager := names["cloudbuild.yaml"] || names["cloudbuild.yml"]

	tags := []ecosystem.Tag{ecosystem.Base}
	seen := map[ecosystem.Tag]bool{ecosystem.Base: true}
	add := func(t ecosystem.Tag) {
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}

	if hasNix && !opts.SuppressNix {
		// Nix-precedence rule (§4.A, §9 Open Question): the flake is the
		// source of truth for the toolchain, so language tags are elided.
		add(ecosystem.Nix)
		if hasCustom {
			add(ecosystem.Custom)
		}
		return tags, nil
	}

	for _, rule := range fileRules {
		for _, name := range rule.names {
			if names[name] {
				add(rule.tag)
				break
			}
		}
	}
	if hasCMake || hasCppMakefile {
		add(ecosystem.CPP)
	}
	if hasTerraformDir {
		add(ecosystem.Terraform)
	}
	if hasKustomize || hasHelmChart {
		add(ecosystem.Kubernetes)
	}
	if hasAWSCDK {
		add(ecosystem.AWS)
	}
	if hasGCPDeploymentManager {
		add(ecosystem.GCP)
	}
	for _, rule := range globRules {
		for name := range names {
			if ok, _ := filepath.Match(rule.pattern, name); ok {
				add(rule.tag)
				break
			}
		}
	}
	if hasNix { // SuppressNix was set; nix still participates as an ordinary tag
		add(ecosystem.Nix)
	}
	if hasCustom {
		add(ecosystem.Custom)
	}

	return tags, nil
}

// hasCSources does a shallow (non-recursive) scan for C/C++ source files
// alongside a Makefile, per §4.A's "Makefile with C/C++ sources" signal.
func hasCSources(workspace string, entries []os.DirEntry) bool {
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".c", ".cc", ".cpp", ".cxx", ".h", ".hpp":
			return true
		}
	}
	_ = workspace
	return false
}
