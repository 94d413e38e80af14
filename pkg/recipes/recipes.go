// Package recipes holds the closed, compile-time-embedded table of layer
// recipes (§3, §6.3). Each recipe is a named, immutable build script;
// recipes are content-hashed once at package initialization into a
// read-only side table keyed by name, and that hash becomes part of a
// layer's effective identity (§4.B).
//
// This mirrors the teacher's pattern of shipping everything the runtime
// needs inside the distributable binary rather than depending on a
// source tree at runtime (§9 "Embedded binary resources").
package recipes

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"

	"github.com/jail-ai/jailctl/pkg/ecosystem"
)

//go:embed files/*.Containerfile
var embedded embed.FS

// Recipe is a named, immutable build script and its default parent image.
type Recipe struct {
	Name          string
	Bytes         []byte
	Hash          string // hex-encoded sha256 of Bytes
	DefaultParent string
}

// ByName is the read-only recipe table exposed to the Planner, keyed by
// recipe name (which, for language/base recipes, coincides with the
// ecosystem tag; the agent recipe is keyed "agent" and parameterized at
// build time with an AGENT_NAME build argument, since the set of agents
// is not itself closed).
var ByName map[string]Recipe

// defaultParents gives every shared recipe a parent to build against
// when none is supplied by the planner (i.e. for "base" itself, the
// well-known upstream image; for everything else, "base"'s own produced
// image, resolved by the Builder at build time instead — see
// layers.Builder.Ensure).
var defaultParents = map[string]string{
	string(ecosystem.Base): "docker.io/library/debian:stable-slim",
}

var names = []string{
	string(ecosystem.Base),
	string(ecosystem.Rust),
	string(ecosystem.Go),
	string(ecosystem.NodeJS),
	string(ecosystem.Python),
	string(ecosystem.Java),
	string(ecosystem.PHP),
	string(ecosystem.CPP),
	string(ecosystem.CSharp),
	string(ecosystem.Nix),
	string(ecosystem.Kubernetes),
	string(ecosystem.Terraform),
	string(ecosystem.AWS),
	string(ecosystem.GCP),
	"agent",
}

func init() {
	ByName = make(map[string]Recipe, len(names))
	for _, name := range names {
		data, err := embedded.ReadFile("files/" + name + ".Containerfile")
		if err != nil {
			panic(fmt.Sprintf("recipes: embedded recipe %q missing: %v", name, err))
		}
		sum := sha256.Sum256(data)
		ByName[name] = Recipe{
			Name:          name,
			Bytes:         data,
			Hash:          hex.EncodeToString(sum[:]),
			DefaultParent: defaultParents[name],
		}
	}
}

// Hash returns the content hash of the named recipe, or "" if unknown.
func Hash(name string) string {
	return ByName[name].Hash
}

// Get returns the named recipe and whether it exists in the closed
// inventory.
func Get(name string) (Recipe, bool) {
	r, ok := ByName[name]
	return r, ok
}

// HashBytes computes the same content digest the embedded table uses,
// for hashing a workspace-local custom recipe (§3, §4.B) which is never
// part of the embedded table.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ShortHashBytes is HashBytes truncated to the 6 hex characters the stack
// tag appends for a custom recipe (§3: "…-custom-<hex6>").
func ShortHashBytes(b []byte) string {
	h := HashBytes(b)
	if len(h) > 6 {
		return h[:6]
	}
	return h
}
