package runtime

import "time"

// ImageRef is a fully qualified image reference such as
// "localhost/jail-ai-rust:latest".
type ImageRef string

// MountSpec is a "source:target[:ro]" triple (§6.1).
type MountSpec struct {
	Source string
	Target string
	ReadOnly bool
}

// ResourceLimits are expressed as memory in mebibytes and CPU quota as an
// integer percentage of one core (§6.1).
type ResourceLimits struct {
	MemoryMiB  int
	CPUPercent int
}

// NetworkMode names the container network mode (e.g. "bridge", "none",
// "slirp4netns"); the concrete set of legal values is runtime-dependent.
type NetworkMode string

// CreateOptions is the full argument set for the runtime's create operation.
type CreateOptions struct {
	Name    string
	Image   ImageRef
	Mounts  []MountSpec
	Env     []string
	Limits  ResourceLimits
	Network NetworkMode
	Labels  map[string]string
}

// ContainerState mirrors the subset of container state the Jail Manager
// and Drift Detector need (§3 "Container identity").
type ContainerState struct {
	Status  string // "running", "stopped", "created", ...
	Running bool
	Pid     int
}

// ContainerDetails provides full container inspection data, generalized
// from the teacher's runtime-agnostic ContainerDetails/ContainerConfig
// pair down to the fields the Jail Manager and Drift Detector consume.
type ContainerDetails struct {
	ID      string
	Name    string
	Created time.Time
	Image   ImageRef
	ImageID string
	State   ContainerState
	Mounts  []MountSpec
	Env     []string
	Labels  map[string]string
}

// ImageMetadata is the label/parent information the Planner/Builder and
// Drift Detector use to decide freshness (§4.B, §4.D).
type ImageMetadata struct {
	Ref          ImageRef
	Digest       string
	ParentDigest string
	Labels       map[string]string
}

// RecipeHashLabel is the image label key under which the builder records
// the recipe hash used to produce a layer (§4.B).
const RecipeHashLabel = "ai.jail.recipe-hash"

// ParentDigestLabel is the image label key recording the identity of the
// parent image a layer was built against (§4.B).
const ParentDigestLabel = "ai.jail.parent-digest"

// BuildOptions carries the inputs to the runtime's build operation (§6.1).
type BuildOptions struct {
	RecipeBytes []byte
	Parent      ImageRef
	Tag         ImageRef
	BuildArgs   map[string]string
	Labels      map[string]string
}
