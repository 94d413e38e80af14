// Package runtime abstracts the rootless OCI runtime operations the rest
// of jailctl needs (§6.1): building layer images, checking/inspecting
// images, and creating/starting/stopping/execing/removing containers and
// their volumes. This generalizes the teacher's ContainerRuntime
// interface, which only ever read and monitored state, to one that also
// builds images and drives the container lifecycle end to end.
package runtime

import "context"

// ContainerRuntime is the seam between the rest of jailctl and the
// underlying container engine. A single implementation (Podman, via the
// socket bindings) satisfies it today; the interface exists so the Jail
// Manager and Planner/Builder never import bindings packages directly.
type ContainerRuntime interface {
	// Build produces a new image from recipe bytes (a Containerfile) and
	// records RecipeHashLabel/ParentDigestLabel on the result so the
	// Drift Detector can later decide whether it is stale (§4.B, §4.D).
	Build(ctx context.Context, opts BuildOptions) (ImageMetadata, error)

	// ImageExists reports whether ref is present in local storage.
	ImageExists(ctx context.Context, ref ImageRef) (bool, error)

	// InspectImage returns the labels and digest of a local image.
	InspectImage(ctx context.Context, ref ImageRef) (ImageMetadata, error)

	// RemoveImage deletes an image from local storage.
	RemoveImage(ctx context.Context, ref ImageRef, force bool) error

	// CreateContainer creates (but does not start) a container.
	CreateContainer(ctx context.Context, opts CreateOptions) (string, error)

	// StartContainer starts a previously created container.
	StartContainer(ctx context.Context, id string) error

	// StopContainer stops a running container, waiting up to timeoutSeconds.
	StopContainer(ctx context.Context, id string, timeoutSeconds *int) error

	// RemoveContainer removes a container, optionally force-killing it and
	// its anonymous volumes.
	RemoveContainer(ctx context.Context, id string, force, volumes bool) error

	// InspectContainer returns full container state.
	InspectContainer(ctx context.Context, id string) (ContainerDetails, error)

	// ListContainers returns summary details for every container this
	// runtime manages, used by the Jail Manager's list operation.
	ListContainers(ctx context.Context) ([]ContainerDetails, error)

	// Exec runs argv inside a running container and streams combined
	// stdout/stderr to out, returning the process exit code.
	Exec(ctx context.Context, id string, argv []string, env []string, out Writer) (int, error)

	// CreateVolume creates a named persistent volume.
	CreateVolume(ctx context.Context, name string, labels map[string]string) error

	// RemoveVolume removes a named volume.
	RemoveVolume(ctx context.Context, name string, force bool) error

	// VolumeExists reports whether a named volume is present.
	VolumeExists(ctx context.Context, name string) (bool, error)

	// Close releases any connection resources.
	Close() error
}

// Writer is the minimal streaming sink Exec writes process output to;
// satisfied by *os.File and any io.Writer.
type Writer interface {
	Write(p []byte) (int, error)
}
