// Package jail implements the Jail Manager (§4.C): name resolution,
// persistent-volume lifecycle, mount/env composition, cgroup discovery,
// and the create/start/stop/exec/join/remove/list/inspect/save/load/
// upgrade operation contract.
package jail

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"github.com/jail-ai/jailctl/pkg/jailerrors"
	"github.com/jail-ai/jailctl/pkg/runtime"
)

// Jail is the tuple described in §3 "Jail".
type Jail struct {
	Name            string
	Workspace       string
	Agent           string
	Mounts          []runtime.MountSpec
	Env             []string
	Limits          runtime.ResourceLimits
	Network         runtime.NetworkMode
	BlockHost       bool
	PersistentVolume string
	Image           runtime.ImageRef
}

// ErrConflict is returned by Create when a container with the requested
// identity already exists with a different image (§4.C "Failure semantics").
var ErrConflict = jailErr("jail already exists with a different image")

// ErrNotRunning is returned by Exec/Join when the target container is
// not currently running.
var ErrNotRunning = jailErr("jail is not running")

type jailErr string

func (e jailErr) Error() string { return string(e) }

// Manager drives the jail lifecycle against a ContainerRuntime.
type Manager struct {
	rt runtime.ContainerRuntime
}

// NewManager constructs a Manager backed by rt.
func NewManager(rt runtime.ContainerRuntime) *Manager {
	return &Manager{rt: rt}
}

// Create makes a jail's container and persistent volume, reusing an
// existing container if one with the same name already has the expected
// image (idempotent); a same-name container with a different image is a
// conflict (§4.C "Failure semantics").
func (m *Manager) Create(ctx context.Context, j Jail) (string, error) {
	exists, err := m.rt.VolumeExists(ctx, j.PersistentVolume)
	if err != nil {
		return "", jailerrors.New(jailerrors.KindRuntimeState, j.PersistentVolume, err)
	}
	if !exists {
		if err := m.rt.CreateVolume(ctx, j.PersistentVolume, map[string]string{"ai.jail.name": j.Name}); err != nil {
			return "", jailerrors.New(jailerrors.KindRuntimeState, j.PersistentVolume, err)
		}
	}

	if existing, err := m.rt.InspectContainer(ctx, j.Name); err == nil {
		if existing.Image == j.Image {
			return existing.ID, nil
		}
		return "", jailerrors.New(jailerrors.KindRuntimeState, j.Name, ErrConflict)
	}

	id, err := m.rt.CreateContainer(ctx, runtime.CreateOptions{
		Name:    j.Name,
		Image:   j.Image,
		Mounts:  j.Mounts,
		Env:     j.Env,
		Limits:  j.Limits,
		Network: j.Network,
		Labels:  map[string]string{"ai.jail.name": j.Name, "ai.jail.agent": j.Agent, "ai.jail.block-host": strconv.FormatBool(j.BlockHost)},
	})
	if err != nil {
		return "", jailerrors.New(jailerrors.KindRuntimeState, j.Name, err)
	}
	return id, nil
}

// Start starts a jail's container; starting an already-running container
// is a no-op (§4.C "Failure semantics").
func (m *Manager) Start(ctx context.Context, name string) error {
	details, err := m.rt.InspectContainer(ctx, name)
	if err != nil {
		return jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	if details.State.Running {
		return nil
	}
	if err := m.rt.StartContainer(ctx, name); err != nil {
		return jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	return nil
}

// Stop stops a jail's container.
func (m *Manager) Stop(ctx context.Context, name string, timeoutSeconds *int) error {
	if err := m.rt.StopContainer(ctx, name, timeoutSeconds); err != nil {
		return jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	return nil
}

// Exec runs argv inside a running jail; a stopped container is reported
// with ErrNotRunning, a distinct error class from a generic runtime
// failure (§4.C "Failure semantics").
func (m *Manager) Exec(ctx context.Context, name string, argv, env []string, out runtime.Writer) (int, error) {
	details, err := m.rt.InspectContainer(ctx, name)
	if err != nil {
		return -1, jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	if !details.State.Running {
		return -1, jailerrors.New(jailerrors.KindRuntimeState, name, ErrNotRunning)
	}
	code, err := m.rt.Exec(ctx, name, argv, env, out)
	if err != nil {
		return code, jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	return code, nil
}

// Join runs a shell in a running jail through Exec, with the same
// precondition and argv fixed to the shell. Exec does not attach stdin,
// so the shell reads end of input at once; Join does not provide an
// interactive terminal.
func (m *Manager) Join(ctx context.Context, name string, shell string, env []string, out runtime.Writer) (int, error) {
	if shell == "" {
		shell = "/bin/bash"
	}
	return m.Exec(ctx, name, []string{shell}, env, out)
}

// Remove removes a jail's container; best-effort, tolerating an
// already-removed container. removeVolume additionally removes the
// persistent home volume (default: retained).
func (m *Manager) Remove(ctx context.Context, name string, force bool, removeVolume bool) error {
	if err := m.rt.RemoveContainer(ctx, name, force, false); err != nil {
		if _, inspectErr := m.rt.InspectContainer(ctx, name); inspectErr != nil {
			return nil // already gone
		}
		return jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	if removeVolume {
		if err := m.rt.RemoveVolume(ctx, VolumeName(name), force); err != nil {
			return jailerrors.New(jailerrors.KindRuntimeState, name, err)
		}
	}
	return nil
}

// List returns every container the runtime manages that carries the
// jail name label, i.e. every container this Manager created.
func (m *Manager) List(ctx context.Context) ([]runtime.ContainerDetails, error) {
	all, err := m.rt.ListContainers(ctx)
	if err != nil {
		return nil, jailerrors.New(jailerrors.KindRuntimeState, "", err)
	}
	out := make([]runtime.ContainerDetails, 0, len(all))
	for _, c := range all {
		if _, ok := c.Labels["ai.jail.name"]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Inspect returns a jail's current container details.
func (m *Manager) Inspect(ctx context.Context, name string) (runtime.ContainerDetails, error) {
	details, err := m.rt.InspectContainer(ctx, name)
	if err != nil {
		return runtime.ContainerDetails{}, jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	return details, nil
}

// Save serializes a jail's configuration to path for later Load (§4.C
// "save (serialize configuration)").
func (m *Manager) Save(j Jail, path string) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return jailerrors.New(jailerrors.KindPlanning, path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return jailerrors.New(jailerrors.KindPlanning, path, err)
	}
	return nil
}

// Load deserializes a jail's configuration previously written by Save.
func Load(path string) (Jail, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Jail{}, jailerrors.New(jailerrors.KindPlanning, path, err)
	}
	var j Jail
	if err := json.Unmarshal(data, &j); err != nil {
		return Jail{}, jailerrors.New(jailerrors.KindPlanning, path, err)
	}
	return j, nil
}

// Upgrade recreates a jail's container against a refreshed image,
// preserving the persistent home volume (§4.C "upgrade").
func (m *Manager) Upgrade(ctx context.Context, j Jail, newImage runtime.ImageRef) (string, error) {
	if err := m.Remove(ctx, j.Name, true, false); err != nil {
		return "", err
	}
	j.Image = newImage
	return m.Create(ctx, j)
}
