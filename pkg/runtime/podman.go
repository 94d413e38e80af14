package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	buildahDefine "github.com/containers/buildah/define"
	"github.com/containers/podman/v5/pkg/api/handlers"
	"github.com/containers/podman/v5/pkg/bindings"
	"github.com/containers/podman/v5/pkg/bindings/containers"
	"github.com/containers/podman/v5/pkg/bindings/images"
	"github.com/containers/podman/v5/pkg/bindings/volumes"
	"github.com/containers/podman/v5/pkg/domain/entities/types"
	"github.com/containers/podman/v5/pkg/specgen"
	dockerContainer "github.com/docker/docker/api/types/container"
	spec "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/samber/lo"

	"github.com/jail-ai/jailctl/pkg/jailerrors"
)

// Podman implements ContainerRuntime against a Podman REST API socket,
// the same bindings the teacher uses for monitoring, generalized here to
// also build images and drive the container/volume lifecycle (§6.1).
type Podman struct {
	conn context.Context
}

// NewPodman dials the given Podman socket, e.g. "unix:///run/user/1000/podman/podman.sock".
func NewPodman(ctx context.Context, socketPath string) (*Podman, error) {
	conn, err := bindings.NewConnection(ctx, socketPath)
	if err != nil {
		return nil, jailerrors.New(jailerrors.KindRuntimeState, socketPath, err)
	}
	return &Podman{conn: conn}, nil
}

func (p *Podman) Close() error { return nil }

func (p *Podman) Build(ctx context.Context, opts BuildOptions) (ImageMetadata, error) {
	tmp, err := writeTempContainerfile(opts.RecipeBytes)
	if err != nil {
		return ImageMetadata{}, jailerrors.New(jailerrors.KindBuild, string(opts.Tag), err)
	}
	defer removeTemp(tmp)

	labels := lo.Assign(map[string]string{}, opts.Labels)
	buildOpts := types.BuildOptions{
		BuildOptions: buildahDefine.BuildOptions{
			ContextDirectory: tmp.dir,
			Output:           string(opts.Tag),
			Args:             opts.BuildArgs,
			Labels:           toLabelSlice(labels),
		},
	}
	report, err := images.Build(p.conn, []string{tmp.containerfile}, buildOpts)
	if err != nil {
		return ImageMetadata{}, jailerrors.New(jailerrors.KindBuild, string(opts.Tag), err)
	}
	return p.InspectImage(ctx, ImageRef(report.ID))
}

func (p *Podman) ImageExists(ctx context.Context, ref ImageRef) (bool, error) {
	ok, err := images.Exists(p.conn, string(ref), nil)
	if err != nil {
		return false, jailerrors.New(jailerrors.KindBuild, string(ref), err)
	}
	return ok, nil
}

func (p *Podman) InspectImage(ctx context.Context, ref ImageRef) (ImageMetadata, error) {
	data, err := images.GetImage(p.conn, string(ref), nil)
	if err != nil {
		return ImageMetadata{}, jailerrors.New(jailerrors.KindBuild, string(ref), err)
	}
	var parent string
	labels := map[string]string{}
	if data.ImageData != nil {
		labels = data.Labels
		parent = labels[ParentDigestLabel]
	}
	return ImageMetadata{
		Ref:          ref,
		Digest:       data.ID,
		ParentDigest: parent,
		Labels:       labels,
	}, nil
}

func (p *Podman) RemoveImage(ctx context.Context, ref ImageRef, force bool) error {
	_, errs := images.Remove(p.conn, []string{string(ref)}, &images.RemoveOptions{Force: &force})
	if len(errs) > 0 {
		return jailerrors.New(jailerrors.KindBuild, string(ref), errs[0])
	}
	return nil
}

func (p *Podman) CreateContainer(ctx context.Context, opts CreateOptions) (string, error) {
	spec := specgen.NewSpecGenerator(string(opts.Image), false)
	spec.Name = opts.Name
	spec.Env = toEnvMap(opts.Env)
	spec.Labels = opts.Labels
	for _, m := range opts.Mounts {
		spec.Mounts = append(spec.Mounts, toOCIMount(m))
	}
	if opts.Network != "" {
		spec.NetNS.NSMode = specgen.Bridge
	}
	resp, err := containers.CreateWithSpec(p.conn, spec, nil)
	if err != nil {
		return "", jailerrors.New(jailerrors.KindRuntimeState, opts.Name, err)
	}
	return resp.ID, nil
}

func (p *Podman) StartContainer(ctx context.Context, id string) error {
	if err := containers.Start(p.conn, id, nil); err != nil {
		return jailerrors.New(jailerrors.KindRuntimeState, id, err)
	}
	return nil
}

func (p *Podman) StopContainer(ctx context.Context, id string, timeoutSeconds *int) error {
	opts := &containers.StopOptions{}
	if timeoutSeconds != nil {
		t := uint(*timeoutSeconds)
		opts.Timeout = &t
	}
	if err := containers.Stop(p.conn, id, opts); err != nil {
		return jailerrors.New(jailerrors.KindRuntimeState, id, err)
	}
	return nil
}

func (p *Podman) RemoveContainer(ctx context.Context, id string, force, removeVolumes bool) error {
	opts := &containers.RemoveOptions{Force: &force, Volumes: &removeVolumes}
	if _, err := containers.Remove(p.conn, id, opts); err != nil {
		return jailerrors.New(jailerrors.KindRuntimeState, id, err)
	}
	return nil
}

func (p *Podman) InspectContainer(ctx context.Context, id string) (ContainerDetails, error) {
	data, err := containers.Inspect(p.conn, id, nil)
	if err != nil {
		return ContainerDetails{}, jailerrors.New(jailerrors.KindRuntimeState, id, err)
	}
	details := ContainerDetails{
		ID:    data.ID,
		Name:  data.Name,
		Image: ImageRef(data.Image),
		Env:   data.Config.Env,
	}
	if data.State != nil {
		details.State = ContainerState{
			Status:  data.State.Status,
			Running: data.State.Running,
			Pid:     data.State.Pid,
		}
	}
	if data.Config != nil {
		details.Labels = data.Config.Labels
	}
	return details, nil
}

func (p *Podman) ListContainers(ctx context.Context) ([]ContainerDetails, error) {
	all := true
	list, err := containers.List(p.conn, &containers.ListOptions{All: &all})
	if err != nil {
		return nil, jailerrors.New(jailerrors.KindRuntimeState, "", err)
	}
	out := make([]ContainerDetails, 0, len(list))
	for _, c := range list {
		details, err := p.InspectContainer(ctx, c.ID)
		if err != nil {
			continue
		}
		out = append(out, details)
	}
	return out, nil
}

func (p *Podman) Exec(ctx context.Context, id string, argv []string, env []string, out Writer) (int, error) {
	attachOut := true
	sessionID, err := containers.ExecCreate(p.conn, id, &handlers.ExecCreateConfig{
		ExecOptions: typesExecOptions(argv, toEnvMap(env)),
	})
	if err != nil {
		return -1, jailerrors.New(jailerrors.KindRuntimeState, id, err)
	}
	var w io.Writer = out
	if err := containers.ExecStartAndAttach(p.conn, sessionID, &containers.ExecStartAndAttachOptions{
		OutputStream: &w,
		ErrorStream:  &w,
		AttachOutput: &attachOut,
		AttachError:  &attachOut,
		InputStream:  bufio.NewReader(eofReader{}),
	}); err != nil {
		return -1, jailerrors.New(jailerrors.KindRuntimeState, id, err)
	}
	inspect, err := containers.ExecInspect(p.conn, sessionID, nil)
	if err != nil {
		return -1, jailerrors.New(jailerrors.KindRuntimeState, id, err)
	}
	return inspect.ExitCode, nil
}

func (p *Podman) CreateVolume(ctx context.Context, name string, labels map[string]string) error {
	_, err := volumes.Create(p.conn, volumeCreateConfig(name, labels), nil)
	if err != nil {
		return jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	return nil
}

func (p *Podman) RemoveVolume(ctx context.Context, name string, force bool) error {
	if err := volumes.Remove(p.conn, name, &volumes.RemoveOptions{Force: &force}); err != nil {
		return jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	return nil
}

func (p *Podman) VolumeExists(ctx context.Context, name string) (bool, error) {
	ok, err := volumes.Exists(p.conn, name, nil)
	if err != nil {
		return false, jailerrors.New(jailerrors.KindRuntimeState, name, err)
	}
	return ok, nil
}

// eofReader satisfies io.Reader with an immediate EOF; exec sessions in
// jailctl never attach stdin, including the shell that jail.Manager.Join
// runs through Exec.
type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

func toLabelSlice(labels map[string]string) []string {
	out := make([]string, 0, len(labels))
	for k, v := range labels {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func toEnvMap(env []string) map[string]string {
	out := make(map[string]string, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}

func toOCIMount(m MountSpec) spec.Mount {
	opts := []string{"rbind"}
	if m.ReadOnly {
		opts = append(opts, "ro")
	} else {
		opts = append(opts, "rw")
	}
	return spec.Mount{
		Source:      m.Source,
		Destination: m.Target,
		Type:        "bind",
		Options:     opts,
	}
}

func typesExecOptions(argv []string, env map[string]string) dockerContainer.ExecOptions {
	envSlice := make([]string, 0, len(env))
	for k, v := range env {
		envSlice = append(envSlice, fmt.Sprintf("%s=%s", k, v))
	}
	return dockerContainer.ExecOptions{
		Cmd:          argv,
		Env:          envSlice,
		AttachStdout: true,
		AttachStderr: true,
	}
}

func volumeCreateConfig(name string, labels map[string]string) types.VolumeCreateOptions {
	return types.VolumeCreateOptions{
		Name:   name,
		Labels: labels,
	}
}

type tempBuildContext struct {
	dir           string
	containerfile string
}

func writeTempContainerfile(recipe []byte) (tempBuildContext, error) {
	dir, err := os.MkdirTemp("", "jailctl-build-")
	if err != nil {
		return tempBuildContext{}, err
	}
	path := filepath.Join(dir, "Containerfile")
	if err := os.WriteFile(path, recipe, 0o644); err != nil {
		os.RemoveAll(dir)
		return tempBuildContext{}, err
	}
	return tempBuildContext{dir: dir, containerfile: path}, nil
}

func removeTemp(t tempBuildContext) {
	if t.dir != "" {
		os.RemoveAll(t.dir)
	}
}
