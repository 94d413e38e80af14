package runtime

import (
	"context"
	"errors"
)

// Mock implements ContainerRuntime for use in package tests across
// layers, jail, and app. Each method can be overridden by setting the
// corresponding function field. When the field is unset, Build,
// InspectImage, CreateContainer, InspectContainer and Exec return
// ErrMockNotImplemented; every other method returns zero values and a
// nil error.
type Mock struct {
	BuildFunc            func(ctx context.Context, opts BuildOptions) (ImageMetadata, error)
	ImageExistsFunc       func(ctx context.Context, ref ImageRef) (bool, error)
	InspectImageFunc      func(ctx context.Context, ref ImageRef) (ImageMetadata, error)
	RemoveImageFunc       func(ctx context.Context, ref ImageRef, force bool) error
	CreateContainerFunc   func(ctx context.Context, opts CreateOptions) (string, error)
	StartContainerFunc    func(ctx context.Context, id string) error
	StopContainerFunc     func(ctx context.Context, id string, timeoutSeconds *int) error
	RemoveContainerFunc   func(ctx context.Context, id string, force, volumes bool) error
	InspectContainerFunc  func(ctx context.Context, id string) (ContainerDetails, error)
	ListContainersFunc    func(ctx context.Context) ([]ContainerDetails, error)
	ExecFunc              func(ctx context.Context, id string, argv []string, env []string, out Writer) (int, error)
	CreateVolumeFunc      func(ctx context.Context, name string, labels map[string]string) error
	RemoveVolumeFunc      func(ctx context.Context, name string, force bool) error
	VolumeExistsFunc      func(ctx context.Context, name string) (bool, error)
	CloseFunc             func() error

	Calls []MockCall
}

// MockCall records a method invocation for verification in tests.
type MockCall struct {
	Method string
	Args   []any
}

// ErrMockNotImplemented is returned when a mock function is not set.
var ErrMockNotImplemented = errors.New("runtime: mock function not implemented")

func (m *Mock) record(method string, args ...any) {
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

func (m *Mock) Build(ctx context.Context, opts BuildOptions) (ImageMetadata, error) {
	m.record("Build", opts)
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, opts)
	}
	return ImageMetadata{}, ErrMockNotImplemented
}

func (m *Mock) ImageExists(ctx context.Context, ref ImageRef) (bool, error) {
	m.record("ImageExists", ref)
	if m.ImageExistsFunc != nil {
		return m.ImageExistsFunc(ctx, ref)
	}
	return false, nil
}

func (m *Mock) InspectImage(ctx context.Context, ref ImageRef) (ImageMetadata, error) {
	m.record("InspectImage", ref)
	if m.InspectImageFunc != nil {
		return m.InspectImageFunc(ctx, ref)
	}
	return ImageMetadata{}, ErrMockNotImplemented
}

func (m *Mock) RemoveImage(ctx context.Context, ref ImageRef, force bool) error {
	m.record("RemoveImage", ref, force)
	if m.RemoveImageFunc != nil {
		return m.RemoveImageFunc(ctx, ref, force)
	}
	return nil
}

func (m *Mock) CreateContainer(ctx context.Context, opts CreateOptions) (string, error) {
	m.record("CreateContainer", opts)
	if m.CreateContainerFunc != nil {
		return m.CreateContainerFunc(ctx, opts)
	}
	return "", ErrMockNotImplemented
}

func (m *Mock) StartContainer(ctx context.Context, id string) error {
	m.record("StartContainer", id)
	if m.StartContainerFunc != nil {
		return m.StartContainerFunc(ctx, id)
	}
	return nil
}

func (m *Mock) StopContainer(ctx context.Context, id string, timeoutSeconds *int) error {
	m.record("StopContainer", id, timeoutSeconds)
	if m.StopContainerFunc != nil {
		return m.StopContainerFunc(ctx, id, timeoutSeconds)
	}
	return nil
}

func (m *Mock) RemoveContainer(ctx context.Context, id string, force, volumes bool) error {
	m.record("RemoveContainer", id, force, volumes)
	if m.RemoveContainerFunc != nil {
		return m.RemoveContainerFunc(ctx, id, force, volumes)
	}
	return nil
}

func (m *Mock) InspectContainer(ctx context.Context, id string) (ContainerDetails, error) {
	m.record("InspectContainer", id)
	if m.InspectContainerFunc != nil {
		return m.InspectContainerFunc(ctx, id)
	}
	return ContainerDetails{}, ErrMockNotImplemented
}

func (m *Mock) ListContainers(ctx context.Context) ([]ContainerDetails, error) {
	m.record("ListContainers")
	if m.ListContainersFunc != nil {
		return m.ListContainersFunc(ctx)
	}
	return nil, nil
}

func (m *Mock) Exec(ctx context.Context, id string, argv []string, env []string, out Writer) (int, error) {
	m.record("Exec", id, argv, env)
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, id, argv, env, out)
	}
	return 0, ErrMockNotImplemented
}

func (m *Mock) CreateVolume(ctx context.Context, name string, labels map[string]string) error {
	m.record("CreateVolume", name, labels)
	if m.CreateVolumeFunc != nil {
		return m.CreateVolumeFunc(ctx, name, labels)
	}
	return nil
}

func (m *Mock) RemoveVolume(ctx context.Context, name string, force bool) error {
	m.record("RemoveVolume", name, force)
	if m.RemoveVolumeFunc != nil {
		return m.RemoveVolumeFunc(ctx, name, force)
	}
	return nil
}

func (m *Mock) VolumeExists(ctx context.Context, name string) (bool, error) {
	m.record("VolumeExists", name)
	if m.VolumeExistsFunc != nil {
		return m.VolumeExistsFunc(ctx, name)
	}
	return false, nil
}

func (m *Mock) Close() error {
	m.record("Close")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
