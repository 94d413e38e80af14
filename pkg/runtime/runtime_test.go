package runtime

import (
	"context"
	"testing"
)

var _ ContainerRuntime = (*Mock)(nil)
var _ ContainerRuntime = (*Podman)(nil)

func TestMockRecordsCalls(t *testing.T) {
	m := &Mock{
		ImageExistsFunc: func(ctx context.Context, ref ImageRef) (bool, error) {
			return ref == "present", nil
		},
	}
	ok, err := m.ImageExists(context.Background(), "present")
	if err != nil || !ok {
		t.Fatalf("expected present image to exist, got ok=%v err=%v", ok, err)
	}
	if len(m.Calls) != 1 || m.Calls[0].Method != "ImageExists" {
		t.Fatalf("expected recorded ImageExists call, got %v", m.Calls)
	}
}

func TestMockDefaultsToNotImplemented(t *testing.T) {
	m := &Mock{}
	_, err := m.CreateContainer(context.Background(), CreateOptions{})
	if err != ErrMockNotImplemented {
		t.Fatalf("expected ErrMockNotImplemented, got %v", err)
	}
}
