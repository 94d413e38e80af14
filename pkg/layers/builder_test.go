package layers

import (
	"context"
	"testing"

	"github.com/jail-ai/jailctl/pkg/ecosystem"
	"github.com/jail-ai/jailctl/pkg/runtime"
)

func TestBuilderSkipsFreshLayers(t *testing.T) {
	stack := Plan([]ecosystem.Tag{ecosystem.Base}, Options{Registry: "localhost"})
	layer := stack.Layers[0]

	var built []string
	mock := &runtime.Mock{
		ImageExistsFunc: func(ctx context.Context, ref runtime.ImageRef) (bool, error) { return true, nil },
		InspectImageFunc: func(ctx context.Context, ref runtime.ImageRef) (runtime.ImageMetadata, error) {
			return runtime.ImageMetadata{Labels: map[string]string{runtime.RecipeHashLabel: layer.RecipeHash}}, nil
		},
		BuildFunc: func(ctx context.Context, opts runtime.BuildOptions) (runtime.ImageMetadata, error) {
			built = append(built, string(opts.Tag))
			return runtime.ImageMetadata{}, nil
		},
	}
	b, err := NewBuilder(mock, 16, 4)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.Ensure(context.Background(), stack, false); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(built) != 0 {
		t.Fatalf("expected no builds for fresh layer, got %v", built)
	}
}

func TestBuilderRebuildsStaleLayer(t *testing.T) {
	stack := Plan([]ecosystem.Tag{ecosystem.Base}, Options{Registry: "localhost"})

	var built []string
	mock := &runtime.Mock{
		ImageExistsFunc: func(ctx context.Context, ref runtime.ImageRef) (bool, error) { return true, nil },
		InspectImageFunc: func(ctx context.Context, ref runtime.ImageRef) (runtime.ImageMetadata, error) {
			return runtime.ImageMetadata{Labels: map[string]string{runtime.RecipeHashLabel: "stale"}}, nil
		},
		BuildFunc: func(ctx context.Context, opts runtime.BuildOptions) (runtime.ImageMetadata, error) {
			built = append(built, string(opts.Tag))
			return runtime.ImageMetadata{}, nil
		},
	}
	b, err := NewBuilder(mock, 16, 4)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.Ensure(context.Background(), stack, false); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("expected one rebuild, got %v", built)
	}
}

func TestBuilderForceRebuildsFreshLayer(t *testing.T) {
	stack := Plan([]ecosystem.Tag{ecosystem.Base}, Options{Registry: "localhost"})
	layer := stack.Layers[0]

	var built []string
	mock := &runtime.Mock{
		ImageExistsFunc: func(ctx context.Context, ref runtime.ImageRef) (bool, error) { return true, nil },
		InspectImageFunc: func(ctx context.Context, ref runtime.ImageRef) (runtime.ImageMetadata, error) {
			return runtime.ImageMetadata{Labels: map[string]string{runtime.RecipeHashLabel: layer.RecipeHash}}, nil
		},
		BuildFunc: func(ctx context.Context, opts runtime.BuildOptions) (runtime.ImageMetadata, error) {
			built = append(built, string(opts.Tag))
			return runtime.ImageMetadata{}, nil
		},
	}
	b, err := NewBuilder(mock, 16, 4)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.Ensure(context.Background(), stack, true); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(built) != 1 {
		t.Fatalf("expected forced rebuild, got %v", built)
	}
}

func TestWorkspaceShortIDIsStableAndCached(t *testing.T) {
	b, err := NewBuilder(&runtime.Mock{}, 16, 4)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	id1 := b.WorkspaceShortID("/tmp/some/workspace")
	id2 := b.WorkspaceShortID("/tmp/some/workspace")
	if id1 != id2 || len(id1) != 8 {
		t.Fatalf("expected stable 8-char id, got %q and %q", id1, id2)
	}
}

func TestEnsureConcurrentBuildsAllLayers(t *testing.T) {
	stack := Plan([]ecosystem.Tag{ecosystem.Base, ecosystem.Rust, ecosystem.Go}, Options{Registry: "localhost"})

	var built []string
	mock := &runtime.Mock{
		ImageExistsFunc: func(ctx context.Context, ref runtime.ImageRef) (bool, error) { return false, nil },
		BuildFunc: func(ctx context.Context, opts runtime.BuildOptions) (runtime.ImageMetadata, error) {
			built = append(built, string(opts.Tag))
			return runtime.ImageMetadata{}, nil
		},
	}
	b, err := NewBuilder(mock, 16, 4)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.EnsureConcurrent(context.Background(), stack, false); err != nil {
		t.Fatalf("EnsureConcurrent: %v", err)
	}
	if len(built) != len(stack.Layers) {
		t.Fatalf("expected %d builds, got %d (%v)", len(stack.Layers), len(built), built)
	}
}
