package layers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	deadlock "github.com/sasha-s/go-deadlock"

	"github.com/jail-ai/jailctl/pkg/jailerrors"
	"github.com/jail-ai/jailctl/pkg/runtime"
	"github.com/jail-ai/jailctl/pkg/tasks"
)

// Builder walks a planned Stack and ensures every layer is built and
// fresh, reusing images whose recorded metadata still matches what the
// planner would produce today (§4.B "Build policy").
type Builder struct {
	rt runtime.ContainerRuntime

	// existence's own internal locking covers concurrent access; no extra
	// mutex wraps it.
	existence *lru.Cache[string, bool]

	workspaceMu deadlock.Mutex
	workspaceID map[string]string

	joiner *tasks.Joiner
}

// NewBuilder constructs a Builder backed by rt. existenceCacheSize bounds
// the approximate-LRU image-existence cache (§4.B "Caches"); maxParallel
// bounds how many freshness checks EnsureConcurrent runs at once (0 or
// less = unbounded).
func NewBuilder(rt runtime.ContainerRuntime, existenceCacheSize, maxParallel int) (*Builder, error) {
	if existenceCacheSize <= 0 {
		existenceCacheSize = 1
	}
	cache, err := lru.New[string, bool](existenceCacheSize)
	if err != nil {
		return nil, err
	}
	return &Builder{
		rt:          rt,
		existence:   cache,
		workspaceID: make(map[string]string),
		joiner:      tasks.NewJoiner(maxParallel),
	}, nil
}

// WorkspaceShortID returns the stable short identifier for an absolute
// workspace path (§3 "Workspace"), computing and caching it once.
func (b *Builder) WorkspaceShortID(workspace string) string {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		abs = workspace
	}
	b.workspaceMu.Lock()
	defer b.workspaceMu.Unlock()
	if id, ok := b.workspaceID[abs]; ok {
		return id
	}
	sum := sha256.Sum256([]byte(abs))
	id := hex.EncodeToString(sum[:])[:8]
	b.workspaceID[abs] = id
	return id
}

// Ensure builds whatever layers in stack are missing or stale, walking
// base-first so no layer's parent build starts before the parent exists
// (§4.B "Concurrency controls", §5 "Ordering guarantees"). forceRebuild
// causes every layer to be rebuilt regardless of freshness, as requested
// by the Drift Detector's reconfirmation flow (§4.D).
func (b *Builder) Ensure(ctx context.Context, stack Stack, forceRebuild bool) error {
	parent := runtime.ImageRef("")
	for i, layer := range stack.Layers {
		if i == 0 {
			r, _ := recipeDefaultParent(layer.RecipeName)
			parent = runtime.ImageRef(r)
		}
		fresh, err := b.isFresh(ctx, layer, parent)
		if err != nil {
			return err
		}
		if fresh && !forceRebuild {
			parent = runtime.ImageRef(layer.ImageRef())
			continue
		}
		if err := b.build(ctx, layer, parent); err != nil {
			return jailerrors.New(jailerrors.KindBuild, layer.RecipeName, err)
		}
		parent = runtime.ImageRef(layer.ImageRef())
	}
	return nil
}

// EnsureConcurrent behaves like Ensure but fans the freshness check for
// every layer in the stack out across the bounded task-joiner before
// walking the stack to build (§4.B "Concurrency controls", §5 "bounded
// task-joiner"). Builds themselves stay strictly sequential and
// base-first, since each layer's Containerfile builds FROM its
// predecessor and the canonical default favors a deterministic parent
// digest over build-time parallelism; only the read-only freshness
// inspection — independent per layer — is parallelized. It is opt-in;
// Ensure's fully sequential walk remains the default.
func (b *Builder) EnsureConcurrent(ctx context.Context, stack Stack, forceRebuild bool) error {
	fresh := make([]bool, len(stack.Layers))
	jobs := make([]tasks.Job, len(stack.Layers))
	for i, layer := range stack.Layers {
		i, layer := i, layer
		parent := parentRefFor(stack, i)
		jobs[i] = func(jctx context.Context) error {
			ok, err := b.isFresh(jctx, layer, parent)
			if err != nil {
				return err
			}
			fresh[i] = ok
			return nil
		}
	}
	if err := b.joiner.Run(ctx, jobs); err != nil {
		return jailerrors.New(jailerrors.KindBuild, "freshness-check", err)
	}

	parent := parentRefFor(stack, 0)
	for i, layer := range stack.Layers {
		if fresh[i] && !forceRebuild {
			parent = runtime.ImageRef(layer.ImageRef())
			continue
		}
		if err := b.build(ctx, layer, parent); err != nil {
			return jailerrors.New(jailerrors.KindBuild, layer.RecipeName, err)
		}
		parent = runtime.ImageRef(layer.ImageRef())
	}
	return nil
}

// parentRefFor returns the image reference layer i's Containerfile builds
// FROM: the previous layer's planned image, or the recipe's own default
// parent for the stack's first layer. This is fully determined by the
// plan itself, independent of whether any layer ends up fresh or rebuilt,
// which is what lets EnsureConcurrent resolve every layer's parent
// reference before any freshness check or build has actually run.
func parentRefFor(stack Stack, i int) runtime.ImageRef {
	if i == 0 {
		r, _ := recipeDefaultParent(stack.Layers[0].RecipeName)
		return runtime.ImageRef(r)
	}
	return runtime.ImageRef(stack.Layers[i-1].ImageRef())
}

// isFresh reports whether layer's already-built image can be reused as-is
// (§3 "layer freshness", §4.B "Build policy"): its recipe hash must match
// what the planner would produce today, AND its recorded parent digest
// must match the parent image's current digest, so a layer whose parent
// drifted underneath it (recipe hash unchanged, parent rebuilt) is still
// correctly treated as stale.
func (b *Builder) isFresh(ctx context.Context, layer LayerSpec, parent runtime.ImageRef) (bool, error) {
	ref := runtime.ImageRef(layer.ImageRef())
	exists, err := b.imageExists(ctx, ref)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	meta, err := b.rt.InspectImage(ctx, ref)
	if err != nil {
		return false, err
	}
	if meta.Labels[runtime.RecipeHashLabel] != layer.RecipeHash {
		return false, nil
	}
	if parent == "" {
		return true, nil
	}
	parentMeta, err := b.rt.InspectImage(ctx, parent)
	if err != nil {
		// Parent digest can't be confirmed; treat as stale rather than
		// silently reusing a layer we can no longer verify against.
		return false, nil
	}
	return meta.ParentDigest == parentMeta.Digest, nil
}

func (b *Builder) build(ctx context.Context, layer LayerSpec, parent runtime.ImageRef) error {
	labels := map[string]string{
		runtime.RecipeHashLabel: layer.RecipeHash,
	}
	buildArgs := make(map[string]string, len(layer.BuildArgs)+1)
	for k, v := range layer.BuildArgs {
		buildArgs[k] = v
	}
	if parent != "" {
		buildArgs["PARENT_IMAGE"] = string(parent)
		if parentMeta, err := b.rt.InspectImage(ctx, parent); err == nil {
			labels[runtime.ParentDigestLabel] = parentMeta.Digest
		}
	}
	meta, err := b.rt.Build(ctx, runtime.BuildOptions{
		RecipeBytes: layer.RecipeBytes,
		Parent:      parent,
		Tag:         runtime.ImageRef(layer.ImageRef()),
		BuildArgs:   buildArgs,
		Labels:      labels,
	})
	if err != nil {
		return err
	}
	b.existence.Add(string(layer.ImageRef()), true)
	_ = meta
	return nil
}

func (b *Builder) imageExists(ctx context.Context, ref runtime.ImageRef) (bool, error) {
	if cached, ok := b.existence.Get(string(ref)); ok {
		return cached, nil
	}
	exists, err := b.rt.ImageExists(ctx, ref)
	if err != nil {
		return false, err
	}
	b.existence.Add(string(ref), exists)
	return exists, nil
}

// InvalidateExistence drops a cached existence entry so the next Ensure
// re-checks the runtime. No code in this module calls it.
func (b *Builder) InvalidateExistence(ref runtime.ImageRef) {
	b.existence.Remove(string(ref))
}

func recipeDefaultParent(recipeName string) (string, bool) {
	if recipeName == "base" {
		return "docker.io/library/debian:stable-slim", true
	}
	return "", false
}
