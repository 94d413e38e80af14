// Package app bootstraps the orchestrator's collaborators — config,
// logger, runtime connection, and the four pipeline components — into
// one App, exactly as the teacher's App wires OSCommand/DockerCommand/Gui
// together before Run.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jail-ai/jailctl/pkg/classifier"
	"github.com/jail-ai/jailctl/pkg/config"
	"github.com/jail-ai/jailctl/pkg/drift"
	"github.com/jail-ai/jailctl/pkg/ecosystem"
	"github.com/jail-ai/jailctl/pkg/jail"
	"github.com/jail-ai/jailctl/pkg/layers"
	"github.com/jail-ai/jailctl/pkg/log"
	"github.com/jail-ai/jailctl/pkg/runtime"
	"github.com/jail-ai/jailctl/pkg/utils"
)

// App bundles every collaborator a CLI operation needs.
type App struct {
	closers []io.Closer

	Config  *config.AppConfig
	Log     *logrus.Entry
	Runtime runtime.ContainerRuntime
	Builder *layers.Builder
	Jails   *jail.Manager
}

// NewApp bootstraps a new application, connecting to the configured
// podman socket and constructing the Layer Builder and Jail Manager on
// top of it.
func NewApp(ctx context.Context, cfg *config.AppConfig, socketPath string) (*App, error) {
	app := &App{
		closers: []io.Closer{},
		Config:  cfg,
	}
	app.Log = log.NewLogger(cfg)

	rt, err := runtime.NewPodman(ctx, socketPath)
	if err != nil {
		return app, fmt.Errorf("connect to container runtime: %w", err)
	}
	app.Runtime = rt
	app.closers = append(app.closers, rt)

	builder, err := layers.NewBuilder(rt, cfg.UserConfig.Cache.ImageExistenceSize, cfg.UserConfig.Build.MaxParallelLayers)
	if err != nil {
		return app, fmt.Errorf("construct layer builder: %w", err)
	}
	app.Builder = builder

	app.Jails = jail.NewManager(rt)

	return app, nil
}

// Close closes every resource opened by NewApp, e.g. the runtime socket.
func (app *App) Close() error {
	return utils.CloseMany(app.closers)
}

// Classify runs the Project Classifier against workspace using the
// user's nix-suppression preference.
func (app *App) Classify(workspace string) ([]ecosystem.Tag, error) {
	return classifier.Classify(workspace, classifier.Options{SuppressNix: app.Config.UserConfig.NixSuppressed})
}

// Plan classifies workspace and resolves the resulting layer stack,
// without building anything.
func (app *App) Plan(workspace string, opts layers.Options) (layers.Stack, error) {
	tags, err := app.Classify(workspace)
	if err != nil {
		return layers.Stack{}, err
	}
	if opts.Registry == "" {
		opts.Registry = app.Config.UserConfig.Registry
	}
	if opts.WorkspaceShortID == "" {
		opts.WorkspaceShortID = app.Builder.WorkspaceShortID(workspace)
	}
	return layers.Plan(tags, opts), nil
}

// Ensure resolves and builds a workspace's layer stack, returning the
// terminal layer's image reference.
func (app *App) Ensure(ctx context.Context, workspace string, opts layers.Options, forceRebuild bool) (runtime.ImageRef, error) {
	stack, err := app.Plan(workspace, opts)
	if err != nil {
		return "", err
	}
	build := app.Builder.Ensure
	if app.Config.UserConfig.Build.Concurrent {
		build = app.Builder.EnsureConcurrent
	}
	if err := build(ctx, stack, forceRebuild); err != nil {
		return "", err
	}
	terminal := stack.Layers[len(stack.Layers)-1]
	return runtime.ImageRef(terminal.ImageRef()), nil
}

// ResourceLimits returns the configured default per-jail resource
// limits, for callers composing a new Jail.
func (app *App) ResourceLimits() runtime.ResourceLimits {
	return runtime.ResourceLimits{
		MemoryMiB:  app.Config.UserConfig.Resources.MemoryMiB,
		CPUPercent: app.Config.UserConfig.Resources.CPUPercent,
	}
}

// DetectDrift compares a running jail's image against the stack its
// workspace would resolve to today.
func (app *App) DetectDrift(ctx context.Context, workspace string, opts layers.Options, currentImage runtime.ImageRef) (drift.Report, error) {
	stack, err := app.Plan(workspace, opts)
	if err != nil {
		return drift.Report{}, err
	}
	return drift.Detect(stack, currentImage, func(l layers.LayerSpec) (string, bool) {
		meta, err := app.Runtime.InspectImage(ctx, runtime.ImageRef(l.ImageRef()))
		if err != nil {
			return "", false
		}
		hash, ok := meta.Labels[runtime.RecipeHashLabel]
		return hash, ok
	}), nil
}

// errorMapping mirrors the teacher's KnownError table: known, unhelpful
// runtime error substrings get a friendlier message instead of a raw
// stack trace.
type errorMapping struct {
	originalError string
	newError      string
}

// KnownError takes an error and tells us whether it's an error that we
// know about where we can print a nicely formatted version of it rather
// than panicking with a stack trace.
func (app *App) KnownError(err error) (string, bool) {
	errorMessage := err.Error()

	mappings := []errorMapping{
		{
			originalError: "Got permission denied while trying to connect to the Docker daemon socket",
			newError:      "cannot reach the container runtime socket; is podman running?",
		},
		{
			originalError: "no cgroup entry found for process",
			newError:      "the jail's container has no discoverable cgroup; the egress filter cannot attach",
		},
	}

	for _, mapping := range mappings {
		if strings.Contains(errorMessage, mapping.originalError) {
			return mapping.newError, true
		}
	}

	return "", false
}
