package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/go-errors/errors"
	"github.com/integrii/flaggy"
	"github.com/samber/lo"

	"github.com/jail-ai/jailctl/pkg/app"
	"github.com/jail-ai/jailctl/pkg/config"
	"github.com/jail-ai/jailctl/pkg/egress"
	"github.com/jail-ai/jailctl/pkg/jail"
	"github.com/jail-ai/jailctl/pkg/layers"
	"github.com/jail-ai/jailctl/pkg/utils"
)

const defaultVersion = "unversioned"

var (
	commit      string
	version     = defaultVersion
	date        string
	buildSource = "unknown"

	configFlag    = false
	debuggingFlag = false
	socketPath    = ""

	workspaceArg string
	nameArg      string
	agentFlag    string
	isolatedFlag bool
	forceFlag    bool
	blockHost    bool
	removeVolume bool
	shellFlag    string
)

func main() {
	updateBuildInfo()

	info := fmt.Sprintf(
		"%s\nDate: %s\nBuildSource: %s\nCommit: %s\nOS: %s\nArch: %s",
		version, date, buildSource, commit, runtime.GOOS, runtime.GOARCH,
	)

	flaggy.SetName("jailctl")
	flaggy.SetDescription("Per-workspace, per-agent sandboxes for CLI coding assistants")
	flaggy.DefaultParser.AdditionalHelpPrepend = "https://github.com/jail-ai/jailctl"
	flaggy.Bool(&configFlag, "c", "config", "Print the current default config")
	flaggy.Bool(&debuggingFlag, "d", "debug", "Enable debug logging")
	flaggy.String(&socketPath, "s", "socket", "Path to the podman API socket")
	flaggy.SetVersion(info)

	classifyCmd := flaggy.NewSubcommand("classify")
	classifyCmd.Description = "Classify a workspace and print its ecosystem tags"
	classifyCmd.AddPositionalValue(&workspaceArg, "workspace", 1, true, "Workspace directory")

	planCmd := flaggy.NewSubcommand("plan")
	planCmd.Description = "Resolve a workspace's layer stack without building it"
	planCmd.AddPositionalValue(&workspaceArg, "workspace", 1, true, "Workspace directory")
	planCmd.String(&agentFlag, "a", "agent", "Agent to terminate the stack with")
	planCmd.Bool(&isolatedFlag, "i", "isolated", "Tag the terminal layer by workspace identity instead of stack content")

	ensureCmd := flaggy.NewSubcommand("ensure")
	ensureCmd.Description = "Resolve and build a workspace's layer stack"
	ensureCmd.AddPositionalValue(&workspaceArg, "workspace", 1, true, "Workspace directory")
	ensureCmd.String(&agentFlag, "a", "agent", "Agent to terminate the stack with")
	ensureCmd.Bool(&isolatedFlag, "i", "isolated", "Tag the terminal layer by workspace identity instead of stack content")
	ensureCmd.Bool(&forceFlag, "f", "force-rebuild", "Rebuild every layer regardless of freshness")

	createCmd := flaggy.NewSubcommand("create")
	createCmd.Description = "Create a jail for a workspace, building its image first"
	createCmd.AddPositionalValue(&workspaceArg, "workspace", 1, true, "Workspace directory")
	createCmd.String(&agentFlag, "a", "agent", "Agent to run inside the jail")
	createCmd.Bool(&isolatedFlag, "i", "isolated", "Tag the terminal layer by workspace identity instead of stack content")
	createCmd.Bool(&blockHost, "b", "block-host", "Attach the egress filter blocking host-reachable addresses")

	startCmd := flaggy.NewSubcommand("start")
	startCmd.Description = "Start a previously created jail"
	startCmd.AddPositionalValue(&nameArg, "name", 1, true, "Jail name")

	joinCmd := flaggy.NewSubcommand("join")
	joinCmd.Description = "Run a shell in a running jail (stdin is not attached)"
	joinCmd.AddPositionalValue(&nameArg, "name", 1, true, "Jail name")
	joinCmd.String(&shellFlag, "", "shell", "Shell to run (default /bin/bash)")

	stopCmd := flaggy.NewSubcommand("stop")
	stopCmd.Description = "Stop a jail's container"
	stopCmd.AddPositionalValue(&nameArg, "name", 1, true, "Jail name")

	removeCmd := flaggy.NewSubcommand("remove")
	removeCmd.Description = "Remove a jail's container"
	removeCmd.AddPositionalValue(&nameArg, "name", 1, true, "Jail name")
	removeCmd.Bool(&forceFlag, "f", "force", "Remove even if running")
	removeCmd.Bool(&removeVolume, "", "remove-volume", "Also remove the jail's persistent home volume")

	listCmd := flaggy.NewSubcommand("list")
	listCmd.Description = "List every jail the runtime manages"

	flaggy.AttachSubcommand(classifyCmd, 1)
	flaggy.AttachSubcommand(planCmd, 1)
	flaggy.AttachSubcommand(ensureCmd, 1)
	flaggy.AttachSubcommand(createCmd, 1)
	flaggy.AttachSubcommand(startCmd, 1)
	flaggy.AttachSubcommand(joinCmd, 1)
	flaggy.AttachSubcommand(stopCmd, 1)
	flaggy.AttachSubcommand(removeCmd, 1)
	flaggy.AttachSubcommand(listCmd, 1)

	flaggy.Parse()

	if configFlag {
		printDefaultConfig()
		return
	}

	cfg, err := config.NewAppConfig("jailctl", version, commit, date, buildSource, debuggingFlag, mustGetwd())
	if err != nil {
		log.Fatal(err.Error())
	}

	ctx := context.Background()
	application, err := app.NewApp(ctx, cfg, socketPath)
	if err != nil {
		dieOn(application, err)
	}
	defer application.Close()

	switch {
	case classifyCmd.Used:
		err = runClassify(application)
	case planCmd.Used:
		err = runPlan(application)
	case ensureCmd.Used:
		err = runEnsure(ctx, application)
	case createCmd.Used:
		err = runCreate(ctx, application)
	case startCmd.Used:
		err = runStart(ctx, application)
	case joinCmd.Used:
		err = runJoin(ctx, application)
	case stopCmd.Used:
		err = application.Jails.Stop(ctx, nameArg, nil)
	case removeCmd.Used:
		err = application.Jails.Remove(ctx, nameArg, forceFlag, removeVolume)
	case listCmd.Used:
		err = runList(ctx, application)
	default:
		flaggy.ShowHelp("no subcommand given")
		os.Exit(1)
	}

	dieOn(application, err)
}

func runClassify(application *app.App) error {
	tags, err := application.Classify(workspaceArg)
	if err != nil {
		return err
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	fmt.Println(strings.Join(names, " "))
	return nil
}

func runPlan(application *app.App) error {
	stack, err := application.Plan(workspaceArg, layers.Options{Agent: agentFlag, Isolated: isolatedFlag})
	if err != nil {
		return err
	}
	fmt.Println(stack.StackTag)
	for _, l := range stack.Layers {
		fmt.Printf("  %s -> %s\n", l.Tag, l.ImageRef())
	}
	return nil
}

func runEnsure(ctx context.Context, application *app.App) error {
	ref, err := application.Ensure(ctx, workspaceArg, layers.Options{Agent: agentFlag, Isolated: isolatedFlag}, forceFlag)
	if err != nil {
		return err
	}
	fmt.Println(string(ref))
	return nil
}

func runCreate(ctx context.Context, application *app.App) error {
	opts := layers.Options{Agent: agentFlag, Isolated: isolatedFlag}
	image, err := application.Ensure(ctx, workspaceArg, opts, false)
	if err != nil {
		return err
	}

	shortID := application.Builder.WorkspaceShortID(workspaceArg)
	name := jail.DeriveName(workspaceArg, shortID, agentFlag)
	workspaceMount := application.Config.UserConfig.WorkspaceMount

	j := jail.Jail{
		Name:             name,
		Workspace:        workspaceArg,
		Agent:            agentFlag,
		Mounts:           jail.ComposeMounts(workspaceArg, workspaceMount, jail.VolumeName(name), "/home/agent", nil),
		Env:              jail.ComposeEnv(envMap(), nil, ""),
		Limits:           application.ResourceLimits(),
		BlockHost:        blockHost,
		PersistentVolume: jail.VolumeName(name),
		Image:            image,
	}

	id, err := application.Jails.Create(ctx, j)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runStart(ctx context.Context, application *app.App) error {
	if err := application.Jails.Start(ctx, nameArg); err != nil {
		return err
	}
	return maybeAttachEgress(ctx, application, nameArg)
}

func runJoin(ctx context.Context, application *app.App) error {
	code, err := application.Jails.Join(ctx, nameArg, shellFlag, nil, os.Stdout)
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

func runList(ctx context.Context, application *app.App) error {
	jails, err := application.Jails.List(ctx)
	if err != nil {
		return err
	}
	for _, j := range jails {
		fmt.Printf("%s\t%s\t%s\n", j.Name, j.Image, j.State.Status)
	}
	return nil
}

// maybeAttachEgress runs the egress filter's attach sequence when the
// jail was configured with host-blocking enabled, discovering the
// container's cgroup via the Jail Manager's runtime inspection.
func maybeAttachEgress(ctx context.Context, application *app.App, name string) error {
	details, err := application.Jails.Inspect(ctx, name)
	if err != nil {
		return err
	}
	if details.Labels["ai.jail.block-host"] != "true" {
		return nil
	}
	cgroupPath, err := jail.DiscoverCgroup(details.State.Pid)
	if err != nil {
		return err
	}
	orchestrator := egress.NewOrchestrator("")
	if timeout := application.Config.UserConfig.Egress.HelperTimeout; timeout > 0 {
		orchestrator.HelperTimeout = timeout
	}
	return orchestrator.Attach(ctx, cgroupPath)
}

func envMap() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err.Error())
	}
	return wd
}

func printDefaultConfig() {
	fmt.Printf("%+v\n", config.GetDefaultConfig())
}

func dieOn(application *app.App, err error) {
	if err == nil {
		return
	}
	if application != nil {
		if msg, known := application.KnownError(err); known {
			log.Println(msg)
			os.Exit(0)
		}
	}
	newErr := errors.Wrap(err, 0)
	stackTrace := newErr.ErrorStack()
	if application != nil && application.Log != nil {
		application.Log.Error(stackTrace)
	}
	log.Fatalf("an error occurred\n\n%s", stackTrace)
}

func updateBuildInfo() {
	if version == defaultVersion {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			revision, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.revision"
			})
			if ok {
				commit = revision.Value
				version = utils.SafeTruncate(revision.Value, 7)
			}
			t, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.time"
			})
			if ok {
				date = t.Value
			}
		}
	}
}
