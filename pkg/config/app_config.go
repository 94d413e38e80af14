// Package config handles the orchestrator's user configuration. Fields
// are PascalCase in Go but camelCase in the on-disk config.yml, exactly
// as the teacher's config does. You can view the current defaults with
// `jailctl --config`; the file lives under the per-user config directory
// (§6.4) and any value you omit falls back to GetDefaultConfig, merged in
// with mergo.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/imdario/mergo"
	yaml "github.com/jesseduffield/yaml"
)

// UserConfig holds all of the user-configurable options.
type UserConfig struct {
	// Registry is the prefix under which shared layer images and stack
	// tags are created, e.g. "localhost" or a private registry host.
	// Layer images are named "<Registry>/jail-ai-<recipe>:latest" (§3).
	Registry string `yaml:"registry,omitempty"`

	// DefaultAgent is loaded from the config file; no command reads it,
	// so a caller that names no agent gets a stack without an agent layer.
	DefaultAgent string `yaml:"defaultAgent,omitempty"`

	// WorkspaceMount is the interior path the workspace is bound to
	// (§4.C); defaults to "/workspace".
	WorkspaceMount string `yaml:"workspaceMount,omitempty"`

	// NixSuppressed disables the nix-precedence elision rule of §4.A even
	// when flake.nix is present.
	NixSuppressed bool `yaml:"nixSuppressed,omitempty"`

	// Resources holds the default resource limits applied to new jails.
	Resources ResourceConfig `yaml:"resources,omitempty"`

	// Egress controls the default posture of the host-egress filter.
	Egress EgressConfig `yaml:"egress,omitempty"`

	// Cache controls the in-process planner caches of §4.B/§5.
	Cache CacheConfig `yaml:"cache,omitempty"`

	// Build controls the Layer Builder's concurrency and parent-image
	// resolution policy of §4.B/§5.
	Build BuildConfig `yaml:"build,omitempty"`
}

// ResourceConfig are the default per-jail resource limits (§3, §6.1).
type ResourceConfig struct {
	// MemoryMiB is the default memory limit in mebibytes. Zero means
	// unlimited.
	MemoryMiB int `yaml:"memoryMiB,omitempty"`

	// CPUPercent is the default CPU quota as an integer percentage of
	// one core. Zero means unlimited.
	CPUPercent int `yaml:"cpuPercent,omitempty"`
}

// EgressConfig are the defaults for the Egress Filter Orchestrator (§4.E).
type EgressConfig struct {
	// BlockHostByDefault is loaded from the config file; no command reads
	// it, so host-egress blocking is enabled only by the create command's
	// --block-host flag.
	BlockHostByDefault bool `yaml:"blockHostByDefault,omitempty"`

	// HelperTimeout bounds how long the orchestrator waits for the
	// privileged helper to exit before moving to FailedOpen (§5).
	HelperTimeout time.Duration `yaml:"helperTimeout,omitempty"`

	// ExtraBlockedIPv4/ExtraBlockedIPv6 are loaded from the config file;
	// the Orchestrator does not read them, so the blocked set is only what
	// egress.HostAddresses enumerates.
	ExtraBlockedIPv4 []string `yaml:"extraBlockedIPv4,omitempty"`
	ExtraBlockedIPv6 []string `yaml:"extraBlockedIPv6,omitempty"`
}

// CacheConfig sizes the two in-process caches of §4.B.
type CacheConfig struct {
	// ImageExistenceSize bounds the recency-ordered image-reference
	// existence cache.
	ImageExistenceSize int `yaml:"imageExistenceSize,omitempty"`
}

// BuildConfig controls layer-build concurrency (§4.B/§5).
type BuildConfig struct {
	// Concurrent opts into Builder.EnsureConcurrent, which runs every
	// layer's freshness check in parallel; the builds themselves still run
	// sequentially, base first. The default is the fully sequential Ensure.
	Concurrent bool `yaml:"concurrent,omitempty"`

	// MaxParallelLayers bounds the freshness-check fan-out when Concurrent
	// is enabled.
	MaxParallelLayers int `yaml:"maxParallelLayers,omitempty"`
}

// GetDefaultConfig returns the orchestrator's default configuration.
// NOTE (to contributors, not users): do not default a boolean to true,
// because false is the boolean zero value and will be ignored when
// merging the user's config (mergo.Merge treats it as "unset").
func GetDefaultConfig() UserConfig {
	return UserConfig{
		Registry:       "localhost",
		DefaultAgent:   "",
		WorkspaceMount: "/workspace",
		Resources: ResourceConfig{
			MemoryMiB:  4096,
			CPUPercent: 200,
		},
		Egress: EgressConfig{
			HelperTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			ImageExistenceSize: 512,
		},
		Build: BuildConfig{
			Concurrent:        false,
			MaxParallelLayers: 4,
		},
	}
}

// AppConfig contains the base configuration fields required for the
// orchestrator, combining build-time version metadata with the loaded
// UserConfig.
type AppConfig struct {
	Debug       bool
	Version     string
	Commit      string
	BuildDate   string
	Name        string
	BuildSource string
	UserConfig  *UserConfig
	ConfigDir   string
	ProjectDir  string
}

// NewAppConfig makes a new app config, loading (and creating if absent)
// the on-disk user config, exactly as the teacher's NewAppConfig does.
func NewAppConfig(name, version, commit, date, buildSource string, debuggingFlag bool, projectDir string) (*AppConfig, error) {
	configDir, err := findOrCreateConfigDir(name)
	if err != nil {
		return nil, err
	}

	userConfig, err := loadUserConfigWithDefaults(configDir)
	if err != nil {
		return nil, err
	}
	if err := userConfig.Validate(); err != nil {
		return nil, err
	}

	return &AppConfig{
		Name:        name,
		Version:     version,
		Commit:      commit,
		BuildDate:   date,
		Debug:       debuggingFlag || os.Getenv("JAILAI_DEBUG") == "TRUE",
		BuildSource: buildSource,
		UserConfig:  userConfig,
		ConfigDir:   configDir,
		ProjectDir:  projectDir,
	}, nil
}

func configDir(projectName string) string {
	if envConfigDir := os.Getenv("JAILAI_CONFIG_DIR"); envConfigDir != "" {
		return envConfigDir
	}
	return xdg.New("", projectName).ConfigHome()
}

func findOrCreateConfigDir(projectName string) (string, error) {
	folder := configDir(projectName)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", err
	}
	return folder, nil
}

func loadUserConfigWithDefaults(configDir string) (*UserConfig, error) {
	base := GetDefaultConfig()
	return loadUserConfig(configDir, &base)
}

func loadUserConfig(configDir string, base *UserConfig) (*UserConfig, error) {
	fileName := filepath.Join(configDir, "config.yml")

	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			file, createErr := os.Create(fileName)
			if createErr != nil {
				return nil, createErr
			}
			file.Close()
		} else {
			return nil, err
		}
	}

	content, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	// The file on disk only ever carries the fields the user chose to
	// override; merge it onto the defaults already in base.
	onDisk := UserConfig{}
	if err := yaml.Unmarshal(content, &onDisk); err != nil {
		return nil, err
	}
	if err := mergo.Merge(base, onDisk, mergo.WithOverride); err != nil {
		return nil, err
	}

	return base, nil
}

// WriteToUserConfig allows you to set a value on the user config to be
// saved. Note that a zero-value update may be ignored: the file uses
// `omitempty`, so we don't write a heap of zero values back to disk.
func (c *AppConfig) WriteToUserConfig(updateConfig func(*UserConfig) error) error {
	userConfig, err := loadUserConfig(c.ConfigDir, &UserConfig{})
	if err != nil {
		return err
	}

	if err := updateConfig(userConfig); err != nil {
		return err
	}

	file, err := os.OpenFile(c.ConfigFilename(), os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		return err
	}
	defer file.Close()

	return yaml.NewEncoder(file).Encode(userConfig)
}

// ConfigFilename returns the filename of the current config file.
func (c *AppConfig) ConfigFilename() string {
	return filepath.Join(c.ConfigDir, "config.yml")
}

// RecipeOverlayDir returns the path of the directory for a writable
// overlay of the embedded base recipe (§6.4). It only computes the path:
// nothing in this module creates the directory or reads recipes from it.
func (c *AppConfig) RecipeOverlayDir() string {
	return filepath.Join(c.ConfigDir, "recipes")
}
