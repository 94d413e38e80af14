package config

import "fmt"

// Validate checks the resource and cache bounds the rest of the system
// assumes hold, adapted from the teacher's UserConfig.Validate — there it
// walked the keybinding tree; here it walks the handful of numeric knobs
// that the Planner/Builder and Egress Orchestrator trust without
// re-checking.
func (u *UserConfig) Validate() error {
	if u.Resources.MemoryMiB < 0 {
		return fmt.Errorf("resources.memoryMiB must not be negative, got %d", u.Resources.MemoryMiB)
	}
	if u.Resources.CPUPercent < 0 {
		return fmt.Errorf("resources.cpuPercent must not be negative, got %d", u.Resources.CPUPercent)
	}
	if u.Cache.ImageExistenceSize < 0 {
		return fmt.Errorf("cache.imageExistenceSize must not be negative, got %d", u.Cache.ImageExistenceSize)
	}
	if u.Build.MaxParallelLayers < 1 {
		return fmt.Errorf("build.maxParallelLayers must be at least 1, got %d", u.Build.MaxParallelLayers)
	}
	if u.WorkspaceMount == "" {
		return fmt.Errorf("workspaceMount must not be empty")
	}
	return nil
}
