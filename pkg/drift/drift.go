// Package drift implements the Drift Detector (§4.D): a pure comparison
// between a running jail's current image/layer metadata and what the
// Planner would produce for the workspace today, plus a pluggable
// confirmation prompt for the interactive rebuild decision.
package drift

import (
	"github.com/jail-ai/jailctl/pkg/layers"
	"github.com/jail-ai/jailctl/pkg/runtime"
)

// OutdatedLayer names one stale recipe in the planned stack (§4.D "Layer
// freshness").
type OutdatedLayer struct {
	RecipeName string
	Expected   string
	Actual     string
}

// ImageDrift reports a mismatch between the container's current image
// reference and the terminal image the planner would produce today
// (§4.D "Terminal image drift").
type ImageDrift struct {
	Current  runtime.ImageRef
	Expected runtime.ImageRef
}

// Report is the detector's output for one jail reuse attempt; the zero
// value (no outdated layers, nil ImageDrift) means no drift.
type Report struct {
	OutdatedLayers []OutdatedLayer
	ImageDrift     *ImageDrift
}

// Empty reports whether neither check found anything (§4.D).
func (r Report) Empty() bool {
	return len(r.OutdatedLayers) == 0 && r.ImageDrift == nil
}

// LayerMetadataFunc looks up a built layer's recorded recipe hash; used
// so Detect stays a pure function over caller-supplied data rather than
// calling the runtime itself.
type LayerMetadataFunc func(layer layers.LayerSpec) (recipeHash string, ok bool)

// Detect compares stack (the plan produced for the workspace's current
// state) against the container's currently-running image reference and
// the recorded metadata for each planned layer (§4.D). It performs no
// I/O and mutates nothing; callers supply all inputs already fetched.
func Detect(stack layers.Stack, currentImage runtime.ImageRef, metadataOf LayerMetadataFunc) Report {
	var report Report

	for _, layer := range stack.Layers {
		hash, ok := metadataOf(layer)
		if !ok || hash != layer.RecipeHash {
			report.OutdatedLayers = append(report.OutdatedLayers, OutdatedLayer{
				RecipeName: layer.RecipeName,
				Expected:   layer.RecipeHash,
				Actual:     hash,
			})
		}
	}

	if len(stack.Layers) > 0 {
		expected := runtime.ImageRef(stack.Layers[len(stack.Layers)-1].ImageRef())
		if expected != currentImage {
			report.ImageDrift = &ImageDrift{Current: currentImage, Expected: expected}
		}
	}

	return report
}
