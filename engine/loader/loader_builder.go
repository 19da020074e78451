package loader

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}

// WithGLTFSkin is an option builder that selects which skin of a glTF document becomes the skeleton.
// The first skin is used by default.
//
// Parameters:
//   - index: the skin index
//
// Returns:
//   - LoaderBuilderOption: a function that applies the skin option to a loader
func WithGLTFSkin(index int) LoaderBuilderOption {
	return func(l *loader) {
		l.gltfSkin = index
	}
}
