package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// loaderBackend defines the generic interface for loading rigs from files or streams.
// Concrete implementations (yamlLoaderBackend, gltfLoaderBackend) handle format-specific details
// and return a Model with every clip of the document already bound.
type loaderBackend interface {
	// Load performs a full rig import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - model.Model: the imported model with its clips bound
	//   - error: error if loading fails
	Load(path string) (model.Model, error)

	// LoadReader imports a rig from a reader stream.
	//
	// Parameters:
	//   - name: the fallback model name when the document carries none
	//   - r: the reader providing rig data
	//
	// Returns:
	//   - model.Model: the imported model with its clips bound
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader) (model.Model, error)
}
