package loader

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/pkg/errors"
)

// LoaderBackendType identifies the rig file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeYAML selects the YAML rig document backend.
	BackendTypeYAML LoaderBackendType = iota
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF
)

// ErrUnsupportedFormat is returned when no backend handles a file extension or backend type.
var ErrUnsupportedFormat = errors.New("unsupported rig format")

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	modelCache map[string]model.Model

	backends map[LoaderBackendType]loaderBackend

	gltfSkin int
}

// Loader defines the public-facing interface for loading and caching rigs.
// It abstracts the file format (YAML rig documents, glTF, GLB) behind a generic backend and
// manages a cache of previously loaded models. Every clip a document carries is bound to its
// model before the model is returned.
type Loader interface {
	// Load imports a rig file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.yaml/.yml → YAML, .gltf/.glb → glTF).
	//
	// Parameters:
	//   - path: the file path to the rig file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if loading fails
	Load(path string) (model.Model, error)

	// Reload imports a rig file bypassing the cache and replaces the cached entry on success.
	//
	// Parameters:
	//   - path: the file path to the rig file
	//
	// Returns:
	//   - model.Model: the freshly loaded model
	//   - error: error if loading fails, in which case the cache is left untouched
	Reload(path string) (model.Model, error)

	// LoadReader imports a rig from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded model
	//   - r: the reader providing rig data
	//   - backendType: the format of the stream
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, backendType LoaderBackendType) (model.Model, error)

	// LoadPack imports a rig stored in a resource pack written by rig-packer and caches it by name.
	//
	// Parameters:
	//   - path: the pack file path
	//   - name: the rig name inside the pack
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if the pack cannot be read or the rig is missing
	LoadPack(path, name string) (model.Model, error)

	// LoadClips imports the clips of another rig file and rebinds them onto target by bone name.
	// Channels whose bone cannot be matched are dropped.
	//
	// Parameters:
	//   - path: the rig file providing the clips
	//   - target: the model the clips are bound to
	//
	// Returns:
	//   - []*model.Animation: the rebound clips
	//   - error: error if loading or binding fails
	LoadClips(path string, target model.Model) ([]*model.Animation, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns the full model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with every backend registered and the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		modelCache: make(map[string]model.Model),
	}

	for _, option := range options {
		option(l)
	}

	l.backends = map[LoaderBackendType]loaderBackend{
		BackendTypeYAML: newYAMLLoaderBackend(),
		BackendTypeGLTF: newGLTFLoaderBackend(l.gltfSkin),
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	return l.Reload(path)
}

func (l *loader) Reload(path string) (model.Model, error) {
	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	m, err := backend.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}

	l.mu.Lock()
	l.modelCache[path] = m
	l.mu.Unlock()

	common.LogInfo("rig loaded", "path", path, "model", m.Name(), "bones", len(m.Bones()), "clips", len(m.Animations()))
	return m, nil
}

func (l *loader) LoadReader(name string, r io.Reader, backendType LoaderBackendType) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, ok := l.backends[backendType]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "backend type %d", backendType)
	}

	m, err := backend.LoadReader(name, r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load from reader %q", name)
	}

	l.mu.Lock()
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadPack(path, name string) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := ReadPackedRig(path, name)
	if err != nil {
		return nil, err
	}

	m, err := l.backends[BackendTypeYAML].LoadReader(name, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %q from pack %s", name, path)
	}

	l.mu.Lock()
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadClips(path string, target model.Model) ([]*model.Animation, error) {
	if target == nil {
		return nil, errors.New("LoadClips requires a target model")
	}
	source, err := l.Load(path)
	if err != nil {
		return nil, err
	}

	var clips []*model.Animation
	for _, anim := range source.Animations() {
		clip := MatchClip(anim, target)
		if len(clip.Channels) == 0 {
			common.LogWarn("no channel of clip matches the target skeleton", "clip", anim.Name, "target", target.Name())
			continue
		}
		if err := target.BindAnimation(clip); err != nil {
			return nil, errors.Wrapf(err, "failed to bind %q from %s", clip.Name, path)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

// resolveBackend selects an appropriate loader backend based on the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	t, ok := BackendTypeForPath(path)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", filepath.Ext(path))
	}
	return l.backends[t], nil
}

// BackendTypeForPath maps a file extension onto the backend that reads it.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - LoaderBackendType: the backend for the extension
//   - bool: false if no backend reads the extension
func BackendTypeForPath(path string) (LoaderBackendType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return BackendTypeYAML, true
	case ".gltf", ".glb":
		return BackendTypeGLTF, true
	default:
		return 0, false
	}
}
