package loader

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfLoaderBackendImpl is the implementation of gltfLoaderBackend.
type gltfLoaderBackendImpl struct {
	skin int
}

// gltfLoaderBackend is a loaderBackend implementation for glTF/GLB files.
// It decodes the document with qmuntal/gltf and delegates to the skeleton and animation extractors.
// Meshes and materials are ignored.
type gltfLoaderBackend interface {
	loaderBackend
}

var _ gltfLoaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - skin: the index of the skin that becomes the skeleton
//
// Returns:
//   - gltfLoaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(skin int) gltfLoaderBackend {
	return &gltfLoaderBackendImpl{skin: skin}
}

func (b *gltfLoaderBackendImpl) Load(path string) (model.Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return b.importDocument(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), doc)
}

func (b *gltfLoaderBackendImpl) LoadReader(name string, r io.Reader) (model.Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode gltf")
	}
	return b.importDocument(name, doc)
}

// importDocument builds a model from the configured skin and binds every animation that moves it.
func (b *gltfLoaderBackendImpl) importDocument(name string, doc *gltf.Document) (model.Model, error) {
	sk, err := newGLTFSkeletonExtractor(doc).ExtractSkeleton(name, b.skin)
	if err != nil {
		return nil, err
	}

	clips, err := newGLTFAnimationExtractor(doc).ExtractAllAnimations(sk)
	if err != nil {
		return nil, err
	}

	return model.NewModel(
		model.WithName(name),
		model.WithRoot(sk.root),
		model.WithBones(sk.bones),
		model.WithAnimations(clips...),
	)
}
