package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfSkeleton is the rig extracted from one glTF skin.
type gltfSkeleton struct {
	root  *model.Node
	bones []*model.Bone
	// nodeBones maps glTF node indices to the bone they carry.
	nodeBones map[int]*model.Bone
}

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	doc *gltf.Document
}

// gltfSkeletonExtractor defines the interface for extracting the bone hierarchy from a glTF document.
// Joints keep their skin order as bone indices so that JOINTS_0 vertex attributes address the
// matching skinning matrix.
type gltfSkeletonExtractor interface {
	// ExtractSkeleton extracts the node tree of the default scene with the joints of a skin as bones.
	//
	// Parameters:
	//   - name: the rig name, used for a synthesized root when the scene has several roots
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - *gltfSkeleton: the extracted skeleton
	//   - error: error if extraction fails
	ExtractSkeleton(name string, skinIndex int) (*gltfSkeleton, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded glTF document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(doc *gltf.Document) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{doc: doc}
}

func (e *gltfSkeletonExtractorImpl) ExtractSkeleton(name string, skinIndex int) (*gltfSkeleton, error) {
	doc := e.doc
	if len(doc.Skins) == 0 {
		return nil, errors.New("document has no skin")
	}
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, errors.Errorf("skin index %d out of range", skinIndex)
	}
	if len(doc.Skins) > 1 {
		common.LogDebug("document has several skins, using one", "skins", len(doc.Skins), "skin", skinIndex)
	}

	skin := doc.Skins[skinIndex]
	if len(skin.Joints) > model.MaxBones {
		return nil, errors.Errorf("skin %d has %d joints, at most %d are supported", skinIndex, len(skin.Joints), model.MaxBones)
	}

	// Read inverse bind matrices (optional but usually present)
	var inverseBindMatrices []mgl32.Mat4
	if idx, ok := gltfIndex(skin.InverseBindMatrices); ok {
		var err error
		inverseBindMatrices, err = gltfReadMat4s(doc, idx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read inverse bind matrices")
		}
	}

	sk := &gltfSkeleton{
		bones:     make([]*model.Bone, len(skin.Joints)),
		nodeBones: make(map[int]*model.Bone, len(skin.Joints)),
	}
	for i, j := range skin.Joints {
		nodeIndex := int(j)
		if nodeIndex < 0 || nodeIndex >= len(doc.Nodes) {
			return nil, errors.Errorf("joint %d: invalid node index %d", i, nodeIndex)
		}
		if _, dup := sk.nodeBones[nodeIndex]; dup {
			return nil, errors.Errorf("joint %d: node %d is listed twice", i, nodeIndex)
		}

		bone := &model.Bone{Name: doc.Nodes[nodeIndex].Name, Index: i, Offset: mgl32.Ident4()}
		if bone.Name == "" {
			bone.Name = fmt.Sprintf("bone_%d", i)
		}
		if i < len(inverseBindMatrices) {
			bone.Offset = inverseBindMatrices[i]
		}
		sk.bones[i] = bone
		sk.nodeBones[nodeIndex] = bone
	}

	roots := e.sceneRoots()
	visited := make(map[int]bool, len(doc.Nodes))
	var nodes []*model.Node
	for _, r := range roots {
		n, err := e.buildNode(r, sk.nodeBones, visited)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	switch len(nodes) {
	case 0:
		return nil, errors.New("document has no scene nodes")
	case 1:
		sk.root = nodes[0]
	default:
		sk.root = model.NewNode(name, model.IdentityTransform(), nil, nodes...)
	}

	for nodeIndex, b := range sk.nodeBones {
		if !visited[nodeIndex] {
			common.LogWarn("joint is not part of the scene, it keeps an identity matrix", "bone", b.Name, "node", nodeIndex)
		}
	}
	return sk, nil
}

// sceneRoots returns the root node indices of the default scene, or every parentless node when the
// document declares no scene.
func (e *gltfSkeletonExtractorImpl) sceneRoots() []int {
	doc := e.doc
	if len(doc.Scenes) > 0 {
		scene := 0
		if idx, ok := gltfIndex(doc.Scene); ok && idx < len(doc.Scenes) {
			scene = idx
		}
		roots := make([]int, 0, len(doc.Scenes[scene].Nodes))
		for _, n := range doc.Scenes[scene].Nodes {
			roots = append(roots, int(n))
		}
		return roots
	}

	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(hasParent) {
				hasParent[int(c)] = true
			}
		}
	}
	var roots []int
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

func (e *gltfSkeletonExtractorImpl) buildNode(index int, bones map[int]*model.Bone, visited map[int]bool) (*model.Node, error) {
	if index < 0 || index >= len(e.doc.Nodes) {
		return nil, errors.Errorf("invalid node index %d", index)
	}
	if visited[index] {
		return nil, errors.Errorf("node %d is reachable twice, the node graph is not a tree", index)
	}
	visited[index] = true

	src := e.doc.Nodes[index]
	children := make([]*model.Node, 0, len(src.Children))
	for _, c := range src.Children {
		child, err := e.buildNode(int(c), bones, visited)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	name := src.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", index)
	}
	return model.NewNode(name, gltfNodeTransform(src), bones[index], children...), nil
}

// --- Helper Functions ---

var gltfIdentity = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// gltfNodeTransform extracts the rest transform of a glTF node. A non-identity matrix wins over
// the TRS properties; unset rotation and scale fall back to identity.
func gltfNodeTransform(node *gltf.Node) model.Transform {
	if node.Matrix != gltfIdentity && node.Matrix != ([16]float32{}) {
		return model.TransformFromMat4(mgl32.Mat4(node.Matrix))
	}

	t := model.IdentityTransform()
	t.Translation = node.Translation
	if node.Rotation != ([4]float32{}) {
		t.Rotation = common.QuatFromXYZW(node.Rotation)
	}
	if node.Scale != ([3]float32{}) {
		t.Scale = node.Scale
	}
	return t
}

// gltfIndex reads an optional glTF index property.
func gltfIndex(v any) (int, bool) {
	switch i := v.(type) {
	case uint32:
		return int(i), true
	case *uint32:
		if i == nil {
			return 0, false
		}
		return int(*i), true
	case int:
		return i, true
	case *int:
		if i == nil {
			return 0, false
		}
		return *i, true
	default:
		return 0, false
	}
}
