package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// yamlLoaderBackendImpl is the implementation of yamlLoaderBackend.
type yamlLoaderBackendImpl struct{}

// yamlLoaderBackend is a loaderBackend implementation for hand-authored YAML rig documents.
type yamlLoaderBackend interface {
	loaderBackend
}

var _ yamlLoaderBackend = &yamlLoaderBackendImpl{}

// newYAMLLoaderBackend creates a new YAML loader backend.
//
// Returns:
//   - yamlLoaderBackend: the loader backend for YAML rig documents
func newYAMLLoaderBackend() yamlLoaderBackend {
	return &yamlLoaderBackendImpl{}
}

func (b *yamlLoaderBackendImpl) Load(path string) (model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return b.LoadReader(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), f)
}

func (b *yamlLoaderBackendImpl) LoadReader(name string, r io.Reader) (model.Model, error) {
	var doc rigDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode rig document")
	}
	if doc.Name == "" {
		doc.Name = name
	}
	return buildRig(&doc)
}

// buildRig turns a decoded document into a Model and binds every clip to it.
func buildRig(doc *rigDocument) (model.Model, error) {
	if doc.Root == nil {
		return nil, errors.Errorf("rig %q has no root node", doc.Name)
	}
	if len(doc.Bones) > model.MaxBones {
		return nil, errors.Errorf("rig %q declares %d bones, at most %d are supported", doc.Name, len(doc.Bones), model.MaxBones)
	}

	bones := make([]*model.Bone, len(doc.Bones))
	byName := make(map[string]*model.Bone, len(doc.Bones))
	for i, bd := range doc.Bones {
		if bd.Name == "" {
			return nil, errors.Errorf("rig %q: bone %d has no name", doc.Name, i)
		}
		if _, dup := byName[bd.Name]; dup {
			return nil, errors.Errorf("rig %q: bone %q declared twice", doc.Name, bd.Name)
		}
		offset := mgl32.Ident4()
		if len(bd.Offset) > 0 {
			if len(bd.Offset) != 16 {
				return nil, errors.Errorf("rig %q: bone %q offset has %d values, want 16", doc.Name, bd.Name, len(bd.Offset))
			}
			copy(offset[:], bd.Offset)
		}
		bones[i] = &model.Bone{Name: bd.Name, Index: i, Offset: offset}
		byName[bd.Name] = bones[i]
	}

	root, err := buildNode(doc.Root, byName)
	if err != nil {
		return nil, errors.Wrapf(err, "rig %q", doc.Name)
	}

	m, err := model.NewModel(
		model.WithName(doc.Name),
		model.WithRoot(root),
		model.WithBones(bones),
	)
	if err != nil {
		return nil, err
	}

	for i := range doc.Animations {
		anim, err := buildClip(&doc.Animations[i], m)
		if err != nil {
			return nil, errors.Wrapf(err, "rig %q", doc.Name)
		}
		if err := m.BindAnimation(anim); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func buildNode(nd *nodeDocument, bones map[string]*model.Bone) (*model.Node, error) {
	t := model.IdentityTransform()
	if nd.Translation != nil {
		t.Translation = *nd.Translation
	}
	if nd.Rotation != nil {
		t.Rotation = common.QuatFromXYZW(*nd.Rotation)
	}
	if nd.Scale != nil {
		t.Scale = *nd.Scale
	}

	var bone *model.Bone
	if nd.Bone != "" {
		bone = bones[nd.Bone]
		if bone == nil {
			return nil, errors.Errorf("node %q references undeclared bone %q", nd.Name, nd.Bone)
		}
	}

	children := make([]*model.Node, 0, len(nd.Children))
	for _, cd := range nd.Children {
		if cd == nil {
			continue
		}
		c, err := buildNode(cd, bones)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return model.NewNode(nd.Name, t, bone, children...), nil
}

func parseBehaviour(field, value string) (model.Behaviour, error) {
	b, ok := model.ParseBehaviour(strings.ToLower(value))
	if !ok {
		return b, errors.Errorf("%s: unknown behaviour %q", field, value)
	}
	return b, nil
}

func buildClip(cd *clipDocument, m model.Model) (*model.Animation, error) {
	behaviour, err := parseBehaviour("animation "+cd.Name, cd.Behaviour)
	if err != nil {
		return nil, err
	}
	// Clips loop unless told otherwise.
	if cd.Behaviour == "" {
		behaviour = model.BehaviourRepeat
	}
	anim := &model.Animation{
		Name:           cd.Name,
		Duration:       cd.Duration,
		TicksPerSecond: cd.TicksPerSecond,
		Behaviour:      behaviour,
		Channels:       make([]model.BoneAnimation, 0, len(cd.Channels)),
	}

	for _, chd := range cd.Channels {
		bone := MatchBone(m, chd.Bone)
		if bone == nil {
			common.LogWarn("dropping channel for unknown bone", "animation", cd.Name, "bone", chd.Bone)
			continue
		}
		ch := model.BoneAnimation{Bone: bone}
		if ch.PreState, err = parseBehaviour("channel "+chd.Bone+" pre", chd.Pre); err != nil {
			return nil, err
		}
		if ch.PostState, err = parseBehaviour("channel "+chd.Bone+" post", chd.Post); err != nil {
			return nil, err
		}

		ch.PositionKeys = make([]model.VectorKeyframe, len(chd.Positions))
		for i, k := range chd.Positions {
			ch.PositionKeys[i] = model.VectorKeyframe{Time: k.Time, Value: k.Value}
		}
		ch.RotationKeys = make([]model.QuaternionKeyframe, len(chd.Rotations))
		for i, k := range chd.Rotations {
			ch.RotationKeys[i] = model.QuaternionKeyframe{Time: k.Time, Value: common.QuatFromXYZW(k.Value)}
		}
		ch.ScaleKeys = make([]model.VectorKeyframe, len(chd.Scales))
		for i, k := range chd.Scales {
			ch.ScaleKeys[i] = model.VectorKeyframe{Time: k.Time, Value: k.Value}
		}
		anim.Channels = append(anim.Channels, ch)
	}
	return anim, nil
}

// EncodeRig serializes m and its bound clips as a YAML rig document. Bone slots without a bone are
// written as placeholder bones so that list positions keep matching bone indices.
//
// Parameters:
//   - m: the model to encode
//
// Returns:
//   - []byte: the YAML document
//   - error: error if encoding fails
func EncodeRig(m model.Model) ([]byte, error) {
	doc := rigDocument{Name: m.Name(), Root: encodeNode(m.Root())}

	for _, b := range m.Bones() {
		for len(doc.Bones) < b.Index {
			doc.Bones = append(doc.Bones, boneDocument{Name: placeholderBoneName(len(doc.Bones))})
		}
		bd := boneDocument{Name: b.Name}
		if b.Offset != mgl32.Ident4() {
			bd.Offset = append([]float32(nil), b.Offset[:]...)
		}
		doc.Bones = append(doc.Bones, bd)
	}

	for _, anim := range m.Animations() {
		cd := clipDocument{
			Name:           anim.Name,
			Duration:       anim.Duration,
			TicksPerSecond: anim.TicksPerSecond,
			Behaviour:      encodeBehaviour(anim.Behaviour),
		}
		for _, ch := range anim.Channels {
			chd := channelDocument{
				Bone: ch.Bone.Name,
				Pre:  encodeBehaviour(ch.PreState),
				Post: encodeBehaviour(ch.PostState),
			}
			for _, k := range ch.PositionKeys {
				chd.Positions = append(chd.Positions, vectorKeyDoc{Time: k.Time, Value: k.Value})
			}
			for _, k := range ch.RotationKeys {
				chd.Rotations = append(chd.Rotations, rotationKeyDoc{Time: k.Time, Value: common.QuatToXYZW(k.Value)})
			}
			for _, k := range ch.ScaleKeys {
				chd.Scales = append(chd.Scales, vectorKeyDoc{Time: k.Time, Value: k.Value})
			}
			cd.Channels = append(cd.Channels, chd)
		}
		doc.Animations = append(doc.Animations, cd)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode rig %q", m.Name())
	}
	return out, nil
}

func encodeNode(n *model.Node) *nodeDocument {
	t := n.Transform.Translation
	r := common.QuatToXYZW(n.Transform.Rotation)
	s := n.Transform.Scale
	nd := &nodeDocument{Name: n.Name}
	if t != (mgl32.Vec3{}) {
		v := [3]float32(t)
		nd.Translation = &v
	}
	if r != [4]float32{0, 0, 0, 1} {
		nd.Rotation = &r
	}
	if s != (mgl32.Vec3{1, 1, 1}) {
		v := [3]float32(s)
		nd.Scale = &v
	}
	if n.Bone != nil {
		nd.Bone = n.Bone.Name
	}
	for _, c := range n.Children {
		nd.Children = append(nd.Children, encodeNode(c))
	}
	return nd
}

func encodeBehaviour(b model.Behaviour) string {
	if b == model.BehaviourDefault {
		return ""
	}
	return b.String()
}

func placeholderBoneName(index int) string {
	return fmt.Sprintf("unused_%d", index)
}
