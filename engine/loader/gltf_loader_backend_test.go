package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/animator"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// leggedGLTF builds a glTF document with an Armature → hip → knee chain, a two-joint skin and a
// "lift" animation that raises the hip from y=1 to y=2 over one second.
func leggedGLTF(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	write := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("write buffer: %v", err)
		}
	}
	hipIBM := mgl32.Translate3D(0, -1, 0)
	kneeIBM := mgl32.Translate3D(0, -1, -2)
	write(hipIBM)
	write(kneeIBM)
	write([]float32{0, 1})
	write([]float32{0, 1, 0, 0, 2, 0})
	if buf.Len() != 160 {
		t.Fatalf("buffer is %d bytes", buf.Len())
	}
	uri := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	return fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [
    {"name": "Armature", "children": [1]},
    {"name": "hip", "translation": [0, 1, 0], "children": [2]},
    {"name": "knee", "translation": [0, 0, 2]}
  ],
  "skins": [{"inverseBindMatrices": 0, "joints": [1, 2]}],
  "animations": [{
    "name": "lift",
    "channels": [{"sampler": 0, "target": {"node": 1, "path": "translation"}}],
    "samplers": [{"input": 1, "output": 2, "interpolation": "LINEAR"}]
  }],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 2, "type": "MAT4"},
    {"bufferView": 1, "componentType": 5126, "count": 2, "type": "SCALAR", "min": [0], "max": [1]},
    {"bufferView": 2, "componentType": 5126, "count": 2, "type": "VEC3"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 128},
    {"buffer": 0, "byteOffset": 128, "byteLength": 8},
    {"buffer": 0, "byteOffset": 136, "byteLength": 24}
  ],
  "buffers": [{"byteLength": 160, "uri": %q}]
}`, uri)
}

func TestLoadGLTF(t *testing.T) {
	l := NewLoader()
	m, err := l.LoadReader("legged", strings.NewReader(leggedGLTF(t)), BackendTypeGLTF)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}

	if m.Root().Name != "Armature" || m.Root().Bone != nil {
		t.Fatalf("root = %+v", m.Root())
	}
	bones := m.Bones()
	if len(bones) != 2 || bones[0].Name != "hip" || bones[1].Name != "knee" {
		t.Fatalf("bones = %+v", bones)
	}
	if !bones[1].Offset.ApproxEqualThreshold(mgl32.Translate3D(0, -1, -2), 1e-6) {
		t.Fatalf("knee offset = %v", bones[1].Offset)
	}
	hipNode := m.NodeForBone(0)
	if hipNode == nil || hipNode.Transform.Translation != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("hip node = %+v", hipNode)
	}
	if !hipNode.Transform.Rotation.ApproxEqual(mgl32.QuatIdent()) || hipNode.Transform.Scale != (mgl32.Vec3{1, 1, 1}) {
		t.Fatalf("hip rest transform = %+v", hipNode.Transform)
	}

	lift := m.AnimationByName("lift")
	if lift == nil || !m.IsBound(lift) {
		t.Fatalf("lift clip not bound")
	}
	if lift.Duration != 1 || lift.Rate() != 1 || lift.Behaviour != model.BehaviourRepeat {
		t.Fatalf("lift clip = %+v", lift)
	}
	ch := lift.Channel(bones[0])
	if ch == nil || len(ch.PositionKeys) != 2 {
		t.Fatalf("hip channel = %+v", ch)
	}
	if ch.PositionKeys[1].Time != 1 || ch.PositionKeys[1].Value != (mgl32.Vec3{0, 2, 0}) {
		t.Fatalf("last key = %+v", ch.PositionKeys[1])
	}
	if ch.PreState != model.BehaviourConstant || ch.PostState != model.BehaviourConstant {
		t.Fatalf("pre/post = %v/%v", ch.PreState, ch.PostState)
	}
}

func TestGLTFBindPoseSkinsToIdentity(t *testing.T) {
	l := NewLoader()
	m, err := l.LoadReader("legged", strings.NewReader(leggedGLTF(t)), BackendTypeGLTF)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	a, err := animator.NewAnimator(m)
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}

	mats := a.SkinningMatrices()
	for _, b := range m.Bones() {
		if !mats[b.Index].ApproxEqualThreshold(mgl32.Ident4(), 1e-5) {
			t.Fatalf("%s skinning matrix at bind pose = %v, want identity", b.Name, mats[b.Index])
		}
	}
}

func TestLoadGLTFSkinOutOfRange(t *testing.T) {
	l := NewLoader(WithGLTFSkin(3))
	if _, err := l.LoadReader("legged", strings.NewReader(leggedGLTF(t)), BackendTypeGLTF); err == nil {
		t.Fatalf("expected an error for a missing skin")
	}
}

func TestGLTFToYAML(t *testing.T) {
	l := NewLoader()
	m, err := l.LoadReader("legged", strings.NewReader(leggedGLTF(t)), BackendTypeGLTF)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	data, err := EncodeRig(m)
	if err != nil {
		t.Fatalf("EncodeRig: %v", err)
	}
	back, err := l.LoadReader("legged-yaml", bytes.NewReader(data), BackendTypeYAML)
	if err != nil {
		t.Fatalf("reload: %v\n%s", err, data)
	}
	if len(back.Bones()) != 2 || back.AnimationByName("lift") == nil {
		t.Fatalf("converted rig lost data:\n%s", data)
	}
}
