package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// newBranchRig builds pelvis(b0) -> [spine(b1) -> neck(b2), leg(b3) -> foot(b4)].
func newBranchRig(t *testing.T) (model.Model, map[string]*model.Node) {
	t.Helper()
	nodes := map[string]*model.Node{}
	mk := func(name string, idx int, children ...*model.Node) *model.Node {
		n := model.NewNode(name, model.IdentityTransform(), &model.Bone{Name: name, Index: idx, Offset: mgl32.Ident4()}, children...)
		nodes[name] = n
		return n
	}
	root := mk("pelvis", 0,
		mk("spine", 1, mk("neck", 2)),
		mk("leg", 3, mk("foot", 4)),
	)
	m, err := model.NewModel(model.WithName("branch"), model.WithRoot(root))
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m, nodes
}

// filledPose returns the rest pose with every bone slot translated to v.
func filledPose(m model.Model, rest *Pose, v mgl32.Vec3) *Pose {
	p := *rest
	for _, b := range m.Bones() {
		p[b.Index].Translation = v
	}
	return &p
}

func TestMixBaseOnlyReproducesBase(t *testing.T) {
	m, _ := newBranchRig(t)
	w := NewWalker(m, NewInterpolator())
	mx := NewAnimationMixer(m, w.RestPose())
	mx.AddLayer(Additive{Weight: 1})

	base := filledPose(m, w.RestPose(), mgl32.Vec3{1, 2, 3})
	base[2].Rotation = mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})

	got, err := mx.Mix([]*Pose{base})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if *got != *base {
		t.Fatalf("single base layer must be reproduced exactly")
	}
}

func TestMixRenormalizesWeights(t *testing.T) {
	m, _ := newBranchRig(t)
	w := NewWalker(m, NewInterpolator())
	rest := w.RestPose()

	cases := []struct {
		name    string
		weights []float32
		want    mgl32.Vec3
	}{
		{"equal_raw_weights", []float32{2, 2}, mgl32.Vec3{1, 0, 0}},
		{"unit_weights", []float32{1, 1}, mgl32.Vec3{1, 0, 0}},
		{"layer_heavier", []float32{1, 3}, mgl32.Vec3{1.5, 0, 0}},
		{"layer_muted", []float32{1, 0}, mgl32.Vec3{0, 0, 0}},
		{"negative_counts_as_zero", []float32{1, -4}, mgl32.Vec3{0, 0, 0}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mx := NewAnimationMixer(m, rest)
			mx.AddLayer(Additive{Weight: 1})
			mx.AddLayer(Additive{Weight: 1})
			if err := mx.SetWeights(c.weights); err != nil {
				t.Fatalf("SetWeights: %v", err)
			}

			a := filledPose(m, rest, mgl32.Vec3{0, 0, 0})
			b := filledPose(m, rest, mgl32.Vec3{2, 0, 0})
			got, err := mx.Mix([]*Pose{a, b})
			if err != nil {
				t.Fatalf("Mix: %v", err)
			}
			for _, bone := range m.Bones() {
				if !got[bone.Index].Translation.ApproxEqualThreshold(c.want, 1e-5) {
					t.Fatalf("slot %d = %v, want %v", bone.Index, got[bone.Index].Translation, c.want)
				}
			}
		})
	}
}

func TestWeightsReportRawValues(t *testing.T) {
	m, _ := newBranchRig(t)
	w := NewWalker(m, NewInterpolator())
	mx := NewAnimationMixer(m, w.RestPose())
	mx.AddLayer(Additive{Weight: 1})
	mx.AddLayer(Overriding{})
	mx.AddLayer(Additive{Weight: 1})

	if err := mx.SetWeights([]float32{2, 6}); err != nil {
		t.Fatalf("SetWeights: %v", err)
	}
	got := mx.Weights()
	if len(got) != 2 || got[0] != 2 || got[1] != 6 {
		t.Fatalf("Weights = %v, want [2 6]", got)
	}
	if mx.LayerCount() != 3 || mx.AdditiveCount() != 2 {
		t.Fatalf("LayerCount=%d AdditiveCount=%d", mx.LayerCount(), mx.AdditiveCount())
	}
}

func TestOverridingSubtreeReplacesOnlyFilteredSlots(t *testing.T) {
	m, nodes := newBranchRig(t)
	w := NewWalker(m, NewInterpolator())
	rest := w.RestPose()

	cases := []struct {
		name   string
		filter *NodeFilter
		want   []int
	}{
		{"leg_subtree", NewTreeFilter(nodes["leg"]), []int{3, 4}},
		{"spine_subtree", NewTreeFilter(nodes["spine"]), []int{1, 2}},
		{"explicit_nodes", NewExplicitFilter(nodes["pelvis"], nodes["foot"]), []int{0, 4}},
		{"whole_tree", nil, []int{0, 1, 2, 3, 4}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mx := NewAnimationMixer(m, rest)
			mx.AddLayer(Additive{Weight: 1})
			mx.AddLayer(Overriding{Filter: c.filter})

			base := filledPose(m, rest, mgl32.Vec3{0, 0, 0})
			over := filledPose(m, rest, mgl32.Vec3{5, 5, 5})
			got, err := mx.Mix([]*Pose{base, over})
			if err != nil {
				t.Fatalf("Mix: %v", err)
			}

			replaced := map[int]bool{}
			for _, idx := range c.want {
				replaced[idx] = true
			}
			for _, bone := range m.Bones() {
				differs := got[bone.Index] != base[bone.Index]
				if differs != replaced[bone.Index] {
					t.Fatalf("slot %d replaced=%v, want %v", bone.Index, differs, replaced[bone.Index])
				}
			}
		})
	}
}

func TestMixSkipsDisabledLayers(t *testing.T) {
	m, _ := newBranchRig(t)
	w := NewWalker(m, NewInterpolator())
	rest := w.RestPose()
	mx := NewAnimationMixer(m, rest)
	mx.AddLayer(Additive{Weight: 1})
	mx.AddLayer(Additive{Weight: 1})

	base := filledPose(m, rest, mgl32.Vec3{4, 0, 0})
	got, err := mx.Mix([]*Pose{base, nil})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if *got != *base {
		t.Fatalf("a disabled layer must not contribute")
	}

	got, err = mx.Mix([]*Pose{nil, nil})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if *got != *rest {
		t.Fatalf("a missing base pose falls back to rest")
	}
}

func TestMixerArityErrors(t *testing.T) {
	m, _ := newBranchRig(t)
	w := NewWalker(m, NewInterpolator())
	mx := NewAnimationMixer(m, w.RestPose())
	mx.AddLayer(Additive{Weight: 1})
	mx.AddLayer(Additive{Weight: 1})

	if err := mx.SetWeights([]float32{1}); !errors.Is(err, ErrArity) {
		t.Fatalf("SetWeights with one weight: expected ErrArity, got %v", err)
	}
	if err := mx.SetWeights([]float32{1, 1, 1}); !errors.Is(err, ErrArity) {
		t.Fatalf("SetWeights with three weights: expected ErrArity, got %v", err)
	}
	if _, err := mx.Mix([]*Pose{w.RestPose()}); !errors.Is(err, ErrArity) {
		t.Fatalf("Mix with one pose: expected ErrArity, got %v", err)
	}

	var arity *ArityError
	err := mx.SetWeights(nil)
	if !errors.As(err, &arity) || arity.Want != 2 || arity.Got != 0 {
		t.Fatalf("unexpected arity details: %v", err)
	}
}
