package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// Pose holds one local transform per bone slot. Slots with no bone hold the identity transform.
type Pose [model.MaxBones]model.Transform

// SkinningMatrices holds one model-space skinning matrix per bone slot.
type SkinningMatrices [model.MaxBones]mgl32.Mat4

// Walker samples clips into local poses and composes poses down the node tree into skinning
// matrices. The node tree is only read, so one model may back any number of walkers.
type Walker struct {
	model      model.Model
	interp     *Interpolator
	rest       Pose
	emptySlots []int
}

// NewWalker creates a Walker over the node tree of m.
//
// Parameters:
//   - m: the model to walk
//   - interp: the interpolator used to sample channels
//
// Returns:
//   - *Walker: the walker
func NewWalker(m model.Model, interp *Interpolator) *Walker {
	w := &Walker{model: m, interp: interp}
	for i := range w.rest {
		if n := m.NodeForBone(i); n != nil {
			w.rest[i] = n.Transform
			continue
		}
		w.rest[i] = model.IdentityTransform()
		w.emptySlots = append(w.emptySlots, i)
	}
	return w
}

// RestPose returns the pose formed by every bone node's rest transform.
//
// Returns:
//   - *Pose: the rest pose, which must not be modified
func (w *Walker) RestPose() *Pose {
	return &w.rest
}

// Sample writes the local pose of anim at ticks into out. Bones without a channel keep their
// rest transform.
//
// Parameters:
//   - anim: the clip to sample, already bound to the walker's model
//   - ticks: the clip time in ticks
//   - out: the destination pose
func (w *Walker) Sample(anim *model.Animation, ticks float32, out *Pose) {
	*out = w.rest
	for i := range anim.Channels {
		ch := &anim.Channels[i]
		idx := ch.Bone.Index
		out[idx] = w.interp.SampleChannel(ch, ticks, w.rest[idx])
	}
}

// Compose walks the node tree depth-first and writes
// globalInverse * accumulated * bone.Offset for every bone node into out.
// Bone nodes take their local transform from pose; structural nodes use their rest transform.
//
// Parameters:
//   - pose: the local pose to compose
//   - out: the destination matrices
func (w *Walker) Compose(pose *Pose, out *SkinningMatrices) {
	for _, i := range w.emptySlots {
		out[i] = mgl32.Ident4()
	}
	w.compose(w.model.Root(), mgl32.Ident4(), pose, out)
}

func (w *Walker) compose(n *model.Node, parent mgl32.Mat4, pose *Pose, out *SkinningMatrices) {
	var local mgl32.Mat4
	if n.Bone != nil {
		local = pose[n.Bone.Index].Mat4()
	} else {
		local = n.Transform.Mat4()
	}

	accum := parent.Mul4(local)
	if n.Bone != nil {
		out[n.Bone.Index] = w.model.GlobalInverse().Mul4(accum).Mul4(n.Bone.Offset)
	}

	for _, c := range n.Children {
		w.compose(c, accum, pose, out)
	}
}
