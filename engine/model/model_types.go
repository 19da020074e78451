package model

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxBones is the fixed capacity of every per-bone buffer. Bone indices must lie in [0, MaxBones).
const MaxBones = 100

// --- Transform & Skeleton Types ---

// Transform represents a decomposed local transform for animation interpolation.
type Transform struct {
	// Translation is the position offset.
	Translation mgl32.Vec3

	// Rotation is the orientation as a unit quaternion.
	Rotation mgl32.Quat

	// Scale is the scale factor along each axis.
	Scale mgl32.Vec3
}

// IdentityTransform returns the transform that leaves points unchanged.
//
// Returns:
//   - Transform: zero translation, identity rotation, unit scale
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Mat4 composes the transform into a column-major matrix (T * R * S).
//
// Returns:
//   - mgl32.Mat4: the composed matrix
func (t Transform) Mat4() mgl32.Mat4 {
	return common.ComposeTRS(t.Translation, t.Rotation, t.Scale)
}

// TransformFromMat4 decomposes a matrix into a Transform, assuming no shear.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - Transform: the decomposed transform
func TransformFromMat4(m mgl32.Mat4) Transform {
	t, r, s := common.DecomposeTRS(m)
	return Transform{Translation: t, Rotation: r, Scale: s}
}

// Bone represents a single skinned joint. Bones are owned by a Model and never mutated after load.
type Bone struct {
	// Name is the bone's identifier (for debugging and animation targeting).
	Name string

	// Index is the bone's slot in every per-bone buffer, in [0, MaxBones).
	Index int

	// Offset transforms from model space to bone space at bind pose (the inverse bind matrix).
	Offset mgl32.Mat4
}

// Node is one element of the rest-pose hierarchy. A Node may carry a Bone; nodes without one are
// structural and only pass their transform through to their children.
type Node struct {
	// Name is the node identifier.
	Name string

	// Transform is the node's rest transform relative to its parent.
	Transform Transform

	// Bone is the bone driven by this node, or nil for structural nodes.
	Bone *Bone

	// Children are the node's direct descendants in declaration order.
	Children []*Node
}

// NewNode creates a Node with the given rest transform, optional bone and children.
//
// Parameters:
//   - name: the node identifier
//   - transform: the rest local transform
//   - bone: the bone driven by this node, or nil
//   - children: the child nodes in order
//
// Returns:
//   - *Node: the new node
func NewNode(name string, transform Transform, bone *Bone, children ...*Node) *Node {
	return &Node{
		Name:      name,
		Transform: transform,
		Bone:      bone,
		Children:  children,
	}
}

// Walk visits n and its descendants in pre-order. Returning false from fn skips the subtree of
// the node it was called with.
//
// Parameters:
//   - fn: the visitor
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// --- Animation Types ---

// Behaviour describes how a track or clip is evaluated outside its keyed time range.
type Behaviour int

const (
	// BehaviourDefault leaves the rest value untouched outside the keyed range.
	BehaviourDefault Behaviour = iota

	// BehaviourConstant holds the nearest endpoint key.
	BehaviourConstant

	// BehaviourLinear clamps to the nearest endpoint key. Extrapolation past the range is not supported.
	BehaviourLinear

	// BehaviourRepeat wraps time back into the keyed range.
	BehaviourRepeat
)

var behaviourNames = map[Behaviour]string{
	BehaviourDefault:  "default",
	BehaviourConstant: "constant",
	BehaviourLinear:   "linear",
	BehaviourRepeat:   "repeat",
}

func (b Behaviour) String() string {
	if name, ok := behaviourNames[b]; ok {
		return name
	}
	return "unknown"
}

// ParseBehaviour maps a behaviour name back to its value. The empty string maps to BehaviourDefault.
//
// Parameters:
//   - name: the behaviour name
//
// Returns:
//   - Behaviour: the parsed behaviour
//   - bool: false if the name is not recognized
func ParseBehaviour(name string) (Behaviour, bool) {
	if name == "" {
		return BehaviourDefault, true
	}
	for b, n := range behaviourNames {
		if n == name {
			return b, true
		}
	}
	return BehaviourDefault, false
}

// Animation represents a single immutable clip (walk, run, attack, etc.) shared by every Animator
// that plays it.
type Animation struct {
	// Name is the animation identifier.
	Name string

	// Duration is the total length of the clip in ticks.
	Duration float32

	// TicksPerSecond is the sample rate of the clip. Non-positive values mean one tick per second.
	TicksPerSecond float32

	// Behaviour is the clip-level time behaviour. Only repeat (and default, evaluated as repeat) is supported.
	Behaviour Behaviour

	// Channels contains animation data for each animated bone.
	Channels []BoneAnimation
}

// Rate returns the effective ticks per second of the clip.
//
// Returns:
//   - float64: TicksPerSecond, or 1 when unset
func (a *Animation) Rate() float64 {
	if a.TicksPerSecond <= 0 {
		return 1
	}
	return float64(a.TicksPerSecond)
}

// Channel returns the channel animating bone, or nil if the clip leaves it at rest.
//
// Parameters:
//   - bone: the bone to look up
//
// Returns:
//   - *BoneAnimation: the channel or nil
func (a *Animation) Channel(bone *Bone) *BoneAnimation {
	for i := range a.Channels {
		if a.Channels[i].Bone == bone {
			return &a.Channels[i]
		}
	}
	return nil
}

// BoneAnimation contains the keyframe tracks for a single bone. Each track's times are in ticks
// and sorted ascending.
type BoneAnimation struct {
	// Bone is the bone this channel animates.
	Bone *Bone

	// PositionKeys are keyframes for translation.
	PositionKeys []VectorKeyframe

	// RotationKeys are keyframes for rotation.
	RotationKeys []QuaternionKeyframe

	// ScaleKeys are keyframes for scale.
	ScaleKeys []VectorKeyframe

	// PreState is the behaviour before the first key of each track.
	PreState Behaviour

	// PostState is the behaviour after the last key of each track.
	PostState Behaviour
}

// VectorKeyframe stores a 3D vector value at a specific time.
type VectorKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float32

	// Value is the 3D vector value at this keyframe.
	Value mgl32.Vec3
}

// QuaternionKeyframe stores a rotation at a specific time.
type QuaternionKeyframe struct {
	// Time is the keyframe timestamp in ticks.
	Time float32

	// Value is the unit quaternion at this keyframe.
	Value mgl32.Quat
}
