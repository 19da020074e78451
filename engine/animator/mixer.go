package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// mixerLayer is the mixer's view of one registered layer.
type mixerLayer struct {
	mode   BlendMode
	weight float32
	// mask marks the bone slots an overriding layer may replace.
	mask [model.MaxBones]bool
}

// AnimationMixer blends one pose per registered layer into a single pose. Layer 0 is the base and
// seeds the result; later layers are applied in registration order according to their BlendMode.
// The output pose is owned by the mixer and reused across calls.
type AnimationMixer struct {
	model     model.Model
	rest      *Pose
	boneSlots []int
	layers    []mixerLayer
	out       Pose
}

// NewAnimationMixer creates a mixer for poses of m. rest is used when the base layer has no pose.
//
// Parameters:
//   - m: the model whose bones are blended
//   - rest: the rest pose of m
//
// Returns:
//   - *AnimationMixer: the mixer
func NewAnimationMixer(m model.Model, rest *Pose) *AnimationMixer {
	mx := &AnimationMixer{model: m, rest: rest}
	for _, b := range m.Bones() {
		mx.boneSlots = append(mx.boneSlots, b.Index)
	}
	return mx
}

// AddLayer registers a layer and returns its index. Overriding filters are resolved to bone slots
// here, so the filter is never consulted per frame.
//
// Parameters:
//   - mode: the layer's blend mode
//
// Returns:
//   - int: the layer index
func (mx *AnimationMixer) AddLayer(mode BlendMode) int {
	l := mixerLayer{mode: mode}
	switch m := mode.(type) {
	case Additive:
		l.weight = nonNegative(m.Weight)
	case Overriding:
		for _, slot := range mx.boneSlots {
			l.mask[slot] = m.Filter == nil || m.Filter.Allows(mx.model.NodeForBone(slot))
		}
	}
	mx.layers = append(mx.layers, l)
	return len(mx.layers) - 1
}

// LayerCount returns the number of registered layers.
func (mx *AnimationMixer) LayerCount() int {
	return len(mx.layers)
}

// AdditiveCount returns the number of registered additive layers.
func (mx *AnimationMixer) AdditiveCount() int {
	n := 0
	for i := range mx.layers {
		if _, ok := mx.layers[i].mode.(Additive); ok {
			n++
		}
	}
	return n
}

// Weights returns the raw (not renormalized) weights of the additive layers in registration order.
func (mx *AnimationMixer) Weights() []float32 {
	var out []float32
	for i := range mx.layers {
		if _, ok := mx.layers[i].mode.(Additive); ok {
			out = append(out, mx.layers[i].weight)
		}
	}
	return out
}

// SetWeights assigns raw weights to the additive layers in registration order. Negative weights
// count as zero.
//
// Parameters:
//   - weights: one weight per additive layer
//
// Returns:
//   - error: an *ArityError if the list size differs from the additive layer count
func (mx *AnimationMixer) SetWeights(weights []float32) error {
	if want := mx.AdditiveCount(); len(weights) != want {
		return &ArityError{What: "weights", Want: want, Got: len(weights)}
	}
	k := 0
	for i := range mx.layers {
		if _, ok := mx.layers[i].mode.(Additive); ok {
			mx.layers[i].weight = nonNegative(weights[k])
			k++
		}
	}
	return nil
}

// Mix blends poses, one per registered layer, into the mixer's output pose. A nil entry marks a
// layer that does not contribute this frame; a nil base layer falls back to the rest pose.
//
// Parameters:
//   - poses: one pose per layer, in registration order
//
// Returns:
//   - *Pose: the blended pose, owned by the mixer and valid until the next call
//   - error: an *ArityError if len(poses) differs from the layer count
func (mx *AnimationMixer) Mix(poses []*Pose) (*Pose, error) {
	if len(poses) != len(mx.layers) {
		return nil, &ArityError{What: "poses", Want: len(mx.layers), Got: len(poses)}
	}

	mx.out = *mx.rest
	if len(poses) == 0 {
		return &mx.out, nil
	}
	if poses[0] != nil {
		mx.out = *poses[0]
	}

	var total float32
	for i, p := range poses {
		if _, ok := mx.layers[i].mode.(Additive); ok && p != nil {
			total += mx.layers[i].weight
		}
	}

	for i := 1; i < len(poses); i++ {
		p := poses[i]
		if p == nil {
			continue
		}
		l := &mx.layers[i]
		switch m := l.mode.(type) {
		case Additive:
			if total <= 0 || l.weight == 0 {
				continue
			}
			w := l.weight / total
			for _, slot := range mx.boneSlots {
				mx.out[slot] = blendTransform(mx.out[slot], p[slot], w)
			}
		case Overriding:
			for _, slot := range mx.boneSlots {
				if l.mask[slot] {
					mx.out[slot] = p[slot]
				}
			}
		default:
			common.LogError("unknown blend mode", "layer", i, "mode", m)
		}
	}

	return &mx.out, nil
}

// blendTransform interpolates every component of a toward b by f.
func blendTransform(a, b model.Transform, f float32) model.Transform {
	return model.Transform{
		Translation: common.Lerp3(a.Translation, b.Translation, f),
		Rotation:    common.Slerp(a.Rotation, b.Rotation, f),
		Scale:       common.Lerp3(a.Scale, b.Scale, f),
	}
}

func nonNegative(v float32) float32 {
	if v < 0 {
		return 0
	}
	return v
}
