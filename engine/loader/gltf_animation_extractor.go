package loader

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	doc *gltf.Document
}

// gltfAnimationExtractor defines the interface for extracting animation data from a decoded glTF document.
// It converts glTF animation definitions into clips whose channels point at the bones of a
// previously extracted skeleton. glTF timestamps are seconds, so clips run at one tick per second.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//   - sk: the skeleton whose bones the channels target
	//
	// Returns:
	//   - *model.Animation: the extracted clip
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int, sk *gltfSkeleton) (*model.Animation, error)

	// ExtractAllAnimations extracts every animation that animates at least one bone of sk.
	//
	// Parameters:
	//   - sk: the skeleton whose bones the channels target
	//
	// Returns:
	//   - []*model.Animation: the extracted clips
	//   - error: error if extraction fails
	ExtractAllAnimations(sk *gltfSkeleton) ([]*model.Animation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded glTF document
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(doc *gltf.Document) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{doc: doc}
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int, sk *gltfSkeleton) (*model.Animation, error) {
	doc := e.doc
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, errors.Errorf("animation index %d out of range", animIndex)
	}

	anim := doc.Animations[animIndex]
	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation_%d", animIndex)
	}

	// channelMap merges translation/rotation/scale channels of the same bone.
	channelMap := make(map[*model.Bone]*model.BoneAnimation)
	var maxTime float32
	stepWarned := false

	for i, ch := range anim.Channels {
		// Skip channels with no target node (e.g. morph targets)
		nodeIndex, ok := gltfIndex(ch.Target.Node)
		if !ok {
			continue
		}
		bone := sk.nodeBones[nodeIndex]
		if bone == nil {
			common.LogDebug("skipping channel on a node outside the skeleton", "animation", name, "node", nodeIndex)
			continue
		}
		if ch.Target.Path == gltf.TRSWeights {
			continue
		}

		samplerIndex, ok := gltfIndex(ch.Sampler)
		if !ok || samplerIndex < 0 || samplerIndex >= len(anim.Samplers) {
			return nil, errors.Errorf("animation %q channel %d: invalid sampler", name, i)
		}
		sampler := anim.Samplers[samplerIndex]
		input, okIn := gltfIndex(sampler.Input)
		output, okOut := gltfIndex(sampler.Output)
		if !okIn || !okOut {
			return nil, errors.Errorf("animation %q channel %d: sampler %d lacks input or output", name, i, samplerIndex)
		}

		timestamps, err := gltfReadFloats(doc, input)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %q channel %d: failed to read timestamps", name, i)
		}
		if n := len(timestamps); n > 0 && timestamps[n-1] > maxTime {
			maxTime = timestamps[n-1]
		}

		stride := 1
		switch sampler.Interpolation {
		case gltf.InterpolationCubicSpline:
			// Outputs are (in-tangent, value, out-tangent) triples; only the values are kept.
			stride = 3
		case gltf.InterpolationStep:
			if !stepWarned {
				common.LogWarn("step interpolation is evaluated as linear", "animation", name)
				stepWarned = true
			}
		}

		animCh, exists := channelMap[bone]
		if !exists {
			animCh = &model.BoneAnimation{
				Bone:      bone,
				PreState:  model.BehaviourConstant,
				PostState: model.BehaviourConstant,
			}
			channelMap[bone] = animCh
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			values, err := gltfReadVec3s(doc, output)
			if err != nil {
				return nil, errors.Wrapf(err, "animation %q channel %d: failed to read values", name, i)
			}
			keys := make([]model.VectorKeyframe, min(len(timestamps), len(values)/stride))
			for j := range keys {
				keys[j] = model.VectorKeyframe{Time: timestamps[j], Value: values[j*stride+stride/2]}
			}
			if ch.Target.Path == gltf.TRSTranslation {
				animCh.PositionKeys = keys
			} else {
				animCh.ScaleKeys = keys
			}

		case gltf.TRSRotation:
			values, err := gltfReadQuats(doc, output)
			if err != nil {
				return nil, errors.Wrapf(err, "animation %q channel %d: failed to read rotation values", name, i)
			}
			keys := make([]model.QuaternionKeyframe, min(len(timestamps), len(values)/stride))
			for j := range keys {
				keys[j] = model.QuaternionKeyframe{Time: timestamps[j], Value: values[j*stride+stride/2]}
			}
			animCh.RotationKeys = keys
		}
	}

	// Flatten in bone order so the clip layout is deterministic.
	channels := make([]model.BoneAnimation, 0, len(channelMap))
	for _, ch := range channelMap {
		channels = append(channels, *ch)
	}
	sort.Slice(channels, func(a, b int) bool { return channels[a].Bone.Index < channels[b].Bone.Index })

	return &model.Animation{
		Name:           name,
		Duration:       maxTime,
		TicksPerSecond: 1,
		Behaviour:      model.BehaviourRepeat,
		Channels:       channels,
	}, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations(sk *gltfSkeleton) ([]*model.Animation, error) {
	var clips []*model.Animation
	for i := range e.doc.Animations {
		clip, err := e.ExtractAnimation(i, sk)
		if err != nil {
			return nil, err
		}
		if len(clip.Channels) == 0 {
			common.LogDebug("animation does not move the skeleton", "animation", clip.Name)
			continue
		}
		clips = append(clips, clip)
	}
	return clips, nil
}
