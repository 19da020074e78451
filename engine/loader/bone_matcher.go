package loader

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// normalizeBoneName drops exporter namespaces ("mixamorig:Hips", "Armature|Hips"), case and
// separator characters so that the same joint exported by different tools compares equal.
func normalizeBoneName(name string) string {
	if i := strings.LastIndexAny(name, ":|"); i >= 0 {
		name = name[i+1:]
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '.':
			return -1
		}
		return r
	}, strings.ToLower(name))
}

// MatchBone finds the bone of m called name. An exact match wins; otherwise names are compared
// after normalization.
//
// Parameters:
//   - m: the model to search
//   - name: the bone name from a clip or document
//
// Returns:
//   - *model.Bone: the matched bone, or nil
func MatchBone(m model.Model, name string) *model.Bone {
	if b := m.BoneByName(name); b != nil {
		return b
	}
	want := normalizeBoneName(name)
	if want == "" {
		return nil
	}
	for _, b := range m.Bones() {
		if normalizeBoneName(b.Name) == want {
			return b
		}
	}
	return nil
}

// MatchClip copies anim with every channel re-pointed at the bone of target that carries the same
// name. Channels without a match are dropped. Keyframe slices are shared with anim.
//
// Parameters:
//   - anim: the source clip
//   - target: the model the copy is meant for
//
// Returns:
//   - *model.Animation: the rebound copy, not yet bound to target
func MatchClip(anim *model.Animation, target model.Model) *model.Animation {
	out := &model.Animation{
		Name:           anim.Name,
		Duration:       anim.Duration,
		TicksPerSecond: anim.TicksPerSecond,
		Behaviour:      anim.Behaviour,
		Channels:       make([]model.BoneAnimation, 0, len(anim.Channels)),
	}

	var dropped []string
	for _, ch := range anim.Channels {
		if ch.Bone == nil {
			continue
		}
		b := MatchBone(target, ch.Bone.Name)
		if b == nil {
			dropped = append(dropped, ch.Bone.Name)
			continue
		}
		ch.Bone = b
		out.Channels = append(out.Channels, ch)
	}

	if len(dropped) > 0 {
		common.LogWarn("clip channels without a matching bone were dropped", "clip", anim.Name, "target", target.Name(), "bones", dropped)
	}
	return out
}
