package animator

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// trackKind identifies one of the three keyframe tracks of a channel.
type trackKind int

const (
	trackPosition trackKind = iota
	trackRotation
	trackScale
)

func (k trackKind) String() string {
	switch k {
	case trackPosition:
		return "position"
	case trackRotation:
		return "rotation"
	default:
		return "scale"
	}
}

// trackID keys the once-per-track diagnostics.
type trackID struct {
	channel *model.BoneAnimation
	kind    trackKind
}

// lookup is the outcome of locating a query time within a track.
type lookup int

const (
	// lookupRest keeps the caller's rest value.
	lookupRest lookup = iota
	// lookupExact uses a single key verbatim.
	lookupExact
	// lookupPair interpolates between two keys.
	lookupPair
)

// Interpolator samples clip channels at a query time. It is not safe for concurrent use; every
// Animator owns its own.
type Interpolator struct {
	warned map[trackID]struct{}
	sorted map[trackID]bool
}

// NewInterpolator creates an Interpolator.
//
// Returns:
//   - *Interpolator: the interpolator
func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// ValidateClip checks that the clip-level behaviour of anim can be evaluated.
// Repeat is the only supported behaviour.
//
// Parameters:
//   - anim: the clip to check
//
// Returns:
//   - error: an *UnsupportedClipBehaviorError for any other clip behaviour
func ValidateClip(anim *model.Animation) error {
	if anim.Behaviour != model.BehaviourRepeat {
		return &UnsupportedClipBehaviorError{Animation: anim.Name, Behaviour: anim.Behaviour}
	}
	return nil
}

// TicksAt converts a playback time in seconds into clip ticks wrapped into [0, duration).
//
// Parameters:
//   - anim: the clip being played
//   - seconds: the elapsed playback time, may be negative
//
// Returns:
//   - float64: the wrapped tick time
//   - error: an *UnsupportedClipBehaviorError if the clip does not repeat
func (ip *Interpolator) TicksAt(anim *model.Animation, seconds float64) (float64, error) {
	if err := ValidateClip(anim); err != nil {
		return 0, err
	}
	return common.WrapFloat(seconds*anim.Rate(), float64(anim.Duration)), nil
}

// SampleChannel evaluates every track of ch at ticks. Components whose track is empty, or whose
// edge behaviour is default outside the keyed range, keep the value from rest.
//
// Parameters:
//   - ch: the channel to sample
//   - ticks: the query time in ticks
//   - rest: the bone's rest transform
//
// Returns:
//   - model.Transform: the sampled local transform
func (ip *Interpolator) SampleChannel(ch *model.BoneAnimation, ticks float32, rest model.Transform) model.Transform {
	out := rest

	if i, f, res := ip.locate(ch, trackPosition, len(ch.PositionKeys), func(k int) float32 { return ch.PositionKeys[k].Time }, ticks); res != lookupRest {
		out.Translation = ch.PositionKeys[i].Value
		if res == lookupPair {
			out.Translation = common.Lerp3(ch.PositionKeys[i].Value, ch.PositionKeys[i+1].Value, f)
		}
	}

	if i, f, res := ip.locate(ch, trackRotation, len(ch.RotationKeys), func(k int) float32 { return ch.RotationKeys[k].Time }, ticks); res != lookupRest {
		out.Rotation = ch.RotationKeys[i].Value
		if res == lookupPair {
			out.Rotation = common.Slerp(ch.RotationKeys[i].Value, ch.RotationKeys[i+1].Value, f)
		}
	}

	if i, f, res := ip.locate(ch, trackScale, len(ch.ScaleKeys), func(k int) float32 { return ch.ScaleKeys[k].Time }, ticks); res != lookupRest {
		out.Scale = ch.ScaleKeys[i].Value
		if res == lookupPair {
			out.Scale = common.Lerp3(ch.ScaleKeys[i].Value, ch.ScaleKeys[i+1].Value, f)
		}
	}

	return out
}

// locate finds the key (or key pair) to use for time t in a track of n keys.
// For lookupPair the result is the pair [i, i+1] and interpolation factor f.
func (ip *Interpolator) locate(ch *model.BoneAnimation, kind trackKind, n int, timeAt func(int) float32, t float32) (int, float32, lookup) {
	if n == 0 {
		ip.diagnoseOnce(ch, kind, false, "empty keyframe track, keeping rest value")
		return 0, 0, lookupRest
	}

	if n > 1 && !ip.ascending(ch, kind, n, timeAt) {
		ip.diagnoseOnce(ch, kind, true, "keyframe times are not ascending, using first sample")
		return 0, 0, lookupExact
	}

	first, last := timeAt(0), timeAt(n-1)
	switch {
	case t < first:
		switch ch.PreState {
		case model.BehaviourDefault:
			return 0, 0, lookupRest
		case model.BehaviourRepeat:
			t = wrapInto(t, first, last)
		default:
			return 0, 0, lookupExact
		}
	case t > last:
		switch ch.PostState {
		case model.BehaviourDefault:
			return 0, 0, lookupRest
		case model.BehaviourRepeat:
			t = wrapInto(t, first, last)
		default:
			return n - 1, 0, lookupExact
		}
	}

	if n == 1 {
		return 0, 0, lookupExact
	}

	j := sort.Search(n, func(k int) bool { return timeAt(k) >= t })
	if j < n && timeAt(j) == t {
		return j, 0, lookupExact
	}
	if j == 0 || j == n {
		ip.diagnoseOnce(ch, kind, true, "no bracketing keyframes, using first sample")
		return 0, 0, lookupExact
	}

	t0, t1 := timeAt(j-1), timeAt(j)
	return j - 1, (t - t0) / (t1 - t0), lookupPair
}

// ascending reports whether the key times of a track strictly increase. The result is cached per
// track since clips are immutable once bound.
func (ip *Interpolator) ascending(ch *model.BoneAnimation, kind trackKind, n int, timeAt func(int) float32) bool {
	id := trackID{channel: ch, kind: kind}
	if ok, seen := ip.sorted[id]; seen {
		return ok
	}
	ok := true
	for k := 1; k < n; k++ {
		if !(timeAt(k) > timeAt(k-1)) {
			ok = false
			break
		}
	}
	if ip.sorted == nil {
		ip.sorted = make(map[trackID]bool)
	}
	ip.sorted[id] = ok
	return ok
}

// wrapInto wraps t into the track range [first, last].
func wrapInto(t, first, last float32) float32 {
	span := float64(last - first)
	if span <= 0 {
		return first
	}
	return first + float32(common.WrapFloat(float64(t-first), span))
}

// diagnoseOnce logs a sampling anomaly the first time it is seen for a track. Empty tracks are
// common in imported clips (rotation-only channels) and only reach the debug level.
func (ip *Interpolator) diagnoseOnce(ch *model.BoneAnimation, kind trackKind, warn bool, msg string) {
	id := trackID{channel: ch, kind: kind}
	if _, seen := ip.warned[id]; seen {
		return
	}
	if ip.warned == nil {
		ip.warned = make(map[trackID]struct{})
	}
	ip.warned[id] = struct{}{}

	bone := ""
	if ch.Bone != nil {
		bone = ch.Bone.Name
	}
	if warn {
		common.LogWarn(msg, "bone", bone, "track", kind.String())
		return
	}
	common.LogDebug(msg, "bone", bone, "track", kind.String())
}

