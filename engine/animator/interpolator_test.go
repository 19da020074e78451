package animator

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// newWalkClip returns a 30-tick, 30 ticks/s clip lifting hip to y=1 at tick 15 and back.
func newWalkClip(hip *model.Bone) *model.Animation {
	return &model.Animation{
		Name:           "walk",
		Duration:       30,
		TicksPerSecond: 30,
		Behaviour:      model.BehaviourRepeat,
		Channels: []model.BoneAnimation{{
			Bone: hip,
			PositionKeys: []model.VectorKeyframe{
				{Time: 0, Value: mgl32.Vec3{0, 0, 0}},
				{Time: 15, Value: mgl32.Vec3{0, 1, 0}},
				{Time: 30, Value: mgl32.Vec3{0, 0, 0}},
			},
			PreState:  model.BehaviourRepeat,
			PostState: model.BehaviourRepeat,
		}},
	}
}

func TestWalkScenario(t *testing.T) {
	hip := &model.Bone{Name: "hip", Index: 0, Offset: mgl32.Ident4()}
	walk := newWalkClip(hip)
	ip := NewInterpolator()
	rest := model.IdentityTransform()

	cases := []struct {
		name    string
		seconds float64
		want    mgl32.Vec3
	}{
		{"start", 0, mgl32.Vec3{0, 0, 0}},
		{"peak", 0.5, mgl32.Vec3{0, 1, 0}},
		{"wrapped_midway", 1.25, mgl32.Vec3{0, 0.5, 0}},
		{"negative_time", -0.5, mgl32.Vec3{0, 1, 0}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ticks, err := ip.TicksAt(walk, c.seconds)
			if err != nil {
				t.Fatalf("TicksAt: %v", err)
			}
			got := ip.SampleChannel(&walk.Channels[0], float32(ticks), rest)
			if !got.Translation.ApproxEqualThreshold(c.want, 1e-5) {
				t.Fatalf("translation at %vs = %v, want %v", c.seconds, got.Translation, c.want)
			}
			if got.Rotation != rest.Rotation || got.Scale != rest.Scale {
				t.Fatalf("unkeyed components must keep their rest value, got %+v", got)
			}
		})
	}
}

func TestSamplingIsPeriodic(t *testing.T) {
	hip := &model.Bone{Name: "hip", Index: 0}
	walk := newWalkClip(hip)
	ip := NewInterpolator()
	rest := model.IdentityTransform()

	for _, seconds := range []float64{0.01, 0.2, 0.37, 0.61, 0.99} {
		a, _ := ip.TicksAt(walk, seconds)
		b, _ := ip.TicksAt(walk, seconds+1)
		pa := ip.SampleChannel(&walk.Channels[0], float32(a), rest)
		pb := ip.SampleChannel(&walk.Channels[0], float32(b), rest)
		if !pa.Translation.ApproxEqualThreshold(pb.Translation, 1e-4) {
			t.Fatalf("t=%v: %v differs from one period later %v", seconds, pa.Translation, pb.Translation)
		}
	}
}

func TestSamplingAtKeyTimeReturnsKeyExactly(t *testing.T) {
	bone := &model.Bone{Name: "b", Index: 0}
	q0 := mgl32.QuatRotate(0.3, mgl32.Vec3{1, 0, 0})
	q1 := mgl32.QuatRotate(1.1, mgl32.Vec3{0, 0, 1})
	ch := model.BoneAnimation{
		Bone: bone,
		PositionKeys: []model.VectorKeyframe{
			{Time: 0.1, Value: mgl32.Vec3{0.3, 0.7, -1.9}},
			{Time: 0.7, Value: mgl32.Vec3{1.3, -0.2, 5.5}},
		},
		RotationKeys: []model.QuaternionKeyframe{
			{Time: 0.1, Value: q0},
			{Time: 0.7, Value: q1},
		},
		ScaleKeys: []model.VectorKeyframe{
			{Time: 0.1, Value: mgl32.Vec3{1, 2, 3}},
			{Time: 0.7, Value: mgl32.Vec3{3, 2, 1}},
		},
	}
	ip := NewInterpolator()

	for i, key := range ch.PositionKeys {
		got := ip.SampleChannel(&ch, key.Time, model.IdentityTransform())
		if got.Translation != key.Value {
			t.Fatalf("translation at key %d = %v, want %v", i, got.Translation, key.Value)
		}
		if got.Rotation != ch.RotationKeys[i].Value {
			t.Fatalf("rotation at key %d = %v, want %v", i, got.Rotation, ch.RotationKeys[i].Value)
		}
		if got.Scale != ch.ScaleKeys[i].Value {
			t.Fatalf("scale at key %d = %v, want %v", i, got.Scale, ch.ScaleKeys[i].Value)
		}
	}
}

func TestRotationMidpointIsHalfAngle(t *testing.T) {
	bone := &model.Bone{Name: "b", Index: 0}
	a := mgl32.QuatIdent()
	b := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 1, 0})
	ch := model.BoneAnimation{
		Bone: bone,
		RotationKeys: []model.QuaternionKeyframe{
			{Time: 0, Value: a},
			{Time: 10, Value: b},
		},
	}

	got := NewInterpolator().SampleChannel(&ch, 5, model.IdentityTransform()).Rotation
	if l := got.Len(); math.Abs(float64(l-1)) > 1e-5 {
		t.Fatalf("midpoint is not unit length: %v", l)
	}
	angle := 2 * math.Acos(math.Min(1, math.Abs(float64(a.Dot(got)))))
	if math.Abs(angle-math.Pi/4) > 1e-4 {
		t.Fatalf("angle from start = %v, want pi/4", angle)
	}
}

func TestEdgeBehaviours(t *testing.T) {
	bone := &model.Bone{Name: "b", Index: 0}
	keys := []model.VectorKeyframe{
		{Time: 10, Value: mgl32.Vec3{1, 0, 0}},
		{Time: 20, Value: mgl32.Vec3{3, 0, 0}},
	}
	rest := model.IdentityTransform()
	rest.Translation = mgl32.Vec3{9, 9, 9}

	cases := []struct {
		name      string
		pre, post model.Behaviour
		ticks     float32
		want      mgl32.Vec3
	}{
		{"default_before_keeps_rest", model.BehaviourDefault, model.BehaviourDefault, 5, rest.Translation},
		{"default_after_keeps_rest", model.BehaviourDefault, model.BehaviourDefault, 25, rest.Translation},
		{"constant_before_holds_first", model.BehaviourConstant, model.BehaviourConstant, 5, keys[0].Value},
		{"constant_after_holds_last", model.BehaviourConstant, model.BehaviourConstant, 25, keys[1].Value},
		{"linear_after_holds_last", model.BehaviourLinear, model.BehaviourLinear, 25, keys[1].Value},
		{"repeat_after_wraps", model.BehaviourDefault, model.BehaviourRepeat, 25, mgl32.Vec3{2, 0, 0}},
		{"repeat_before_wraps", model.BehaviourRepeat, model.BehaviourDefault, 5, mgl32.Vec3{2, 0, 0}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ch := model.BoneAnimation{Bone: bone, PositionKeys: keys, PreState: c.pre, PostState: c.post}
			got := NewInterpolator().SampleChannel(&ch, c.ticks, rest)
			if !got.Translation.ApproxEqualThreshold(c.want, 1e-5) {
				t.Fatalf("translation = %v, want %v", got.Translation, c.want)
			}
		})
	}
}

func TestMalformedTracksFallBack(t *testing.T) {
	bone := &model.Bone{Name: "b", Index: 0}
	rest := model.IdentityTransform()
	rest.Scale = mgl32.Vec3{4, 4, 4}

	t.Run("empty_tracks_keep_rest", func(t *testing.T) {
		ch := model.BoneAnimation{Bone: bone}
		got := NewInterpolator().SampleChannel(&ch, 3, rest)
		if got != rest {
			t.Fatalf("got %+v, want rest %+v", got, rest)
		}
	})

	t.Run("single_key_is_constant", func(t *testing.T) {
		ch := model.BoneAnimation{
			Bone:      bone,
			ScaleKeys: []model.VectorKeyframe{{Time: 2, Value: mgl32.Vec3{1, 1, 1}}},
		}
		got := NewInterpolator().SampleChannel(&ch, 2, rest)
		if got.Scale != (mgl32.Vec3{1, 1, 1}) {
			t.Fatalf("scale = %v", got.Scale)
		}
	})

	t.Run("descending_times_use_first_sample", func(t *testing.T) {
		ch := model.BoneAnimation{
			Bone: bone,
			PositionKeys: []model.VectorKeyframe{
				{Time: 0, Value: mgl32.Vec3{1, 0, 0}},
				{Time: 8, Value: mgl32.Vec3{2, 0, 0}},
				{Time: 4, Value: mgl32.Vec3{3, 0, 0}},
				{Time: 10, Value: mgl32.Vec3{4, 0, 0}},
			},
		}
		ip := NewInterpolator()
		got := ip.SampleChannel(&ch, 9, rest)
		if got.Translation != (mgl32.Vec3{1, 0, 0}) {
			t.Fatalf("translation = %v, want first sample", got.Translation)
		}
		// Diagnosed once per track.
		ip.SampleChannel(&ch, 9, rest)
		if len(ip.warned) != 3 {
			t.Fatalf("expected one diagnostic per track, got %d", len(ip.warned))
		}
	})
}

func TestTicksAtRejectsNonRepeatingClips(t *testing.T) {
	ip := NewInterpolator()
	for _, b := range []model.Behaviour{model.BehaviourDefault, model.BehaviourConstant, model.BehaviourLinear} {
		anim := &model.Animation{Name: "clip", Duration: 10, Behaviour: b}
		_, err := ip.TicksAt(anim, 1)
		if !errors.Is(err, ErrUnsupportedClipBehavior) {
			t.Fatalf("%s: expected ErrUnsupportedClipBehavior, got %v", b, err)
		}
	}

	anim := &model.Animation{Name: "clip", Duration: 10, Behaviour: model.BehaviourRepeat}
	ticks, err := ip.TicksAt(anim, 12)
	if err != nil {
		t.Fatalf("TicksAt: %v", err)
	}
	if ticks != 2 {
		t.Fatalf("ticks = %v, want 2 (rate defaults to 1 tick/s)", ticks)
	}
}
