package animator

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func hipHeight(a Animator) float32 {
	return a.SkinningMatrices()[0].Col(3)[1]
}

func TestAnimatorStateMachine(t *testing.T) {
	m, hip := newHipRig(t)
	a, err := NewAnimator(m, WithLayer(newWalkClip(hip), nil))
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}

	if a.IsPlaying() {
		t.Fatalf("new animator should be stopped")
	}
	a.Update(0.5)
	if e, _ := a.ElapsedTime(0); e != 0 {
		t.Fatalf("Update while stopped advanced time to %v", e)
	}

	a.Play()
	if !a.IsPlaying() {
		t.Fatalf("Play should start playback")
	}
	a.Update(0.25)
	if e, _ := a.ElapsedTime(0); e != 0.25 {
		t.Fatalf("elapsed = %v, want 0.25", e)
	}

	a.SwitchPlaying()
	if a.IsPlaying() {
		t.Fatalf("SwitchPlaying should stop a playing animator")
	}
	if e, _ := a.ElapsedTime(0); e != 0 {
		t.Fatalf("Stop should reset elapsed time, got %v", e)
	}

	a.SwitchPlaying()
	if !a.IsPlaying() {
		t.Fatalf("SwitchPlaying should start a stopped animator")
	}

	a.PlayFrom(0.75)
	if e, _ := a.ElapsedTime(0); e != 0.75 {
		t.Fatalf("PlayFrom elapsed = %v, want 0.75", e)
	}

	if _, err := a.ElapsedTime(3); !errors.Is(err, ErrUnknownLayer) {
		t.Fatalf("expected ErrUnknownLayer, got %v", err)
	}
}

func TestAnimatorWalkCycle(t *testing.T) {
	m, hip := newHipRig(t)
	a, err := NewAnimator(m, WithLayer(newWalkClip(hip), Additive{Weight: 1}))
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}

	a.Play()
	steps := []struct {
		dt   float32
		want float32
	}{
		{0.5, 1},
		{0.75, 0.5},
		{0.75, 0},
	}
	for i, s := range steps {
		a.Update(s.dt)
		if got := hipHeight(a); !mgl32.FloatEqualThreshold(got, s.want, 1e-5) {
			t.Fatalf("step %d: hip height %v, want %v", i, got, s.want)
		}
	}
}

func TestAnimatorPlaybackSpeed(t *testing.T) {
	m, hip := newHipRig(t)
	a, err := NewAnimator(m, WithLayer(newWalkClip(hip), nil), WithPlaybackSpeed(2))
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}
	if err := a.SetLayerPlaybackSpeed(0, 0.5); err != nil {
		t.Fatalf("SetLayerPlaybackSpeed: %v", err)
	}

	a.Play()
	a.Update(0.5)
	if e, _ := a.ElapsedTime(0); e != 0.5 {
		t.Fatalf("elapsed = %v, want 0.5 (2 * 0.5 * 0.5s)", e)
	}
	if a.PlaybackSpeed() != 2 {
		t.Fatalf("PlaybackSpeed = %v", a.PlaybackSpeed())
	}
	if err := a.SetLayerPlaybackSpeed(1, 1); !errors.Is(err, ErrUnknownLayer) {
		t.Fatalf("expected ErrUnknownLayer, got %v", err)
	}
}

func TestAnimatorStopRestoresRestPose(t *testing.T) {
	m, hip := newHipRig(t)
	a, err := NewAnimator(m, WithLayer(newWalkClip(hip), nil), WithAutoPlay(0.5))
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}
	if !a.IsPlaying() {
		t.Fatalf("WithAutoPlay should start playback")
	}
	if got := hipHeight(a); !mgl32.FloatEqualThreshold(got, 1, 1e-5) {
		t.Fatalf("autoplay offset not applied: hip height %v", got)
	}

	a.Stop()
	for i, mat := range a.SkinningMatrices() {
		if !mat.ApproxEqualThreshold(mgl32.Ident4(), 1e-6) {
			t.Fatalf("slot %d not at rest after Stop: %v", i, mat)
		}
	}
}

func TestAutoPlayOffsetsLaterLayers(t *testing.T) {
	m, hip := newHipRig(t)
	a, err := NewAnimator(m, WithAutoPlay(0.5), WithLayer(newWalkClip(hip), nil))
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}
	if e, _ := a.ElapsedTime(0); e != 0.5 {
		t.Fatalf("elapsed = %v, want 0.5", e)
	}
	if got := hipHeight(a); !mgl32.FloatEqualThreshold(got, 1, 1e-5) {
		t.Fatalf("hip height %v, want 1", got)
	}
}

func TestAnimatorDisabledLayer(t *testing.T) {
	m, hip := newHipRig(t)
	a, err := NewAnimator(m, WithLayer(newWalkClip(hip), nil))
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}
	if err := a.SetLayerEnabled(0, false); err != nil {
		t.Fatalf("SetLayerEnabled: %v", err)
	}
	a.Play()
	a.Update(0.5)
	if got := hipHeight(a); got != 0 {
		t.Fatalf("disabled base layer should leave the rest pose, hip height %v", got)
	}
}

func TestAnimatorRejectsBadLayers(t *testing.T) {
	m, hip := newHipRig(t)
	a, err := NewAnimator(m)
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}

	foreign := &model.Bone{Name: "hip", Index: 0}
	bad := newWalkClip(foreign)
	bad.Name = "foreign-walk"
	if _, err := a.AddLayer(bad, nil); !errors.Is(err, model.ErrBindValidation) {
		t.Fatalf("expected ErrBindValidation, got %v", err)
	}
	if a.LayerCount() != 0 || m.IsBound(bad) {
		t.Fatalf("failed AddLayer must leave the animator and model unchanged")
	}

	for _, b := range []model.Behaviour{model.BehaviourDefault, model.BehaviourConstant} {
		clip := newWalkClip(hip)
		clip.Behaviour = b
		if _, err := a.AddLayer(clip, nil); !errors.Is(err, ErrUnsupportedClipBehavior) {
			t.Fatalf("%s: expected ErrUnsupportedClipBehavior, got %v", b, err)
		}
	}

	if _, err := NewAnimator(m, WithLayer(bad, nil)); err == nil {
		t.Fatalf("NewAnimator should surface option errors")
	}
}

func TestAnimatorWeightsArity(t *testing.T) {
	m, hip := newHipRig(t)
	walk := newWalkClip(hip)
	a, err := NewAnimator(m,
		WithLayer(walk, Additive{Weight: 1}),
		WithLayer(walk, Overriding{}),
		WithLayer(walk, Additive{Weight: 1}),
	)
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}
	if a.LayerCount() != 3 {
		t.Fatalf("LayerCount = %d", a.LayerCount())
	}
	if err := a.SetWeights([]float32{1, 1, 1}); !errors.Is(err, ErrArity) {
		t.Fatalf("expected ErrArity, got %v", err)
	}
	if err := a.SetWeights([]float32{1, 3}); err != nil {
		t.Fatalf("SetWeights: %v", err)
	}
}

func TestMatrixBytes(t *testing.T) {
	m, _ := newHipRig(t)
	a, err := NewAnimator(m)
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}
	if got := len(a.MatrixBytes()); got != model.MaxBones*64 {
		t.Fatalf("MatrixBytes length = %d, want %d", got, model.MaxBones*64)
	}
	if a.ID() == uuid.Nil || a.Model() != m {
		t.Fatalf("animator should carry an id and its model")
	}
}

func TestAnimatorRebind(t *testing.T) {
	m, hip := newHipRig(t)
	walk := newWalkClip(hip)
	a, err := NewAnimator(m, WithLayer(walk, Additive{Weight: 2}), WithPlaybackSpeed(0.5))
	if err != nil {
		t.Fatalf("NewAnimator: %v", err)
	}
	a.Play()
	a.Update(1) // 0.5s of clip time

	reloaded, newHip := newHipRig(t)
	if _, err := a.Rebind(reloaded); err == nil {
		t.Fatalf("Rebind should fail while the new model lacks the walk clip")
	}
	if err := reloaded.BindAnimation(newWalkClip(newHip)); err != nil {
		t.Fatalf("BindAnimation: %v", err)
	}

	b, err := a.Rebind(reloaded)
	if err != nil {
		t.Fatalf("Rebind: %v", err)
	}
	if b.ID() == a.ID() || b.Model() != reloaded || a.Model() != m {
		t.Fatalf("Rebind must return a new animator on the new model")
	}
	if !b.IsPlaying() || b.PlaybackSpeed() != 0.5 {
		t.Fatalf("playback state not carried over")
	}
	if e, _ := b.ElapsedTime(0); e != 0.5 {
		t.Fatalf("elapsed = %v, want 0.5", e)
	}
	if got := hipHeight(b); !mgl32.FloatEqualThreshold(got, 1, 1e-5) {
		t.Fatalf("rebound hip height %v, want 1", got)
	}
	if w := b.(*animator).mixer.Weights(); len(w) != 1 || w[0] != 2 {
		t.Fatalf("weights = %v, want [2]", w)
	}
}
