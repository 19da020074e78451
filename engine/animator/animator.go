package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// layer is the playback state of one clip contributing to an Animator.
type layer struct {
	clip    *model.Animation
	mode    BlendMode
	enabled bool
	speed   float32
	elapsed float64
	pose    Pose
}

// animator is the implementation of the Animator interface.
type animator struct {
	id    uuid.UUID
	model model.Model

	interp *Interpolator
	walker *Walker
	mixer  *AnimationMixer

	layers []*layer
	poses  []*Pose

	playing bool
	speed   float32

	// autoPlayFrom is the start offset requested by WithAutoPlay, applied once every layer is added.
	autoPlay     bool
	autoPlayFrom float64

	matrices SkinningMatrices

	// err holds the first error raised by a builder option.
	err error
}

// Animator defines the per-entity playback state machine.
//
// An Animator starts STOPPED. Play moves it to PLAYING, Stop back to STOPPED; there is no pause.
// Every Update while PLAYING advances each layer's elapsed time, samples every enabled layer through
// the Walker, blends the layer poses in the AnimationMixer and composes the result into a fixed
// buffer of model.MaxBones skinning matrices owned by the Animator.
//
// An Animator is not safe for concurrent use. Distinct Animators may be updated concurrently since
// they only share immutable model and clip data.
type Animator interface {
	// ID returns the unique identifier of this animator.
	//
	// Returns:
	//   - uuid.UUID: the animator id
	ID() uuid.UUID

	// Model retrieves the Model this animator is bound to.
	//
	// Returns:
	//   - model.Model: the bound model
	Model() model.Model

	// AddLayer binds clip to the model and appends a layer playing it with the given blend mode.
	// The first layer added is the base layer.
	//
	// Parameters:
	//   - clip: the clip to play
	//   - mode: Additive{Weight} or Overriding{Filter}
	//
	// Returns:
	//   - int: the new layer index
	//   - error: a *model.BindValidationError or *UnsupportedClipBehaviorError
	AddLayer(clip *model.Animation, mode BlendMode) (int, error)

	// LayerCount returns the number of layers.
	//
	// Returns:
	//   - int: the layer count
	LayerCount() int

	// SetLayerEnabled includes or excludes a layer from blending.
	//
	// Parameters:
	//   - index: the layer index
	//   - enabled: whether the layer contributes
	//
	// Returns:
	//   - error: ErrUnknownLayer if index is out of range
	SetLayerEnabled(index int, enabled bool) error

	// SetLayerPlaybackSpeed sets the speed multiplier of a single layer.
	//
	// Parameters:
	//   - index: the layer index
	//   - speed: the speed multiplier (1.0 = normal, negative plays backwards)
	//
	// Returns:
	//   - error: ErrUnknownLayer if index is out of range
	SetLayerPlaybackSpeed(index int, speed float32) error

	// SetPlaybackSpeed sets the global speed multiplier applied on top of every layer's own speed.
	//
	// Parameters:
	//   - speed: the speed multiplier
	SetPlaybackSpeed(speed float32)

	// PlaybackSpeed returns the global speed multiplier.
	//
	// Returns:
	//   - float32: the speed multiplier
	PlaybackSpeed() float32

	// SetWeights assigns raw weights to the additive layers in registration order.
	//
	// Parameters:
	//   - weights: one weight per additive layer
	//
	// Returns:
	//   - error: an *ArityError if the list size differs from the additive layer count
	SetWeights(weights []float32) error

	// Play starts playback from the beginning of every layer, restarting if already playing.
	Play()

	// PlayFrom starts playback with every layer's elapsed time set to offset.
	//
	// Parameters:
	//   - offset: the start offset in seconds
	PlayFrom(offset float64)

	// Stop halts playback, resets elapsed times and restores the rest pose.
	Stop()

	// SwitchPlaying toggles between Play and Stop.
	SwitchPlaying()

	// IsPlaying reports whether the animator is PLAYING.
	//
	// Returns:
	//   - bool: true while playing
	IsPlaying() bool

	// ElapsedTime returns the elapsed playback time of a layer in seconds.
	//
	// Parameters:
	//   - index: the layer index
	//
	// Returns:
	//   - float64: elapsed seconds
	//   - error: ErrUnknownLayer if index is out of range
	ElapsedTime(index int) (float64, error)

	// Update advances playback by deltaTime and refreshes the skinning matrices.
	// It does nothing while STOPPED.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	Update(deltaTime float32)

	// SkinningMatrices returns the owned matrix buffer. Its contents change on every Update.
	//
	// Returns:
	//   - *SkinningMatrices: the skinning matrices indexed by bone
	SkinningMatrices() *SkinningMatrices

	// MatrixBytes returns a byte view of the skinning matrices for buffer uploads.
	// WARNING: the slice shares memory with the animator's buffer.
	//
	// Returns:
	//   - []byte: column-major float32 matrices, model.MaxBones * 64 bytes
	MatrixBytes() []byte

	// Rebind builds a new Animator on m that continues this one's playback: every layer plays the
	// clip of m with the same name, keeping its blend mode, enabled flag, speed and elapsed time.
	// Overriding filters are remapped onto m's nodes by name. The receiver is left untouched.
	//
	// Parameters:
	//   - m: the replacement model, typically a hot-reloaded version of Model()
	//
	// Returns:
	//   - Animator: the new animator, with a new id
	//   - error: error if m lacks a clip played by a layer or a clip fails to bind
	Rebind(m model.Model) (Animator, error)
}

var _ Animator = &animator{}

// NewAnimator creates an Animator bound to m with the specified options applied.
// The skinning buffer starts at the rest pose.
//
// Parameters:
//   - m: the model to animate
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: the configured animator
//   - error: the first error raised while applying options
func NewAnimator(m model.Model, options ...AnimatorBuilderOption) (Animator, error) {
	if m == nil {
		return nil, errors.New("animator requires a model")
	}
	a := &animator{
		id:     uuid.New(),
		model:  m,
		interp: NewInterpolator(),
		speed:  1,
	}
	a.walker = NewWalker(m, a.interp)
	a.mixer = NewAnimationMixer(m, a.walker.RestPose())

	for _, opt := range options {
		opt(a)
	}
	if a.err != nil {
		return nil, a.err
	}
	if a.autoPlay {
		a.PlayFrom(a.autoPlayFrom)
	}

	a.walker.Compose(a.walker.RestPose(), &a.matrices)
	if a.playing {
		a.evaluate()
	}
	return a, nil
}

func (a *animator) ID() uuid.UUID {
	return a.id
}

func (a *animator) Model() model.Model {
	return a.model
}

func (a *animator) AddLayer(clip *model.Animation, mode BlendMode) (int, error) {
	if clip == nil {
		return -1, errors.New("layer requires a clip")
	}
	if mode == nil {
		mode = Additive{Weight: 1}
	}
	if err := ValidateClip(clip); err != nil {
		return -1, err
	}
	if err := a.model.BindAnimation(clip); err != nil {
		return -1, errors.Wrapf(err, "animator %s", a.id)
	}

	a.layers = append(a.layers, &layer{
		clip:    clip,
		mode:    mode,
		enabled: true,
		speed:   1,
	})
	a.poses = append(a.poses, nil)
	idx := a.mixer.AddLayer(mode)

	common.LogDebug("layer added", "animator", a.id, "layer", idx, "clip", clip.Name)
	return idx, nil
}

func (a *animator) LayerCount() int {
	return len(a.layers)
}

func (a *animator) layer(index int) (*layer, error) {
	if index < 0 || index >= len(a.layers) {
		return nil, errors.Wrapf(ErrUnknownLayer, "layer %d of %d", index, len(a.layers))
	}
	return a.layers[index], nil
}

func (a *animator) SetLayerEnabled(index int, enabled bool) error {
	l, err := a.layer(index)
	if err != nil {
		return err
	}
	l.enabled = enabled
	return nil
}

func (a *animator) SetLayerPlaybackSpeed(index int, speed float32) error {
	l, err := a.layer(index)
	if err != nil {
		return err
	}
	l.speed = speed
	return nil
}

func (a *animator) SetPlaybackSpeed(speed float32) {
	a.speed = speed
}

func (a *animator) PlaybackSpeed() float32 {
	return a.speed
}

func (a *animator) SetWeights(weights []float32) error {
	return a.mixer.SetWeights(weights)
}

func (a *animator) Play() {
	a.PlayFrom(0)
}

func (a *animator) PlayFrom(offset float64) {
	for _, l := range a.layers {
		l.elapsed = offset
	}
	a.playing = true
}

func (a *animator) Stop() {
	for _, l := range a.layers {
		l.elapsed = 0
	}
	a.playing = false
	a.walker.Compose(a.walker.RestPose(), &a.matrices)
}

func (a *animator) SwitchPlaying() {
	if a.playing {
		a.Stop()
		return
	}
	a.Play()
}

func (a *animator) IsPlaying() bool {
	return a.playing
}

func (a *animator) ElapsedTime(index int) (float64, error) {
	l, err := a.layer(index)
	if err != nil {
		return 0, err
	}
	return l.elapsed, nil
}

func (a *animator) Update(deltaTime float32) {
	if !a.playing {
		return
	}
	for _, l := range a.layers {
		l.elapsed += float64(deltaTime) * float64(l.speed) * float64(a.speed)
	}
	a.evaluate()
}

// evaluate samples every enabled layer at its elapsed time, mixes the layer poses and composes
// the blended pose into the skinning buffer. No allocation happens here.
func (a *animator) evaluate() {
	for i, l := range a.layers {
		a.poses[i] = nil
		if !l.enabled {
			continue
		}
		ticks, err := a.interp.TicksAt(l.clip, l.elapsed)
		if err != nil {
			common.LogError("skipping layer", "animator", a.id, "layer", i, "err", err)
			continue
		}
		a.walker.Sample(l.clip, float32(ticks), &l.pose)
		a.poses[i] = &l.pose
	}

	blended, err := a.mixer.Mix(a.poses)
	if err != nil {
		common.LogError("mix failed, keeping previous frame", "animator", a.id, "err", err)
		return
	}
	a.walker.Compose(blended, &a.matrices)
}

func (a *animator) SkinningMatrices() *SkinningMatrices {
	return &a.matrices
}

func (a *animator) MatrixBytes() []byte {
	return common.SliceToBytes(a.matrices[:])
}

func (a *animator) Rebind(m model.Model) (Animator, error) {
	if m == nil {
		return nil, errors.New("rebind requires a model")
	}

	weights := a.mixer.Weights()
	next := 0
	options := make([]AnimatorBuilderOption, 0, len(a.layers)+1)
	for _, l := range a.layers {
		clip := m.AnimationByName(l.clip.Name)
		if clip == nil {
			return nil, errors.Errorf("model %q has no clip %q", m.Name(), l.clip.Name)
		}
		mode := l.mode
		switch bm := l.mode.(type) {
		case Additive:
			mode = Additive{Weight: weights[next]}
			next++
		case Overriding:
			if bm.Filter != nil {
				mode = Overriding{Filter: bm.Filter.Remap(m.Root())}
			}
		}
		options = append(options, WithLayer(clip, mode))
	}
	options = append(options, WithPlaybackSpeed(a.speed))

	out, err := NewAnimator(m, options...)
	if err != nil {
		return nil, err
	}

	rebound := out.(*animator)
	for i, l := range a.layers {
		nl := rebound.layers[i]
		nl.enabled = l.enabled
		nl.speed = l.speed
		nl.elapsed = l.elapsed
	}
	if a.playing {
		rebound.playing = true
		rebound.evaluate()
	}
	return rebound, nil
}
