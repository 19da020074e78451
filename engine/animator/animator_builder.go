package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithLayer is an option builder that appends a layer playing clip with the given blend mode.
// Options are applied in order, so the first WithLayer defines the base layer.
//
// Parameters:
//   - clip: the clip to play
//   - mode: the layer's blend mode
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the layer option to an animator
func WithLayer(clip *model.Animation, mode BlendMode) AnimatorBuilderOption {
	return func(a *animator) {
		if a.err != nil {
			return
		}
		_, a.err = a.AddLayer(clip, mode)
	}
}

// WithPlaybackSpeed is an option builder that sets the global playback speed multiplier.
//
// Parameters:
//   - speed: the speed multiplier (1.0 = normal)
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the speed option to an animator
func WithPlaybackSpeed(speed float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.speed = speed
	}
}

// WithAutoPlay is an option builder that starts the animator in the PLAYING state. The offset
// applies to every layer regardless of option order.
//
// Parameters:
//   - offset: the start offset in seconds
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the autoplay option to an animator
func WithAutoPlay(offset float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.autoPlay = true
		a.autoPlayFrom = offset
	}
}
