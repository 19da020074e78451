package animator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/pkg/errors"
)

// Common errors returned by the animator package.
var (
	// ErrArity is matched by every *ArityError.
	ErrArity = errors.New("arity mismatch")
	// ErrUnsupportedClipBehavior is matched by every *UnsupportedClipBehaviorError.
	ErrUnsupportedClipBehavior = errors.New("unsupported clip behaviour")
	// ErrUnknownLayer is returned when a layer index is out of range.
	ErrUnknownLayer = errors.New("unknown layer")
)

// ArityError reports a list whose length does not match the number of layers it configures.
type ArityError struct {
	// What names the mismatched list ("weights", "poses").
	What string
	// Want is the expected length.
	Want int
	// Got is the length that was passed.
	Got int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: expected %d entries, got %d", e.What, e.Want, e.Got)
}

// Is lets errors.Is match the error against ErrArity.
func (e *ArityError) Is(target error) bool {
	return target == ErrArity
}

// UnsupportedClipBehaviorError reports a clip whose clip-level behaviour is not repeat.
type UnsupportedClipBehaviorError struct {
	// Animation is the clip name.
	Animation string
	// Behaviour is the requested clip-level behaviour.
	Behaviour model.Behaviour
}

func (e *UnsupportedClipBehaviorError) Error() string {
	return fmt.Sprintf("animation %q: clip behaviour %s is not supported, only repeat", e.Animation, e.Behaviour)
}

// Is lets errors.Is match the error against ErrUnsupportedClipBehavior.
func (e *UnsupportedClipBehaviorError) Is(target error) bool {
	return target == ErrUnsupportedClipBehavior
}
