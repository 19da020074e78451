package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// Common errors returned by the model package.
var (
	// ErrBindValidation is matched by every *BindValidationError.
	ErrBindValidation = errors.New("animation does not match model")
	// ErrInvalidSkeleton is returned by NewModel when the bone list or node tree is inconsistent.
	ErrInvalidSkeleton = errors.New("invalid skeleton")
)

// BindValidationError reports a clip channel that references a bone the model does not own.
type BindValidationError struct {
	// Animation is the name of the clip being bound.
	Animation string
	// Model is the name of the model the clip was bound to.
	Model string
	// Channel is the index of the offending channel.
	Channel int
	// Bone is the name of the unknown bone, empty when the channel has no bone at all.
	Bone string
}

func (e *BindValidationError) Error() string {
	if e.Bone == "" {
		return fmt.Sprintf("animation %q channel %d: no bone assigned (model %q)", e.Animation, e.Channel, e.Model)
	}
	return fmt.Sprintf("animation %q channel %d: bone %q is not part of model %q", e.Animation, e.Channel, e.Bone, e.Model)
}

// Is lets errors.Is match the error against ErrBindValidation.
func (e *BindValidationError) Is(target error) bool {
	return target == ErrBindValidation
}
