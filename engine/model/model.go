package model

import (
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// model is the implementation of the Model interface.
type model struct {
	name  string
	root  *Node
	bones []*Bone

	boneSet      map[*Bone]struct{}
	boneByName   map[string]*Bone
	nodeForBone  [MaxBones]*Node
	globalInvert mgl32.Mat4

	mu         sync.RWMutex
	pending    []*Animation
	animations []*Animation
	bound      map[*Animation]struct{}
}

// Model defines the interface for a loaded, immutable skeleton: an ordered bone list, a rooted
// rest-pose node tree, and the set of clips that passed bind-time validation against it.
// A Model is shared read-only by every Animator bound to it.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Root retrieves the root of the rest-pose node tree.
	//
	// Returns:
	//   - *Node: the root node
	Root() *Node

	// Bones retrieves the bones ordered by index.
	//
	// Returns:
	//   - []*Bone: the bone list
	Bones() []*Bone

	// BoneByName looks up a bone by name, or nil if not found.
	//
	// Parameters:
	//   - name: the bone name
	//
	// Returns:
	//   - *Bone: the bone or nil
	BoneByName(name string) *Bone

	// NodeForBone returns the node that drives the bone at index, or nil if no node carries it.
	//
	// Parameters:
	//   - index: the bone index
	//
	// Returns:
	//   - *Node: the driving node or nil
	NodeForBone(index int) *Node

	// GlobalInverse returns the inverse of the root's rest transform.
	//
	// Returns:
	//   - mgl32.Mat4: the global inverse transform
	GlobalInverse() mgl32.Mat4

	// HasBone reports whether bone belongs to this model, compared by identity.
	//
	// Parameters:
	//   - bone: the bone to check
	//
	// Returns:
	//   - bool: true if the bone is owned by the model
	HasBone(bone *Bone) bool

	// Animations retrieves the clips bound to this model in bind order.
	//
	// Returns:
	//   - []*Animation: the bound clips
	Animations() []*Animation

	// AnimationNames returns the names of all bound clips.
	//
	// Returns:
	//   - []string: the clip names
	AnimationNames() []string

	// AnimationByName returns a bound clip by name, or nil if not found.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - *Animation: the clip or nil
	AnimationByName(name string) *Animation

	// BindAnimation validates that every channel of anim targets a bone of this model and, on success,
	// adds it to the bound set. Binding an already bound clip is a no-op. On failure the bound set is
	// left unchanged and a *BindValidationError is returned.
	//
	// Parameters:
	//   - anim: the clip to bind
	//
	// Returns:
	//   - error: a *BindValidationError if a channel targets an unknown bone
	BindAnimation(anim *Animation) error

	// IsBound reports whether anim has been bound to this model.
	//
	// Parameters:
	//   - anim: the clip to check
	//
	// Returns:
	//   - bool: true if bound
	IsBound(anim *Animation) bool
}

var _ Model = &model{}

// NewModel creates a new Model with the specified options applied. When no bone list is given the
// bones are collected from the node tree. Animations passed via WithAnimations are bound in order.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: the configured model
//   - error: ErrInvalidSkeleton or a *BindValidationError
func NewModel(options ...ModelBuilderOption) (Model, error) {
	m := &model{
		boneSet:      make(map[*Bone]struct{}),
		boneByName:   make(map[string]*Bone),
		bound:        make(map[*Animation]struct{}),
		globalInvert: mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(m)
	}

	if m.root == nil {
		return nil, errors.Wrapf(ErrInvalidSkeleton, "model %q has no root node", m.name)
	}
	if err := m.indexSkeleton(); err != nil {
		return nil, err
	}

	rest := m.root.Transform.Mat4()
	if rest.Det() == 0 {
		common.LogWarn("root rest transform is singular, using identity", "model", m.name)
	} else {
		m.globalInvert = rest.Inv()
	}

	for _, anim := range m.pending {
		if err := m.BindAnimation(anim); err != nil {
			return nil, err
		}
	}
	m.pending = nil

	return m, nil
}

// indexSkeleton builds the bone lookups and checks that bones and nodes agree.
func (m *model) indexSkeleton() error {
	if m.bones == nil {
		m.root.Walk(func(n *Node) bool {
			if n.Bone != nil {
				m.bones = append(m.bones, n.Bone)
			}
			return true
		})
		sort.SliceStable(m.bones, func(i, j int) bool { return m.bones[i].Index < m.bones[j].Index })
	}

	var seen [MaxBones]bool
	for _, b := range m.bones {
		if b == nil {
			return errors.Wrapf(ErrInvalidSkeleton, "model %q: nil bone", m.name)
		}
		if b.Index < 0 || b.Index >= MaxBones {
			return errors.Wrapf(ErrInvalidSkeleton, "model %q: bone %q index %d outside [0, %d)", m.name, b.Name, b.Index, MaxBones)
		}
		if seen[b.Index] {
			return errors.Wrapf(ErrInvalidSkeleton, "model %q: bone index %d used twice", m.name, b.Index)
		}
		seen[b.Index] = true
		m.boneSet[b] = struct{}{}
		if _, dup := m.boneByName[b.Name]; !dup {
			m.boneByName[b.Name] = b
		}
	}

	var err error
	m.root.Walk(func(n *Node) bool {
		if err != nil || n.Bone == nil {
			return err == nil
		}
		if _, ok := m.boneSet[n.Bone]; !ok {
			err = errors.Wrapf(ErrInvalidSkeleton, "model %q: node %q carries bone %q missing from the bone list", m.name, n.Name, n.Bone.Name)
			return false
		}
		if m.nodeForBone[n.Bone.Index] != nil {
			err = errors.Wrapf(ErrInvalidSkeleton, "model %q: bone %q is carried by more than one node", m.name, n.Bone.Name)
			return false
		}
		m.nodeForBone[n.Bone.Index] = n
		return true
	})
	return err
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Root() *Node {
	return m.root
}

func (m *model) Bones() []*Bone {
	return m.bones
}

func (m *model) BoneByName(name string) *Bone {
	return m.boneByName[name]
}

func (m *model) NodeForBone(index int) *Node {
	if index < 0 || index >= MaxBones {
		return nil
	}
	return m.nodeForBone[index]
}

func (m *model) GlobalInverse() mgl32.Mat4 {
	return m.globalInvert
}

func (m *model) HasBone(bone *Bone) bool {
	_, ok := m.boneSet[bone]
	return ok
}

func (m *model) Animations() []*Animation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Animation, len(m.animations))
	copy(out, m.animations)
	return out
}

func (m *model) AnimationNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.animations))
	for i, anim := range m.animations {
		names[i] = anim.Name
	}
	return names
}

func (m *model) AnimationByName(name string) *Animation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, anim := range m.animations {
		if anim.Name == name {
			return anim
		}
	}
	return nil
}

func (m *model) IsBound(anim *Animation) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.bound[anim]
	return ok
}

func (m *model) BindAnimation(anim *Animation) error {
	if anim == nil {
		return errors.Wrapf(ErrBindValidation, "model %q: nil animation", m.name)
	}
	if m.IsBound(anim) {
		return nil
	}

	animated := make(map[*Bone]struct{}, len(anim.Channels))
	for i := range anim.Channels {
		bone := anim.Channels[i].Bone
		if bone == nil || !m.HasBone(bone) {
			bindErr := &BindValidationError{Animation: anim.Name, Model: m.name, Channel: i}
			if bone != nil {
				bindErr.Bone = bone.Name
			}
			return bindErr
		}
		animated[bone] = struct{}{}
	}

	var still []string
	for _, b := range m.bones {
		if _, ok := animated[b]; !ok {
			still = append(still, b.Name)
		}
	}
	if len(still) > 0 {
		common.LogInfo("bones not animated by clip keep their rest pose", "model", m.name, "animation", anim.Name, "bones", still)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bound[anim]; !ok {
		m.bound[anim] = struct{}{}
		m.animations = append(m.animations, anim)
	}
	return nil
}
