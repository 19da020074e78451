package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithRoot is an option builder that sets the root of the rest-pose node tree.
//
// Parameters:
//   - root: the root node
//
// Returns:
//   - ModelBuilderOption: a function that applies the root option to a model
func WithRoot(root *Node) ModelBuilderOption {
	return func(m *model) {
		m.root = root
	}
}

// WithBones is an option builder that sets the ordered bone list explicitly.
// Without it the bones are collected from the node tree and ordered by index.
//
// Parameters:
//   - bones: the bones, including any not carried by a node
//
// Returns:
//   - ModelBuilderOption: a function that applies the bones option to a model
func WithBones(bones []*Bone) ModelBuilderOption {
	return func(m *model) {
		m.bones = bones
	}
}

// WithAnimations is an option builder that queues clips to be bound once the skeleton is indexed.
//
// Parameters:
//   - animations: the clips to bind
//
// Returns:
//   - ModelBuilderOption: a function that applies the animations option to a model
func WithAnimations(animations ...*Animation) ModelBuilderOption {
	return func(m *model) {
		m.pending = append(m.pending, animations...)
	}
}
