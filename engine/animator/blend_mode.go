package animator

// BlendMode describes how a layer combines with the layers below it.
// It is a closed set: Additive or Overriding.
type BlendMode interface {
	blendMode()
}

// Additive interpolates every bone slot toward the layer's pose. Weights of all additive layers are
// renormalized to sum to one before each mix.
type Additive struct {
	Weight float32
}

// Overriding replaces bone slots with the layer's pose. A nil Filter overrides every bone.
type Overriding struct {
	Filter *NodeFilter
}

func (Additive) blendMode()   {}
func (Overriding) blendMode() {}
