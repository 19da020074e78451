package loader

// rigDocument is the top-level YAML rig document.
type rigDocument struct {
	Name       string         `yaml:"name"`
	Root       *nodeDocument  `yaml:"root"`
	Bones      []boneDocument `yaml:"bones"`
	Animations []clipDocument `yaml:"animations,omitempty"`
}

// nodeDocument is one node of the rig hierarchy. Missing TRS components default to identity.
type nodeDocument struct {
	Name        string          `yaml:"name"`
	Translation *[3]float32     `yaml:"translation,omitempty,flow"`
	Rotation    *[4]float32     `yaml:"rotation,omitempty,flow"`
	Scale       *[3]float32     `yaml:"scale,omitempty,flow"`
	Bone        string          `yaml:"bone,omitempty"`
	Children    []*nodeDocument `yaml:"children,omitempty"`
}

// boneDocument describes a bone. Its index is its position in the bones list.
type boneDocument struct {
	Name string `yaml:"name"`
	// Offset is the column-major mesh-to-bone matrix; identity when absent.
	Offset []float32 `yaml:"offset,omitempty,flow"`
}

// clipDocument describes one animation clip.
type clipDocument struct {
	Name           string            `yaml:"name"`
	Duration       float32           `yaml:"duration"`
	TicksPerSecond float32           `yaml:"ticksPerSecond"`
	Behaviour      string            `yaml:"behaviour,omitempty"`
	Channels       []channelDocument `yaml:"channels"`
}

// channelDocument holds the keyframes of one bone within a clip.
type channelDocument struct {
	Bone      string           `yaml:"bone"`
	Pre       string           `yaml:"pre,omitempty"`
	Post      string           `yaml:"post,omitempty"`
	Positions []vectorKeyDoc   `yaml:"positions,omitempty"`
	Rotations []rotationKeyDoc `yaml:"rotations,omitempty"`
	Scales    []vectorKeyDoc   `yaml:"scales,omitempty"`
}

type vectorKeyDoc struct {
	Time  float32    `yaml:"time"`
	Value [3]float32 `yaml:"value,flow"`
}

type rotationKeyDoc struct {
	Time float32 `yaml:"time"`
	// Value is (x, y, z, w).
	Value [4]float32 `yaml:"value,flow"`
}
