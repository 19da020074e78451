package loader

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func gltfReadAccessor(doc *gltf.Document, index int) (any, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return nil, errors.Errorf("accessor %d out of range", index)
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[index], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "accessor %d", index)
	}
	return data, nil
}

// gltfReadFloats reads a SCALAR float accessor (animation inputs).
func gltfReadFloats(doc *gltf.Document, index int) ([]float32, error) {
	data, err := gltfReadAccessor(doc, index)
	if err != nil {
		return nil, err
	}
	v, ok := data.([]float32)
	if !ok {
		return nil, errors.Errorf("accessor %d: expected scalar floats, got %T", index, data)
	}
	return v, nil
}

// gltfReadVec3s reads a VEC3 float accessor (translation and scale outputs).
func gltfReadVec3s(doc *gltf.Document, index int) ([]mgl32.Vec3, error) {
	data, err := gltfReadAccessor(doc, index)
	if err != nil {
		return nil, err
	}
	v, ok := data.([][3]float32)
	if !ok {
		return nil, errors.Errorf("accessor %d: expected float vec3, got %T", index, data)
	}
	out := make([]mgl32.Vec3, len(v))
	for i := range v {
		out[i] = v[i]
	}
	return out, nil
}

// gltfReadQuats reads a VEC4 rotation accessor. Normalized integer encodings are dequantized as
// the glTF animation rules describe.
func gltfReadQuats(doc *gltf.Document, index int) ([]mgl32.Quat, error) {
	data, err := gltfReadAccessor(doc, index)
	if err != nil {
		return nil, err
	}

	var xyzw [][4]float32
	switch v := data.(type) {
	case [][4]float32:
		xyzw = v
	case [][4]int8:
		xyzw = make([][4]float32, len(v))
		for i := range v {
			for c := 0; c < 4; c++ {
				xyzw[i][c] = max(float32(v[i][c])/127, -1)
			}
		}
	case [][4]uint8:
		xyzw = make([][4]float32, len(v))
		for i := range v {
			for c := 0; c < 4; c++ {
				xyzw[i][c] = float32(v[i][c]) / 255
			}
		}
	case [][4]int16:
		xyzw = make([][4]float32, len(v))
		for i := range v {
			for c := 0; c < 4; c++ {
				xyzw[i][c] = max(float32(v[i][c])/32767, -1)
			}
		}
	case [][4]uint16:
		xyzw = make([][4]float32, len(v))
		for i := range v {
			for c := 0; c < 4; c++ {
				xyzw[i][c] = float32(v[i][c]) / 65535
			}
		}
	default:
		return nil, errors.Errorf("accessor %d: expected vec4 rotations, got %T", index, data)
	}

	out := make([]mgl32.Quat, len(xyzw))
	for i, q := range xyzw {
		out[i] = mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}.Normalize()
	}
	return out, nil
}

// gltfReadMat4s reads a MAT4 float accessor (inverse bind matrices). The decoder returns rows
// while mgl32 stores columns.
func gltfReadMat4s(doc *gltf.Document, index int) ([]mgl32.Mat4, error) {
	data, err := gltfReadAccessor(doc, index)
	if err != nil {
		return nil, err
	}
	v, ok := data.([][4][4]float32)
	if !ok {
		return nil, errors.Errorf("accessor %d: expected float mat4, got %T", index, data)
	}
	out := make([]mgl32.Mat4, len(v))
	for i := range v {
		for col := 0; col < 4; col++ {
			for row := 0; row < 4; row++ {
				out[i][col*4+row] = v[i][row][col]
			}
		}
	}
	return out, nil
}
