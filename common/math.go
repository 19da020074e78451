package common

import (
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// unitEpsilon is the tolerance used when deciding whether a quaternion is already normalized
// or a scale axis is degenerate.
const unitEpsilon = 1e-4

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// QuatFromXYZW builds a quaternion from the (x, y, z, w) component order used by asset formats.
//
// Parameters:
//   - v: quaternion components as [4]float32 (x, y, z, w)
//
// Returns:
//   - mgl32.Quat: the quaternion
func QuatFromXYZW(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

// QuatToXYZW flattens a quaternion into (x, y, z, w) component order.
//
// Parameters:
//   - q: the quaternion
//
// Returns:
//   - [4]float32: quaternion components (x, y, z, w)
func QuatToXYZW(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// ComposeTRS builds a column-major model matrix as T * R * S.
//
// Parameters:
//   - t: translation
//   - r: rotation quaternion (normalized before use)
//   - s: per-axis scale
//
// Returns:
//   - mgl32.Mat4: the composed matrix
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	if l := r.Len(); l > 0 && math.Abs(float64(l-1)) > unitEpsilon {
		r = r.Normalize()
	}
	m := r.Mat4()
	// Scaling columns is R * S without a second matrix multiply.
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col*4+row] *= s[col]
		}
	}
	m[12], m[13], m[14] = t[0], t[1], t[2]
	return m
}

// DecomposeTRS splits a column-major matrix into translation, rotation and scale.
// This is an approximation that assumes no shear.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - mgl32.Vec3: translation
//   - mgl32.Quat: rotation
//   - mgl32.Vec3: scale
func DecomposeTRS(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	t := mgl32.Vec3{m[12], m[13], m[14]}
	s := mgl32.Vec3{
		m.Col(0).Vec3().Len(),
		m.Col(1).Vec3().Len(),
		m.Col(2).Vec3().Len(),
	}

	rot := mgl32.Ident4()
	for col := 0; col < 3; col++ {
		d := s[col]
		if d < unitEpsilon {
			d = 1
		}
		for row := 0; row < 3; row++ {
			rot[col*4+row] = m[col*4+row] / d
		}
	}

	return t, mgl32.Mat4ToQuat(rot).Normalize(), s
}

// Lerp3 linearly interpolates between two vectors. f == 0 and f == 1 return the endpoints verbatim.
//
// Parameters:
//   - a: start vector
//   - b: end vector
//   - f: interpolation factor in [0, 1]
//
// Returns:
//   - mgl32.Vec3: the interpolated vector
func Lerp3(a, b mgl32.Vec3, f float32) mgl32.Vec3 {
	switch f {
	case 0:
		return a
	case 1:
		return b
	}
	return a.Add(b.Sub(a).Mul(f))
}

// Slerp spherically interpolates between two unit quaternions along the shortest arc.
// f == 0 and f == 1 return the endpoints verbatim.
//
// Parameters:
//   - a: start rotation
//   - b: end rotation
//   - f: interpolation factor in [0, 1]
//
// Returns:
//   - mgl32.Quat: the interpolated unit quaternion
func Slerp(a, b mgl32.Quat, f float32) mgl32.Quat {
	switch f {
	case 0:
		return a
	case 1:
		return b
	}
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, f).Normalize()
}

// WrapFloat wraps v into [0, period). A non-positive period yields 0.
//
// Parameters:
//   - v: the value to wrap
//   - period: the wrap period
//
// Returns:
//   - float64: v modulo period, always non-negative
func WrapFloat(v, period float64) float64 {
	if period <= 0 {
		return 0
	}
	r := math.Mod(v, period)
	if r < 0 {
		r += period
	}
	// Mod of a tiny negative value can round back up to exactly period.
	if r >= period {
		r = 0
	}
	return r
}
