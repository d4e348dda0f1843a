// Package rotation provides the rotation primitives used to re-express
// estimated camera poses: quaternion to matrix conversion and the rotation
// that aligns one direction onto another.
//
// Quaternions are gonum quat.Number values; matrices are r3.Mat.
package rotation

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity is the quaternion of the null rotation.
var Identity = quat.Number{Real: 1}

// FromWXYZ builds a quaternion from components in the (w, x, y, z) order
// written by the pose estimator.
func FromWXYZ(w, x, y, z float64) quat.Number {
	return quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
}

// Neg returns -q. It encodes the same rotation but flips the sign of every
// component.
func Neg(q quat.Number) quat.Number {
	return quat.Scale(-1, q)
}

// Normalize returns q scaled to unit norm. A zero quaternion is returned
// unchanged.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return q
	}
	return quat.Scale(1/n, q)
}

// QuaternionToMatrix converts q to a 3x3 rotation matrix with the
// closed-form expression. q is not normalised: a non-unit quaternion yields
// a matrix that is not orthonormal, so callers that need that guarantee
// must call Normalize first.
func QuaternionToMatrix(q quat.Number) *r3.Mat {
	return r3.Rotation(q).Mat()
}
