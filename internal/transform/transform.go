// Package transform holds the rigid 4x4 homogeneous transforms exchanged
// between the pose pipeline and the manifest writer.
package transform

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a 4x4 homogeneous matrix in row-major order:
// m00,m01,m02,m03, m10,... The upper-left 3x3 block is the rotation and
// the last column the translation.
type Transform [16]float64

// ErrSingular is returned by Inverse when the matrix cannot be inverted.
var ErrSingular = errors.New("transform is singular")

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Compose builds [[R, t],[0,0,0,1]] from a 3x3 rotation and a translation.
func Compose(r mat.Matrix, t r3.Vec) Transform {
	return Transform{
		r.At(0, 0), r.At(0, 1), r.At(0, 2), t.X,
		r.At(1, 0), r.At(1, 1), r.At(1, 2), t.Y,
		r.At(2, 0), r.At(2, 1), r.At(2, 2), t.Z,
		0, 0, 0, 1,
	}
}

// FromRotation embeds a 3x3 rotation with zero translation.
func FromRotation(r mat.Matrix) Transform {
	return Compose(r, r3.Vec{})
}

// FromDense copies a 4x4 gonum matrix.
func FromDense(m mat.Matrix) Transform {
	var t Transform
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			t[i*4+j] = m.At(i, j)
		}
	}
	return t
}

// Dense returns t as a new gonum matrix.
func (t Transform) Dense() *mat.Dense {
	data := make([]float64, 16)
	copy(data, t[:])
	return mat.NewDense(4, 4, data)
}

// At returns the element at row i, column j.
func (t Transform) At(i, j int) float64 {
	return t[i*4+j]
}

// Rotation returns the upper-left 3x3 block.
func (t Transform) Rotation() *r3.Mat {
	return r3.NewMat([]float64{
		t[0], t[1], t[2],
		t[4], t[5], t[6],
		t[8], t[9], t[10],
	})
}

// Translation returns the last column without the homogeneous entry.
func (t Transform) Translation() r3.Vec {
	return r3.Vec{X: t[3], Y: t[7], Z: t[11]}
}

// Column returns rows 0..2 of column j.
func (t Transform) Column(j int) r3.Vec {
	return r3.Vec{X: t[j], Y: t[4+j], Z: t[8+j]}
}

// Rows returns t as nested rows, the layout used in the manifest.
func (t Transform) Rows() [4][4]float64 {
	var rows [4][4]float64
	for i := 0; i < 4; i++ {
		copy(rows[i][:], t[i*4:i*4+4])
	}
	return rows
}

// FromRows is the inverse of Rows.
func FromRows(rows [4][4]float64) Transform {
	var t Transform
	for i := 0; i < 4; i++ {
		copy(t[i*4:i*4+4], rows[i][:])
	}
	return t
}

// Mul returns a·b.
func Mul(a, b Transform) Transform {
	var out mat.Dense
	out.Mul(a.Dense(), b.Dense())
	return FromDense(&out)
}

// Inverse returns t⁻¹ by general LU inversion, so it also handles
// matrices whose rotation block is not orthonormal.
func (t Transform) Inverse() (Transform, error) {
	var inv mat.Dense
	if err := inv.Inverse(t.Dense()); err != nil {
		return Transform{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return FromDense(&inv), nil
}

// Apply transforms point p by t.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.Rotation().MulVec(p), t.Translation())
}

// ScaleColumn multiplies rows 0..2 of column j by f.
func (t *Transform) ScaleColumn(j int, f float64) {
	for i := 0; i < 3; i++ {
		t[i*4+j] *= f
	}
}

// ScaleRow multiplies all four entries of row i by f.
func (t *Transform) ScaleRow(i int, f float64) {
	for j := 0; j < 4; j++ {
		t[i*4+j] *= f
	}
}

// PermuteRows returns t with row i taken from row order[i].
func (t Transform) PermuteRows(order [4]int) Transform {
	var out Transform
	for i, src := range order {
		copy(out[i*4:i*4+4], t[src*4:src*4+4])
	}
	return out
}
