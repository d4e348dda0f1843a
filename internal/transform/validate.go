package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MatrixValidationTolerance is the default tolerance for rigid transform
// checks.
const MatrixValidationTolerance = 1e-6

// Quality grades how far a transform's rotation block is from orthonormal.
type Quality string

const (
	// QualityRigid indicates det ≈ 1 and RᵀR ≈ I within tolerance.
	QualityRigid Quality = "rigid"
	// QualityScaled indicates an orthogonal but uniformly scaled block,
	// typically from a non-unit quaternion.
	QualityScaled Quality = "scaled"
	// QualityInvalid indicates a reflection, shear or non-finite entries.
	QualityInvalid Quality = "invalid"
)

// ValidationResult contains the outcome of Validate.
type ValidationResult struct {
	Valid   bool
	Quality Quality
	// Det is the determinant of the rotation block.
	Det float64
	// OrthoError is max |(RᵀR - I)ᵢⱼ|.
	OrthoError float64
	Issues     []string
}

// Validate checks whether t is a proper rigid transform:
// orthonormal rotation block with det ≈ +1 and bottom row [0 0 0 1].
func Validate(t Transform, tol float64) ValidationResult {
	if tol <= 0 {
		tol = MatrixValidationTolerance
	}
	result := ValidationResult{Quality: QualityRigid, Issues: make([]string, 0)}

	for _, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			result.Quality = QualityInvalid
			result.Issues = append(result.Issues, "non-finite matrix entry")
			return result
		}
	}

	if t[12] != 0 || t[13] != 0 || t[14] != 0 || math.Abs(t[15]-1.0) > tol {
		result.Quality = QualityInvalid
		result.Issues = append(result.Issues,
			fmt.Sprintf("bottom row is [%g %g %g %g], want [0 0 0 1]", t[12], t[13], t[14], t[15]))
	}

	r := t.Rotation()
	result.Det = r.Det()

	rtr := r3.NewMat(nil)
	rtr.Mul(r.T(), r)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if d := math.Abs(rtr.At(i, j) - want); d > result.OrthoError {
				result.OrthoError = d
			}
		}
	}

	switch {
	case result.Det <= 0:
		result.Quality = QualityInvalid
		result.Issues = append(result.Issues, fmt.Sprintf("rotation determinant %g is not positive", result.Det))
	case math.Abs(result.Det-1.0) > tol || result.OrthoError > tol:
		if result.Quality != QualityInvalid && isScaledOrthogonal(rtr, tol) {
			result.Quality = QualityScaled
			result.Issues = append(result.Issues,
				fmt.Sprintf("rotation block is scaled (det %g); input quaternion was probably not unit norm", result.Det))
		} else {
			result.Quality = QualityInvalid
			result.Issues = append(result.Issues,
				fmt.Sprintf("rotation block is not orthonormal (max |RᵀR-I| = %g)", result.OrthoError))
		}
	}

	result.Valid = result.Quality == QualityRigid
	return result
}

// isScaledOrthogonal reports whether RᵀR ≈ s·I for some s > 0.
func isScaledOrthogonal(rtr *r3.Mat, tol float64) bool {
	s := rtr.At(0, 0)
	if s <= 0 {
		return false
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = s
			}
			if math.Abs(rtr.At(i, j)-want) > tol*s {
				return false
			}
		}
	}
	return true
}

// IsValidTransformMatrix reports whether t passes Validate with the
// default tolerance.
func IsValidTransformMatrix(t Transform) bool {
	return Validate(t, MatrixValidationTolerance).Valid
}

// String returns a human-readable description of the quality.
func (q Quality) String() string {
	switch q {
	case QualityRigid:
		return "rigid (orthonormal, det = 1)"
	case QualityScaled:
		return "scaled (orthogonal, det != 1)"
	case QualityInvalid:
		return "invalid (not a rotation)"
	default:
		return string(q)
	}
}
