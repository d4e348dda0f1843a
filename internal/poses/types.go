// Package poses parses the capture pose file: a single intrinsics header
// line followed by one quaternion + translation line per frame.
package poses

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Lens holds the externally calibrated lens constants. They are never
// computed here.
type Lens struct {
	FlX       float64
	FlY       float64
	K1        float64
	K2        float64
	P1        float64
	P2        float64
	Cx        float64
	Cy        float64
	AABBScale int
}

// DefaultLens returns the calibration of the capture camera.
func DefaultLens() Lens {
	return Lens{
		FlX:       1375.52,
		FlY:       1374.49,
		K1:        0.0578421,
		K2:        -0.0805099,
		P1:        -0.000980296,
		P2:        0.00015575,
		Cx:        554.558,
		Cy:        965.268,
		AABBScale: 4,
	}
}

// Intrinsics is the camera description from the header line plus the
// configured lens constants.
type Intrinsics struct {
	Label        string
	W            int
	H            int
	CameraAngleX float64 // radians
	CameraAngleY float64 // radians
	Lens         Lens
}

// Record is one frame line.
type Record struct {
	FrameID     string
	Quaternion  quat.Number // (w, x, y, z) as Real, Imag, Jmag, Kmag
	Translation r3.Vec
	// Line is the 1-based line number in the source file.
	Line int
}

// File is the fully parsed pose file.
type File struct {
	Intrinsics Intrinsics
	Records    []Record
}
