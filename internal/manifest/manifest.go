// Package manifest assembles and serialises the renderer's transforms
// manifest: flattened camera intrinsics followed by one camera-to-world
// matrix per frame.
package manifest

import (
	"github.com/banshee-data/camtransforms/internal/pipeline"
	"github.com/banshee-data/camtransforms/internal/poses"
)

// Manifest is the on-disk document.
type Manifest struct {
	CameraAngleX float64 `json:"camera_angle_x"`
	CameraAngleY float64 `json:"camera_angle_y"`
	W            int     `json:"w"`
	H            int     `json:"h"`
	FlX          float64 `json:"fl_x"`
	FlY          float64 `json:"fl_y"`
	K1           float64 `json:"k1"`
	K2           float64 `json:"k2"`
	P1           float64 `json:"p1"`
	P2           float64 `json:"p2"`
	Cx           float64 `json:"cx"`
	Cy           float64 `json:"cy"`
	AABBScale    int     `json:"aabb_scale"`
	Frames       []Frame `json:"frames"`
}

// Frame is one image and its camera-to-world transform, rows outermost.
type Frame struct {
	FilePath        string        `json:"file_path"`
	TransformMatrix [4][4]float64 `json:"transform_matrix"`
}

// Build combines the parsed intrinsics with the corrected frames. Frame
// order is preserved.
func Build(intr poses.Intrinsics, frames []pipeline.Frame) *Manifest {
	m := &Manifest{
		CameraAngleX: intr.CameraAngleX,
		CameraAngleY: intr.CameraAngleY,
		W:            intr.W,
		H:            intr.H,
		FlX:          intr.Lens.FlX,
		FlY:          intr.Lens.FlY,
		K1:           intr.Lens.K1,
		K2:           intr.Lens.K2,
		P1:           intr.Lens.P1,
		P2:           intr.Lens.P2,
		Cx:           intr.Lens.Cx,
		Cy:           intr.Lens.Cy,
		AABBScale:    intr.Lens.AABBScale,
		Frames:       make([]Frame, len(frames)),
	}
	for i, f := range frames {
		m.Frames[i] = Frame{
			FilePath:        f.FilePath,
			TransformMatrix: f.Transform.Rows(),
		}
	}
	return m
}
