package pipeline

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/camtransforms/internal/poses"
	"github.com/banshee-data/camtransforms/internal/rotation"
	"github.com/banshee-data/camtransforms/internal/transform"
)

var (
	directAxesOnce sync.Once
	directAxes     *r3.Mat
)

// directAlignment returns align(ŷ, x̂)·align(ŷ, ẑ): first rotate the camera
// y axis down onto z, then turn the camera to face the scene centre.
func directAlignment() *r3.Mat {
	directAxesOnce.Do(func() {
		y, z, x := r3.Vec{Y: 1}, r3.Vec{Z: 1}, r3.Vec{X: 1}
		down, err := rotation.Align(y, z)
		if err != nil {
			panic(err) // fixed orthogonal inputs
		}
		face, err := rotation.Align(y, x)
		if err != nil {
			panic(err)
		}
		r := r3.NewMat(nil)
		r.Mul(face, down)
		directAxes = r
	})
	return directAxes
}

// DirectTransform converts one pose without inversion: the translation is
// reordered to (tz, tx, ty) and the rotation pre-multiplied by the fixed
// axis alignment.
func DirectTransform(q quat.Number, t r3.Vec) transform.Transform {
	r := r3.NewMat(nil)
	r.Mul(directAlignment(), rotation.QuaternionToMatrix(q))
	return transform.Compose(r, r3.Vec{X: t.Z, Y: t.X, Z: t.Y})
}

func runDirect(ctx context.Context, records []poses.Record, opts Options) (*Result, error) {
	res := &Result{
		Mode:       ModeDirect,
		Frames:     make([]Frame, len(records)),
		Correction: transform.Identity(),
	}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Frames[i] = Frame{
			FrameID:   rec.FrameID,
			FilePath:  opts.FilePath(rec.FrameID),
			Transform: DirectTransform(opts.quaternion(rec), rec.Translation),
		}
	}
	return res, nil
}
