package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/camtransforms/internal/poses"
	"github.com/banshee-data/camtransforms/internal/rotation"
	"github.com/banshee-data/camtransforms/internal/transform"
)

// rowSwap exchanges the first two world rows.
var rowSwap = [4]int{1, 0, 2, 3}

// CameraToWorld runs pass 1 for a single record: invert the estimator's
// world-to-camera pose and convert it to the renderer's axis convention.
func CameraToWorld(q quat.Number, t r3.Vec) (transform.Transform, error) {
	// Negated to match the estimator's quaternion sign convention.
	m := transform.Compose(rotation.QuaternionToMatrix(rotation.Neg(q)), t)
	c2w, err := m.Inverse()
	if err != nil {
		return transform.Transform{}, err
	}

	// Flip the camera y and z axes.
	c2w.ScaleColumn(2, -1)
	c2w.ScaleColumn(1, -1)
	// Swap the first two world axes, then turn the world upside down.
	c2w = c2w.PermuteRows(rowSwap)
	c2w.ScaleRow(2, -1)
	return c2w, nil
}

// UpVector returns the contribution of one pass 1 transform to the up
// reduction: its corrected Y column.
func UpVector(c2w transform.Transform) r3.Vec {
	return c2w.Column(1)
}

// SumUp folds per-frame up vectors in slice order, so the result does not
// depend on how pass 1 was scheduled.
func SumUp(c2ws []transform.Transform) r3.Vec {
	var sum r3.Vec
	for _, c := range c2ws {
		sum = r3.Add(sum, UpVector(c))
	}
	return sum
}

// GlobalCorrection returns the normalised up direction and the 4x4
// rotation taking it onto WorldUp.
func GlobalCorrection(upSum r3.Vec, al rotation.Aligner) (r3.Vec, transform.Transform, error) {
	// Align rejects a zero or non-finite sum before normalising.
	rg, err := al.Align(upSum, WorldUp)
	if err != nil {
		return r3.Vec{}, transform.Transform{}, err
	}
	return r3.Unit(upSum), transform.FromRotation(rg), nil
}

func runRecenter(ctx context.Context, records []poses.Record, opts Options) (*Result, error) {
	res := &Result{
		Mode:       ModeRecenter,
		Frames:     make([]Frame, len(records)),
		Correction: transform.Identity(),
	}
	if len(records) == 0 {
		return res, nil
	}

	// Pass 1: each worker writes only its own slot.
	c2ws := make([]transform.Transform, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec := records[i]
			c, err := CameraToWorld(opts.quaternion(rec), rec.Translation)
			if err != nil {
				return &SingularTransformError{FrameID: rec.FrameID, Line: rec.Line, Err: err}
			}
			c2ws[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Global step: barrier between the passes.
	up, rg4, err := GlobalCorrection(SumUp(c2ws), opts.Aligner)
	if err != nil {
		return nil, err
	}
	res.Up = up
	res.Correction = rg4

	// Pass 2.
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Frames[i] = Frame{
			FrameID:   rec.FrameID,
			FilePath:  opts.FilePath(rec.FrameID),
			Transform: transform.Mul(rg4, c2ws[i]),
		}
	}
	return res, nil
}
