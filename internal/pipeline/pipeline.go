// Package pipeline re-expresses parsed camera poses as camera-to-world
// transforms in the renderer's coordinate convention.
//
// Two mutually exclusive modes exist. ModeRecenter inverts each pose,
// corrects the axis convention and then rotates the whole scene so that
// the averaged camera up direction becomes +Z. ModeDirect converts each
// pose independently with fixed axis alignments and no inversion.
package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/camtransforms/internal/poses"
	"github.com/banshee-data/camtransforms/internal/rotation"
	"github.com/banshee-data/camtransforms/internal/transform"
)

// Mode selects the pose correction algorithm.
type Mode int

const (
	// ModeDirect converts each pose without inversion or recentring.
	ModeDirect Mode = iota
	// ModeRecenter inverts each pose and applies one global up correction.
	ModeRecenter
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeRecenter:
		return "recenter"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a configuration name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "direct":
		return ModeDirect, nil
	case "recenter", "colmap":
		return ModeRecenter, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want direct or recenter)", s)
	}
}

// Default output file naming; the capture rig writes capture-<n>.png.
const (
	DefaultFilePrefix = "capture-"
	DefaultFileSuffix = ".png"
)

// WorldUp is the canonical up axis of the output frame.
var WorldUp = r3.Vec{Z: 1}

// Options configures Run.
type Options struct {
	Mode Mode
	// Normalize rescales every quaternion to unit norm before conversion.
	// Off by default so output matches the estimator bit for bit.
	Normalize bool
	// FilePrefix and FileSuffix wrap the frame ID to form file_path.
	FilePrefix string
	FileSuffix string
	// Workers bounds the pass 1 pool; zero means GOMAXPROCS.
	Workers int
	// Aligner resolves the global up correction.
	Aligner rotation.Aligner
}

// DefaultOptions returns direct mode with the capture rig file naming.
func DefaultOptions() Options {
	return Options{
		Mode:       ModeDirect,
		FilePrefix: DefaultFilePrefix,
		FileSuffix: DefaultFileSuffix,
	}
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// FilePath returns the output image path for a frame ID.
func (o Options) FilePath(frameID string) string {
	return o.FilePrefix + frameID + o.FileSuffix
}

// Frame is one corrected camera-to-world pose.
type Frame struct {
	FrameID   string
	FilePath  string
	Transform transform.Transform
}

// Result is the output of Run.
type Result struct {
	Mode   Mode
	Frames []Frame
	// Up is the normalised averaged up direction after pass 1. Zero in
	// direct mode and for empty input.
	Up r3.Vec
	// Correction is the global rotation applied in pass 2; identity in
	// direct mode.
	Correction transform.Transform
}

// SingularTransformError reports a pose whose world-to-camera matrix could
// not be inverted.
type SingularTransformError struct {
	FrameID string
	Line    int
	Err     error
}

func (e *SingularTransformError) Error() string {
	return fmt.Sprintf("frame %s (line %d): %v", e.FrameID, e.Line, e.Err)
}

func (e *SingularTransformError) Unwrap() error { return e.Err }

// Run converts records into corrected frames. Output order and length
// match records.
func Run(ctx context.Context, records []poses.Record, opts Options) (*Result, error) {
	switch opts.Mode {
	case ModeRecenter:
		return runRecenter(ctx, records, opts)
	case ModeDirect:
		return runDirect(ctx, records, opts)
	default:
		return nil, fmt.Errorf("unsupported mode %v", opts.Mode)
	}
}

func (o Options) quaternion(rec poses.Record) quat.Number {
	if o.Normalize {
		return rotation.Normalize(rec.Quaternion)
	}
	return rec.Quaternion
}
