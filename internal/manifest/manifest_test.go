package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/camtransforms/internal/fsutil"
	"github.com/banshee-data/camtransforms/internal/pipeline"
	"github.com/banshee-data/camtransforms/internal/poses"
	"github.com/banshee-data/camtransforms/internal/transform"
)

func poseFile(n int) string {
	var b strings.Builder
	b.WriteString("cam 1080 1920 0,6911 1,1037\n")
	for i := range n {
		fmt.Fprintf(&b, "%04d 0,9 0,1 -0,2 0,3 %d,5 -1,25 0,125\n", i, i)
	}
	return b.String()
}

func TestBuild_FlattensIntrinsics(t *testing.T) {
	intr := poses.Intrinsics{
		Label: "cam", W: 1080, H: 1920,
		CameraAngleX: 0.5, CameraAngleY: 0.75,
		Lens: poses.DefaultLens(),
	}
	frames := []pipeline.Frame{
		{FilePath: "capture-1.png", Transform: transform.Identity()},
	}
	m := Build(intr, frames)

	assert.Equal(t, 1080, m.W)
	assert.Equal(t, 1920, m.H)
	assert.Equal(t, 0.5, m.CameraAngleX)
	assert.Equal(t, 0.75, m.CameraAngleY)
	assert.Equal(t, 1375.52, m.FlX)
	assert.Equal(t, 965.268, m.Cy)
	assert.Equal(t, 4, m.AABBScale)
	require.Len(t, m.Frames, 1)
	assert.Equal(t, [4][4]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}, m.Frames[0].TransformMatrix)
}

func TestWrite_JSONKeys(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	w := NewWriter(fsys)
	intr := poses.Intrinsics{W: 2, H: 3, Lens: poses.DefaultLens()}
	require.NoError(t, w.Write("transforms.json", Build(intr, nil)))

	data, err := fsys.ReadFile("transforms.json")
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{
		"camera_angle_x", "camera_angle_y", "w", "h", "fl_x", "fl_y",
		"k1", "k2", "p1", "p2", "cx", "cy", "aabb_scale", "frames",
	} {
		assert.Contains(t, raw, key)
	}
	assert.Len(t, raw, 14)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"camera_angle_x\""), "two-space indent")
}

func TestParseConvertWrite_PreservesFrames(t *testing.T) {
	const n = 25
	file, err := poses.Parse(strings.NewReader(poseFile(n)))
	require.NoError(t, err)
	require.Len(t, file.Records, n)

	for _, mode := range []pipeline.Mode{pipeline.ModeDirect, pipeline.ModeRecenter} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := pipeline.DefaultOptions()
			opts.Mode = mode
			res, err := pipeline.Run(context.Background(), file.Records, opts)
			require.NoError(t, err)

			fsys := fsutil.NewMemoryFileSystem()
			w := NewWriter(fsys)
			m := Build(file.Intrinsics, res.Frames)
			require.NoError(t, w.Write("out.json", m))

			got, err := w.Read("out.json")
			require.NoError(t, err)
			require.Len(t, got.Frames, n)
			for i, f := range got.Frames {
				assert.Equal(t, fmt.Sprintf("capture-%04d.png", i), f.FilePath)
			}
			// Full float64 precision survives the round trip.
			if diff := cmp.Diff(m, got); diff != "" {
				t.Errorf("manifest changed on disk (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWrite_FailureLeavesNoManifest(t *testing.T) {
	boom := errors.New("no space left on device")
	fsys := fsutil.NewMemoryFileSystem()
	fsys.RenameErr = boom
	w := NewWriter(fsys)

	err := w.Write("transforms.json", Build(poses.Intrinsics{W: 1, H: 1}, nil))
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "want IOError, got %v", err)
	assert.Equal(t, "write", ioErr.Op)
	assert.Equal(t, "transforms.json", ioErr.Path)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, fsys.Files())
}

func TestWrite_NonFiniteIsEncodeError(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	m := Build(poses.Intrinsics{W: 1, H: 1}, []pipeline.Frame{{Transform: transform.Transform{0: math.NaN()}}})

	err := NewWriter(fsys).Write("transforms.json", m)
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "encode", ioErr.Op)
	assert.Empty(t, fsys.Files())
}

func TestRead_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	w := NewWriter(fsys)

	_, err := w.Read("missing.json")
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "read", ioErr.Op)

	require.NoError(t, fsys.WriteFile("bad.json", []byte("{"), 0o644))
	_, err = w.Read("bad.json")
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "decode", ioErr.Op)
}
