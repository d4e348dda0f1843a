// Package testutil provides shared test utilities and fixtures.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/camtransforms/internal/transform"
)

// SamplePoseFile is a two frame capture with decimal commas, as written by
// the capture rig.
const SamplePoseFile = `capture 1080 1920 0,6911112070083618 1,1036292314529419
0001 1 0 0 0 0,5 -1,25 3
0002 0,7071067811865476 0 0,7071067811865476 0 1 2 3
`

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WritePoseFile writes content to name inside a fresh temporary directory
// and returns the file path.
func WritePoseFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write pose file: %v", err)
	}
	return path
}

// PoseFile builds a pose file with n identical frames of quaternion q and
// translation t, IDs zero padded to four digits.
func PoseFile(n int, q [4]float64, t [3]float64) string {
	var b strings.Builder
	b.WriteString("capture 1080 1920 0.6911 1.1036\n")
	for i := range n {
		fmt.Fprintf(&b, "%04d %g %g %g %g %g %g %g\n", i+1, q[0], q[1], q[2], q[3], t[0], t[1], t[2])
	}
	return b.String()
}

// TransformDiff returns a description of every entry where got and want
// differ by more than tol, or "" if none do.
func TransformDiff(got, want transform.Transform, tol float64) string {
	var b strings.Builder
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol || math.IsNaN(got[i]) != math.IsNaN(want[i]) {
			fmt.Fprintf(&b, "[%d][%d]: got %g, want %g\n", i/4, i%4, got[i], want[i])
		}
	}
	return b.String()
}

// AssertTransformNear fails the test if any entry of got differs from want
// by more than tol.
func AssertTransformNear(t testing.TB, got, want transform.Transform, tol float64) {
	t.Helper()
	if diff := TransformDiff(got, want, tol); diff != "" {
		t.Errorf("transform mismatch (tol %g):\n%s", tol, diff)
	}
}
