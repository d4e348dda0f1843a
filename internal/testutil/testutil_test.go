package testutil

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/camtransforms/internal/transform"
)

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	t.Parallel()
	AssertError(t, errors.New("test error"))
}

func TestWritePoseFile(t *testing.T) {
	t.Parallel()

	path := WritePoseFile(t, "transforms.txt", SamplePoseFile)
	if filepath.Base(path) != "transforms.txt" {
		t.Errorf("base = %q, want transforms.txt", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != SamplePoseFile {
		t.Errorf("content mismatch")
	}
}

func TestPoseFile(t *testing.T) {
	t.Parallel()

	got := PoseFile(2, [4]float64{1, 0, 0, 0}, [3]float64{0.5, -1, 2})
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[2] != "0002 1 0 0 0 0.5 -1 2" {
		t.Errorf("frame line = %q", lines[2])
	}
}

func TestTransformDiff(t *testing.T) {
	t.Parallel()

	a := transform.Identity()
	b := a
	b[3] = 1e-12
	if diff := TransformDiff(a, b, 1e-9); diff != "" {
		t.Errorf("unexpected diff within tolerance: %s", diff)
	}

	b[6] = 0.5
	diff := TransformDiff(a, b, 1e-9)
	if !strings.Contains(diff, "[1][2]") {
		t.Errorf("diff %q should name entry [1][2]", diff)
	}

	c := a
	c[0] = math.NaN()
	if TransformDiff(a, c, 1) == "" {
		t.Error("NaN entry should be reported")
	}
}

func TestAssertTransformNear(t *testing.T) {
	t.Parallel()
	AssertTransformNear(t, transform.Identity(), transform.Identity(), 0)
}
