package poses

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/camtransforms/internal/rotation"
)

const sample = `camera 1080 1920 18.84955592153876 33.51032163829112
1 1 0 0 0 0 0 0
2 0.7071068 0 0.7071068 0 1.5 -2 3.25
3 0.5 0.5 0.5 0.5 0 0 1 extra trailing fields
`

func TestParse_Sample(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	want := Intrinsics{
		Label:        "camera",
		W:            1080,
		H:            1920,
		CameraAngleX: 18.84955592153876,
		CameraAngleY: 33.51032163829112,
		Lens:         DefaultLens(),
	}
	if diff := cmp.Diff(want, f.Intrinsics); diff != "" {
		t.Errorf("intrinsics mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, f.Records, 3)
	assert.Equal(t, Record{
		FrameID:     "2",
		Quaternion:  rotation.FromWXYZ(0.7071068, 0, 0.7071068, 0),
		Translation: r3.Vec{X: 1.5, Y: -2, Z: 3.25},
		Line:        3,
	}, f.Records[1])

	ids := make([]string, len(f.Records))
	for i, r := range f.Records {
		ids[i] = r.FrameID
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids, "file order must be preserved")
	assert.Equal(t, r3.Vec{Z: 1}, f.Records[2].Translation)
}

func TestParse_DecimalComma(t *testing.T) {
	comma := "camera 640 480 1,5 0,75\nf1 1 0 0 0 1,5 -0,25 2\n"
	point := "camera 640 480 1.5 0.75\nf1 1 0 0 0 1.5 -0.25 2\n"

	fc, err := Parse(strings.NewReader(comma))
	require.NoError(t, err)
	fp, err := Parse(strings.NewReader(point))
	require.NoError(t, err)

	if diff := cmp.Diff(fp, fc); diff != "" {
		t.Errorf("decimal comma parse differs (-point +comma):\n%s", diff)
	}
	assert.Equal(t, 1.5, fc.Intrinsics.CameraAngleX)
	assert.Equal(t, 1.5, fc.Records[0].Translation.X)
}

func TestParseDecimal(t *testing.T) {
	v, err := ParseDecimal("1,5")
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	for _, bad := range []string{"abc", "1,2,3", "NaN", "+Inf", ""} {
		_, err := ParseDecimal(bad)
		assert.Error(t, err, "ParseDecimal(%q)", bad)
	}
}

func TestParse_CustomLens(t *testing.T) {
	lens := Lens{FlX: 1, FlY: 2, AABBScale: 16}
	f, err := NewParser(lens).Parse(strings.NewReader("cam 1 1 0 0\n"))
	require.NoError(t, err)
	assert.Equal(t, lens, f.Intrinsics.Lens)
	assert.Empty(t, f.Records)
}

func TestParse_BlankLinesSkipped(t *testing.T) {
	in := "camera 10 20 0.1 0.2\n\n  \na 1 0 0 0 0 0 0\n\n"
	f, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, f.Records, 1)
	assert.Equal(t, 4, f.Records[0].Line)
}

func TestParse_HeaderMustBeFirstLine(t *testing.T) {
	for _, in := range []string{
		"\ncapture 1080 1920 0.6 1.1\n0001 1 0 0 0 0 0 0\n",
		"   \ncapture 1080 1920 0.6 1.1\n",
	} {
		f, err := Parse(strings.NewReader(in))
		assert.Nil(t, f)
		var he *HeaderError
		require.True(t, errors.As(err, &he), "want HeaderError for %q, got %v", in, err)
		assert.Contains(t, he.Error(), "line 1 is empty")
	}
}

func TestParse_MalformedHeader(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"too few fields", "camera 1080 1920\n1 1 0 0 0 0 0 0\n"},
		{"non-numeric width", "camera wide 1920 1 1\n"},
		{"fractional height", "camera 1080 19.5 1 1\n"},
		{"zero width", "camera 0 1920 1 1\n"},
		{"non-numeric angle", "camera 1080 1920 x 1\n"},
		{"empty", ""},
		{"only blank lines", "\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(strings.NewReader(tt.in))
			assert.Nil(t, f)
			var he *HeaderError
			require.True(t, errors.As(err, &he), "want HeaderError, got %v", err)
		})
	}
}

func TestParse_MalformedFrameLine(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantLine int
		reason   string
	}{
		{"too few fields", "camera 1 1 0 0\n1 1 0 0 0 0 0\n", 2, "fields"},
		{"bad quaternion", "camera 1 1 0 0\n1 1 0 0 0 0 0 0\n2 one 0 0 0 0 0 0\n", 3, "qw"},
		{"bad translation", "camera 1 1 0 0\n1 1 0 0 0 0 0 0\n\n3 1 0 0 0 0 0 z\n", 4, "tz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse(strings.NewReader(tt.in))
			assert.Nil(t, f, "no partial result on failure")
			var fe *FrameLineError
			require.True(t, errors.As(err, &fe), "want FrameLineError, got %v", err)
			assert.Equal(t, tt.wantLine, fe.Line)
			assert.Contains(t, fe.Error(), tt.reason)
		})
	}
}

func TestParse_ReadError(t *testing.T) {
	boom := errors.New("disk on fire")
	r := iotest.ErrReader(boom)
	_, err := Parse(r)
	var re *ReadError
	require.True(t, errors.As(err, &re))
	assert.True(t, errors.Is(err, boom))
}
