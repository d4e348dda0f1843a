package poses

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/camtransforms/internal/rotation"
)

const (
	headerFields = 5
	frameFields  = 8
	// maxLineBytes bounds a single line; frame lines are well under 1 KiB.
	maxLineBytes = 1 << 20
)

// HeaderError reports an unusable intrinsics line.
type HeaderError struct {
	Reason string
	Err    error
}

func (e *HeaderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed header: %s: %v", e.Reason, e.Err)
	}
	return "malformed header: " + e.Reason
}

func (e *HeaderError) Unwrap() error { return e.Err }

// FrameLineError reports an unusable frame line.
type FrameLineError struct {
	// Line is 1-based and counts the header.
	Line   int
	Reason string
	Err    error
}

func (e *FrameLineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed frame line %d: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed frame line %d: %s", e.Line, e.Reason)
}

func (e *FrameLineError) Unwrap() error { return e.Err }

// ReadError wraps a failure of the underlying reader.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return "read pose file: " + e.Err.Error() }

func (e *ReadError) Unwrap() error { return e.Err }

// Parser reads pose files. The zero value attaches a zero Lens; use
// NewParser for the default calibration.
type Parser struct {
	Lens Lens
}

// NewParser returns a Parser using the given lens constants.
func NewParser(lens Lens) *Parser {
	return &Parser{Lens: lens}
}

// Parse reads the pose file with the default lens calibration.
func Parse(r io.Reader) (*File, error) {
	return NewParser(DefaultLens()).Parse(r)
}

// Parse reads the whole stream. It returns either a complete File or an
// error, never a partial result. Line 1 must be the header; blank lines
// after it are skipped.
func (p *Parser) Parse(r io.Reader) (*File, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		file      *File
		lineNo    int
		gotHeader bool
	)
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if !gotHeader && len(fields) == 0 {
			return nil, &HeaderError{Reason: "line 1 is empty"}
		}
		if len(fields) == 0 {
			continue
		}

		if !gotHeader {
			intr, err := parseHeader(fields)
			if err != nil {
				return nil, err
			}
			intr.Lens = p.Lens
			file = &File{Intrinsics: intr}
			gotHeader = true
			continue
		}

		rec, err := parseFrame(fields, lineNo)
		if err != nil {
			return nil, err
		}
		file.Records = append(file.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, &ReadError{Err: err}
	}
	if !gotHeader {
		return nil, &HeaderError{Reason: "empty input"}
	}
	return file, nil
}

func parseHeader(fields []string) (Intrinsics, error) {
	if len(fields) < headerFields {
		return Intrinsics{}, &HeaderError{
			Reason: fmt.Sprintf("got %d fields, want %d (label w h camera_angle_x camera_angle_y)", len(fields), headerFields),
		}
	}

	w, err := parseDimension(fields[1])
	if err != nil {
		return Intrinsics{}, &HeaderError{Reason: "width", Err: err}
	}
	h, err := parseDimension(fields[2])
	if err != nil {
		return Intrinsics{}, &HeaderError{Reason: "height", Err: err}
	}
	ax, err := ParseDecimal(fields[3])
	if err != nil {
		return Intrinsics{}, &HeaderError{Reason: "camera_angle_x", Err: err}
	}
	ay, err := ParseDecimal(fields[4])
	if err != nil {
		return Intrinsics{}, &HeaderError{Reason: "camera_angle_y", Err: err}
	}

	return Intrinsics{
		Label:        fields[0],
		W:            w,
		H:            h,
		CameraAngleX: ax,
		CameraAngleY: ay,
	}, nil
}

func parseFrame(fields []string, lineNo int) (Record, error) {
	if len(fields) < frameFields {
		return Record{}, &FrameLineError{
			Line:   lineNo,
			Reason: fmt.Sprintf("got %d fields, want at least %d (id qw qx qy qz tx ty tz)", len(fields), frameFields),
		}
	}

	var vals [frameFields - 1]float64
	names := [...]string{"qw", "qx", "qy", "qz", "tx", "ty", "tz"}
	for i := range vals {
		v, err := ParseDecimal(fields[i+1])
		if err != nil {
			return Record{}, &FrameLineError{Line: lineNo, Reason: names[i], Err: err}
		}
		vals[i] = v
	}

	return Record{
		FrameID:     fields[0],
		Quaternion:  rotation.FromWXYZ(vals[0], vals[1], vals[2], vals[3]),
		Translation: r3.Vec{X: vals[4], Y: vals[5], Z: vals[6]},
		Line:        lineNo,
	}, nil
}

// ParseDecimal parses a finite float that may use ',' as the decimal point.
func ParseDecimal(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func parseDimension(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
