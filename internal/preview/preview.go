// Package preview renders top-down views of the corrected camera
// trajectory: a static PNG via gonum/plot and an interactive HTML scatter
// via go-echarts.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/camtransforms/internal/fsutil"
	"github.com/banshee-data/camtransforms/internal/pipeline"
)

// ErrNoFrames is returned when there is nothing to draw.
var ErrNoFrames = errors.New("preview: no frames")

// Renderer writes previews through a FileSystem.
type Renderer struct {
	FS    fsutil.FileSystem
	Title string
}

// NewRenderer returns a Renderer on fsys. A nil fsys uses the OS
// filesystem.
func NewRenderer(fsys fsutil.FileSystem, title string) *Renderer {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	return &Renderer{FS: fsys, Title: title}
}

// Centres returns the camera positions of frames in order.
func Centres(frames []pipeline.Frame) []r3.Vec {
	out := make([]r3.Vec, len(frames))
	for i, f := range frames {
		out[i] = f.Transform.Translation()
	}
	return out
}

// WritePNG draws the camera centres projected on the XY plane, joined in
// frame order, and writes the image to path.
func (r *Renderer) WritePNG(path string, frames []pipeline.Frame) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	pts := make(plotter.XYs, len(frames))
	for i, c := range Centres(frames) {
		pts[i] = plotter.XY{X: c.X, Y: c.Y}
	}

	p := plot.New()
	p.Title.Text = r.Title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("trajectory line: %w", err)
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{R: 160, G: 160, B: 160, A: 255}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("camera scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		s := scatter.GlyphStyle
		s.Color = ramp(i, len(pts))
		return s
	}

	p.Add(plotter.NewGrid(), line, scatter)
	p.Legend.Add("cameras", scatter)
	p.Legend.Top = true

	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return fsutil.WriteFileAtomic(r.FS, path, buf.Bytes(), 0o644)
}

// viridis stops used by both renderers.
var palette = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// ramp maps frame i of n onto the palette.
func ramp(i, n int) color.Color {
	idx := 0
	if n > 1 {
		idx = i * (len(palette) - 1) / (n - 1)
	}
	return hexColor(palette[idx])
}

// hexColor parses a #rrggbb string; malformed input yields black.
func hexColor(s string) color.RGBA {
	c := color.RGBA{A: 255}
	if len(s) != 7 || s[0] != '#' {
		return c
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return c
	}
	c.R, c.G, c.B = uint8(v>>16), uint8(v>>8), uint8(v)
	return c
}

// WriteHTML renders an interactive scatter of the camera centres, coloured
// by frame index, and writes the page to path.
func (r *Renderer) WriteHTML(path string, frames []pipeline.Frame) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	centres := Centres(frames)
	data := make([]opts.ScatterData, len(frames))
	pad := 0.0
	for i, c := range centres {
		data[i] = opts.ScatterData{
			Name:  frames[i].FilePath,
			Value: []interface{}{c.X, c.Y, i},
		}
		pad = math.Max(pad, math.Max(math.Abs(c.X), math.Abs(c.Y)))
	}
	pad = math.Ceil(pad*1.1*100) / 100
	if pad == 0 {
		pad = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: r.Title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: r.Title, Subtitle: fmt.Sprintf("frames=%d", len(frames))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(len(frames) - 1),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: palette},
		}),
	)
	scatter.AddSeries("cameras", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return fsutil.WriteFileAtomic(r.FS, path, buf.Bytes(), 0o644)
}
