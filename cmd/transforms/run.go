package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/camtransforms/internal/config"
	"github.com/banshee-data/camtransforms/internal/fsutil"
	"github.com/banshee-data/camtransforms/internal/manifest"
	"github.com/banshee-data/camtransforms/internal/monitoring"
	"github.com/banshee-data/camtransforms/internal/pipeline"
	"github.com/banshee-data/camtransforms/internal/poses"
	"github.com/banshee-data/camtransforms/internal/preview"
	"github.com/banshee-data/camtransforms/internal/runlog"
	"github.com/banshee-data/camtransforms/internal/transform"
	"github.com/banshee-data/camtransforms/internal/version"
)

type options struct {
	source     string
	target     string
	colmap     bool
	configPath string
	normalize  bool
	workers    int
	dbPath     string
	plotPath   string
	chartPath  string
	listRuns   int
	version    bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("transforms", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.source, "source", "transforms.txt", "pose file to convert")
	fs.StringVar(&o.target, "target", "transforms.json", "manifest to write; relative paths resolve next to -source")
	fs.BoolVar(&o.colmap, "colmap", false, "input comes from the structure-from-motion estimator (recenter mode)")
	fs.StringVar(&o.configPath, "config", "", "JSON config file")
	fs.BoolVar(&o.normalize, "normalize", false, "normalise quaternions before conversion")
	fs.IntVar(&o.workers, "workers", 0, "pass 1 worker count (0 = GOMAXPROCS)")
	fs.StringVar(&o.dbPath, "db", "", "sqlite run log (optional)")
	fs.StringVar(&o.plotPath, "plot", "", "write a PNG trajectory preview")
	fs.StringVar(&o.chartPath, "chart", "", "write an HTML trajectory preview")
	fs.IntVar(&o.listRuns, "list-runs", 0, "print the N most recent runs from -db and exit")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// targetPath resolves a relative target against the source directory.
func targetPath(source, target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(filepath.Dir(source), target)
}

// pipelineOptions layers explicitly set flags over the config file.
func (o *options) pipelineOptions(cfg *config.TransformsConfig) pipeline.Options {
	opts := cfg.PipelineOptions()
	if o.colmap {
		opts.Mode = pipeline.ModeRecenter
	}
	if o.set["normalize"] {
		opts.Normalize = o.normalize
	}
	if o.set["workers"] {
		opts.Workers = o.workers
	}
	return opts
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	if o.version {
		fmt.Fprintln(stdout, version.String())
		return 0
	}
	if err := execute(ctx, o, fsutil.OSFileSystem{}, stdout); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", category(err), err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, o *options, fsys fsutil.FileSystem, stdout io.Writer) error {
	if o.listRuns > 0 {
		return listRuns(o, stdout)
	}
	if o.workers < 0 {
		return &configError{fmt.Errorf("-workers must be non-negative, got %d", o.workers)}
	}

	cfg := config.EmptyConfig()
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return &configError{err}
		}
		cfg = loaded
	}
	opts := o.pipelineOptions(cfg)
	target := targetPath(o.source, o.target)

	done := monitoring.Stage("parse")
	f, err := fsys.Open(o.source)
	if err != nil {
		return &poses.ReadError{Err: err}
	}
	file, err := poses.NewParser(cfg.Lens()).Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", o.source, err)
	}
	done("%d frames from %s", len(file.Records), o.source)

	done = monitoring.Stage(opts.Mode.String())
	res, err := pipeline.Run(ctx, file.Records, opts)
	if err != nil {
		return err
	}
	if opts.Mode == pipeline.ModeRecenter {
		done("up vector (%.6f, %.6f, %.6f)", res.Up.X, res.Up.Y, res.Up.Z)
	} else {
		done("%d frames", len(res.Frames))
	}
	reportQuality(res.Frames)

	done = monitoring.Stage("write")
	if err := manifest.NewWriter(fsys).Write(target, manifest.Build(file.Intrinsics, res.Frames)); err != nil {
		return err
	}
	done("wrote manifest %s", target)

	if err := writePreviews(o, fsys, res.Frames); err != nil {
		return err
	}
	if o.dbPath != "" {
		if err := recordRun(o.dbPath, o.source, target, res); err != nil {
			return err
		}
	}
	return nil
}

// reportQuality logs output frames that are not rigid transforms. Non-unit
// quaternions legitimately produce these when normalisation is off.
func reportQuality(frames []pipeline.Frame) {
	var scaled, invalid int
	for _, f := range frames {
		v := transform.Validate(f.Transform, transform.MatrixValidationTolerance)
		switch v.Quality {
		case transform.QualityScaled:
			scaled++
		case transform.QualityInvalid:
			invalid++
			monitoring.Logf("warning: frame %s: %v", f.FrameID, v.Issues)
		}
	}
	if scaled > 0 {
		monitoring.Logf("warning: %d of %d frames carry uniform scale; consider -normalize", scaled, len(frames))
	}
	if invalid > 0 {
		monitoring.Logf("warning: %d of %d frames are not valid transforms", invalid, len(frames))
	}
}

func writePreviews(o *options, fsys fsutil.FileSystem, frames []pipeline.Frame) error {
	if o.plotPath == "" && o.chartPath == "" {
		return nil
	}
	if len(frames) == 0 {
		monitoring.Logf("no frames; skipping previews")
		return nil
	}
	r := preview.NewRenderer(fsys, filepath.Base(o.source))
	if o.plotPath != "" {
		if err := r.WritePNG(o.plotPath, frames); err != nil {
			return &manifest.IOError{Op: "plot", Path: o.plotPath, Err: err}
		}
		monitoring.Logf("wrote plot %s", o.plotPath)
	}
	if o.chartPath != "" {
		if err := r.WriteHTML(o.chartPath, frames); err != nil {
			return &manifest.IOError{Op: "chart", Path: o.chartPath, Err: err}
		}
		monitoring.Logf("wrote chart %s", o.chartPath)
	}
	return nil
}

func recordRun(dbPath, source, target string, res *pipeline.Result) error {
	db, err := runlog.Open(dbPath)
	if err != nil {
		return &runLogError{err}
	}
	defer db.Close()

	rec := &runlog.Run{
		Source:     source,
		Target:     target,
		Mode:       res.Mode.String(),
		FrameCount: len(res.Frames),
		Up:         res.Up,
	}
	if err := runlog.NewStore(db).Insert(rec); err != nil {
		return &runLogError{err}
	}
	monitoring.Logf("recorded run %s", rec.RunID)
	return nil
}

func listRuns(o *options, stdout io.Writer) error {
	if o.dbPath == "" {
		return &configError{fmt.Errorf("-list-runs requires -db")}
	}
	db, err := runlog.Open(o.dbPath)
	if err != nil {
		return &runLogError{err}
	}
	defer db.Close()

	runs, err := runlog.NewStore(db).Recent(o.listRuns)
	if err != nil {
		return &runLogError{err}
	}
	for _, r := range runs {
		fmt.Fprintf(stdout, "%s  %s  %-8s %5d frames  %s -> %s\n",
			r.Created().UTC().Format("2006-01-02T15:04:05Z"), r.RunID, r.Mode, r.FrameCount, r.Source, r.Target)
	}
	return nil
}
