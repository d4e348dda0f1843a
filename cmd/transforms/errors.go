package main

import (
	"context"
	"errors"
	"io/fs"

	"github.com/banshee-data/camtransforms/internal/config"
	"github.com/banshee-data/camtransforms/internal/manifest"
	"github.com/banshee-data/camtransforms/internal/pipeline"
	"github.com/banshee-data/camtransforms/internal/poses"
	"github.com/banshee-data/camtransforms/internal/rotation"
)

// Failure categories printed on stderr.
const (
	catMalformedHeader     = "MalformedHeader"
	catMalformedFrameLine  = "MalformedFrameLine"
	catDegenerateAlignment = "DegenerateAlignment"
	catSingularTransform   = "SingularTransform"
	catIOError             = "IOError"
	catInvalidConfig       = "InvalidConfig"
	catCanceled            = "Canceled"
	catError               = "Error"
)

// configError marks a failure to load or apply configuration.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// runLogError marks a failure to open or write the run log.
type runLogError struct{ err error }

func (e *runLogError) Error() string { return "run log: " + e.err.Error() }
func (e *runLogError) Unwrap() error { return e.err }

func category(err error) string {
	var (
		header   *poses.HeaderError
		line     *poses.FrameLineError
		read     *poses.ReadError
		degen    *rotation.DegenerateError
		singular *pipeline.SingularTransformError
		mio      *manifest.IOError
		invalid  *config.ValidationError
		cfgErr   *configError
		logErr   *runLogError
		pathErr  *fs.PathError
	)
	switch {
	case errors.As(err, &header):
		return catMalformedHeader
	case errors.As(err, &line):
		return catMalformedFrameLine
	case errors.As(err, &degen):
		return catDegenerateAlignment
	case errors.As(err, &singular):
		return catSingularTransform
	case errors.As(err, &invalid), errors.As(err, &cfgErr):
		return catInvalidConfig
	case errors.As(err, &read), errors.As(err, &mio), errors.As(err, &logErr), errors.As(err, &pathErr):
		return catIOError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return catCanceled
	default:
		return catError
	}
}
