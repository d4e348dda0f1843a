package config

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/banshee-data/camtransforms/internal/pipeline"
	"github.com/banshee-data/camtransforms/internal/poses"
	"github.com/banshee-data/camtransforms/internal/rotation"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/transforms.defaults.json"

// maxFileSize bounds config files read from disk.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// TransformsConfig holds the converter settings. Every field is optional;
// the Get* accessors supply defaults for fields left out of the file.
type TransformsConfig struct {
	// Pipeline
	Mode       *string `json:"mode,omitempty"` // "direct" or "recenter"
	Normalize  *bool   `json:"normalize,omitempty"`
	FilePrefix *string `json:"file_prefix,omitempty"`
	FileSuffix *string `json:"file_suffix,omitempty"`
	Workers    *int    `json:"workers,omitempty"`

	// Antiparallel alignment
	AlignStrategy    *string `json:"align_strategy,omitempty"` // "halfturn" or "perturb"
	AlignMaxAttempts *int    `json:"align_max_attempts,omitempty"`
	AlignSeed        *uint64 `json:"align_seed,omitempty"`

	// Lens calibration
	FlX       *float64 `json:"fl_x,omitempty"`
	FlY       *float64 `json:"fl_y,omitempty"`
	K1        *float64 `json:"k1,omitempty"`
	K2        *float64 `json:"k2,omitempty"`
	P1        *float64 `json:"p1,omitempty"`
	P2        *float64 `json:"p2,omitempty"`
	Cx        *float64 `json:"cx,omitempty"`
	Cy        *float64 `json:"cy,omitempty"`
	AABBScale *int     `json:"aabb_scale,omitempty"`
}

// ValidationError reports a config value outside its allowed range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// EmptyConfig returns a TransformsConfig with all fields nil.
func EmptyConfig() *TransformsConfig {
	return &TransformsConfig{}
}

// LoadConfig loads a TransformsConfig from a JSON file. The file must have
// a .json extension and be at most 1MB. Omitted fields keep their defaults.
func LoadConfig(path string) (*TransformsConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. Panics if the file cannot be loaded; intended for
// test setup.
func MustLoadDefaultConfig() *TransformsConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that set values are usable.
func (c *TransformsConfig) Validate() error {
	if c.Mode != nil {
		if _, err := pipeline.ParseMode(*c.Mode); err != nil {
			return &ValidationError{Field: "mode", Reason: err.Error()}
		}
	}
	if c.AlignStrategy != nil {
		if _, err := rotation.ParseStrategy(*c.AlignStrategy); err != nil {
			return &ValidationError{Field: "align_strategy", Reason: err.Error()}
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return &ValidationError{Field: "workers", Reason: fmt.Sprintf("must be non-negative, got %d", *c.Workers)}
	}
	if c.AlignMaxAttempts != nil && *c.AlignMaxAttempts <= 0 {
		return &ValidationError{Field: "align_max_attempts", Reason: fmt.Sprintf("must be positive, got %d", *c.AlignMaxAttempts)}
	}
	if c.AABBScale != nil && *c.AABBScale <= 0 {
		return &ValidationError{Field: "aabb_scale", Reason: fmt.Sprintf("must be positive, got %d", *c.AABBScale)}
	}
	if c.FlX != nil && *c.FlX <= 0 {
		return &ValidationError{Field: "fl_x", Reason: fmt.Sprintf("must be positive, got %f", *c.FlX)}
	}
	if c.FlY != nil && *c.FlY <= 0 {
		return &ValidationError{Field: "fl_y", Reason: fmt.Sprintf("must be positive, got %f", *c.FlY)}
	}
	return nil
}

// GetMode returns the configured pipeline mode or direct.
func (c *TransformsConfig) GetMode() pipeline.Mode {
	if c.Mode == nil {
		return pipeline.ModeDirect
	}
	m, err := pipeline.ParseMode(*c.Mode)
	if err != nil {
		return pipeline.ModeDirect
	}
	return m
}

// GetNormalize returns the normalize value or the default.
func (c *TransformsConfig) GetNormalize() bool {
	if c.Normalize == nil {
		return false
	}
	return *c.Normalize
}

// GetFilePrefix returns the file_prefix value or the default.
func (c *TransformsConfig) GetFilePrefix() string {
	if c.FilePrefix == nil {
		return pipeline.DefaultFilePrefix
	}
	return *c.FilePrefix
}

// GetFileSuffix returns the file_suffix value or the default.
func (c *TransformsConfig) GetFileSuffix() string {
	if c.FileSuffix == nil {
		return pipeline.DefaultFileSuffix
	}
	return *c.FileSuffix
}

// GetWorkers returns the workers value; zero means GOMAXPROCS.
func (c *TransformsConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetAlignStrategy returns the configured antiparallel strategy.
func (c *TransformsConfig) GetAlignStrategy() rotation.Strategy {
	if c.AlignStrategy == nil {
		return rotation.StrategyHalfTurn
	}
	s, err := rotation.ParseStrategy(*c.AlignStrategy)
	if err != nil {
		return rotation.StrategyHalfTurn
	}
	return s
}

// GetAlignMaxAttempts returns the align_max_attempts value or the default.
func (c *TransformsConfig) GetAlignMaxAttempts() int {
	if c.AlignMaxAttempts == nil {
		return rotation.DefaultMaxAttempts
	}
	return *c.AlignMaxAttempts
}

// Lens returns the calibration with defaults for unset constants.
func (c *TransformsConfig) Lens() poses.Lens {
	l := poses.DefaultLens()
	setFloat(&l.FlX, c.FlX)
	setFloat(&l.FlY, c.FlY)
	setFloat(&l.K1, c.K1)
	setFloat(&l.K2, c.K2)
	setFloat(&l.P1, c.P1)
	setFloat(&l.P2, c.P2)
	setFloat(&l.Cx, c.Cx)
	setFloat(&l.Cy, c.Cy)
	if c.AABBScale != nil {
		l.AABBScale = *c.AABBScale
	}
	return l
}

// Aligner builds the rotation aligner. A seed makes the perturb strategy
// reproducible.
func (c *TransformsConfig) Aligner() rotation.Aligner {
	al := rotation.Aligner{
		Strategy:    c.GetAlignStrategy(),
		MaxAttempts: c.GetAlignMaxAttempts(),
	}
	if c.AlignSeed != nil {
		al.Rand = rand.New(rand.NewPCG(*c.AlignSeed, *c.AlignSeed))
	}
	return al
}

// PipelineOptions returns the pipeline.Options described by c.
func (c *TransformsConfig) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Mode:       c.GetMode(),
		Normalize:  c.GetNormalize(),
		FilePrefix: c.GetFilePrefix(),
		FileSuffix: c.GetFileSuffix(),
		Workers:    c.GetWorkers(),
		Aligner:    c.Aligner(),
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
