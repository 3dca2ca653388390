// Package pipeline runs transforms with caching, logging and metrics.
//
// The engine package is a pure function from program to program. This
// package wraps it for the CLI and the server: it builds the region table
// from a project, looks the result up in a cache keyed by the content hashes
// of program and project, reports to the observability hooks and logs each
// stage.
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	defer runner.Close()
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Program: program,
//	    Config:  cfg,
//	})
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/vtprint/vtp/pkg/config"
	"github.com/vtprint/vtp/pkg/engine"
	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/region"
)

// Options configures one pipeline run.
type Options struct {
	// Program is the G-code to transform.
	Program []byte
	// Config is the validated project. Required.
	Config *config.Config
	// Table is the compiled region table. It is built from Config when nil.
	Table *region.Table
	// Refresh skips the cache lookup; the fresh result is still stored.
	Refresh bool
	// Progress is forwarded to the engine.
	Progress func(done, total int)

	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults checks required fields and fills defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Config == nil {
		return errors.New(errors.ErrCodeConfiguration, "project configuration is required")
	}
	if err := o.Config.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Result is the outcome of a pipeline run.
type Result struct {
	RunID       string
	Output      []byte
	Stats       engine.Stats
	ProgramHash string
	ProjectHash string
	CacheHit    bool
	Duration    time.Duration
}
