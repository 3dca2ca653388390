// Package config loads vtp project files.
//
// A project file declares the physical constants, the transform settings
// and the ordered list of regions, each with a solid and, unless a separate
// equations file is given, its two field expressions. TOML and YAML are
// accepted; the format follows the file extension.
//
//	nozzle_dia = 0.4
//	eval_increment = 0.5
//
//	[[regions]]
//	name = "core"
//	multiplier = "1.0"
//	geometry = "1 + z/20"
//	[regions.solid]
//	type = "box"
//	min = [90, 90, 0]
//	max = [110, 110, 20]
package config

import (
	"os"
	"path/filepath"

	"github.com/vtprint/vtp/pkg/engine"
	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/extrusion"
	"github.com/vtprint/vtp/pkg/field"
	"github.com/vtprint/vtp/pkg/gcode"
	"github.com/vtprint/vtp/pkg/region"
	"github.com/vtprint/vtp/pkg/solid"
	"github.com/vtprint/vtp/pkg/split"
)

// Config is a parsed project file.
type Config struct {
	// Physical constants.
	Alpha     float64 `toml:"alpha" yaml:"alpha" json:"alpha"`
	NozzleDia float64 `toml:"nozzle_dia" yaml:"nozzle_dia" json:"nozzle_dia"`
	FilDia    float64 `toml:"fil_dia" yaml:"fil_dia" json:"fil_dia"`
	EDot      float64 `toml:"e_dot" yaml:"e_dot" json:"e_dot"`

	// Splitting.
	EvalIncrement float64 `toml:"eval_increment" yaml:"eval_increment" json:"eval_increment"`
	Tolerance     float64 `toml:"tolerance" yaml:"tolerance" json:"tolerance"`
	MaxIterations int     `toml:"max_iterations" yaml:"max_iterations" json:"max_iterations"`
	MaxBoundaries int     `toml:"max_boundaries" yaml:"max_boundaries" json:"max_boundaries"`

	// Transform.
	FeedMode        string   `toml:"feed_mode" yaml:"feed_mode" json:"feed_mode"`
	Outside         string   `toml:"outside" yaml:"outside" json:"outside"`
	Features        []string `toml:"features" yaml:"features" json:"features,omitempty"`
	KeepNozzleCheck bool     `toml:"keep_nozzle_check" yaml:"keep_nozzle_check" json:"keep_nozzle_check"`
	TravelSpeed     float64  `toml:"travel_speed" yaml:"travel_speed" json:"travel_speed"`
	Workers         int      `toml:"workers" yaml:"workers" json:"workers"`
	PrecisionXYZ    int      `toml:"precision_xyz" yaml:"precision_xyz" json:"precision_xyz"`
	PrecisionE      int      `toml:"precision_e" yaml:"precision_e" json:"precision_e"`

	// Equations names a "multiplier ; geometry" file binding pairs to
	// regions by position. When empty every region carries its own pair.
	Equations string `toml:"equations" yaml:"equations" json:"equations,omitempty"`

	Regions []Region `toml:"regions" yaml:"regions" json:"regions"`

	// Dir resolves relative paths. Load sets it to the file's directory.
	Dir string `toml:"-" yaml:"-" json:"-"`
}

// Region declares one region.
type Region struct {
	Name       string         `toml:"name" yaml:"name" json:"name"`
	Multiplier string         `toml:"multiplier" yaml:"multiplier" json:"multiplier,omitempty"`
	Geometry   string         `toml:"geometry" yaml:"geometry" json:"geometry,omitempty"`
	Solid      map[string]any `toml:"solid" yaml:"solid" json:"solid"`
}

// Default returns a configuration with every setting at its default and no
// regions.
func Default() Config {
	p := extrusion.DefaultParams()
	return Config{
		Alpha:         p.Alpha,
		NozzleDia:     p.NozzleDia,
		FilDia:        p.FilDia,
		EDot:          p.EDot,
		EvalIncrement: split.DefaultIncrement,
		Tolerance:     split.DefaultTolerance,
		MaxIterations: split.DefaultMaxIterations,
		MaxBoundaries: split.DefaultMaxBoundaries,
		FeedMode:      string(extrusion.FeedSource),
		Outside:       string(region.OutsideBaseline),
		TravelSpeed:   engine.DefaultTravelSpeed,
		Workers:       1,
		PrecisionXYZ:  gcode.DefaultFormat.PrecXYZ,
		PrecisionE:    gcode.DefaultFormat.PrecE,
	}
}

// SetDefaults fills settings left at zero. Booleans, features and
// precisions are taken as given.
func (c *Config) SetDefaults() {
	d := Default()
	setFloat(&c.Alpha, d.Alpha)
	setFloat(&c.NozzleDia, d.NozzleDia)
	setFloat(&c.FilDia, d.FilDia)
	setFloat(&c.EDot, d.EDot)
	setFloat(&c.EvalIncrement, d.EvalIncrement)
	setFloat(&c.Tolerance, d.Tolerance)
	setFloat(&c.TravelSpeed, d.TravelSpeed)
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxBoundaries == 0 {
		c.MaxBoundaries = d.MaxBoundaries
	}
	if c.FeedMode == "" {
		c.FeedMode = d.FeedMode
	}
	if c.Outside == "" {
		c.Outside = d.Outside
	}
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

// Params returns the physical constants.
func (c *Config) Params() extrusion.Params {
	return extrusion.Params{Alpha: c.Alpha, NozzleDia: c.NozzleDia, FilDia: c.FilDia, EDot: c.EDot}
}

// SplitOptions returns the splitter settings.
func (c *Config) SplitOptions() split.Options {
	return split.Options{
		Increment:     c.EvalIncrement,
		Tolerance:     c.Tolerance,
		MaxIterations: c.MaxIterations,
		MaxBoundaries: c.MaxBoundaries,
	}
}

// Validate checks every setting that can be checked without building the
// regions.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if err := c.SplitOptions().Validate(); err != nil {
		return err
	}
	if _, err := region.ParseOutsidePolicy(c.Outside); err != nil {
		return err
	}
	switch extrusion.FeedMode(c.FeedMode) {
	case extrusion.FeedSource, extrusion.FeedVolumetric:
	default:
		return errors.New(errors.ErrCodeConfiguration, "unknown feed_mode %q (want source or volumetric)", c.FeedMode)
	}
	if err := errors.ValidatePositive("travel_speed", c.TravelSpeed); err != nil {
		return err
	}
	if c.Workers < 1 {
		return errors.New(errors.ErrCodeConfiguration, "workers must be at least 1, got %d", c.Workers)
	}
	if c.PrecisionXYZ < 0 || c.PrecisionE < 0 {
		return errors.New(errors.ErrCodeConfiguration, "precision must not be negative")
	}
	if len(c.Regions) == 0 {
		return errors.New(errors.ErrCodeConfiguration, "no regions declared")
	}
	for i, r := range c.Regions {
		if err := errors.ValidateRegionName(r.Name); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "region %d", i+1)
		}
		if len(r.Solid) == 0 {
			return errors.New(errors.ErrCodeConfiguration, "region %q has no solid", r.Name)
		}
		if c.Equations == "" && (r.Multiplier == "" || r.Geometry == "") {
			return errors.New(errors.ErrCodeConfiguration,
				"region %q needs multiplier and geometry expressions or an equations file", r.Name)
		}
	}
	if c.Equations != "" {
		if err := errors.ValidatePath(c.Equations); err != nil {
			return err
		}
	}
	return nil
}

// Path resolves p against Dir.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Pairs returns the field pairs in region order, read from the equations
// file when one is set.
func (c *Config) Pairs() ([]field.Pair, error) {
	if c.Equations == "" {
		pairs := make([]field.Pair, len(c.Regions))
		for i, r := range c.Regions {
			pairs[i] = field.Pair{Multiplier: r.Multiplier, Geometry: r.Geometry}
		}
		return pairs, nil
	}
	f, err := os.Open(c.Path(c.Equations))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "equations file %s", c.Equations)
		}
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "open equations file")
	}
	defer f.Close()
	return field.ParsePairs(f)
}

// Table builds the region table: solids are decoded, expressions compiled
// and pairs bound to regions in declaration order.
func (c *Config) Table() (*region.Table, error) {
	solids := make([]solid.Named, len(c.Regions))
	for i, r := range c.Regions {
		s, err := solid.Decode(r.Solid, c.Dir)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "region %q", r.Name)
		}
		solids[i] = solid.Named{Name: r.Name, Solid: s}
	}
	pairs, err := c.Pairs()
	if err != nil {
		return nil, err
	}
	return region.NewTable(solids, pairs)
}

// EngineOptions returns engine options for the given table.
func (c *Config) EngineOptions(t *region.Table) engine.Options {
	return engine.Options{
		Regions:         t,
		Outside:         region.OutsidePolicy(c.Outside),
		Params:          c.Params(),
		FeedMode:        extrusion.FeedMode(c.FeedMode),
		Split:           c.SplitOptions(),
		Format:          gcode.Format{PrecXYZ: c.PrecisionXYZ, PrecE: c.PrecisionE},
		Features:        c.Features,
		KeepNozzleCheck: c.KeepNozzleCheck,
		TravelSpeed:     c.TravelSpeed,
		Workers:         c.Workers,
	}
}
