package engine

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/extrusion"
	"github.com/vtprint/vtp/pkg/gcode"
	"github.com/vtprint/vtp/pkg/region"
	"github.com/vtprint/vtp/pkg/split"
)

// DefaultTravelSpeed is the feed rate, in mm/min, of the travel moves that
// replace removed nozzle-check lines.
const DefaultTravelSpeed = 15000.0

// Options configures an Engine.
type Options struct {
	// Regions is the ordered region table. Required.
	Regions *region.Table
	// Outside selects what happens to points outside every region.
	Outside region.OutsidePolicy

	Params   extrusion.Params
	FeedMode extrusion.FeedMode
	Split    split.Options
	Format   gcode.Format

	// Features limits transformation to the named deposition features.
	// Empty transforms every deposition feature.
	Features []string
	// KeepNozzleCheck transforms nozzle-check lines instead of removing them.
	KeepNozzleCheck bool
	// TravelSpeed is the feed of the travel moves that replace removed
	// nozzle-check lines, in mm/min.
	TravelSpeed float64

	// Workers is the number of moves split and recomputed concurrently.
	// 1 runs fully sequentially.
	Workers int
	// Progress, when set, is called as moves finish. Calls are serialized.
	Progress func(done, total int)

	Logger *log.Logger
}

// SetDefaults fills zero values with defaults.
func (o *Options) SetDefaults() {
	if o.Outside == "" {
		o.Outside = region.OutsideBaseline
	}
	if o.Params == (extrusion.Params{}) {
		o.Params = extrusion.DefaultParams()
	}
	if o.FeedMode == "" {
		o.FeedMode = extrusion.FeedSource
	}
	o.Split.SetDefaults()
	if o.Format == (gcode.Format{}) {
		o.Format = gcode.DefaultFormat
	}
	if o.TravelSpeed == 0 {
		o.TravelSpeed = DefaultTravelSpeed
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// Validate checks the options. Call SetDefaults first.
func (o *Options) Validate() error {
	if o.Regions == nil || o.Regions.Len() == 0 {
		return errors.New(errors.ErrCodeConfiguration, "no regions configured")
	}
	if _, err := region.ParseOutsidePolicy(string(o.Outside)); err != nil {
		return err
	}
	if err := o.Params.Validate(); err != nil {
		return err
	}
	if err := o.Split.Validate(); err != nil {
		return err
	}
	if err := errors.ValidatePositive("travel_speed", o.TravelSpeed); err != nil {
		return err
	}
	if o.Format.PrecXYZ < 0 || o.Format.PrecE < 0 {
		return errors.New(errors.ErrCodeConfiguration, "precision must not be negative")
	}
	for _, f := range o.Features {
		if !gcode.Normalise(f).Deposits() {
			return errors.New(errors.ErrCodeConfiguration, "feature %q does not deposit material", f)
		}
	}
	return nil
}
