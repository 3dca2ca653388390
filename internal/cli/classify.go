package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/extrusion"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/region"
)

// classification is the result of classify, also its --json form.
type classification struct {
	Point      [3]float64 `json:"point"`
	Region     *string    `json:"region"`
	Multiplier float64    `json:"multiplier"`
	Geometry   float64    `json:"geometry"`
	Flow       float64    `json:"flow"`
}

// classifyCommand creates the classify command.
func (c *CLI) classifyCommand() *cobra.Command {
	var (
		project projectFlags
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "classify <x> <y> <z>",
		Short: "Show the region and field values at a point",
		Long: `Show the region and field values at a point.

Flow is the deposited volume relative to the slicer's. Put "--" before the
coordinates when one of them is negative.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var xyz [3]float64
			for i, a := range args {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return errors.New(errors.ErrCodeInvalidInput, "coordinate %q is not a number", a)
				}
				xyz[i] = v
			}

			cfg, err := project.load(cmd)
			if err != nil {
				return err
			}
			policy, err := region.ParseOutsidePolicy(cfg.Outside)
			if err != nil {
				return err
			}
			table, err := cfg.Table()
			if err != nil {
				return err
			}
			model, err := extrusion.NewModel(cfg.Params(), extrusion.FeedMode(cfg.FeedMode))
			if err != nil {
				return err
			}

			p := geom.Pt(xyz[0], xyz[1], xyz[2])
			res := classification{Point: xyz}
			r := table.Classifier(policy).Classify(p)
			v, err := table.Evaluate(r, p)
			if err != nil {
				return err
			}
			if r != nil {
				name := r.Name
				res.Region = &name
			}
			res.Multiplier, res.Geometry = v.Multiplier, v.Geometry
			res.Flow = model.ThreadArea(v) / model.ThreadArea(region.Unity)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			name := "none (slicer extrusion)"
			if res.Region != nil {
				name = *res.Region
			}
			fmt.Fprintf(out, "region      %s\n", name)
			fmt.Fprintf(out, "multiplier  %g\n", res.Multiplier)
			fmt.Fprintf(out, "geometry    %g\n", res.Geometry)
			fmt.Fprintf(out, "flow        x%.4f\n", res.Flow)
			return nil
		},
	}

	project.register(cmd, false)
	cmd.Flags().StringVar(&project.outside, "outside", "", "outside policy: baseline, nearest")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}
