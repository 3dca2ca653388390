package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vtprint/vtp/pkg/extrusion"
	"github.com/vtprint/vtp/pkg/region"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var project projectFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load a project and compile its regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := project.load(cmd)
			if err != nil {
				return err
			}
			table, err := c.compileRegions(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			model, err := extrusion.NewModel(cfg.Params(), extrusion.FeedMode(cfg.FeedMode))
			if err != nil {
				return err
			}

			printSuccess("Project is valid")
			printKeyValue("file", project.config)
			printKeyValue("regions", fmt.Sprintf("%d", table.Len()))
			printKeyValue("outside", cfg.Outside)
			printKeyValue("feed mode", cfg.FeedMode)
			printKeyValue("increment", fmt.Sprintf("%g mm", cfg.EvalIncrement))
			printKeyValue("thread", fmt.Sprintf("%.4f mm²", model.ThreadArea(region.Unity)))
			fmt.Println()
			fmt.Println(StyleTitle.Render("Regions"))
			for _, r := range table.Regions() {
				mult, geo := r.Exprs()
				printInfo("%d %s", r.Index, StyleValue.Render(r.Name))
				printDetail("multiplier %s", mult)
				printDetail("geometry   %s", geo)
			}
			return nil
		},
	}

	project.register(cmd, false)

	return cmd
}
