package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vtprint/vtp/pkg/config"
)

// initCommand creates the init command, which writes a sample project.
func (c *CLI) initCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Write a sample project file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfig
			if len(args) == 1 {
				path = args[0]
			}
			format, err := config.FormatFor(path)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create project: %w", err)
			}
			if err := config.Encode(f, config.Sample(), format); err != nil {
				f.Close()
				return fmt.Errorf("write project: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}

			printSuccess("Wrote sample project")
			printFile(path)
			printNextStep("Transform a program", fmt.Sprintf("vtp transform -c %s part.gcode", path))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}
