package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vtprint/vtp/pkg/pipeline"
)

// stdio names standard input or output in place of a path.
const stdio = "-"

// transformOpts holds the command-line flags for the transform command.
type transformOpts struct {
	project  projectFlags
	cache    cacheFlags
	output   string // output path, "-" for stdout
	progress bool   // show a progress bar while planning
	refresh  bool   // skip the cache lookup
}

// transformCommand creates the transform command.
func (c *CLI) transformCommand() *cobra.Command {
	var opts transformOpts

	cmd := &cobra.Command{
		Use:   "transform <input.gcode>",
		Short: "Rewrite a G-code program for variable thickness",
		Long: `Rewrite a G-code program for variable thickness.

Each extruding move is split where it crosses a region boundary and at the
project's eval_increment, then re-extruded for the fields of the region each
piece lies in. Use "-" to read the program from stdin.

The output defaults to <input>.vtp.gcode next to the input, or stdout when
reading from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTransform(cmd, args[0], &opts)
		},
	}

	opts.project.register(cmd, true)
	opts.cache.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file ("-" for stdout)`)
	cmd.Flags().BoolVarP(&opts.progress, "progress", "p", false, "show a progress bar")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")

	return cmd
}

func (c *CLI) runTransform(cmd *cobra.Command, input string, opts *transformOpts) error {
	ctx := cmd.Context()
	cfg, err := opts.project.load(cmd)
	if err != nil {
		return err
	}
	program, err := readProgram(input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	table, err := c.compileRegions(ctx, cfg)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()

	popts := pipeline.Options{
		Program: program,
		Config:  cfg,
		Table:   table,
		Refresh: opts.refresh,
		Logger:  loggerFromContext(ctx),
	}

	var res *pipeline.Result
	execute := func(report func(done, total int)) error {
		popts.Progress = report
		res, err = runner.Execute(ctx, popts)
		return err
	}
	if opts.progress {
		err = runWithProgress(ctx, "Planning", execute)
	} else {
		err = execute(nil)
	}
	if err != nil {
		return err
	}

	out := outputPath(input, opts.output)
	if err := writeOutput(out, res.Output, cmd.OutOrStdout()); err != nil {
		return err
	}
	if out == stdio {
		return nil
	}

	if res.Stats.MovesTransformed == 0 {
		printWarning("No extruding moves matched; the program was copied unchanged")
		printFile(out)
		return nil
	}
	printSuccess("Transformed %d moves into %d sub-moves", res.Stats.MovesTransformed, res.Stats.SubMoves)
	printFile(out)
	printRunStats(res.Stats, res.CacheHit)
	fmt.Println(statsTable(res.Stats))
	if res.Stats.Resyncs > 0 {
		printInfo("%d extruder resyncs inserted", res.Stats.Resyncs)
	}
	return nil
}

// readProgram reads the program at path, or from stdin for "-".
func readProgram(path string, stdin io.Reader) ([]byte, error) {
	if path == stdio {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return data, nil
}

// outputPath picks the output path: the flag when set, stdout when the
// input is stdin, and otherwise <input>.vtp<ext>.
func outputPath(input, flag string) string {
	switch {
	case flag != "":
		return flag
	case input == stdio:
		return stdio
	}
	ext := filepath.Ext(input)
	if ext == "" {
		ext = ".gcode"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".vtp" + ext
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == stdio {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
