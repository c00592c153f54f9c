package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"qtranspile/internal/compiler"
	"qtranspile/internal/dag"
	"qtranspile/internal/qasm"
	"qtranspile/internal/result"
	"qtranspile/internal/target"
	"qtranspile/internal/tui"
)

// targetFlags select and override the compilation target.
func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "target description `FILE` (TOML)"},
		&cli.StringSliceFlag{Name: "basis", Usage: "basis gate names, overriding the target"},
		&cli.Float64Flag{Name: "fidelity", Usage: "two-qubit synthesis fidelity in (0, 1]"},
		&cli.BoolFlag{Name: "pulse-optimize", Usage: "orient entanglers along the device direction and resynthesize swaps"},
		&cli.IntFlag{Name: "max-depth", Usage: "maximum nested rule expansions"},
	}
}

func newApp(stdout io.Writer) *cli.App {
	var logger *zap.Logger
	app := &cli.App{
		Name:      "qtranspile",
		Usage:     "compile OpenQASM circuits to a device basis",
		Writer:    stdout,
		ErrWriter: os.Stderr,
		// main owns the exit code.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "development logging at debug level"},
		},
		Before: func(c *cli.Context) error {
			var err error
			if c.Bool("verbose") {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			return nil
		},
		After: func(*cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "compile",
				Usage:     "compile one or more circuits",
				ArgsUsage: "FILE.qasm...",
				Flags: append(targetFlags(),
					&cli.BoolFlag{Name: "verify", Usage: "check the result against the input with the simulator"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write QASM to `PATH` (a directory when compiling several files)"},
					&cli.StringFlag{Name: "metrics", Usage: "write pass metrics to `FILE` in Prometheus text format"},
				),
				Action: func(c *cli.Context) error { return compileCmd(c, logger) },
			},
			{
				Name:      "view",
				Usage:     "compile a circuit and browse the source and result",
				ArgsUsage: "FILE.qasm",
				Flags:     targetFlags(),
				Action:    func(c *cli.Context) error { return viewCmd(c, logger) },
			},
			{
				Name:      "marginal",
				Usage:     "marginalize a JSON counts histogram over the given bits",
				ArgsUsage: "COUNTS.json",
				Flags: []cli.Flag{
					&cli.IntSliceFlag{Name: "indices", Aliases: []string{"i"}, Usage: "bit indices to keep (all when omitted)"},
					&cli.BoolFlag{Name: "pad-zeros", Usage: "list outcomes that were never observed"},
					&cli.IntSliceFlag{Name: "layout", Usage: "logical to physical bit map applied before marginalizing"},
				},
				Action: marginalCmd,
			},
		},
	}
	return app
}

// loadTarget reads --target and applies the override flags.
func loadTarget(c *cli.Context) (*target.Target, error) {
	t := target.Default()
	if path := c.String("target"); path != "" {
		var err error
		if t, err = target.Load(path); err != nil {
			return nil, err
		}
	}
	if c.IsSet("basis") {
		t.Basis = c.StringSlice("basis")
	}
	if c.IsSet("fidelity") {
		t.SynthesisFidelity = c.Float64("fidelity")
	}
	if c.IsSet("pulse-optimize") {
		t.PulseOptimize = c.Bool("pulse-optimize")
	}
	if c.IsSet("max-depth") {
		t.MaxUnrollDepth = c.Int("max-depth")
	}
	return t, t.Validate()
}

func compileCmd(c *cli.Context, logger *zap.Logger) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return cli.Exit("compile needs at least one QASM file", 2)
	}
	t, err := loadTarget(c)
	if err != nil {
		return err
	}
	circuits := make([]*dag.DAG, len(files))
	for i, f := range files {
		if circuits[i], err = qasm.ParseFile(f); err != nil {
			return err
		}
	}

	reports, err := compiler.CompileAll(c.Context, circuits, t, compiler.Options{Logger: logger, Verify: c.Bool("verify")})
	if err != nil {
		return err
	}
	for i, rep := range reports {
		logger.Info("compiled",
			zap.String("file", files[i]),
			zap.String("run_id", rep.RunID),
			zap.Int("depth_before", rep.DepthBefore),
			zap.Int("depth_after", rep.DepthAfter),
			zap.Any("ops_after", rep.OpsAfter),
			zap.Bool("verified", rep.Verified),
		)
		if err := writeOutput(c, files, i, rep.DAG); err != nil {
			return err
		}
	}
	if path := c.String("metrics"); path != "" {
		return writeMetrics(path)
	}
	return nil
}

func writeOutput(c *cli.Context, files []string, i int, d *dag.DAG) error {
	text, err := qasm.Format(d)
	if err != nil {
		return err
	}
	out := c.String("output")
	switch {
	case out == "":
		if len(files) > 1 {
			fmt.Fprintf(c.App.Writer, "// %s\n", files[i])
		}
		_, err = io.WriteString(c.App.Writer, text)
		return err
	case len(files) > 1:
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		out = filepath.Join(out, filepath.Base(files[i]))
	}
	return os.WriteFile(out, []byte(text), 0o644)
}

func writeMetrics(path string) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func viewCmd(c *cli.Context, logger *zap.Logger) error {
	if c.NArg() != 1 {
		return cli.Exit("view needs exactly one QASM file", 2)
	}
	t, err := loadTarget(c)
	if err != nil {
		return err
	}
	d, err := qasm.ParseFile(c.Args().First())
	if err != nil {
		return err
	}
	rep, err := compiler.Compile(c.Context, d, t, compiler.Options{Logger: logger})
	if err != nil {
		return err
	}
	return tui.Run(d, rep.DAG, rep.RunID)
}

func marginalCmd(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("marginal needs exactly one counts file", 2)
	}
	blob, err := os.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	var counts result.Counts
	if err := json.Unmarshal(blob, &counts); err != nil {
		return fmt.Errorf("%s: %w", c.Args().First(), err)
	}
	if counts, err = result.Relabel(counts, c.IntSlice("layout")); err != nil {
		return err
	}
	var indices []int
	if c.IsSet("indices") {
		indices = c.IntSlice("indices")
	}
	out, err := result.Marginalize(counts, indices, c.Bool("pad-zeros"))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
