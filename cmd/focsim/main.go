package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/focsim/internal/config"
	"github.com/san-kum/focsim/internal/export"
	"github.com/san-kum/focsim/internal/rig"
	"github.com/san-kum/focsim/internal/storage"
	"github.com/san-kum/focsim/internal/tui"
	"github.com/san-kum/focsim/internal/tune"
)

var (
	dataDir    string
	configFile string
	preset     string

	dt       float64
	duration float64
	timing   string
	cpr      int32
	kp       float64
	ki       float64
	kd       float64
	ramp     float64
	limit    float64
	tf       float64
	minDt    float64
	target   float64
	load     float64

	tuneP      string
	tuneI      string
	tuneD      string
	tuneTf     string
	tuneLoads  string
	tuneMetric string
	tuneTop    int

	svgWidth  int
	svgHeight int
)

// main registers the focsim commands and exits with status 1 on error.
// Without a subcommand it opens the live tuner on the preset menu.
func main() {
	rootCmd := &cobra.Command{
		Use:   "focsim",
		Short: "SimpleFOC PID, filter and encoder test rig",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(nil)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".focsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the velocity loop offline and store the result",
		Args:  cobra.NoArgs,
		RunE:  runRig,
	}
	rigFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export a velocity plot of a run to SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := storage.New(dataDir).LoadSamples(args[0])
			if err != nil {
				return err
			}
			return export.SamplesToSVG(os.Stdout, samples, export.VelocitySeries, svgWidth, svgHeight)
		},
	}
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTIMING\tDURATION\tCPR\tTARGETS")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				targets := make([]string, len(p.Setpoints))
				for i, sp := range p.Setpoints {
					targets[i] = fmt.Sprintf("%g@%gs", sp.Value, sp.At)
				}
				fmt.Fprintf(w, "%s\t%s\t%.1fs\t%d\t%s\n", name, p.Timing, p.Duration, p.CPR, strings.Join(targets, " "))
			}
			return w.Flush()
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search PID and filter settings",
		Args:  cobra.NoArgs,
		RunE:  tuneRig,
	}
	rigFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&tuneP, "p-range", "0.05:0.2:4", "P values, min:max:n or a,b,c")
	tuneCmd.Flags().StringVar(&tuneI, "i-range", "1:10:4", "I values")
	tuneCmd.Flags().StringVar(&tuneD, "d-range", "", "D values")
	tuneCmd.Flags().StringVar(&tuneTf, "tf-range", "", "filter Tf values")
	tuneCmd.Flags().StringVar(&tuneLoads, "loads", "", "load torques to score each trial against, worst case wins")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "tracking_rmse", "metric to minimize")
	tuneCmd.Flags().IntVar(&tuneTop, "top", 10, "trials to print")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "tune the velocity loop interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" && preset == "" && !anyRigFlag(cmd) {
				return tui.Run(nil)
			}
			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			return tui.Run(cfg)
		},
	}
	rigFlags(liveCmd)

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, presetsCmd, tuneCmd, liveCmd, commanderCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func rigFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", d.Dt, "control period in seconds")
	f.Float64Var(&duration, "time", d.Duration, "duration in seconds")
	f.StringVar(&timing, "timing", d.Timing, "explicit or internal")
	f.Int32Var(&cpr, "cpr", d.CPR, "encoder counts per revolution")
	f.Float64Var(&kp, "p", d.PID.P, "PID proportional gain")
	f.Float64Var(&ki, "i", d.PID.I, "PID integral gain")
	f.Float64Var(&kd, "d", d.PID.D, "PID derivative gain")
	f.Float64Var(&ramp, "ramp", d.PID.Ramp, "output ramp in V/s, 0 disables")
	f.Float64Var(&limit, "limit", d.PID.Limit, "output limit in V, 0 disables")
	f.Float64Var(&tf, "tf", d.Filter.Tf, "velocity filter time constant")
	f.Float64Var(&minDt, "min-dt", d.Speed.MinDt, "speed calculator sampling floor")
	f.Float64Var(&target, "target", config.DefaultTarget, "constant velocity target in rad/s")
	f.Float64Var(&load, "load", 0, "constant load torque in N*m")
}

var rigFlagNames = []string{"dt", "time", "timing", "cpr", "p", "i", "d", "ramp", "limit", "tf", "min-dt", "target", "load"}

func anyRigFlag(cmd *cobra.Command) bool {
	for _, name := range rigFlagNames {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// buildConfig layers defaults, then a preset or config file, then any flag
// set explicitly on the command line.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("timing") {
		cfg.Timing = timing
	}
	if flags.Changed("cpr") {
		cfg.CPR = cpr
	}
	if flags.Changed("p") {
		cfg.PID.P = kp
	}
	if flags.Changed("i") {
		cfg.PID.I = ki
	}
	if flags.Changed("d") {
		cfg.PID.D = kd
	}
	if flags.Changed("ramp") {
		cfg.PID.Ramp = ramp
	}
	if flags.Changed("limit") {
		cfg.PID.Limit = limit
	}
	if flags.Changed("tf") {
		cfg.Filter.Tf = tf
	}
	if flags.Changed("min-dt") {
		cfg.Speed.MinDt = minDt
	}
	if flags.Changed("target") {
		cfg.Setpoints = []config.SetpointConfig{{At: 0, Value: target}}
	}
	if flags.Changed("load") {
		cfg.Motor.Load = load
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRig(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	r, err := rig.New(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("running %s for %.2fs at dt=%gs (%s timing)...\n", nameOf(cfg), cfg.Duration, cfg.Dt, cfg.Timing)
	start := time.Now()
	result, runErr := r.Run(context.Background())
	elapsed := time.Since(start)

	runID, err := st.Save(cfg, result, runErr)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)

	if runErr != nil {
		return fmt.Errorf("run %s stopped early: %w", runID, runErr)
	}
	return nil
}

func nameOf(cfg *config.Config) string {
	if cfg.Name == "" {
		return "custom"
	}
	return cfg.Name
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, metrics[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSTEPS\tDT\tTIMING\tTRACKING\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = run.Error
		}
		var stepDt float64
		var runTiming string
		if run.Config != nil {
			stepDt = run.Config.Dt
			runTiming = run.Config.Timing
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4fs\t%s\t%.4f\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			stepDt,
			runTiming,
			run.Metrics["tracking_rmse"],
			status,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Name)
	fmt.Printf("samples: %d\n\n", len(samples))

	setpoint := make([]float64, len(samples))
	velocity := make([]float64, len(samples))
	estimated := make([]float64, len(samples))
	finite := make([]float64, len(samples))
	output := make([]float64, len(samples))
	for i, s := range samples {
		setpoint[i] = s.Setpoint
		velocity[i] = s.Velocity
		estimated[i] = s.Estimated
		finite[i] = s.Finite
		output[i] = s.Output
	}

	fmt.Println(asciigraph.PlotMany([][]float64{setpoint, velocity},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Green),
		asciigraph.Caption("target and true velocity (rad/s)"),
	))
	fmt.Println()

	fmt.Println(asciigraph.PlotMany([][]float64{estimated, finite},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Magenta, asciigraph.Yellow),
		asciigraph.Caption("mixed estimate vs finite difference (rad/s)"),
	))
	fmt.Println()

	fmt.Println(asciigraph.Plot(output,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("controller output (V)"),
	))

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	if len(samples) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	if err := w.Write(storage.SampleHeader); err != nil {
		return err
	}
	for _, s := range samples {
		if err := w.Write(storage.FormatSample(s)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func tuneRig(cmd *cobra.Command, args []string) error {
	base, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	var names []string
	var ranges [][]float64
	for _, axis := range []struct{ name, spec string }{
		{"P", tuneP}, {"I", tuneI}, {"D", tuneD}, {"Tf", tuneTf},
	} {
		if axis.spec == "" {
			continue
		}
		values, err := tune.ParseRange(axis.spec)
		if err != nil {
			return err
		}
		names = append(names, axis.name)
		ranges = append(ranges, values)
	}

	gs, err := tune.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	if tuneLoads != "" {
		loads, err := tune.ParseRange(tuneLoads)
		if err != nil {
			return err
		}
		gs.SetLoads(loads)
	}

	fmt.Printf("searching %d combinations of %s on %s, minimizing %s...\n",
		gs.Size(), strings.Join(names, ","), nameOf(base), tuneMetric)
	start := time.Now()
	out, err := gs.Search(context.Background(), base, tuneMetric)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := append([]string{"RANK"}, names...)
	fmt.Fprintln(w, strings.Join(append(header, strings.ToUpper(tuneMetric)), "\t"))
	for i, trial := range out.Ranked() {
		if i >= tuneTop {
			break
		}
		row := []string{fmt.Sprintf("%d", i+1)}
		for _, name := range names {
			row = append(row, fmt.Sprintf("%g", trial.Params[name]))
		}
		score := "unstable"
		if !math.IsInf(trial.Score, 1) {
			score = fmt.Sprintf("%.6f", trial.Score)
		}
		fmt.Fprintln(w, strings.Join(append(row, score), "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	best := make([]string, 0, len(names))
	for _, name := range names {
		best = append(best, fmt.Sprintf("%s=%g", name, out.Best[name]))
	}
	fmt.Printf("\nbest: %s (%s %.6f)\n", strings.Join(best, " "), out.Metric, out.Score)
	return nil
}
