package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/tshirt/internal/config"
	"github.com/san-kum/tshirt/internal/experiment"
	"github.com/san-kum/tshirt/internal/export"
	"github.com/san-kum/tshirt/internal/forcing"
	"github.com/san-kum/tshirt/internal/logging"
	"github.com/san-kum/tshirt/internal/metrics"
	"github.com/san-kum/tshirt/internal/storage"
	"github.com/san-kum/tshirt/internal/tshirt"
	"github.com/san-kum/tshirt/internal/viz"
)

var (
	dataDir  string
	logLevel string
	// run configuration
	configFile  string
	preset      string
	forcingFile string
	dt          float64
	steps       int
	strict      bool
	// outputs
	dbPath      string
	metricsFile string
	jsonOut     bool
	outFile     string
	svgFile     string
	// live view
	frameRate int
)

// Exit codes by outcome.
const (
	exitOK          = 0
	exitFailure     = 1
	exitConfig      = 2
	exitNumerical   = 3
	exitMassBalance = 4
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "tshirt",
		Short:        "lumped rainfall-runoff model",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), logging.New(level)))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// preset picker when no command given
			return viz.RunApp(cmd.Context(), frameRate)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tshirt", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().IntVar(&frameRate, "fps", 20, "steps per second")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and store its results",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&dbPath, "db", "", "also record the run in this sqlite database")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this textfile")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "print the full result as JSON")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&dbPath, "db", "", "list runs from this sqlite database")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the hydrograph and storages of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&dbPath, "db", "", "read the run from this sqlite database")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the hydrograph as SVG")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [soil]",
		Short: "list soils, or the presets of one soil",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "step a simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 20, "steps per second")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "validate a configuration and print derived parameters",
		Args:  cobra.NoArgs,
		RunE:  checkConfig,
	}
	addRunFlags(checkCmd)

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a configuration file to start from",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().StringVar(&preset, "preset", "", "start from a preset (soil/scenario)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, presetsCmd, liveCmd, checkCmd, initCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration (soil/scenario)")
	cmd.Flags().StringVar(&forcingFile, "forcing", "", "forcing csv (time, precip, pet)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep (s)")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().BoolVar(&strict, "strict", false, "stop at the first mass balance violation")
}

// exitCode maps an outcome to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, forcing.ErrFormat) {
		return exitConfig
	}
	switch tshirt.StatusOf(err) {
	case tshirt.StatusOK:
		return exitOK
	case tshirt.StatusConfigError, tshirt.StatusInputError:
		return exitConfig
	case tshirt.StatusNumericalError:
		return exitNumerical
	case tshirt.StatusMassBalanceError:
		return exitMassBalance
	default:
		return exitFailure
	}
}

// buildConfig resolves the run configuration: a preset, then the fields a
// config file sets, then any flag given on the command line.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p, err := lookupPreset(preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}

	if configFile != "" {
		if err := config.LoadOnto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to load config: %w", tshirt.ErrConfig, err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("forcing") {
		cfg.Forcing.Path = forcingFile
	}
	if flags.Changed("strict") {
		cfg.MassBalance.Strict = strict
	}
	return cfg, nil
}

// lookupPreset accepts soil/scenario, or a bare soil for its storm preset.
func lookupPreset(name string) (*config.Config, error) {
	soil, scenario, ok := strings.Cut(name, "/")
	if !ok {
		scenario = "storm"
	}
	cfg := config.GetPreset(soil, scenario)
	if cfg == nil {
		return nil, &tshirt.ConfigError{
			Field:  "preset",
			Reason: fmt.Sprintf("unknown preset %q (soils: %s)", name, strings.Join(config.ListSoils(), ", ")),
		}
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	if err := exp.Setup(); err != nil {
		return err
	}

	rec := metrics.NewRecorder(cfg.Name)
	exp.GetSimulator().AddObserver(rec)

	logger.Info("running simulation", "name", cfg.Name, "steps", len(exp.Forcing()), "dt", cfg.Dt)
	start := time.Now()

	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)
	if runErr != nil {
		logger.Error("run stopped", "step", result.StepsTaken, "error", runErr)
	}

	// partial runs are kept so the failing step can be inspected
	meta := storage.NewMetadata(cfg.Name, cfg.Soil, cfg.Dt, cfg.Params, result)
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(meta, result)
	if err != nil {
		return err
	}

	if dbPath != "" {
		db, err := storage.OpenDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveRun(ctx, meta, result); err != nil {
			return err
		}
	}

	if metricsFile != "" {
		if err := rec.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if jsonOut {
		if err := storage.WriteJSON(os.Stdout, storage.NewExportData(meta, result)); err != nil {
			return err
		}
		return runErr
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n\n", result.StepsTaken)
	fmt.Println(viz.RenderSummary(cfg.Name, result.Metrics, len(result.Errors)))
	return runErr
}

func listRuns(cmd *cobra.Command, args []string) error {
	var (
		runs []storage.RunMetadata
		err  error
	)
	if dbPath != "" {
		db, err := storage.OpenDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		runs, err = db.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
	} else {
		runs, err = storage.New(dataDir).List()
		if err != nil {
			return err
		}
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSTEPS\tDT\tPEAK\tVIOLATIONS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0fs\t%.3g\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Metrics["peak_discharge"],
			run.Violations,
		)
	}

	return w.Flush()
}

// plotSeries are the columns plotRun draws.
type plotSeries struct {
	times, precip, discharge, soil, groundwater []float64
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	var ps plotSeries
	if dbPath != "" {
		db, err := storage.OpenDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		rows, err := db.LoadSteps(cmd.Context(), runID)
		if err != nil {
			return err
		}
		for _, r := range rows {
			ps.times = append(ps.times, r.Time)
			ps.precip = append(ps.precip, r.Precip)
			ps.discharge = append(ps.discharge, r.SurfaceRunoff+r.LateralFlow+r.GroundwaterFlow)
			ps.soil = append(ps.soil, r.Soil)
			ps.groundwater = append(ps.groundwater, r.Groundwater)
		}
	} else {
		table, err := storage.New(dataDir).LoadTable(runID)
		if err != nil {
			return err
		}
		surface, lateral, base := table.Column("surface_runoff"), table.Column("lateral_flow"), table.Column("groundwater_flow")
		ps.discharge = make([]float64, len(table.Rows))
		for i := range ps.discharge {
			ps.discharge[i] = surface[i] + lateral[i] + base[i]
		}
		ps.times = table.Times
		ps.precip = table.Column("precip")
		ps.soil = table.Column("soil")
		ps.groundwater = table.Column("groundwater")
	}

	if len(ps.discharge) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("samples: %d\n\n", len(ps.discharge))
	fmt.Println(viz.RenderHydrograph(ps.discharge, ps.precip, 80, 12))
	fmt.Println()
	fmt.Println(viz.RenderSeries(ps.soil, "soil storage (m)", 80, 8))
	fmt.Println()
	fmt.Println(viz.RenderSeries(ps.groundwater, "groundwater storage (m)", 80, 8))

	if svgFile != "" {
		h := export.Hydrograph{Title: runID, Times: ps.times, Discharge: ps.discharge, Precip: ps.precip}
		if err := export.WriteHydrographSVG(svgFile, h, 800, 400); err != nil {
			return err
		}
		fmt.Printf("\nwrote %s\n", svgFile)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	table, err := st.LoadTable(runID)
	if err != nil {
		return err
	}

	data := storage.NewTableExport(*meta, table)
	if outFile == "" {
		return storage.WriteJSON(os.Stdout, data)
	}
	if err := storage.ExportJSON(outFile, data); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Println("soils:")
		for _, s := range config.ListSoils() {
			fmt.Printf("  %s: %s\n", s, strings.Join(config.ListPresets(s), ", "))
		}
		return nil
	}

	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for soil: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	for _, p := range presets {
		fmt.Printf("  %s/%s\n", args[0], p)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	// the alternate screen owns the terminal, so step logs are dropped
	ctx := logging.WithLogger(cmd.Context(), logging.NewNop())
	return viz.RunLive(ctx, exp, frameRate)
}

func checkConfig(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	if err := exp.Setup(); err != nil {
		return err
	}

	p := exp.Params()
	model := exp.GetSimulator().Model()
	series := exp.Forcing()

	fmt.Printf("config: %s\n", cfg.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "max soil storage\t%.6g m\n", p.MaxSoilStorage())
	fmt.Fprintf(w, "field capacity\t%.6g m\n", model.FieldCapacity())
	fmt.Fprintf(w, "schaake constant\t%.6g 1/day\n", p.Cschaake())
	fmt.Fprintf(w, "max lateral flow\t%.6g m/s\n", p.MaxLateralFlow())
	fmt.Fprintf(w, "max gw velocity\t%.6g m/s\n", p.MaxGroundwaterVelocity())
	fmt.Fprintf(w, "nash stages\t%d\n", p.NashN())
	fmt.Fprintf(w, "forcing\t%d steps, %.4g m of rain\n", len(series), series.Depth(cfg.Dt))
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if preset != "" {
		p, err := lookupPreset(preset)
		if err != nil {
			return err
		}
		cfg = p
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}
