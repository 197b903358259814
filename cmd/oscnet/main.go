package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/san-kum/oscnet/internal/integrators"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	verbose    bool
	configFile string

	method      string
	integrator  string
	startTime   float64
	endTime     float64
	step        float64
	maxStep     float64
	eventMethod string
	noSave      bool

	parallel   int
	showVel    bool
	phaseOsc   int
	channel    string
	groundMode string
	loads      []float64
	eqPos      []float64
	outFile    string

	axes        []string
	metricName  string
	topN        int
	svgChannels []string
	svgWidth    int
	svgHeight   int
	bound       float64
)

// main registers the oscnet commands and runs the root command, exiting with
// status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "oscnet",
		Short:         "coupled damped oscillator network simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(
				tint.NewHandler(os.Stderr, &tint.Options{
					Level:      level,
					TimeFormat: "15:04:05",
				}),
			))
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "runs", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().Float64Var(&bound, "bound", 0, "record the fraction of samples with every |state| below this (0 = off)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "simulate a network and store the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlag(runCmd)
	runCmd.Flags().StringVar(&method, "method", "auto", "solver: auto, analytic or numeric")
	runCmd.Flags().StringVar(&integrator, "integrator", "rk4", "numeric integrator: "+strings.Join(integrators.Names(), ", "))
	runCmd.Flags().Float64Var(&startTime, "start", 0, "first sample time")
	runCmd.Flags().Float64Var(&endTime, "end", 20, "last sample time")
	runCmd.Flags().Float64Var(&step, "step", 0.1, "sample spacing")
	runCmd.Flags().Float64Var(&maxStep, "max-step", 0.01, "largest internal integration step")
	runCmd.Flags().StringVar(&eventMethod, "event-method", "", "method for events without one: dirac, constant or linear")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "print the summary without storing the run")

	batchCmd := &cobra.Command{
		Use:   "batch [preset...]",
		Short: "simulate several presets concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "simulations in flight (0 = unbounded)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run trajectories",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&showVel, "velocities", false, "plot velocity channels too")
	plotCmd.Flags().IntVar(&phaseOsc, "phase", 0, "draw the phase portrait of this oscillator instead")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of one channel",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&channel, "channel", "x.1", "channel to analyze")

	resonancesCmd := &cobra.Command{
		Use:   "resonances [preset]",
		Short: "natural frequencies and damping ratios",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showResonances,
	}
	addConfigFlag(resonancesCmd)

	distancesCmd := &cobra.Command{
		Use:   "distances [preset]",
		Short: "rest lengths that make a state a static equilibrium",
		Args:  cobra.MaximumNArgs(1),
		RunE:  estimateDistances,
	}
	addConfigFlag(distancesCmd)
	distancesCmd.Flags().StringVar(&groundMode, "mode", "individual", "ground mode: individual or uniform")
	distancesCmd.Flags().Float64SliceVar(&eqPos, "positions", nil, "equilibrium positions (default: initial positions)")
	distancesCmd.Flags().Float64SliceVar(&loads, "loads", nil, "static load on each oscillator")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in networks",
		RunE:  listPresets,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "grid search over network coefficients",
		Long: `Simulates every combination of the --param axes and ranks them by a metric.
Axes are name=v1,v2,... or name=lo:hi:count where name is m.<i>, k.<i>.<j> or d.<i>.<j>.`,
		Args: cobra.MaximumNArgs(1),
		RunE: sweepParams,
	}
	addConfigFlag(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&axes, "param", nil, "parameter axis (repeatable)")
	sweepCmd.Flags().StringVar(&metricName, "metric", "energy_drift", "metric to minimize")
	sweepCmd.Flags().IntVar(&topN, "top", 10, "rows to print (0 = all)")
	sweepCmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "simulations in flight (0 = unbounded)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export run trajectories as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().StringSliceVar(&svgChannels, "channels", nil, "channels to draw (default: all positions)")
	exportSVGCmd.Flags().IntVar(&phaseOsc, "phase", 0, "draw the phase portrait of this oscillator instead")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")

	watchCmd := &cobra.Command{
		Use:   "watch [run_id]",
		Short: "replay a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  watchRun,
	}

	rootCmd.AddCommand(runCmd, batchCmd, sweepCmd, listCmd, plotCmd, analyzeCmd, resonancesCmd, distancesCmd,
		exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "network description (YAML)")
}
