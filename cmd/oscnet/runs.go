package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/oscnet/internal/analysis"
	"github.com/san-kum/oscnet/internal/config"
	"github.com/san-kum/oscnet/internal/storage"
	"github.com/san-kum/oscnet/internal/viz"
	"github.com/spf13/cobra"
)

const maxPlots = 6

var table = viz.Table

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
	fmt.Fprintln(w, "ID\tNAME\tTIME\tN\tSAMPLES\tEVENTS\tMETHOD\tDRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%.2g\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Oscillators,
			run.Samples,
			run.Events,
			run.Method,
			run.FinalEnergyDrift,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	result, err := st.LoadResult(runID)
	if err != nil {
		return err
	}
	if len(result.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("samples: %d\n\n", len(result.States))

	if phaseOsc > 0 {
		portrait, err := analysis.NewPhasePortrait(result, phaseOsc)
		if err != nil {
			return err
		}
		fmt.Printf("phase portrait of oscillator %d (x across, v up)\n\n", phaseOsc)
		fmt.Print(portrait.ASCII(70, 20))
		return nil
	}

	columns := result.Columns()
	n := len(result.States[0]) / 2
	channels := n
	if showVel {
		channels = 2 * n
	}
	if channels > maxPlots {
		channels = maxPlots
	}

	for idx := 0; idx < channels; idx++ {
		data := make([]float64, len(result.States))
		for i, x := range result.States {
			data[i] = x[idx]
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(columns[idx+1]+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	result, err := st.LoadResult(runID)
	if err != nil {
		return err
	}

	idx := -1
	for i, name := range result.Columns() {
		if name == channel && i > 0 {
			idx = i - 1
		}
	}
	if idx < 0 {
		return fmt.Errorf("no channel %q in run %s (have %v)", channel, runID, result.Columns()[1:])
	}

	dt, err := analysis.UniformStep(result.Times)
	if err != nil {
		return err
	}
	data := make([]float64, len(result.States))
	for i, x := range result.States {
		data[i] = x[idx]
	}

	freq, err := analysis.DominantFrequency(data, dt)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s (%s)\n\n", runID, channel)

	n := 1
	for n < len(data) {
		n *= 2
	}
	padded := make([]float64, n)
	copy(padded, data)
	ps := analysis.PowerSpectrum(padded)
	if plotData := ps[1 : len(ps)/4+1]; len(plotData) > 1 {
		fmt.Println(asciigraph.Plot(plotData,
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (%s), bin width %.4g hz", channel, 1/(float64(n)*dt))),
		))
		fmt.Println()
	}

	fmt.Printf("dominant frequency: %.4f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.4f s\n", 1.0/freq)
	}
	return nil
}

func output() (io.Writer, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}

	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, result); err != nil {
		done()
		return err
	}
	return done()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}

	w, done, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteJSON(w, meta, result); err != nil {
		done()
		return err
	}
	return done()
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.ListPresets()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		cfg := config.GetPreset(name)
		rows = append(rows, []string{
			name,
			fmt.Sprint(len(cfg.Masses)),
			fmt.Sprint(len(cfg.Events)),
			fmt.Sprintf("%g..%g", cfg.Time.Start, cfg.Time.End),
		})
	}
	fmt.Print(table([]string{"PRESET", "OSCILLATORS", "EVENTS", "TIME"}, rows))
	return nil
}

func watchRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	result, err := st.LoadResult(runID)
	if err != nil {
		return err
	}

	cfg, err := st.LoadConfig(runID)
	if err != nil {
		slog.Warn("no stored config, energy panel disabled", "run", runID, "err", err)
		return viz.Watch(runID, result, nil)
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}
	return viz.Watch(cfg.Name, result, model.Energy)
}
