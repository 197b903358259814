package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/san-kum/oscnet/internal/analysis"
	"github.com/san-kum/oscnet/internal/export"
	"github.com/san-kum/oscnet/internal/optim"
	"github.com/san-kum/oscnet/internal/sim"
	"github.com/san-kum/oscnet/internal/storage"
	"github.com/spf13/cobra"
)

func sweepParams(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if len(axes) == 0 {
		return fmt.Errorf("no --param axes given")
	}

	names := make([]string, len(axes))
	ranges := make([][]float64, len(axes))
	for i, a := range axes {
		if names[i], ranges[i], err = optim.ParseAxis(a); err != nil {
			return err
		}
	}
	grid, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	scheduler, err := sim.New(cfg.SolverConfig(), sim.WithLogger(slog.Default()), sim.WithMetrics(defaultMetrics()...))
	if err != nil {
		return err
	}

	build := func(params map[string]float64) (sim.Request, error) {
		c := cfg.Clone()
		for name, v := range params {
			if err := c.SetParam(name, v); err != nil {
				return sim.Request{}, err
			}
		}
		return prepare(c)
	}

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("sweeping", "network", cfg.Name, "points", len(grid.Points()), "metric", metricName)
	candidates, err := grid.Search(ctx, scheduler, build, metricName, parallel)
	if err != nil {
		return err
	}

	if topN > 0 && topN < len(candidates) {
		candidates = candidates[:topN]
	}
	headers := append([]string{"RANK"}, names...)
	headers = append(headers, strings.ToUpper(metricName))
	rows := make([][]string, len(candidates))
	for i, c := range candidates {
		row := []string{fmt.Sprint(i + 1)}
		for _, name := range names {
			row = append(row, fmt.Sprintf("%g", c.Params[name]))
		}
		rows[i] = append(row, fmt.Sprintf("%.6g", c.Value))
	}
	fmt.Print(table(headers, rows))
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}

	var svg string
	if phaseOsc > 0 {
		portrait, err := analysis.NewPhasePortrait(result, phaseOsc)
		if err != nil {
			return err
		}
		svg = export.Phase(portrait, svgWidth, svgHeight)
	} else {
		chans := svgChannels
		if len(chans) == 0 {
			for _, name := range result.Columns()[1:] {
				if strings.HasPrefix(name, "x.") {
					chans = append(chans, name)
				}
			}
		}
		if svg, err = export.Channels(result, chans, svgWidth, svgHeight); err != nil {
			return err
		}
	}

	if outFile == "" {
		_, err = fmt.Print(svg)
		return err
	}
	return os.WriteFile(outFile, []byte(svg), 0644)
}
