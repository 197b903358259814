package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/san-kum/oscnet/internal/config"
	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/san-kum/oscnet/internal/metrics"
	"github.com/san-kum/oscnet/internal/network"
	"github.com/san-kum/oscnet/internal/sim"
	"github.com/san-kum/oscnet/internal/storage"
	"github.com/spf13/cobra"
)

// loadConfig resolves the network description: a config file wins over a
// preset name, and with neither the default network is used.
func loadConfig(args []string) (*config.Config, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	if len(args) == 0 {
		return config.DefaultConfig(), nil
	}
	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags over the config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("method") {
		cfg.Solver.Method = method
	}
	if flags.Changed("integrator") {
		cfg.Solver.Integrator = integrator
	}
	if flags.Changed("max-step") {
		cfg.Solver.MaxStep = maxStep
	}
	if flags.Changed("event-method") {
		cfg.EventMethod = eventMethod
	}
	if flags.Changed("start") || flags.Changed("end") || flags.Changed("step") {
		cfg.Times = nil
	}
	if flags.Changed("start") {
		cfg.Time.Start = startTime
	}
	if flags.Changed("end") {
		cfg.Time.End = endTime
	}
	if flags.Changed("step") {
		cfg.Time.Step = step
	}
}

// defaultMetrics are recorded for every run; stability only when --bound is set.
func defaultMetrics() []sim.MetricFactory {
	factories := []sim.MetricFactory{
		func(m *network.Model) dynamo.Metric { return metrics.NewEnergy(m) },
		func(m *network.Model) dynamo.Metric { return metrics.NewEnergyDrift(m) },
		func(*network.Model) dynamo.Metric { return metrics.NewAmplitude() },
	}
	if bound > 0 {
		factories = append(factories, func(*network.Model) dynamo.Metric { return metrics.NewStability(bound) })
	}
	return factories
}

// prepare turns a config into a ready simulation request.
func prepare(cfg *config.Config) (sim.Request, error) {
	if err := cfg.Validate(); err != nil {
		return sim.Request{}, err
	}
	model, err := cfg.Model()
	if err != nil {
		return sim.Request{}, err
	}
	x0, err := cfg.InitialState()
	if err != nil {
		return sim.Request{}, err
	}
	times, err := cfg.SampleTimes()
	if err != nil {
		return sim.Request{}, err
	}
	evts, err := cfg.EventSet()
	if err != nil {
		return sim.Request{}, err
	}
	return sim.Request{Model: model, Initial: x0, Events: evts, Times: times}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	req, err := prepare(cfg)
	if err != nil {
		return err
	}
	scheduler, err := sim.New(cfg.SolverConfig(), sim.WithLogger(slog.Default()), sim.WithMetrics(defaultMetrics()...))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("simulating", "network", cfg.Name, "oscillators", req.Model.N(), "samples", len(req.Times), "events", req.Events.Len())
	start := time.Now()
	result, err := scheduler.Simulate(ctx, req.Model, req.Initial, req.Events, req.Times)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID := ""
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		if runID, err = st.Save(cfg, result); err != nil {
			return err
		}
	}

	fmt.Printf("completed in %v\n", elapsed)
	if runID != "" {
		fmt.Printf("run id: %s\n", runID)
	}
	printSummary(result)
	return nil
}

func printSummary(result *dynamo.Result) {
	fmt.Printf("method: %s\n", result.Method)
	if result.Method == dynamo.MethodNumeric {
		fmt.Printf("steps: %d\n", result.StepsTaken)
	}
	fmt.Printf("samples: %d\n", len(result.Times))
	fmt.Printf("final energy drift: %.3g\n", result.FinalEnergyDrift)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfgs := make([]*config.Config, len(args))
	reqs := make([]sim.Request, len(args))
	for i, name := range args {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
		req, err := prepare(cfg)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		cfgs[i], reqs[i] = cfg, req
	}

	// every preset shares the default solver settings
	scheduler, err := sim.New(dynamo.DefaultConfig(), sim.WithLogger(slog.Default()), sim.WithMetrics(defaultMetrics()...))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	results, err := scheduler.Batch(ctx, reqs, parallel)
	if err != nil {
		return err
	}
	slog.Info("batch finished", "runs", len(results), "elapsed", time.Since(start))

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	rows := make([][]string, len(results))
	for i, res := range results {
		runID, err := st.Save(cfgs[i], res)
		if err != nil {
			return err
		}
		rows[i] = []string{runID, res.Method, fmt.Sprint(len(res.Times)), fmt.Sprintf("%.3g", res.FinalEnergyDrift)}
	}
	fmt.Print(table([]string{"ID", "METHOD", "SAMPLES", "FINAL DRIFT"}, rows))
	return nil
}
