package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/san-kum/oscnet/internal/events"
	"github.com/san-kum/oscnet/internal/metrics"
	"github.com/san-kum/oscnet/internal/network"
	"github.com/san-kum/oscnet/internal/sim"
)

func grid(start, end float64, steps int) []float64 {
	times := make([]float64, steps+1)
	for i := range times {
		times[i] = start + (end-start)*float64(i)/float64(steps)
	}
	return times
}

func scheduler(method string) *sim.Scheduler {
	cfg := dynamo.DefaultConfig()
	cfg.Method = method
	s, err := sim.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func mustModel(p network.Params) *network.Model {
	m, err := network.New(p)
	Expect(err).NotTo(HaveOccurred())
	return m
}

func mustEvents(evts ...events.Event) *events.Set {
	s, err := events.NewSet(evts...)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func twoMass() *network.Model {
	return mustModel(network.Params{
		Masses:    []float64{1, 2},
		Damping:   [][]float64{{0.02, 0.1}, {0.1, 0.1}},
		Stiffness: [][]float64{{4, 2}, {2, 1}},
	})
}

var _ = Describe("Scheduler", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("uncoupled, unforced networks", func() {
		It("keeps every oscillator at its initial position", func() {
			model := mustModel(network.Params{
				Masses:    []float64{1, 2, 3},
				Damping:   [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
				Stiffness: [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
			})
			x0 := dynamo.State{1, -2, 3.5, 0, 0, 0}

			res, err := scheduler(dynamo.MethodAuto).Simulate(ctx, model, x0, nil, grid(0, 20, 40))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Method).To(Equal(dynamo.MethodNumeric), "free masses are not diagonalizable")
			for _, x := range res.States {
				Expect(x).To(Equal(x0))
			}
		})
	})

	Describe("a single undamped oscillator", func() {
		model := func() *network.Model {
			return mustModel(network.Params{
				Masses:    []float64{1},
				Damping:   [][]float64{{0}},
				Stiffness: [][]float64{{1}},
			})
		}

		It("agrees between the analytic and numeric paths", func() {
			times := grid(0, 20, 200)
			x0 := dynamo.State{1, 0}

			a, err := scheduler(dynamo.MethodAnalytic).Simulate(ctx, model(), x0, nil, times)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Method).To(Equal(dynamo.MethodAnalytic))

			n, err := scheduler(dynamo.MethodNumeric).Simulate(ctx, model(), x0, nil, times)
			Expect(err).NotTo(HaveOccurred())
			Expect(n.Method).To(Equal(dynamo.MethodNumeric))

			for i, tm := range times {
				Expect(a.States[i][0]).To(BeNumerically("~", math.Cos(tm), 1e-9))
				for k := range a.States[i] {
					Expect(n.States[i][k]).To(BeNumerically("~", a.States[i][k], 1e-6))
				}
			}
			Expect(a.FinalEnergyDrift).To(BeNumerically("<", 1e-9))
		})

		It("reports rows for repeated sample times", func() {
			times := []float64{0, 1, 1, 2}
			res, err := scheduler(dynamo.MethodNumeric).Simulate(ctx, model(), dynamo.State{1, 0}, nil, times)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Times).To(Equal(times))
			Expect(res.States).To(HaveLen(4))
			Expect(res.States[1]).To(Equal(res.States[2]))
		})

		It("starts the trajectory at the first sample time", func() {
			res, err := scheduler(dynamo.MethodAuto).Simulate(ctx, model(), dynamo.State{1, 0}, nil, []float64{3, 3 + math.Pi})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.States[0][0]).To(BeNumerically("~", 1, 1e-12))
			Expect(res.States[1][0]).To(BeNumerically("~", -1, 1e-9))
		})
	})

	Describe("an empty event set", func() {
		It("gives the same result as no events", func() {
			times := grid(0, 10, 50)
			x0 := dynamo.State{1, 1, 0, 0}
			s := scheduler(dynamo.MethodAuto)

			plain, err := s.Simulate(ctx, twoMass(), x0, nil, times)
			Expect(err).NotTo(HaveOccurred())
			empty, err := s.Simulate(ctx, twoMass(), x0, mustEvents(), times)
			Expect(err).NotTo(HaveOccurred())

			Expect(empty.States).To(Equal(plain.States))
			Expect(empty.Method).To(Equal(dynamo.MethodAnalytic))
		})
	})

	Describe("time vector validation", func() {
		DescribeTable("rejects bad time vectors",
			func(times []float64) {
				_, err := scheduler(dynamo.MethodAuto).Simulate(ctx, twoMass(), dynamo.State{1, 1, 0, 0}, nil, times)
				Expect(err).To(MatchError(dynamo.ErrInvalidTimeVector))
			},
			Entry("empty", []float64{}),
			Entry("decreasing", []float64{0, 2, 1}),
			Entry("decreasing at the end", []float64{0, 1, 2, 3, 2.5}),
			Entry("NaN", []float64{0, math.NaN()}),
		)

		It("rejects a state of the wrong size", func() {
			_, err := scheduler(dynamo.MethodAuto).Simulate(ctx, twoMass(), dynamo.State{1, 1}, nil, []float64{0, 1})
			Expect(err).To(MatchError(dynamo.ErrShapeMismatch))
		})

		It("rejects events on oscillators outside the network", func() {
			evts := mustEvents(events.Event{Var: events.X(3), Time: 1, Kind: events.Hold})
			_, err := scheduler(dynamo.MethodAuto).Simulate(ctx, twoMass(), dynamo.State{1, 1, 0, 0}, evts, []float64{0, 1})
			Expect(err).To(MatchError(dynamo.ErrShapeMismatch))
		})

		It("refuses events under the analytic method", func() {
			evts := mustEvents(events.Event{Var: events.X(1), Time: 1, Kind: events.Hold})
			_, err := scheduler(dynamo.MethodAnalytic).Simulate(ctx, twoMass(), dynamo.State{1, 1, 0, 0}, evts, []float64{0, 1})
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})

	Describe("hold events", func() {
		It("pins oscillator 1 to each target until the next event", func() {
			evts := mustEvents(
				events.Event{Var: events.X(1), Time: 5, Value: 0, Kind: events.Hold},
				events.Event{Var: events.X(1), Time: 10, Value: 1, Kind: events.Hold},
				events.Event{Var: events.X(1), Time: 12, Value: 1, Kind: events.Hold},
			)
			times := grid(0, 20, 200)

			res, err := scheduler(dynamo.MethodAuto).Simulate(ctx, twoMass(), dynamo.State{1, 1, 0, 0}, evts, times)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Method).To(Equal(dynamo.MethodNumeric))
			Expect(res.States).To(HaveLen(len(times)))

			moved := false
			for i, tm := range times {
				x1 := res.States[i][0]
				switch {
				case tm >= 5 && tm < 10:
					Expect(x1).To(Equal(0.0), "t=%g", tm)
					Expect(res.States[i][2]).To(Equal(0.0), "pinned velocity at t=%g", tm)
				case tm >= 10:
					Expect(x1).To(Equal(1.0), "t=%g", tm)
				case tm > 0 && x1 != 1:
					moved = true
				}
			}
			Expect(moved).To(BeTrue(), "oscillator 1 evolves freely before the first event")
		})

		It("lets the coupled oscillator keep moving", func() {
			evts := mustEvents(events.Event{Var: events.X(1), Time: 0, Value: 0, Kind: events.Hold})
			res, err := scheduler(dynamo.MethodAuto).Simulate(ctx, twoMass(), dynamo.State{1, 1, 0, 0}, evts, grid(0, 5, 50))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.States[0][0]).To(Equal(0.0))
			Expect(res.States[25][1]).NotTo(BeNumerically("~", 1, 1e-3))
		})
	})

	Describe("instantaneous events", func() {
		It("reports the post-event value at a coinciding sample", func() {
			evts := mustEvents(events.Event{Var: events.X(1), Time: 2, Value: 5, Kind: events.Instantaneous})
			res, err := scheduler(dynamo.MethodAuto).Simulate(ctx, twoMass(), dynamo.State{1, 1, 0, 0}, evts, grid(0, 4, 40))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.States[20][0]).To(Equal(5.0))
			Expect(res.States[21][0]).NotTo(Equal(5.0), "dynamics resume after the jump")
		})

		It("cuts a segment at an event time that is not sampled", func() {
			model := twoMass()
			x0 := dynamo.State{1, 1, 0, 0}
			cfg := dynamo.DefaultConfig()
			cfg.Method = dynamo.MethodNumeric
			cfg.MaxStep = 0.001
			s, err := sim.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			evts := mustEvents(events.Event{Var: events.X(1), Time: 2.55, Value: -1, Kind: events.Instantaneous})
			res, err := s.Simulate(ctx, model, x0, evts, []float64{0, 2.5, 2.6, 4})
			Expect(err).NotTo(HaveOccurred())

			// same run by hand: integrate to 2.55, jump, restart
			first, err := s.Simulate(ctx, model, x0, nil, []float64{0, 2.5, 2.55})
			Expect(err).NotTo(HaveOccurred())
			mid := first.States[2].Clone()
			mid[0] = -1
			second, err := s.Simulate(ctx, model, mid, nil, []float64{2.55, 2.6, 4})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.States[1]).To(Equal(first.States[1]))
			for k := range x0 {
				Expect(res.States[2][k]).To(BeNumerically("~", second.States[1][k], 1e-9))
				Expect(res.States[3][k]).To(BeNumerically("~", second.States[2][k], 1e-9))
			}
		})
	})

	Describe("linear events", func() {
		It("ramps the variable between consecutive targets", func() {
			evts := mustEvents(
				events.Event{Var: events.X(2), Time: 1, Value: 0, Kind: events.Linear},
				events.Event{Var: events.X(2), Time: 3, Value: 2, Kind: events.Linear},
			)
			times := grid(0, 5, 50)
			res, err := scheduler(dynamo.MethodAuto).Simulate(ctx, twoMass(), dynamo.State{1, 1, 0, 0}, evts, times)
			Expect(err).NotTo(HaveOccurred())

			for i, tm := range times {
				switch {
				case tm >= 1 && tm < 3:
					Expect(res.States[i][1]).To(BeNumerically("~", tm-1, 1e-12), "t=%g", tm)
					Expect(res.States[i][3]).To(Equal(1.0))
				case tm >= 3:
					Expect(res.States[i][1]).To(Equal(2.0), "t=%g", tm)
					Expect(res.States[i][3]).To(Equal(0.0))
				}
			}
		})
	})

	Describe("rest lengths", func() {
		It("shift the analytic solution onto the static equilibrium", func() {
			model := mustModel(network.Params{
				Masses:      []float64{1, 1},
				Damping:     [][]float64{{0.1, 0}, {0, 0}},
				Stiffness:   [][]float64{{1, 1}, {1, 0}},
				RestLengths: [][]float64{{2, 1}, {1, 0}},
			})
			x0 := dynamo.State{0, 0, 0, 0}
			times := grid(0, 10, 100)

			a, err := scheduler(dynamo.MethodAuto).Simulate(ctx, model, x0, nil, times)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Method).To(Equal(dynamo.MethodAnalytic))

			n, err := scheduler(dynamo.MethodNumeric).Simulate(ctx, model, x0, nil, times)
			Expect(err).NotTo(HaveOccurred())
			for i := range times {
				for k := range x0 {
					Expect(n.States[i][k]).To(BeNumerically("~", a.States[i][k], 1e-6))
				}
			}
		})
	})

	Describe("divergence", func() {
		It("is reported instead of clamped", func() {
			cfg := dynamo.DefaultConfig()
			cfg.Method = dynamo.MethodNumeric
			cfg.DivergenceLimit = 2
			s, err := sim.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			model := mustModel(network.Params{
				Masses:    []float64{1},
				Damping:   [][]float64{{0}},
				Stiffness: [][]float64{{0}},
			})
			_, err = s.Simulate(ctx, model, dynamo.State{0, 1}, nil, []float64{0, 10})
			Expect(err).To(MatchError(dynamo.ErrNumericalDivergence))
		})
	})

	Describe("metrics", func() {
		It("are computed over the reported rows", func() {
			cfg := dynamo.DefaultConfig()
			s, err := sim.New(cfg, sim.WithMetrics(
				func(m *network.Model) dynamo.Metric { return metrics.NewEnergy(m) },
				func(*network.Model) dynamo.Metric { return metrics.NewAmplitude() },
			))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Simulate(ctx, twoMass(), dynamo.State{1, 1, 0, 0}, nil, grid(0, 10, 100))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Metrics).To(HaveKey("energy"))
			Expect(res.Metrics["peak_amplitude"]).To(BeNumerically(">=", 1))
		})

		It("keep the maximum drift apart from the final drift", func() {
			s, err := sim.New(dynamo.DefaultConfig(), sim.WithMetrics(
				func(m *network.Model) dynamo.Metric { return metrics.NewEnergyDrift(m) },
			))
			Expect(err).NotTo(HaveOccurred())

			// energy drains while held at 0 and returns when released at 1
			model := mustModel(network.Params{Masses: []float64{1}, Damping: [][]float64{{0}}, Stiffness: [][]float64{{1}}})
			evts := mustEvents(
				events.Event{Var: events.X(1), Time: 2, Value: 0, Kind: events.Hold},
				events.Event{Var: events.X(1), Time: 5, Value: 1, Kind: events.Instantaneous},
			)
			times := grid(0, 5, 50)
			res, err := s.Simulate(ctx, model, dynamo.State{1, 0}, evts, times)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Metrics["energy_drift"]).To(BeNumerically("~", 1, 1e-9))
			Expect(res.FinalEnergyDrift).To(BeNumerically("<", 1e-9))
		})
	})

	Describe("Batch", func() {
		It("runs independent requests and keeps their order", func() {
			s := scheduler(dynamo.MethodAuto)
			model := twoMass()
			reqs := []sim.Request{
				{Model: model, Initial: dynamo.State{1, 1, 0, 0}, Times: grid(0, 5, 10)},
				{Model: model, Initial: dynamo.State{0, 0, 0, 0}, Times: grid(0, 5, 10)},
				{Model: model, Initial: dynamo.State{1, 1, 0, 0}, Times: grid(0, 5, 10),
					Events: mustEvents(events.Event{Var: events.V(2), Time: 1, Value: 0.5, Kind: events.Hold})},
			}

			results, err := s.Batch(ctx, reqs, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[1].States[10]).To(Equal(dynamo.State{0, 0, 0, 0}))
			Expect(results[2].Method).To(Equal(dynamo.MethodNumeric))
			Expect(results[2].States[10][3]).To(Equal(0.5))
		})

		It("fails when any request fails", func() {
			s := scheduler(dynamo.MethodAuto)
			reqs := []sim.Request{
				{Model: twoMass(), Initial: dynamo.State{1, 1, 0, 0}, Times: []float64{0, 1}},
				{Model: twoMass(), Initial: dynamo.State{1, 1, 0, 0}, Times: []float64{1, 0}},
			}
			_, err := s.Batch(ctx, reqs, 0)
			Expect(err).To(MatchError(dynamo.ErrInvalidTimeVector))
		})
	})
})
