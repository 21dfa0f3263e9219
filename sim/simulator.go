// sim/simulator.go
package sim

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/putrate-sim/putrate-sim/sim/envelope"
	"github.com/putrate-sim/putrate-sim/sim/trace"
)

// State is the mutable simulation state.
type State struct {
	Backlog []float64 // GiB per configured level, aligned with Config.Levels
	L0Files float64
	Clock   float64 // seconds
}

func (s State) clone(levels int) State {
	out := State{
		Backlog: make([]float64, levels),
		L0Files: s.L0Files,
		Clock:   s.Clock,
	}
	copy(out.Backlog, s.Backlog)
	return out
}

// Simulator is the core object that holds the run configuration, the device
// envelope and the per-level backlog state advanced by the step loop.
type Simulator struct {
	Config   Config
	Envelope *envelope.Model
	// Params holds the resolved scaling per level, aligned with Config.Levels.
	Params []LevelParams
	// State is reset from the seed at the start of every Run and left at the
	// final values afterwards.
	State      State
	TraceLevel trace.TraceLevel

	seed    State
	l0Index int
}

// NewSimulator validates cfg and resolves per-level parameters from the
// defaults table. The envelope model is only read, so one model may be shared
// by many simulators.
func NewSimulator(cfg Config, env *envelope.Model, defaults LevelDefaults) (*Simulator, error) {
	if env == nil {
		return nil, fmt.Errorf("envelope model is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulator config: %w", err)
	}
	params := make([]LevelParams, len(cfg.Levels))
	for i, level := range cfg.Levels {
		params[i] = defaults.Resolve(level, cfg.LevelParams[level])
	}
	return &Simulator{
		Config:     cfg,
		Envelope:   env,
		Params:     params,
		TraceLevel: trace.TraceLevelNotices,
		seed:       State{Backlog: make([]float64, len(cfg.Levels))},
		l0Index:    slices.Index(cfg.Levels, 0),
	}, nil
}

// Seed sets the state every subsequent Run starts from. Backlog entries are
// aligned with Config.Levels; negative values are floored at zero.
func (sim *Simulator) Seed(s State) error {
	if len(s.Backlog) != len(sim.Config.Levels) {
		return fmt.Errorf("seed has %d backlog entries, config has %d levels", len(s.Backlog), len(sim.Config.Levels))
	}
	seed := s.clone(len(sim.Config.Levels))
	for i := range seed.Backlog {
		seed.Backlog[i] = max(seed.Backlog[i], 0)
	}
	seed.L0Files = max(seed.L0Files, 0)
	sim.seed = seed
	return nil
}

// Run executes exactly Config.MaxSteps steps from the seed state and returns
// the time series. There is no early exit on convergence.
func (sim *Simulator) Run() (*Results, error) {
	cfg := sim.Config
	sim.State = sim.seed.clone(len(cfg.Levels))
	log := trace.NewLog(sim.TraceLevel)
	res := &Results{
		RunID:               uuid.NewString(),
		Levels:              slices.Clone(cfg.Levels),
		TargetPutRate:       cfg.TargetPutRate,
		WALFactor:           cfg.Database.WALFactor,
		EnvelopeFingerprint: sim.Envelope.Grid().Fingerprint(),
		Rows:                make([]Row, 0, cfg.MaxSteps),
	}
	logrus.Infof("Starting simulation %s: %d steps of %.3fs, target %.1f MiB/s, levels %v",
		res.RunID, cfg.MaxSteps, cfg.Dt, cfg.TargetPutRate, cfg.Levels)

	for step := 0; step < cfg.MaxSteps; step++ {
		row, notices, err := sim.step(step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		log.Record(step, notices...)
		res.Rows = append(res.Rows, row)
	}
	res.Notices = log.Notices

	logrus.Infof("Simulation %s ended at t=%.1fs: N_L0=%.2f, %d notices",
		res.RunID, sim.State.Clock, sim.State.L0Files, len(res.Notices))
	return res, nil
}

// step advances the state by one dt and returns the recorded row.
func (sim *Simulator) step(step int) (Row, []trace.Notice, error) {
	cfg := sim.Config
	st := &sim.State
	n := len(cfg.Levels)

	pStall := StallProbability(st.L0Files, cfg.StallThreshold, cfg.StallSteepness)
	sPut := cfg.TargetPutRate * (1 - pStall)
	rhoR := ReadRatioEstimate(st.L0Files)

	// One query serves every level: the I/O shape is device-wide.
	q, err := sim.Envelope.Query(envelope.Point{
		ReadRatio:    rhoR * 100,
		QueueDepth:   cfg.Device.IODepth,
		NumJobs:      cfg.Device.NumJobs,
		BlockSizeKiB: cfg.Device.BlockSizeKiB,
	}, envelope.QueryOptions{
		Limits: &envelope.Limits{Br: cfg.Device.Br, Bw: cfg.Device.Bw},
		Clamp:  true,
	})
	if err != nil {
		return Row{}, nil, err
	}

	row := Row{
		Step:     step,
		Time:     st.Clock,
		SPut:     sPut,
		PStall:   pStall,
		RhoR:     rhoR,
		Backlog:  make([]float64, n),
		Capacity: make([]float64, n),
		Demand:   make([]float64, n),
	}
	for i, level := range cfg.Levels {
		c := sim.Params[i].Scale() * q.Bandwidth
		d := LevelDemand(level, sPut, cfg.Database.CompressionRatio)
		st.Backlog[i] = max(st.Backlog[i]+(d-c)*cfg.Dt/mibPerGiB, 0)
		row.Capacity[i] = c
		row.Demand[i] = d
		row.Backlog[i] = st.Backlog[i]
	}

	created := sPut / cfg.L0FileSizeMB
	consumed := row.Capacity[sim.l0Index] / cfg.L0FileSizeMB
	st.L0Files = max(st.L0Files+(created-consumed)*cfg.Dt, 0)
	row.L0Files = st.L0Files

	st.Clock += cfg.Dt
	logrus.Tracef("[step %06d] S_put=%.2f p_stall=%.4f rho_r=%.4f N_L0=%.2f", step, sPut, pStall, rhoR, st.L0Files)
	return row, q.Notices, nil
}
