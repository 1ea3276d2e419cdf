package trajectory

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution is the per-step position mean and population standard
// deviation along both axes.
type Distribution struct {
	XMean []float64
	XStd  []float64
	YMean []float64
	YStd  []float64
}

// Len is the number of time steps.
func (d Distribution) Len() int {
	return len(d.XMean)
}

// Sampler generates trajectory distributions on a fixed prediction grid.
// It holds no random state and is safe for concurrent use.
type Sampler struct {
	params Params
	cfg    Config
}

// NewSampler validates the grid and the generator parameters.
func NewSampler(params Params, cfg Config) (*Sampler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trajectory config: %w", err)
	}
	return &Sampler{params: params, cfg: cfg}, nil
}

// Params returns the prediction grid.
func (s *Sampler) Params() Params { return s.params }

// Config returns the generator parameters.
func (s *Sampler) Config() Config { return s.cfg }

// stepper advances one rollout by one time step. noise is the position noise
// drawn for the step.
type stepper func(last State, noise float64) State

// longitudinal runs the shared rollout loop of the longitudinal models.
// newStepper is called once per rollout with its noisy initial state. A
// rollout whose speed has dropped to zero stays at rest.
func (s *Sampler) longitudinal(src rand.Source, init State, posStd float64, newStepper func(first State) stepper) Distribution {
	steps, n := s.params.Steps(), s.params.NumTrajectories
	noise := distuv.Normal{Mu: 0, Sigma: posStd, Src: src}

	xs := grid(steps, n)
	for i := 0; i < n; i++ {
		st := init
		st.PX += noise.Rand()
		xs[0][i] = st.PX
		step := newStepper(st)
		for k := 1; k < steps; k++ {
			eps := noise.Rand()
			if st.VX <= 0 {
				st.VX, st.AX = 0, 0
			} else {
				st = step(st, eps)
			}
			xs[k][i] = st.PX
		}
	}

	d := Distribution{YMean: make([]float64, steps), YStd: make([]float64, steps)}
	d.XMean, d.XStd = reduce(xs)
	for k := range d.YMean {
		d.YMean[k] = init.PY
	}
	return d
}

// EmergencyBrake samples a hard constant deceleration per rollout.
func (s *Sampler) EmergencyBrake(src rand.Source, init State) Distribution {
	p := s.cfg.Emergency
	dt := s.params.Timestep
	accel := distuv.Normal{Mu: p.AccelMean, Sigma: p.AccelStd, Src: src}
	return s.longitudinal(src, init, p.PosStd, func(State) stepper {
		return constantAccelStep(accel.Rand(), dt)
	})
}

// ConstantAccel keeps the current acceleration and adds a small sampled
// drift to it every step.
func (s *Sampler) ConstantAccel(src rand.Source, init State) Distribution {
	p := s.cfg.ConstantAccel
	dt := s.params.Timestep
	drift := distuv.Normal{Mu: p.AccelMean, Sigma: p.AccelStd, Src: src}
	return s.longitudinal(src, init, p.PosStd, func(State) stepper {
		d := drift.Rand()
		return func(last State, noise float64) State {
			return constantAccelStep(last.AX+d, dt)(last, noise)
		}
	})
}

// TargetBrake brakes to a stop a sampled safety margin before a target
// lying targetDistance meters ahead of the initial position.
func (s *Sampler) TargetBrake(src rand.Source, init State, targetDistance float64) Distribution {
	p := s.cfg.TargetBrake
	dt := s.params.Timestep
	sd := p.SafeDistanceMargin / 3
	variation := distuv.Normal{Mu: 0, Sigma: sd * sd, Src: src}
	return s.longitudinal(src, init, p.PosStd, func(first State) stepper {
		stop := init.PX + targetDistance - p.SafeDistanceMargin + variation.Rand()
		var a float64
		if dist := stop - first.PX; dist > 0 {
			a = math.Max(-first.VX*first.VX/(2*dist), p.MaxDeceleration)
		}
		return constantAccelStep(a, dt)
	})
}

// IDM follows leader with the Intelligent Driver Model. init is the rear of
// the following vehicle, length its length, and leader the rear of the
// vehicle it follows. The leader is assumed to keep its speed.
func (s *Sampler) IDM(src rand.Source, init State, length float64, leader State) Distribution {
	p := s.cfg.IDM
	dt := s.params.Timestep
	timeGap := distuv.Normal{Mu: p.TimeGap, Sigma: p.TimeGapStd, Src: src}
	sqrtAB := 2 * math.Sqrt(p.MaxAccel*p.ComfortBraking)
	return s.longitudinal(src, init, p.PosStd, func(State) stepper {
		return func(last State, noise float64) State {
			t := timeGap.Rand()
			gap := leader.PX + leader.VX*dt - (last.PX + length)
			a := p.MaxDeceleration
			if gap > 0 {
				free := 1 - math.Pow(last.VX/p.DesiredSpeed, p.Delta)
				desired := (p.MinGap + last.VX*t + last.VX*(last.VX-leader.VX)/sqrtAB) / gap
				a = lo.Clamp(p.MaxAccel*(free-desired*desired), p.MaxDeceleration, p.MaxAccel)
			}
			next := last
			next.AX = a
			next.VX = math.Max(0, last.VX+a*dt)
			next.PX = math.Max(last.PX, last.PX+last.VX*dt+a*dt*dt+noise)
			return next
		}
	})
}

// constantAccelStep integrates one step with acceleration a.
func constantAccelStep(a, dt float64) stepper {
	return func(last State, noise float64) State {
		next := last
		next.PX = last.PX + last.VX*dt + a*dt*dt + noise
		next.VX = last.VX + a*dt
		next.AX = a
		return next
	}
}

// grid allocates a steps x n sample matrix.
func grid(steps, n int) [][]float64 {
	g := make([][]float64, steps)
	for k := range g {
		g[k] = make([]float64, n)
	}
	return g
}

// reduce returns the per-step mean and population standard deviation.
func reduce(samples [][]float64) (mean, std []float64) {
	mean = make([]float64, len(samples))
	std = make([]float64, len(samples))
	for k, row := range samples {
		mean[k], std[k] = stat.PopMeanStdDev(row, nil)
		if math.IsNaN(std[k]) {
			std[k] = 0
		}
	}
	return mean, std
}
