// Package hazard turns position distributions into collision probability
// curves and combines the curves of competing behavior hypotheses.
package hazard

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrLengthMismatch is returned when curves on different time grids are
// combined.
var ErrLengthMismatch = errors.New("curve lengths differ")

// Curve is a collision probability per prediction time step.
type Curve []float64

// Position is a distribution of the signed distance along one axis, per time
// step.
type Position struct {
	Mean []float64
	Std  []float64
}

// Eggert is the event-rate risk model: the probability that the distance
// between two vehicles drops below zero is turned into a collision rate and
// integrated into a survival function.
type Eggert struct {
	Beta    float64 `yaml:"beta"`
	RateMax float64 `yaml:"rate_max"`
}

// DefaultEggert returns beta = 1 and a unit maximum rate.
func DefaultEggert() Eggert {
	return Eggert{Beta: 1, RateMax: 1}
}

// Validate checks the model parameters.
func (e Eggert) Validate() error {
	if e.Beta <= 0 || math.IsNaN(e.Beta) || math.IsInf(e.Beta, 0) {
		return fmt.Errorf("eggert.beta must be a finite positive number, got %f", e.Beta)
	}
	if e.RateMax <= 0 || math.IsNaN(e.RateMax) || math.IsInf(e.RateMax, 0) {
		return fmt.Errorf("eggert.rate_max must be a finite positive number, got %f", e.RateMax)
	}
	return nil
}

// Risk returns the collision probability of ego and other per time step, dt
// seconds apart. A collision is the other position falling behind the ego
// position.
func (e Eggert) Risk(ego, other Position, dt float64) (Curve, error) {
	n := len(ego.Mean)
	if len(ego.Std) != n || len(other.Mean) != n || len(other.Std) != n {
		return nil, fmt.Errorf("eggert: %w: ego %d/%d, other %d/%d",
			ErrLengthMismatch, len(ego.Mean), len(ego.Std), len(other.Mean), len(other.Std))
	}
	if n == 0 {
		return Curve{}, nil
	}

	rates := make([]float64, n)
	times := make([]float64, n)
	for i := range rates {
		mean := other.Mean[i] - ego.Mean[i]
		sigma := math.Sqrt(ego.Std[i]*ego.Std[i] + other.Std[i]*other.Std[i])
		rates[i] = e.rate(indicator(mean, sigma))
		times[i] = float64(i) * dt
	}

	curve := make(Curve, n)
	for i := range curve {
		curve[i] = rates[i] * math.Exp(-cumulative(times[:i+1], rates[:i+1]))
	}
	return curve, nil
}

// indicator is P(distance < 0) for a normal distance. A zero sigma makes it
// a step at zero.
func indicator(mean, sigma float64) float64 {
	if sigma == 0 {
		switch {
		case mean < 0:
			return 1
		case mean == 0:
			return 0.5
		default:
			return 0
		}
	}
	return distuv.UnitNormal.CDF(-mean / sigma)
}

func (e Eggert) rate(ind float64) float64 {
	return (1 / e.RateMax) * (1 - math.Exp(-e.Beta*ind)) / (1 - math.Exp(-e.Beta))
}

// cumulative integrates the rate from zero to the last sample time.
func cumulative(x, f []float64) float64 {
	switch len(x) {
	case 0, 1:
		return 0
	case 2:
		return integrate.Trapezoidal(x, f)
	default:
		return integrate.Simpsons(x, f)
	}
}
