package trajectory

import (
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat/distuv"
)

// minCurveSpeed keeps the curve duration finite for vehicles at rest.
const minCurveSpeed = 0.001

// gaussNode is the offset of the two-point Legendre-Gauss nodes on [0, 1].
var gaussNode = 0.5 / math.Sqrt(3)

// LaneChange moves the vehicle onto the lateral offset target[1] along a
// cubic Bézier curve ending near target[0], then continues straight at the
// vehicle's initial longitudinal speed. The end point's x is sampled per
// rollout.
func (s *Sampler) LaneChange(src rand.Source, init State, target orb.Point) Distribution {
	steps, n := s.params.Steps(), s.params.NumTrajectories
	dt := s.params.Timestep
	endpoint := distuv.Normal{Mu: target[0], Sigma: s.cfg.LaneChange.EndpointStd, Src: src}

	speed := math.Max(init.VX, minCurveSpeed)
	exitSpeed := math.Max(init.VX, 0)

	xs, ys := grid(steps, n), grid(steps, n)
	for i := 0; i < n; i++ {
		curve := newLaneChangeCurve(orb.Point{init.PX, init.PY}, orb.Point{endpoint.Rand(), target[1]})
		end := curve.length() / speed
		last := curve.at(1)
		for k := 0; k < steps; k++ {
			t := float64(k) * dt
			p := orb.Point{last[0] + exitSpeed*(t-end), last[1]}
			if t < end {
				p = curve.at(t / end)
			}
			xs[k][i], ys[k][i] = p[0], p[1]
		}
	}

	var d Distribution
	d.XMean, d.XStd = reduce(xs)
	d.YMean, d.YStd = reduce(ys)
	return d
}

// bezier is a cubic Bézier curve given by its four control points.
type bezier [4]orb.Point

// newLaneChangeCurve leaves start parallel to the x axis and reaches end
// parallel to it, turning at the longitudinal midpoint.
func newLaneChangeCurve(start, end orb.Point) bezier {
	mid := start[0] + (end[0]-start[0])/2
	return bezier{start, {mid, start[1]}, {mid, end[1]}, end}
}

func (b bezier) at(t float64) orb.Point {
	mt := 1 - t
	w := [4]float64{mt * mt * mt, 3 * mt * mt * t, 3 * mt * t * t, t * t * t}
	var p orb.Point
	for i, c := range b {
		p[0] += w[i] * c[0]
		p[1] += w[i] * c[1]
	}
	return p
}

func (b bezier) derivative(t float64) orb.Point {
	mt := 1 - t
	w := [3]float64{3 * mt * mt, 6 * mt * t, 3 * t * t}
	var p orb.Point
	for i := range w {
		p[0] += w[i] * (b[i+1][0] - b[i][0])
		p[1] += w[i] * (b[i+1][1] - b[i][1])
	}
	return p
}

// length approximates the arc length with two-point Legendre-Gauss
// quadrature.
func (b bezier) length() float64 {
	d1, d2 := b.derivative(0.5-gaussNode), b.derivative(0.5+gaussNode)
	return 0.5 * (math.Hypot(d1[0], d1[1]) + math.Hypot(d2[0], d2[1]))
}
