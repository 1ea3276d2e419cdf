package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// EgoFrame maps world coordinates into the ego vehicle's frame: origin at the
// ego center, +x along the ego heading, +y to its left.
type EgoFrame struct {
	toEgo *mat.Dense
}

// NewEgoFrame inverts the ego's homogeneous world matrix.
func NewEgoFrame(ego Pose) (EgoFrame, error) {
	rad := ego.Yaw * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	world := mat.NewDense(3, 3, []float64{
		c, -s, ego.Location.X,
		s, c, ego.Location.Y,
		0, 0, 1,
	})
	var inv mat.Dense
	if err := inv.Inverse(world); err != nil {
		return EgoFrame{}, fmt.Errorf("inverting ego pose: %w", err)
	}
	return EgoFrame{toEgo: &inv}, nil
}

// Point transforms a world location into the ego frame.
func (f EgoFrame) Point(l Location) Location {
	var out mat.VecDense
	out.MulVec(f.toEgo, mat.NewVecDense(3, []float64{l.X, l.Y, 1}))
	return Location{X: out.AtVec(0), Y: out.AtVec(1)}
}

// Vector rotates a world vector into the ego frame without translating it.
func (f EgoFrame) Vector(v Vector) Vector {
	var out mat.VecDense
	out.MulVec(f.toEgo, mat.NewVecDense(3, []float64{v.X, v.Y, 0}))
	return Vector{X: out.AtVec(0), Y: out.AtVec(1)}
}
