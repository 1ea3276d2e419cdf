// Package geom holds the planar helpers used to build sensing areas and test
// vehicle containment. Points and polygons are paulmach/orb types in the
// scene's meter-based ground plane.
package geom

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/stat"
)

// capSegments is the number of arc segments used for each half-circle cap.
const capSegments = 8

// Polygon builds a closed single-ring polygon from an outline.
func Polygon(points ...orb.Point) orb.Polygon {
	ring := make(orb.Ring, 0, len(points)+1)
	ring = append(ring, points...)
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}
}

// Contains reports whether p lies inside (or on the border of) poly.
func Contains(poly orb.Polygon, p orb.Point) bool {
	if len(poly) == 0 {
		return false
	}
	return planar.PolygonContains(poly, p)
}

// ContainsAny reports whether at least one of the points lies inside poly.
func ContainsAny(poly orb.Polygon, points []orb.Point) bool {
	for _, p := range points {
		if Contains(poly, p) {
			return true
		}
	}
	return false
}

// BufferLine returns the outline of all points within radius of the
// polyline, approximated with straight sides and round end caps. The line
// must have at least two distinct points; otherwise nil is returned.
func BufferLine(line orb.LineString, radius float64) orb.Polygon {
	line = dedupe(line)
	if len(line) < 2 || radius <= 0 {
		return nil
	}

	n := len(line)
	left := make([]orb.Point, n)
	right := make([]orb.Point, n)
	for i := range line {
		nx, ny := vertexNormal(line, i)
		left[i] = orb.Point{line[i][0] + nx*radius, line[i][1] + ny*radius}
		right[i] = orb.Point{line[i][0] - nx*radius, line[i][1] - ny*radius}
	}

	outline := make([]orb.Point, 0, 2*n+2*capSegments)
	outline = append(outline, left...)
	outline = append(outline, arc(line[n-1], line[n-2], radius)...)
	for i := n - 1; i >= 0; i-- {
		outline = append(outline, right[i])
	}
	outline = append(outline, arc(line[0], line[1], radius)...)
	return Polygon(outline...)
}

// vertexNormal is the left unit normal at vertex i, averaged over the
// adjacent segments.
func vertexNormal(line orb.LineString, i int) (float64, float64) {
	var dx, dy float64
	if i > 0 {
		sx, sy := unit(line[i-1], line[i])
		dx, dy = dx+sx, dy+sy
	}
	if i < len(line)-1 {
		sx, sy := unit(line[i], line[i+1])
		dx, dy = dx+sx, dy+sy
	}
	l := math.Hypot(dx, dy)
	if l == 0 {
		sx, sy := unit(line[i-1], line[i])
		return -sy, sx
	}
	return -dy / l, dx / l
}

// arc returns the half-circle cap around end, bulging away from prev,
// excluding its two endpoints.
func arc(end, prev orb.Point, radius float64) []orb.Point {
	ux, uy := unit(prev, end)
	start := math.Atan2(ux, -uy) // angle of the left normal
	pts := make([]orb.Point, 0, capSegments-1)
	for k := 1; k < capSegments; k++ {
		a := start - math.Pi*float64(k)/capSegments
		pts = append(pts, orb.Point{end[0] + radius*math.Cos(a), end[1] + radius*math.Sin(a)})
	}
	return pts
}

func unit(a, b orb.Point) (float64, float64) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := math.Hypot(dx, dy)
	if l == 0 {
		return 0, 0
	}
	return dx / l, dy / l
}

func dedupe(line orb.LineString) orb.LineString {
	out := make(orb.LineString, 0, len(line))
	for _, p := range line {
		if len(out) > 0 && out[len(out)-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Median returns the median of the values. The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// HeadingDeviation returns |(a mod 360) - (b mod 360)| in degrees, with both
// headings normalized to [0, 360).
func HeadingDeviation(a, b float64) float64 {
	return math.Abs(normalize(a) - normalize(b))
}

func normalize(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}
