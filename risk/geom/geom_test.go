package geom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferLine_StraightLine_CoversCorridor(t *testing.T) {
	// GIVEN a 10 m straight polyline buffered by 1.5 m
	poly := BufferLine(orb.LineString{{0, 0}, {5, 0}, {10, 0}}, 1.5)
	require.NotNil(t, poly)

	tests := []struct {
		name string
		p    orb.Point
		want bool
	}{
		{"on the line", orb.Point{5, 0}, true},
		{"inside left band", orb.Point{5, 1.4}, true},
		{"inside right band", orb.Point{2, -1.4}, true},
		{"outside left band", orb.Point{5, 1.6}, false},
		{"inside end cap", orb.Point{11.2, 0}, true},
		{"beyond end cap", orb.Point{11.6, 0}, false},
		{"inside start cap", orb.Point{-1.2, 0.3}, true},
		{"far away", orb.Point{50, 50}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Contains(poly, tc.p))
		})
	}
}

func TestBufferLine_Degenerate_ReturnsNil(t *testing.T) {
	assert.Nil(t, BufferLine(orb.LineString{{1, 1}}, 1.5))
	assert.Nil(t, BufferLine(orb.LineString{{1, 1}, {1, 1}}, 1.5))
	assert.Nil(t, BufferLine(orb.LineString{{0, 0}, {1, 0}}, 0))
}

func TestContainsAny_NilPolygon_False(t *testing.T) {
	assert.False(t, ContainsAny(nil, []orb.Point{{0, 0}}))
}

func TestPolygon_ClosesRing(t *testing.T) {
	poly := Polygon(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{1, 1})
	require.Len(t, poly, 1)
	assert.True(t, poly[0].Closed())
	assert.True(t, Contains(poly, orb.Point{0.9, 0.1}))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 2, 3}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestHeadingDeviation_NormalizesModulo360(t *testing.T) {
	assert.InDelta(t, 5, HeadingDeviation(-90, 265), 1e-9)
	assert.InDelta(t, 0, HeadingDeviation(0, 360), 1e-9)
	// the deviation is not wrapped: 359 vs 1 reads as 358
	assert.InDelta(t, 358, HeadingDeviation(359, 1), 1e-9)
}
