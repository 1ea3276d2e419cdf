package situation

import (
	"github.com/inference-sim/collision-risk/risk/geom"
	"github.com/paulmach/orb"
)

// Road ends, counter-clockwise from the first corner of the class area.
const (
	EndA RoadEnd = "A"
	EndB RoadEnd = "B"
	EndC RoadEnd = "C"
	EndD RoadEnd = "D"
)

// Town03 returns the situation classes around the unsignalized four-way
// junction of the Town03 map: the southern approach SC1, the junction SC3
// and the eastern approach SC4.
func Town03() []Class {
	sc1 := Class{
		Name: "SC1",
		Kind: KindTwoLaneFollowing,
		Area: geom.Polygon(
			orb.Point{-59.677048, 117.748764},
			orb.Point{-82.056221, 117.778320},
			orb.Point{-82.056221, 8.005962},
			orb.Point{-59.844963, 8.005962},
		),
		Successors: map[RoadEnd][]string{EndB: {"SC3"}},
		TwoLane: &TwoLaneFollowing{
			Left: geom.Polygon(
				orb.Point{-79.846626, 117.748764},
				orb.Point{-79.550591, 8.005962},
				orb.Point{-76.228622, 8.005962},
				orb.Point{-76.392159, 117.748764},
			),
			Right: geom.Polygon(
				orb.Point{-76.392159, 117.748764},
				orb.Point{-76.228622, 8.005962},
				orb.Point{-72.610268, 8.005962},
				orb.Point{-72.976341, 117.748764},
			),
		},
	}
	sc3 := Class{
		Name: "SC3",
		Kind: KindFourWayJunction,
		Area: geom.Polygon(
			orb.Point{-59.677048, 117.748764},
			orb.Point{-103.239853, 117.778320},
			orb.Point{-103.239853, 155.401031},
			orb.Point{-59.391304, 154.834015},
		),
		Successors:   map[RoadEnd][]string{EndC: {"SC1"}},
		Predecessors: map[RoadEnd][]string{EndC: {"SC1"}, EndB: {"SC4"}},
	}
	sc4 := Class{
		Name: "SC4",
		Kind: KindTwoLaneFollowing,
		Area: geom.Polygon(
			orb.Point{-15.799465, 136.851822},
			orb.Point{-59.391304, 137.856964},
			orb.Point{-59.391304, 154.834015},
			orb.Point{-15.799465, 154.834015},
		),
		Successors: map[RoadEnd][]string{EndB: {"SC3"}},
		TwoLane: &TwoLaneFollowing{
			Left: geom.Polygon(
				orb.Point{-59.391304, 141.465286},
				orb.Point{-59.391304, 137.803009},
				orb.Point{-15.799465, 136.860580},
				orb.Point{-15.799465, 140.587616},
			),
			Right: geom.Polygon(
				orb.Point{-59.391304, 144.838501},
				orb.Point{-59.391304, 141.465286},
				orb.Point{-15.799465, 140.587616},
				orb.Point{-15.799465, 143.862487},
			),
		},
	}
	return []Class{sc1, sc3, sc4}
}
