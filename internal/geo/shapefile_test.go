package geo

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// ring builds a closed flat-coordinate square ring.
func squareRing(minX, minY, maxX, maxY float64) []float64 {
	return []float64{
		minX, minY,
		minX, maxY,
		maxX, maxY,
		maxX, minY,
		minX, minY,
	}
}

func squareDistrict(code string, minX, minY, maxX, maxY float64) District {
	flat := squareRing(minX, minY, maxX, maxY)
	mp := geom.NewMultiPolygon(geom.XY)
	if err := mp.Push(geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})); err != nil {
		panic(err)
	}
	return District{Code: code, Geom: mp}
}

func TestDistrict_Contains(t *testing.T) {
	d := squareDistrict("73", 0, 0, 1, 1)

	assert.True(t, d.Contains(0.5, 0.5))
	assert.False(t, d.Contains(1.5, 0.5))
	assert.False(t, d.Contains(-0.5, 0.5))
	assert.False(t, d.Contains(0.5, 2.0))
}

func TestDistrict_Contains_Hole(t *testing.T) {
	// Outer square with an inner square hole; even-odd rule excludes the hole.
	outer := squareRing(0, 0, 4, 4)
	hole := squareRing(1, 1, 2, 2)

	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(geom.NewPolygonFlat(geom.XY, outer, []int{len(outer)})))
	require.NoError(t, mp.Push(geom.NewPolygonFlat(geom.XY, hole, []int{len(hole)})))
	d := District{Code: "40", Geom: mp}

	assert.True(t, d.Contains(3, 3))
	assert.False(t, d.Contains(1.5, 1.5), "point in the hole is outside")
}

func TestPolygonToMultiPolygon(t *testing.T) {
	// One record, two parts: two disjoint unit squares.
	points := []shp.Point{
		{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0},
		{X: 10, Y: 10}, {X: 10, Y: 11}, {X: 11, Y: 11}, {X: 11, Y: 10}, {X: 10, Y: 10},
	}
	poly := &shp.Polygon{
		Box:       shp.Box{MinX: 0, MinY: 0, MaxX: 11, MaxY: 11},
		NumParts:  2,
		NumPoints: int32(len(points)),
		Parts:     []int32{0, 5},
		Points:    points,
	}

	mp := polygonToMultiPolygon(poly)
	require.NotNil(t, mp)
	assert.Equal(t, 2, mp.NumPolygons())

	d := District{Code: "multi", Geom: mp}
	assert.True(t, d.Contains(0.5, 0.5))
	assert.True(t, d.Contains(10.5, 10.5))
	assert.False(t, d.Contains(5, 5))
}

func TestPolygonToMultiPolygon_Degenerate(t *testing.T) {
	assert.Nil(t, polygonToMultiPolygon(nil))
	assert.Nil(t, polygonToMultiPolygon(&shp.Polygon{}))

	// A two-point part cannot form a ring.
	poly := &shp.Polygon{
		NumParts:  1,
		NumPoints: 2,
		Parts:     []int32{0},
		Points:    []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
	}
	assert.Nil(t, polygonToMultiPolygon(poly))
}

func TestLoadDistricts_MissingFile(t *testing.T) {
	_, err := LoadDistricts("/nonexistent/precincts.shp", "precinct", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open shapefile")
}
