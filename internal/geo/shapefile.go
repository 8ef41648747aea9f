// Package geo loads district boundary shapefiles and assigns incident
// coordinates to districts.
package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// District is one boundary polygon from a district shapefile (police
// precincts, boroughs, or any other administrative layer).
type District struct {
	Code string
	Name string
	Geom *geom.MultiPolygon
}

// Contains reports whether the point lies inside the district boundary,
// using the even-odd rule so holes behave correctly.
func (d *District) Contains(lon, lat float64) bool {
	if d.Geom == nil {
		return false
	}
	coord := geom.Coord{lon, lat}
	if !d.Geom.Bounds().OverlapsPoint(geom.XY, coord) {
		return false
	}

	crossings := 0
	for i := 0; i < d.Geom.NumPolygons(); i++ {
		poly := d.Geom.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			if xy.IsPointInRing(geom.XY, coord, poly.LinearRing(j).FlatCoords()) {
				crossings++
			}
		}
	}
	return crossings%2 == 1
}

// LoadDistricts reads district polygons from a shapefile. codeField names the
// attribute used as the district identifier; nameField is optional.
func LoadDistricts(shpPath, codeField, nameField string) ([]District, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	codeIdx, ok := fieldIdx[strings.ToLower(codeField)]
	if !ok {
		return nil, eris.Errorf("geo: shapefile has no field %q", codeField)
	}
	nameIdx := -1
	if nameField != "" {
		if idx, ok := fieldIdx[strings.ToLower(nameField)]; ok {
			nameIdx = idx
		}
	}

	var districts []District
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		code := cleanAttribute(reader.Attribute(codeIdx))
		if code == "" {
			skipped++
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		d := District{Code: code, Geom: mp}
		if nameIdx >= 0 {
			d.Name = cleanAttribute(reader.Attribute(nameIdx))
		}
		districts = append(districts, d)
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped shapefile records", zap.Int("skipped", skipped))
	}
	if len(districts) == 0 {
		return nil, eris.Errorf("geo: shapefile %s contained no usable polygons", shpPath)
	}

	return districts, nil
}

// polygonToMultiPolygon converts a shapefile Polygon record. Each part ring
// becomes a single-ring polygon; the even-odd containment test makes ring
// orientation irrelevant.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}
		if end-start < 3 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		if err := mp.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func cleanAttribute(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
