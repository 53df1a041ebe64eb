package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PathFeatureCollection renders an ordered walk list as a LineString feature
// followed by one Point feature per stop carrying its sequence number.
func PathFeatureCollection(ordered []Point, props map[string]any) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(ordered) == 0 {
		return fc
	}
	line := make(orb.LineString, len(ordered))
	for i, p := range ordered {
		line[i] = p.Orb()
	}
	path := geojson.NewFeature(line)
	for k, v := range props {
		path.Properties[k] = v
	}
	path.Properties["kind"] = "path"
	fc.Append(path)
	for i, p := range ordered {
		f := geojson.NewFeature(p.Orb())
		f.ID = p.ID
		for k, v := range props {
			f.Properties[k] = v
		}
		f.Properties["kind"] = "stop"
		f.Properties["seq"] = i + 1
		fc.Append(f)
	}
	return fc
}

// DayFeatureCollection renders points grouped by day number, one Point
// feature per point with a "day" property. Points missing from days are
// skipped.
func DayFeatureCollection(points []Point, days map[string]int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		day, ok := days[p.ID]
		if !ok {
			continue
		}
		f := geojson.NewFeature(p.Orb())
		f.ID = p.ID
		f.Properties["day"] = day
		fc.Append(f)
	}
	return fc
}
