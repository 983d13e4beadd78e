package geo

import (
	"encoding/binary"
	"errors"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// SRID used for every stored geometry.
const SRID = 4326

var ErrNotLineString = errors.New("route geometry must be a LineString")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// ParseGeoJSON decodes a GeoJSON LineString and returns it as WKB bytes.
// An empty input yields nil.
func ParseGeoJSON(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, err
	}
	if _, ok := g.(*geom.LineString); !ok {
		return nil, ErrNotLineString
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// ToGeoJSON converts stored WKB bytes back into GeoJSON.
func ToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PathFromPoints builds a GeoJSON LineString through the given points in
// order. Fewer than two points yield an empty string.
func PathFromPoints(points []Point) (string, error) {
	if len(points) < 2 {
		return "", nil
	}
	coords := make([]geom.Coord, 0, len(points))
	for _, p := range points {
		coords = append(coords, geom.Coord{p.Lng, p.Lat})
	}
	ls, err := geom.NewLineString(geom.XY).SetCoords(coords)
	if err != nil {
		return "", err
	}
	ls.SetSRID(SRID)
	b, err := gjson.Marshal(ls)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
