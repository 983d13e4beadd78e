package geo

import (
	"math"
	"time"
)

const earthRadius = 6371000 // metres

// Distance returns the great-circle distance in metres.
func Distance(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLon := toRadians(b.Lng - a.Lng)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
}

// Fix is a recorded position with the speed reported at that moment.
type Fix struct {
	Point
	Speed float64 // m/s
	At    time.Time
}

// Thresholds for deciding whether a fix goes into the history trail.
const (
	MinMoveDistance  = 5.0  // metres
	MinStateInterval = 10.0 // seconds
	MovingSpeed      = 0.5  // m/s
	StoppedSpeed     = 1.0  // m/s
	PeriodicInterval = 60 * time.Second
)

// ShouldRecord decides whether next is significant relative to last and
// names the event. A nil last always records.
func ShouldRecord(last *Fix, next Fix) (bool, string) {
	if last == nil {
		return true, "initial"
	}
	if Distance(last.Point, next.Point) >= MinMoveDistance {
		return true, "move"
	}
	elapsed := next.At.Sub(last.At).Seconds()
	wasMoving := last.Speed > MovingSpeed
	if wasMoving && next.Speed < StoppedSpeed && elapsed >= MinStateInterval {
		return true, "stopped"
	}
	if !wasMoving && next.Speed >= MovingSpeed && elapsed >= MinStateInterval {
		return true, "started"
	}
	if next.At.Sub(last.At) >= PeriodicInterval {
		return true, "periodic"
	}
	return false, "insignificant"
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }
