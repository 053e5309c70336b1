package workout

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"
)

// InputFromGPX fills distance, duration and start coordinates from a recorded
// track. The kind-specific value is left to the caller.
func InputFromGPX(data []byte, kind Kind) (Input, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return Input{}, fmt.Errorf("error parsing gpx: %w", err)
	}

	if len(g.Tracks) == 0 || len(g.Tracks[0].Segments) == 0 || len(g.Tracks[0].Segments[0].Points) == 0 {
		return Input{}, fmt.Errorf("gpx file has no track points")
	}

	start := g.Tracks[0].Segments[0].Points[0]

	return Input{
		Kind:     kind,
		Coords:   Coords{Lat: start.Latitude, Lng: start.Longitude},
		Distance: g.Length2D() / 1000.0,
		Duration: g.Duration() / 60.0,
	}, nil
}

// ExportGPX writes one waypoint per workout.
func (s *Store) ExportGPX() ([]byte, error) {
	g := gpx.GPX{
		Creator: "mapty",
		Name:    "Workouts",
	}

	for _, w := range s.workouts {
		g.Waypoints = append(g.Waypoints, gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  w.Coords.Lat,
				Longitude: w.Coords.Lng,
			},
			Timestamp:   w.Date.UTC(),
			Name:        w.Description,
			Type:        string(w.Kind()),
			Description: summary(w),
		})
	}

	return g.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}

func summary(w Workout) string {
	switch m := w.Metrics.(type) {
	case Running:
		return fmt.Sprintf("%.2f km in %.0f min, %.1f min/km, %.0f spm", w.Distance, w.Duration, m.Pace, m.Cadence)
	case Cycling:
		return fmt.Sprintf("%.2f km in %.0f min, %.1f km/h, %.0f m", w.Distance, w.Duration, m.Speed, m.ElevationGain)
	}
	return ""
}
