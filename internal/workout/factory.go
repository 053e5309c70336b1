package workout

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type Input struct {
	Kind      Kind
	Coords    Coords
	Distance  float64
	Duration  float64
	Cadence   float64
	Elevation float64
}

// FormValues holds the raw text of the workout form.
type FormValues struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence"`
	Elevation string `json:"elevation"`
}

type Factory struct {
	Now   func() time.Time
	NewID func(time.Time) string
}

func NewFactory() *Factory {
	return &Factory{
		Now:   time.Now,
		NewID: TimestampID,
	}
}

// New validates the input and builds a Workout with its derived metric and description.
func (f *Factory) New(in Input) (Workout, error) {
	if err := Validate(in); err != nil {
		return Workout{}, err
	}

	now := f.Now()
	w := Workout{
		ID:          f.NewID(now),
		Date:        now,
		Coords:      in.Coords,
		Distance:    in.Distance,
		Duration:    in.Duration,
		Description: Describe(in.Kind, now),
	}

	switch in.Kind {
	case KindRunning:
		w.Metrics = Running{Cadence: in.Cadence, Pace: Pace(in.Distance, in.Duration)}
	case KindCycling:
		w.Metrics = Cycling{ElevationGain: in.Elevation, Speed: Speed(in.Distance, in.Duration)}
	}

	return w, nil
}

func Validate(in Input) error {
	if !in.Kind.Valid() {
		return &ValidationError{Field: "type", Reason: "must be running or cycling"}
	}

	if !finite(in.Coords.Lat) || in.Coords.Lat < -90 || in.Coords.Lat > 90 {
		return &ValidationError{Field: "latitude", Reason: "must be between -90 and 90"}
	}
	if !finite(in.Coords.Lng) || in.Coords.Lng < -180 || in.Coords.Lng > 180 {
		return &ValidationError{Field: "longitude", Reason: "must be between -180 and 180"}
	}

	if err := positive("distance", in.Distance); err != nil {
		return err
	}
	if err := positive("duration", in.Duration); err != nil {
		return err
	}

	if in.Kind == KindRunning {
		return positive("cadence", in.Cadence)
	}

	// elevation gain may be zero or negative
	if !finite(in.Elevation) {
		return &ValidationError{Field: "elevation", Reason: "must be a finite number"}
	}
	return nil
}

// ParseForm converts the form text into an Input at the given point. Only the
// field belonging to the selected kind is read.
func ParseForm(v FormValues, at Coords) (Input, error) {
	in := Input{Kind: Kind(strings.ToLower(strings.TrimSpace(v.Type))), Coords: at}
	if !in.Kind.Valid() {
		return Input{}, &ValidationError{Field: "type", Reason: "must be running or cycling"}
	}

	var err error
	if in.Distance, err = parseNumber("distance", v.Distance); err != nil {
		return Input{}, err
	}
	if in.Duration, err = parseNumber("duration", v.Duration); err != nil {
		return Input{}, err
	}

	switch in.Kind {
	case KindRunning:
		in.Cadence, err = parseNumber("cadence", v.Cadence)
	case KindCycling:
		in.Elevation, err = parseNumber("elevation", v.Elevation)
	}
	if err != nil {
		return Input{}, err
	}

	return in, nil
}

func parseNumber(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &ValidationError{Field: field, Reason: "is required"}
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "must be a number"}
	}
	return n, nil
}

func positive(field string, n float64) error {
	if !finite(n) {
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if n <= 0 {
		return &ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	return nil
}

func finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}
