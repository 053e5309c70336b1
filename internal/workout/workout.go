package workout

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

func (k Kind) Valid() bool {
	return k == KindRunning || k == KindCycling
}

// Title returns the kind capitalised, as used in descriptions.
func (k Kind) Title() string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Metrics is the kind-specific part of a Workout. Only Running and Cycling implement it.
type Metrics interface {
	Kind() Kind
	isMetrics()
}

type Running struct {
	Cadence float64 // steps per minute
	Pace    float64 // min/km
}

func (Running) Kind() Kind { return KindRunning }
func (Running) isMetrics() {}

type Cycling struct {
	ElevationGain float64 // m
	Speed         float64 // km/h
}

func (Cycling) Kind() Kind { return KindCycling }
func (Cycling) isMetrics() {}

// Workout is one logged activity. Values are built by a Factory or restored by a
// Store and are not modified afterwards.
type Workout struct {
	ID          string
	Date        time.Time
	Coords      Coords
	Distance    float64 // km
	Duration    float64 // min
	Description string
	Metrics     Metrics
}

func (w Workout) Kind() Kind {
	if w.Metrics == nil {
		return ""
	}
	return w.Metrics.Kind()
}

func (w Workout) Running() (Running, bool) {
	r, ok := w.Metrics.(Running)
	return r, ok
}

func (w Workout) Cycling() (Cycling, bool) {
	c, ok := w.Metrics.(Cycling)
	return c, ok
}

func Pace(distance, duration float64) float64 {
	return duration / distance
}

func Speed(distance, duration float64) float64 {
	return distance / (duration / 60)
}

// Describe formats the workout title, e.g. "Running on 3 June".
func Describe(kind Kind, date time.Time) string {
	return fmt.Sprintf("%s on %d %s", kind.Title(), date.Day(), date.Month())
}

// TimestampID keeps the last 10 digits of the Unix millisecond timestamp.
func TimestampID(t time.Time) string {
	id := strconv.FormatInt(t.UnixMilli(), 10)
	if len(id) > 10 {
		id = id[len(id)-10:]
	}
	return id
}
