package controller

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/briangreenhill/mapty/internal/workout"
)

// View receives the map, list and form requests produced by the controller.
type View interface {
	SetView(at workout.Coords, zoom int)
	PanTo(at workout.Coords, zoom int, duration time.Duration)
	AddMarker(m Marker)
	RenderWorkout(item ListItem)
	ShowForm()
	HideForm()
	Alert(message string)
	Reload()
}

type Marker struct {
	Coords    workout.Coords `json:"coords"`
	Label     string         `json:"label"`
	Kind      workout.Kind   `json:"kind"`
	ClassName string         `json:"className"`
}

type Detail struct {
	Icon  string `json:"icon"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

type ListItem struct {
	ID      string       `json:"id"`
	Kind    workout.Kind `json:"kind"`
	Title   string       `json:"title"`
	Details []Detail     `json:"details"`
}

func icon(kind workout.Kind) string {
	if kind == workout.KindRunning {
		return "🏃‍♂️"
	}
	return "🚴‍♀️"
}

func markerFor(w workout.Workout) Marker {
	return Marker{
		Coords:    w.Coords,
		Label:     icon(w.Kind()) + " " + w.Description,
		Kind:      w.Kind(),
		ClassName: string(w.Kind()) + "-popup",
	}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func listItemFor(w workout.Workout) ListItem {
	item := ListItem{
		ID:    w.ID,
		Kind:  w.Kind(),
		Title: w.Description,
		Details: []Detail{
			{Icon: icon(w.Kind()), Value: number(w.Distance), Unit: "km"},
			{Icon: "⏱", Value: number(w.Duration), Unit: "min"},
		},
	}

	switch m := w.Metrics.(type) {
	case workout.Running:
		item.Details = append(item.Details,
			Detail{Icon: "⚡️", Value: strconv.FormatFloat(m.Pace, 'f', 1, 64), Unit: "min/km"},
			Detail{Icon: "🦶🏼", Value: number(m.Cadence), Unit: "spm"},
		)
	case workout.Cycling:
		item.Details = append(item.Details,
			Detail{Icon: "⚡️", Value: strconv.FormatFloat(m.Speed, 'f', 1, 64), Unit: "km/h"},
			Detail{Icon: "⛰", Value: number(m.ElevationGain), Unit: "m"},
		)
	}

	return item
}

// Effect is one view request in a form a browser client can replay.
type Effect struct {
	Op       string          `json:"op"`
	Coords   *workout.Coords `json:"coords,omitempty"`
	Zoom     int             `json:"zoom,omitempty"`
	Duration float64         `json:"duration,omitempty"`
	Marker   *Marker         `json:"marker,omitempty"`
	Item     *ListItem       `json:"item,omitempty"`
	Message  string          `json:"message,omitempty"`
}

const (
	OpSetView  = "setView"
	OpPanTo    = "panTo"
	OpMarker   = "addMarker"
	OpRender   = "renderWorkout"
	OpShowForm = "showForm"
	OpHideForm = "hideForm"
	OpAlert    = "alert"
	OpReload   = "reload"
)

// EffectLog records effects in order.
type EffectLog struct {
	Effects []Effect
}

func (l *EffectLog) SetView(at workout.Coords, zoom int) {
	l.Effects = append(l.Effects, Effect{Op: OpSetView, Coords: &at, Zoom: zoom})
}

func (l *EffectLog) PanTo(at workout.Coords, zoom int, duration time.Duration) {
	l.Effects = append(l.Effects, Effect{Op: OpPanTo, Coords: &at, Zoom: zoom, Duration: duration.Seconds()})
}

func (l *EffectLog) AddMarker(m Marker) {
	l.Effects = append(l.Effects, Effect{Op: OpMarker, Marker: &m})
}

func (l *EffectLog) RenderWorkout(item ListItem) {
	l.Effects = append(l.Effects, Effect{Op: OpRender, Item: &item})
}

func (l *EffectLog) ShowForm() {
	l.Effects = append(l.Effects, Effect{Op: OpShowForm})
}

func (l *EffectLog) HideForm() {
	l.Effects = append(l.Effects, Effect{Op: OpHideForm})
}

func (l *EffectLog) Alert(message string) {
	l.Effects = append(l.Effects, Effect{Op: OpAlert, Message: message})
}

func (l *EffectLog) Reload() {
	l.Effects = append(l.Effects, Effect{Op: OpReload})
}

// Ops lists the effect names in order.
func (l *EffectLog) Ops() []string {
	ops := make([]string, 0, len(l.Effects))
	for _, e := range l.Effects {
		ops = append(ops, e.Op)
	}
	return ops
}

// TextView prints effects for a terminal. Form and map-only requests are not shown.
type TextView struct {
	w io.Writer
}

func NewTextView(w io.Writer) *TextView {
	return &TextView{w: w}
}

func (t *TextView) SetView(at workout.Coords, zoom int) {
	fmt.Fprintf(t.w, "Map centered on %.5f, %.5f (zoom %d)\n", at.Lat, at.Lng, zoom)
}

func (t *TextView) PanTo(at workout.Coords, zoom int, _ time.Duration) {
	fmt.Fprintf(t.w, "Map moved to %.5f, %.5f (zoom %d)\n", at.Lat, at.Lng, zoom)
}

func (t *TextView) AddMarker(m Marker) {
	fmt.Fprintf(t.w, "Marker %s at %.5f, %.5f\n", m.Label, m.Coords.Lat, m.Coords.Lng)
}

func (t *TextView) RenderWorkout(item ListItem) {
	fmt.Fprintf(t.w, "[%s] %s\n   ", item.ID, item.Title)
	for _, d := range item.Details {
		fmt.Fprintf(t.w, " %s %s %s", d.Icon, d.Value, d.Unit)
	}
	fmt.Fprintln(t.w)
}

func (t *TextView) ShowForm() {}

func (t *TextView) HideForm() {}

func (t *TextView) Alert(message string) {
	fmt.Fprintf(t.w, "Error: %s\n", message)
}

func (t *TextView) Reload() {
	fmt.Fprintln(t.w, "All workouts removed")
}
