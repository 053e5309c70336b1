// Package controller turns user events (map clicks, form submissions, list
// clicks) into workout store operations and view requests.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/briangreenhill/mapty/internal/observability"
	"github.com/briangreenhill/mapty/internal/workout"
)

const (
	DefaultZoom  = 15
	panDuration  = time.Second
	locationHelp = "Could not get your position"
)

type Options struct {
	Zoom int
}

// Controller handles one event at a time, matching the browser event loop the
// workout log was designed for.
type Controller struct {
	mu       sync.Mutex
	factory  *workout.Factory
	store    *workout.Store
	logger   *slog.Logger
	zoom     int
	pending  *workout.Coords
	mapReady bool
}

func New(factory *workout.Factory, store *workout.Store, logger *slog.Logger, opts Options) *Controller {
	zoom := opts.Zoom
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	return &Controller{
		factory: factory,
		store:   store,
		logger:  logger,
		zoom:    zoom,
	}
}

// Start restores the persisted workouts and renders the list. Unreadable
// state is discarded and the log starts empty.
func (c *Controller) Start(ctx context.Context, v View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.store.Load(ctx)
	var corrupt *workout.CorruptStateError
	var perr *workout.PersistenceError
	switch {
	case errors.As(err, &corrupt):
		c.logger.Warn("Discarding unreadable workout state", slog.Any("error", err))
		observability.RecordCorruptStateDiscard()
		if err := c.store.Deserialize(nil); err != nil {
			c.logger.Error("Error clearing workout state", slog.Any("error", err))
		}
	case errors.As(err, &perr):
		c.logger.Error("Error loading workouts", slog.Any("error", err))
		observability.RecordPersistenceFailure(perr.Op)
		v.Alert("Could not load saved workouts")
	case err != nil:
		c.logger.Error("Error loading workouts", slog.Any("error", err))
		v.Alert("Could not load saved workouts")
	}

	for _, w := range c.store.All() {
		v.RenderWorkout(listItemFor(w))
	}
}

// Locate asks for the current position and loads the map there.
func (c *Controller) Locate(ctx context.Context, v View, loc Locator) {
	at, err := loc.CurrentPosition(ctx)
	if err != nil {
		c.logger.Info("Position unavailable", slog.Any("error", err))
		v.Alert(locationHelp)
		return
	}
	c.LoadMap(v, at)
}

// LoadMap centers the map and draws a marker for every stored workout.
func (c *Controller) LoadMap(v View, at workout.Coords) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v.SetView(at, c.zoom)
	for _, w := range c.store.All() {
		v.AddMarker(markerFor(w))
	}
	c.mapReady = true
}

// SelectPoint remembers a clicked map point and opens the form.
func (c *Controller) SelectPoint(v View, at workout.Coords) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = &at
	v.ShowForm()
}

// Submit builds a workout from the form at the given point, or at the last
// selected point when at is nil. Invalid input raises an alert and changes
// nothing. A failed save raises an alert but keeps the workout in memory.
func (c *Controller) Submit(ctx context.Context, v View, form workout.FormValues, at *workout.Coords) (workout.Workout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if at == nil {
		at = c.pending
	}
	if at == nil {
		err := &workout.ValidationError{Field: "location", Reason: "select a point on the map first"}
		observability.RecordValidationFailure()
		v.Alert(validationMessage(err))
		return workout.Workout{}, err
	}

	in, err := workout.ParseForm(form, *at)
	if err != nil {
		observability.RecordValidationFailure()
		v.Alert(validationMessage(err))
		return workout.Workout{}, err
	}

	return c.add(ctx, v, in)
}

func (c *Controller) add(ctx context.Context, v View, in workout.Input) (workout.Workout, error) {
	w, err := c.factory.New(in)
	if err != nil {
		observability.RecordValidationFailure()
		v.Alert(validationMessage(err))
		return workout.Workout{}, err
	}

	c.store.Add(w)
	observability.RecordWorkoutCreated(string(w.Kind()))
	c.logger.Info("Workout added", slog.String("id", w.ID), slog.String("type", string(w.Kind())))

	v.AddMarker(markerFor(w))
	v.RenderWorkout(listItemFor(w))
	v.HideForm()

	if err := c.store.Save(ctx); err != nil {
		c.logger.Error("Error saving workouts", slog.Any("error", err))
		observability.RecordPersistenceFailure("save")
		v.Alert("Workout was added but could not be saved")
		return w, err
	}

	return w, nil
}

// Focus pans the map to a listed workout. Unknown ids are ignored.
func (c *Controller) Focus(v View, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.store.FindByID(id)
	if !ok {
		return false
	}
	v.PanTo(w.Coords, c.zoom, panDuration)
	return true
}

// Reset removes every workout, in memory and in storage.
func (c *Controller) Reset(ctx context.Context, v View) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = nil
	if err := c.store.Reset(ctx); err != nil {
		c.logger.Error("Error resetting workouts", slog.Any("error", err))
		observability.RecordPersistenceFailure("reset")
		v.Alert("Could not erase saved workouts")
		return err
	}

	c.logger.Info("Workouts reset")
	v.Reload()
	return nil
}

func (c *Controller) Workouts() []workout.Workout {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.All()
}

func (c *Controller) Find(id string) (workout.Workout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.FindByID(id)
}

func (c *Controller) ExportGPX() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.ExportGPX()
}

func (c *Controller) MapReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mapReady
}

func (c *Controller) Zoom() int {
	return c.zoom
}

func validationMessage(err error) string {
	var verr *workout.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("Please enter valid workout details: %s", verr.Error())
	}
	return err.Error()
}
