package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/briangreenhill/mapty/internal/workout"
)

var ErrPositionUnavailable = errors.New("position unavailable")

// GeolocationError reports a denied or unavailable position request.
type GeolocationError struct {
	Err error
}

func (e *GeolocationError) Error() string {
	return fmt.Sprintf("geolocation failed: %v", e.Err)
}

func (e *GeolocationError) Unwrap() error {
	return e.Err
}

// Locator answers a one-shot request for the current position.
type Locator interface {
	CurrentPosition(ctx context.Context) (workout.Coords, error)
}

// StaticLocator returns a configured home position.
type StaticLocator struct {
	Home *workout.Coords
}

func (l StaticLocator) CurrentPosition(_ context.Context) (workout.Coords, error) {
	if l.Home == nil {
		return workout.Coords{}, &GeolocationError{Err: ErrPositionUnavailable}
	}
	return *l.Home, nil
}

// ReportedLocator carries the outcome of a position request made by a browser.
type ReportedLocator struct {
	Coords *workout.Coords
	Error  string
}

func (l ReportedLocator) CurrentPosition(_ context.Context) (workout.Coords, error) {
	if l.Error != "" {
		return workout.Coords{}, &GeolocationError{Err: errors.New(l.Error)}
	}
	if l.Coords == nil {
		return workout.Coords{}, &GeolocationError{Err: ErrPositionUnavailable}
	}
	return *l.Coords, nil
}
