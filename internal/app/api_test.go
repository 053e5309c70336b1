package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/briangreenhill/mapty/internal/config"
	"github.com/briangreenhill/mapty/internal/controller"
	"github.com/briangreenhill/mapty/internal/localstore"
	"github.com/briangreenhill/mapty/internal/workout"
	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"
)

func newTestController(slot *localstore.Memory) *controller.Controller {
	n := 0
	factory := &workout.Factory{
		Now: func() time.Time { return time.Date(2024, time.June, 3, 7, 0, 0, 0, time.UTC) },
		NewID: func(time.Time) string {
			n++
			return "171740700" + string(rune('0'+n))
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return controller.New(factory, workout.NewStore(slot), logger, controller.Options{})
}

func newTestAPI(t *testing.T, slot *localstore.Memory, cfg config.Config) (http.Handler, *controller.Controller) {
	t.Helper()
	ctrl := newTestController(slot)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAPI(logger, ctrl, cfg), ctrl
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func ops(effects []controller.Effect) []string {
	out := make([]string, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Op)
	}
	return out
}

func TestCreateWorkoutAfterMapClick(t *testing.T) {
	h, _ := newTestAPI(t, localstore.NewMemory(), config.Config{})

	rr := do(t, h, http.MethodPost, "/v1/map/click", `{"lat":-6.2,"lng":106.8}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = do(t, h, http.MethodPost, "/v1/workouts", `{"type":"running","distance":"5.2","duration":24,"cadence":"178"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp WorkoutResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Persisted)
	require.Equal(t, "1717407001", resp.Workout.ID)
	require.Equal(t, workout.KindRunning, resp.Workout.Type)
	require.Equal(t, workout.Coords{Lat: -6.2, Lng: 106.8}, resp.Workout.Coords)
	require.NotNil(t, resp.Workout.Pace)
	require.InDelta(t, 4.615, *resp.Workout.Pace, 0.001)
	require.Nil(t, resp.Workout.Speed)
	require.Equal(t, []string{controller.OpMarker, controller.OpRender, controller.OpHideForm}, ops(resp.Effects))
}

func TestCreateWorkoutValidationFailed(t *testing.T) {
	h, ctrl := newTestAPI(t, localstore.NewMemory(), config.Config{})

	rr := do(t, h, http.MethodPost, "/v1/workouts", `{"lat":1,"lng":2,"type":"running","distance":"abc","duration":"24","cadence":"178"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "validation_failed", resp["type"])
	require.Equal(t, "distance", resp["field"])
	require.Empty(t, ctrl.Workouts())
}

func TestCreateWorkoutNotPersisted(t *testing.T) {
	slot := localstore.NewMemory()
	slot.Fail(errors.New("quota exceeded"))
	h, ctrl := newTestAPI(t, slot, config.Config{})

	rr := do(t, h, http.MethodPost, "/v1/workouts", `{"lat":1,"lng":2,"type":"cycling","distance":25,"duration":60,"elevation":-200}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp WorkoutResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.False(t, resp.Persisted)
	require.Equal(t, 25.0, *resp.Workout.Speed)
	require.Contains(t, ops(resp.Effects), controller.OpAlert)
	require.Len(t, ctrl.Workouts(), 1)
}

func TestCreateWorkoutBadBody(t *testing.T) {
	h, _ := newTestAPI(t, localstore.NewMemory(), config.Config{})
	rr := do(t, h, http.MethodPost, "/v1/workouts", `{`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetAndListWorkouts(t *testing.T) {
	h, _ := newTestAPI(t, localstore.NewMemory(), config.Config{})

	rr := do(t, h, http.MethodGet, "/v1/workouts/1717407001", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/workouts", `{"lat":1,"lng":2,"type":"running","distance":5,"duration":25,"cadence":170}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = do(t, h, http.MethodPost, "/v1/workouts", `{"lat":3,"lng":4,"type":"cycling","distance":20,"duration":40,"elevation":0}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/workouts/1717407001", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view WorkoutView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, "Running on 3 June", view.Description)

	rr = do(t, h, http.MethodGet, "/v1/workouts/unknown", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/workouts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list ListWorkoutsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	require.Equal(t, workout.KindRunning, list.Items[0].Type)
	require.Equal(t, workout.KindCycling, list.Items[1].Type)
}

func TestSessionWithReportedPosition(t *testing.T) {
	slot := localstore.NewMemory()
	h, _ := newTestAPI(t, slot, config.Config{})
	rr := do(t, h, http.MethodPost, "/v1/workouts", `{"lat":1,"lng":2,"type":"running","distance":5,"duration":25,"cadence":170}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	// a fresh process restores from the slot
	h, _ = newTestAPI(t, slot, config.Config{})
	rr = do(t, h, http.MethodPost, "/v1/session", `{"lat":-6.2,"lng":106.8}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp EffectsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, []string{controller.OpRender, controller.OpSetView, controller.OpMarker}, ops(resp.Effects))
	require.Equal(t, 15, resp.Effects[1].Zoom)
}

func TestSessionGeolocationDenied(t *testing.T) {
	h, ctrl := newTestAPI(t, localstore.NewMemory(), config.Config{})

	rr := do(t, h, http.MethodPost, "/v1/session", `{"error":"User denied Geolocation"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp EffectsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, []string{controller.OpAlert}, ops(resp.Effects))
	require.False(t, ctrl.MapReady())
}

func TestSessionFallsBackToHome(t *testing.T) {
	h, ctrl := newTestAPI(t, localstore.NewMemory(), config.Config{HomeSet: true, HomeLat: 51.5, HomeLng: -0.12})

	rr := do(t, h, http.MethodPost, "/v1/session", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp EffectsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, []string{controller.OpSetView}, ops(resp.Effects))
	require.Equal(t, 51.5, resp.Effects[0].Coords.Lat)
	require.True(t, ctrl.MapReady())
}

func TestFocusWorkout(t *testing.T) {
	h, _ := newTestAPI(t, localstore.NewMemory(), config.Config{})
	rr := do(t, h, http.MethodPost, "/v1/workouts", `{"lat":1,"lng":2,"type":"running","distance":5,"duration":25,"cadence":170}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodPost, "/v1/workouts/1717407001/focus", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp EffectsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, []string{controller.OpPanTo}, ops(resp.Effects))
	require.Equal(t, 1.0, resp.Effects[0].Duration)

	rr = do(t, h, http.MethodPost, "/v1/workouts/nope/focus", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResetWorkouts(t *testing.T) {
	slot := localstore.NewMemory()
	h, ctrl := newTestAPI(t, slot, config.Config{})
	rr := do(t, h, http.MethodPost, "/v1/workouts", `{"lat":1,"lng":2,"type":"running","distance":5,"duration":25,"cadence":170}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodDelete, "/v1/workouts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, ctrl.Workouts())

	_, err := slot.Get(context.Background(), workout.StorageKey)
	require.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestResetWorkoutsFailure(t *testing.T) {
	slot := localstore.NewMemory()
	h, ctrl := newTestAPI(t, slot, config.Config{})
	rr := do(t, h, http.MethodPost, "/v1/workouts", `{"lat":1,"lng":2,"type":"running","distance":5,"duration":25,"cadence":170}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	slot.Fail(errors.New("disk gone"))
	rr = do(t, h, http.MethodDelete, "/v1/workouts", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var resp struct {
		Type    string              `json:"type"`
		Effects []controller.Effect `json:"effects"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "persistence_failed", resp.Type)
	require.Equal(t, []string{controller.OpAlert}, ops(resp.Effects))
	require.Empty(t, ctrl.Workouts())
}

func TestExportWorkouts(t *testing.T) {
	h, _ := newTestAPI(t, localstore.NewMemory(), config.Config{})
	rr := do(t, h, http.MethodPost, "/v1/workouts", `{"lat":1,"lng":2,"type":"running","distance":5,"duration":25,"cadence":170}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/workouts.gpx", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/gpx+xml", rr.Header().Get("Content-Type"))

	g, err := gpx.ParseBytes(rr.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, g.Waypoints, 1)
	require.Equal(t, "Running on 3 June", g.Waypoints[0].Name)
}

func TestMapConfigAndHealth(t *testing.T) {
	h, _ := newTestAPI(t, localstore.NewMemory(), config.Config{MapboxToken: "pk.test", MapTileURL: "https://tiles/{z}/{x}/{y}.png"})

	rr := do(t, h, http.MethodGet, "/v1/map/config", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp MapConfigResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "pk.test", resp.Token)
	require.Equal(t, 15, resp.Zoom)

	rr = do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())

	rr = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "mapty_")
}
