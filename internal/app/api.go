package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/briangreenhill/mapty/internal/config"
	"github.com/briangreenhill/mapty/internal/controller"
	"github.com/briangreenhill/mapty/internal/workout"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewAPI(logger *slog.Logger, ctrl *controller.Controller, cfg config.Config) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", handleHealth())
	mux.Handle("GET /v1/map/config", handleMapConfig(logger, ctrl, cfg))
	mux.Handle("POST /v1/session", handleSession(logger, ctrl, cfg))
	mux.Handle("POST /v1/map/click", handleMapClick(ctrl))
	mux.Handle("GET /v1/workouts", handleListWorkouts(ctrl))
	mux.Handle("POST /v1/workouts", handleCreateWorkout(logger, ctrl))
	mux.Handle("DELETE /v1/workouts", handleResetWorkouts(ctrl))
	mux.Handle("GET /v1/workouts.gpx", handleExportWorkouts(logger, ctrl))
	mux.Handle("GET /v1/workouts/{id}", handleGetWorkout(ctrl))
	mux.Handle("POST /v1/workouts/{id}/focus", handleFocusWorkout(ctrl))
	mux.Handle("GET /metrics", promhttp.Handler())
	if cfg.UIDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.UIDir)))
	}

	return withRequestLog(logger, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withRequestLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("Request",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

// formValue accepts either a JSON string or a JSON number and keeps the raw text,
// so validation sees exactly what the user typed.
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	*v = formValue(data)
	return nil
}

type pointRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (p pointRequest) coords() *workout.Coords {
	if p.Lat == nil || p.Lng == nil {
		return nil
	}
	return &workout.Coords{Lat: *p.Lat, Lng: *p.Lng}
}

type sessionRequest struct {
	pointRequest
	Error string `json:"error"`
}

type createWorkoutRequest struct {
	pointRequest
	Type      string    `json:"type"`
	Distance  formValue `json:"distance"`
	Duration  formValue `json:"duration"`
	Cadence   formValue `json:"cadence"`
	Elevation formValue `json:"elevation"`
}

func (r createWorkoutRequest) form() workout.FormValues {
	return workout.FormValues{
		Type:      r.Type,
		Distance:  string(r.Distance),
		Duration:  string(r.Duration),
		Cadence:   string(r.Cadence),
		Elevation: string(r.Elevation),
	}
}

type WorkoutView struct {
	ID            string         `json:"id"`
	Type          workout.Kind   `json:"type"`
	Date          time.Time      `json:"date"`
	Coords        workout.Coords `json:"coords"`
	Distance      float64        `json:"distance"`
	Duration      float64        `json:"duration"`
	Description   string         `json:"description"`
	Cadence       *float64       `json:"cadence,omitempty"`
	Pace          *float64       `json:"pace,omitempty"`
	ElevationGain *float64       `json:"elevationGain,omitempty"`
	Speed         *float64       `json:"speed,omitempty"`
}

func toWorkoutView(w workout.Workout) WorkoutView {
	view := WorkoutView{
		ID:          w.ID,
		Type:        w.Kind(),
		Date:        w.Date,
		Coords:      w.Coords,
		Distance:    w.Distance,
		Duration:    w.Duration,
		Description: w.Description,
	}
	switch m := w.Metrics.(type) {
	case workout.Running:
		view.Cadence, view.Pace = &m.Cadence, &m.Pace
	case workout.Cycling:
		view.ElevationGain, view.Speed = &m.ElevationGain, &m.Speed
	}
	return view
}

type EffectsResponse struct {
	Effects []controller.Effect `json:"effects"`
}

type WorkoutResponse struct {
	Workout   WorkoutView         `json:"workout"`
	Persisted bool                `json:"persisted"`
	Effects   []controller.Effect `json:"effects"`
}

type ListWorkoutsResponse struct {
	Items []WorkoutView `json:"items"`
}

type MapConfigResponse struct {
	Token   string `json:"token,omitempty"`
	TileURL string `json:"tileUrl"`
	Zoom    int    `json:"zoom"`
}

func handleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func handleMapConfig(logger *slog.Logger, ctrl *controller.Controller, cfg config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.MapboxToken == "" {
			logger.Debug("MAPBOX_TOKEN not set, serving tile url only")
		}
		writeJSON(w, http.StatusOK, MapConfigResponse{
			Token:   cfg.MapboxToken,
			TileURL: cfg.MapTileURL,
			Zoom:    ctrl.Zoom(),
		})
	})
}

func handleSession(logger *slog.Logger, ctrl *controller.Controller, cfg config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}

		var loc controller.Locator
		switch {
		case req.Error != "" || req.coords() != nil:
			loc = controller.ReportedLocator{Coords: req.coords(), Error: req.Error}
		case cfg.HomeSet:
			loc = controller.StaticLocator{Home: &workout.Coords{Lat: cfg.HomeLat, Lng: cfg.HomeLng}}
		default:
			logger.Debug("No position reported and no home configured")
			loc = controller.StaticLocator{}
		}

		view := &controller.EffectLog{}
		ctrl.Start(r.Context(), view)
		ctrl.Locate(r.Context(), view, loc)
		writeJSON(w, http.StatusOK, EffectsResponse{Effects: view.Effects})
	})
}

func handleMapClick(ctrl *controller.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req pointRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}
		at := req.coords()
		if at == nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "lat and lng are required")
			return
		}

		view := &controller.EffectLog{}
		ctrl.SelectPoint(view, *at)
		writeJSON(w, http.StatusOK, EffectsResponse{Effects: view.Effects})
	})
}

func handleListWorkouts(ctrl *controller.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workouts := ctrl.Workouts()
		items := make([]WorkoutView, 0, len(workouts))
		for _, wo := range workouts {
			items = append(items, toWorkoutView(wo))
		}
		writeJSON(w, http.StatusOK, ListWorkoutsResponse{Items: items})
	})
}

func handleGetWorkout(ctrl *controller.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wo, ok := ctrl.Find(r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeJSON(w, http.StatusOK, toWorkoutView(wo))
	})
}

func handleCreateWorkout(logger *slog.Logger, ctrl *controller.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createWorkoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
			return
		}

		view := &controller.EffectLog{}
		wo, err := ctrl.Submit(r.Context(), view, req.form(), req.coords())

		var verr *workout.ValidationError
		var perr *workout.PersistenceError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"type":    "validation_failed",
				"detail":  verr.Error(),
				"field":   verr.Field,
				"effects": view.Effects,
			})
			return
		case errors.As(err, &perr):
			logger.Warn("Workout kept in memory only", slog.String("id", wo.ID))
		case err != nil:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, WorkoutResponse{
			Workout:   toWorkoutView(wo),
			Persisted: err == nil,
			Effects:   view.Effects,
		})
	})
}

func handleFocusWorkout(ctrl *controller.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view := &controller.EffectLog{}
		if !ctrl.Focus(view, r.PathValue("id")) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeJSON(w, http.StatusOK, EffectsResponse{Effects: view.Effects})
	})
}

func handleResetWorkouts(ctrl *controller.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view := &controller.EffectLog{}
		if err := ctrl.Reset(r.Context(), view); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"type":    "persistence_failed",
				"detail":  err.Error(),
				"effects": view.Effects,
			})
			return
		}
		writeJSON(w, http.StatusOK, EffectsResponse{Effects: view.Effects})
	})
}

func handleExportWorkouts(logger *slog.Logger, ctrl *controller.Controller) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := ctrl.ExportGPX()
		if err != nil {
			logger.Error("Error exporting gpx", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/gpx+xml")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			logger.Error("Error writing gpx", slog.Any("error", err))
		}
	})
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
