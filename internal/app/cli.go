package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/briangreenhill/mapty/internal/config"
	"github.com/briangreenhill/mapty/internal/controller"
	"github.com/briangreenhill/mapty/internal/workout"
)

type CLI struct {
	writer     io.Writer
	controller *controller.Controller
	cfg        config.Config
	args       []string
	logger     *slog.Logger
}

func NewCLI(w io.Writer, logger *slog.Logger, ctrl *controller.Controller, cfg config.Config, args []string) *CLI {
	return &CLI{
		writer:     w,
		controller: ctrl,
		cfg:        cfg,
		args:       args,
		logger:     logger,
	}
}

func (c *CLI) Run(ctx context.Context) error {
	if len(c.args) == 0 {
		c.Usage()
		return nil
	}

	switch c.args[0] {
	case "add":
		return c.AddWorkout(ctx)
	case "list":
		return c.ListWorkouts(ctx)
	case "show":
		return c.ShowWorkout(ctx)
	case "reset":
		return c.ResetWorkouts(ctx)
	case "export":
		return c.ExportWorkouts(ctx)
	case "api":
		return c.RunAPI(ctx)
	default:
		c.Usage()
	}
	return nil
}

func (c *CLI) Usage() {
	fmt.Fprintf(c.writer, "Usage: mapty [command] [flags]\n--help show this message\n\n"+
		"\tadd --type running|cycling --lat --lng --distance --duration [--cadence|--elevation]\n"+
		"\tadd --gpx file --type running|cycling [--cadence|--elevation]\n"+
		"\tlist\n\tshow --id\n\treset\n\texport [--out file]\n\tapi\n")
}

// start restores saved workouts and prints only the alerts it raised.
func (c *CLI) start(ctx context.Context) {
	view := &controller.EffectLog{}
	c.controller.Start(ctx, view)
	for _, e := range view.Effects {
		if e.Op == controller.OpAlert {
			fmt.Fprintf(c.writer, "Error: %s\n", e.Message)
		}
	}
}

func (c *CLI) AddWorkout(ctx context.Context) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(c.writer)
	var form workout.FormValues
	var lat, lng float64
	var gpxFile string
	fs.StringVar(&form.Type, "type", "running", "running or cycling")
	fs.Float64Var(&lat, "lat", 0, "latitude of the workout")
	fs.Float64Var(&lng, "lng", 0, "longitude of the workout")
	fs.StringVar(&form.Distance, "distance", "", "distance in km")
	fs.StringVar(&form.Duration, "duration", "", "duration in minutes")
	fs.StringVar(&form.Cadence, "cadence", "", "cadence in steps per minute (running)")
	fs.StringVar(&form.Elevation, "elevation", "", "elevation gain in meters (cycling)")
	fs.StringVar(&gpxFile, "gpx", "", "path to gpx file")
	fs.Usage = c.Usage

	if err := fs.Parse(c.args[1:]); err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// without both coordinates the controller falls back to its pending point
	var at *workout.Coords
	if set["lat"] && set["lng"] {
		at = &workout.Coords{Lat: lat, Lng: lng}
	}

	if gpxFile != "" {
		c.logger.Info("Reading gpx file", slog.String("gpx_file", gpxFile))

		gpxBytes, err := readGPXFile(gpxFile)
		if err != nil {
			return err
		}

		in, err := workout.InputFromGPX(gpxBytes, workout.Kind(form.Type))
		if err != nil {
			return err
		}
		at = &in.Coords
		form.Distance = strconv.FormatFloat(in.Distance, 'f', -1, 64)
		form.Duration = strconv.FormatFloat(in.Duration, 'f', -1, 64)
	}

	c.start(ctx)

	view := controller.NewTextView(c.writer)
	w, err := c.controller.Submit(ctx, view, form, at)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.writer, "Workout %s added successfully\n", w.ID)
	return nil
}

func (c *CLI) ListWorkouts(ctx context.Context) error {
	c.controller.Start(ctx, controller.NewTextView(c.writer))
	if len(c.controller.Workouts()) == 0 {
		fmt.Fprintln(c.writer, "No workouts yet")
	}
	return nil
}

func (c *CLI) ShowWorkout(ctx context.Context) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(c.writer)
	var id string
	fs.StringVar(&id, "id", "", "workout id")
	fs.Usage = c.Usage

	if err := fs.Parse(c.args[1:]); err != nil {
		return err
	}
	if id == "" {
		fs.Usage()
		return nil
	}

	c.start(ctx)

	w, ok := c.controller.Find(id)
	if !ok {
		return fmt.Errorf("workout %s not found", id)
	}

	printWorkout(c.writer, w)
	c.controller.Focus(controller.NewTextView(c.writer), id)
	return nil
}

func printWorkout(out io.Writer, w workout.Workout) {
	fmt.Fprintf(out, "%s\n", w.Description)
	fmt.Fprintf(out, "  id:        %s\n", w.ID)
	fmt.Fprintf(out, "  date:      %s\n", w.Date.Format(time.RFC1123))
	fmt.Fprintf(out, "  location:  %.5f, %.5f\n", w.Coords.Lat, w.Coords.Lng)
	fmt.Fprintf(out, "  distance:  %g km\n", w.Distance)
	fmt.Fprintf(out, "  duration:  %g min\n", w.Duration)
	switch m := w.Metrics.(type) {
	case workout.Running:
		fmt.Fprintf(out, "  pace:      %.1f min/km\n", m.Pace)
		fmt.Fprintf(out, "  cadence:   %g spm\n", m.Cadence)
	case workout.Cycling:
		fmt.Fprintf(out, "  speed:     %.1f km/h\n", m.Speed)
		fmt.Fprintf(out, "  elevation: %g m\n", m.ElevationGain)
	}
}

func (c *CLI) ResetWorkouts(ctx context.Context) error {
	c.start(ctx)
	return c.controller.Reset(ctx, controller.NewTextView(c.writer))
}

func (c *CLI) ExportWorkouts(ctx context.Context) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.writer)
	var out string
	fs.StringVar(&out, "out", "", "write gpx to this file instead of stdout")
	fs.Usage = c.Usage

	if err := fs.Parse(c.args[1:]); err != nil {
		return err
	}

	c.start(ctx)

	data, err := c.controller.ExportGPX()
	if err != nil {
		return fmt.Errorf("error exporting gpx: %w", err)
	}

	if out == "" {
		_, err = c.writer.Write(data)
		return err
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("error writing gpx file: %w", err)
	}
	fmt.Fprintf(c.writer, "Exported %d workouts to %s\n", len(c.controller.Workouts()), out)
	return nil
}

func (c *CLI) RunAPI(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	c.start(ctx)

	server := &http.Server{
		Addr:         c.cfg.HTTPAddress,
		Handler:      NewAPI(c.logger, c.controller, c.cfg),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		c.logger.Info("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("Error shutting down server", slog.Any("error", err))
		}
	}()

	c.logger.Info("Starting server", slog.String("addr", c.cfg.HTTPAddress))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		c.logger.Error("Error starting server", slog.Any("error", err))
		cancel()
		return err
	}

	return nil
}

func readGPXFile(gpxFile string) ([]byte, error) {
	info, err := os.Stat(gpxFile)
	if err != nil {
		return nil, fmt.Errorf("error reading gpx file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("gpx file %s is a directory", gpxFile)
	}
	return os.ReadFile(gpxFile)
}
