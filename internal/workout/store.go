package workout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/briangreenhill/mapty/internal/localstore"
)

// StorageKey is the slot key holding the serialized store.
const StorageKey = "workouts"

// Slot is the persisted key-value facility the store writes to.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Store is the ordered, in-memory list of workouts and its round-trip to a Slot.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	slot     Slot
	workouts []Workout
}

func NewStore(slot Slot) *Store {
	return &Store{slot: slot}
}

func (s *Store) Add(w Workout) {
	s.workouts = append(s.workouts, w)
}

func (s *Store) FindByID(id string) (Workout, bool) {
	for _, w := range s.workouts {
		if w.ID == id {
			return w, true
		}
	}
	return Workout{}, false
}

func (s *Store) All() []Workout {
	out := make([]Workout, len(s.workouts))
	copy(out, s.workouts)
	return out
}

func (s *Store) Len() int {
	return len(s.workouts)
}

type record struct {
	ID            string     `json:"id"`
	Date          *time.Time `json:"date"`
	Coords        []*float64 `json:"coords"`
	Distance      *float64   `json:"distance"`
	Duration      *float64   `json:"duration"`
	Type          Kind       `json:"type"`
	Description   string     `json:"description"`
	Cadence       *float64   `json:"cadence,omitempty"`
	Pace          *float64   `json:"pace,omitempty"`
	ElevationGain *float64   `json:"elevationGain,omitempty"`
	Speed         *float64   `json:"speed,omitempty"`
}

func toRecord(w Workout) record {
	date := w.Date
	distance, duration := w.Distance, w.Duration
	r := record{
		ID:          w.ID,
		Date:        &date,
		Coords:      []*float64{&w.Coords.Lat, &w.Coords.Lng},
		Distance:    &distance,
		Duration:    &duration,
		Type:        w.Kind(),
		Description: w.Description,
	}

	switch m := w.Metrics.(type) {
	case Running:
		r.Cadence, r.Pace = &m.Cadence, &m.Pace
	case Cycling:
		r.ElevationGain, r.Speed = &m.ElevationGain, &m.Speed
	}
	return r
}

func fromRecord(i int, r record) (Workout, error) {
	missing := func(field string) error {
		return &CorruptStateError{Reason: fmt.Sprintf("workout %d: missing %s", i, field)}
	}

	switch {
	case r.ID == "":
		return Workout{}, missing("id")
	case r.Date == nil:
		return Workout{}, missing("date")
	case len(r.Coords) != 2 || r.Coords[0] == nil || r.Coords[1] == nil:
		return Workout{}, missing("coords")
	case r.Distance == nil:
		return Workout{}, missing("distance")
	case r.Duration == nil:
		return Workout{}, missing("duration")
	case r.Description == "":
		return Workout{}, missing("description")
	}

	w := Workout{
		ID:          r.ID,
		Date:        *r.Date,
		Coords:      Coords{Lat: *r.Coords[0], Lng: *r.Coords[1]},
		Distance:    *r.Distance,
		Duration:    *r.Duration,
		Description: r.Description,
	}

	switch r.Type {
	case KindRunning:
		if r.Cadence == nil {
			return Workout{}, missing("cadence")
		}
		if r.Pace == nil {
			return Workout{}, missing("pace")
		}
		w.Metrics = Running{Cadence: *r.Cadence, Pace: *r.Pace}
	case KindCycling:
		if r.ElevationGain == nil {
			return Workout{}, missing("elevationGain")
		}
		if r.Speed == nil {
			return Workout{}, missing("speed")
		}
		w.Metrics = Cycling{ElevationGain: *r.ElevationGain, Speed: *r.Speed}
	case "":
		return Workout{}, missing("type")
	default:
		return Workout{}, &CorruptStateError{Reason: fmt.Sprintf("workout %d: unknown type %q", i, r.Type)}
	}

	return w, nil
}

// Serialize encodes every workout, derived fields and type tag included, in insertion order.
func (s *Store) Serialize() ([]byte, error) {
	records := make([]record, 0, len(s.workouts))
	for _, w := range s.workouts {
		records = append(records, toRecord(w))
	}
	return json.Marshal(records)
}

// Deserialize replaces the store contents with the decoded blob. On error the
// previous contents are kept.
func (s *Store) Deserialize(blob []byte) error {
	blob = bytes.TrimSpace(blob)
	if len(blob) == 0 || bytes.Equal(blob, []byte("null")) {
		s.workouts = nil
		return nil
	}

	var records []record
	if err := json.Unmarshal(blob, &records); err != nil {
		return &CorruptStateError{Reason: "malformed data", Err: err}
	}

	workouts := make([]Workout, 0, len(records))
	for i, r := range records {
		w, err := fromRecord(i, r)
		if err != nil {
			return err
		}
		workouts = append(workouts, w)
	}

	s.workouts = workouts
	return nil
}

func (s *Store) Save(ctx context.Context) error {
	blob, err := s.Serialize()
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	if err := s.slot.Set(ctx, StorageKey, blob); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Load restores the store from the slot. A missing key leaves the store empty.
func (s *Store) Load(ctx context.Context) error {
	blob, err := s.slot.Get(ctx, StorageKey)
	if errors.Is(err, localstore.ErrNotFound) {
		s.workouts = nil
		return nil
	}
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}
	return s.Deserialize(blob)
}

// Reset clears the store and erases the persisted slot. Memory is cleared even
// when the slot removal fails.
func (s *Store) Reset(ctx context.Context) error {
	s.workouts = nil
	if err := s.slot.Remove(ctx, StorageKey); err != nil {
		return &PersistenceError{Op: "reset", Err: err}
	}
	return nil
}
