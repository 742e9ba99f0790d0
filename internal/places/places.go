// Package places persists the catalog of named points shown as markers and offered as
// navigation targets.
package places

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ensigniasec/mapview/internal/navigation"
	"github.com/ensigniasec/mapview/internal/validate"
)

// DefaultPath is where the catalog lives unless configured otherwise.
const DefaultPath = "~/.config/mapview/places.yaml"

// ErrNotFound is returned when removing a place that is not in the catalog.
var ErrNotFound = errors.New("place not found")

// Place is a named point on the map.
type Place struct {
	Name      string  `yaml:"name" validate:"required"`
	Latitude  float64 `yaml:"lat" validate:"latitude"`
	Longitude float64 `yaml:"lng" validate:"longitude"`
	Note      string  `yaml:"note,omitempty"`
}

// Request returns the navigation request that flies to p.
func (p Place) Request() navigation.Request {
	return navigation.Request{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Data is the on-disk layout of the catalog.
type Data struct {
	Places []Place `yaml:"places" validate:"dive"`
}

// Store handles loading and saving the catalog file.
type Store struct {
	Path string `validate:"required"`
	Data Data
}

// Defaults seeds a fresh catalog.
func Defaults() []Place {
	return []Place{
		{Name: "London", Latitude: 51.5072, Longitude: -0.1276},
		{Name: "Edinburgh", Latitude: 55.9533, Longitude: -3.1883},
		{Name: "Cardiff", Latitude: 51.4816, Longitude: -3.1791},
		{Name: "Belfast", Latitude: 54.5973, Longitude: -5.9301},
		{Name: "Dublin", Latitude: 53.3498, Longitude: -6.2603},
	}
}

// NewStore opens the catalog at path. A missing file yields the default places,
// which are not written until Save.
func NewStore(path string) (*Store, error) {
	expanded, err := expandTilde(path)
	if err != nil {
		return nil, err
	}

	s := &Store{Path: expanded, Data: Data{Places: Defaults()}}
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("invalid places path %q: %w", path, err)
	}
	if err := s.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

// Load reads the catalog file, dropping entries that fail validation.
func (s *Store) Load() error {
	logrus.Debug("Loading places file from: ", s.Path)
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return err
	}

	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse %s: %w", s.Path, err)
	}

	kept := data.Places[:0]
	for _, p := range data.Places {
		if err := validate.Struct(p); err != nil {
			logrus.WithError(err).WithField("place", p.Name).Warn("Skipping invalid place")
			continue
		}
		kept = append(kept, p)
	}
	s.Data.Places = kept
	return nil
}

// Save writes the catalog to disk, creating the parent directory.
func (s *Store) Save() error {
	logrus.Debug("Saving places file to: ", s.Path)
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	raw, err := yaml.Marshal(s.Data)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, raw, 0o600)
}

// List returns the places sorted by name.
func (s *Store) List() []Place {
	out := append([]Place(nil), s.Data.Places...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Find looks a place up by name, ignoring case.
func (s *Store) Find(name string) (Place, bool) {
	i := s.index(name)
	if i < 0 {
		return Place{}, false
	}
	return s.Data.Places[i], true
}

// Add inserts p, replacing any place with the same name, and saves.
func (s *Store) Add(p Place) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid place: %w", err)
	}
	logrus.Debugf("Adding place: name=%s, lat=%f, lng=%f", p.Name, p.Latitude, p.Longitude)
	if i := s.index(p.Name); i >= 0 {
		s.Data.Places[i] = p
	} else {
		s.Data.Places = append(s.Data.Places, p)
	}
	return s.Save()
}

// Remove deletes the named place and saves.
func (s *Store) Remove(name string) error {
	i := s.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	logrus.Debugf("Removing place: name=%s", name)
	s.Data.Places = append(s.Data.Places[:i], s.Data.Places[i+1:]...)
	return s.Save()
}

// Reset restores the default places and saves.
func (s *Store) Reset() error {
	logrus.Debug("Resetting places")
	s.Data.Places = Defaults()
	return s.Save()
}

// Print writes the catalog to w.
func (s *Store) Print(w io.Writer) {
	places := s.List()
	if len(places) == 0 {
		fmt.Fprintln(w, "No places saved.")
		return
	}
	for _, p := range places {
		fmt.Fprintf(w, "%-20s %9.4f %10.4f", p.Name, p.Latitude, p.Longitude)
		if p.Note != "" {
			fmt.Fprintf(w, "  %s", p.Note)
		}
		fmt.Fprintln(w)
	}
}

func (s *Store) index(name string) int {
	name = strings.TrimSpace(name)
	for i, p := range s.Data.Places {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// expandTilde expands the tilde in a path to the user's home directory.
func expandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}
