package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultPath is where the service looks for a profile when none is configured.
const DefaultPath = "overlay_calibration_data.json"

// Store persists calibration profiles.
type Store interface {
	// Load returns the saved profile, or nil when none exists.
	Load() (*Profile, error)
	// Save publishes the profile atomically.
	Save(p *Profile) error
	Path() string
}

// JSONStore keeps the profile in a single JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore creates a store at path. The parent directory is created on Save.
func NewJSONStore(path string) *JSONStore {
	if path == "" {
		path = DefaultPath
	}
	return &JSONStore{path: path}
}

// Path returns the file location.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the profile. A missing file is not an error, and neither is a
// profile without a positive threshold: both return nil so the caller falls
// back to its default.
func (s *JSONStore) Load() (*Profile, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse calibration %s: %w", s.path, err)
	}
	if math.IsNaN(p.Threshold) || p.Threshold > 1 {
		return nil, fmt.Errorf("calibration %s: threshold %.3f outside [0, 1]", s.path, p.Threshold)
	}
	if p.Threshold <= 0 {
		return nil, nil
	}
	return &p, nil
}

// Save writes to a temp file and renames it over the profile so readers
// never observe a partial write.
func (s *JSONStore) Save(p *Profile) error {
	if p == nil {
		return errors.New("calibration: nil profile")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create calibration directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal calibration: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write calibration: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish calibration: %w", err)
	}
	return nil
}

// EffectiveThreshold returns the profile threshold, or fallback when p is nil
// or carries no positive threshold.
func EffectiveThreshold(p *Profile, fallback float64) float64 {
	if p == nil || p.Threshold <= 0 {
		return fallback
	}
	return p.Threshold
}
