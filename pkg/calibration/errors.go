package calibration

import (
	"errors"
	"fmt"
)

// Sentinel errors for calibration failures.
var (
	// ErrNoNormalSamples is returned when the normal set is empty.
	ErrNoNormalSamples = errors.New("calibration: no normal samples")

	// ErrNoCheatSamples is returned when the cheat set is empty.
	ErrNoCheatSamples = errors.New("calibration: no cheat samples")

	// ErrOverlap matches any OverlapError.
	ErrOverlap = errors.New("calibration: populations overlap")
)

// OverlapError reports that no threshold separates the two populations.
// More or better-separated samples are needed.
type OverlapError struct {
	MaxNormal float64
	MinCheat  float64
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("calibration: populations overlap (max normal %.3f >= min cheat %.3f)", e.MaxNormal, e.MinCheat)
}

// Is makes errors.Is(err, ErrOverlap) succeed.
func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}
