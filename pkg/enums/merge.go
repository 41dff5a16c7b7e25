package enums

import "fmt"

// ConflictResolution labels how an overlapping merge line was settled.
type ConflictResolution string

const (
	ResolutionGuest    ConflictResolution = "guest"
	ResolutionUser     ConflictResolution = "user"
	ResolutionCombined ConflictResolution = "combined"
)

var validConflictResolutions = []ConflictResolution{
	ResolutionGuest,
	ResolutionUser,
	ResolutionCombined,
}

// String implements fmt.Stringer.
func (r ConflictResolution) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ConflictResolution.
func (r ConflictResolution) IsValid() bool {
	for _, candidate := range validConflictResolutions {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseConflictResolution converts raw input into a ConflictResolution.
func ParseConflictResolution(value string) (ConflictResolution, error) {
	for _, candidate := range validConflictResolutions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conflict resolution %q", value)
}
