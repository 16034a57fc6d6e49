package enums

import "fmt"

// MovementType classifies an append-only stock movement.
type MovementType string

const (
	MovementTypeReceive MovementType = "receive"
	MovementTypeIssue   MovementType = "issue"
)

var validMovementTypes = []MovementType{
	MovementTypeReceive,
	MovementTypeIssue,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
