package network

import "fmt"

// ValidationError reports an entity that cannot be part of a solvable network.
type ValidationError struct {
	Entity string
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Entity, e.Name, e.Reason)
}
