package powerflow

import "fmt"

// DivergenceError reports a power flow that did not converge. Solving the same network
// again gives the same outcome, so callers should not retry.
type DivergenceError struct {
	Message string
}

func (e *DivergenceError) Error() string {
	if e.Message == "" {
		return "power flow did not converge"
	}
	return fmt.Sprintf("power flow did not converge: %s", e.Message)
}
