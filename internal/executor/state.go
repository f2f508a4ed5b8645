package executor

// State is a step of the simulate-then-commit state machine.
type State int32

// Executor states.
const (
	StateIdle State = iota
	StateSimulating
	StateSimulationFailed
	StateSimulationPassed
	StateExecuting
	StateCommitted
	StateExecutionFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSimulating:
		return "simulating"
	case StateSimulationFailed:
		return "simulation_failed"
	case StateSimulationPassed:
		return "simulation_passed"
	case StateExecuting:
		return "executing"
	case StateCommitted:
		return "committed"
	case StateExecutionFailed:
		return "execution_failed"
	}
	return "unknown"
}
