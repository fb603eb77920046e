package orchestrator

// Outcome is how far an update cycle got.
type Outcome int

const (
	// OutcomeSkipped means no cycle ran.
	OutcomeSkipped Outcome = iota
	// OutcomeUpdated means registers, memory and frames were refreshed.
	OutcomeUpdated
	// OutcomeBusy means the target was busy and a resync was armed.
	OutcomeBusy
	// OutcomeNoTarget means the debugger has no target.
	OutcomeNoTarget
	// OutcomeFailed means the register request failed and a resync was armed.
	OutcomeFailed
	// OutcomeExited means the debugger returned no registers.
	OutcomeExited
	// OutcomeNoStack means registers were refreshed but the stack could not
	// be located, so memory and frames were skipped.
	OutcomeNoStack
	// OutcomeMemoryFailed means the stack fetch failed after registers were
	// refreshed.
	OutcomeMemoryFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUpdated:
		return "updated"
	case OutcomeBusy:
		return "busy"
	case OutcomeNoTarget:
		return "no target"
	case OutcomeFailed:
		return "failed"
	case OutcomeExited:
		return "exited"
	case OutcomeNoStack:
		return "no stack"
	case OutcomeMemoryFailed:
		return "memory failed"
	}
	return "unknown"
}
