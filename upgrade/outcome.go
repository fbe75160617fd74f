package upgrade

import "fmt"

// State is the state of a Driver.
type State int

// Driver states.
const (
	StateIdle State = iota
	StateRecoveryGateOpen
	StatePerDatabaseUpgrade
	StateCompleted
	StateFatalAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecoveryGateOpen:
		return "recovery gate open"
	case StatePerDatabaseUpgrade:
		return "upgrading databases"
	case StateCompleted:
		return "completed"
	case StateFatalAborted:
		return "fatal aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the result of running the upgrade script for one database.
type Outcome int

// Upgrade outcomes.
const (
	// OutcomeSuccess means the script succeeded.
	OutcomeSuccess Outcome = iota
	// OutcomeFailedControlled means the script failed after signaling that
	// the upgrade started.
	OutcomeFailedControlled
	// OutcomeFailedUncontrolled means the script failed without signaling that
	// the upgrade started, which is treated as an engine error.
	OutcomeFailedUncontrolled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailedControlled:
		return "failed"
	case OutcomeFailedUncontrolled:
		return "engine error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Classify returns the outcome of a script run from its result, and whether
// it set the upgrade started marker.
func Classify(ok, started bool) Outcome {
	switch {
	case ok:
		return OutcomeSuccess
	case started:
		return OutcomeFailedControlled
	default:
		return OutcomeFailedUncontrolled
	}
}

// DatabaseResult is the outcome of the upgrade of a single database.
type DatabaseResult struct {
	Database string
	Outcome  Outcome
}

// Result summarizes a Driver run.
type Result struct {
	State     State
	Databases []DatabaseResult
	// UpgradePassed is set when an upgrade run succeeded for all databases.
	UpgradePassed bool
	// ShutdownRequested is set when the process should shut down gracefully
	// instead of serving.
	ShutdownRequested bool
}
