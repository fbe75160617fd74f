package upgrade

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned for option combinations that can't be run.
var ErrInvalidOptions = errors.New("invalid upgrade options")

// ErrorClass distinguishes the two kinds of fatal failure.
type ErrorClass int

const (
	// ClassInfrastructure is a failure of the recovery gate, the scripting
	// engine, or a script that failed without starting the upgrade.
	ClassInfrastructure ErrorClass = iota
	// ClassMigration is a controlled migration failure reported by a script.
	ClassMigration
)

func (c ErrorClass) String() string {
	switch c {
	case ClassInfrastructure:
		return "infrastructure"
	case ClassMigration:
		return "migration"
	default:
		return fmt.Sprintf("ErrorClass(%d)", int(c))
	}
}

// FatalError is a failure that must terminate the process.
type FatalError struct {
	Class    ErrorClass
	Database string
	Msg      string
	// Remedy tells the operator how to resolve the failure.
	Remedy string
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return e.Msg
}

// Hint returns the remediation hint for the operator.
func (e *FatalError) Hint() string {
	return e.Remedy
}

// ValidateOptions checks the combination of the upgrade and upgrade check
// options.
func ValidateOptions(upgrade, upgradeCheck bool) error {
	if upgrade && !upgradeCheck {
		return fmt.Errorf("%w: cannot specify both upgrade and no upgrade check", ErrInvalidOptions)
	}
	return nil
}
