package cli

import (
	"fmt"

	"mercator-hq/archivist/pkg/lifecycle"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitUnknown        = 1
	ExitConfiguration  = 2
	ExitAuthentication = 3
	ExitQuery          = 4
	ExitUpload         = 5
	ExitPurge          = 6
	ExitInterrupted    = 130
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch lifecycle.Classify(err) {
	case "":
		return ExitOK
	case lifecycle.KindInterrupted:
		return ExitInterrupted
	case lifecycle.KindAuthentication:
		return ExitAuthentication
	case lifecycle.KindConfiguration:
		return ExitConfiguration
	case lifecycle.KindQuery:
		return ExitQuery
	case lifecycle.KindUpload:
		return ExitUpload
	case lifecycle.KindPurge:
		return ExitPurge
	}
	return ExitUnknown
}

// CommandError names the subcommand that failed.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}
