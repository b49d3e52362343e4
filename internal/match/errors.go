package match

import (
	"errors"
	"fmt"

	"github.com/MJE43/maze-duel/internal/scripting"
)

// ErrStopped is returned when a match is stopped before it finished.
var ErrStopped = errors.New("match: stopped")

// Reason classifies a disqualification.
type Reason string

const (
	// ReasonTimeLimit: generateMaze or startRound ran past its hard ceiling.
	ReasonTimeLimit Reason = "time_limit"
	// ReasonComputeQuota: a takeTurn call drove the running allowance negative.
	ReasonComputeQuota Reason = "compute_quota"
	// ReasonMalformedOutput: a return value had the wrong shape.
	ReasonMalformedOutput Reason = "malformed_output"
	// ReasonDisconnectedMaze: a generated or edited maze was not fully connected.
	ReasonDisconnectedMaze Reason = "disconnected_maze"
	// ReasonScriptFault: the program threw or lacked an entry point.
	ReasonScriptFault Reason = "script_fault"
)

// Disqualification ends a match and is attributed to exactly one competitor.
type Disqualification struct {
	Who    string
	Role   scripting.Role
	Method string
	Reason Reason
	Cause  error
}

func (d *Disqualification) Error() string {
	return fmt.Sprintf("%s (%s) disqualified in %s(): %s: %v", d.Who, d.Role, d.Method, d.Reason, d.Cause)
}

func (d *Disqualification) Unwrap() error { return d.Cause }

// InternalFault is an engine-detected impossibility. It is never blamed on
// a competitor.
type InternalFault struct {
	Op  string
	Err error
}

func (f *InternalFault) Error() string {
	return fmt.Sprintf("match: internal fault in %s: %v", f.Op, f.Err)
}

func (f *InternalFault) Unwrap() error { return f.Err }
