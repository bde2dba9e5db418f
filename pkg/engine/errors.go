package engine

import (
	"github.com/sdejongh/duopane/pkg/fileop"
)

var (
	// ErrNoPendingConflict is returned when a decision arrives with nothing
	// to decide, from either the orchestrator or the operation itself
	ErrNoPendingConflict = fileop.ErrNoConflict

	// ErrUnknownDecision is shared with the file operation state machine
	ErrUnknownDecision = fileop.ErrUnknownDecision
)
