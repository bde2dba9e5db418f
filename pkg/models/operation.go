package models

import (
	"strings"
)

// OperationKind is the type of file operation
type OperationKind string

const (
	// OpCopy copies sources into the destination directory
	OpCopy OperationKind = "copy"
	// OpMove moves sources into the destination directory
	OpMove OperationKind = "move"
	// OpDelete permanently deletes sources
	OpDelete OperationKind = "delete"
)

// Name returns the capitalized display name
func (k OperationKind) Name() string {
	switch k {
	case OpCopy:
		return "Copy"
	case OpMove:
		return "Move"
	case OpDelete:
		return "Delete"
	default:
		return string(k)
	}
}

// OperationState is the state of a pending file operation
type OperationState string

const (
	// StatePending holds the flattened list without having started accounting
	StatePending OperationState = "pending"
	// StateProcessing advances one entry per step
	StateProcessing OperationState = "processing"
	// StateWaitingConflict waits for a conflict decision
	StateWaitingConflict OperationState = "waiting-conflict"
	// StateCompleted is terminal
	StateCompleted OperationState = "completed"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// PreconditionError is returned when a request is rejected before any
// filesystem mutation happens (missing destination, existing archive,
// empty sources, unsupported format, recursive copy)
type PreconditionError struct {
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *PreconditionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}
