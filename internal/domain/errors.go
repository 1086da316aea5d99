package domain

import (
	"errors"
	"fmt"
)

var (
	// A referenced county has no catalog data.
	ErrMissingGeography = errors.New("missing geography")
	// An activity-pattern code has no table entry.
	ErrUnknownPattern = errors.New("unknown activity pattern")
	// A record does not have the expected field count.
	ErrSchemaViolation = errors.New("schema violation")
)

// A worker failed while processing one work unit.
// The geography's full pass sequence must be rerun.
type PartitionFailure struct {
	Unit  WorkUnit
	Stage string
	Err   error
}

func (e *PartitionFailure) Error() string {
	return fmt.Sprintf("partition failure: %s stage=%s: %v", e.Unit, e.Stage, e.Err)
}

func (e *PartitionFailure) Unwrap() error { return e.Err }
