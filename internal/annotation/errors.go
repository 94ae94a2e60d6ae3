package annotation

import (
	"errors"
	"fmt"
)

var (
	// ErrInstanceNotFound matches any *InstanceNotFoundError.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrUnknownAggregation is returned for aggregation names other than
	// "average" and "product".
	ErrUnknownAggregation = errors.New("unknown aggregation method")
	// ErrInvalidIdentifier is returned when a GUID, frame or annotator ID
	// cannot name a file.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrSameAnnotator is returned when a replacement names the same
	// annotator as source and target.
	ErrSameAnnotator = errors.New("source and target annotator are the same")
)

// InstanceNotFoundError reports a metric table that exists but has no row
// for the requested instance.
type InstanceNotFoundError struct {
	ID    string
	Table string
}

func (e *InstanceNotFoundError) Error() string {
	return fmt.Sprintf("%s cannot be found in %s", e.ID, e.Table)
}

// Is makes errors.Is(err, ErrInstanceNotFound) hold.
func (e *InstanceNotFoundError) Is(target error) bool {
	return target == ErrInstanceNotFound
}

// ParseError reports a malformed metric table row or annotation file.
// Line is zero for JSON files.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
