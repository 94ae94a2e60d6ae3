// Package annotation resolves instance identifiers to agreement metrics,
// annotator responses and frame images, and manages adjudication files.
//
// Every lookup rescans the files on disk. Metric tables, annotation files and
// images are produced elsewhere and treated as read-only; the only files this
// package writes are adjudication copies and, through ReplaceAnnotation, an
// explicit overwrite of one annotator's response.
package annotation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Aggregation methods selecting which metric table is read.
const (
	AggregationAverage = "average"
	AggregationProduct = "product"
)

// Skip policies shipped with the agreement results.
const (
	SkipPolicySkips   = "skips"
	SkipPolicyNoSkips = "noskips"
)

// Layout locates the directories the store reads from and writes to.
type Layout struct {
	// DataDir holds one subdirectory of <guid>.<frame>.json files per annotator.
	DataDir string
	// ResultsDir holds <skip_policy>/<aggregation>-results.csv tables.
	ResultsDir string
	// ImageDir holds <guid>.<frame>.png frame images.
	ImageDir string
	// AdjudicatedDir receives <annotator>,<guid>.<frame>.json copies.
	AdjudicatedDir string
}

// Store answers lookups against a Layout. It holds no state beyond the
// layout, so it is safe for concurrent use.
type Store struct {
	layout Layout
}

// New creates a Store over the given layout. An empty AdjudicatedDir defaults
// to <DataDir>/adjudicated.
func New(layout Layout) *Store {
	if layout.AdjudicatedDir == "" {
		layout.AdjudicatedDir = filepath.Join(layout.DataDir, "adjudicated")
	}
	return &Store{layout: layout}
}

// Layout returns the directories this store operates on.
func (s *Store) Layout() Layout {
	return s.layout
}

// InstanceID joins a GUID and frame number into the identifier used across
// metric rows, annotation files and image files.
func InstanceID(guid, frame string) string {
	return guid + "." + frame
}

// SplitInstanceID splits an identifier at its last dot.
func SplitInstanceID(id string) (guid, frame string, err error) {
	i := strings.LastIndexByte(id, '.')
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("malformed instance identifier %q", id)
	}
	return id[:i], id[i+1:], nil
}

// ValidAggregation reports whether a names a known aggregation method.
func ValidAggregation(a string) bool {
	return a == AggregationAverage || a == AggregationProduct
}

// DescribeAggregation returns the formula label shown next to the metrics.
// The values themselves are precomputed; nothing is calculated here.
func DescribeAggregation(a string) (string, error) {
	switch a {
	case AggregationAverage:
		return "total IOU = (keyIOU * valIOU * pairIOU) / 3", nil
	case AggregationProduct:
		return "total IOU = keyIOU * valIOU * pairIOU", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAggregation, a)
	}
}

// ValidateComponent rejects identifiers that cannot be used as a single path
// element, such as those containing separators or equal to "..".
func ValidateComponent(kind, value string) error {
	if value == "" || value == "." || value == ".." ||
		strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, 0) {
		return fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, kind, value)
	}
	return nil
}

func validateInstance(guid, frame string) error {
	if err := ValidateComponent("guid", guid); err != nil {
		return err
	}
	return ValidateComponent("frame", frame)
}
