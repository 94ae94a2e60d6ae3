package annotation

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
)

// headerCell is the first cell of a metric table's header row.
const headerCell = "guid"

// metricColumns is the number of cells a matched row must carry.
const metricColumns = 5

// MetricRow holds the precomputed agreement scores for one instance.
type MetricRow struct {
	ID       string
	GUID     string
	Frame    string
	KeyIOU   float64
	ValueIOU float64
	PairIOU  float64
	AggIOU   float64

	// Raw keeps the four cells exactly as written in the table.
	Raw [4]string
}

// Text renders the row as the multi-line block shown beside the annotations.
func (m MetricRow) Text() string {
	return fmt.Sprintf("Key IOU: %s\nValue IOU: %s\nPair IOU: %s\nAggregated IOU: %s\n",
		m.Raw[0], m.Raw[1], m.Raw[2], m.Raw[3])
}

// TablePath returns the metric table for an aggregation/skip-policy pair.
func (s *Store) TablePath(aggregation, skipPolicy string) string {
	return filepath.Join(s.layout.ResultsDir, skipPolicy, aggregation+"-results.csv")
}

// ListGUIDs returns every GUID in the table, deduplicated and sorted.
func (s *Store) ListGUIDs(aggregation, skipPolicy string) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.scanTable(aggregation, skipPolicy, func(path string, line int, rec []string) (bool, error) {
		guid, _, err := SplitInstanceID(rec[0])
		if err != nil {
			return false, &ParseError{Path: path, Line: line, Err: err}
		}
		seen[guid] = struct{}{}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// ListFrames returns the frame numbers recorded for guid in ascending
// numeric order. A GUID with no rows yields an empty slice.
func (s *Store) ListFrames(guid, aggregation, skipPolicy string) ([]string, error) {
	type frame struct {
		text string
		num  int
	}
	var frames []frame

	err := s.scanTable(aggregation, skipPolicy, func(path string, line int, rec []string) (bool, error) {
		g, f, err := SplitInstanceID(rec[0])
		if err != nil {
			return false, &ParseError{Path: path, Line: line, Err: err}
		}
		if g != guid {
			return false, nil
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return false, &ParseError{Path: path, Line: line, Err: fmt.Errorf("frame %q is not an integer", f)}
		}
		frames = append(frames, frame{text: f, num: n})
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(frames, func(a, b frame) int {
		return cmp.Compare(a.num, b.num)
	})
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.text)
	}
	return out, nil
}

// GetMetrics returns the first row whose identifier is <guid>.<frame>.
func (s *Store) GetMetrics(guid, frame, aggregation, skipPolicy string) (MetricRow, error) {
	id := InstanceID(guid, frame)
	var (
		row   MetricRow
		found bool
	)

	err := s.scanTable(aggregation, skipPolicy, func(path string, line int, rec []string) (bool, error) {
		if rec[0] != id {
			return false, nil
		}
		if len(rec) < metricColumns {
			return false, &ParseError{Path: path, Line: line,
				Err: fmt.Errorf("want %d columns, got %d", metricColumns, len(rec))}
		}
		var vals [4]float64
		for i := range vals {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return false, &ParseError{Path: path, Line: line, Err: err}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false, &ParseError{Path: path, Line: line,
					Err: fmt.Errorf("metric %q is not a finite number", rec[i+1])}
			}
			vals[i] = v
		}
		row = MetricRow{
			ID:       id,
			GUID:     guid,
			Frame:    frame,
			KeyIOU:   vals[0],
			ValueIOU: vals[1],
			PairIOU:  vals[2],
			AggIOU:   vals[3],
			Raw:      [4]string{rec[1], rec[2], rec[3], rec[4]},
		}
		found = true
		return true, nil
	})
	if err != nil {
		return MetricRow{}, err
	}
	if !found {
		return MetricRow{}, &InstanceNotFoundError{ID: id, Table: s.TablePath(aggregation, skipPolicy)}
	}
	return row, nil
}

// scanTable calls fn for every non-header row of a metric table until fn
// reports stop or returns an error.
func (s *Store) scanTable(aggregation, skipPolicy string, fn func(path string, line int, rec []string) (stop bool, err error)) error {
	if !ValidAggregation(aggregation) {
		return fmt.Errorf("%w: %q", ErrUnknownAggregation, aggregation)
	}
	if err := ValidateComponent("skip policy", skipPolicy); err != nil {
		return err
	}

	path := s.TablePath(aggregation, skipPolicy)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open metrics table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return &ParseError{Path: path, Line: perr.Line, Err: perr.Err}
			}
			return fmt.Errorf("read metrics table: %w", err)
		}
		line, _ := r.FieldPos(0)
		if len(rec) == 0 || rec[0] == headerCell {
			continue
		}
		stop, err := fn(path, line, rec)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}
