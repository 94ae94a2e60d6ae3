package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ayusman/rfbviz/internal/annotation"
	"github.com/ayusman/rfbviz/internal/metrics"
)

var (
	// ErrNoFrames is returned when stepping through an empty frame list.
	ErrNoFrames = errors.New("no frames")
	// ErrFrameNotListed is returned when the current frame is not in the list.
	ErrFrameNotListed = errors.New("frame not in list")
)

// FrameView is everything a shell shows for one instance.
type FrameView struct {
	GUID       string
	Frame      string
	InstanceID string

	Selection              Selection
	Metrics                annotation.MetricRow
	AggregationDescription string

	// Annotations maps annotator ID to its payload. An annotator whose file
	// could not be read appears in Errors instead.
	Annotations map[string]map[string]any
	Errors      map[string]string

	ImagePath   string
	Adjudicated bool

	// Prev and Next are the neighbouring frames, wrapping at the ends.
	Prev string
	Next string
}

// GUIDs lists the GUIDs of the selected metric table.
func (a *App) GUIDs(ctx context.Context) ([]string, error) {
	sel := a.Selection()
	guids, err := a.store.ListGUIDs(sel.Aggregation, sel.SkipPolicy)
	metrics.ObserveLookup("list_guids", err)
	return guids, err
}

// Frames lists the frames of guid in the selected metric table.
func (a *App) Frames(ctx context.Context, guid string) ([]string, error) {
	sel := a.Selection()
	frames, err := a.store.ListFrames(guid, sel.Aggregation, sel.SkipPolicy)
	metrics.ObserveLookup("list_frames", err)
	return frames, err
}

// Step returns the frame delta positions away from current, wrapping around
// both ends of frames.
func Step(frames []string, current string, delta int) (string, error) {
	if len(frames) == 0 {
		return "", ErrNoFrames
	}
	i := slices.Index(frames, current)
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrFrameNotListed, current)
	}
	n := len(frames)
	return frames[((i+delta)%n+n)%n], nil
}

// Metrics returns the metric row of an instance from the currently selected
// table.
func (a *App) Metrics(ctx context.Context, guid, frame string) (annotation.MetricRow, error) {
	return a.metricsFor(a.Selection(), guid, frame)
}

func (a *App) metricsFor(sel Selection, guid, frame string) (annotation.MetricRow, error) {
	row, err := a.store.GetMetrics(guid, frame, sel.Aggregation, sel.SkipPolicy)
	metrics.ObserveLookup("get_metrics", err)
	return row, err
}

// IsAdjudicated reports whether an adjudication file exists for the instance.
func (a *App) IsAdjudicated(ctx context.Context, guid, frame string) (bool, error) {
	ok, err := a.store.IsAdjudicated(guid, frame)
	metrics.ObserveLookup("is_adjudicated", err)
	return ok, err
}

// View assembles the metrics, both annotations, image path and adjudication
// state of one instance. A missing metric row fails the view; a missing
// annotation file is reported per annotator.
func (a *App) View(ctx context.Context, guid, frame string) (*FrameView, error) {
	sel := a.Selection()

	row, err := a.metricsFor(sel, guid, frame)
	if err != nil {
		return nil, err
	}

	desc, err := annotation.DescribeAggregation(sel.Aggregation)
	if err != nil {
		return nil, err
	}

	v := &FrameView{
		GUID:                   guid,
		Frame:                  frame,
		InstanceID:             annotation.InstanceID(guid, frame),
		Selection:              sel,
		Metrics:                row,
		AggregationDescription: desc,
		Annotations:            make(map[string]map[string]any, 2),
		Errors:                 make(map[string]string),
		ImagePath:              a.store.ImagePath(guid, frame),
	}

	for _, id := range a.config.Annotators {
		payload, err := a.store.GetAnnotation(id, guid, frame)
		metrics.ObserveLookup("get_annotation", err)
		if err != nil {
			v.Errors[id] = err.Error()
			continue
		}
		v.Annotations[id] = payload
	}

	if v.Adjudicated, err = a.IsAdjudicated(ctx, guid, frame); err != nil {
		return nil, err
	}

	frames, err := a.Frames(ctx, guid)
	if err != nil {
		return nil, err
	}
	if v.Prev, err = Step(frames, frame, -1); err != nil {
		return nil, err
	}
	if v.Next, err = Step(frames, frame, 1); err != nil {
		return nil, err
	}

	return v, nil
}
