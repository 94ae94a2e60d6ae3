// Package metrics exposes Prometheus counters for lookups and adjudication.
package metrics

import (
	"errors"
	"io/fs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ayusman/rfbviz/internal/annotation"
)

// Lookup result labels.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

var (
	lookupCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfbviz_lookups_total",
			Help: "Total number of annotation store lookups",
		},
		[]string{"op", "result"},
	)

	adjudicationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfbviz_adjudications_total",
			Help: "Total number of adjudication files written",
		},
		[]string{"annotator"},
	)

	replacementCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rfbviz_replacements_total",
			Help: "Total number of annotation replacements",
		},
	)
)

// ObserveLookup counts one lookup of kind op, labelled by how it ended.
func ObserveLookup(op string, err error) {
	lookupCounter.With(prometheus.Labels{"op": op, "result": Result(err)}).Inc()
}

// ObserveAdjudication counts an adjudication written for annotator.
func ObserveAdjudication(annotator string) {
	adjudicationCounter.With(prometheus.Labels{"annotator": annotator}).Inc()
}

// ObserveReplacement counts an annotation replacement.
func ObserveReplacement() {
	replacementCounter.Inc()
}

// Result classifies err into a lookup result label.
func Result(err error) string {
	var perr *annotation.ParseError
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, annotation.ErrInstanceNotFound):
		return ResultNotFound
	case errors.As(err, &perr), errors.Is(err, annotation.ErrInvalidIdentifier),
		errors.Is(err, annotation.ErrUnknownAggregation):
		return ResultInvalid
	default:
		return ResultError
	}
}
