package evaluation

import (
	"errors"
	"fmt"
	"strings"
)

// Metric names one overlap measure
type Metric string

const (
	VD       Metric = "vd"
	VOD      Metric = "vod"
	Dice     Metric = "dice"
	USR      Metric = "usr"
	OSR      Metric = "osr"
	FP       Metric = "fp"
	FPNormed Metric = "fp_normed"
	FN       Metric = "fn"
	FNNormed Metric = "fn_normed"
)

// ErrUnknownMetric is returned by ParseMetrics for a name it does not know
var ErrUnknownMetric = errors.New("unknown metric")

var allMetrics = []Metric{VD, VOD, Dice, USR, OSR, FP, FPNormed, FN, FNNormed}

// AllMetrics returns every metric in report order
func AllMetrics() []Metric {
	return append([]Metric(nil), allMetrics...)
}

// IsRatio reports whether the metric is undefined on an empty input
func (m Metric) IsRatio() bool {
	switch m {
	case VD, VOD, Dice, USR, OSR:
		return true
	}
	return false
}

func (m Metric) order() int {
	for i, x := range allMetrics {
		if x == m {
			return i
		}
	}
	return len(allMetrics)
}

// MetricSet is the set of requested metrics
type MetricSet map[Metric]struct{}

// NewMetricSet builds a set from known metrics
func NewMetricSet(metrics ...Metric) MetricSet {
	s := make(MetricSet, len(metrics))
	for _, m := range metrics {
		s[m] = struct{}{}
	}
	return s
}

// ParseMetrics builds a set from case-insensitive names. Duplicates are
// ignored and surrounding whitespace is trimmed.
func ParseMetrics(names ...string) (MetricSet, error) {
	s := make(MetricSet, len(names))
	for _, name := range names {
		m := Metric(strings.ToLower(strings.TrimSpace(name)))
		if m == "" {
			continue
		}
		if m.order() == len(allMetrics) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		s[m] = struct{}{}
	}
	return s, nil
}

// Has reports whether the metric was requested
func (s MetricSet) Has(m Metric) bool {
	_, ok := s[m]
	return ok
}
