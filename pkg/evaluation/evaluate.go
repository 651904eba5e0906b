package evaluation

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"segeval/internal/models"
)

// Counts holds the voxel tallies every metric is derived from
type Counts struct {
	// Segmentation is the number of foreground voxels in the segmentation
	Segmentation int

	// GroundTruth is the number of foreground voxels in the ground truth
	GroundTruth int

	// Intersection counts voxels that are foreground in both inputs
	Intersection int

	// Union counts voxels that are foreground in either input
	Union int

	// FalsePositive counts voxels in the segmentation but not the ground truth
	FalsePositive int

	// FalseNegative counts voxels in the ground truth but not the segmentation
	FalseNegative int
}

// Result is the outcome of one evaluation
type Result struct {
	// Values maps each requested and computable metric to its value
	Values map[Metric]float64

	// Counts are the underlying voxel tallies
	Counts Counts

	// Degenerate is set when the segmentation or the ground truth is empty,
	// in which case no ratio metric is present in Values
	Degenerate bool
}

// Get returns the value of a metric and whether it was computed
func (r *Result) Get(m Metric) (float64, bool) {
	v, ok := r.Values[m]
	return v, ok
}

// Metrics returns the computed metrics in report order
func (r *Result) Metrics() []Metric {
	out := make([]Metric, 0, len(r.Values))
	for m := range r.Values {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order() < out[j].order() })
	return out
}

// Evaluator computes overlap metrics. The zero value logs to slog.Default().
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator returns an evaluator logging diagnostics to logger; nil means
// slog.Default()
func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate is shorthand for a zero Evaluator
func Evaluate(seg, gt *models.Volume, requested MetricSet) (*Result, error) {
	var e Evaluator
	return e.Evaluate(seg, gt, requested)
}

// Evaluate compares seg against gt. The shapes must match exactly; otherwise
// a *ShapeMismatchError is returned before any voxel is read.
func (e *Evaluator) Evaluate(seg, gt *models.Volume, requested MetricSet) (*Result, error) {
	if !seg.SameShape(gt) {
		return nil, &ShapeMismatchError{Segmentation: seg.Shape, GroundTruth: gt.Shape}
	}

	counts := Tally(seg, gt)
	res := &Result{
		Values:     make(map[Metric]float64, len(requested)),
		Counts:     counts,
		Degenerate: counts.Segmentation == 0 || counts.GroundTruth == 0,
	}
	if res.Degenerate {
		e.log().Info("either the segmentation or the ground truth is empty, skipping ratio metrics",
			"segmentation", counts.Segmentation, "groundTruth", counts.GroundTruth)
	}

	segVol := float64(counts.Segmentation)
	gtVol := float64(counts.GroundTruth)
	inter := float64(counts.Intersection)

	if !res.Degenerate {
		if requested.Has(VD) {
			res.Values[VD] = math.Abs(segVol-gtVol) / gtVol
		}
		if requested.Has(VOD) {
			res.Values[VOD] = 1 - inter/float64(counts.Union)
		}
		if requested.Has(Dice) {
			res.Values[Dice] = 1 - 2*inter/(segVol+gtVol)
		}
		if requested.Has(USR) {
			res.Values[USR] = (segVol - inter) / segVol
		}
		if requested.Has(OSR) {
			res.Values[OSR] = (gtVol - inter) / gtVol
		}
	}

	// Asking for a raw count also reports its normalized form.
	if requested.Has(FP) {
		res.Values[FP] = float64(counts.FalsePositive)
	}
	if (requested.Has(FP) || requested.Has(FPNormed)) && counts.Segmentation > 0 {
		res.Values[FPNormed] = float64(counts.FalsePositive) / segVol
	}
	if requested.Has(FN) {
		res.Values[FN] = float64(counts.FalseNegative)
	}
	if (requested.Has(FN) || requested.Has(FNNormed)) && counts.GroundTruth > 0 {
		res.Values[FNNormed] = float64(counts.FalseNegative) / gtVol
	}

	return res, nil
}

func (e *Evaluator) log() *slog.Logger {
	if e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

// Tally binarizes both volumes and counts the voxel categories. The caller
// must ensure the shapes match.
func Tally(seg, gt *models.Volume) Counts {
	segBin := seg.Binarize()
	gtBin := gt.Binarize()

	addition := floats.AddTo(make([]float64, len(segBin)), segBin, gtBin)
	difference := Difference(segBin, gtBin)

	return Counts{
		Segmentation:  int(floats.Sum(segBin)),
		GroundTruth:   int(floats.Sum(gtBin)),
		Intersection:  floats.Count(func(x float64) bool { return x > 1 }, addition),
		Union:         floats.Count(func(x float64) bool { return x > 0 }, addition),
		FalsePositive: floats.Count(func(x float64) bool { return x == 1 }, difference),
		FalseNegative: floats.Count(func(x float64) bool { return x == -1 }, difference),
	}
}

// Difference returns segBin - gtBin elementwise: 1 marks a false-positive
// voxel, -1 a false-negative one. Both inputs must already be binary.
func Difference(segBin, gtBin []float64) []float64 {
	return floats.SubTo(make([]float64, len(segBin)), segBin, gtBin)
}

// DifferenceVolume returns the signed discrepancy volume of seg against gt
func DifferenceVolume(seg, gt *models.Volume) (*models.Volume, error) {
	if !seg.SameShape(gt) {
		return nil, &ShapeMismatchError{Segmentation: seg.Shape, GroundTruth: gt.Shape}
	}
	return models.FromData(Difference(seg.Binarize(), gt.Binarize()), seg.Shape...)
}
