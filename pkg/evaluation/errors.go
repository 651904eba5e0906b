package evaluation

import (
	"errors"
	"fmt"

	"segeval/internal/models"
)

// ErrShapeMismatch is matched by every shape error from Evaluate
var ErrShapeMismatch = errors.New("segmentation and ground truth have different shapes")

// ShapeMismatchError reports the two offending shapes
type ShapeMismatchError struct {
	Segmentation []int
	GroundTruth  []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%v: segmentation %s, ground truth %s", ErrShapeMismatch,
		models.FormatShape(e.Segmentation), models.FormatShape(e.GroundTruth))
}

func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}
