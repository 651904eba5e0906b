package models

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Volume represents an N-dimensional scalar array, usually a 3D MRI volume or
// one of its masks
type Volume struct {
	// Data holds the voxel values in the container's element order
	// (column-major for MAT files)
	Data []float64

	// Shape is the size of each axis; len(Data) == product of Shape
	Shape []int
}

// NewVolume allocates a zero-filled volume with the given shape
func NewVolume(shape ...int) *Volume {
	return &Volume{
		Data:  make([]float64, shapeLen(shape)),
		Shape: append([]int(nil), shape...),
	}
}

// FromData wraps existing data in a volume, checking that the length agrees
// with the shape
func FromData(data []float64, shape ...int) (*Volume, error) {
	if n := shapeLen(shape); n != len(data) {
		return nil, fmt.Errorf("data length %d does not match shape %s (%d voxels)",
			len(data), FormatShape(shape), n)
	}
	return &Volume{Data: data, Shape: append([]int(nil), shape...)}, nil
}

// Len returns the number of voxels
func (v *Volume) Len() int {
	return len(v.Data)
}

// Dims returns the number of axes
func (v *Volume) Dims() int {
	return len(v.Shape)
}

// SameShape reports whether both volumes have identical axes
func (v *Volume) SameShape(o *Volume) bool {
	if len(v.Shape) != len(o.Shape) {
		return false
	}
	for i := range v.Shape {
		if v.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// Binarize returns a new slice with 1 where the voxel is foreground (> 0) and
// 0 elsewhere
func (v *Volume) Binarize() []float64 {
	out := make([]float64, len(v.Data))
	inds, _ := floats.Find(nil, isForeground, v.Data, -1)
	for _, i := range inds {
		out[i] = 1
	}
	return out
}

// Foreground counts voxels with a value greater than zero
func (v *Volume) Foreground() int {
	return floats.Count(isForeground, v.Data)
}

// IsEmpty reports whether the volume has no foreground voxel
func (v *Volume) IsEmpty() bool {
	inds, _ := floats.Find(nil, isForeground, v.Data, 1)
	return len(inds) == 0
}

func isForeground(x float64) bool {
	return x > 0
}

// String renders the shape, e.g. "256x256x48"
func (v *Volume) String() string {
	return FormatShape(v.Shape)
}

// FormatShape renders a shape as "AxBxC"
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = fmt.Sprint(s)
	}
	return strings.Join(parts, "x")
}

func shapeLen(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
