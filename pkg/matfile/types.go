// Package matfile reads and writes MATLAB Level 5 MAT-files (versions 5 to
// 7). Version 7.3 files are HDF5 containers and are not supported.
package matfile

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotMAT is returned when the header is not a MAT-file header
	ErrNotMAT = errors.New("not a MAT-file")

	// ErrUnsupportedVersion is returned for v7.3 (HDF5) and unknown versions
	ErrUnsupportedVersion = errors.New("unsupported MAT-file version")

	// ErrUnsupportedClass is returned for sparse, object and function arrays
	ErrUnsupportedClass = errors.New("unsupported array class")

	// ErrCorrupt is returned when an element is truncated or malformed
	ErrCorrupt = errors.New("corrupt MAT-file")
)

// dataType is the on-disk element type (miINT8 ... miUTF32)
type dataType uint32

const (
	miINT8       dataType = 1
	miUINT8      dataType = 2
	miINT16      dataType = 3
	miUINT16     dataType = 4
	miINT32      dataType = 5
	miUINT32     dataType = 6
	miSINGLE     dataType = 7
	miDOUBLE     dataType = 9
	miINT64      dataType = 12
	miUINT64     dataType = 13
	miMATRIX     dataType = 14
	miCOMPRESSED dataType = 15
	miUTF8       dataType = 16
	miUTF16      dataType = 17
	miUTF32      dataType = 18
)

func (t dataType) size() int {
	switch t {
	case miINT8, miUINT8, miUTF8:
		return 1
	case miINT16, miUINT16, miUTF16:
		return 2
	case miINT32, miUINT32, miSINGLE, miUTF32:
		return 4
	case miDOUBLE, miINT64, miUINT64:
		return 8
	}
	return 0
}

// Class is the MATLAB array class (mxCELL_CLASS ... mxUINT64_CLASS)
type Class uint8

const (
	ClassCell     Class = 1
	ClassStruct   Class = 2
	ClassObject   Class = 3
	ClassChar     Class = 4
	ClassSparse   Class = 5
	ClassDouble   Class = 6
	ClassSingle   Class = 7
	ClassInt8     Class = 8
	ClassUint8    Class = 9
	ClassInt16    Class = 10
	ClassUint16   Class = 11
	ClassInt32    Class = 12
	ClassUint32   Class = 13
	ClassInt64    Class = 14
	ClassUint64   Class = 15
	ClassFunction Class = 16
)

var classNames = map[Class]string{
	ClassCell:     "cell",
	ClassStruct:   "struct",
	ClassObject:   "object",
	ClassChar:     "char",
	ClassSparse:   "sparse",
	ClassDouble:   "double",
	ClassSingle:   "single",
	ClassInt8:     "int8",
	ClassUint8:    "uint8",
	ClassInt16:    "int16",
	ClassUint16:   "uint16",
	ClassInt32:    "int32",
	ClassUint32:   "uint32",
	ClassInt64:    "int64",
	ClassUint64:   "uint64",
	ClassFunction: "function_handle",
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// IsNumeric reports whether the class stores numbers
func (c Class) IsNumeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

// storage returns the element type used to write values of this class
func (c Class) storage() dataType {
	switch c {
	case ClassSingle:
		return miSINGLE
	case ClassInt8:
		return miINT8
	case ClassUint8:
		return miUINT8
	case ClassInt16:
		return miINT16
	case ClassUint16:
		return miUINT16
	case ClassInt32:
		return miINT32
	case ClassUint32:
		return miUINT32
	case ClassInt64:
		return miINT64
	case ClassUint64:
		return miUINT64
	}
	return miDOUBLE
}

const (
	flagComplex = 0x0800
	flagGlobal  = 0x0400
	flagLogical = 0x0200
)

// Value is one decoded MATLAB array
type Value interface {
	// VarName is the variable name; empty for cell and struct elements
	VarName() string

	// Dims is the array size, at least two entries
	Dims() []int

	// Class is the MATLAB class
	Class() Class
}

// Array is a numeric or logical array. Values are converted to float64 in
// column-major order.
type Array struct {
	Name    string
	Size    []int
	Type    Class
	Logical bool
	Global  bool
	Real    []float64
	Imag    []float64 // nil unless the array is complex
}

func (a *Array) VarName() string { return a.Name }
func (a *Array) Dims() []int     { return a.Size }
func (a *Array) Class() Class    { return a.Type }

// Char is a character array flattened to a string in column-major order
type Char struct {
	Name string
	Size []int
	Text string
}

func (c *Char) VarName() string { return c.Name }
func (c *Char) Dims() []int     { return c.Size }
func (c *Char) Class() Class    { return ClassChar }

// Cell is a cell array; Elems are in column-major order
type Cell struct {
	Name  string
	Size  []int
	Elems []Value
}

func (c *Cell) VarName() string { return c.Name }
func (c *Cell) Dims() []int     { return c.Size }
func (c *Cell) Class() Class    { return ClassCell }

// At returns the element at (row, col) of a 2D cell array
func (c *Cell) At(row, col int) (Value, error) {
	if len(c.Size) < 2 {
		return nil, fmt.Errorf("cell %q has %d dims", c.Name, len(c.Size))
	}
	rows, cols := c.Size[0], numel(c.Size[1:])
	if row < 0 || col < 0 || row >= rows || col >= cols {
		return nil, fmt.Errorf("index (%d,%d) out of range for %dx%d cell", row, col, rows, cols)
	}
	return c.Elems[row+col*rows], nil
}

// Struct is a struct array. Elems holds one field map per element in
// column-major order; Fields keeps the declared field order.
type Struct struct {
	Name   string
	Size   []int
	Fields []string
	Elems  []map[string]Value
}

func (s *Struct) VarName() string { return s.Name }
func (s *Struct) Dims() []int     { return s.Size }
func (s *Struct) Class() Class    { return ClassStruct }

// Field returns the named field of the first element
func (s *Struct) Field(name string) (Value, bool) {
	if len(s.Elems) == 0 {
		return nil, false
	}
	v, ok := s.Elems[0][name]
	return v, ok
}

// checkedNumel is numel for untrusted dims; ok is false if the product
// overflows int
func checkedNumel(dims []int) (n int, ok bool) {
	n = 1
	for _, d := range dims {
		if d < 0 {
			return 0, false
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, false
		}
		n *= d
	}
	return n, true
}

func numel(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
