// Package dataset loads fetal MRI scans stored one per MAT-file and checks
// the dataset for scans without ground truth.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"

	"segeval/internal/models"
	"segeval/pkg/matfile"
)

// Variable names used by the scan files
const (
	VolumeVar = "volume"
	MasksVar  = "masks"
	UIDVar    = "UID"
)

var (
	// ErrMissingVariable is returned when a scan file lacks a required variable
	ErrMissingVariable = errors.New("missing variable")

	// ErrMaskIndex is returned for a mask index outside the mask collection
	ErrMaskIndex = errors.New("mask index out of range")

	// ErrNotNumeric is returned when a volume or mask is not a numeric array
	ErrNotNumeric = errors.New("not a numeric array")
)

// Scan is one MRI scan with its mask collection
type Scan struct {
	// Name is the base name of the file the scan was read from
	Name string

	// UID is the scan identifier, empty if the file has none
	UID string

	// Volume is the MR intensity volume; nil when loaded with masks only
	Volume *models.Volume

	// masks is the cell grid as stored in the file
	masks *matfile.Cell
}

// LoadScan reads a scan file with its volume and masks
func LoadScan(path string) (*Scan, error) {
	return load(path, true)
}

// LoadMasks reads a scan file's masks and UID, skipping the volume
func LoadMasks(path string) (*Scan, error) {
	return load(path, false)
}

func load(path string, withVolume bool) (*Scan, error) {
	f, err := matfile.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s := &Scan{Name: filepath.Base(path)}

	if v, err := f.Var(UIDVar); err == nil {
		s.UID = describe(v)
	}

	if withVolume {
		v, err := f.Var(VolumeVar)
		if err != nil {
			return nil, fmt.Errorf("%s: %w %q: %v", s.Name, ErrMissingVariable, VolumeVar, err)
		}
		if s.Volume, err = ToVolume(v); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", s.Name, VolumeVar, err)
		}
	}

	v, err := f.Var(MasksVar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w %q: %v", s.Name, ErrMissingVariable, MasksVar, err)
	}
	switch m := v.(type) {
	case *matfile.Cell:
		s.masks = m
	default:
		// a single mask stored as a plain array
		s.masks = &matfile.Cell{Name: MasksVar, Size: []int{1, 1}, Elems: []matfile.Value{v}}
	}
	return s, nil
}

// MaskGrid returns the number of rows and columns of the mask collection
func (s *Scan) MaskGrid() (rows, cols int) {
	if s.masks == nil || len(s.masks.Size) < 2 {
		return 0, 0
	}
	rows = s.masks.Size[0]
	cols = 1
	for _, d := range s.masks.Size[1:] {
		cols *= d
	}
	return rows, cols
}

// Mask returns the mask at idx as a volume
func (s *Scan) Mask(idx models.MaskIndex) (*models.Volume, error) {
	rows, cols := s.MaskGrid()
	if idx.Row < 0 || idx.Col < 0 || idx.Row >= rows || idx.Col >= cols {
		return nil, fmt.Errorf("%s: %w: (%s) in %dx%d masks", s.Name, ErrMaskIndex, idx, rows, cols)
	}
	v, err := s.masks.At(idx.Row, idx.Col)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.Name, ErrMaskIndex, err)
	}
	vol, err := ToVolume(v)
	if err != nil {
		return nil, fmt.Errorf("%s: mask (%s): %w", s.Name, idx, err)
	}
	return vol, nil
}

// ToVolume converts a decoded numeric or logical array to a volume
func ToVolume(v matfile.Value) (*models.Volume, error) {
	arr, ok := v.(*matfile.Array)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotNumeric, v.Class())
	}
	return models.FromData(arr.Real, arr.Size...)
}

// FromVolume wraps a volume as a named double array for writing
func FromVolume(name string, v *models.Volume) *matfile.Array {
	dims := append([]int(nil), v.Shape...)
	for len(dims) < 2 {
		dims = append(dims, 1)
	}
	return &matfile.Array{Name: name, Size: dims, Type: matfile.ClassDouble, Real: v.Data}
}

// describe renders a UID that may be stored as text or as a number
func describe(v matfile.Value) string {
	switch x := v.(type) {
	case *matfile.Char:
		return x.Text
	case *matfile.Array:
		if len(x.Real) == 1 {
			return fmt.Sprint(x.Real[0])
		}
	}
	return ""
}
