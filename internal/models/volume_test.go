package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromData(t *testing.T) {
	v, err := FromData([]float64{0, 1, 2, 0, 0, 3}, 2, 3)
	require.NoError(t, err)
	require.Equal(t, 6, v.Len())
	require.Equal(t, 2, v.Dims())
	require.Equal(t, 3, v.Foreground())
	require.Equal(t, "2x3", v.String())

	_, err = FromData([]float64{1, 2, 3}, 2, 2)
	require.Error(t, err, "mismatched data length")
}

func TestBinarize(t *testing.T) {
	v, err := FromData([]float64{0, 0.5, 7, -1, math.NaN()}, 5)
	require.NoError(t, err)

	require.Equal(t, []float64{0, 1, 1, 0, 0}, v.Binarize())
	require.Equal(t, 7.0, v.Data[2], "Binarize must not modify the volume")
	require.Equal(t, 2, v.Foreground())
}

func TestSameShapeAndEmpty(t *testing.T) {
	a := NewVolume(2, 3, 4)
	b := NewVolume(2, 3, 4)
	c := NewVolume(3, 2, 4)
	d := NewVolume(2, 3)

	require.True(t, a.SameShape(b))
	require.False(t, a.SameShape(c))
	require.False(t, a.SameShape(d))

	require.True(t, a.IsEmpty())
	a.Data[5] = -2
	require.True(t, a.IsEmpty(), "negative values are background")
	a.Data[23] = 1
	require.False(t, a.IsEmpty())

	require.True(t, NewVolume(0).IsEmpty())
}

func TestParseMaskIndex(t *testing.T) {
	tests := []struct {
		in      string
		want    MaskIndex
		wantErr bool
	}{
		{"0,2", MaskIndex{0, 2}, false},
		{" 1 , 9 ", MaskIndex{1, 9}, false},
		{"9", MaskIndex{0, 9}, false},
		{"a,2", MaskIndex{}, true},
		{"1,2,3", MaskIndex{}, true},
		{"-1,2", MaskIndex{}, true},
	}
	for _, tt := range tests {
		got, err := ParseMaskIndex(tt.in)
		if tt.wantErr {
			require.Error(t, err, "ParseMaskIndex(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseMaskIndex(%q)", tt.in)
		require.Equal(t, tt.want, got, "ParseMaskIndex(%q)", tt.in)
	}
}
