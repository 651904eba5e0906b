package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"segeval/internal/models"
	"segeval/pkg/matfile"
)

var (
	gtIndex  = models.MaskIndex{Row: 0, Col: 2}
	segIndex = models.MaskIndex{Row: 0, Col: 9}
)

// writeScan writes a scan file with a 4x4x2 volume and ten 4x4x2 masks. The
// ground-truth mask is empty when emptyGT is set.
func writeScan(t *testing.T, dir, name string, emptyGT bool) string {
	t.Helper()
	shape := []int{4, 4, 2}
	n := 4 * 4 * 2

	volume := make([]float64, n)
	for i := range volume {
		volume[i] = float64(i % 7)
	}

	masks := make([]matfile.Value, 10)
	for c := range masks {
		data := make([]float64, n)
		if !(emptyGT && c == gtIndex.Col) {
			data[c] = 1
			data[c+1] = 1
		}
		masks[c] = &matfile.Array{Size: shape, Type: matfile.ClassUint8, Logical: true, Real: data}
	}

	path := filepath.Join(dir, name)
	err := matfile.WriteFile(path, []matfile.Value{
		&matfile.Char{Name: UIDVar, Text: "uid-" + name},
		&matfile.Array{Name: VolumeVar, Size: shape, Type: matfile.ClassInt16, Real: volume},
		&matfile.Cell{Name: MasksVar, Size: []int{1, 10}, Elems: masks},
	}, matfile.WithCompression())
	require.NoError(t, err)
	return path
}

func TestLoadScan(t *testing.T) {
	path := writeScan(t, t.TempDir(), "78.mat", false)

	scan, err := LoadScan(path)
	require.NoError(t, err)
	require.Equal(t, "78.mat", scan.Name)
	require.Equal(t, "uid-78.mat", scan.UID)
	require.Equal(t, []int{4, 4, 2}, scan.Volume.Shape)
	require.Equal(t, 6.0, scan.Volume.Data[6])

	rows, cols := scan.MaskGrid()
	require.Equal(t, 1, rows)
	require.Equal(t, 10, cols)

	gt, err := scan.Mask(gtIndex)
	require.NoError(t, err)
	require.Equal(t, 2, gt.Foreground())
	require.True(t, gt.SameShape(scan.Volume))

	seg, err := scan.Mask(segIndex)
	require.NoError(t, err)
	require.Equal(t, 1.0, seg.Data[9])

	_, err = scan.Mask(models.MaskIndex{Row: 1, Col: 0})
	require.ErrorIs(t, err, ErrMaskIndex)
	_, err = scan.Mask(models.MaskIndex{Row: 0, Col: 10})
	require.ErrorIs(t, err, ErrMaskIndex)
}

func TestLoadMasksSkipsVolume(t *testing.T) {
	path := writeScan(t, t.TempDir(), "3.mat", true)

	scan, err := LoadMasks(path)
	require.NoError(t, err)
	require.Nil(t, scan.Volume)

	gt, err := scan.Mask(gtIndex)
	require.NoError(t, err)
	require.True(t, gt.IsEmpty())
}

func TestLoadScanMissingVariables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.mat")
	require.NoError(t, matfile.WriteFile(path, []matfile.Value{
		&matfile.Array{Name: VolumeVar, Size: []int{2, 2, 1}, Real: []float64{1, 2, 3, 4}},
	}))

	_, err := LoadScan(path)
	require.ErrorIs(t, err, ErrMissingVariable)

	path = filepath.Join(dir, "2.mat")
	require.NoError(t, matfile.WriteFile(path, []matfile.Value{
		&matfile.Char{Name: VolumeVar, Text: "oops"},
		&matfile.Cell{Name: MasksVar, Size: []int{1, 0}},
	}))
	_, err = LoadScan(path)
	require.ErrorIs(t, err, ErrNotNumeric)
}

func TestListScansNumericOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"78.mat", "7.mat", "100.MAT", "notes.txt", "12.mat"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "5.mat"), 0755))

	files, err := ListScans(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"7.mat", "12.mat", "78.mat", "100.MAT"}, files)

	_, err = ListScans(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestScanForEmptyGroundTruth(t *testing.T) {
	dir := t.TempDir()
	writeScan(t, dir, "1.mat", false)
	writeScan(t, dir, "2.mat", true)
	writeScan(t, dir, "10.mat", false)
	writeScan(t, dir, "11.mat", true)
	writeScan(t, dir, "12.mat", true)

	var logs bytes.Buffer
	s := NewScanner(slog.New(slog.NewTextHandler(&logs, nil)))

	report, err := s.EmptyGroundTruth(dir, gtIndex)
	require.NoError(t, err)
	require.Equal(t, 5, report.Total)
	require.Equal(t, 3, report.Count)
	require.Equal(t, []string{"2.mat", "11.mat", "12.mat"}, report.Empty)
	require.Empty(t, report.Failures)
	require.Contains(t, logs.String(), "scan=11.mat")
}

func TestScanCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	writeScan(t, dir, "1.mat", true)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.mat"), []byte("not a mat file"), 0644))
	writeScan(t, dir, "3.mat", false)

	report, err := ScanForEmptyGroundTruth(dir, gtIndex)
	require.NoError(t, err)
	require.Equal(t, 3, report.Total)
	require.Equal(t, 1, report.Count)
	require.Equal(t, []string{"1.mat"}, report.Empty)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "2.mat", report.Failures[0].File)
	require.ErrorIs(t, report.Failures[0], matfile.ErrNotMAT)

	// an index outside the collection fails every file but not the scan
	report, err = ScanForEmptyGroundTruth(dir, models.MaskIndex{Row: 0, Col: 42})
	require.NoError(t, err)
	require.Equal(t, 0, report.Count)
	require.Len(t, report.Failures, 3)
	require.True(t, errors.Is(report.Failures[0], ErrMaskIndex))

	_, err = ScanForEmptyGroundTruth(filepath.Join(dir, "missing"), gtIndex)
	require.Error(t, err)
}

func TestFromVolume(t *testing.T) {
	v, err := models.FromData([]float64{1, -1, 0}, 3)
	require.NoError(t, err)

	arr := FromVolume("diff", v)
	require.Equal(t, []int{3, 1}, arr.Size)
	require.Equal(t, "diff", arr.VarName())

	back, err := ToVolume(arr)
	require.NoError(t, err)
	require.Equal(t, v.Data, back.Data)
}

func TestScanRecordsCorruptCellDims(t *testing.T) {
	dir := t.TempDir()
	writeScan(t, dir, "1.mat", true)

	// an uncompressed 1x1 masks cell; its dims sit right after the array flags
	path := filepath.Join(dir, "2.mat")
	require.NoError(t, matfile.WriteFile(path, []matfile.Value{
		&matfile.Cell{Name: MasksVar, Size: []int{1, 1}, Elems: []matfile.Value{
			&matfile.Array{Size: []int{1, 1}, Real: []float64{1}},
		}},
	}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	const dimsOffset = 128 + 8 + 16 + 8
	binary.LittleEndian.PutUint32(raw[dimsOffset:], 0x7fffffff)
	binary.LittleEndian.PutUint32(raw[dimsOffset+4:], 0x7fffffff)
	require.NoError(t, os.WriteFile(path, raw, 0644))

	report, err := ScanForEmptyGroundTruth(dir, gtIndex)
	require.NoError(t, err)
	require.Equal(t, 2, report.Total)
	require.Equal(t, []string{"1.mat"}, report.Empty)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "2.mat", report.Failures[0].File)
	require.ErrorIs(t, report.Failures[0], matfile.ErrCorrupt)
}
