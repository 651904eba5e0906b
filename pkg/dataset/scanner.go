package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"segeval/internal/models"
)

// LoadFailure records a scan file that could not be read during a scan
type LoadFailure struct {
	File string
	Err  error
}

func (f LoadFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.File, f.Err)
}

func (f LoadFailure) Unwrap() error { return f.Err }

// EmptyReport is the outcome of ScanForEmptyGroundTruth
type EmptyReport struct {
	// Total is the number of scan files found
	Total int

	// Count is the number of scans whose ground-truth mask is empty
	Count int

	// Empty lists those scans by file name, in scan order
	Empty []string

	// Failures lists files that could not be checked
	Failures []LoadFailure
}

// Scanner walks a folder of scan files
type Scanner struct {
	logger *slog.Logger
}

// NewScanner returns a scanner logging to logger; nil means slog.Default()
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// ScanForEmptyGroundTruth is shorthand for NewScanner(nil).EmptyGroundTruth
func ScanForEmptyGroundTruth(folder string, gt models.MaskIndex) (*EmptyReport, error) {
	return NewScanner(nil).EmptyGroundTruth(folder, gt)
}

// EmptyGroundTruth loads every scan file in folder once, in order, and reports
// those whose mask at gt has no foreground voxel. A file that cannot be loaded
// or lacks the mask is recorded in Failures and the scan continues; only a
// folder that cannot be listed is an error.
func (s *Scanner) EmptyGroundTruth(folder string, gt models.MaskIndex) (*EmptyReport, error) {
	files, err := ListScans(folder)
	if err != nil {
		return nil, err
	}

	report := &EmptyReport{Total: len(files)}
	for _, name := range files {
		scan, err := LoadMasks(filepath.Join(folder, name))
		if err != nil {
			s.fail(report, name, err)
			continue
		}
		mask, err := scan.Mask(gt)
		if err != nil {
			s.fail(report, name, err)
			continue
		}
		if mask.IsEmpty() {
			report.Count++
			report.Empty = append(report.Empty, name)
			s.logger.Info("empty ground truth", "scan", name, "mask", gt.String())
		} else {
			s.logger.Debug("ground truth present", "scan", name, "voxels", mask.Foreground())
		}
	}
	return report, nil
}

func (s *Scanner) fail(report *EmptyReport, name string, err error) {
	s.logger.Warn("failed to load scan", "scan", name, "error", err)
	report.Failures = append(report.Failures, LoadFailure{File: name, Err: err})
}

// ListScans returns the .mat files in folder ordered by the number embedded
// in their names, so that 7.mat comes before 78.mat
func ListScans(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan folder: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.ToLower(filepath.Ext(e.Name())) == ".mat" {
			files = append(files, e.Name())
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})
	return files, nil
}

// extractNumber returns the digits of a file name as a number, 0 if none
func extractNumber(filename string) int {
	var digits strings.Builder
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return n
}
