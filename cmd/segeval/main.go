package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"segeval/internal/logging"
	"segeval/internal/models"
	"segeval/pkg/config"
	"segeval/pkg/dataset"
	"segeval/pkg/evaluation"
	"segeval/pkg/matfile"
)

const usage = `usage: segeval [-config file] <command> [flags] [args]

commands:
  inspect <file.mat>        show variables, UID and volume statistics
  evaluate [flags] <file>   compare the segmentation mask against the ground truth
  scan [flags]              list scans whose ground-truth mask is empty
  init-config <path>        write the default configuration file
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("segeval: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("segeval", flag.ContinueOnError)
	configPath := global.String("config", "segeval.yaml", "Configuration file (defaults are used if it does not exist)")
	global.Usage = func() {
		fmt.Fprint(global.Output(), usage)
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	if cmd == "init-config" {
		return initConfig(rest, out)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	logging.Configure(cfg.Output.Verbose)

	switch cmd {
	case "inspect":
		return inspect(rest, out)
	case "evaluate":
		return evaluate(cfg, rest, out)
	case "scan":
		return scan(cfg, rest, out)
	}
	global.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func initConfig(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("init-config takes exactly one path")
	}
	if err := config.CreateDefaultConfigFile(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "Default configuration written to: %s\n", args[0])
	return nil
}

func inspect(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("inspect takes exactly one file")
	}
	f, err := matfile.ReadFile(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", f.Description)
	fmt.Fprintf(out, "Variables: %s\n", strings.Join(f.Names(), ", "))
	for name, err := range f.Skipped() {
		fmt.Fprintf(out, "Skipped %s: %v\n", name, err)
	}

	scan, err := dataset.LoadScan(args[0])
	if err != nil {
		return err
	}
	if scan.UID != "" {
		fmt.Fprintf(out, "UID: %s\n", scan.UID)
	}

	vol := scan.Volume
	fmt.Fprintf(out, "Volume: %s (%d voxels)\n", vol, vol.Len())
	if vol.Len() > 0 {
		mean, std := stat.MeanStdDev(vol.Data, nil)
		fmt.Fprintf(out, "Intensity: min %.3f, max %.3f, mean %.3f, std %.3f\n",
			floats.Min(vol.Data), floats.Max(vol.Data), mean, std)
	}

	rows, cols := scan.MaskGrid()
	fmt.Fprintf(out, "Masks: %dx%d\n", rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			idx := models.MaskIndex{Row: r, Col: c}
			m, err := scan.Mask(idx)
			if err != nil {
				fmt.Fprintf(out, "  (%s) %v\n", idx, err)
				continue
			}
			fmt.Fprintf(out, "  (%s) %s, %d foreground voxels\n", idx, m, m.Foreground())
		}
	}
	return nil
}

func evaluate(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	metrics := fs.String("metrics", strings.Join(cfg.Evaluation.Metrics, ","), "Comma-separated metrics (vd, vod, dice, usr, osr, fp, fp_normed, fn, fn_normed)")
	gtFlag := fs.String("gt", cfg.Masks.GroundTruth.String(), "Ground-truth mask index as row,col")
	segFlag := fs.String("seg", cfg.Masks.Segmentation.String(), "Segmentation mask index as row,col")
	diffOut := fs.String("diff-out", "", "Write the difference volume (1 false positive, -1 false negative) to this MAT-file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("evaluate takes exactly one file")
	}

	requested, err := evaluation.ParseMetrics(strings.Split(*metrics, ",")...)
	if err != nil {
		return err
	}
	gtIdx, err := models.ParseMaskIndex(*gtFlag)
	if err != nil {
		return err
	}
	segIdx, err := models.ParseMaskIndex(*segFlag)
	if err != nil {
		return err
	}

	scan, err := dataset.LoadMasks(fs.Arg(0))
	if err != nil {
		return err
	}
	gt, err := scan.Mask(gtIdx)
	if err != nil {
		return err
	}
	seg, err := scan.Mask(segIdx)
	if err != nil {
		return err
	}

	res, err := evaluation.Evaluate(seg, gt, requested)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Scan %s: segmentation (%s) vs ground truth (%s), %s\n", scan.Name, segIdx, gtIdx, gt)
	c := res.Counts
	fmt.Fprintf(out, "Voxels: segmentation %d, ground truth %d, intersection %d, union %d\n",
		c.Segmentation, c.GroundTruth, c.Intersection, c.Union)
	if res.Degenerate {
		fmt.Fprintln(out, "NOTE - either the segmentation or the ground truth is empty")
	}
	fmt.Fprintln(out, "Metrics (lower is better):")
	for _, m := range res.Metrics() {
		v, _ := res.Get(m)
		fmt.Fprintf(out, "  %-10s %.6f\n", m, v)
	}

	if *diffOut != "" {
		diff, err := evaluation.DifferenceVolume(seg, gt)
		if err != nil {
			return err
		}
		vars := []matfile.Value{dataset.FromVolume("difference", diff)}
		if scan.UID != "" {
			vars = append(vars, &matfile.Char{Name: dataset.UIDVar, Text: scan.UID})
		}
		if err := matfile.WriteFile(*diffOut, vars, matfile.WithCompression()); err != nil {
			return fmt.Errorf("failed to write difference volume: %w", err)
		}
		fmt.Fprintf(out, "Difference volume saved to: %s\n", *diffOut)
	}
	return nil
}

func scan(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	folder := fs.String("folder", "", "Folder of scan files (default: the configured scan folder for this machine)")
	gtFlag := fs.String("gt", cfg.Masks.GroundTruth.String(), "Ground-truth mask index as row,col")
	if err := fs.Parse(args); err != nil {
		return err
	}

	gtIdx, err := models.ParseMaskIndex(*gtFlag)
	if err != nil {
		return err
	}
	dir := *folder
	if dir == "" {
		if dir, err = cfg.ScanFolder(); err != nil {
			return err
		}
	}

	report, err := dataset.ScanForEmptyGroundTruth(dir, gtIdx)
	if err != nil {
		return err
	}

	for _, name := range report.Empty {
		fmt.Fprintf(out, "Empty gt in scan %s\n", name)
	}
	fmt.Fprintf(out, "No gt in %d of %d mris\n", report.Count, report.Total)
	if len(report.Failures) > 0 {
		fmt.Fprintf(out, "Failed to read %d files:\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Fprintf(out, "  %v\n", f)
		}
	}
	return nil
}
