package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stealthybif/dcan-bold-processing/internal/config"
	"github.com/stealthybif/dcan-bold-processing/internal/log"
	"github.com/stealthybif/dcan-bold-processing/internal/pipeline"
	"github.com/stealthybif/dcan-bold-processing/internal/spec"
	"github.com/stealthybif/dcan-bold-processing/internal/tools"
)

// runFlags holds CLI flag values that override dcanbold.yaml config settings.
// Only flags explicitly changed by the user are applied (checked via
// cmd.Flags().Changed).
var runFlags struct {
	subject      string
	task         string
	outputFolder string
	configPath   string

	fdThreshold float64
	filterOrder int
	lowerBPF    float64
	upperBPF    float64

	motionFilterType   string
	motionFilterOption int
	motionFilterOrder  int
	bandStopMin        float64
	bandStopMax        float64
	physio             string

	skipSeconds      int
	contiguousFrames int
	brainRadius      int

	setup    bool
	teardown bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pipeline mode (setup, task, or teardown)",
	Long: "Run one mode of the signal-processing pipeline. --setup and --teardown " +
		"select their respective modes; with neither flag the per-task regression " +
		"pipeline runs.",
	RunE: runPipeline,
}

func init() {
	f := runCmd.Flags()

	f.StringVar(&runFlags.subject, "subject", "", "subject/participant id")
	f.StringVar(&runFlags.task, "task", "", `name of fmri data as used in the dcan fmri pipeline; for bids data it is "task-NAME"`)
	f.StringVar(&runFlags.outputFolder, "output-folder", "", "output folder containing all files produced by the fmri pipeline")
	f.StringVar(&runFlags.configPath, "config", "dcanbold.yaml", "path to pipeline config file")

	f.Float64Var(&runFlags.fdThreshold, "fd-threshold", config.DefaultFDThreshold, "upper frame-wise displacement threshold for signal regression")
	f.IntVar(&runFlags.filterOrder, "filter-order", config.DefaultFilterOrder, "number of filter coefficients for the bold bandpass filter")
	f.Float64Var(&runFlags.lowerBPF, "lower-bpf", config.DefaultLowerBPF, "lower cut-off frequency (Hz) for the butterworth bandpass filter")
	f.Float64Var(&runFlags.upperBPF, "upper-bpf", config.DefaultUpperBPF, "upper cut-off frequency (Hz) for the butterworth bandpass filter")

	f.StringVar(&runFlags.motionFilterType, "motion-filter-type", "", "band-stop filter for removing respiratory artifact from motion regressors: notch or lp")
	f.IntVar(&runFlags.motionFilterOption, "motion-filter-option", config.DefaultMotionFilterOption, "direction(s) in which to filter respiratory artifact")
	f.IntVar(&runFlags.motionFilterOrder, "motion-filter-order", config.DefaultMotionFilterOrder, "number of filter coefficients for the band-stop filter")
	f.Float64Var(&runFlags.bandStopMin, "band-stop-min", 0, "lower frequency (bpm) for the band-stop motion filter")
	f.Float64Var(&runFlags.bandStopMax, "band-stop-max", 0, "upper frequency (bpm) for the band-stop motion filter")
	f.StringVar(&runFlags.physio, "physio", "", "physio .tsv for automatic motion filter parameters (not implemented)")

	f.IntVar(&runFlags.skipSeconds, "skip-seconds", config.DefaultSkipSeconds, "number of seconds to cut off the beginning of the fmri time series")
	f.IntVar(&runFlags.contiguousFrames, "contiguous_frames", config.DefaultContiguousFrames, "minimum contiguous frames for fd thresholding")
	f.IntVar(&runFlags.brainRadius, "brain-radius", 0, "radius of brain (mm) for computation of framewise displacement")

	f.BoolVar(&runFlags.setup, "setup", false, "prepare white matter and ventricle masks; must be run prior to individual task runs")
	f.BoolVar(&runFlags.teardown, "teardown", false, "after tasks have completed, concatenate resting-state data and parcellate")

	runCmd.MarkFlagRequired("subject")
	runCmd.MarkFlagRequired("task")
	runCmd.MarkFlagsMutuallyExclusive("setup", "teardown")
}

// runPipeline loads config, applies flag overrides, runs the pre-flight
// dependency check, and dispatches to exactly one of the three modes.
func runPipeline(cmd *cobra.Command, args []string) error {
	if runFlags.physio != "" {
		return fmt.Errorf("--physio: automatic motion filter parameter derivation is not implemented")
	}

	cfg, err := config.LoadConfig(runFlags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Apply CLI flag overrides — only when the user explicitly set the flag.
	if cmd.Flags().Changed("fd-threshold") {
		cfg.FDThreshold = runFlags.fdThreshold
	}
	if cmd.Flags().Changed("filter-order") {
		cfg.FilterOrder = runFlags.filterOrder
	}
	if cmd.Flags().Changed("lower-bpf") {
		cfg.LowerBPF = runFlags.lowerBPF
	}
	if cmd.Flags().Changed("upper-bpf") {
		cfg.UpperBPF = runFlags.upperBPF
	}
	if cmd.Flags().Changed("motion-filter-type") {
		cfg.MotionFilterType = runFlags.motionFilterType
	}
	if cmd.Flags().Changed("motion-filter-option") {
		cfg.MotionFilterOption = runFlags.motionFilterOption
	}
	if cmd.Flags().Changed("motion-filter-order") {
		cfg.MotionFilterOrder = runFlags.motionFilterOrder
	}
	if cmd.Flags().Changed("band-stop-min") {
		cfg.BandStopMin = runFlags.bandStopMin
	}
	if cmd.Flags().Changed("band-stop-max") {
		cfg.BandStopMax = runFlags.bandStopMax
	}
	if cmd.Flags().Changed("skip-seconds") {
		cfg.SkipSeconds = runFlags.skipSeconds
	}
	if cmd.Flags().Changed("contiguous_frames") {
		cfg.ContiguousFrames = runFlags.contiguousFrames
	}
	if cmd.Flags().Changed("brain-radius") {
		cfg.BrainRadius = runFlags.brainRadius
	}

	if err := tools.CheckDependencies(
		pipeline.RequiredBinaries(runFlags.setup, runFlags.teardown)...); err != nil {
		return fmt.Errorf("dependency check failed: %w", err)
	}

	installRoot, err := installLocation()
	if err != nil {
		return fmt.Errorf("resolve install location: %w", err)
	}

	opts := pipeline.Options{
		Subject:      runFlags.subject,
		Task:         runFlags.task,
		OutputFolder: runFlags.outputFolder,

		FDThreshold: cfg.FDThreshold,
		FilterOrder: cfg.FilterOrder,
		LowerBPF:    cfg.LowerBPF,
		UpperBPF:    cfg.UpperBPF,

		MotionFilterType:   cfg.MotionFilterType,
		MotionFilterOption: cfg.MotionFilterOption,
		MotionFilterOrder:  cfg.MotionFilterOrder,
		BandStopMin:        cfg.BandStopMin,
		BandStopMax:        cfg.BandStopMax,

		SkipSeconds:      cfg.SkipSeconds,
		ContiguousFrames: cfg.ContiguousFrames,
		BrainRadius:      cfg.BrainRadius,

		InstallRoot:       installRoot,
		EngineRuntimeRoot: os.Getenv("MCRROOT"),
		FilterRuntimeRoot: os.Getenv("MCROOT"),
		Caret7Dir:         os.Getenv("CARET7DIR"),

		Overrides: spec.Overrides{
			Inputs:  cfg.InputOverrides,
			Outputs: cfg.OutputOverrides,
		},
	}

	switch {
	case runFlags.setup:
		log.Section(fmt.Sprintf("SETUP — subject %s", opts.Subject))
		return pipeline.Setup(opts)
	case runFlags.teardown:
		log.Section(fmt.Sprintf("TEARDOWN — subject %s", opts.Subject))
		return pipeline.Teardown(opts)
	default:
		log.Section(fmt.Sprintf("TASK — subject %s, task %s", opts.Subject, opts.Task))
		return pipeline.Task(opts)
	}
}

// installLocation returns the directory the dcanbold binary is installed
// under; the bundled executables live in its bin/ subdirectory.
func installLocation() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}
