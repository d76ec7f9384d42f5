// Package pipeline sequences the three modes of the BOLD post-processing
// run: setup (mask preparation), task (per-run regression), and teardown
// (resting-state concatenation and parcellation).
//
// Each mode is a single linear pass over the resolved input/output specs,
// entered exactly once per process invocation. There is no retry and no
// partial-success reporting; every failure is fatal to the process.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stealthybif/dcan-bold-processing/internal/engine"
	"github.com/stealthybif/dcan-bold-processing/internal/fsl"
	"github.com/stealthybif/dcan-bold-processing/internal/log"
	"github.com/stealthybif/dcan-bold-processing/internal/masks"
	"github.com/stealthybif/dcan-bold-processing/internal/motion"
	"github.com/stealthybif/dcan-bold-processing/internal/spec"
	"github.com/stealthybif/dcan-bold-processing/internal/tools"
)

// ErrNotImplemented marks a pipeline stage whose logic is a documented gap.
var ErrNotImplemented = errors.New("not implemented")

// UsageError reports an invocation that violates the pipeline's mode
// preconditions, such as running a task before setup.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return e.Reason
}

// Options aggregates every parameter of one pipeline invocation: CLI
// parameters, environment-resolved tool locations, and test hooks.
type Options struct {
	Subject      string
	Task         string
	OutputFolder string

	FDThreshold float64 // framewise displacement threshold for regression
	FilterOrder int     // BOLD bandpass filter order
	LowerBPF    float64 // lower bandpass cutoff (Hz)
	UpperBPF    float64 // upper bandpass cutoff (Hz)

	// Motion filter parameters; MotionFilterType empty means the stage is
	// absent and the raw regressors flow through unchanged.
	MotionFilterType   string
	MotionFilterOption int
	MotionFilterOrder  int
	BandStopMin        float64
	BandStopMax        float64

	SkipSeconds      int
	ContiguousFrames int
	BrainRadius      int

	// Tool locations resolved by the caller.
	InstallRoot       string // directory the pipeline binaries are installed under
	EngineRuntimeRoot string // $MCRROOT, for the signal-processing engine
	FilterRuntimeRoot string // $MCROOT, for the regressor filtering executable
	Caret7Dir         string // $CARET7DIR, for wb_command

	// Overrides merged into the resolved specs, for test injection.
	Overrides spec.Overrides

	// Bounds for mask construction; zero value means defaults.
	Bounds masks.LabelBounds

	// Runner executes external tools; nil means the real exec runner.
	Runner tools.Runner
}

func (o *Options) runner() tools.Runner {
	if o.Runner == nil {
		return tools.ExecRunner{}
	}
	return o.Runner
}

func (o *Options) bounds() masks.LabelBounds {
	if o.Bounds == (masks.LabelBounds{}) {
		return masks.DefaultLabelBounds()
	}
	return o.Bounds
}

func (o *Options) context() spec.Context {
	return spec.Context{
		Subject:      o.Subject,
		Task:         o.Task,
		OutputFolder: o.OutputFolder,
	}
}

// motionStage returns the optional motion-filter stage, present only when a
// filter type was specified.
func (o *Options) motionStage() (motion.Stage, bool) {
	if o.MotionFilterType == "" {
		return motion.Stage{}, false
	}
	return motion.Stage{
		InstallRoot:  o.InstallRoot,
		RuntimeRoot:  o.FilterRuntimeRoot,
		FilterType:   o.MotionFilterType,
		FilterOption: o.MotionFilterOption,
		FilterOrder:  o.MotionFilterOrder,
		BandStopMin:  o.BandStopMin,
		BandStopMax:  o.BandStopMax,
	}, true
}

// Setup prepares the per-subject regression masks. It must run once per
// subject before any task-mode invocation for that subject.
//
// Stale outputs from prior runs of this pipeline version are removed first,
// except paths namespaced by a task name: those belong to task mode and are
// that mode's to clear.
func Setup(opts Options) error {
	in, out := spec.Resolve(opts.context(), opts.Overrides)

	log.Info(fmt.Sprintf("removing old %s outputs", spec.VersionName))
	if err := removeStaleOutputs(out, opts.Task, false); err != nil {
		return err
	}

	if err := os.MkdirAll(out[spec.OutResultDir], 0o755); err != nil {
		return fmt.Errorf("create result directory: %w", err)
	}

	if err := masks.Build(opts.runner(),
		in[spec.InSegmentation],
		out[spec.OutWMMask],
		out[spec.OutVentMask],
		opts.bounds()); err != nil {
		return fmt.Errorf("build regression masks: %w", err)
	}

	log.Success("regression masks ready")
	return nil
}

// Task runs the per-run regression pipeline: stale-output cleanup, optional
// motion-regressor filtering, nuisance signal extraction, and the external
// signal-processing engine.
func Task(opts Options) error {
	in, out := spec.Resolve(opts.context(), opts.Overrides)
	r := opts.runner()

	// Setup must have produced the ventricle mask; fail before invoking any
	// external tool.
	if _, err := os.Stat(out[spec.OutVentMask]); err != nil {
		return &UsageError{Reason: fmt.Sprintf(
			"ventricle mask %s not found: run with --setup prior to running individual tasks",
			out[spec.OutVentMask])}
	}

	log.Info(fmt.Sprintf("removing old %s outputs for %s", spec.VersionName, opts.Task))
	if err := removeStaleOutputs(out, opts.Task, true); err != nil {
		return err
	}
	if err := os.MkdirAll(out[spec.OutResultDir], 0o755); err != nil {
		return fmt.Errorf("create result directory: %w", err)
	}

	repetitionTime, err := fsl.RepetitionTime(r, in[spec.InFMRIVolume])
	if err != nil {
		return err
	}

	// Optional motion filter: when present, the filtered path supersedes the
	// raw regressors for every subsequent step.
	if stage, ok := opts.motionStage(); ok {
		log.Info(fmt.Sprintf("filtering movement regressors (%s)", stage.FilterType))
		filtered, err := stage.Apply(r, in[spec.InMovementRegressors],
			repetitionTime, out[spec.OutResultDir])
		if err != nil {
			return err
		}
		in = in.WithMovementRegressors(filtered)
	}

	// Nuisance signals: mean time series within each regression mask.
	if err := fsl.MeanROISignal(r, in[spec.InFMRIVolume],
		out[spec.OutWMMask], out[spec.OutWMMeanSignal]); err != nil {
		return err
	}
	if err := fsl.MeanROISignal(r, in[spec.InFMRIVolume],
		out[spec.OutVentMask], out[spec.OutVentMeanSignal]); err != nil {
		return err
	}

	cfg := engine.Config{
		PathWbC:        engine.WorkbenchPath(opts.Caret7Dir),
		BPOrder:        opts.FilterOrder,
		LPHz:           opts.LowerBPF,
		HPHz:           opts.UpperBPF,
		TR:             repetitionTime,
		FDThreshold:    opts.FDThreshold,
		PathCII:        in[spec.InDtseries],
		PathExSum:      out[spec.OutSummaryFolder],
		CIFTIName:      out[spec.OutDtseries],
		FMRIName:       opts.Task,
		FileWM:         out[spec.OutWMMeanSignal],
		FileVent:       out[spec.OutVentMeanSignal],
		FileMovReg:     in[spec.InMovementRegressors],
		MotionFilename: filepath.Base(out[spec.OutMotionNumbers]),
		SkipSeconds:    opts.SkipSeconds,
		ResultDir:      out[spec.OutResultDir],
	}
	if err := engine.WriteConfig(out[spec.OutConfig], cfg); err != nil {
		return err
	}

	log.Info(fmt.Sprintf("running %s engine on %s", spec.VersionName, opts.Task))
	if err := engine.Run(r, opts.InstallRoot, opts.EngineRuntimeRoot, out[spec.OutConfig]); err != nil {
		return err
	}

	log.Success(fmt.Sprintf("task %s processed", opts.Task))
	return nil
}

// Teardown assembles the concatenation/parcellation configuration and
// persists it under the result directory. The concatenation stage itself is
// a documented gap: Teardown always returns ErrNotImplemented after the
// config is written, so an incomplete run is never silently accepted.
func Teardown(opts Options) error {
	in, out := spec.Resolve(opts.context(), opts.Overrides)

	repetitionTime, err := fsl.RepetitionTime(opts.runner(), in[spec.InFMRIVolume])
	if err != nil {
		return err
	}

	cfg := engine.TeardownConfig{
		PathWbC:                      engine.WorkbenchPath(opts.Caret7Dir),
		EpiTR:                        repetitionTime,
		SummaryDir:                   out[spec.OutSummaryFolder],
		BrainRadiusMM:                opts.BrainRadius,
		ExpectedContiguousFrameCount: opts.ContiguousFrames,
		ResultDir:                    out[spec.OutResultDir],
		PathMotionNumbers:            out[spec.OutMotionNumbers],
		PathCiftis:                   out[spec.OutCiftis],
		PathTimecourses:              out[spec.OutTimecourses],
		SkipSeconds:                  opts.SkipSeconds,
	}
	configPath := filepath.Join(out[spec.OutResultDir], engine.TeardownConfigName)
	if err := engine.WriteConfig(configPath, cfg); err != nil {
		return err
	}

	return fmt.Errorf("concatenate resting-state runs and parcellate: %w", ErrNotImplemented)
}

// removeStaleOutputs deletes existing output files left by prior runs.
// When taskScoped is false (setup mode) only paths NOT containing the task
// name are removed; when true (task mode) only paths containing it are.
// Directories are left alone: the result, summary and analysis directories
// are namespaces, not stale artifacts.
func removeStaleOutputs(out spec.OutputSpec, task string, taskScoped bool) error {
	for _, path := range out {
		if strings.Contains(path, task) != taskScoped {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove stale output %s: %w", path, err)
		}
	}
	return nil
}

// RequiredBinaries lists the PATH-resolved tools a mode depends on, for the
// pre-flight dependency check.
func RequiredBinaries(setup, teardown bool) []string {
	switch {
	case setup:
		return []string{"fslmaths"}
	case teardown:
		return []string{"fslval"}
	default:
		return []string{"fslval", "fslmeants"}
	}
}
