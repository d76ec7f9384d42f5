// Package spec defines the standard input and output file locations used by
// every stage of the BOLD post-processing pipeline.
//
// Path resolution is a pure function of (subject, task, output folder): the
// same triple always yields the same path set. Downstream stages and repeated
// invocations rely on that stability, so Resolve performs no I/O and consults
// no ambient state.
package spec

import "path/filepath"

// Version is the release version of the signal-processing pipeline.
const Version = "4.0.0"

// VersionName is the versioned namespace under which all outputs are written.
// It reflects the release version only, never filter usage, so that multiple
// pipeline versions can coexist in one output folder without collision.
const VersionName = "DCANBOLDProc_v" + Version

// Logical input names.
const (
	InDtseries           = "dtseries"
	InFMRIVolume         = "fmri_volume"
	InMovementRegressors = "movement_regressors"
	InSegmentation       = "segmentation"
)

// Logical output names.
const (
	OutConfig         = "config"
	OutCiftis         = "output_ciftis"
	OutDtseries       = "output_dtseries"
	OutMotionNumbers  = "output_motion_numbers"
	OutTimecourses    = "output_timecourses"
	OutResultDir      = "result_dir"
	OutSummaryFolder  = "summary_folder"
	OutVentMask       = "vent_mask"
	OutVentMeanSignal = "vent_mean_signal"
	OutWMMask         = "wm_mask"
	OutWMMeanSignal   = "wm_mean_signal"
)

// Context identifies one pipeline run. It is immutable once constructed; all
// derived paths are pure functions of it.
type Context struct {
	Subject      string
	Task         string
	OutputFolder string
}

// InputSpec maps logical input names to absolute paths.
//
// Every entry is immutable for the duration of a run with one documented
// exception: the movement-regressors entry is superseded by the filtered
// regressor path after the motion filter stage succeeds. That replacement
// goes through WithMovementRegressors, which copies; the base value is never
// mutated in place.
type InputSpec map[string]string

// OutputSpec maps logical output names to absolute paths or directories.
// It is never mutated after construction; caller-supplied overrides extend
// it at construction time only.
type OutputSpec map[string]string

// Overrides carries caller-supplied path replacements merged into the
// resolved specs last, taking precedence over the computed defaults. Used to
// inject synthetic paths in tests.
type Overrides struct {
	Inputs  map[string]string
	Outputs map[string]string
}

// Resolve computes the full set of standard input and output paths for ctx.
// Overrides are merged last, key-wise, verbatim.
func Resolve(ctx Context, ov Overrides) (InputSpec, OutputSpec) {
	results := filepath.Join(ctx.OutputFolder, "MNINonLinear", "Results", ctx.Task)
	resultDir := filepath.Join(results, VersionName)
	mni := filepath.Join(ctx.OutputFolder, "MNINonLinear")

	in := InputSpec{
		InDtseries:           filepath.Join(results, ctx.Task+"_Atlas.dtseries.nii"),
		InFMRIVolume:         filepath.Join(results, ctx.Task+".nii.gz"),
		InMovementRegressors: filepath.Join(results, "Movement_Regressors.txt"),
		InSegmentation:       filepath.Join(mni, "ROIs", "wmparc.2.nii.gz"),
	}
	for k, v := range ov.Inputs {
		in[k] = v
	}

	out := OutputSpec{
		OutConfig:         filepath.Join(resultDir, VersionName+"_mat_config.json"),
		OutCiftis:         filepath.Join(ctx.OutputFolder, VersionName, "analyses_v2", "workbench"),
		OutDtseries:       ctx.Task + "_" + VersionName + "_Atlas.dtseries.nii",
		OutMotionNumbers:  filepath.Join(resultDir, "motion_numbers.txt"),
		OutTimecourses:    filepath.Join(ctx.OutputFolder, VersionName, "analyses_v2", "timecourses"),
		OutResultDir:      resultDir,
		OutSummaryFolder:  filepath.Join(mni, "summary_"+VersionName),
		OutVentMask:       filepath.Join(mni, "vent_2mm_"+ctx.Subject+"_mask_eroded.nii.gz"),
		OutVentMeanSignal: filepath.Join(resultDir, ctx.Task+"_vent_mean.txt"),
		OutWMMask:         filepath.Join(mni, "wm_2mm_"+ctx.Subject+"_mask_eroded.nii.gz"),
		OutWMMeanSignal:   filepath.Join(resultDir, ctx.Task+"_wm_mean.txt"),
	}
	for k, v := range ov.Outputs {
		out[k] = v
	}

	return in, out
}

// WithMovementRegressors returns a copy of in with the movement-regressors
// entry replaced by path. The receiver is left unchanged.
func (in InputSpec) WithMovementRegressors(path string) InputSpec {
	next := make(InputSpec, len(in))
	for k, v := range in {
		next[k] = v
	}
	next[InMovementRegressors] = path
	return next
}
