// Package motion implements the optional motion-regressor filtering stage:
// a band-stop (notch) or low-pass filter applied to the raw movement
// regressor columns to remove respiratory artifact before signal regression.
//
// The stage is modeled as a present/absent variant rather than a nullable
// flag: a run either carries a Stage or it does not, and when absent the raw
// regressor path flows through the pipeline unchanged.
package motion

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/stealthybif/dcan-bold-processing/internal/spec"
	"github.com/stealthybif/dcan-bold-processing/internal/tools"
)

// executableName is the bundled filtering executable, resolved under the
// install root's bin directory.
const executableName = "run_filtered_movement_regressors.sh"

// Filter type values accepted by the external executable.
const (
	FilterNotch   = "notch"
	FilterLowPass = "lp"
)

// Stage holds the parameters of one motion-filter invocation.
type Stage struct {
	InstallRoot  string  // directory the pipeline is installed under
	RuntimeRoot  string  // MATLAB runtime root handed to the executable
	FilterType   string  // FilterNotch or FilterLowPass
	FilterOption int     // direction(s) in which to filter
	FilterOrder  int     // band-stop filter order
	BandStopMin  float64 // lower band-stop frequency (bpm)
	BandStopMax  float64 // upper band-stop frequency (bpm)
}

// FilteredPath computes the output path for a filtered regressor file. The
// name encodes the pipeline version and both band-stop bounds so reruns with
// different parameters never collide:
//
//	<outputDir>/<version>_bs<min>_<max>_filtered_<basename>
func FilteredPath(outputDir string, bandStopMin, bandStopMax float64, basename string) string {
	name := fmt.Sprintf("%s_bs%s_%s_filtered_%s",
		spec.VersionName,
		formatFloat(bandStopMin),
		formatFloat(bandStopMax),
		basename)
	return filepath.Join(outputDir, name)
}

// Apply filters the regressor table at regressors, writing the result under
// outputDir, and returns the filtered file's path. The external executable
// takes a fixed positional protocol: runtime root, input path, repetition
// time, filter option, filter order, band-stop min, filter type, band-stop
// min again, band-stop max, output path.
//
// A non-zero exit from the executable is fatal.
func (s Stage) Apply(r tools.Runner, regressors string, repetitionTime float64, outputDir string) (string, error) {
	out := FilteredPath(outputDir, s.BandStopMin, s.BandStopMax, filepath.Base(regressors))

	executable := filepath.Join(s.InstallRoot, "bin", executableName)
	err := r.Run(executable,
		s.RuntimeRoot,
		regressors,
		formatFloat(repetitionTime),
		strconv.Itoa(s.FilterOption),
		strconv.Itoa(s.FilterOrder),
		formatFloat(s.BandStopMin),
		s.FilterType,
		formatFloat(s.BandStopMin),
		formatFloat(s.BandStopMax),
		out)
	if err != nil {
		return "", fmt.Errorf("filter movement regressors: %w", err)
	}

	return out, nil
}

// formatFloat renders a float argument with the shortest exact representation.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
