// Package fsl wraps the FSL command-line tools the pipeline delegates to:
// fslmaths for thresholding, combination and erosion of label volumes,
// fslval for header metadata, and fslmeants for mean ROI time series.
//
// Only the invocation contract lives here; the numerical work is entirely
// the tools' own.
package fsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stealthybif/dcan-bold-processing/internal/tools"
)

// Threshold writes a volume containing only the voxels of in whose values lie
// in [lower, upper]:
//
//	fslmaths <in> -thr <lower> -uthr <upper> <out>
func Threshold(r tools.Runner, in string, lower, upper int, out string) error {
	return r.Run("fslmaths", in,
		"-thr", strconv.Itoa(lower),
		"-uthr", strconv.Itoa(upper),
		out)
}

// UnionBinary writes the binarized voxel-wise union of a and b:
//
//	fslmaths <a> -add <b> -bin <out>
func UnionBinary(r tools.Runner, a, b, out string) error {
	return r.Run("fslmaths", a, "-add", b, "-bin", out)
}

// ErodeGauss erodes a binary mask with a gaussian kernel of the given size in
// millimetres, pulling the mask inward away from partial-volume edge voxels:
//
//	fslmaths <in> -kernel gauss <kernel> -ero <out>
func ErodeGauss(r tools.Runner, in string, kernel int, out string) error {
	return r.Run("fslmaths", in,
		"-kernel", "gauss", strconv.Itoa(kernel),
		"-ero", out)
}

// RepetitionTime reads the temporal sampling interval (pixdim4, in seconds)
// from the header of a 4-D volume:
//
//	fslval <volume> pixdim4
//
// The value is recomputed on every call; callers thread it through a run.
func RepetitionTime(r tools.Runner, volume string) (float64, error) {
	out, err := r.Output("fslval", volume, "pixdim4")
	if err != nil {
		return 0, fmt.Errorf("read repetition time of %s: %w", volume, err)
	}
	tr, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse pixdim4 of %s (%q): %w", volume, strings.TrimSpace(out), err)
	}
	return tr, nil
}

// MeanROISignal writes, for each time frame of volume, the mean voxel
// intensity within mask as one line of the output text file:
//
//	fslmeants -i <volume> -o <out> -m <mask>
func MeanROISignal(r tools.Runner, volume, mask, out string) error {
	if err := r.Run("fslmeants", "-i", volume, "-o", out, "-m", mask); err != nil {
		return fmt.Errorf("extract mean signal within %s: %w", mask, err)
	}
	return nil
}
