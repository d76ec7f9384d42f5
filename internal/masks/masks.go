// Package masks derives the binary white-matter and ventricle regression
// masks from a FreeSurfer/Desikan-labeled segmentation volume.
//
// Each mask is built by thresholding the segmentation at the left- and
// right-hemisphere label ranges, unioning the two into a binary volume, and
// eroding the result with a small gaussian kernel so partial-volume edge
// voxels do not leak signal from adjacent tissue.
package masks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/stealthybif/dcan-bold-processing/internal/fsl"
	"github.com/stealthybif/dcan-bold-processing/internal/tools"
)

// erodeKernelMM is the gaussian kernel size, in millimetres, used to erode
// the binary masks.
const erodeKernelMM = 2

// LabelBounds holds the lower/upper segmentation label bounds, per hemisphere,
// for the white-matter and ventricle structures.
type LabelBounds struct {
	WMLowerRight   int
	WMUpperRight   int
	WMLowerLeft    int
	WMUpperLeft    int
	VentLowerRight int
	VentUpperRight int
	VentLowerLeft  int
	VentUpperLeft  int
}

// DefaultLabelBounds returns the FreeSurfer lookup-table label bounds for
// white matter (cortical parcellation ranges) and the lateral ventricles.
func DefaultLabelBounds() LabelBounds {
	return LabelBounds{
		WMLowerRight:   2950,
		WMUpperRight:   3050,
		WMLowerLeft:    3950,
		WMUpperLeft:    4050,
		VentLowerRight: 43,
		VentUpperRight: 43,
		VentLowerLeft:  4,
		VentUpperLeft:  4,
	}
}

// TempFiles returns the six intermediate volume paths Build writes under dir.
// They exist only while Build is running; Build removes them on every exit
// path, success or failure.
func TempFiles(dir string) []string {
	names := []string{
		"tmp_right_wm.nii.gz",
		"tmp_left_wm.nii.gz",
		"tmp_wm.nii.gz",
		"tmp_right_vent.nii.gz",
		"tmp_left_vent.nii.gz",
		"tmp_vent.nii.gz",
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths
}

// Build derives the white-matter and ventricle masks from segmentation,
// writing them to wmOut and ventOut. Intermediate volumes are written to
// wmOut's directory and removed before Build returns, regardless of outcome.
//
// Build must run once per subject (setup mode) before any task run for that
// subject. It fails before invoking any tool if segmentation is unreadable,
// and propagates the first external-tool failure.
func Build(r tools.Runner, segmentation, wmOut, ventOut string, bounds LabelBounds) error {
	if _, err := os.Stat(segmentation); err != nil {
		return fmt.Errorf("segmentation volume: %w", err)
	}

	dir := filepath.Dir(wmOut)
	tmp := TempFiles(dir)
	tmpRightWM, tmpLeftWM, tmpWM := tmp[0], tmp[1], tmp[2]
	tmpRightVent, tmpLeftVent, tmpVent := tmp[3], tmp[4], tmp[5]

	defer func() {
		for _, p := range tmp {
			os.Remove(p)
		}
	}()

	// White matter: threshold each hemisphere, union, erode.
	if err := fsl.Threshold(r, segmentation, bounds.WMLowerRight, bounds.WMUpperRight, tmpRightWM); err != nil {
		return fmt.Errorf("threshold right white matter: %w", err)
	}
	if err := fsl.Threshold(r, segmentation, bounds.WMLowerLeft, bounds.WMUpperLeft, tmpLeftWM); err != nil {
		return fmt.Errorf("threshold left white matter: %w", err)
	}
	if err := fsl.UnionBinary(r, tmpRightWM, tmpLeftWM, tmpWM); err != nil {
		return fmt.Errorf("combine white matter hemispheres: %w", err)
	}
	if err := fsl.ErodeGauss(r, tmpWM, erodeKernelMM, wmOut); err != nil {
		return fmt.Errorf("erode white matter mask: %w", err)
	}

	// Ventricles: same sequence.
	if err := fsl.Threshold(r, segmentation, bounds.VentLowerRight, bounds.VentUpperRight, tmpRightVent); err != nil {
		return fmt.Errorf("threshold right ventricle: %w", err)
	}
	if err := fsl.Threshold(r, segmentation, bounds.VentLowerLeft, bounds.VentUpperLeft, tmpLeftVent); err != nil {
		return fmt.Errorf("threshold left ventricle: %w", err)
	}
	if err := fsl.UnionBinary(r, tmpRightVent, tmpLeftVent, tmpVent); err != nil {
		return fmt.Errorf("combine ventricle hemispheres: %w", err)
	}
	if err := fsl.ErodeGauss(r, tmpVent, erodeKernelMM, ventOut); err != nil {
		return fmt.Errorf("erode ventricle mask: %w", err)
	}

	return nil
}
