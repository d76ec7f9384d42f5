// Package engine builds the configuration handed to the compiled
// signal-processing engine and invokes it.
//
// The engine consumes a single JSON file; the keys and path values in that
// file are the orchestrator's entire responsibility, and their exact spelling
// is load-bearing. The engine's numerical behavior and outputs (the cleaned
// dtseries and motion numbers) are not validated here.
package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stealthybif/dcan-bold-processing/internal/tools"
)

// executableName is the bundled engine launcher, resolved under the install
// root's bin directory.
const executableName = "run_FNL_preproc_Matlab.sh"

// TeardownConfigName is the file the teardown parcellation config is written
// to, under the run's result directory.
const TeardownConfigName = "analyses_v2_config.json"

// Config is the full parameter set for one task-mode engine run. Field order
// and JSON key spelling match the engine's contract.
type Config struct {
	PathWbC        string  `json:"path_wb_c"`              // workbench command location
	BPOrder        int     `json:"bp_order"`               // bandpass filter order
	LPHz           float64 `json:"lp_Hz"`                  // lower cutoff frequency (Hz)
	HPHz           float64 `json:"hp_Hz"`                  // upper cutoff frequency (Hz)
	TR             float64 `json:"TR"`                     // repetition time (seconds)
	FDThreshold    float64 `json:"fd_th"`                  // framewise displacement threshold
	PathCII        string  `json:"path_cii"`               // input dtseries
	PathExSum      string  `json:"path_ex_sum"`            // summary output directory
	CIFTIName      string  `json:"FNL_preproc_CIFTI_name"` // output dtseries filename
	FMRIName       string  `json:"fMRIName"`               // task name
	FileWM         string  `json:"file_wm"`                // white-matter mean signal
	FileVent       string  `json:"file_vent"`              // ventricle mean signal
	FileMovReg     string  `json:"file_mov_reg"`           // movement regressors (filtered if applicable)
	MotionFilename string  `json:"motion_filename"`        // motion numbers output filename
	SkipSeconds    int     `json:"skip_seconds"`
	ResultDir      string  `json:"result_dir"`
}

// TeardownConfig is the parameter set for the concatenation/parcellation
// stage run after all tasks complete.
type TeardownConfig struct {
	PathWbC                      string  `json:"path_wb_c"`
	EpiTR                        float64 `json:"epi_TR"`
	SummaryDir                   string  `json:"summary_Dir"`
	BrainRadiusMM                int     `json:"brain_radius_in_mm"`
	ExpectedContiguousFrameCount int     `json:"expected_contiguous_frame_count"`
	ResultDir                    string  `json:"result_dir"`
	PathMotionNumbers            string  `json:"path_motion_numbers"`
	PathCiftis                   string  `json:"path_ciftis"`
	PathTimecourses              string  `json:"path_timecourses"`
	SkipSeconds                  int     `json:"skip_seconds"`
}

// WorkbenchPath resolves the workbench command location from the CARET7DIR
// environment value.
func WorkbenchPath(caret7Dir string) string {
	return filepath.Join(caret7Dir, "wb_command")
}

// WriteConfig serializes cfg as JSON to path, creating parent directories as
// needed. The write is atomic: data goes to path+".tmp" first, then a rename
// replaces the target in a single call, so a crash mid-write never leaves a
// truncated config for the engine to consume.
func WriteConfig(path string, cfg any) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal engine config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup on rename failure
		return fmt.Errorf("rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// Run invokes the compiled engine with the runtime root and the serialized
// config path as its only two arguments, blocking until it exits. A non-zero
// exit is fatal: no downstream step can produce meaningful output from a
// failed regression.
func Run(r tools.Runner, installRoot, runtimeRoot, configPath string) error {
	executable := filepath.Join(installRoot, "bin", executableName)
	if err := r.Run(executable, runtimeRoot, configPath); err != nil {
		return fmt.Errorf("signal-processing engine: %w", err)
	}
	return nil
}
