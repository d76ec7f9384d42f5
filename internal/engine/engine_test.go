package engine_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stealthybif/dcan-bold-processing/internal/engine"
)

type fakeRunner struct {
	calls [][]string
	err   error
}

func (f *fakeRunner) Run(name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.err
}

func (f *fakeRunner) Output(name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return "", f.err
}

func TestWriteConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "DCANBOLDProc_v4.0.0_mat_config.json")
	cfg := engine.Config{
		PathWbC:        "/opt/workbench/wb_command",
		BPOrder:        2,
		LPHz:           0.009,
		HPHz:           0.080,
		TR:             0.8,
		FDThreshold:    0.3,
		PathCII:        "/data/task-rest_Atlas.dtseries.nii",
		PathExSum:      "/data/summary_DCANBOLDProc_v4.0.0",
		CIFTIName:      "task-rest_DCANBOLDProc_v4.0.0_Atlas.dtseries.nii",
		FMRIName:       "task-rest",
		FileWM:         "/data/task-rest_wm_mean.txt",
		FileVent:       "/data/task-rest_vent_mean.txt",
		FileMovReg:     "/data/Movement_Regressors.txt",
		MotionFilename: "motion_numbers.txt",
		SkipSeconds:    5,
		ResultDir:      "/data/DCANBOLDProc_v4.0.0",
	}

	if err := engine.WriteConfig(path, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config back: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parse config back: %v", err)
	}

	want := map[string]any{
		"path_wb_c":              "/opt/workbench/wb_command",
		"bp_order":               float64(2),
		"lp_Hz":                  0.009,
		"hp_Hz":                  0.080,
		"TR":                     0.8,
		"fd_th":                  0.3,
		"path_cii":               "/data/task-rest_Atlas.dtseries.nii",
		"path_ex_sum":            "/data/summary_DCANBOLDProc_v4.0.0",
		"FNL_preproc_CIFTI_name": "task-rest_DCANBOLDProc_v4.0.0_Atlas.dtseries.nii",
		"fMRIName":               "task-rest",
		"file_wm":                "/data/task-rest_wm_mean.txt",
		"file_vent":              "/data/task-rest_vent_mean.txt",
		"file_mov_reg":           "/data/Movement_Regressors.txt",
		"motion_filename":        "motion_numbers.txt",
		"skip_seconds":           float64(5),
		"result_dir":             "/data/DCANBOLDProc_v4.0.0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("serialized config mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestWriteConfigLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := engine.WriteConfig(path, engine.Config{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after write")
	}
}

func TestTeardownConfigKeys(t *testing.T) {
	cfg := engine.TeardownConfig{
		PathWbC:                      "/opt/workbench/wb_command",
		EpiTR:                        0.8,
		SummaryDir:                   "/data/summary",
		BrainRadiusMM:                50,
		ExpectedContiguousFrameCount: 9,
		ResultDir:                    "/data/results",
		PathMotionNumbers:            "/data/motion_numbers.txt",
		PathCiftis:                   "/data/workbench",
		PathTimecourses:              "/data/timecourses",
		SkipSeconds:                  5,
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	wantKeys := []string{
		"path_wb_c", "epi_TR", "summary_Dir", "brain_radius_in_mm",
		"expected_contiguous_frame_count", "result_dir", "path_motion_numbers",
		"path_ciftis", "path_timecourses", "skip_seconds",
	}
	for _, k := range wantKeys {
		if _, ok := got[k]; !ok {
			t.Errorf("missing key %q in serialized teardown config", k)
		}
	}
	if len(got) != len(wantKeys) {
		t.Errorf("serialized teardown config has %d keys, want %d", len(got), len(wantKeys))
	}
}

func TestRunInvokesEngineWithRuntimeRootAndConfig(t *testing.T) {
	r := &fakeRunner{}

	if err := engine.Run(r, "/opt/dcanbold", "/opt/mcr/v91", "/data/config.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		filepath.Join("/opt/dcanbold", "bin", "run_FNL_preproc_Matlab.sh"),
		"/opt/mcr/v91",
		"/data/config.json",
	}
	if len(r.calls) != 1 || !reflect.DeepEqual(r.calls[0], want) {
		t.Errorf("invocation = %v, want %v", r.calls, want)
	}
}

func TestWorkbenchPath(t *testing.T) {
	got := engine.WorkbenchPath("/opt/workbench/bin_linux64")
	if got != filepath.Join("/opt/workbench/bin_linux64", "wb_command") {
		t.Errorf("WorkbenchPath = %q", got)
	}
}
