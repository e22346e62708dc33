package openml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTask() *Task {
	return &Task{
		TaskID:              3954,
		TaskType:            "Supervised Classification",
		DataSetID:           219,
		TargetFeature:       "class",
		EstimationProcedure: "10-fold Crossvalidation",
		Folds:               10,
	}
}

func TestFileStoreTasks(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = fs.GetTask(3954)
	require.Error(t, err)

	require.NoError(t, fs.SaveTask(testTask()))
	task, err := fs.GetTask(3954)
	require.NoError(t, err)
	assert.Equal(t, testTask(), task)

	assert.Error(t, fs.SaveTask(&Task{TaskID: 0}))
}

func TestFileStoreQualities(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = fs.GetDataQualities(219)
	require.Error(t, err)

	want := Qualities{QualityNumberOfInstances: 3196, QualityNumberOfClasses: 2}
	require.NoError(t, fs.SaveDataQualities(219, want))
	got, err := fs.GetDataQualities(219)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStoreUploadRun(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.SaveTask(testTask()))

	up := &RunUpload{
		TaskID:      3954,
		FlowName:    "classif.majority",
		Parameters:  []SetupParameter{{Name: "smoothing", Value: "0.5"}},
		Evaluations: []Measure{{Name: MeasureAUC, Value: 0.73}},
		Predictions: []Prediction{{RowID: 0, Truth: "good", Predicted: "good", Confidence: 0.9}},
		Tags:        []string{"group_0"},
	}
	runID, err := fs.UploadRun(up)
	require.NoError(t, err)
	assert.Equal(t, int64(1), runID)

	// Uploading against an unknown task must fail.
	_, err = fs.UploadRun(&RunUpload{TaskID: 9999})
	require.Error(t, err)

	predPath := filepath.Join(fs.URI(), "runs", "1", "predictions.csv")
	predBytes, err := os.ReadFile(predPath)
	require.NoError(t, err)
	assert.Contains(t, string(predBytes), "0,good,good,0.9")

	runs, err := fs.ListRuns("group_0")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunSummary{RunID: 1, TaskID: 3954, SetupID: 1}, runs[0])

	runs, err = fs.ListRuns("other_tag")
	require.NoError(t, err)
	assert.Empty(t, runs, "unmatched tag yields an empty slice, not an error")

	evals, err := fs.ListRunEvaluations("group_0")
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, Evaluation{RunID: 1, TaskID: 3954, SetupID: 1, Function: MeasureAUC, Value: 0.73}, evals[0])
}

func TestFileStoreSetupDeduplication(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.SaveTask(testTask()))

	same := []SetupParameter{{Name: "smoothing", Value: "0.5"}}
	first, err := fs.UploadRun(&RunUpload{TaskID: 3954, FlowName: "classif.majority", Parameters: same})
	require.NoError(t, err)
	second, err := fs.UploadRun(&RunUpload{TaskID: 3954, FlowName: "classif.majority", Parameters: same})
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "runs are distinct")

	other, err := fs.UploadRun(&RunUpload{
		TaskID: 3954, FlowName: "classif.majority",
		Parameters: []SetupParameter{{Name: "smoothing", Value: "0.9"}},
	})
	require.NoError(t, err)

	setups, err := fs.ListSetups([]int64{1, 2})
	require.NoError(t, err)
	require.Len(t, setups, 2)
	assert.Equal(t, "0.5", setups[0].Parameters[0].Value)
	assert.Equal(t, "0.9", setups[1].Parameters[0].Value)

	require.NoError(t, fs.TagRun(first, "shared"))
	require.NoError(t, fs.TagRun(second, "shared"))
	require.NoError(t, fs.TagRun(other, "shared"))
	runs, err := fs.ListRuns("shared")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, runs[0].SetupID, runs[1].SetupID, "identical configurations share a setup")
	assert.NotEqual(t, runs[0].SetupID, runs[2].SetupID)

	_, err = fs.ListSetups([]int64{77})
	assert.Error(t, err)
}

func TestFileStoreTagRunUnknown(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, fs.TagRun(42, "tag"))
}
