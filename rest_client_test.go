package openml

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkEndIndices(t *testing.T) {
	idxs := chunkEndIndices(0, 10)
	assert.Equal(t, []int{}, idxs)

	idxs = chunkEndIndices(1, 10)
	assert.Equal(t, []int{1}, idxs)

	idxs = chunkEndIndices(10, 10)
	assert.Equal(t, []int{10}, idxs)

	idxs = chunkEndIndices(11, 10)
	assert.Equal(t, []int{10, 11}, idxs)

	idxs = chunkEndIndices(21, 10)
	assert.Equal(t, []int{10, 20, 21}, idxs)
}

func TestRESTGetTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/json/task/3954", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"task":{"task_id":3954,"task_type":"Supervised Classification",
			"source_data":219,"target_feature":"class",
			"estimation_procedure":"10-fold Crossvalidation","folds":10}}`)
	}))
	defer srv.Close()

	rc, err := NewRESTClient(srv.URL+"/", "secret")
	require.NoError(t, err)
	assert.Equal(t, srv.URL, rc.URI(), "trailing slash stripped")

	task, err := rc.GetTask(3954)
	require.NoError(t, err)
	assert.Equal(t, int64(3954), task.TaskID)
	assert.Equal(t, int64(219), task.DataSetID)
	assert.Equal(t, "class", task.TargetFeature)
	assert.Equal(t, 10, task.Folds)
}

func TestRESTGetDataQualities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/json/data/qualities/219", r.URL.Path)
		fmt.Fprint(w, `{"data_qualities":{"quality":[
			{"name":"NumberOfInstances","value":"3196"},
			{"name":"NumberOfClasses","value":"2"},
			{"name":"MeanSkewnessOfNumericAtts","value":""}]}}`)
	}))
	defer srv.Close()

	rc, err := NewRESTClient(srv.URL, "")
	require.NoError(t, err)
	qualities, err := rc.GetDataQualities(219)
	require.NoError(t, err)
	assert.Equal(t, Qualities{
		QualityNumberOfInstances: 3196,
		QualityNumberOfClasses:   2,
	}, qualities)
}

func TestRESTUploadRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/json/run", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		var req uploadRunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(3954), req.Run.TaskID)
		assert.Equal(t, "classif.majority", req.Run.FlowName)
		assert.Equal(t, []SetupParameter{{Name: "smoothing", Value: "0.5"}}, req.Run.ParameterSetting)
		assert.Equal(t, []Measure{{Name: MeasureAUC, Value: 0.73}}, req.Run.OutputData.Evaluation)
		assert.Equal(t, []string{"group_0"}, req.Run.Tags)
		assert.True(t, req.Run.Confirm)
		fmt.Fprint(w, `{"upload_run":{"run_id":101}}`)
	}))
	defer srv.Close()

	rc, err := NewRESTClient(srv.URL, "secret")
	require.NoError(t, err)
	runID, err := rc.UploadRun(&RunUpload{
		TaskID:      3954,
		FlowName:    "classif.majority",
		Parameters:  []SetupParameter{{Name: "smoothing", Value: "0.5"}},
		Evaluations: []Measure{{Name: MeasureAUC, Value: 0.73}},
		Tags:        []string{"group_0"},
		Confirm:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), runID)
}

func TestRESTUploadRunRequiresAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without an API key")
	}))
	defer srv.Close()

	rc, err := NewRESTClient(srv.URL, "")
	require.NoError(t, err)
	_, err = rc.UploadRun(&RunUpload{TaskID: 1})
	assert.Error(t, err)
}

func TestRESTListByTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v1/json/run/list/tag/"):
			assert.Equal(t, "/api/v1/json/run/list/tag/group_0", r.URL.Path)
			fmt.Fprint(w, `{"runs":{"run":[{"run_id":101,"task_id":3954,"setup_id":11}]}}`)
		case strings.HasPrefix(r.URL.Path, "/api/v1/json/evaluation/list/tag/"):
			fmt.Fprint(w, `{"evaluations":{"evaluation":[
				{"run_id":101,"task_id":3954,"setup_id":11,"function":"area_under_roc_curve","value":0.73}]}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	rc, err := NewRESTClient(srv.URL, "")
	require.NoError(t, err)

	runs, err := rc.ListRuns("group_0")
	require.NoError(t, err)
	assert.Equal(t, []RunSummary{{RunID: 101, TaskID: 3954, SetupID: 11}}, runs)

	evals, err := rc.ListRunEvaluations("group_0")
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, MeasureAUC, evals[0].Function)
	assert.Equal(t, 0.73, evals[0].Value)
}

func TestRESTListSetupsChunks(t *testing.T) {
	var requests []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/api/v1/json/setup/list/setup/"))
		ids := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/json/setup/list/setup/"), ",")
		requests = append(requests, len(ids))
		resp := listSetupsResponse{}
		for range ids {
			resp.Setups.Setup = append(resp.Setups.Setup, Setup{FlowName: "classif.majority"})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	rc, err := NewRESTClient(srv.URL, "")
	require.NoError(t, err)

	ids := make([]int64, 250)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	setups, err := rc.ListSetups(ids)
	require.NoError(t, err)
	assert.Len(t, setups, 250)
	assert.Equal(t, []int{100, 100, 50}, requests)
}

func TestRESTErrorSurface(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
		fmt.Fprint(w, `{"error":{"code":"103","message":"Authentication failed"}}`)
	}))
	defer srv.Close()

	rc, err := NewRESTClient(srv.URL, "")
	require.NoError(t, err)
	_, err = rc.GetTask(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "412")
	assert.Contains(t, err.Error(), "Authentication failed")
}
