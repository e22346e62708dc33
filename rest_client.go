package openml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Implements the Client interface against the platform's JSON REST API.
type RESTClient struct {
	baseURL string
	apiKey  string
}

func NewRESTClient(baseURL, apiKey string) (*RESTClient, error) {
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &RESTClient{baseURL: baseURL, apiKey: apiKey}, nil
}

func (rc *RESTClient) do(method, path string, req, res interface{}) error {
	if method == http.MethodGet && req != nil {
		return fmt.Errorf("GET requests cannot have a body")
	}
	url := rc.baseURL + "/api/v1/json/" + path
	if rc.apiKey != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		url += sep + "api_key=" + rc.apiKey
	}
	var reqBody io.Reader
	if req != nil {
		reqJSON, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to marshall request to JSON: %v", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	httpReq, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpRes, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to %s: %v", method, err)
	}
	defer httpRes.Body.Close()
	resBody, err := io.ReadAll(httpRes.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}
	if httpRes.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s failed with status %s: %s", method, url, httpRes.Status, resBody)
	}
	if err = json.Unmarshal(resBody, res); err != nil {
		return fmt.Errorf("failed to unmarshall response body: %s\n%v", resBody, err)
	}
	return nil
}

func (rc *RESTClient) URI() string {
	return rc.baseURL
}

type getTaskResponse struct {
	Task Task `json:"task"`
}

func (rc *RESTClient) GetTask(id int64) (*Task, error) {
	var resp getTaskResponse
	err := rc.do(http.MethodGet, "task/"+strconv.FormatInt(id, 10), nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

type qualityEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type getQualitiesResponse struct {
	DataQualities struct {
		Quality []qualityEntry `json:"quality"`
	} `json:"data_qualities"`
}

func (rc *RESTClient) GetDataQualities(dataID int64) (Qualities, error) {
	var resp getQualitiesResponse
	err := rc.do(http.MethodGet, "data/qualities/"+strconv.FormatInt(dataID, 10), nil, &resp)
	if err != nil {
		return nil, err
	}
	qualities := make(Qualities, len(resp.DataQualities.Quality))
	for _, q := range resp.DataQualities.Quality {
		// Qualities undefined for a dataset come back empty; skip them.
		if q.Value == "" {
			continue
		}
		val, err := strconv.ParseFloat(q.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("quality %s has non-numeric value %q", q.Name, q.Value)
		}
		qualities[q.Name] = val
	}
	return qualities, nil
}

type uploadRunRequest struct {
	Run struct {
		TaskID           int64            `json:"task_id"`
		FlowName         string           `json:"flow_name"`
		ParameterSetting []SetupParameter `json:"parameter_setting"`
		OutputData       struct {
			Evaluation []Measure `json:"evaluation"`
		} `json:"output_data"`
		Predictions []Prediction `json:"predictions,omitempty"`
		Tags        []string     `json:"tag,omitempty"`
		Confirm     bool         `json:"confirm"`
	} `json:"run"`
}

type uploadRunResponse struct {
	UploadRun struct {
		RunID int64 `json:"run_id"`
	} `json:"upload_run"`
}

func (rc *RESTClient) UploadRun(up *RunUpload) (int64, error) {
	if rc.apiKey == "" {
		return 0, fmt.Errorf("an API key is required to upload runs to %s", rc.baseURL)
	}
	var req uploadRunRequest
	req.Run.TaskID = up.TaskID
	req.Run.FlowName = up.FlowName
	req.Run.ParameterSetting = up.Parameters
	req.Run.OutputData.Evaluation = up.Evaluations
	req.Run.Predictions = up.Predictions
	req.Run.Tags = up.Tags
	req.Run.Confirm = up.Confirm
	var resp uploadRunResponse
	if err := rc.do(http.MethodPost, "run", &req, &resp); err != nil {
		return 0, err
	}
	return resp.UploadRun.RunID, nil
}

type tagRunRequest struct {
	RunID int64  `json:"run_id"`
	Tag   string `json:"tag"`
}

type tagRunResponse struct {
	RunTag struct {
		ID int64 `json:"id"`
	} `json:"run_tag"`
}

func (rc *RESTClient) TagRun(runID int64, tag string) error {
	req := tagRunRequest{RunID: runID, Tag: tag}
	var resp tagRunResponse
	return rc.do(http.MethodPost, "run/tag", &req, &resp)
}

type listRunsResponse struct {
	Runs struct {
		Run []RunSummary `json:"run"`
	} `json:"runs"`
}

func (rc *RESTClient) ListRuns(tag string) ([]RunSummary, error) {
	var resp listRunsResponse
	err := rc.do(http.MethodGet, "run/list/tag/"+url.PathEscape(tag), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Runs.Run, nil
}

type listEvaluationsResponse struct {
	Evaluations struct {
		Evaluation []Evaluation `json:"evaluation"`
	} `json:"evaluations"`
}

func (rc *RESTClient) ListRunEvaluations(tag string) ([]Evaluation, error) {
	var resp listEvaluationsResponse
	err := rc.do(http.MethodGet, "evaluation/list/tag/"+url.PathEscape(tag), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Evaluations.Evaluation, nil
}

type listSetupsResponse struct {
	Setups struct {
		Setup []Setup `json:"setup"`
	} `json:"setups"`
}

// The platform caps how many setup IDs one listing call may name.
const maxSetupsPerRequest = 100

func chunkEndIndices(arrayLen, chunkSize int) []int {
	res := make([]int, 0, (arrayLen+chunkSize-1)/chunkSize)
	for i := 0; i < arrayLen; i += chunkSize {
		end := i + chunkSize
		if end > arrayLen {
			end = arrayLen
		}
		res = append(res, end)
	}
	return res
}

func (rc *RESTClient) ListSetups(setupIDs []int64) ([]Setup, error) {
	endIdxs := chunkEndIndices(len(setupIDs), maxSetupsPerRequest)
	setups := make([]Setup, 0, len(setupIDs))
	i := 0
	for _, endIdx := range endIdxs {
		idStrs := make([]string, 0, endIdx-i)
		for ; i < endIdx; i++ {
			idStrs = append(idStrs, strconv.FormatInt(setupIDs[i], 10))
		}
		var resp listSetupsResponse
		err := rc.do(http.MethodGet, "setup/list/setup/"+strings.Join(idStrs, ","), nil, &resp)
		if err != nil {
			return nil, err
		}
		setups = append(setups, resp.Setups.Setup...)
	}
	return setups, nil
}
