package openml

import (
	"bufio"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
)

const (
	ServerURLEnvName = "OPENML_SERVER_URL"
	APIKeyEnvName    = "OPENML_API_KEY"

	// Measure names as the platform reports them in evaluation listings.
	MeasureAUC      = "area_under_roc_curve"
	MeasureAccuracy = "predictive_accuracy"

	// Dataset quality names as reported by the qualities endpoint.
	QualityNumberOfInstances = "NumberOfInstances"
	QualityNumberOfFeatures  = "NumberOfFeatures"
	QualityNumberOfClasses   = "NumberOfClasses"

	keyPath          = "openml-key.txt"
	defaultServerURL = "https://www.openml.org"
)

// Client is the platform API surface this module consumes: task retrieval,
// run upload, and read-back of tagged runs with their evaluations and setups.
type Client interface {
	GetTask(id int64) (*Task, error)
	GetDataQualities(dataID int64) (Qualities, error)
	// Returns the platform-assigned run ID.
	UploadRun(up *RunUpload) (int64, error)
	TagRun(runID int64, tag string) error
	ListRuns(tag string) ([]RunSummary, error)
	ListRunEvaluations(tag string) ([]Evaluation, error)
	ListSetups(setupIDs []int64) ([]Setup, error)
	URI() string
}

// Task identifies a benchmark dataset plus target and evaluation convention.
type Task struct {
	TaskID              int64  `yaml:"task_id" json:"task_id"`
	TaskType            string `yaml:"task_type" json:"task_type"`
	DataSetID           int64  `yaml:"source_data" json:"source_data"`
	TargetFeature       string `yaml:"target_feature" json:"target_feature"`
	EstimationProcedure string `yaml:"estimation_procedure" json:"estimation_procedure"`
	Folds               int    `yaml:"folds" json:"folds"`
}

// Qualities holds dataset-level descriptive statistics keyed by quality name.
type Qualities map[string]float64

// Evaluation is one measured value of one run, in long form.
type Evaluation struct {
	RunID    int64   `yaml:"run_id" json:"run_id"`
	TaskID   int64   `yaml:"task_id" json:"task_id"`
	SetupID  int64   `yaml:"setup_id" json:"setup_id"`
	Function string  `yaml:"function" json:"function"`
	Value    float64 `yaml:"value" json:"value"`
}

type RunSummary struct {
	RunID   int64 `yaml:"run_id" json:"run_id"`
	TaskID  int64 `yaml:"task_id" json:"task_id"`
	SetupID int64 `yaml:"setup_id" json:"setup_id"`
}

// SetupParameter is one hyperparameter setting in its uploaded string form.
type SetupParameter struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// Setup is the hyperparameter configuration associated with one or more runs.
type Setup struct {
	SetupID    int64            `yaml:"setup_id" json:"setup_id"`
	FlowName   string           `yaml:"flow_name" json:"flow_name"`
	Parameters []SetupParameter `yaml:"parameters" json:"parameter"`
}

// Measure pairs a measure name with its value for upload.
type Measure struct {
	Name  string  `yaml:"name" json:"name"`
	Value float64 `yaml:"value" json:"value"`
}

// Prediction is one per-row prediction attached to an uploaded run.
type Prediction struct {
	RowID      int64   `json:"row_id"`
	Truth      string  `json:"truth"`
	Predicted  string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// RunUpload is the payload for submitting one executed run.
type RunUpload struct {
	TaskID      int64
	FlowName    string
	Parameters  []SetupParameter
	Evaluations []Measure
	Predictions []Prediction
	Tags        []string
	// When false the platform stages the run without publishing it.
	Confirm bool
}

// NewClient picks a backend from the URI scheme: http(s) URIs talk to the
// platform's REST API, file URIs (or plain paths) use a local on-disk store.
// Empty uri falls back to OPENML_SERVER_URL, then to the public server.
func NewClient(uri, apiKey string, l *log.Logger) (Client, error) {
	if uri == "" {
		uri = os.Getenv(ServerURLEnvName)
	}
	if uri == "" {
		uri = defaultServerURL
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		apiKey = lookupAPIKey(l)
	}
	switch parsed.Scheme {
	case "file", "":
		if apiKey != "" && l != nil {
			l.Println("API key ignored for local file store URI")
		}
		return NewFileStore(parsed.Path)
	case "http", "https":
		if apiKey == "" && l != nil {
			l.Printf("no %q found; run uploads to %s will be rejected", keyPath, uri)
		}
		return NewRESTClient(uri, apiKey)
	}
	return nil, fmt.Errorf("support for platform with URI scheme %s not implemented", parsed.Scheme)
}

func lookupAPIKey(l *log.Logger) string {
	key := os.Getenv(APIKeyEnvName)
	if key != "" {
		return key
	}
	var f *os.File
	var err error

	// Check current directory and its ancestors.
	dir := "."
	for {
		dir, err = filepath.Abs(dir)
		if err != nil {
			if l != nil {
				l.Printf("lookupAPIKey() failed to get absolute path for %q: %v", dir, err)
			}
			return ""
		}
		if f, err = os.Open(filepath.Join(dir, keyPath)); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		// Hit root of repo or file system.
		if _, err = os.Stat(filepath.Join(dir, ".git")); err == nil || parent == dir {
			break
		} else {
			dir = parent
			continue
		}
	}

	if f == nil {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			f, err = os.Open(filepath.Join(homeDir, keyPath))
		}
		if err != nil {
			if l != nil {
				l.Printf("lookupAPIKey() failed to find a file named %q in CWD, its ancestors, or home dir", keyPath)
			}
			return ""
		}
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return ""
	}
	return scanner.Text()
}

// ParametersFromStruct flattens a struct's exported fields into setup
// parameters, expanding slice fields element-wise. Useful for attaching a
// learner's fixed (non-tuned) settings to an upload.
func ParametersFromStruct(obj interface{}) ([]SetupParameter, error) {
	objVal := reflect.ValueOf(obj)
	if objVal.Kind() == reflect.Ptr {
		objVal = objVal.Elem()
	}
	if objVal.Kind() != reflect.Struct {
		return nil, fmt.Errorf("ParametersFromStruct expected struct, got %v", objVal.Kind())
	}
	params := make([]SetupParameter, 0)
	for _, field := range reflect.VisibleFields(objVal.Type()) {
		fieldName := field.Name
		value := objVal.FieldByName(fieldName)
		if value.Kind() == reflect.Slice {
			for i := 0; i < value.Len(); i++ {
				idx := i
				params = append(params, SetupParameter{
					Name: fmt.Sprintf("%s_%d", fieldName, idx), Value: fmt.Sprintf("%v", value.Index(idx))})
			}
		} else {
			params = append(params, SetupParameter{Name: fieldName, Value: fmt.Sprintf("%v", value)})
		}
	}
	return params, nil
}
