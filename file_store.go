package openml

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	tasksFolderName  = "tasks"
	dataFolderName   = "data"
	runsFolderName   = "runs"
	setupsFolderName = "setups"
	tagsFolderName   = "tags"

	metaDataFileName    = "meta.yaml"
	qualitiesFileName   = "qualities.yaml"
	predictionsFileName = "predictions.csv"
)

type runMeta struct {
	RunID       int64            `yaml:"run_id"`
	TaskID      int64            `yaml:"task_id"`
	SetupID     int64            `yaml:"setup_id"`
	FlowName    string           `yaml:"flow_name"`
	UploadTime  int64            `yaml:"upload_time"`
	Evaluations []Measure        `yaml:"evaluations"`
	Parameters  []SetupParameter `yaml:"parameters"`
}

// FileStore implements the Client interface against a local directory,
// so the whole pipeline can run and be tested without a network. Runs and
// setups get small monotonically increasing IDs, the way the platform
// assigns them.
type FileStore struct {
	rootDir string
}

func NewFileStore(rootDir string) (*FileStore, error) {
	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("openml.NewFileStore: error getting absolute path: %w", err)
	}
	fs := &FileStore{rootDir: rootDir}
	for _, subDir := range []string{tasksFolderName, dataFolderName, runsFolderName, setupsFolderName} {
		if err := os.MkdirAll(filepath.Join(rootDir, subDir), 0755); err != nil {
			return nil, fmt.Errorf("openml.NewFileStore: error creating store dir: %w", err)
		}
	}
	return fs, nil
}

func (fs *FileStore) URI() string {
	return fs.rootDir
}

// SaveTask seeds a task definition into the store. Offline stores have no
// upstream task catalog, so callers register the tasks they run against.
func (fs *FileStore) SaveTask(t *Task) error {
	if t.TaskID <= 0 {
		return fmt.Errorf("openml.FileStore.SaveTask: task ID must be positive, got %d", t.TaskID)
	}
	metaBytes, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	path := filepath.Join(fs.rootDir, tasksFolderName, strconv.FormatInt(t.TaskID, 10)+".yaml")
	return os.WriteFile(path, metaBytes, 0644)
}

func (fs *FileStore) GetTask(id int64) (*Task, error) {
	path := filepath.Join(fs.rootDir, tasksFolderName, strconv.FormatInt(id, 10)+".yaml")
	metaBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openml.FileStore.GetTask: no task with id %d: %w", id, err)
	}
	task := &Task{}
	if err = yaml.Unmarshal(metaBytes, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SaveDataQualities seeds descriptive statistics for a dataset.
func (fs *FileStore) SaveDataQualities(dataID int64, q Qualities) error {
	dir := filepath.Join(fs.rootDir, dataFolderName, strconv.FormatInt(dataID, 10))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	qBytes, err := yaml.Marshal(q)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, qualitiesFileName), qBytes, 0644)
}

func (fs *FileStore) GetDataQualities(dataID int64) (Qualities, error) {
	path := filepath.Join(fs.rootDir, dataFolderName, strconv.FormatInt(dataID, 10), qualitiesFileName)
	qBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openml.FileStore.GetDataQualities: no qualities for data id %d: %w", dataID, err)
	}
	qualities := Qualities{}
	if err = yaml.Unmarshal(qBytes, &qualities); err != nil {
		return nil, err
	}
	return qualities, nil
}

// Scans a folder of numerically named entries and returns the highest ID.
func (fs *FileStore) highestID(folder string) (int64, error) {
	files, err := os.ReadDir(filepath.Join(fs.rootDir, folder))
	if err != nil {
		return 0, fmt.Errorf("openml.FileStore: error reading dir: %w", err)
	}
	highestID := int64(0)
	for _, file := range files {
		name := file.Name()
		if ext := filepath.Ext(name); ext != "" {
			name = name[:len(name)-len(ext)]
		}
		idInt, err := strconv.ParseInt(name, 10, 64)
		if err == nil && idInt > highestID {
			highestID = idInt
		}
	}
	return highestID, nil
}

// Reuses an existing setup when an identical flow/parameter combination was
// uploaded before, matching the platform's setup deduplication.
func (fs *FileStore) findOrCreateSetup(flowName string, params []SetupParameter) (int64, error) {
	files, err := os.ReadDir(filepath.Join(fs.rootDir, setupsFolderName))
	if err != nil {
		return 0, fmt.Errorf("openml.FileStore.findOrCreateSetup: error reading dir: %w", err)
	}
	for _, file := range files {
		setup, err := fs.readSetup(filepath.Join(fs.rootDir, setupsFolderName, file.Name()))
		if err != nil {
			return 0, err
		}
		if setup.FlowName == flowName && sameParameters(setup.Parameters, params) {
			return setup.SetupID, nil
		}
	}
	highestID, err := fs.highestID(setupsFolderName)
	if err != nil {
		return 0, err
	}
	setup := Setup{SetupID: highestID + 1, FlowName: flowName, Parameters: params}
	setupBytes, err := yaml.Marshal(setup)
	if err != nil {
		return 0, err
	}
	path := filepath.Join(fs.rootDir, setupsFolderName, strconv.FormatInt(setup.SetupID, 10)+".yaml")
	if err := os.WriteFile(path, setupBytes, 0644); err != nil {
		return 0, err
	}
	return setup.SetupID, nil
}

func sameParameters(a, b []SetupParameter) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]string, len(a))
	for _, p := range a {
		byName[p.Name] = p.Value
	}
	for _, p := range b {
		val, ok := byName[p.Name]
		if !ok || val != p.Value {
			return false
		}
	}
	return true
}

func (fs *FileStore) readSetup(path string) (*Setup, error) {
	setupBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	setup := &Setup{}
	if err = yaml.Unmarshal(setupBytes, setup); err != nil {
		return nil, err
	}
	return setup, nil
}

func (fs *FileStore) UploadRun(up *RunUpload) (int64, error) {
	if _, err := fs.GetTask(up.TaskID); err != nil {
		return 0, err
	}
	setupID, err := fs.findOrCreateSetup(up.FlowName, up.Parameters)
	if err != nil {
		return 0, err
	}
	highestID, err := fs.highestID(runsFolderName)
	if err != nil {
		return 0, err
	}
	runID := highestID + 1
	runDir := filepath.Join(fs.rootDir, runsFolderName, strconv.FormatInt(runID, 10))
	if err := os.MkdirAll(filepath.Join(runDir, tagsFolderName), 0755); err != nil {
		return 0, err
	}
	meta := runMeta{
		RunID:       runID,
		TaskID:      up.TaskID,
		SetupID:     setupID,
		FlowName:    up.FlowName,
		UploadTime:  time.Now().UnixMilli(),
		Evaluations: up.Evaluations,
		Parameters:  up.Parameters,
	}
	metaBytes, err := yaml.Marshal(meta)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(runDir, metaDataFileName), metaBytes, 0644); err != nil {
		return 0, err
	}
	if len(up.Predictions) > 0 {
		if err := writePredictions(filepath.Join(runDir, predictionsFileName), up.Predictions); err != nil {
			return 0, err
		}
	}
	for _, tag := range up.Tags {
		if err := fs.TagRun(runID, tag); err != nil {
			return 0, err
		}
	}
	return runID, nil
}

func writePredictions(path string, preds []Prediction) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(f, "row_id,truth,prediction,confidence"); err != nil {
		f.Close()
		return err
	}
	for _, p := range preds {
		if _, err := fmt.Fprintf(f, "%d,%s,%s,%g\n", p.RowID, p.Truth, p.Predicted, p.Confidence); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func (fs *FileStore) TagRun(runID int64, tag string) error {
	tagsDir := filepath.Join(fs.rootDir, runsFolderName, strconv.FormatInt(runID, 10), tagsFolderName)
	if _, err := os.Stat(filepath.Dir(tagsDir)); err != nil {
		return fmt.Errorf("openml.FileStore.TagRun: no run with id %d", runID)
	}
	if err := os.MkdirAll(tagsDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(tagsDir, tag), nil, 0644)
}

func (fs *FileStore) hasTag(runID int64, tag string) bool {
	path := filepath.Join(fs.rootDir, runsFolderName, strconv.FormatInt(runID, 10), tagsFolderName, tag)
	_, err := os.Stat(path)
	return err == nil
}

func (fs *FileStore) readRunMeta(runID int64) (*runMeta, error) {
	path := filepath.Join(fs.rootDir, runsFolderName, strconv.FormatInt(runID, 10), metaDataFileName)
	metaBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openml.FileStore: error reading run meta: %w", err)
	}
	meta := &runMeta{}
	if err = yaml.Unmarshal(metaBytes, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Visits every stored run carrying the tag, in directory order.
func (fs *FileStore) forEachTaggedRun(tag string, visit func(*runMeta) error) error {
	files, err := os.ReadDir(filepath.Join(fs.rootDir, runsFolderName))
	if err != nil {
		return fmt.Errorf("openml.FileStore: error reading runs dir: %w", err)
	}
	for _, file := range files {
		if !file.IsDir() {
			continue
		}
		runID, err := strconv.ParseInt(file.Name(), 10, 64)
		if err != nil {
			continue
		}
		if !fs.hasTag(runID, tag) {
			continue
		}
		meta, err := fs.readRunMeta(runID)
		if err != nil {
			return err
		}
		if err := visit(meta); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileStore) ListRuns(tag string) ([]RunSummary, error) {
	runs := make([]RunSummary, 0)
	err := fs.forEachTaggedRun(tag, func(meta *runMeta) error {
		runs = append(runs, RunSummary{RunID: meta.RunID, TaskID: meta.TaskID, SetupID: meta.SetupID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (fs *FileStore) ListRunEvaluations(tag string) ([]Evaluation, error) {
	evals := make([]Evaluation, 0)
	err := fs.forEachTaggedRun(tag, func(meta *runMeta) error {
		for _, m := range meta.Evaluations {
			evals = append(evals, Evaluation{
				RunID:    meta.RunID,
				TaskID:   meta.TaskID,
				SetupID:  meta.SetupID,
				Function: m.Name,
				Value:    m.Value,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evals, nil
}

func (fs *FileStore) ListSetups(setupIDs []int64) ([]Setup, error) {
	setups := make([]Setup, 0, len(setupIDs))
	for _, id := range setupIDs {
		setup, err := fs.readSetup(filepath.Join(fs.rootDir, setupsFolderName, strconv.FormatInt(id, 10)+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("openml.FileStore.ListSetups: no setup with id %d: %w", id, err)
		}
		setups = append(setups, *setup)
	}
	return setups, nil
}
