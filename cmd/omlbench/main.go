// omlbench scripts one automated experiment end to end: fetch a task, sample
// hyperparameter configurations for a learner, cross-validate and upload one
// run per configuration, then query the uploaded runs back by tag and print
// the tabulated results.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"strings"

	"github.com/cheggaaa/pb/v3"

	openml "github.com/atrium-org/openml-go"
	"github.com/atrium-org/openml-go/bench"
	"github.com/atrium-org/openml-go/learner"
	"github.com/atrium-org/openml-go/results"
)

var (
	server  string
	apiKey  string
	taskID  int64
	dataID  int64
	dataCSV string
	target  string
	trials  int
	seed    int64
	tag     string
	folds   int
	confirm bool
	enrich  string
)

func init() {
	flag.StringVar(&server, "server", "", "Platform URI: http(s) server or file path (default $OPENML_SERVER_URL)")
	flag.StringVar(&apiKey, "api-key", "", "API key for uploads (default $OPENML_API_KEY or openml-key.txt)")
	flag.Int64Var(&taskID, "task", 0, "Task ID to run against")
	flag.Int64Var(&dataID, "data-id", 0, "Dataset ID when registering a task in a local store (default: task ID)")
	flag.StringVar(&dataCSV, "data", "", "CSV file holding the task's dataset")
	flag.StringVar(&target, "target", "class", "Name of the target column in the dataset")
	flag.IntVar(&trials, "n", 10, "Number of configurations to sample")
	flag.Int64Var(&seed, "seed", 1, "PRNG seed for sampling and fold assignment")
	flag.StringVar(&tag, "tag", "", "Run-group tag (default: generated)")
	flag.IntVar(&folds, "folds", 0, "Cross-validation folds, 0 = task's estimation procedure")
	flag.BoolVar(&confirm, "confirm", true, "Confirm uploads so the platform publishes them")
	flag.StringVar(&enrich, "enrich", "", "Comma-separated dataset quality names to join onto the result table")
}

func main() {
	flag.Parse()
	l := log.New(os.Stderr, "omlbench: ", 0)
	if taskID == 0 {
		l.Fatal("a -task ID is required")
	}
	if dataCSV == "" {
		l.Fatal("a -data CSV file is required")
	}

	client, err := openml.NewClient(server, apiKey, l)
	if err != nil {
		l.Fatal(err)
	}
	task, err := client.GetTask(taskID)
	if err != nil {
		// Local stores have no upstream task catalog; register the task
		// from the flags instead.
		fs, ok := client.(*openml.FileStore)
		if !ok {
			l.Fatal(err)
		}
		if dataID == 0 {
			dataID = taskID
		}
		task = &openml.Task{
			TaskID:              taskID,
			TaskType:            "Supervised Classification",
			DataSetID:           dataID,
			TargetFeature:       target,
			EstimationProcedure: "10-fold Crossvalidation",
			Folds:               10,
		}
		if err := fs.SaveTask(task); err != nil {
			l.Fatal(err)
		}
		l.Printf("registered task %d in local store %s", taskID, fs.URI())
	}
	if task.Folds == 0 && folds == 0 {
		folds = 10
	}

	ds, err := learner.ReadCSVDataset(dataCSV, target, task.DataSetID)
	if err != nil {
		l.Fatal(err)
	}

	lrn := learner.NewMajority()
	rng := rand.New(rand.NewSource(seed))
	design := lrn.ParamSet().Sample(trials, rng)

	var tags []string
	if tag == "" {
		tags = []string{bench.NewGroupTag()}
		l.Printf("tagging runs with generated tag %q", tags[0])
	} else {
		tags = []string{tag}
	}

	bar := pb.StartNew(len(design))
	runner := &bench.Runner{
		Client:   client,
		Learner:  lrn,
		Task:     task,
		Dataset:  ds,
		Design:   design,
		Tags:     tags,
		Folds:    folds,
		Seed:     seed,
		Confirm:  confirm,
		Log:      l,
		Progress: bar,
	}
	runIDs, err := runner.Execute(context.Background())
	bar.Finish()
	if err != nil {
		l.Fatal(err)
	}
	l.Printf("uploaded %d runs to %s", len(runIDs), client.URI())

	evals, err := client.ListRunEvaluations(tags[0])
	if err != nil {
		l.Fatal(err)
	}
	setups, err := client.ListSetups(results.SetupIDs(evals))
	if err != nil {
		l.Fatal(err)
	}
	table := results.Build(evals, setups, openml.MeasureAUC, lrn.ParamSet().Names())

	if enrich != "" {
		qualities, err := client.GetDataQualities(task.DataSetID)
		if err != nil {
			// Local stores have no quality catalog either; derive the
			// basic qualities from the loaded dataset.
			fs, ok := client.(*openml.FileStore)
			if !ok {
				l.Fatal(err)
			}
			_, features := ds.X.Dims()
			qualities = openml.Qualities{
				openml.QualityNumberOfInstances: float64(ds.Len()),
				openml.QualityNumberOfFeatures:  float64(features),
				openml.QualityNumberOfClasses:   2,
			}
			if err := fs.SaveDataQualities(task.DataSetID, qualities); err != nil {
				l.Fatal(err)
			}
		}
		names := strings.Split(enrich, ",")
		byTask := map[int64]openml.Qualities{task.TaskID: qualities}
		if err := table.Enrich(byTask, names); err != nil {
			l.Fatal(err)
		}
	}

	if err := table.RenderTo(os.Stdout); err != nil {
		l.Fatal(err)
	}
}
