package learner

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/atrium-org/openml-go/param"
)

// Result of one cross-validated evaluation: the pooled measure value and the
// per-row out-of-fold predictions, suitable for attaching to a run upload.
type CVResult struct {
	AUC    float64
	Truth  []int
	Scores []float64
	Rows   []int
}

// CrossValidate evaluates one configuration of a learner on a dataset with
// shuffled k-fold cross-validation and returns the area under the ROC curve
// over the pooled out-of-fold predictions.
func CrossValidate(l Learner, ds *Dataset, cfg param.Assignment, folds int, rng *rand.Rand) (*CVResult, error) {
	n := ds.Len()
	if folds < 2 {
		return nil, fmt.Errorf("learner: need at least 2 folds, got %d", folds)
	}
	if folds > n {
		return nil, fmt.Errorf("learner: %d folds exceed %d rows", folds, n)
	}
	perm := rng.Perm(n)
	foldOf := make([]int, n)
	for i, idx := range perm {
		foldOf[idx] = i % folds
	}

	res := &CVResult{
		Truth:  make([]int, 0, n),
		Scores: make([]float64, 0, n),
		Rows:   make([]int, 0, n),
	}
	for fold := 0; fold < folds; fold++ {
		train := make([]int, 0, n)
		test := make([]int, 0, n/folds+1)
		for i := 0; i < n; i++ {
			if foldOf[i] == fold {
				test = append(test, i)
			} else {
				train = append(train, i)
			}
		}
		model, err := l.Fit(ds.Subset(train), cfg)
		if err != nil {
			return nil, fmt.Errorf("learner: fold %d fit failed: %w", fold, err)
		}
		scores := model.PredictProb(ds.Subset(test).X)
		if len(scores) != len(test) {
			return nil, fmt.Errorf("learner: model returned %d scores for %d rows", len(scores), len(test))
		}
		for i, row := range test {
			res.Rows = append(res.Rows, row)
			res.Truth = append(res.Truth, ds.Y[row])
			res.Scores = append(res.Scores, scores[i])
		}
	}

	auc, err := AUC(res.Scores, res.Truth)
	if err != nil {
		return nil, err
	}
	res.AUC = auc
	return res, nil
}

// AUC computes the area under the ROC curve for positive-class scores
// against 0/1 labels.
func AUC(scores []float64, labels []int) (float64, error) {
	if len(scores) != len(labels) {
		return 0, fmt.Errorf("learner: %d scores for %d labels", len(scores), len(labels))
	}
	if len(scores) == 0 {
		return 0, fmt.Errorf("learner: no predictions to score")
	}
	positives := 0
	classes := make([]bool, len(labels))
	for i, label := range labels {
		classes[i] = label == 1
		if classes[i] {
			positives++
		}
	}
	if positives == 0 || positives == len(labels) {
		return 0, fmt.Errorf("learner: AUC undefined for a single-class label vector")
	}
	y := make([]float64, len(scores))
	copy(y, scores)
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}
