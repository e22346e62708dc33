// Package learner defines the modeling interface the experiment runner
// executes, the hyperparameter spaces of the commonly benchmarked external
// flows, and cross-validated evaluation of a fitted model.
package learner

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/atrium-org/openml-go/param"
)

// Dataset is a dense binary-classification dataset: one feature row per
// instance and a 0/1 label per row.
type Dataset struct {
	DataID int64
	X      *mat.Dense
	Y      []int
	// Class names for prediction output, indexed by label.
	Classes [2]string
}

func (ds *Dataset) Len() int {
	if ds.X == nil {
		return 0
	}
	rows, _ := ds.X.Dims()
	return rows
}

// Subset returns the dataset restricted to the given row indices. The
// feature matrix is copied; Subset rows do not alias the parent.
func (ds *Dataset) Subset(indices []int) *Dataset {
	_, cols := ds.X.Dims()
	x := mat.NewDense(len(indices), cols, nil)
	y := make([]int, len(indices))
	for i, idx := range indices {
		x.SetRow(i, ds.X.RawRowView(idx))
		y[i] = ds.Y[idx]
	}
	return &Dataset{DataID: ds.DataID, X: x, Y: y, Classes: ds.Classes}
}

// Model scores instances: one probability of the positive class per row.
type Model interface {
	PredictProb(x mat.Matrix) []float64
}

// Learner is a named modeling algorithm with a declared hyperparameter
// space. The statistical flows benchmarked on the platform (glmnet, rpart,
// kknn, svm, ranger, xgboost) stay external; implementations of this
// interface plug into the same runner.
type Learner interface {
	Name() string
	ParamSet() *param.Set
	Fit(ds *Dataset, cfg param.Assignment) (Model, error)
}

// Majority is a built-in baseline that predicts the smoothed training
// frequency of the positive class for every instance.
type Majority struct{}

func NewMajority() *Majority {
	return &Majority{}
}

func (m *Majority) Name() string {
	return "classif.majority"
}

func (m *Majority) ParamSet() *param.Set {
	return param.MustSet(
		param.NumParam("smoothing", 0, 1),
	)
}

type majorityModel struct {
	prob float64
}

func (m majorityModel) PredictProb(x mat.Matrix) []float64 {
	rows, _ := x.Dims()
	probs := make([]float64, rows)
	for i := range probs {
		probs[i] = m.prob
	}
	return probs
}

func (m *Majority) Fit(ds *Dataset, cfg param.Assignment) (Model, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("learner: cannot fit %s on an empty dataset", m.Name())
	}
	smoothing := 0.5
	if v, ok := cfg["smoothing"]; ok {
		smoothing = v.Float()
	}
	positives := 0
	for _, label := range ds.Y {
		if label == 1 {
			positives++
		}
	}
	prob := (float64(positives) + smoothing) / (float64(ds.Len()) + 2*smoothing)
	return majorityModel{prob: prob}, nil
}
