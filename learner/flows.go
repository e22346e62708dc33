package learner

import (
	"fmt"
	"sort"

	"github.com/atrium-org/openml-go/param"
)

// Hyperparameter spaces conventionally tuned for the external flows, with
// log-scale parameters declared on their exponent range and kernel- or
// booster-conditional parameters guarded by activation conditions.
var flowSpaces = map[string]*param.Set{
	"classif.glmnet": param.MustSet(
		param.NumParam("alpha", 0, 1),
		param.NumParam("s", -10, 10).WithTrafo(param.Pow2),
	),
	"classif.rpart": param.MustSet(
		param.NumParam("cp", 0, 1),
		param.IntParam("maxdepth", 1, 30),
		param.IntParam("minbucket", 1, 60),
		param.IntParam("minsplit", 1, 60),
	),
	"classif.kknn": param.MustSet(
		param.IntParam("k", 1, 30),
	),
	"classif.svm": param.MustSet(
		param.DiscreteParam("kernel", "linear", "polynomial", "radial"),
		param.NumParam("cost", -10, 10).WithTrafo(param.Pow2),
		param.NumParam("gamma", -10, 10).WithTrafo(param.Pow2).
			WithRequires(func(a param.Assignment) bool {
				return a["kernel"].String() == "radial"
			}),
		param.IntParam("degree", 2, 5).
			WithRequires(func(a param.Assignment) bool {
				return a["kernel"].String() == "polynomial"
			}),
	),
	"classif.ranger": param.MustSet(
		param.IntParam("num.trees", 1, 2000),
		param.LogicalParam("replace"),
		param.NumParam("sample.fraction", 0.1, 1),
		param.IntParam("min.node.size", 1, 100),
	),
	"classif.xgboost": param.MustSet(
		param.IntParam("nrounds", 1, 5000),
		param.NumParam("eta", -10, 0).WithTrafo(param.Pow2),
		param.NumParam("subsample", 0.1, 1),
		param.DiscreteParam("booster", "gbtree", "gblinear"),
		param.IntParam("max_depth", 1, 15).
			WithRequires(func(a param.Assignment) bool {
				return a["booster"].String() == "gbtree"
			}),
		param.NumParam("min_child_weight", 0, 7).WithTrafo(param.Pow2).
			WithRequires(func(a param.Assignment) bool {
				return a["booster"].String() == "gbtree"
			}),
		param.NumParam("colsample_bytree", 0, 1).
			WithRequires(func(a param.Assignment) bool {
				return a["booster"].String() == "gbtree"
			}),
		param.NumParam("lambda", -10, 10).WithTrafo(param.Pow2),
		param.NumParam("alpha", -10, 10).WithTrafo(param.Pow2),
	),
}

// FlowSpace returns the tuning space declared for a flow name.
func FlowSpace(flow string) (*param.Set, error) {
	set, ok := flowSpaces[flow]
	if !ok {
		return nil, fmt.Errorf("learner: no tuning space declared for flow %q", flow)
	}
	return set, nil
}

// Flows lists the flow names with declared tuning spaces, sorted.
func Flows() []string {
	flows := make([]string, 0, len(flowSpaces))
	for name := range flowSpaces {
		flows = append(flows, name)
	}
	sort.Strings(flows)
	return flows
}
