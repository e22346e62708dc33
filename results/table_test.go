package results

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openml "github.com/atrium-org/openml-go"
)

func testEvaluations() []openml.Evaluation {
	return []openml.Evaluation{
		{RunID: 102, TaskID: 3954, SetupID: 12, Function: "area_under_roc_curve", Value: 0.81},
		{RunID: 101, TaskID: 3954, SetupID: 11, Function: "area_under_roc_curve", Value: 0.73},
		{RunID: 101, TaskID: 3954, SetupID: 11, Function: "predictive_accuracy", Value: 0.9},
		{RunID: 103, TaskID: 3333, SetupID: 99, Function: "area_under_roc_curve", Value: 0.5},
	}
}

func testSetups() []openml.Setup {
	return []openml.Setup{
		{SetupID: 11, FlowName: "classif.svm", Parameters: []openml.SetupParameter{
			{Name: "kernel", Value: "radial"},
			{Name: "cost", Value: "4"},
			{Name: "gamma", Value: "0.25"},
		}},
		{SetupID: 12, FlowName: "classif.svm", Parameters: []openml.SetupParameter{
			{Name: "kernel", Value: "linear"},
			{Name: "cost", Value: "16"},
		}},
	}
}

func TestSetupIDs(t *testing.T) {
	ids := SetupIDs(testEvaluations())
	assert.Equal(t, []int64{11, 12, 99}, ids, "distinct and sorted")
	assert.Empty(t, SetupIDs(nil))
}

func TestBuild(t *testing.T) {
	table := Build(testEvaluations(), testSetups(), "area_under_roc_curve",
		[]string{"kernel", "cost", "gamma"})

	assert.Equal(t,
		[]string{"run_id", "task_id", "setup_id", "kernel", "cost", "gamma", "area_under_roc_curve"},
		table.Columns, "identifiers first, parameters in order, measure last")

	// Run 103 has no matching setup and is dropped; the accuracy row is
	// filtered out; rows come back ordered by run ID.
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"101", "3954", "11", "radial", "4", "0.25", "0.73"}, table.Rows[0])
	assert.Equal(t, []string{"102", "3954", "12", "linear", "16", "NA", "0.81"}, table.Rows[1],
		"inactive parameter pivots to NA")
}

func TestEnrich(t *testing.T) {
	table := Build(testEvaluations(), testSetups(), "area_under_roc_curve",
		[]string{"kernel", "cost", "gamma"})
	qualities := map[int64]openml.Qualities{
		3954: {"NumberOfInstances": 3196, "NumberOfClasses": 2},
	}
	require.NoError(t, table.Enrich(qualities, []string{"NumberOfInstances", "NumberOfClasses"}))

	assert.Equal(t,
		[]string{"run_id", "task_id", "setup_id", "kernel", "cost", "gamma",
			"NumberOfInstances", "NumberOfClasses", "area_under_roc_curve"},
		table.Columns, "qualities join in before the measure")
	assert.Equal(t, []string{"101", "3954", "11", "radial", "4", "0.25", "3196", "2", "0.73"}, table.Rows[0])
}

func TestEnrichMissingQualities(t *testing.T) {
	table := Build(testEvaluations(), testSetups(), "area_under_roc_curve", []string{"kernel"})
	require.NoError(t, table.Enrich(nil, []string{"NumberOfInstances"}))
	assert.Equal(t, "NA", table.Rows[0][len(table.Rows[0])-2])
}

func TestEnrichNoTaskColumn(t *testing.T) {
	table := &Table{Columns: []string{"run_id", "auc"}, Rows: [][]string{{"1", "0.5"}}}
	assert.Error(t, table.Enrich(nil, []string{"NumberOfInstances"}))
}

func TestRenderTo(t *testing.T) {
	table := Build(testEvaluations(), testSetups(), "area_under_roc_curve", []string{"kernel"})
	var sb strings.Builder
	require.NoError(t, table.RenderTo(&sb))
	out := sb.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3, "header plus two rows")
	assert.Contains(t, lines[0], "run_id")
	assert.Contains(t, lines[0], "area_under_roc_curve")
	assert.Contains(t, lines[1], "101")
}
