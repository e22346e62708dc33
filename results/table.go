// Package results reshapes queried run evaluations and setups into a wide
// result table: one row per run, one column per hyperparameter, the
// performance measure last.
package results

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	openml "github.com/atrium-org/openml-go"
)

// Placeholder for parameters a setup does not carry, e.g. ones whose
// activation condition did not hold when the design was sampled.
const missingValue = "NA"

// Table is an ordered-column table of string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// SetupIDs extracts the distinct setup IDs named by the evaluations, sorted,
// for feeding a setup listing call.
func SetupIDs(evals []openml.Evaluation) []int64 {
	seen := make(map[int64]bool, len(evals))
	ids := make([]int64, 0, len(evals))
	for _, e := range evals {
		if !seen[e.SetupID] {
			seen[e.SetupID] = true
			ids = append(ids, e.SetupID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Build filters the evaluations to one measure, pivots each matching run's
// setup parameters into columns, and joins run, task and setup identifiers.
// Evaluations without a matching setup are dropped. Columns are ordered
// run_id, task_id, setup_id, the parameters as given, and the measure last.
func Build(evals []openml.Evaluation, setups []openml.Setup, measure string, paramNames []string) *Table {
	setupsByID := make(map[int64]map[string]string, len(setups))
	for _, s := range setups {
		byName := make(map[string]string, len(s.Parameters))
		for _, p := range s.Parameters {
			byName[p.Name] = p.Value
		}
		setupsByID[s.SetupID] = byName
	}

	columns := append([]string{"run_id", "task_id", "setup_id"}, paramNames...)
	columns = append(columns, measure)

	sorted := make([]openml.Evaluation, len(evals))
	copy(sorted, evals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RunID < sorted[j].RunID })

	rows := make([][]string, 0, len(sorted))
	for _, e := range sorted {
		if e.Function != measure {
			continue
		}
		params, ok := setupsByID[e.SetupID]
		if !ok {
			continue
		}
		row := make([]string, 0, len(columns))
		row = append(row,
			strconv.FormatInt(e.RunID, 10),
			strconv.FormatInt(e.TaskID, 10),
			strconv.FormatInt(e.SetupID, 10))
		for _, name := range paramNames {
			val, ok := params[name]
			if !ok {
				val = missingValue
			}
			row = append(row, val)
		}
		row = append(row, strconv.FormatFloat(e.Value, 'g', -1, 64))
		rows = append(rows, row)
	}
	return &Table{Columns: columns, Rows: rows}
}

// Enrich joins dataset qualities onto the table by task ID, inserting one
// column per quality name just before the measure column. Tasks without the
// quality get the missing placeholder.
func (t *Table) Enrich(qualitiesByTask map[int64]openml.Qualities, names []string) error {
	taskCol := -1
	for i, col := range t.Columns {
		if col == "task_id" {
			taskCol = i
		}
	}
	if taskCol == -1 {
		return fmt.Errorf("results: table has no task_id column")
	}
	// The measure column is last by construction; qualities go before it.
	measureCol := len(t.Columns) - 1

	columns := make([]string, 0, len(t.Columns)+len(names))
	columns = append(columns, t.Columns[:measureCol]...)
	columns = append(columns, names...)
	columns = append(columns, t.Columns[measureCol])
	t.Columns = columns

	for i, row := range t.Rows {
		taskID, err := strconv.ParseInt(row[taskCol], 10, 64)
		if err != nil {
			return fmt.Errorf("results: row %d has non-numeric task_id %q", i, row[taskCol])
		}
		qualities := qualitiesByTask[taskID]
		newRow := make([]string, 0, len(columns))
		newRow = append(newRow, row[:measureCol]...)
		for _, name := range names {
			val, ok := qualities[name]
			if !ok {
				newRow = append(newRow, missingValue)
				continue
			}
			newRow = append(newRow, strconv.FormatFloat(val, 'g', -1, 64))
		}
		newRow = append(newRow, row[measureCol])
		t.Rows[i] = newRow
	}
	return nil
}

// RenderTo writes the table as aligned plain text.
func (t *Table) RenderTo(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, col := range t.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
	for _, row := range t.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
