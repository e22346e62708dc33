package learner

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// ReadCSVDataset parses a headered CSV file into a Dataset. Every column but
// the target must be numeric; the target column must hold exactly two
// distinct class labels. The positive class is the lexically larger label.
func ReadCSVDataset(path, target string, dataID int64) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("learner.ReadCSVDataset: %w", err)
	}
	defer f.Close()
	return readCSVDataset(f, target, dataID)
}

func readCSVDataset(r io.Reader, target string, dataID int64) (*Dataset, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("learner.ReadCSVDataset: error reading header: %w", err)
	}
	targetCol := -1
	for i, name := range header {
		if name == target {
			targetCol = i
		}
	}
	if targetCol == -1 {
		return nil, fmt.Errorf("learner.ReadCSVDataset: no column named %q", target)
	}

	var rows [][]float64
	var rawLabels []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("learner.ReadCSVDataset: %w", err)
		}
		features := make([]float64, 0, len(record)-1)
		for i, field := range record {
			if i == targetCol {
				rawLabels = append(rawLabels, field)
				continue
			}
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("learner.ReadCSVDataset: row %d column %s is not numeric: %q", len(rows)+1, header[i], field)
			}
			features = append(features, val)
		}
		rows = append(rows, features)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("learner.ReadCSVDataset: no data rows")
	}

	classes, err := classPair(rawLabels)
	if err != nil {
		return nil, err
	}
	y := make([]int, len(rawLabels))
	for i, label := range rawLabels {
		if label == classes[1] {
			y[i] = 1
		}
	}

	cols := len(rows[0])
	flat := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return &Dataset{
		DataID:  dataID,
		X:       mat.NewDense(len(rows), cols, flat),
		Y:       y,
		Classes: classes,
	}, nil
}

func classPair(labels []string) ([2]string, error) {
	var classes [2]string
	seen := 0
	for _, label := range labels {
		switch {
		case seen > 0 && label == classes[0]:
		case seen > 1 && label == classes[1]:
		case seen == 0:
			classes[0] = label
			seen = 1
		case seen == 1:
			classes[1] = label
			seen = 2
		default:
			return classes, fmt.Errorf("learner.ReadCSVDataset: more than two classes, got %q, %q, %q", classes[0], classes[1], label)
		}
	}
	if seen < 2 {
		return classes, fmt.Errorf("learner.ReadCSVDataset: target has a single class %q", classes[0])
	}
	if classes[0] > classes[1] {
		classes[0], classes[1] = classes[1], classes[0]
	}
	return classes, nil
}
