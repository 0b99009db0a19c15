package analysis

import (
	"math"

	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
)

// Issue is one finding from Validate.
type Issue struct {
	Key     string `json:"key" yaml:"key"`
	Message string `json:"message" yaml:"message"`
}

// Validate lists structural problems worth surfacing before analysis.
func Validate(ds *dataset.Dataset) []Issue {
	var out []Issue
	if ds.NumRows() == 0 || ds.NumCols() == 0 {
		out = append(out, Issue{"empty_file", "The uploaded CSV file is empty."})
	}
	for i := range ds.Columns {
		if ds.Columns[i].NullCount() > 0 {
			out = append(out, Issue{"missing_values", "The file contains missing values."})
			break
		}
	}
	if len(ds.ColumnsOf(dataset.KindNumeric)) == 0 {
		out = append(out, Issue{"numeric_columns", "No numeric columns detected."})
	}
	if len(ds.ColumnsOf(dataset.KindCategorical)) == 0 {
		out = append(out, Issue{"text_columns", "No text/object columns detected."})
	}
	return out
}

// CleanOptions controls missing-value handling.
type CleanOptions struct {
	// DropThreshold drops columns whose null ratio exceeds it.
	DropThreshold float64
	// Important columns are never dropped.
	Important []string
}

func DefaultCleanOptions() CleanOptions { return CleanOptions{DropThreshold: 0.5} }

// Fill records how nulls in one numeric column were replaced.
type Fill struct {
	Column   string  `json:"column" yaml:"column"`
	Strategy string  `json:"strategy" yaml:"strategy"` // mean|median
	Value    float64 `json:"value" yaml:"value"`
	Count    int     `json:"count" yaml:"count"`
}

// CleanResult describes what Clean changed.
type CleanResult struct {
	Dropped []string `json:"dropped" yaml:"dropped"`
	Filled  []Fill   `json:"filled" yaml:"filled"`
}

// Clean drops sparse columns and imputes the remaining numeric nulls: the
// median when |skewness| > 1, else the mean. Non-numeric nulls are kept.
// ds is not modified.
func Clean(ds *dataset.Dataset, opt CleanOptions) (*dataset.Dataset, *CleanResult) {
	important := make(map[string]bool, len(opt.Important))
	for _, n := range opt.Important {
		important[n] = true
	}
	rows := ds.NumRows()
	out := &dataset.Dataset{Name: ds.Name}
	res := &CleanResult{Dropped: []string{}, Filled: []Fill{}}
	for i := range ds.Columns {
		c := &ds.Columns[i]
		nulls := c.NullCount()
		if rows > 0 && float64(nulls)/float64(rows) > opt.DropThreshold && !important[c.Name] {
			res.Dropped = append(res.Dropped, c.Name)
			continue
		}
		col := dataset.Column{Name: c.Name, Kind: c.Kind, Values: append([]dataset.Value(nil), c.Values...)}
		if nulls > 0 && c.Kind == dataset.KindNumeric {
			vals := c.Floats()
			if len(vals) > 0 {
				strategy, fill := "mean", mean(vals)
				if sk := Skewness(vals); !math.IsNaN(sk) && math.Abs(sk) > 1 {
					strategy, fill = "median", median(vals)
				}
				for j, v := range col.Values {
					if v.IsNull() {
						col.Values[j] = dataset.Number(fill)
					}
				}
				res.Filled = append(res.Filled, Fill{Column: c.Name, Strategy: strategy, Value: fill, Count: nulls})
			}
		}
		out.Columns = append(out.Columns, col)
	}
	return out, res
}
