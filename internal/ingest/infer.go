package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
)

// nullTokens are the cell texts read as missing values.
var nullTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "<NA>": {},
	"1.#IND": {}, "1.#QNAN": {}, "-1.#IND": {}, "-1.#QNAN": {},
}

var boolLiterals = map[string]struct{}{
	"true": {}, "false": {}, "True": {}, "False": {}, "TRUE": {}, "FALSE": {},
}

// IsNullToken reports whether s is read as a missing value.
func IsNullToken(s string) bool {
	_, ok := nullTokens[s]
	return ok
}

// build types each column from its raw cells. A column is numeric when every
// non-null cell parses as a number (an all-null column counts). A column made
// only of boolean literals is KindOther; once it has a null it is
// categorical, as is anything else.
func build(name string, header []string, records [][]string, opt Options) (*dataset.Dataset, error) {
	cols := make([]dataset.Column, len(header))
	for j, h := range header {
		cells := make([]string, len(records))
		for i, rec := range records {
			cells[i] = rec[j]
		}
		cols[j] = inferColumn(h, cells, opt)
	}
	return dataset.New(name, cols)
}

func inferColumn(name string, cells []string, opt Options) dataset.Column {
	nums := make([]float64, len(cells))
	nan := make([]bool, len(cells))
	numeric, boolean := true, true
	nonNull := 0
	for i, s := range cells {
		if IsNullToken(s) {
			continue
		}
		nonNull++
		if _, ok := boolLiterals[s]; !ok {
			boolean = false
		}
		if numeric {
			x, ok := parseNumeric(s, opt)
			if !ok {
				numeric = false
				continue
			}
			nums[i], nan[i] = x, math.IsNaN(x)
		}
	}
	col := dataset.Column{Name: name, Values: make([]dataset.Value, len(cells))}
	switch {
	case numeric:
		col.Kind = dataset.KindNumeric
	case boolean && nonNull > 0 && nonNull == len(cells):
		col.Kind = dataset.KindOther
	default:
		col.Kind = dataset.KindCategorical
	}
	for i, s := range cells {
		// a NaN spelling that parsed as a number is missing, like the null tokens
		if IsNullToken(s) || (numeric && nan[i]) {
			continue
		}
		v := dataset.Text(s)
		if numeric {
			v.Num = nums[i]
		}
		col.Values[i] = v
	}
	return col
}

// parseNumeric parses s as a number, honoring the configured separators and
// otherwise guessing the decimal separator from the last ',' or '.'. A
// trailing or embedded '%' is ignored.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
