package quality

import (
	"fmt"
	"strconv"
	"strings"
)

// recommendThreshold is the total below which recommendations are offered.
const recommendThreshold = 75.0

var recommendations = []struct {
	id    FactorID
	below float64
	text  string
}{
	{FactorMissing, 20, "Consider handling missing values (imputation or removal)"},
	{FactorDuplicates, 12, "Remove duplicate rows"},
	{FactorTypes, 15, "Validate and convert data types appropriately"},
	{FactorNaming, 8, "Standardize column names (remove special characters)"},
	{FactorOutliers, 12, "Investigate and handle outliers in numeric columns"},
}

// Label maps the total score to a quality band.
func (r *Report) Label() string {
	return LabelFor(r.Total)
}

// LabelFor maps a score to its quality band.
func LabelFor(score float64) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Fair"
	case score >= 40:
		return "Needs Improvement"
	default:
		return "Poor"
	}
}

// Factor returns the factor with the given id.
func (r *Report) Factor(id FactorID) (Factor, bool) {
	for _, f := range r.Factors {
		if f.ID == id {
			return f, true
		}
	}
	return Factor{}, false
}

// Recommendations lists remediation hints for factors that fell below their
// thresholds. Reports scoring 75 or more get none.
func (r *Report) Recommendations() []string {
	if r.Total >= recommendThreshold {
		return nil
	}
	var out []string
	for _, rec := range recommendations {
		f, ok := r.Factor(rec.id)
		if !ok || f.NotApplicable {
			continue
		}
		if shown(f.Earned) < rec.below {
			out = append(out, rec.text)
		}
	}
	return out
}

// shown is v as the report prints it, to one decimal place. Cutoffs apply to
// the printed value, so a factor shown as 20.0 never triggers the 20 cutoff.
func shown(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return f
}

// Markdown renders the report in the same bracketed-section style as the
// dataset profile.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATA QUALITY SCORE]\n")
	b.WriteString(fmt.Sprintf("Score: %.1f/100 (%s)\n\n", r.Total, r.Label()))
	b.WriteString("[FACTORS]\n")
	for _, f := range r.Factors {
		b.WriteString("- ")
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	if recs := r.Recommendations(); len(recs) > 0 {
		b.WriteString("\n[RECOMMENDATIONS]\n")
		for _, s := range recs {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}
