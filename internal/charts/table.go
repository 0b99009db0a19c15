package charts

import (
	"fmt"
	"strconv"
)

// MaxTableRows caps the rows Table emits for point and category charts.
const MaxTableRows = 20

// Table flattens the chart into display rows for text and PDF output.
func (c *Chart) Table() (header []string, rows [][]string) {
	switch {
	case c.Slices != nil:
		header = []string{c.Column, "Count"}
		if c.Kind == Pie {
			header = append(header, "Percent")
		}
		for i, s := range c.Slices {
			if i == MaxTableRows {
				break
			}
			row := []string{s.Label, strconv.Itoa(s.Count)}
			if c.Kind == Pie {
				row = append(row, fmt.Sprintf("%.2f%%", s.Percent))
			}
			rows = append(rows, row)
		}
	case c.Bins != nil:
		header = []string{"Bin", "Count"}
		for _, b := range c.Bins {
			rows = append(rows, []string{fmt.Sprintf("%s to %s", num(b.Lo), num(b.Hi)), strconv.Itoa(b.Count)})
		}
	case c.Box != nil:
		header = []string{"Statistic", "Value"}
		b := c.Box
		rows = [][]string{
			{"min", num(b.Min)},
			{"q1", num(b.Q1)},
			{"median", num(b.Median)},
			{"q3", num(b.Q3)},
			{"max", num(b.Max)},
			{"lower whisker", num(b.LowerWhisker)},
			{"upper whisker", num(b.UpperWhisker)},
			{"outliers", strconv.Itoa(len(b.Outliers))},
		}
	default:
		x := "Row"
		if c.Second != "" {
			x = c.Column
		}
		y := c.Column
		if c.Second != "" {
			y = c.Second
		}
		header = []string{x, y}
		for i, p := range c.Points {
			if i == MaxTableRows {
				break
			}
			rows = append(rows, []string{num(p.X), num(p.Y)})
		}
		if c.Correlation != nil {
			rows = append(rows, []string{"r", c.Correlation.String()})
		}
	}
	return header, rows
}

func num(f float64) string { return strconv.FormatFloat(f, 'g', 6, 64) }
