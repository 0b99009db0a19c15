package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFlags_Options(t *testing.T) {
	isolate(t)
	cfg = nil

	tests := []struct {
		name    string
		flags   loadFlags
		check   func(t *testing.T, lf loadFlags)
		wantErr string
	}{
		{
			name:  "defaults take config max rows",
			flags: loadFlags{maxRows: -1, sheetIndex: 1},
			check: func(t *testing.T, lf loadFlags) {
				opt, err := lf.options()
				require.NoError(t, err)
				assert.Equal(t, 100000, opt.MaxRows)
				assert.Equal(t, rune(0), opt.Delimiter)
				assert.Equal(t, 1, opt.SheetIndex)
			},
		},
		{
			name:  "explicit separators",
			flags: loadFlags{delimiter: "tab", decimal: "comma", thousands: "space", maxRows: 0, sheetName: "Data"},
			check: func(t *testing.T, lf loadFlags) {
				opt, err := lf.options()
				require.NoError(t, err)
				assert.Equal(t, 0, opt.MaxRows)
				assert.Equal(t, '\t', opt.Delimiter)
				assert.Equal(t, ',', opt.DecimalSeparator)
				assert.Equal(t, ' ', opt.ThousandsSeparator)
				assert.Equal(t, "Data", opt.SheetName)
			},
		},
		{name: "bad delimiter", flags: loadFlags{delimiter: "|"}, wantErr: "unsupported --delimiter"},
		{name: "bad decimal", flags: loadFlags{decimal: "x"}, wantErr: "unsupported --decimal"},
		{name: "bad thousands", flags: loadFlags{thousands: "_"}, wantErr: "unsupported --thousands"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr != "" {
				_, err := tt.flags.options()
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			tt.check(t, tt.flags)
		})
	}
}

func TestResolveFormat(t *testing.T) {
	isolate(t)
	cfg = nil

	f, err := resolveFormat("")
	require.NoError(t, err)
	assert.Equal(t, formatText, f)

	f, err = resolveFormat(" YAML ")
	require.NoError(t, err)
	assert.Equal(t, formatYAML, f)

	_, err = resolveFormat("csv")
	assert.Error(t, err)
}

func TestExpandInputs_DedupAndSort(t *testing.T) {
	home := isolate(t)
	b := writeFile(t, home+"/b.csv", "x\n1\n")
	a := writeFile(t, home+"/a.csv", "x\n1\n")

	files, err := expandInputs([]string{home + "/*.csv", a})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)
}
