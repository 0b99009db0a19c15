package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool { return hasExt(filename, ".csv", ".tsv") }

func (csvLoader) Load(name string, data []byte, opt Options) (*Result, error) {
	return readCSVBytes(name, data, opt)
}

// ReadCSV reads a delimited file from r. The first record is the header.
func ReadCSV(r io.Reader, name string, opt Options) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return readCSVBytes(name, data, opt)
}

func readCSVBytes(name string, data []byte, opt Options) (*Result, error) {
	text, enc, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, invalid(KindEmpty, "CSV file has no data")
	}

	delim := opt.Delimiter
	if delim == 0 {
		if hasExt(name, ".tsv") {
			delim = '\t'
		} else {
			delim = sniffDelimiter(text)
		}
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid(KindEmpty, "CSV file has no data")
		}
		return nil, &ValidationError{Kind: KindParse, Msg: "Parsing error: Check delimiters or corrupted file", Err: err}
	}
	names, err := headerNames(header)
	if err != nil {
		return nil, err
	}
	ncol := len(names)

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = int(^uint(0) >> 1)
	}
	res := &Result{Encoding: enc, Delimiter: delim}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ValidationError{Kind: KindParse, Msg: "Parsing error: Check delimiters or corrupted file", Err: err}
		}
		if len(rec) > ncol {
			line, _ := r.FieldPos(0)
			return nil, &ValidationError{
				Kind: KindParse,
				Msg:  "Parsing error: Check delimiters or corrupted file",
				Err:  fmt.Errorf("line %d: expected %d fields, saw %d", line, ncol, len(rec)),
			}
		}
		res.TotalRows++
		if len(records) >= maxRows {
			continue
		}
		if len(rec) < ncol {
			tmp := make([]string, ncol)
			copy(tmp, rec)
			rec = tmp
		}
		records = append(records, rec)
	}
	if res.TotalRows == 0 {
		return nil, invalid(KindEmpty, "CSV file is empty")
	}
	ds, err := build(name, names, records, opt)
	if err != nil {
		return nil, err
	}
	res.Dataset = ds
	return res, nil
}

// decodeText tries UTF-8, then ISO-8859-1, then Windows-1252. Latin-1 is
// skipped when the bytes contain C1 control codes, which in practice mark
// Windows-1252 punctuation.
func decodeText(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}
	if !hasC1(data) {
		if out, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
			return string(out), "ISO-8859-1", nil
		}
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", &ValidationError{
			Kind: KindEncoding,
			Msg:  "Failed to read the file with common encodings (utf-8, ISO-8859-1, cp1252).",
			Err:  err,
		}
	}
	return string(out), "cp1252", nil
}

func hasC1(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 && b <= 0x9f {
			return true
		}
	}
	return false
}

// sniffDelimiter picks the candidate occurring most often outside quotes on
// the header line. Ties go to the earlier candidate; no hits means ','.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	candidates := []rune{',', ';', '\t'}
	counts := make(map[rune]int, len(candidates))
	inQuote := false
	for _, ch := range line {
		if ch == '"' {
			inQuote = !inQuote
			continue
		}
		if !inQuote {
			counts[ch]++
		}
	}
	best, bestN := ',', 0
	for _, c := range candidates {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}

// headerNames rejects blank names and renames repeats to name.1, name.2, ...
func headerNames(header []string) ([]string, error) {
	if len(header) == 0 {
		return nil, invalid(KindHeader, "CSV file has missing/invalid column names")
	}
	used := make(map[string]bool, len(header))
	for _, h := range header {
		if strings.TrimSpace(h) == "" {
			return nil, invalid(KindHeader, "CSV file has missing/invalid column names")
		}
		used[h] = true
	}
	counts := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		k, dup := counts[h]
		if !dup {
			counts[h] = 0
			out[i] = h
			continue
		}
		var name string
		for {
			k++
			name = fmt.Sprintf("%s.%d", h, k)
			if !used[name] {
				break
			}
		}
		counts[h] = k
		used[name] = true
		out[i] = name
	}
	return out, nil
}
