package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/stampview/internal/domain/table"
)

const ctxCheckEvery = 4096

// Cells treated as missing values.
var naValues = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {},
	"null": {}, "NULL": {}, "None": {}, "<NA>": {}, "#N/A": {},
}

func isNA(s string) bool {
	_, ok := naValues[strings.TrimSpace(s)]
	return ok
}

// readCSV decodes a CSV stream with a header row. Column kinds are inferred
// from the non-missing cells: int, then float, then bool, else string.
func readCSV(ctx context.Context, name string, r io.Reader) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		return nil, err
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		if len(records)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	columns := make([]table.Column, len(header))
	for c, h := range header {
		columns[c] = table.Column{Name: strings.TrimSpace(h), Kind: inferKind(records, c)}
	}

	rows := make([][]table.Value, len(records))
	for i, rec := range records {
		row := make([]table.Value, len(columns))
		for c, col := range columns {
			row[c], err = parseCell(rec[c], col.Kind)
			if err != nil {
				return nil, fmt.Errorf("%s line %d column %q: %w", name, i+2, col.Name, err)
			}
		}
		rows[i] = row
	}
	return table.New(name, columns, rows)
}

func inferKind(records [][]string, c int) table.Kind {
	isInt, isFloat, isBool, seen := true, true, true, false
	for _, rec := range records {
		s := strings.TrimSpace(rec[c])
		if isNA(s) {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(s); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			break
		}
	}
	switch {
	case !seen:
		return table.KindString
	case isInt:
		return table.KindInt
	case isFloat:
		return table.KindFloat
	case isBool:
		return table.KindBool
	default:
		return table.KindString
	}
}

func parseCell(s string, kind table.Kind) (table.Value, error) {
	if isNA(s) {
		return table.Null(kind), nil
	}
	switch kind {
	case table.KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return table.Int(i), err
	case table.KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return table.Float(f), err
	case table.KindBool:
		b, _ := parseBool(strings.TrimSpace(s))
		return table.Bool(b), nil
	default:
		return table.String(s), nil
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
