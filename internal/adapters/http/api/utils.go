package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/okian/stampview/internal/domain/filter"
)

// selectionFromQuery reads repeatable query parameters for the filter
// columns. Unrelated parameters are ignored.
func selectionFromQuery(q url.Values) (filter.Selection, error) {
	values := make(map[string][]string, len(filter.Columns))
	for _, column := range filter.Columns {
		raw, ok := q[column]
		if !ok {
			continue
		}
		vals, err := cleanValues(column, raw)
		if err != nil {
			return filter.Selection{}, err
		}
		values[column] = vals
	}
	return filter.NewSelection(values), nil
}

// selectionFromJSON decodes a body such as {"machine_id": ["M1", "M2"]}.
// A column may also map to a single string or to null.
func selectionFromJSON(body []byte) (filter.Selection, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return filter.NewSelection(nil), nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return filter.Selection{}, err
	}
	values := make(map[string][]string, len(raw))
	for column, msg := range raw {
		if !slices.Contains(filter.Columns, column) {
			return filter.Selection{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
		}
		var list []string
		switch msg = bytes.TrimSpace(msg); {
		case bytes.Equal(msg, []byte("null")):
			continue
		case len(msg) > 0 && msg[0] == '"':
			var one string
			if err := json.Unmarshal(msg, &one); err != nil {
				return filter.Selection{}, err
			}
			list = []string{one}
		default:
			if err := json.Unmarshal(msg, &list); err != nil {
				return filter.Selection{}, fmt.Errorf("%w: %s", ErrInvalidValue, column)
			}
		}
		vals, err := cleanValues(column, list)
		if err != nil {
			return filter.Selection{}, err
		}
		values[column] = vals
	}
	return filter.NewSelection(values), nil
}

func cleanValues(column string, raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, fmt.Errorf("%w: %s", ErrBlankValue, column)
		}
		out = append(out, v)
	}
	return out, nil
}
