package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexibleStringValue converts one cell of a spreadsheet-style JSON export to text.
// Exports store numeric cells as numbers, checkbox cells as booleans and linked
// record cells as arrays; all of them are read back as the text a person would
// see in the sheet. Arrays of scalars are joined with ", ". Returns empty string
// for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// json.Number keeps integers beyond 2^53 intact
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var numVal json.Number
	if err := dec.Decode(&numVal); err == nil {
		return numVal.String()
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		if boolVal {
			return "true"
		}
		return "false"
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if bytes.HasPrefix(bytes.TrimSpace(item), []byte("[")) || bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
				return string(raw)
			}
			if s := FlexibleStringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}

	// Fallback: return raw string representation
	return string(raw)
}
